package ingestion

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	httperr "github.com/aevon-lab/revenue-engine/internal/core/errors"
	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
	"github.com/gin-gonic/gin"
)

const (
	msgReadBodyFailed  = "Failed to read request body"
	msgApplyFailed     = "Event could not be applied, retry later"
	msgDuplicateEvent  = "Event already applied"
	msgInternalFailure = "Event cannot be applied"
)

// ingestionError carries the structured HTTP error shape from a helper back to the handler.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// IngestHandler decodes one lifecycle event, applies it through the dispatcher
// and waits for the outcome.
func (s *Service) IngestHandler(c *gin.Context) {
	evt, ierr := s.parseEvent(c)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	slog.Info("[Ingestion] Received invoice event",
		"event_id", evt.EventID,
		"invoice_id", evt.Current.ID,
		"operation", evt.Operation)

	if ierr := s.applyEvent(c, evt); ierr != nil {
		writeError(c, ierr)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "applied", "event_id": evt.EventID})
}

// parseEvent reads the bounded request body and decodes it with the codec
// selected by Content-Type.
func (s *Service) parseEvent(c *gin.Context) (revenue.LifecycleEvent, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBytes+1))
	if err != nil {
		slog.Error("[Ingestion] Failed to read request body", "error", err)
		return revenue.LifecycleEvent{}, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("[Ingestion] Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return revenue.LifecycleEvent{}, &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpPayloadTooLargeError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	evt, err := s.codecs.Decode(c.ContentType(), bodyBytes)
	if err != nil {
		slog.Warn("[Ingestion] Rejected invoice event", "error", err, "payload_size", len(bodyBytes))
		return revenue.LifecycleEvent{}, validationError(err)
	}
	return evt, nil
}

func (s *Service) applyEvent(c *gin.Context, evt revenue.LifecycleEvent) *ingestionError {
	err := s.applier.Apply(c.Request.Context(), evt)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, revenue.ErrAlreadyApplied):
		slog.Info("[Ingestion] Duplicate event rejected", "event_id", evt.EventID)
		return &ingestionError{
			statusCode: http.StatusConflict,
			errorType:  httperr.HttpDuplicateEventError,
			message:    msgDuplicateEvent,
			details:    map[string]interface{}{"event_id": evt.EventID},
		}
	case errors.Is(err, revenue.ErrValidation):
		return validationError(err)
	case errors.Is(err, revenue.ErrInvariant):
		slog.Error("[Ingestion] Event cannot be applied", "error", err, "event_id", evt.EventID)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgInternalFailure,
		}
	default:
		slog.Error("[Ingestion] Failed to apply event", "error", err, "event_id", evt.EventID)
		return &ingestionError{
			statusCode: http.StatusServiceUnavailable,
			errorType:  httperr.HttpUnavailableError,
			message:    msgApplyFailed,
		}
	}
}

func validationError(err error) *ingestionError {
	ierr := &ingestionError{
		statusCode: http.StatusBadRequest,
		errorType:  httperr.HttpValidationError,
		message:    err.Error(),
	}
	var verr *revenue.ValidationError
	if errors.As(err, &verr) {
		ierr.details = map[string]interface{}{"field": verr.Field, "reason": verr.Reason}
	}
	return ierr
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
