package errors

const (
	HttpInternalError        = "internal_error"
	HttpValidationError      = "validation_failed"
	HttpDuplicateEventError  = "duplicate_event"
	HttpBucketNotFoundError  = "bucket_not_found"
	HttpInvalidPeriodError   = "invalid_period"
	HttpUnavailableError     = "unavailable"
	HttpPayloadTooLargeError = "payload_too_large"
)

// ErrorResponse is the error body returned by every HTTP endpoint.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
