package v1

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// InvoiceEvent is the wire form of an invoice lifecycle notification,
// shared by the HTTP ingestion endpoint and the JSON feed codec.
type InvoiceEvent struct {
	// EventID identifies the notification, not the invoice. Redelivery reuses it.
	EventID string `json:"event_id"`

	// Operation is one of "created", "updated", "deleted".
	Operation string `json:"operation"`

	// OccurredAt is the producer's clock. Informational only.
	OccurredAt *time.Time `json:"occurred_at,omitempty"`

	// Current is the invoice after the change; for deletes, its final known state.
	Current *InvoiceSnapshot `json:"current"`

	// Previous is the invoice before the change. Required for updates only.
	Previous *InvoiceSnapshot `json:"previous,omitempty"`
}

// InvoiceSnapshot carries the invoice fields that affect revenue.
type InvoiceSnapshot struct {
	ID string `json:"id"`

	// Amount is an integer count of minor currency units (cents).
	Amount json.Number `json:"amount"`

	Status string `json:"status"`

	// Date is the invoice date, "2006-01-02" or RFC 3339. Timestamps are
	// bucketed by their UTC calendar month.
	Date string `json:"date"`
}

// ToDomain converts the wire event into a validated revenue.LifecycleEvent.
// Every failure is a *revenue.ValidationError.
func (e *InvoiceEvent) ToDomain() (revenue.LifecycleEvent, error) {
	if e.Current == nil {
		return revenue.LifecycleEvent{}, revenue.NewValidationError("current", "is required")
	}

	current, err := e.Current.toDomain("current")
	if err != nil {
		return revenue.LifecycleEvent{}, err
	}

	evt := revenue.LifecycleEvent{
		EventID:   strings.TrimSpace(e.EventID),
		Operation: revenue.Operation(strings.ToLower(strings.TrimSpace(e.Operation))),
		Current:   current,
	}
	if e.OccurredAt != nil {
		evt.OccurredAt = e.OccurredAt.UTC()
	}

	if e.Previous != nil {
		previous, err := e.Previous.toDomain("previous")
		if err != nil {
			return revenue.LifecycleEvent{}, err
		}
		evt.Previous = &previous
	}

	if err := evt.Validate(); err != nil {
		return revenue.LifecycleEvent{}, err
	}
	return evt, nil
}

func (s *InvoiceSnapshot) toDomain(field string) (revenue.InvoiceSnapshot, error) {
	amount, err := ParseAmount(field+".amount", s.Amount.String())
	if err != nil {
		return revenue.InvoiceSnapshot{}, err
	}

	status, err := revenue.ParseStatus(s.Status)
	if err != nil {
		return revenue.InvoiceSnapshot{}, revenue.NewValidationError(field+".status", err.Error())
	}

	period, err := ParseDate(field+".date", s.Date)
	if err != nil {
		return revenue.InvoiceSnapshot{}, err
	}

	return revenue.InvoiceSnapshot{
		ID:     strings.TrimSpace(s.ID),
		Amount: amount,
		Status: status,
		Period: period,
	}, nil
}

// ParseAmount parses a decimal literal into minor units. Fractional, negative and
// out-of-range values are rejected rather than rounded.
func ParseAmount(field, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, revenue.NewValidationError(field, "is required")
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, revenue.NewValidationError(field, "is not a number")
	}
	if !d.IsInteger() {
		return 0, revenue.NewValidationError(field, "must be a whole number of minor units")
	}
	if d.IsNegative() {
		return 0, revenue.NewValidationError(field, "must not be negative")
	}
	if d.GreaterThan(maxAmount) {
		return 0, revenue.NewValidationError(field, "is out of range")
	}
	return d.IntPart(), nil
}

// ParseDate resolves an invoice date to its revenue period.
func ParseDate(field, raw string) (revenue.Period, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return revenue.Period{}, revenue.NewValidationError(field, "is required")
	}

	if t, err := time.Parse(dateLayout, raw); err == nil {
		return revenue.PeriodFor(t), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return revenue.PeriodFor(t.UTC()), nil
	}
	return revenue.Period{}, revenue.NewValidationError(field, "must be YYYY-MM-DD or RFC 3339")
}

// FromDomain renders evt in wire form. Dates are written as the first day of the period.
func FromDomain(evt revenue.LifecycleEvent) InvoiceEvent {
	out := InvoiceEvent{
		EventID:   evt.EventID,
		Operation: string(evt.Operation),
		Current:   snapshotFromDomain(evt.Current),
	}
	if !evt.OccurredAt.IsZero() {
		at := evt.OccurredAt
		out.OccurredAt = &at
	}
	if evt.Previous != nil {
		out.Previous = snapshotFromDomain(*evt.Previous)
	}
	return out
}

func snapshotFromDomain(s revenue.InvoiceSnapshot) *InvoiceSnapshot {
	return &InvoiceSnapshot{
		ID:     s.ID,
		Amount: json.Number(decimal.NewFromInt(s.Amount).String()),
		Status: string(s.Status),
		Date:   s.Period.String(),
	}
}
