package revenue

import "time"

// Operation is the kind of invoice lifecycle change published by the feed.
type Operation string

const (
	OperationCreated Operation = "created"
	OperationUpdated Operation = "updated"
	OperationDeleted Operation = "deleted"
)

// CalculationSource records where a bucket's current values came from.
// Audit only; never used in aggregate math.
type CalculationSource string

const (
	SourceSeed         CalculationSource = "seed"
	SourceInvoiceEvent CalculationSource = "invoice_event"
)

// Bucket is the per-month revenue aggregate.
// All amounts are minor currency units.
type Bucket struct {
	ID                 string
	Period             Period
	InvoiceCount       int64
	TotalAmount        int64
	TotalPaidAmount    int64
	TotalPendingAmount int64
	CalculationSource  CalculationSource
	LastEventID        string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ZeroBucket returns an empty bucket for p; the shape persisted by upsert-if-absent.
func ZeroBucket(p Period, source CalculationSource) Bucket {
	return Bucket{Period: p, CalculationSource: source}
}

// Consistent reports whether b satisfies the bucket invariants.
func (b Bucket) Consistent() bool {
	return b.InvoiceCount >= 0 &&
		b.TotalPaidAmount >= 0 &&
		b.TotalPendingAmount >= 0 &&
		b.TotalPaidAmount+b.TotalPendingAmount == b.TotalAmount
}

// InvoiceSnapshot is the slice of invoice state the engine needs.
type InvoiceSnapshot struct {
	ID     string
	Amount int64
	Status Status
	Period Period
}

// Eligible reports whether the snapshot contributes to its period's bucket.
func (s InvoiceSnapshot) Eligible() bool {
	return IsEligible(s.Status)
}

// LifecycleEvent is one created/updated/deleted notification about an invoice.
// Previous is set only for updates. For deletes, Current carries the final known state.
type LifecycleEvent struct {
	EventID    string
	Operation  Operation
	Current    InvoiceSnapshot
	Previous   *InvoiceSnapshot
	OccurredAt time.Time
}

// Validate checks the event before any store access.
func (e LifecycleEvent) Validate() error {
	if e.EventID == "" {
		return newValidationError("event_id", "is required")
	}
	switch e.Operation {
	case OperationCreated, OperationDeleted:
		if e.Previous != nil {
			return newValidationError("previous", "only allowed for updated events")
		}
	case OperationUpdated:
		if e.Previous == nil {
			return newValidationError("previous", "is required for updated events")
		}
		if err := validateSnapshot("previous", *e.Previous); err != nil {
			return err
		}
		if e.Previous.ID != e.Current.ID {
			return newValidationError("previous.id", "must match current.id")
		}
	default:
		return newValidationError("operation", "unknown operation "+string(e.Operation))
	}
	return validateSnapshot("current", e.Current)
}

func validateSnapshot(field string, s InvoiceSnapshot) error {
	if s.ID == "" {
		return newValidationError(field+".id", "is required")
	}
	if s.Amount < 0 {
		return newValidationError(field+".amount", "must not be negative")
	}
	if _, ok := knownStatuses[s.Status]; !ok {
		return newValidationError(field+".status", "unknown status "+string(s.Status))
	}
	if s.Period.IsZero() {
		return newValidationError(field+".date", "is required")
	}
	return nil
}
