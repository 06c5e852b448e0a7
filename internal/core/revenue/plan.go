package revenue

import (
	"fmt"
	"sort"
)

// Step is one bucket mutation derived from an event.
// Previous and Current are the invoice as seen by this bucket; nil is the zero baseline.
type Step struct {
	Period   Period
	Kind     ChangeKind
	Previous *InvoiceSnapshot
	Current  *InvoiceSnapshot
}

// Additive reports whether the step only adds to its bucket. A missing bucket is
// expected for additive steps and an anomaly for all others.
func (s Step) Additive() bool {
	return s.Kind == ChangeBecameEligible
}

// Apply computes the bucket value after this step.
func (s Step) Apply(b Bucket) (Outcome, error) {
	switch s.Kind {
	case ChangeBecameEligible:
		return Add(b, s.Current.Amount, s.Current.Status), nil
	case ChangeBecameIneligible:
		return Remove(b, s.Previous.Amount, s.Previous.Status), nil
	case ChangeStatusSwapped:
		prev, curr := s.Previous, s.Current
		out := MoveBetweenStatuses(b, prev.Amount, prev.Status, curr.Status)
		if prev.Amount != curr.Amount {
			out = out.Then(func(b Bucket) Outcome {
				return ChangeAmount(b, prev.Amount, curr.Amount, curr.Status)
			})
		}
		return out, nil
	case ChangeAmountChanged:
		return ChangeAmount(b, s.Previous.Amount, s.Current.Amount, s.Current.Status), nil
	case ChangeNone:
		return Outcome{Bucket: b}, nil
	default:
		return Outcome{}, fmt.Errorf("step for %s: cannot apply %s directly: %w", s.Period, s.Kind, ErrInvariant)
	}
}

// Plan decomposes a lifecycle event into bucket steps, sorted by ascending period.
// Steps classified as none are dropped, so an empty plan means "no write".
// A period-changed update becomes a removal from the old period and an addition
// to the new one, each classified on its own.
func Plan(evt LifecycleEvent) ([]Step, error) {
	if err := evt.Validate(); err != nil {
		return nil, err
	}

	curr := evt.Current
	var steps []Step

	switch evt.Operation {
	case OperationCreated:
		steps = appendStep(steps, curr.Period, nil, &curr)
	case OperationDeleted:
		steps = appendStep(steps, curr.Period, &curr, nil)
	case OperationUpdated:
		prev := *evt.Previous
		if Classify(&prev, &curr) == ChangePeriodChanged {
			steps = appendStep(steps, prev.Period, &prev, nil)
			steps = appendStep(steps, curr.Period, nil, &curr)
		} else {
			steps = appendStep(steps, curr.Period, &prev, &curr)
		}
	}

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Period.Before(steps[j].Period)
	})
	return steps, nil
}

func appendStep(steps []Step, p Period, prev, curr *InvoiceSnapshot) []Step {
	kind := Classify(prev, curr)
	if kind == ChangeNone {
		return steps
	}
	return append(steps, Step{Period: p, Kind: kind, Previous: prev, Current: curr})
}
