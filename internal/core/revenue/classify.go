package revenue

// ChangeKind is the transition an invoice went through, as seen by one bucket.
type ChangeKind int

const (
	ChangeNone ChangeKind = iota
	ChangeBecameIneligible
	ChangeBecameEligible
	ChangeStatusSwapped
	ChangeAmountChanged
	ChangePeriodChanged
)

var changeKindNames = map[ChangeKind]string{
	ChangeNone:             "none",
	ChangeBecameIneligible: "became-ineligible",
	ChangeBecameEligible:   "became-eligible",
	ChangeStatusSwapped:    "status-swapped",
	ChangeAmountChanged:    "amount-changed",
	ChangePeriodChanged:    "period-changed",
}

func (k ChangeKind) String() string {
	if name, ok := changeKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Classify compares two snapshots of one invoice. A nil snapshot is the zero baseline:
// nil prev means "created", nil curr means "removed".
//
// Precedence: period change, then eligibility transitions, then status swap, then
// amount change. A status swap may carry an amount change too; Step.Apply handles both.
func Classify(prev, curr *InvoiceSnapshot) ChangeKind {
	if prev != nil && curr != nil && prev.Period != curr.Period {
		return ChangePeriodChanged
	}

	prevEligible := prev != nil && prev.Eligible()
	currEligible := curr != nil && curr.Eligible()

	switch {
	case !prevEligible && !currEligible:
		return ChangeNone
	case prevEligible && !currEligible:
		return ChangeBecameIneligible
	case !prevEligible && currEligible:
		return ChangeBecameEligible
	case prev.Status != curr.Status:
		return ChangeStatusSwapped
	case prev.Amount != curr.Amount:
		return ChangeAmountChanged
	default:
		return ChangeNone
	}
}
