package revenue

import (
	"fmt"
	"strings"
)

// Status is the invoice status as carried by lifecycle events.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusPending Status = "pending"
	StatusDraft   Status = "draft"
	StatusVoid    Status = "void"
)

var knownStatuses = map[Status]struct{}{
	StatusPaid:    {},
	StatusPending: {},
	StatusDraft:   {},
	StatusVoid:    {},
}

// IsEligible reports whether an invoice with this status counts toward revenue.
// It is the only gate between an invoice and the bucket totals.
func IsEligible(s Status) bool {
	return s == StatusPaid || s == StatusPending
}

// ParseStatus normalizes case and whitespace and rejects statuses outside the known set.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownStatuses[st]; !ok {
		return "", fmt.Errorf("unknown invoice status %q", s)
	}
	return st, nil
}
