package revenue

// Outcome is the bucket value produced by a delta, plus the fields that had to be
// clamped at zero. A non-empty Clamped list means an upstream event was missed or
// duplicated; the bucket itself is still consistent.
type Outcome struct {
	Bucket  Bucket
	Clamped []string
}

const (
	fieldInvoiceCount = "invoice_count"
	fieldPaid         = "total_paid_amount"
	fieldPending      = "total_pending_amount"
	fieldTotal        = "total_amount"
)

// Add counts one more eligible invoice of amount under status.
func Add(b Bucket, amount int64, status Status) Outcome {
	out := clampCounter{}
	b.InvoiceCount++
	b = adjustSubtotal(b, status, amount, &out)
	b.TotalAmount += amount
	return out.finish(b)
}

// Remove is the mirror of Add, clamping every field at zero.
func Remove(b Bucket, amount int64, status Status) Outcome {
	out := clampCounter{}
	b.InvoiceCount = out.sub(fieldInvoiceCount, b.InvoiceCount, 1)
	b = adjustSubtotal(b, status, -amount, &out)
	b.TotalAmount -= amount
	return out.finish(b)
}

// MoveBetweenStatuses shifts amount from one sub-total to the other.
// Count and total are unchanged.
func MoveBetweenStatuses(b Bucket, amount int64, from, to Status) Outcome {
	out := clampCounter{}
	b = adjustSubtotal(b, from, -amount, &out)
	b = adjustSubtotal(b, to, amount, &out)
	return out.finish(b)
}

// ChangeAmount applies newAmount-oldAmount to the total and to status's sub-total.
func ChangeAmount(b Bucket, oldAmount, newAmount int64, status Status) Outcome {
	out := clampCounter{}
	delta := newAmount - oldAmount
	b = adjustSubtotal(b, status, delta, &out)
	b.TotalAmount += delta
	return out.finish(b)
}

// Then chains a second delta onto an outcome, accumulating clamps.
func (o Outcome) Then(next func(Bucket) Outcome) Outcome {
	n := next(o.Bucket)
	n.Clamped = append(append([]string(nil), o.Clamped...), n.Clamped...)
	return n
}

type clampCounter struct {
	clamped []string
}

func (c *clampCounter) sub(field string, value, delta int64) int64 {
	return c.add(field, value, -delta)
}

func (c *clampCounter) add(field string, value, delta int64) int64 {
	next := value + delta
	if next < 0 {
		c.clamped = append(c.clamped, field)
		return 0
	}
	return next
}

// finish re-derives the total from the sub-totals so paid+pending == total holds
// even after a sub-total was clamped.
func (c *clampCounter) finish(b Bucket) Outcome {
	derived := b.TotalPaidAmount + b.TotalPendingAmount
	if b.TotalAmount != derived {
		if b.TotalAmount < 0 {
			c.clamped = append(c.clamped, fieldTotal)
		}
		b.TotalAmount = derived
	}
	return Outcome{Bucket: b, Clamped: c.clamped}
}

func adjustSubtotal(b Bucket, status Status, delta int64, c *clampCounter) Bucket {
	switch status {
	case StatusPaid:
		b.TotalPaidAmount = c.add(fieldPaid, b.TotalPaidAmount, delta)
	case StatusPending:
		b.TotalPendingAmount = c.add(fieldPending, b.TotalPendingAmount, delta)
	}
	return b
}
