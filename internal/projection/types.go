package projection

import (
	"time"

	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
	"github.com/shopspring/decimal"
)

// RangeRequest is the query for GET /v1/revenue/buckets.
type RangeRequest struct {
	Start       string `form:"start" binding:"required"`
	End         string `form:"end" binding:"required"`
	Granularity string `form:"granularity"` // month (default), quarter, year, total
}

// BucketView is the read model of one monthly bucket.
type BucketView struct {
	Period             string    `json:"period"`
	InvoiceCount       int64     `json:"invoice_count"`
	TotalAmount        int64     `json:"total_amount"`
	TotalPaidAmount    int64     `json:"total_paid_amount"`
	TotalPendingAmount int64     `json:"total_pending_amount"`
	CalculationSource  string    `json:"calculation_source"`
	LastEventID        string    `json:"last_event_id,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// RollupValue sums the buckets of one window. WindowEnd is exclusive.
type RollupValue struct {
	WindowStart        string `json:"window_start"`
	WindowEnd          string `json:"window_end"`
	InvoiceCount       int64  `json:"invoice_count"`
	TotalAmount        int64  `json:"total_amount"`
	TotalPaidAmount    int64  `json:"total_paid_amount"`
	TotalPendingAmount int64  `json:"total_pending_amount"`
}

// Summary totals the whole range. CollectionRate is paid / total, zero for an empty range.
type Summary struct {
	Months             int             `json:"months"`
	MonthsWithRevenue  int             `json:"months_with_revenue"`
	InvoiceCount       int64           `json:"invoice_count"`
	TotalAmount        int64           `json:"total_amount"`
	TotalPaidAmount    int64           `json:"total_paid_amount"`
	TotalPendingAmount int64           `json:"total_pending_amount"`
	CollectionRate     decimal.Decimal `json:"collection_rate"`
}

// RangeResponse answers a range query. Months without a bucket are omitted from
// Buckets and count as zero in Values and Summary.
type RangeResponse struct {
	Start       string        `json:"start"`
	End         string        `json:"end"`
	Granularity string        `json:"granularity"`
	Buckets     []BucketView  `json:"buckets"`
	Values      []RollupValue `json:"values"`
	Summary     Summary       `json:"summary"`
}

func toView(b revenue.Bucket) BucketView {
	return BucketView{
		Period:             b.Period.String(),
		InvoiceCount:       b.InvoiceCount,
		TotalAmount:        b.TotalAmount,
		TotalPaidAmount:    b.TotalPaidAmount,
		TotalPendingAmount: b.TotalPendingAmount,
		CalculationSource:  string(b.CalculationSource),
		LastEventID:        b.LastEventID,
		UpdatedAt:          b.UpdatedAt,
	}
}
