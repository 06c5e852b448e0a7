package postgres

import (
	"fmt"
	"time"

	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanBucketRow scans one revenue_buckets row in bucketColumns order.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanBucketRow(row scanner) (revenue.Bucket, error) {
	var (
		b      revenue.Bucket
		period time.Time
		source string
	)

	err := row.Scan(
		&b.ID,
		&period,
		&b.InvoiceCount,
		&b.TotalAmount,
		&b.TotalPaidAmount,
		&b.TotalPendingAmount,
		&source,
		&b.LastEventID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return revenue.Bucket{}, err
	}

	b.Period = revenue.PeriodFor(period.UTC())
	b.CalculationSource = revenue.CalculationSource(source)
	return b, nil
}

func bucketRowError(op string, p revenue.Period, err error) error {
	return fmt.Errorf("%s (period=%s): %w", op, p, err)
}
