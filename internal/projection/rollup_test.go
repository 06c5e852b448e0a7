package projection

import (
	"testing"

	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollup_Month(t *testing.T) {
	start, end := revenue.MustParsePeriod("2024-11"), revenue.MustParsePeriod("2025-01")
	values := rollup([]revenue.Bucket{bucket("2024-12", 1, 100, 0)}, GranularityMonth, start, end)

	require.Len(t, values, 3)
	assert.Equal(t, "2024-11-01", values[0].WindowStart)
	assert.Equal(t, "2024-12-01", values[0].WindowEnd)
	assert.Equal(t, int64(0), values[0].TotalAmount)
	assert.Equal(t, int64(100), values[1].TotalAmount)
	assert.Equal(t, "2025-02-01", values[2].WindowEnd)
}

func TestRollup_YearSpansPartialYears(t *testing.T) {
	start, end := revenue.MustParsePeriod("2024-11"), revenue.MustParsePeriod("2025-02")
	values := rollup([]revenue.Bucket{
		bucket("2024-11", 1, 100, 0),
		bucket("2025-02", 2, 0, 300),
	}, GranularityYear, start, end)

	require.Len(t, values, 2)
	assert.Equal(t, "2024-01-01", values[0].WindowStart)
	assert.Equal(t, "2025-01-01", values[0].WindowEnd)
	assert.Equal(t, int64(100), values[0].TotalAmount)
	assert.Equal(t, int64(300), values[1].TotalPendingAmount)
}

func TestRollup_Total(t *testing.T) {
	start, end := revenue.MustParsePeriod("2025-01"), revenue.MustParsePeriod("2025-03")
	values := rollup([]revenue.Bucket{
		bucket("2025-01", 1, 100, 0),
		bucket("2025-03", 1, 50, 25),
	}, GranularityTotal, start, end)

	require.Len(t, values, 1)
	assert.Equal(t, RollupValue{
		WindowStart: "2025-01-01", WindowEnd: "2025-04-01",
		InvoiceCount: 2, TotalAmount: 175, TotalPaidAmount: 150, TotalPendingAmount: 25,
	}, values[0])
}

func TestSummarize_Empty(t *testing.T) {
	s := summarize(nil, 3)
	assert.Equal(t, 3, s.Months)
	assert.True(t, s.CollectionRate.IsZero())
}

func TestMonthsBetween(t *testing.T) {
	assert.Equal(t, 1, monthsBetween(revenue.MustParsePeriod("2025-03"), revenue.MustParsePeriod("2025-03")))
	assert.Equal(t, 14, monthsBetween(revenue.MustParsePeriod("2024-12"), revenue.MustParsePeriod("2026-01")))
}
