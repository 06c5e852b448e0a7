package projection

import (
	"time"

	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
	"github.com/shopspring/decimal"
)

const (
	GranularityMonth   = "month"
	GranularityQuarter = "quarter"
	GranularityYear    = "year"
	GranularityTotal   = "total"
)

var validGranularities = map[string]struct{}{
	GranularityMonth:   {},
	GranularityQuarter: {},
	GranularityYear:    {},
	GranularityTotal:   {},
}

// windowStart returns the first month of the window containing p.
func windowStart(p revenue.Period, granularity string, rangeStart revenue.Period) revenue.Period {
	switch granularity {
	case GranularityQuarter:
		m := time.Month((int(p.Month())-1)/3*3 + 1)
		return revenue.PeriodFor(time.Date(p.Year(), m, 1, 0, 0, 0, 0, time.UTC))
	case GranularityYear:
		return revenue.PeriodFor(time.Date(p.Year(), time.January, 1, 0, 0, 0, 0, time.UTC))
	case GranularityTotal:
		return rangeStart
	default:
		return p
	}
}

func windowEnd(start revenue.Period, granularity string, rangeEnd revenue.Period) revenue.Period {
	switch granularity {
	case GranularityQuarter:
		return revenue.PeriodFor(start.Time().AddDate(0, 3, 0))
	case GranularityYear:
		return revenue.PeriodFor(start.Time().AddDate(1, 0, 0))
	case GranularityTotal:
		return rangeEnd.Next()
	default:
		return start.Next()
	}
}

// rollup groups buckets (sorted by period) into one value per window.
// Every window touched by [start, end] is present, even when empty.
func rollup(buckets []revenue.Bucket, granularity string, start, end revenue.Period) []RollupValue {
	var values []RollupValue
	index := make(map[revenue.Period]int)

	for p := start; !end.Before(p); p = p.Next() {
		ws := windowStart(p, granularity, start)
		if _, ok := index[ws]; ok {
			continue
		}
		index[ws] = len(values)
		values = append(values, RollupValue{
			WindowStart: ws.String(),
			WindowEnd:   windowEnd(ws, granularity, end).String(),
		})
	}

	for _, b := range buckets {
		i, ok := index[windowStart(b.Period, granularity, start)]
		if !ok {
			continue
		}
		v := &values[i]
		v.InvoiceCount += b.InvoiceCount
		v.TotalAmount += b.TotalAmount
		v.TotalPaidAmount += b.TotalPaidAmount
		v.TotalPendingAmount += b.TotalPendingAmount
	}
	return values
}

func summarize(buckets []revenue.Bucket, months int) Summary {
	s := Summary{Months: months, CollectionRate: decimal.Zero}
	for _, b := range buckets {
		if b.TotalAmount > 0 {
			s.MonthsWithRevenue++
		}
		s.InvoiceCount += b.InvoiceCount
		s.TotalAmount += b.TotalAmount
		s.TotalPaidAmount += b.TotalPaidAmount
		s.TotalPendingAmount += b.TotalPendingAmount
	}
	if s.TotalAmount > 0 {
		s.CollectionRate = decimal.NewFromInt(s.TotalPaidAmount).
			DivRound(decimal.NewFromInt(s.TotalAmount), 4)
	}
	return s
}

// monthsBetween counts the months in [start, end].
func monthsBetween(start, end revenue.Period) int {
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
}
