// Package projection serves read-only views of revenue buckets.
package projection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
	"github.com/aevon-lab/revenue-engine/internal/core/storage"
	"golang.org/x/sync/singleflight"
)

const (
	defaultMaxRangeMonths = 240

	// rangeQueryTimeout bounds a shared range read, which outlives any single caller.
	rangeQueryTimeout = 10 * time.Second
)

// ErrInvalidQuery marks request validation errors that should return HTTP 400.
var ErrInvalidQuery = errors.New("invalid revenue query")

// Service reads committed buckets. Identical concurrent range queries share
// one store read.
type Service struct {
	reader         storage.BucketReader
	group          singleflight.Group
	maxRangeMonths int
}

func NewService(reader storage.BucketReader) *Service {
	return &Service{reader: reader, maxRangeMonths: defaultMaxRangeMonths}
}

// GetBucket returns the bucket for a "YYYY-MM" or first-of-month period.
// A period with no bucket yields storage.ErrNotFound.
func (s *Service) GetBucket(ctx context.Context, rawPeriod string) (*BucketView, error) {
	p, err := revenue.ParsePeriod(strings.TrimSpace(rawPeriod))
	if err != nil {
		return nil, invalidQueryf("period: %v", err)
	}

	b, err := s.reader.FindByPeriod(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("find bucket %s: %w", p, err)
	}
	view := toView(b)
	return &view, nil
}

// QueryRange returns buckets for the inclusive month range with rollups and a summary.
func (s *Service) QueryRange(ctx context.Context, req RangeRequest) (*RangeResponse, error) {
	start, end, granularity, err := s.normalizeAndValidate(req)
	if err != nil {
		return nil, err
	}

	// The read runs detached from the caller that started it, so one cancelled
	// request does not fail every caller sharing the flight.
	key := start.String() + "|" + end.String() + "|" + granularity
	flight := s.group.DoChan(key, func() (interface{}, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rangeQueryTimeout)
		defer cancel()
		return s.queryRange(qctx, start, end, granularity)
	})

	select {
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			// Shared results are read-only; hand each caller its own copy of the slices.
			return cloneResponse(res.Val.(*RangeResponse)), nil
		}
		return res.Val.(*RangeResponse), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("query bucket range: %w", ctx.Err())
	}
}

func (s *Service) queryRange(ctx context.Context, start, end revenue.Period, granularity string) (*RangeResponse, error) {
	buckets, err := s.reader.QueryRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("query bucket range: %w", err)
	}

	views := make([]BucketView, 0, len(buckets))
	for _, b := range buckets {
		views = append(views, toView(b))
	}

	return &RangeResponse{
		Start:       start.String(),
		End:         end.String(),
		Granularity: granularity,
		Buckets:     views,
		Values:      rollup(buckets, granularity, start, end),
		Summary:     summarize(buckets, monthsBetween(start, end)),
	}, nil
}

func (s *Service) normalizeAndValidate(req RangeRequest) (revenue.Period, revenue.Period, string, error) {
	start, err := revenue.ParsePeriod(strings.TrimSpace(req.Start))
	if err != nil {
		return revenue.Period{}, revenue.Period{}, "", invalidQueryf("start: %v", err)
	}
	end, err := revenue.ParsePeriod(strings.TrimSpace(req.End))
	if err != nil {
		return revenue.Period{}, revenue.Period{}, "", invalidQueryf("end: %v", err)
	}
	if end.Before(start) {
		return revenue.Period{}, revenue.Period{}, "", invalidQueryf("end %s is before start %s", end, start)
	}
	if n := monthsBetween(start, end); n > s.maxRangeMonths {
		return revenue.Period{}, revenue.Period{}, "", invalidQueryf("range spans %d months, max is %d", n, s.maxRangeMonths)
	}

	granularity := strings.ToLower(strings.TrimSpace(req.Granularity))
	if granularity == "" {
		granularity = GranularityMonth
	}
	if _, ok := validGranularities[granularity]; !ok {
		return revenue.Period{}, revenue.Period{}, "", invalidQueryf("unsupported granularity %q", req.Granularity)
	}
	return start, end, granularity, nil
}

func cloneResponse(r *RangeResponse) *RangeResponse {
	c := *r
	c.Buckets = append([]BucketView(nil), r.Buckets...)
	c.Values = append([]RollupValue(nil), r.Values...)
	return &c
}

func invalidQueryf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
