// Package seed imports opening revenue balances from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
	"github.com/aevon-lab/revenue-engine/internal/core/storage"
	"gopkg.in/yaml.v3"
)

// File is the seed document:
//
//	buckets:
//	  - period: "2025-01"
//	    invoice_count: 12
//	    paid: 480000
//	    pending: 35000
type File struct {
	Buckets []Entry `yaml:"buckets"`
}

// Entry is one opening balance in minor units.
type Entry struct {
	Period       string `yaml:"period"`
	InvoiceCount int64  `yaml:"invoice_count"`
	Paid         int64  `yaml:"paid"`
	Pending      int64  `yaml:"pending"`
}

// Result counts what Apply did.
type Result struct {
	Created int
	Skipped int
}

// LoadFile reads and validates a seed file.
func LoadFile(path string) ([]revenue.Bucket, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a seed document into buckets tagged with the seed source.
func Load(r io.Reader) ([]revenue.Bucket, error) {
	var doc File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	seen := make(map[revenue.Period]struct{}, len(doc.Buckets))
	buckets := make([]revenue.Bucket, 0, len(doc.Buckets))
	for i, e := range doc.Buckets {
		p, err := revenue.ParsePeriod(e.Period)
		if err != nil {
			return nil, fmt.Errorf("buckets[%d]: %w", i, err)
		}
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("buckets[%d]: period %s listed twice", i, p)
		}
		seen[p] = struct{}{}

		if e.InvoiceCount < 0 || e.Paid < 0 || e.Pending < 0 {
			return nil, fmt.Errorf("buckets[%d]: invoice_count, paid and pending must not be negative", i)
		}

		buckets = append(buckets, revenue.Bucket{
			Period:             p,
			InvoiceCount:       e.InvoiceCount,
			TotalAmount:        e.Paid + e.Pending,
			TotalPaidAmount:    e.Paid,
			TotalPendingAmount: e.Pending,
			CalculationSource:  revenue.SourceSeed,
		})
	}
	return buckets, nil
}

// Apply writes each seed bucket whose period has no bucket yet. Existing
// buckets, seeded or event-derived, are never overwritten.
func Apply(ctx context.Context, store storage.BucketStore, buckets []revenue.Bucket) (Result, error) {
	var res Result
	for _, seed := range buckets {
		created := false
		err := store.WithinTx(ctx, func(ctx context.Context, tx storage.BucketTx) error {
			if _, err := tx.FindByPeriodForUpdate(ctx, seed.Period); err == nil {
				return nil
			} else if !errors.Is(err, storage.ErrNotFound) {
				return err
			}

			b, err := tx.UpsertIfAbsent(ctx, seed.Period, revenue.SourceSeed)
			if err != nil {
				return err
			}
			if !isFresh(b) {
				return nil
			}

			seed.ID = b.ID
			if _, err := tx.Update(ctx, seed); err != nil {
				return err
			}
			created = true
			return nil
		})
		if err != nil {
			return res, fmt.Errorf("seed bucket %s: %w", seed.Period, err)
		}

		if created {
			res.Created++
			slog.Info("[Seed] Opening balance imported",
				"period", seed.Period,
				"invoice_count", seed.InvoiceCount,
				"total_amount", seed.TotalAmount)
		} else {
			res.Skipped++
			slog.Info("[Seed] Bucket already exists, skipping", "period", seed.Period)
		}
	}
	return res, nil
}

// isFresh reports whether b is the zero row this import just inserted.
func isFresh(b revenue.Bucket) bool {
	return b.CalculationSource == revenue.SourceSeed &&
		b.LastEventID == "" &&
		b.InvoiceCount == 0 &&
		b.TotalAmount == 0
}
