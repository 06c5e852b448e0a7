package postgres

// SQL for the revenue_buckets table and the processed-event ledger.

const (
	bucketColumns = `
			id, period, invoice_count, total_amount, total_paid_amount,
			total_pending_amount, calculation_source, last_event_id, created_at, updated_at`

	// queryFindBucketByPeriod reads a committed bucket without locking.
	queryFindBucketByPeriod = `
		SELECT` + bucketColumns + `
		FROM revenue_buckets
		WHERE period = $1
	`

	// queryFindBucketForUpdate locks the bucket row until the transaction ends.
	// All read-modify-write cycles on a bucket go through this lock.
	queryFindBucketForUpdate = `
		SELECT` + bucketColumns + `
		FROM revenue_buckets
		WHERE period = $1
		FOR UPDATE
	`

	// queryInsertBucketIfAbsent creates a zero bucket. A concurrent insert for the same
	// period blocks on the unique index and then does nothing.
	queryInsertBucketIfAbsent = `
		INSERT INTO revenue_buckets (
			id, period, invoice_count, total_amount, total_paid_amount,
			total_pending_amount, calculation_source, last_event_id, created_at, updated_at
		)
		VALUES ($1, $2, 0, 0, 0, 0, $3, '', $4, $4)
		ON CONFLICT (period) DO NOTHING
	`

	// queryUpdateBucket replaces every mutable field. The period is never written.
	queryUpdateBucket = `
		UPDATE revenue_buckets
		SET invoice_count        = $2,
		    total_amount         = $3,
		    total_paid_amount    = $4,
		    total_pending_amount = $5,
		    calculation_source   = $6,
		    last_event_id        = $7,
		    updated_at           = $8
		WHERE id = $1
		RETURNING` + bucketColumns + `
	`

	// queryRangeBuckets lists committed buckets in an inclusive period range.
	queryRangeBuckets = `
		SELECT` + bucketColumns + `
		FROM revenue_buckets
		WHERE period >= $1
		  AND period <= $2
		ORDER BY period ASC
	`

	// queryMarkEventProcessed inserts into the idempotency ledger.
	// ON CONFLICT DO NOTHING returns no rows (sql.ErrNoRows) for duplicates.
	queryMarkEventProcessed = `
		INSERT INTO processed_invoice_events (event_id, invoice_id, operation, processed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING event_id
	`
)
