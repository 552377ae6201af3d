package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"mfgstream/internal/model"
)

// ErrNotFound is returned by point queries when no row matches.
var ErrNotFound = errors.New("result not found")

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Counts is the aggregate view over all persisted results.
type Counts struct {
	Total     int64 `json:"total"`
	PassCount int64 `json:"pass_count"`
	FailCount int64 `json:"fail_count"`
}

// ResultStore persists evaluated test results and serves the reporting
// queries. The ingest pipeline is the only writer; rows are never updated
// or deleted.
type ResultStore struct {
	mgr    *DBManager
	logger *zap.SugaredLogger
}

func NewResultStore(mgr *DBManager, logger *zap.SugaredLogger) *ResultStore {
	return &ResultStore{mgr: mgr, logger: logger}
}

// EnsureSchema creates the results table if it does not exist yet.
// Idempotent, safe to run at every startup.
func (s *ResultStore) EnsureSchema(ctx context.Context) error {
	_, err := s.mgr.Pool().Exec(ctx, `
		CREATE TABLE IF NOT EXISTS test_results (
			id             BIGSERIAL PRIMARY KEY,
			barcode        TEXT NOT NULL,
			machine_id     TEXT NOT NULL,
			product_id     TEXT NOT NULL,
			measured_value DOUBLE PRECISION NOT NULL,
			status         TEXT NOT NULL CHECK (status IN ('PASS','FAIL')),
			timestamp      TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	_, err = s.mgr.Pool().Exec(ctx, `
		CREATE INDEX IF NOT EXISTS test_results_machine_ts_idx
			ON test_results (machine_id, timestamp DESC)
	`)
	if err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	return nil
}

// InsertResult writes one evaluated result in a single transaction and
// returns the stored row with its assigned id. Any failure is surfaced to
// the caller, which decides between requeue and drop.
func (s *ResultStore) InsertResult(ctx context.Context, r model.StoredResult) (model.StoredResult, error) {
	tx, err := s.mgr.Pool().Begin(ctx)
	if err != nil {
		return model.StoredResult{}, fmt.Errorf("begin insert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO test_results
			(barcode, machine_id, product_id, measured_value, status, timestamp)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, r.Barcode, r.MachineID, r.ProductID, r.MeasuredValue, string(r.Status), r.Timestamp).Scan(&r.ID)
	if err != nil {
		s.logger.Errorw("failed to insert test result", "error", err, "barcode", r.Barcode)
		return model.StoredResult{}, fmt.Errorf("insert result: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.StoredResult{}, fmt.Errorf("commit insert tx: %w", err)
	}
	return r, nil
}

// LatestByMachine returns the row with the maximum timestamp for the machine,
// or ErrNotFound when the machine has no recorded results.
func (s *ResultStore) LatestByMachine(ctx context.Context, machineID string) (model.StoredResult, error) {
	var r model.StoredResult
	err := s.mgr.Pool().QueryRow(ctx, `
		SELECT id, barcode, machine_id, product_id, measured_value, status, timestamp
		FROM test_results
		WHERE machine_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, machineID).Scan(&r.ID, &r.Barcode, &r.MachineID, &r.ProductID, &r.MeasuredValue, &r.Status, &r.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.StoredResult{}, ErrNotFound
	}
	if err != nil {
		return model.StoredResult{}, fmt.Errorf("latest by machine: %w", err)
	}
	return r, nil
}

// ListResults returns results ordered by timestamp descending with id
// descending as a stable tie-break. skip below zero is treated as zero;
// limit is clamped to maxListLimit and defaults when unset.
func (s *ResultStore) ListResults(ctx context.Context, skip, limit int) ([]model.StoredResult, error) {
	skip, limit = ClampPage(skip, limit)

	rows, err := s.mgr.Pool().Query(ctx, `
		SELECT id, barcode, machine_id, product_id, measured_value, status, timestamp
		FROM test_results
		ORDER BY timestamp DESC, id DESC
		OFFSET $1 LIMIT $2
	`, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	results := make([]model.StoredResult, 0, limit)
	for rows.Next() {
		var r model.StoredResult
		if err := rows.Scan(&r.ID, &r.Barcode, &r.MachineID, &r.ProductID, &r.MeasuredValue, &r.Status, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

// AggregateCounts computes total/pass/fail in one statement so the three
// numbers come from a single consistent read.
func (s *ResultStore) AggregateCounts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.mgr.Pool().QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'PASS'),
		       COUNT(*) FILTER (WHERE status = 'FAIL')
		FROM test_results
	`).Scan(&c.Total, &c.PassCount, &c.FailCount)
	if err != nil {
		return Counts{}, fmt.Errorf("aggregate counts: %w", err)
	}
	return c, nil
}

// ClampPage normalizes pagination arguments: negative skip becomes zero,
// limit defaults when unset and is capped to keep scans bounded.
func ClampPage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return skip, limit
}
