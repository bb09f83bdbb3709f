// Package repositories holds SQL access to the decision store.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

// DecisionRepository persists learning decisions for audit and cost
// reporting.
type DecisionRepository struct {
	db *sql.DB
}

// NewDecisionRepository wraps a connected pool.
func NewDecisionRepository(db *sql.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Save inserts one decision.  Decisions are immutable; a duplicate ID is a
// conflict, not an upsert.
func (r *DecisionRepository) Save(ctx context.Context, d policy.LearningDecision) error {
	if err := d.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid learning decision")
	}

	const q = `
		INSERT INTO learning_decisions
			(id, document_id, strategy, similarity, reason,
			 chunks_total, chunks_reused, cost_saving, fallback,
			 duration_ms, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, q,
		d.ID, d.DocumentID, string(d.Strategy), d.Similarity, d.Reason,
		d.ChunksTotal, d.ChunksReused, d.CostSaving, d.Fallback,
		d.Duration.Milliseconds(), d.DecidedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDecisionStoreFailed, "insert learning decision")
	}
	return nil
}

// ListByDocument returns a document's decisions, newest first.
func (r *DecisionRepository) ListByDocument(ctx context.Context, documentID string) ([]policy.LearningDecision, error) {
	const q = `
		SELECT id, document_id, strategy, similarity, reason,
		       chunks_total, chunks_reused, cost_saving, fallback,
		       duration_ms, decided_at
		FROM learning_decisions
		WHERE document_id = $1
		ORDER BY decided_at DESC`

	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "query learning decisions")
	}
	defer rows.Close()

	var decisions []policy.LearningDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterate learning decisions")
	}
	return decisions, nil
}

// StrategyStats is the per-strategy aggregate the stats report shows.
type StrategyStats struct {
	Strategy      policy.Strategy
	Decisions     int64
	Fallbacks     int64
	AvgCostSaving float64
	AvgDurationMS float64
}

// StatsSince aggregates decisions made at or after the cutoff, grouped by
// strategy in ladder order.
func (r *DecisionRepository) StatsSince(ctx context.Context, cutoff time.Time) ([]StrategyStats, error) {
	const q = `
		SELECT strategy,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE fallback),
		       COALESCE(AVG(cost_saving), 0),
		       COALESCE(AVG(duration_ms), 0)
		FROM learning_decisions
		WHERE decided_at >= $1
		GROUP BY strategy
		ORDER BY CASE strategy
			WHEN 'TEMPLATE' THEN 0
			WHEN 'INCREMENTAL' THEN 1
			WHEN 'CHUNKING' THEN 2
			ELSE 3 END`

	rows, err := r.db.QueryContext(ctx, q, cutoff)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "query decision stats")
	}
	defer rows.Close()

	var stats []StrategyStats
	for rows.Next() {
		var s StrategyStats
		var strategy string
		if err := rows.Scan(&strategy, &s.Decisions, &s.Fallbacks,
			&s.AvgCostSaving, &s.AvgDurationMS); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scan decision stats")
		}
		s.Strategy = policy.Strategy(strategy)
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterate decision stats")
	}
	return stats, nil
}

func scanDecision(rows *sql.Rows) (policy.LearningDecision, error) {
	var (
		d          policy.LearningDecision
		strategy   string
		durationMS int64
	)
	if err := rows.Scan(&d.ID, &d.DocumentID, &strategy, &d.Similarity, &d.Reason,
		&d.ChunksTotal, &d.ChunksReused, &d.CostSaving, &d.Fallback,
		&durationMS, &d.DecidedAt); err != nil {
		return policy.LearningDecision{}, errors.Wrap(err, errors.ErrCodeDatabaseError, "scan learning decision")
	}
	d.Strategy = policy.Strategy(strategy)
	d.Duration = time.Duration(durationMS) * time.Millisecond
	return d, nil
}
