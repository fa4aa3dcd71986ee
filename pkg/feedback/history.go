package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// aggregateWindow bounds per-model aggregates to the most recent
// interactions, so old behavior ages out of the averages.
const aggregateWindow = 100

// History is the SQLite-backed interaction log queried for per-model and
// per-template aggregates.
type History struct {
	db *sql.DB
}

const historySchema = `
CREATE TABLE IF NOT EXISTS interactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	question_hash TEXT NOT NULL,
	template TEXT NOT NULL,
	model TEXT,
	complexity_level INTEGER NOT NULL,
	urgency TEXT NOT NULL,
	confidence REAL NOT NULL,
	passed INTEGER NOT NULL,
	cycles INTEGER NOT NULL,
	latency_ms INTEGER NOT NULL,
	cost REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interactions_model ON interactions(model, id);
CREATE INDEX IF NOT EXISTS idx_interactions_template ON interactions(template, id);
`

// OpenHistory opens (creating if needed) the history database at path.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &History{db: db}, nil
}

// Close releases the database handle.
func (h *History) Close() error {
	return h.db.Close()
}

// Record implements Recorder.
func (h *History) Record(ctx context.Context, rec *Record) error {
	passed := 0
	if rec.Passed {
		passed = 1
	}
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO interactions
			(run_id, created_at, question_hash, template, model,
			 complexity_level, urgency, confidence, passed, cycles, latency_ms, cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Timestamp.UTC(), rec.QuestionHash, rec.Template, rec.Model,
		rec.Profile.ComplexityLevel, rec.Profile.Urgency,
		rec.Confidence, passed, rec.Cycles, rec.LatencyMs, rec.Cost.Amount,
	)
	return err
}

// ModelAggregate summarizes the recent interactions answered by one model.
type ModelAggregate struct {
	Model         string
	Samples       int
	AvgConfidence float64
	SuccessRate   float64
	AvgLatency    time.Duration
}

// ModelAggregates computes per-model aggregates over each model's last
// aggregateWindow interactions.
func (h *History) ModelAggregates(ctx context.Context) ([]ModelAggregate, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT model,
		       COUNT(*),
		       AVG(confidence),
		       AVG(passed),
		       AVG(latency_ms)
		FROM (
			SELECT model, confidence, passed, latency_ms,
			       ROW_NUMBER() OVER (PARTITION BY model ORDER BY id DESC) AS rn
			FROM interactions
			WHERE model != ''
		)
		WHERE rn <= ?
		GROUP BY model
		ORDER BY model`, aggregateWindow)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aggs []ModelAggregate
	for rows.Next() {
		var a ModelAggregate
		var latencyMs float64
		if err := rows.Scan(&a.Model, &a.Samples, &a.AvgConfidence, &a.SuccessRate, &latencyMs); err != nil {
			return nil, err
		}
		a.AvgLatency = time.Duration(latencyMs) * time.Millisecond
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

// TemplateAggregate summarizes outcomes per route template.
type TemplateAggregate struct {
	Template      string
	Uses          int
	SuccessRate   float64
	AvgConfidence float64
	AvgCycles     float64
}

// TemplateAggregates computes per-template outcome aggregates.
func (h *History) TemplateAggregates(ctx context.Context) ([]TemplateAggregate, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT template, COUNT(*), AVG(passed), AVG(confidence), AVG(cycles)
		FROM interactions
		GROUP BY template
		ORDER BY template`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aggs []TemplateAggregate
	for rows.Next() {
		var a TemplateAggregate
		if err := rows.Scan(&a.Template, &a.Uses, &a.SuccessRate, &a.AvgConfidence, &a.AvgCycles); err != nil {
			return nil, err
		}
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

// RecentRun is one row of the recent-interactions listing.
type RecentRun struct {
	RunID      string
	CreatedAt  time.Time
	Template   string
	Model      string
	Confidence float64
	Passed     bool
	LatencyMs  int64
}

// Recent lists the newest interactions, most recent first.
func (h *History) Recent(ctx context.Context, limit int) ([]RecentRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT run_id, created_at, template, model, confidence, passed, latency_ms
		FROM interactions
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RecentRun
	for rows.Next() {
		var r RecentRun
		var passed int
		if err := rows.Scan(&r.RunID, &r.CreatedAt, &r.Template, &r.Model, &r.Confidence, &passed, &r.LatencyMs); err != nil {
			return nil, err
		}
		r.Passed = passed != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
