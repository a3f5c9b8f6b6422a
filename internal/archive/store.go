package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/or4cl3-ai-1/Chatron9/internal/ethics"
	"github.com/or4cl3-ai-1/Chatron9/internal/logging"
	"github.com/or4cl3-ai-1/Chatron9/internal/orchestrator"
	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS responses (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id     TEXT NOT NULL UNIQUE,
	selected_plan  TEXT NOT NULL,
	score          REAL NOT NULL,
	status         TEXT NOT NULL,
	fallback       INTEGER NOT NULL DEFAULT 0,
	request_json   TEXT NOT NULL,
	response_json  TEXT NOT NULL,
	created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id     TEXT NOT NULL,
	plan_id        TEXT NOT NULL,
	strategy       TEXT NOT NULL DEFAULT '',
	outcome        TEXT NOT NULL,
	comment        TEXT,
	affect_delta   REAL,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (request_id) REFERENCES responses(request_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_feedback_strategy ON feedback(strategy);
`
// #endregion schema

// halfLifeHours weights feedback in OutcomeStats.
const halfLifeHours = 7.0 * 24.0

// #region store-struct
// Store archives planning responses and feedback in SQLite. It implements
// orchestrator.Recorder.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ orchestrator.Recorder = (*Store)(nil)
// #endregion store-struct

// #region constructor
// Open opens a SQLite database and runs migrations. Use ":memory:" in tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// :memory: databases are per-connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if _, err := db.Exec(logging.ProvenanceSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate provenance: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion constructor

// #region record-response
// RecordResponse archives a response together with its provenance row.
func (s *Store) RecordResponse(ctx context.Context, req plan.PlanningRequest, resp plan.PlanningResponse, verdict ethics.Verdict) error {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	respJSON, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	signals, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}
	now := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO responses (request_id, selected_plan, score, status, fallback, request_json, response_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		resp.RequestID,
		resp.SelectedPlan.PlanID,
		resp.SelectedPlan.Score,
		string(resp.ExecutionStatus),
		boolToInt(verdict.Fallback),
		string(reqJSON),
		string(respJSON),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}

	decision := string(resp.ExecutionStatus)
	if verdict.Fallback {
		decision = "fallback"
	}
	err = logging.LogDecision(ctx, tx, logging.ProvenanceEntry{
		RequestID:   resp.RequestID,
		PlanID:      resp.SelectedPlan.PlanID,
		TriggerType: "plan",
		SignalsJSON: string(signals),
		Decision:    decision,
		Reason:      fmt.Sprintf("passed %d/%d constraints", verdict.Passed, verdict.Total),
		CreatedAt:   now,
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
// #endregion record-response

// #region record-feedback
// RecordFeedback stores a feedback row and its provenance row. The response
// must already be archived.
func (s *Store) RecordFeedback(ctx context.Context, rec orchestrator.FeedbackRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	created := rec.CreatedAt.UTC()

	var delta any
	if rec.Delta != nil {
		delta = *rec.Delta
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO feedback (request_id, plan_id, strategy, outcome, comment, affect_delta, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID,
		rec.PlanID,
		rec.Strategy,
		string(rec.Outcome),
		nullIfEmpty(rec.Comment),
		delta,
		created.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}

	err = logging.LogDecision(ctx, tx, logging.ProvenanceEntry{
		RequestID:   rec.RequestID,
		PlanID:      rec.PlanID,
		TriggerType: "feedback",
		Decision:    string(rec.Outcome),
		Reason:      rec.Comment,
		CreatedAt:   created,
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
// #endregion record-feedback

// #region get
// Get loads one archived response by request id.
func (s *Store) Get(ctx context.Context, requestID string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT request_id, fallback, request_json, response_json, created_at
		 FROM responses WHERE request_id = ?`, requestID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%s: %w", requestID, ErrNotFound)
	}
	return rec, err
}
// #endregion get

// #region recent
// Recent returns up to limit of the newest archived responses, oldest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT request_id, fallback, request_json, response_json, created_at
		 FROM responses ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}
// #endregion recent

// #region prune
// Prune keeps the newest retain responses and deletes the rest, together
// with their feedback and provenance rows. retain <= 0 keeps everything.
// It returns the number of responses deleted.
func (s *Store) Prune(ctx context.Context, retain int) (int64, error) {
	if retain <= 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM responses WHERE id NOT IN (
			SELECT id FROM responses ORDER BY id DESC LIMIT ?
		)`, retain)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM provenance_log
		 WHERE request_id NOT IN (SELECT request_id FROM responses)`); err != nil {
		return 0, fmt.Errorf("prune provenance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}
// #endregion prune

// #region outcome-stats
// OutcomeStats aggregates feedback per strategy, ordered by strategy name.
func (s *Store) OutcomeStats(ctx context.Context) ([]StrategyStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT strategy, outcome, affect_delta, created_at FROM feedback`)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	type accum struct {
		stats       StrategyStats
		deltaSum    float64
		deltaCount  int
		weightedSum float64
		totalWeight float64
	}

	now := s.now()
	byStrategy := make(map[string]*accum)

	for rows.Next() {
		var strategy, outcome, createdAtStr string
		var delta sql.NullFloat64
		if err := rows.Scan(&strategy, &outcome, &delta, &createdAtStr); err != nil {
			return nil, err
		}
		a, ok := byStrategy[strategy]
		if !ok {
			a = &accum{stats: StrategyStats{Strategy: strategy}}
			byStrategy[strategy] = a
		}

		var value float64
		switch plan.Outcome(outcome) {
		case plan.OutcomeSuccess:
			a.stats.Success++
			value = 1
		case plan.OutcomePartial:
			a.stats.Partial++
			value = 0.5
		case plan.OutcomeFailure:
			a.stats.Failure++
		default:
			continue
		}
		if delta.Valid {
			a.deltaSum += delta.Float64
			a.deltaCount++
		}

		createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
		if err != nil {
			continue
		}
		weight := math.Exp(-now.Sub(createdAt).Hours() / halfLifeHours)
		a.weightedSum += value * weight
		a.totalWeight += weight
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]StrategyStats, 0, len(byStrategy))
	for _, a := range byStrategy {
		if a.deltaCount > 0 {
			mean := a.deltaSum / float64(a.deltaCount)
			a.stats.MeanDelta = &mean
		}
		if a.totalWeight > 0 {
			a.stats.Weighted = a.weightedSum / a.totalWeight
		}
		out = append(out, a.stats)
	}
	slices.SortFunc(out, func(x, y StrategyStats) int {
		return strings.Compare(x.Strategy, y.Strategy)
	})
	return out, nil
}
// #endregion outcome-stats

// #region helpers
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var rec Record
	var fallback int
	var reqJSON, respJSON, createdAtStr string
	if err := sc.Scan(&rec.RequestID, &fallback, &reqJSON, &respJSON, &createdAtStr); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(reqJSON), &rec.Request); err != nil {
		return Record{}, fmt.Errorf("unmarshal request %s: %w", rec.RequestID, err)
	}
	if err := json.Unmarshal([]byte(respJSON), &rec.Response); err != nil {
		return Record{}, fmt.Errorf("unmarshal response %s: %w", rec.RequestID, err)
	}
	rec.Fallback = fallback != 0
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return Record{}, fmt.Errorf("parse created_at: %w", err)
	}
	rec.CreatedAt = createdAt
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
