package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lib/pq"
)

// Store archives completed agent runs in Postgres. The agent loop itself
// never touches it; the API server writes here once a run has finished so
// session history survives process restarts.
type Store struct {
	DB *sql.DB
}

// Run statuses persisted in the archive.
const (
	RunStatusDone   = "done"
	RunStatusFailed = "failed"
)

// New connects using DATABASE_URL or the POSTGRES_* environment variables.
func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// User operations
func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, hash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

// RunRecord is the archived form of one completed run.
type RunRecord struct {
	ID          string
	SessionID   string
	UserID      *string
	Request     string
	Category    string
	FinalAnswer string
	Status      string
	Iterations  int
	HitCeiling  bool
	ToolsUsed   []string
	TokensUsed  int64
	Cost        float64
	Error       *string
	StartedAt   time.Time
	FinishedAt  *time.Time
}

func (s *Store) SaveRun(ctx context.Context, rec RunRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("run id must be provided")
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO runs (id, session_id, user_id, request, category, final_answer, status, iterations, hit_ceiling, tools_used, tokens_used, cost, error, started_at, finished_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`, rec.ID, rec.SessionID, rec.UserID, rec.Request, rec.Category, rec.FinalAnswer, rec.Status,
		rec.Iterations, rec.HitCeiling, pq.Array(rec.ToolsUsed), rec.TokensUsed, rec.Cost,
		rec.Error, rec.StartedAt, rec.FinishedAt)
	return err
}

func (s *Store) GetRun(ctx context.Context, id string) (RunRecord, bool, error) {
	var rec RunRecord
	err := s.DB.QueryRowContext(ctx, `
SELECT id, session_id, user_id, request, category, final_answer, status, iterations, hit_ceiling, tools_used, tokens_used, cost, error, started_at, finished_at
FROM runs WHERE id=$1
`, id).Scan(&rec.ID, &rec.SessionID, &rec.UserID, &rec.Request, &rec.Category, &rec.FinalAnswer, &rec.Status,
		&rec.Iterations, &rec.HitCeiling, pq.Array(&rec.ToolsUsed), &rec.TokensUsed, &rec.Cost,
		&rec.Error, &rec.StartedAt, &rec.FinishedAt)
	if err == sql.ErrNoRows {
		return RunRecord{}, false, nil
	}
	if err != nil {
		return RunRecord{}, false, err
	}
	return rec, true, nil
}

func (s *Store) ListRunsBySession(ctx context.Context, sessionID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, session_id, user_id, request, category, final_answer, status, iterations, hit_ceiling, tools_used, tokens_used, cost, error, started_at, finished_at
FROM runs WHERE session_id=$1 ORDER BY started_at DESC LIMIT $2
`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	return scanRuns(rows)
}

func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, session_id, user_id, request, category, final_answer, status, iterations, hit_ceiling, tools_used, tokens_used, cost, error, started_at, finished_at
FROM runs ORDER BY started_at DESC LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]RunRecord, error) {
	defer rows.Close()
	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.UserID, &rec.Request, &rec.Category, &rec.FinalAnswer, &rec.Status,
			&rec.Iterations, &rec.HitCeiling, pq.Array(&rec.ToolsUsed), &rec.TokensUsed, &rec.Cost,
			&rec.Error, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TurnRecord is one archived dispatch attempt inside a run.
type TurnRecord struct {
	ID         string
	RunID      string
	Iteration  int
	Category   string
	Tool       string
	Args       []string
	Result     string
	Success    bool
	DurationMS int64
	CreatedAt  time.Time
}

// SaveTurns writes all turns of a run in one transaction.
func (s *Store) SaveTurns(ctx context.Context, runID string, turns []TurnRecord) error {
	if len(turns) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, t := range turns {
		args, err := json.Marshal(t.Args)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("marshal turn args: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO turns (id, run_id, iteration, category, tool, args, result, success, duration_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, t.ID, runID, t.Iteration, t.Category, t.Tool, args, t.Result, t.Success, t.DurationMS); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListTurnsByRun(ctx context.Context, runID string) ([]TurnRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, run_id, iteration, category, tool, args, result, success, duration_ms, created_at
FROM turns WHERE run_id=$1 ORDER BY iteration ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TurnRecord
	for rows.Next() {
		var t TurnRecord
		var args []byte
		if err := rows.Scan(&t.ID, &t.RunID, &t.Iteration, &t.Category, &t.Tool, &args, &t.Result, &t.Success, &t.DurationMS, &t.CreatedAt); err != nil {
			return nil, err
		}
		if len(args) > 0 {
			if err := json.Unmarshal(args, &t.Args); err != nil {
				return nil, fmt.Errorf("unmarshal turn args: %w", err)
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ToolStat aggregates archived dispatches for one tool.
type ToolStat struct {
	Tool     string
	Calls    int64
	Failures int64
	AvgMS    float64
}

func (s *Store) ToolStats(ctx context.Context) ([]ToolStat, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT tool, COUNT(*), COUNT(*) FILTER (WHERE NOT success), COALESCE(AVG(duration_ms), 0)
FROM turns GROUP BY tool ORDER BY COUNT(*) DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ToolStat
	for rows.Next() {
		var st ToolStat
		if err := rows.Scan(&st.Tool, &st.Calls, &st.Failures, &st.AvgMS); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
