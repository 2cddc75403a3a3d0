package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func TestSaveRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	now := time.Now()
	rec := RunRecord{
		ID:          "run-1",
		SessionID:   "sess-1",
		Request:     "Fetch the latest BBC headlines",
		Category:    "news_fetching",
		FinalAnswer: "Here they are",
		Status:      RunStatusDone,
		Iterations:  2,
		ToolsUsed:   []string{"fetch_bbc_headlines"},
		TokensUsed:  420,
		Cost:        0.0021,
		StartedAt:   now,
	}

	query := regexp.QuoteMeta(`
INSERT INTO runs (id, session_id, user_id, request, category, final_answer, status, iterations, hit_ceiling, tools_used, tokens_used, cost, error, started_at, finished_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`)
	mock.ExpectExec(query).
		WithArgs(rec.ID, rec.SessionID, nil, rec.Request, rec.Category, rec.FinalAnswer, rec.Status,
			rec.Iterations, rec.HitCeiling, sqlmock.AnyArg(), rec.TokensUsed, rec.Cost,
			nil, rec.StartedAt, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.SaveRun(context.Background(), rec); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveRunRequiresID(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	if err := st.SaveRun(context.Background(), RunRecord{}); err == nil {
		t.Fatal("expected error for missing run id")
	}
}

func TestGetRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	now := time.Now()
	cols := []string{"id", "session_id", "user_id", "request", "category", "final_answer", "status", "iterations", "hit_ceiling", "tools_used", "tokens_used", "cost", "error", "started_at", "finished_at"}

	query := regexp.QuoteMeta(`
SELECT id, session_id, user_id, request, category, final_answer, status, iterations, hit_ceiling, tools_used, tokens_used, cost, error, started_at, finished_at
FROM runs WHERE id=$1
`)
	mock.ExpectQuery(query).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("run-1", "sess-1", nil, "add 2 and 3", "mathematical", "5", RunStatusDone,
				1, false, pq.StringArray{"add"}, int64(120), 0.0004, nil, now, now))

	rec, ok, err := st.GetRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !ok {
		t.Fatal("expected run to exist")
	}
	if rec.FinalAnswer != "5" || rec.Iterations != 1 {
		t.Fatalf("rec = %+v", rec)
	}
	if len(rec.ToolsUsed) != 1 || rec.ToolsUsed[0] != "add" {
		t.Fatalf("tools used = %v", rec.ToolsUsed)
	}
	if rec.FinishedAt == nil {
		t.Fatal("finished_at not scanned")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetRunMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	cols := []string{"id", "session_id", "user_id", "request", "category", "final_answer", "status", "iterations", "hit_ceiling", "tools_used", "tokens_used", "cost", "error", "started_at", "finished_at"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM runs WHERE id=$1`)).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(cols))

	_, ok, err := st.GetRun(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if ok {
		t.Fatal("missing run reported as found")
	}
}

func TestListRunsBySession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	now := time.Now()
	cols := []string{"id", "session_id", "user_id", "request", "category", "final_answer", "status", "iterations", "hit_ceiling", "tools_used", "tokens_used", "cost", "error", "started_at", "finished_at"}

	query := regexp.QuoteMeta(`
SELECT id, session_id, user_id, request, category, final_answer, status, iterations, hit_ceiling, tools_used, tokens_used, cost, error, started_at, finished_at
FROM runs WHERE session_id=$1 ORDER BY started_at DESC LIMIT $2
`)
	mock.ExpectQuery(query).
		WithArgs("sess-1", 50).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("run-2", "sess-1", nil, "second", "general", "b", RunStatusDone, 1, false, pq.StringArray{}, int64(10), 0.0, nil, now, now).
			AddRow("run-1", "sess-1", nil, "first", "general", "a", RunStatusDone, 1, false, pq.StringArray{}, int64(10), 0.0, nil, now.Add(-time.Minute), now))

	runs, err := st.ListRunsBySession(context.Background(), "sess-1", 0)
	if err != nil {
		t.Fatalf("ListRunsBySession: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" {
		t.Fatalf("runs = %+v", runs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateUserAndLookup(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users (email, password_hash) VALUES ($1,$2)`)).
		WithArgs("a@b.c", "hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, password_hash FROM users WHERE email=$1`)).
		WithArgs("a@b.c").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}).AddRow("u-1", "hash"))

	if err := st.CreateUser(context.Background(), "a@b.c", "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	id, hash, err := st.GetUserByEmail(context.Background(), "a@b.c")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if id != "u-1" || hash != "hash" {
		t.Fatalf("got %q %q", id, hash)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
