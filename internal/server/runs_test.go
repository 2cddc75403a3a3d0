package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/newsagent/internal/agent/core"
	"github.com/mohammad-safakhou/newsagent/internal/runtime"
	"github.com/mohammad-safakhou/newsagent/internal/store"
	"github.com/mohammad-safakhou/newsagent/models"
	"github.com/mohammad-safakhou/newsagent/session"
	"github.com/mohammad-safakhou/newsagent/session/session_object"
)

type stubAgent struct {
	result    core.RunResult
	err       error
	status    core.RunStatus
	statusErr error
	lastReq   core.Request
	calls     int
}

func (s *stubAgent) ProcessRequest(ctx context.Context, req core.Request) (core.RunResult, error) {
	s.calls++
	s.lastReq = req
	return s.result, s.err
}

func (s *stubAgent) GetStatus(runID string) (core.RunStatus, error) {
	return s.status, s.statusErr
}

func (s *stubAgent) PerformanceMetrics() map[string]interface{} {
	return map[string]interface{}{"total_runs": 3}
}

func newRunsHandler(agent *stubAgent, st *store.Store) *RunsHandler {
	return &RunsHandler{
		Agent:    agent,
		Sessions: session.NewStore(session.InMemoryStore),
		Store:    st,
		Logger:   log.New(io.Discard, "", 0),
	}
}

func TestCreateRunReturnsResult(t *testing.T) {
	e := echo.New()
	agent := &stubAgent{result: core.RunResult{
		ID:          "run-1",
		SessionID:   "sess-1",
		Request:     "What are the latest headlines?",
		Category:    "news_fetching",
		FinalAnswer: "Here are the latest headlines",
		Iterations:  2,
		ToolsUsed:   []string{"fetch_bbc_headlines"},
		Turns: []session_object.Turn{
			{ID: "t1", Iteration: 1, Action: "fetch_bbc_headlines", Result: "1. A", Success: true},
		},
	}}
	handler := newRunsHandler(agent, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{"session_id":"sess-1","content":"What are the latest headlines?"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := handler.create(ctx); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if agent.lastReq.SessionID != "sess-1" || agent.lastReq.Content != "What are the latest headlines?" {
		t.Fatalf("unexpected request passed to agent: %+v", agent.lastReq)
	}

	var resp core.RunResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.FinalAnswer != "Here are the latest headlines" || resp.Category != "news_fetching" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.Turns) != 1 || resp.Turns[0].Action != "fetch_bbc_headlines" {
		t.Fatalf("expected one turn in response, got %+v", resp.Turns)
	}
}

func TestCreateRunRequiresContent(t *testing.T) {
	e := echo.New()
	agent := &stubAgent{}
	handler := newRunsHandler(agent, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{"content":"   "}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	err := handler.create(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 error, got %#v", err)
	}
	if agent.calls != 0 {
		t.Fatalf("agent should not have been called, got %d calls", agent.calls)
	}
}

func TestCreateRunArchivesResult(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	agent := &stubAgent{result: core.RunResult{
		ID:             "run-1",
		SessionID:      "sess-1",
		Request:        "What are the latest headlines?",
		Category:       "news_fetching",
		FinalAnswer:    "Here are the latest headlines",
		Iterations:     2,
		ToolsUsed:      []string{"fetch_bbc_headlines"},
		TokensUsed:     777,
		CostEstimate:   0.0042,
		ProcessingTime: 3 * time.Second,
		CreatedAt:      created,
		Turns: []session_object.Turn{
			{ID: "t1", Iteration: 1, Category: "news_fetching", Action: "fetch_bbc_headlines", Args: []string{"5"}, Result: "1. A", Success: true, Duration: 120},
		},
	}}
	handler := newRunsHandler(agent, &store.Store{DB: db})

	insertRun := regexp.QuoteMeta(`
INSERT INTO runs (id, session_id, user_id, request, category, final_answer, status, iterations, hit_ceiling, tools_used, tokens_used, cost, error, started_at, finished_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`)
	mock.ExpectExec(insertRun).
		WithArgs("run-1", "sess-1", "user-9", "What are the latest headlines?", "news_fetching",
			"Here are the latest headlines", store.RunStatusDone, 2, false, sqlmock.AnyArg(),
			int64(777), 0.0042, nil, created.Add(-3*time.Second), created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	insertTurn := regexp.QuoteMeta(`
INSERT INTO turns (id, run_id, iteration, category, tool, args, result, success, duration_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`)
	mock.ExpectBegin()
	mock.ExpectExec(insertTurn).
		WithArgs("t1", "run-1", 1, "news_fetching", "fetch_bbc_headlines", []byte(`["5"]`), "1. A", true, int64(120)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{"content":"What are the latest headlines?"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(runtime.ContextWithSubject(req.Context(), "user-9"))
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := handler.create(ctx); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRunStatusLive(t *testing.T) {
	e := echo.New()
	agent := &stubAgent{status: core.RunStatus{
		RunID:         "run-1",
		SessionID:     "sess-1",
		State:         models.RunStateExecuting,
		Iteration:     2,
		MaxIterations: 5,
	}}
	handler := newRunsHandler(agent, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/run-1", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("run-1")

	if err := handler.status(ctx); err != nil {
		t.Fatalf("status: %v", err)
	}
	var resp core.RunStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.State != models.RunStateExecuting || resp.Iteration != 2 {
		t.Fatalf("unexpected status: %+v", resp)
	}
}

func TestRunStatusFallsBackToArchive(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	agent := &stubAgent{statusErr: models.ErrRunNotFound}
	handler := newRunsHandler(agent, &store.Store{DB: db})

	now := time.Now()
	cols := []string{"id", "session_id", "user_id", "request", "category", "final_answer", "status", "iterations", "hit_ceiling", "tools_used", "tokens_used", "cost", "error", "started_at", "finished_at"}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, session_id, user_id, request, category, final_answer, status, iterations, hit_ceiling, tools_used, tokens_used, cost, error, started_at, finished_at
FROM runs WHERE id=$1`)).
		WithArgs("run-7").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("run-7", "sess-1", nil, "add 2 and 3", "mathematical", "5", "done", 2, false, nil, int64(64), 0.0001, nil, now, now))

	req := httptest.NewRequest(http.MethodGet, "/api/runs/run-7", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("run-7")

	if err := handler.status(ctx); err != nil {
		t.Fatalf("status: %v", err)
	}
	var resp ArchivedRunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "run-7" || resp.FinalAnswer != "5" || resp.Status != "done" {
		t.Fatalf("unexpected archived run: %+v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRunStatusUnknown(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	agent := &stubAgent{statusErr: models.ErrRunNotFound}
	handler := newRunsHandler(agent, &store.Store{DB: db})

	cols := []string{"id", "session_id", "user_id", "request", "category", "final_answer", "status", "iterations", "hit_ceiling", "tools_used", "tokens_used", "cost", "error", "started_at", "finished_at"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM runs WHERE id=$1`)).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(cols))

	req := httptest.NewRequest(http.MethodGet, "/api/runs/nope", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("nope")

	err = handler.status(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 error, got %#v", err)
	}
}

func TestSessionStateExport(t *testing.T) {
	e := echo.New()
	handler := newRunsHandler(&stubAgent{}, nil)

	sess, err := handler.Sessions.EnsureSession("sess-9", time.Hour)
	if err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	sess.RecordRequest("What are the latest headlines?")
	if err := sess.AppendTurn(session_object.Turn{
		ID:       "t1",
		Request:  "What are the latest headlines?",
		Category: "news_fetching",
		Action:   "fetch_bbc_headlines",
		Args:     []string{"3"},
		Result:   "Top headlines: 1. Quake hits region",
		Success:  true,
		Duration: 80,
	}); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/sess-9", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("sess-9")

	if err := handler.session(ctx); err != nil {
		t.Fatalf("session: %v", err)
	}
	var state session_object.State
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if state.ID != "sess-9" || len(state.Turns) != 1 {
		t.Fatalf("unexpected state: %+v", state)
	}
	if state.LastResponse != "Top headlines: 1. Quake hits region" {
		t.Fatalf("unexpected last response: %q", state.LastResponse)
	}
}

func TestSessionStateUnknown(t *testing.T) {
	e := echo.New()
	handler := newRunsHandler(&stubAgent{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("missing")

	err := handler.session(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 error, got %#v", err)
	}
}

func TestSessionSearch(t *testing.T) {
	e := echo.New()
	handler := newRunsHandler(&stubAgent{}, nil)

	sess, err := handler.Sessions.EnsureSession("sess-9", time.Hour)
	if err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	turns := []session_object.Turn{
		{ID: "t1", Request: "latest news", Action: "fetch_bbc_headlines", Result: "Top headlines: quake hits region", Success: true},
		{ID: "t2", Request: "add numbers", Action: "add", Result: "7", Success: true},
	}
	for _, turn := range turns {
		if err := sess.AppendTurn(turn); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/sess-9/search?q=headlines&k=5", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("sess-9")

	if err := handler.search(ctx); err != nil {
		t.Fatalf("search: %v", err)
	}
	var resp struct {
		Query string                   `json:"query"`
		Hits  []session_object.TurnHit `json:"hits"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Query != "headlines" {
		t.Fatalf("unexpected query echo: %q", resp.Query)
	}
	if len(resp.Hits) == 0 || resp.Hits[0].TurnID != "t1" {
		t.Fatalf("expected t1 as top hit, got %+v", resp.Hits)
	}
}

func TestSessionSearchRequiresQuery(t *testing.T) {
	e := echo.New()
	handler := newRunsHandler(&stubAgent{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/sess-9/search", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("sess-9")

	err := handler.search(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 error, got %#v", err)
	}
}

func TestSessionRunsWithoutArchive(t *testing.T) {
	e := echo.New()
	handler := newRunsHandler(&stubAgent{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/sess-1/runs", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("sess-1")

	err := handler.sessionRuns(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501 error, got %#v", err)
	}
}

func TestSessionRunsFromArchive(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := newRunsHandler(&stubAgent{}, &store.Store{DB: db})

	now := time.Now()
	cols := []string{"id", "session_id", "user_id", "request", "category", "final_answer", "status", "iterations", "hit_ceiling", "tools_used", "tokens_used", "cost", "error", "started_at", "finished_at"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM runs WHERE session_id=$1 ORDER BY started_at DESC LIMIT $2`)).
		WithArgs("sess-1", 5).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("run-2", "sess-1", nil, "second", "general", "ok", "done", 1, false, nil, int64(10), 0.0, nil, now, now).
			AddRow("run-1", "sess-1", nil, "first", "general", "ok", "done", 1, false, nil, int64(10), 0.0, nil, now.Add(-time.Minute), now))

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/sess-1/runs?limit=5", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("sess-1")

	if err := handler.sessionRuns(ctx); err != nil {
		t.Fatalf("sessionRuns: %v", err)
	}
	var resp []ArchivedRunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 2 || resp[0].ID != "run-2" {
		t.Fatalf("unexpected archived runs: %+v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStatsIncludesArchive(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := newRunsHandler(&stubAgent{}, &store.Store{DB: db})

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT tool, COUNT(*), COUNT(*) FILTER (WHERE NOT success), COALESCE(AVG(duration_ms), 0)
FROM turns GROUP BY tool ORDER BY COUNT(*) DESC`)).
		WillReturnRows(sqlmock.NewRows([]string{"tool", "count", "failures", "avg"}).
			AddRow("fetch_bbc_headlines", int64(12), int64(1), 110.5))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := handler.stats(ctx); err != nil {
		t.Fatalf("stats: %v", err)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := resp["performance"]; !ok {
		t.Fatalf("expected performance metrics in %+v", resp)
	}
	if _, ok := resp["archive_tool_stats"]; !ok {
		t.Fatalf("expected archive tool stats in %+v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
