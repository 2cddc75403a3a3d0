package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/newsagent/internal/agent/core"
	"github.com/mohammad-safakhou/newsagent/internal/runtime"
	"github.com/mohammad-safakhou/newsagent/internal/store"
	"github.com/mohammad-safakhou/newsagent/models"
	"github.com/mohammad-safakhou/newsagent/repository"
	"github.com/mohammad-safakhou/newsagent/session"
)

// Agent is the slice of the orchestrator the HTTP layer depends on.
type Agent interface {
	ProcessRequest(ctx context.Context, req core.Request) (core.RunResult, error)
	GetStatus(runID string) (core.RunStatus, error)
	PerformanceMetrics() map[string]interface{}
}

// RunsHandler exposes the agent loop plus session state over HTTP. Store and
// Snapshots are optional; when unset the corresponding persistence step is
// skipped.
type RunsHandler struct {
	Agent     Agent
	Sessions  session.Store
	Store     *store.Store
	Snapshots repository.SessionRepository
	Logger    *log.Logger
}

func (h *RunsHandler) Register(api *echo.Group, secret []byte) {
	runs := api.Group("/runs")
	sessions := api.Group("/sessions")
	stats := api.Group("/stats")
	if len(secret) > 0 {
		runs.Use(runtime.EchoAuthMiddleware(secret))
		sessions.Use(runtime.EchoAuthMiddleware(secret))
		stats.Use(runtime.EchoAuthMiddleware(secret))
	}
	runs.POST("", h.create)
	runs.GET("/:id", h.status)
	sessions.GET("/:id", h.session)
	sessions.GET("/:id/search", h.search)
	sessions.GET("/:id/runs", h.sessionRuns)
	stats.GET("", h.stats)
}

// create runs one request through the loop synchronously and returns the
// full result including per-iteration turns.
func (h *RunsHandler) create(c echo.Context) error {
	var req CreateRunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	result, err := h.Agent.ProcessRequest(c.Request().Context(), core.Request{
		SessionID: req.SessionID,
		Content:   req.Content,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.archive(c.Request().Context(), result)
	h.snapshot(c.Request().Context(), result.SessionID)
	return c.JSON(http.StatusOK, result)
}

func (h *RunsHandler) status(c echo.Context) error {
	id := c.Param("id")
	st, err := h.Agent.GetStatus(id)
	if err == nil {
		return c.JSON(http.StatusOK, st)
	}
	if !errors.Is(err, models.ErrRunNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if h.Store != nil {
		rec, ok, err := h.Store.GetRun(c.Request().Context(), id)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if ok {
			return c.JSON(http.StatusOK, archivedRun(rec))
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "run not found")
}

func (h *RunsHandler) session(c echo.Context) error {
	sess, err := h.Sessions.GetSession(c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sess.ExportState())
}

func (h *RunsHandler) search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}
	k := 0
	if raw := c.QueryParam("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "k must be an integer")
		}
		k = n
	}
	sess, err := h.Sessions.GetSession(c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	hits, err := sess.SearchTurns(q, k)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, SearchResponse{Query: q, Hits: hits})
}

func (h *RunsHandler) sessionRuns(c echo.Context) error {
	if h.Store == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "run archive not configured")
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = n
	}
	recs, err := h.Store.ListRunsBySession(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]ArchivedRunResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, archivedRun(rec))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RunsHandler) stats(c echo.Context) error {
	out := map[string]interface{}{
		"performance": h.Agent.PerformanceMetrics(),
	}
	if h.Store != nil {
		stats, err := h.Store.ToolStats(c.Request().Context())
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		out["archive_tool_stats"] = stats
	}
	return c.JSON(http.StatusOK, out)
}

// archive persists the finished run. Failures are logged, never surfaced:
// the run itself already succeeded.
func (h *RunsHandler) archive(ctx context.Context, res core.RunResult) {
	if h.Store == nil {
		return
	}
	finished := res.CreatedAt
	rec := store.RunRecord{
		ID:          res.ID,
		SessionID:   res.SessionID,
		Request:     res.Request,
		Category:    res.Category,
		FinalAnswer: res.FinalAnswer,
		Status:      store.RunStatusDone,
		Iterations:  res.Iterations,
		HitCeiling:  res.HitCeiling,
		ToolsUsed:   res.ToolsUsed,
		TokensUsed:  res.TokensUsed,
		Cost:        res.CostEstimate,
		StartedAt:   res.CreatedAt.Add(-res.ProcessingTime),
		FinishedAt:  &finished,
	}
	if sub, ok := runtime.SubjectFromContext(ctx); ok {
		rec.UserID = &sub
	}
	if err := h.Store.SaveRun(ctx, rec); err != nil {
		h.Logger.Printf("warn: archiving run %s failed: %v", res.ID, err)
		return
	}
	turns := make([]store.TurnRecord, 0, len(res.Turns))
	for _, t := range res.Turns {
		turns = append(turns, store.TurnRecord{
			ID:         t.ID,
			RunID:      res.ID,
			Iteration:  t.Iteration,
			Category:   t.Category,
			Tool:       t.Action,
			Args:       t.Args,
			Result:     t.Result,
			Success:    t.Success,
			DurationMS: t.Duration,
		})
	}
	if err := h.Store.SaveTurns(ctx, res.ID, turns); err != nil {
		h.Logger.Printf("warn: archiving turns for run %s failed: %v", res.ID, err)
	}
}

func (h *RunsHandler) snapshot(ctx context.Context, sessionID string) {
	if h.Snapshots == nil {
		return
	}
	sess, err := h.Sessions.GetSession(sessionID)
	if err != nil {
		h.Logger.Printf("warn: loading session %s for snapshot failed: %v", sessionID, err)
		return
	}
	if err := h.Snapshots.SaveState(ctx, sess.ExportState()); err != nil {
		h.Logger.Printf("warn: snapshotting session %s failed: %v", sessionID, err)
	}
}

func archivedRun(rec store.RunRecord) ArchivedRunResponse {
	return ArchivedRunResponse{
		ID:          rec.ID,
		SessionID:   rec.SessionID,
		Request:     rec.Request,
		Category:    rec.Category,
		FinalAnswer: rec.FinalAnswer,
		Status:      rec.Status,
		Iterations:  rec.Iterations,
		HitCeiling:  rec.HitCeiling,
		ToolsUsed:   rec.ToolsUsed,
		TokensUsed:  rec.TokensUsed,
		Cost:        rec.Cost,
		Error:       rec.Error,
		StartedAt:   rec.StartedAt,
		FinishedAt:  rec.FinishedAt,
	}
}
