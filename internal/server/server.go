package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mohammad-safakhou/newsagent/config"
	"github.com/mohammad-safakhou/newsagent/internal/agent/core"
	"github.com/mohammad-safakhou/newsagent/internal/agent/telemetry"
	"github.com/mohammad-safakhou/newsagent/internal/runtime"
	"github.com/mohammad-safakhou/newsagent/internal/store"
	"github.com/mohammad-safakhou/newsagent/repository"
	"github.com/mohammad-safakhou/newsagent/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run wires the full HTTP API and blocks serving it.
func Run(cfg *config.Config, addr string) error {
	e := newEcho()
	ctx := context.Background()

	telem := telemetry.NewTelemetry(cfg.Telemetry)
	sessions := session.NewStore(session.StoreType(cfg.Storage.Session.Type))
	orchLogger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	orch, err := core.NewOrchestrator(cfg, orchLogger, telem, sessions)
	if err != nil {
		return fmt.Errorf("building orchestrator: %w", err)
	}

	var st *store.Store
	if cfg.Storage.Session.ArchiveEnabled || cfg.Server.AuthEnabled {
		dsn, err := cfg.Storage.Postgres.DSN()
		if err != nil {
			return err
		}
		st, err = store.NewWithDSN(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connecting postgres: %w", err)
		}
	}

	var snapshots repository.SessionRepository
	if cfg.Storage.Session.SnapshotsEnabled {
		snapshots, err = repository.NewSessionRepository(ctx, repository.RepoTypeRedis, repository.RedisOptions{
			Host:     cfg.Storage.Redis.Host,
			Port:     cfg.Storage.Redis.Port,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			Timeout:  cfg.Storage.Redis.Timeout,
		})
		if err != nil {
			return fmt.Errorf("connecting redis: %w", err)
		}
	}

	api := e.Group("/api")

	var secret []byte
	if cfg.Server.AuthEnabled {
		secret, err = runtime.LoadJWTSecret(cfg)
		if err != nil {
			return err
		}
		auth := &AuthHandler{Store: st, Secret: secret}
		auth.Register(api.Group("/auth"))

		me := api.Group("/me")
		me.Use(runtime.EchoAuthMiddleware(secret))
		me.GET("", func(c echo.Context) error {
			return c.JSON(http.StatusOK, MeResponse{UserID: c.Get("user_id").(string)})
		})
	}

	rh := &RunsHandler{
		Agent:     orch,
		Sessions:  sessions,
		Store:     st,
		Snapshots: snapshots,
		Logger:    log.New(log.Writer(), "[RUNS] ", log.LstdFlags),
	}
	rh.Register(api, secret)

	th := &ToolsHandler{Agent: orch}
	th.Register(api.Group("/tools"), secret)

	registerDocs(e)

	if addr == "" {
		addr = cfg.Server.Address
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// newEcho builds the echo instance with the shared middleware stack.
func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return e
}
