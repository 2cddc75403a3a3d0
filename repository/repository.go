package repository

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mohammad-safakhou/newsagent/repository/redis_repository"
	"github.com/mohammad-safakhou/newsagent/session/session_object"
)

// SessionRepository persists exported session snapshots across restarts.
type SessionRepository interface {
	SaveState(ctx context.Context, state session_object.State) error
	GetState(ctx context.Context, id string) (session_object.State, error)
	ListIDs(ctx context.Context) ([]string, error)
	DeleteState(ctx context.Context, id string) error
}

type RepoType string

const (
	RepoTypeRedis = "redis"
)

// RedisOptions carries connection settings; empty fields fall back to env.
type RedisOptions struct {
	Host     string
	Port     string
	Password string
	DB       int
	Timeout  time.Duration
}

func NewSessionRepository(ctx context.Context, t RepoType, opts RedisOptions) (SessionRepository, error) {
	switch t {
	case RepoTypeRedis:
		host := opts.Host
		if host == "" {
			host = env("REDIS_HOST", "localhost")
		}
		port := opts.Port
		if port == "" {
			port = env("REDIS_PORT", "6379")
		}
		pass := opts.Password
		if pass == "" {
			pass = os.Getenv("REDIS_PASSWORD")
		}
		db := opts.DB
		if v := os.Getenv("REDIS_DB"); v != "" && db == 0 {
			if n, err := strconv.Atoi(v); err == nil {
				db = n
			}
		}
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 5 * time.Second
		}
		c, err := redis_repository.Conn(ctx, host, port, pass, db, timeout)
		if err != nil {
			return nil, err
		}
		return redis_repository.NewRedisSessionRepository(c), nil
	}
	return nil, fmt.Errorf("invalid repository type: %s", t)
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
