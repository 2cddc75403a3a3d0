package redis_repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/newsagent/models"
	"github.com/mohammad-safakhou/newsagent/session/session_object"
)

const sessionKeyPrefix = "session:"

// redisSessionRepository persists session snapshots as JSON blobs in Redis
type redisSessionRepository struct {
	client *redis.Client
}

func (r redisSessionRepository) SaveState(ctx context.Context, state session_object.State) error {
	key := sessionKeyPrefix + state.ID

	// Marshal the snapshot to JSON before storing
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	err = r.client.Set(ctx, key, data, 0).Err()
	if err != nil {
		return err
	}

	return nil
}

func (r redisSessionRepository) GetState(ctx context.Context, id string) (session_object.State, error) {
	key := sessionKeyPrefix + id

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return session_object.State{}, models.ErrSessionNotFound
		}
		return session_object.State{}, err
	}

	var state session_object.State
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return session_object.State{}, err
	}

	return state, nil
}

func (r redisSessionRepository) ListIDs(ctx context.Context) ([]string, error) {
	keys, err := r.client.Keys(ctx, sessionKeyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, sessionKeyPrefix))
	}

	return ids, nil
}

func (r redisSessionRepository) DeleteState(ctx context.Context, id string) error {
	key := sessionKeyPrefix + id

	err := r.client.Del(ctx, key).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.ErrSessionNotFound
		}
		return err
	}

	return nil
}

func NewRedisSessionRepository(client *redis.Client) *redisSessionRepository {
	return &redisSessionRepository{
		client: client,
	}
}
