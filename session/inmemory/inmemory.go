package inmemory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/newsagent/models"
	"github.com/mohammad-safakhou/newsagent/session/session_object"
)

type Store struct {
	sessions map[string]*session_object.Session
	mu       sync.RWMutex
}

func NewInMemorySessionStore() *Store {
	return &Store{sessions: make(map[string]*session_object.Session)}
}

func (store *Store) EnsureSession(id string, ttl time.Duration) (*session_object.Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if id != "" {
		if sess, ok := store.sessions[id]; ok {
			sess.Expire(ttl)
			return sess, nil
		}
	}

	if id == "" {
		id = uuid.NewString()
	}
	sess, err := session_object.NewSession(id, ttl)
	if err != nil {
		return nil, err
	}

	store.sessions[sess.ID()] = sess
	return sess, nil
}

func (store *Store) GetSession(id string) (*session_object.Session, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	sess, ok := store.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return sess, nil
}
