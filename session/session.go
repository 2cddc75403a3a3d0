package session

import (
	"fmt"
	"time"

	"github.com/mohammad-safakhou/newsagent/session/inmemory"
	"github.com/mohammad-safakhou/newsagent/session/session_object"
)

// Store interface for session_object management
type Store interface {
	EnsureSession(id string, ttl time.Duration) (*session_object.Session, error)
	GetSession(id string) (*session_object.Session, error)
}

type StoreType string

const (
	InMemoryStore StoreType = "inmemory"
)

func NewStore(storeType StoreType) Store {
	var store Store
	switch storeType {
	case InMemoryStore:
		store = inmemory.NewInMemorySessionStore()
	default:
		panic(fmt.Sprintf("unsupported store type: %s", storeType))
	}

	return store
}
