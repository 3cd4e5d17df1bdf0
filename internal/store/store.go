package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"
)

// Keys under which workspace state is persisted.
const (
	KeyProjects        = "projects"
	KeyActiveProjectID = "active-project-id"
	KeyChatSessions    = "chat-sessions"
	KeyActiveChatID    = "active-chat-id"
)

var ErrNotFound = errors.New("key not found")

// Backend is raw key/value persistence. Values are opaque JSON.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Store wraps a Backend with JSON encoding. Neither Load nor Save ever
// returns an error: failures are logged and the caller keeps its in-memory
// state.
type Store struct {
	backend Backend
}

func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Load decodes the value stored under key, or returns def when the key is
// missing, unreadable or malformed.
func Load[T any](ctx context.Context, s *Store, key string, def T) T {
	data, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return def
	}
	if err != nil {
		log.Printf("[Store] Error reading %q: %v", key, err)
		return def
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		log.Printf("[Store] Error parsing %q, using default: %v", key, err)
		return def
	}
	return v
}

// Save encodes v and writes it under key.
func (s *Store) Save(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[Store] Error encoding %q: %v", key, err)
		return
	}
	if err := s.backend.Put(ctx, key, data); err != nil {
		log.Printf("[Store] Error writing %q: %v", key, err)
	}
}
