// Package memory implements repository.KeyValueStore in process memory.
//
// Values are kept as encoded JSON, the same way browser local storage keeps
// strings, so callers never share mutable state with the store.
//
// WHEN IS IT USED?
//   - store: memory in the config, for demos where nothing should survive a
//     restart
//   - tests in every layer above the repositories, which also use Raw to
//     assert on the stored layout and Corrupt to damage a slot
//
// Get follows the same rules as the SQLite store: a missing slot, a stored
// null and a document that does not decode into dst all report false.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sakif/todo-manager/internal/repository"
)

var _ repository.KeyValueStore = (*Store)(nil)

// Store is a map of slot name to JSON document. The zero value is not
// usable; call New.
type Store struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func New() *Store {
	return &Store{slots: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key string, dst any) bool {
	s.mu.RLock()
	raw, ok := s.slots[key]
	s.mu.RUnlock()

	if !ok || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (s *Store) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("memory: encoding slot %q: %w", key, err)
	}

	s.mu.Lock()
	s.slots[key] = raw
	s.mu.Unlock()
	return nil
}

// Raw returns the stored document for key. Tests use it to assert on the
// persisted layout.
func (s *Store) Raw(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.slots[key]
	return string(raw), ok
}

// Corrupt stores bytes that are not valid JSON, simulating a damaged medium.
func (s *Store) Corrupt(key string) {
	s.mu.Lock()
	s.slots[key] = []byte("{not json")
	s.mu.Unlock()
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op; the slots live as long as the process.
func (s *Store) Close() error { return nil }
