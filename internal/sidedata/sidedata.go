// internal/sidedata/sidedata.go
//
// The side-data store caches the three read-only backend collections shown
// alongside the main workflow: profiles, analysis history, and generated
// templates. Refresh fetches all three in parallel; each fetch that
// succeeds replaces its collection, and each that fails leaves the previous
// cached value in place. Failures are logged and never surfaced — the side
// panels are best-effort and must not interfere with the workflow.

package sidedata

import (
	"context"
	"sync"

	"github.com/draftforge/stencil/internal/api"
)

// Fetcher is the subset of the backend client the store needs.
type Fetcher interface {
	ListProfiles(ctx context.Context) ([]api.Profile, error)
	ListHistory(ctx context.Context) ([]api.HistoryEntry, error)
	ListTemplates(ctx context.Context) ([]api.TemplateRecord, error)
}

// Logger receives the swallowed fetch failures.
type Logger interface {
	Warn(format string, args ...any)
}

// Snapshot is a point-in-time copy of the cached collections.
type Snapshot struct {
	Profiles  []api.Profile
	History   []api.HistoryEntry
	Templates []api.TemplateRecord
}

// Store owns the cached collections.
type Store struct {
	client Fetcher
	log    Logger

	mu        sync.RWMutex
	profiles  []api.Profile
	history   []api.HistoryEntry
	templates []api.TemplateRecord
}

// New creates an empty store backed by the given client. log may be nil.
func New(client Fetcher, log Logger) *Store {
	return &Store{client: client, log: log}
}

// Refresh re-fetches the three collections concurrently and returns the
// resulting snapshot. Safe to call repeatedly and from any point in the
// workflow; it never mutates workflow state and never reports an error.
func (s *Store) Refresh(ctx context.Context) Snapshot {
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		items, err := s.client.ListProfiles(ctx)
		if err != nil {
			s.warn("side data: profiles fetch failed: %v", err)
			return
		}
		s.mu.Lock()
		s.profiles = items
		s.mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		items, err := s.client.ListHistory(ctx)
		if err != nil {
			s.warn("side data: history fetch failed: %v", err)
			return
		}
		s.mu.Lock()
		s.history = items
		s.mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		items, err := s.client.ListTemplates(ctx)
		if err != nil {
			s.warn("side data: templates fetch failed: %v", err)
			return
		}
		s.mu.Lock()
		s.templates = items
		s.mu.Unlock()
	}()

	wg.Wait()
	return s.Snapshot()
}

// Snapshot returns the current cached collections.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Profiles:  s.profiles,
		History:   s.history,
		Templates: s.templates,
	}
}

func (s *Store) warn(format string, args ...any) {
	if s.log == nil {
		return
	}
	s.log.Warn(format, args...)
}
