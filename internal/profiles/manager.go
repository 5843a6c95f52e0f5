// internal/profiles/manager.go
//
// Thin layer over the backend profile endpoints. Name validation happens
// here, before any network call; after a successful save or delete the
// side-data store is refreshed so the panels reflect the change.

package profiles

import (
	"context"
	"fmt"
	"strings"

	"github.com/draftforge/stencil/internal/api"
	"github.com/draftforge/stencil/internal/rules"
	"github.com/draftforge/stencil/internal/sidedata"
)

// ValidationError reports locally rejected input, such as an empty profile
// name. No request is issued when one is returned.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Saver is the subset of the backend client the manager needs.
type Saver interface {
	CreateProfile(ctx context.Context, name string, r rules.RuleSet) (api.Profile, error)
	DeleteProfile(ctx context.Context, id string) error
}

// Manager saves and deletes named rule-set profiles.
type Manager struct {
	client Saver
	side   *sidedata.Store
}

// NewManager creates a manager. side may be nil when no panels need
// refreshing (the non-interactive CLI path).
func NewManager(client Saver, side *sidedata.Store) *Manager {
	return &Manager{client: client, side: side}
}

// Save stores the rule set under the trimmed name. An empty trimmed name
// fails with *ValidationError before any network call.
func (m *Manager) Save(ctx context.Context, name string, r rules.RuleSet) (api.Profile, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return api.Profile{}, &ValidationError{Msg: "profile name must not be empty"}
	}
	profile, err := m.client.CreateProfile(ctx, trimmed, r)
	if err != nil {
		return api.Profile{}, fmt.Errorf("save profile %q: %w", trimmed, err)
	}
	m.refresh(ctx)
	return profile, nil
}

// Delete removes a profile by id. Transport failures surface as the
// client's persistence error.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.client.DeleteProfile(ctx, id); err != nil {
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	m.refresh(ctx)
	return nil
}

func (m *Manager) refresh(ctx context.Context) {
	if m.side == nil {
		return
	}
	m.side.Refresh(ctx)
}
