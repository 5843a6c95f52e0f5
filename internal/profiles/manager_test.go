// internal/profiles/manager_test.go

package profiles

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftforge/stencil/internal/api"
	"github.com/draftforge/stencil/internal/rules"
)

type fakeSaver struct {
	created   []string
	deleted   []string
	createErr error
	deleteErr error
}

func (f *fakeSaver) CreateProfile(ctx context.Context, name string, r rules.RuleSet) (api.Profile, error) {
	f.created = append(f.created, name)
	if f.createErr != nil {
		return api.Profile{}, f.createErr
	}
	return api.Profile{ID: "p1", Name: name, Rules: r}, nil
}

func (f *fakeSaver) DeleteProfile(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func TestSaveTrimsName(t *testing.T) {
	saver := &fakeSaver{}
	m := NewManager(saver, nil)

	profile, err := m.Save(context.Background(), "  My Thesis  ", rules.Default())
	require.NoError(t, err)
	require.Equal(t, "My Thesis", profile.Name)
	require.Equal(t, []string{"My Thesis"}, saver.created)
}

func TestSaveRejectsEmptyNameBeforeNetwork(t *testing.T) {
	saver := &fakeSaver{createErr: errors.New("must not be reached")}
	m := NewManager(saver, nil)

	_, err := m.Save(context.Background(), "   ", rules.Default())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Empty(t, saver.created, "a blank name must never reach the backend")
}

func TestSaveWrapsBackendError(t *testing.T) {
	backendErr := &api.Error{Kind: api.KindPersistence, Status: 503, Detail: "unavailable"}
	m := NewManager(&fakeSaver{createErr: backendErr}, nil)

	_, err := m.Save(context.Background(), "GOST", rules.Default())
	require.Error(t, err)
	require.True(t, api.IsKind(err, api.KindPersistence), "wrapping lost the error kind: %v", err)
}

func TestDelete(t *testing.T) {
	saver := &fakeSaver{}
	m := NewManager(saver, nil)

	require.NoError(t, m.Delete(context.Background(), "p1"))
	require.Equal(t, []string{"p1"}, saver.deleted)

	m = NewManager(&fakeSaver{deleteErr: errors.New("404")}, nil)
	require.Error(t, m.Delete(context.Background(), "ghost"))
}
