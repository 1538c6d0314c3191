package session

import (
	"testing"

	"github.com/omnifs/omnifs/internal/container"
	"github.com/omnifs/omnifs/internal/users"
	"github.com/stretchr/testify/require"
)

func TestCreateFindRemove(t *testing.T) {
	var store Store
	admin := users.Info{Username: "admin", Role: container.RoleAdmin, IsActive: true}

	info, err := store.Create(admin)
	require.NoError(t, err)
	require.NotEmpty(t, info.ID)
	require.Equal(t, 1, store.Len())

	got, ok := store.Find(info.ID)
	require.True(t, ok)
	require.Equal(t, "admin", got.User.Username)

	require.True(t, store.Remove(info.ID))
	require.Equal(t, 0, store.Len())
	require.False(t, store.Remove(info.ID))
}

func TestFindUnknownSession(t *testing.T) {
	var store Store
	_, ok := store.Find("nonexistent")
	require.False(t, ok)
}

func TestNewIDIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id, err := NewID()
		require.NoError(t, err)
		require.False(t, seen[id])
		seen[id] = true
	}
}
