package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go-task-manager/internal/model"
)

func TestAllowed(t *testing.T) {
	t.Parallel()

	require.True(t, Allowed(model.RoleAdmin, model.RoleAdmin))
	require.True(t, Allowed(model.RolePublisher, model.RolePublisher, model.RoleAdmin))
	require.False(t, Allowed(model.RoleUser, model.RoleAdmin))
	require.False(t, Allowed(model.RoleUser))
}

func TestCanView(t *testing.T) {
	t.Parallel()

	owner := model.User{ID: "owner", Role: model.RoleUser}
	admin := model.User{ID: "admin", Role: model.RoleAdmin}
	friend := model.User{ID: "friend", Role: model.RoleUser}
	stranger := model.User{ID: "stranger", Role: model.RoleUser}

	task := model.Task{ID: "t1", OwnerID: "owner", SharedWith: []string{"friend"}}

	t.Run("owner sees own task", func(t *testing.T) {
		require.True(t, CanView(owner, task))
	})

	t.Run("admin sees any task", func(t *testing.T) {
		require.True(t, CanView(admin, task))
	})

	t.Run("shared recipient sees task", func(t *testing.T) {
		require.True(t, CanView(friend, task))
	})

	t.Run("stranger is denied", func(t *testing.T) {
		require.False(t, CanView(stranger, task))
	})

	t.Run("public task is visible to anyone", func(t *testing.T) {
		public := task
		public.IsPublic = true
		require.True(t, CanView(stranger, public))
	})
}

func TestCanModify(t *testing.T) {
	t.Parallel()

	owner := model.User{ID: "owner", Role: model.RoleUser}
	admin := model.User{ID: "admin", Role: model.RoleAdmin}
	friend := model.User{ID: "friend", Role: model.RoleUser}

	task := model.Task{ID: "t1", OwnerID: "owner", SharedWith: []string{"friend"}, IsPublic: true}

	t.Run("owner can modify", func(t *testing.T) {
		require.True(t, CanModify(owner, task))
	})

	t.Run("admin can modify", func(t *testing.T) {
		require.True(t, CanModify(admin, task))
	})

	t.Run("sharing never grants write", func(t *testing.T) {
		require.False(t, CanModify(friend, task))
	})

	t.Run("public never grants write", func(t *testing.T) {
		stranger := model.User{ID: "stranger", Role: model.RoleUser}
		require.False(t, CanModify(stranger, task))
	})
}
