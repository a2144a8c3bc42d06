package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-task-manager/internal/model"
)

type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[string]model.Task
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: map[string]model.Task{}}
}

func (f *fakeTaskStore) Create(ctx context.Context, t model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeTaskStore) FindByID(ctx context.Context, id string) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return model.Task{}, model.ErrTaskNotFound
	}
	return t, nil
}

func (f *fakeTaskStore) ListByOwner(ctx context.Context, ownerID string) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, t := range f.tasks {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) ListSharedWith(ctx context.Context, userID string) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, t := range f.tasks {
		if t.SharedWithUser(userID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) Update(ctx context.Context, t model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[t.ID]; !ok {
		return model.ErrTaskNotFound
	}
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeTaskStore) UpdateSharing(ctx context.Context, id string, sharedWith []string, isPublic bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return model.ErrTaskNotFound
	}
	t.SharedWith = sharedWith
	t.IsPublic = isPublic
	f.tasks[id] = t
	return nil
}

func (f *fakeTaskStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[id]; !ok {
		return model.ErrTaskNotFound
	}
	delete(f.tasks, id)
	return nil
}

var (
	taskOwner  = model.User{ID: "owner", Role: model.RoleUser}
	taskAdmin  = model.User{ID: "admin", Role: model.RoleAdmin}
	taskFriend = model.User{ID: "friend", Role: model.RoleUser}
	taskOther  = model.User{ID: "other", Role: model.RoleUser}
)

func newTaskForTest(t *testing.T, svc *TaskService) model.Task {
	t.Helper()
	task, err := svc.Create(context.Background(), taskOwner, model.CreateTaskRequest{
		Title:       "Write quarterly report",
		Description: "Numbers for Q3",
		Priority:    "high",
		Labels:      []string{"work", "work", " urgent "},
	})
	require.NoError(t, err)
	return task
}

func TestTaskCreate(t *testing.T) {
	t.Parallel()

	svc := NewTaskService(newFakeTaskStore())
	task := newTaskForTest(t, svc)

	require.Equal(t, "owner", task.OwnerID)
	require.Equal(t, model.PriorityHigh, task.Priority)
	require.Equal(t, model.StatusPending, task.Status)
	require.Equal(t, []string{"work", "urgent"}, task.Labels)
	require.Empty(t, task.SharedWith)
}

func TestTaskCreateValidation(t *testing.T) {
	t.Parallel()

	svc := NewTaskService(newFakeTaskStore())
	ctx := context.Background()

	t.Run("missing title", func(t *testing.T) {
		_, err := svc.Create(ctx, taskOwner, model.CreateTaskRequest{Description: "d"})
		require.Error(t, err)
	})

	t.Run("title too long", func(t *testing.T) {
		long := make([]byte, 151)
		for i := range long {
			long[i] = 'a'
		}
		_, err := svc.Create(ctx, taskOwner, model.CreateTaskRequest{Title: string(long), Description: "d"})
		require.Error(t, err)
	})

	t.Run("invalid priority", func(t *testing.T) {
		_, err := svc.Create(ctx, taskOwner, model.CreateTaskRequest{Title: "t", Description: "d", Priority: "urgent"})
		require.Error(t, err)
	})

	t.Run("invalid due date", func(t *testing.T) {
		_, err := svc.Create(ctx, taskOwner, model.CreateTaskRequest{Title: "t", Description: "d", DueDate: "tomorrow"})
		require.Error(t, err)
	})

	t.Run("valid due date", func(t *testing.T) {
		task, err := svc.Create(ctx, taskOwner, model.CreateTaskRequest{Title: "t", Description: "d", DueDate: "2026-12-01T09:00:00Z"})
		require.NoError(t, err)
		require.NotNil(t, task.DueDate)
		require.Equal(t, time.December, task.DueDate.Month())
	})
}

func TestTaskVisibility(t *testing.T) {
	t.Parallel()

	svc := NewTaskService(newFakeTaskStore())
	ctx := context.Background()
	task := newTaskForTest(t, svc)

	t.Run("owner and admin can read", func(t *testing.T) {
		_, err := svc.Get(ctx, taskOwner, task.ID)
		require.NoError(t, err)
		_, err = svc.Get(ctx, taskAdmin, task.ID)
		require.NoError(t, err)
	})

	t.Run("others are forbidden", func(t *testing.T) {
		_, err := svc.Get(ctx, taskOther, task.ID)
		require.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("sharing grants read only", func(t *testing.T) {
		shared, err := svc.Share(ctx, taskOwner, task.ID, model.ShareTaskRequest{
			UserIDs: &[]string{"friend"},
		})
		require.NoError(t, err)
		require.Equal(t, []string{"friend"}, shared.SharedWith)

		_, err = svc.Get(ctx, taskFriend, task.ID)
		require.NoError(t, err)

		title := "hijacked"
		_, err = svc.Update(ctx, taskFriend, task.ID, model.UpdateTaskRequest{Title: &title})
		require.ErrorIs(t, err, model.ErrForbidden)
		require.ErrorIs(t, svc.Delete(ctx, taskFriend, task.ID), model.ErrForbidden)
	})

	t.Run("public grants read to anyone", func(t *testing.T) {
		public := true
		_, err := svc.Share(ctx, taskOwner, task.ID, model.ShareTaskRequest{IsPublic: &public})
		require.NoError(t, err)

		_, err = svc.Get(ctx, taskOther, task.ID)
		require.NoError(t, err)
	})
}

func TestTaskShareDedupesAndDropsOwner(t *testing.T) {
	t.Parallel()

	svc := NewTaskService(newFakeTaskStore())
	task := newTaskForTest(t, svc)

	shared, err := svc.Share(context.Background(), taskOwner, task.ID, model.ShareTaskRequest{
		UserIDs: &[]string{"friend", "friend", "owner", " other ", ""},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"friend", "other"}, shared.SharedWith)
}

func TestTaskShareRequiresOwnership(t *testing.T) {
	t.Parallel()

	svc := NewTaskService(newFakeTaskStore())
	task := newTaskForTest(t, svc)

	_, err := svc.Share(context.Background(), taskOther, task.ID, model.ShareTaskRequest{
		UserIDs: &[]string{"other"},
	})
	require.ErrorIs(t, err, model.ErrForbidden)
}

func TestTaskUpdatePartialFields(t *testing.T) {
	t.Parallel()

	svc := NewTaskService(newFakeTaskStore())
	ctx := context.Background()
	task := newTaskForTest(t, svc)

	status := "completed"
	updated, err := svc.Update(ctx, taskOwner, task.ID, model.UpdateTaskRequest{Status: &status})
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, updated.Status)
	require.Equal(t, task.Title, updated.Title)
	require.Equal(t, task.Priority, updated.Priority)
}

func TestTaskListScopes(t *testing.T) {
	t.Parallel()

	svc := NewTaskService(newFakeTaskStore())
	ctx := context.Background()
	task := newTaskForTest(t, svc)

	_, err := svc.Share(ctx, taskOwner, task.ID, model.ShareTaskRequest{UserIDs: &[]string{"friend"}})
	require.NoError(t, err)

	own, err := svc.List(ctx, taskOwner)
	require.NoError(t, err)
	require.Len(t, own, 1)

	othersOwn, err := svc.List(ctx, taskFriend)
	require.NoError(t, err)
	require.Empty(t, othersOwn)

	shared, err := svc.ListShared(ctx, taskFriend)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	require.Equal(t, task.ID, shared[0].ID)
}

func TestTaskDelete(t *testing.T) {
	t.Parallel()

	svc := NewTaskService(newFakeTaskStore())
	ctx := context.Background()
	task := newTaskForTest(t, svc)

	require.NoError(t, svc.Delete(ctx, taskOwner, task.ID))
	require.ErrorIs(t, svc.Delete(ctx, taskOwner, task.ID), model.ErrTaskNotFound)
}
