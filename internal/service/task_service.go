package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-task-manager/internal/model"
	"go-task-manager/internal/policy"
	"go-task-manager/pkg/apierror"
)

const maxTitleLength = 150

type taskStore interface {
	Create(ctx context.Context, t model.Task) error
	FindByID(ctx context.Context, id string) (model.Task, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Task, error)
	ListSharedWith(ctx context.Context, userID string) ([]model.Task, error)
	Update(ctx context.Context, t model.Task) error
	UpdateSharing(ctx context.Context, id string, sharedWith []string, isPublic bool) error
	Delete(ctx context.Context, id string) error
}

// TaskService applies the ownership gate in front of every task operation.
// Handlers never touch the repository directly.
type TaskService struct {
	tasks taskStore
}

func NewTaskService(tasks taskStore) *TaskService {
	return &TaskService{tasks: tasks}
}

func (s *TaskService) Create(ctx context.Context, actor model.User, req model.CreateTaskRequest) (model.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return model.Task{}, apierror.Validation("please add a task title")
	}
	if len(title) > maxTitleLength {
		return model.Task{}, apierror.Validation("task title cannot be longer than 150 characters")
	}
	if strings.TrimSpace(req.Description) == "" {
		return model.Task{}, apierror.Validation("please add a description")
	}

	priority, err := model.ParsePriority(req.Priority)
	if err != nil {
		return model.Task{}, apierror.Validation(err.Error())
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		return model.Task{}, apierror.Validation(err.Error())
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return model.Task{}, err
	}

	now := time.Now().UTC()
	task := model.Task{
		ID:          uuid.NewString(),
		OwnerID:     actor.ID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Priority:    priority,
		Status:      status,
		Labels:      normalizeLabels(req.Labels),
		DueDate:     dueDate,
		SharedWith:  []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, actor model.User, id string) (model.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	if !policy.CanView(actor, task) {
		return model.Task{}, model.ErrForbidden
	}
	return task, nil
}

// List returns the actor's own tasks. Visibility of other users' tasks goes
// through Get (public or shared), or through ListShared.
func (s *TaskService) List(ctx context.Context, actor model.User) ([]model.Task, error) {
	return s.tasks.ListByOwner(ctx, actor.ID)
}

func (s *TaskService) ListShared(ctx context.Context, actor model.User) ([]model.Task, error) {
	return s.tasks.ListSharedWith(ctx, actor.ID)
}

func (s *TaskService) Update(ctx context.Context, actor model.User, id string, req model.UpdateTaskRequest) (model.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	if !policy.CanModify(actor, task) {
		return model.Task{}, model.ErrForbidden
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" || len(title) > maxTitleLength {
			return model.Task{}, apierror.Validation("task title must be between 1 and 150 characters")
		}
		task.Title = title
	}
	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			return model.Task{}, apierror.Validation("description cannot be empty")
		}
		task.Description = strings.TrimSpace(*req.Description)
	}
	if req.Priority != nil {
		priority, err := model.ParsePriority(*req.Priority)
		if err != nil {
			return model.Task{}, apierror.Validation(err.Error())
		}
		task.Priority = priority
	}
	if req.Status != nil {
		status, err := model.ParseStatus(*req.Status)
		if err != nil {
			return model.Task{}, apierror.Validation(err.Error())
		}
		task.Status = status
	}
	if req.Labels != nil {
		task.Labels = normalizeLabels(*req.Labels)
	}
	if req.DueDate != nil {
		dueDate, err := parseDueDate(*req.DueDate)
		if err != nil {
			return model.Task{}, err
		}
		task.DueDate = dueDate
	}

	task.UpdatedAt = time.Now().UTC()
	if err := s.tasks.Update(ctx, task); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, actor model.User, id string) error {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if !policy.CanModify(actor, task) {
		return model.ErrForbidden
	}
	return s.tasks.Delete(ctx, id)
}

// Share replaces the shared-with set and/or the public flag. Only the owner
// or an admin may change sharing; recipients get read access, never write.
func (s *TaskService) Share(ctx context.Context, actor model.User, id string, req model.ShareTaskRequest) (model.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	if !policy.CanModify(actor, task) {
		return model.Task{}, model.ErrForbidden
	}

	sharedWith := task.SharedWith
	if req.UserIDs != nil {
		sharedWith = dedupe(*req.UserIDs, task.OwnerID)
	}
	isPublic := task.IsPublic
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	if err := s.tasks.UpdateSharing(ctx, id, sharedWith, isPublic); err != nil {
		return model.Task{}, err
	}

	task.SharedWith = sharedWith
	task.IsPublic = isPublic
	task.UpdatedAt = time.Now().UTC()
	return task, nil
}

func parseDueDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return nil, apierror.Validation("due_date must be RFC 3339 formatted")
	}
	utc := parsed.UTC()
	return &utc, nil
}

func normalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := map[string]struct{}{}
	for _, label := range labels {
		trimmed := strings.TrimSpace(label)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// dedupe removes duplicates and the owner (the owner always sees their own
// task; listing them in shared_with is redundant).
func dedupe(ids []string, ownerID string) []string {
	out := make([]string, 0, len(ids))
	seen := map[string]struct{}{}
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" || trimmed == ownerID {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
