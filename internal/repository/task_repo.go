package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-task-manager/internal/model"
)

const taskColumns = `id, owner_id, title, description, priority, status, labels,
       due_date, is_public, shared_with, created_at, updated_at`

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Priority,
		&t.Status, &t.Labels, &t.DueDate, &t.IsPublic, &t.SharedWith,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Task{}, err
	}
	if t.Labels == nil {
		t.Labels = []string{}
	}
	if t.SharedWith == nil {
		t.SharedWith = []string{}
	}
	return t, nil
}

func (r *TaskRepository) Create(ctx context.Context, t model.Task) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tasks (id, owner_id, title, description, priority, status, labels,
		                    due_date, is_public, shared_with, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.OwnerID, t.Title, t.Description, t.Priority, t.Status, t.Labels,
		t.DueDate, t.IsPublic, t.SharedWith, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (model.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Task{}, model.ErrTaskNotFound
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("find task by id: %w", err)
	}
	return t, nil
}

func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListSharedWith returns tasks other users have shared with this user.
func (r *TaskRepository) ListSharedWith(ctx context.Context, userID string) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE $1::uuid = ANY(shared_with) ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list shared tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) Update(ctx context.Context, t model.Task) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET title = $2, description = $3, priority = $4, status = $5,
		        labels = $6, due_date = $7, updated_at = $8
		 WHERE id = $1`,
		t.ID, t.Title, t.Description, t.Priority, t.Status, t.Labels, t.DueDate, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) UpdateSharing(ctx context.Context, id string, sharedWith []string, isPublic bool) error {
	if sharedWith == nil {
		sharedWith = []string{}
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET shared_with = $2, is_public = $3, updated_at = now() WHERE id = $1`,
		id, sharedWith, isPublic)
	if err != nil {
		return fmt.Errorf("update task sharing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTaskNotFound
	}
	return nil
}
