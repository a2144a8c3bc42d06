package model

import (
	"fmt"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

func ParsePriority(raw string) (Priority, error) {
	if strings.TrimSpace(raw) == "" {
		return PriorityMedium, nil
	}
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("invalid priority %q", raw)
}

func ParseStatus(raw string) (Status, error) {
	if strings.TrimSpace(raw) == "" {
		return StatusPending, nil
	}
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return s, nil
	}
	return "", fmt.Errorf("invalid status %q", raw)
}

type Task struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	Labels      []string   `json:"labels"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	IsPublic    bool       `json:"is_public"`
	SharedWith  []string   `json:"shared_with"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SharedWithUser reports whether the task has been shared with the given user.
// Sharing grants visibility only, never mutation.
func (t Task) SharedWithUser(userID string) bool {
	for _, id := range t.SharedWith {
		if id == userID {
			return true
		}
	}
	return false
}
