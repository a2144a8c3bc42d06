// Package policy holds the pure authorization decisions: role gates and the
// ownership gate over tasks. No I/O happens here; callers resolve the
// identity and the resource first.
package policy

import "go-task-manager/internal/model"

// Allowed reports whether the role passes a role gate.
func Allowed(role model.Role, required ...model.Role) bool {
	for _, r := range required {
		if role == r {
			return true
		}
	}
	return false
}

// CanView grants read access to the owner, any admin, anyone for a public
// task, and users the task was shared with.
func CanView(identity model.User, task model.Task) bool {
	if identity.Role == model.RoleAdmin {
		return true
	}
	if task.OwnerID == identity.ID {
		return true
	}
	if task.IsPublic {
		return true
	}
	return task.SharedWithUser(identity.ID)
}

// CanModify grants write and delete access to the owner and admins only.
// Sharing and public visibility never extend to mutation.
func CanModify(identity model.User, task model.Task) bool {
	if identity.Role == model.RoleAdmin {
		return true
	}
	return task.OwnerID == identity.ID
}
