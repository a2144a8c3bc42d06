package model

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateDetailsRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Status      string   `json:"status"`
	Labels      []string `json:"labels"`
	DueDate     string   `json:"due_date"`
}

type UpdateTaskRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Priority    *string   `json:"priority"`
	Status      *string   `json:"status"`
	Labels      *[]string `json:"labels"`
	DueDate     *string   `json:"due_date"`
}

type ShareTaskRequest struct {
	UserIDs  *[]string `json:"user_ids"`
	IsPublic *bool     `json:"is_public"`
}

// AuthResponse is the success payload for register/login/reset. Token is only
// populated in the stateless token mode; session mode carries the credential
// exclusively in the cookie.
type AuthResponse struct {
	User  PublicUser `json:"user"`
	Token string     `json:"token,omitempty"`
}
