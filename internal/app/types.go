package app

import "github.com/nourabuild/blog-account-service/internal/sdk/models"

type RegisterRequest struct {
	FirstName string `json:"firstName" form:"firstName"`
	LastName  string `json:"lastName" form:"lastName"`
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"`
}

type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" form:"email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" form:"password"`
}

// ProfileUpdateRequest carries the editable profile fields. Blank values are
// left unchanged.
type ProfileUpdateRequest struct {
	FirstName  string `json:"firstName" form:"firstName"`
	LastName   string `json:"lastName" form:"lastName"`
	Occupation string `json:"occupation" form:"occupation"`
	Bio        string `json:"bio" form:"bio"`
	Instagram  string `json:"instagram" form:"instagram"`
	Facebook   string `json:"facebook" form:"facebook"`
	LinkedIn   string `json:"linkedin" form:"linkedin"`
	GitHub     string `json:"github" form:"github"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type UserResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	User    models.User `json:"user"`
}

type UsersResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Total   int           `json:"total"`
	Users   []models.User `json:"users"`
}

type ErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

type LivenessResponse struct {
	Status     string `json:"status"`
	Host       string `json:"host"`
	GOMAXPROCS int    `json:"gomaxprocs"`
}
