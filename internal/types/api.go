package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CreateUserRequest represents the request to register a new user.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=1"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest represents the login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// User represents a user profile for API responses.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResponse carries the authenticated user and a signed token.
type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// CreateImportRequest submits a recipe for import, either by URL or as raw
// HTML. Exactly one of the two must be set.
type CreateImportRequest struct {
	URL     string `json:"url,omitempty" validate:"omitempty,url"`
	Content string `json:"content,omitempty"`
}

// Validate validates the CreateUserRequest using the validator.
func (r *CreateUserRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the LoginRequest using the validator.
func (r *LoginRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the CreateImportRequest. URL and Content are mutually
// exclusive and one is required.
func (r *CreateImportRequest) Validate() error {
	if r.URL == "" && r.Content == "" {
		return &FieldError{Field: "url", Message: "either url or content is required"}
	}
	if r.URL != "" && r.Content != "" {
		return &FieldError{Field: "url", Message: "url and content are mutually exclusive"}
	}
	validate := validator.New()
	return validate.Struct(r)
}

// FieldError reports a single invalid request field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}
