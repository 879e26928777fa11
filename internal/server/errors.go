// Package server provides the HTTP REST API for the recipe importer.
package server

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/recipe-importer/internal/types"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrImportNotFound indicates the import does not exist or belongs to
// another user. Both cases report not-found so import ids cannot be probed.
type ErrImportNotFound struct {
	ImportID uuid.UUID
}

func (e *ErrImportNotFound) Error() string {
	return fmt.Sprintf("import not found: %s", e.ImportID)
}

// ErrNoteNotFound indicates the note does not exist or belongs to another user
type ErrNoteNotFound struct {
	NoteID uuid.UUID
}

func (e *ErrNoteNotFound) Error() string {
	return fmt.Sprintf("note not found: %s", e.NoteID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrEmailAlreadyExists:
		return http.StatusConflict
	case *ErrInvalidCredentials:
		return http.StatusUnauthorized
	case *ErrImportNotFound, *ErrNoteNotFound:
		return http.StatusNotFound
	case *ErrValidation, *types.FieldError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
