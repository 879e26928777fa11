package types

import (
	"time"

	"github.com/google/uuid"
)

// ImportStatus enumerates the lifecycle of an import and the status values
// carried by StatusEvents.
type ImportStatus string

const (
	ImportPending              ImportStatus = "pending"
	ImportProcessing           ImportStatus = "processing"
	ImportNoteCreated          ImportStatus = "note_created"
	ImportIngredientsComplete  ImportStatus = "ingredients_complete"
	ImportInstructionsComplete ImportStatus = "instructions_complete"
	ImportImageComplete        ImportStatus = "image_complete"
	ImportCategorized          ImportStatus = "categorized"
	ImportCompleted            ImportStatus = "completed"
	ImportFailed               ImportStatus = "failed"
)

// StatusEvent is an outbound progress notification produced by pipeline
// actions as a side effect and delivered to subscribers by the broadcaster.
// It is not part of the pipeline's internal data flow.
type StatusEvent struct {
	ID       uuid.UUID    `json:"id"`
	ImportID uuid.UUID    `json:"import_id"`
	NoteID   *uuid.UUID   `json:"note_id,omitempty"`
	Status   ImportStatus `json:"status"`
	Message  string       `json:"message"`
	Context  string       `json:"context,omitempty"`
	Count    int          `json:"count,omitempty"`
	At       time.Time    `json:"at"`
}

// Import is a persisted import request.
type Import struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"user_id"`
	URL       string       `json:"url,omitempty"`
	Status    ImportStatus `json:"status"`
	NoteID    *uuid.UUID   `json:"note_id,omitempty"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
