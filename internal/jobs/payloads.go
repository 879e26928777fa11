package jobs

import (
	"github.com/google/uuid"

	"github.com/jonathan/recipe-importer/internal/types"
)

// Stage payloads. Each embeds its predecessor so every action returns a
// superset of its input: the accumulated shape satisfies every downstream
// action's declared input type, checked at the action boundary.

// NotePayload is the raw note-import job payload. Exactly one of URL or
// Content is normally set; when both are present Content wins and the fetch
// step is skipped.
type NotePayload struct {
	ImportID uuid.UUID `json:"import_id"`
	UserID   uuid.UUID `json:"user_id"`
	URL      string    `json:"url,omitempty"`
	Content  string    `json:"content,omitempty"`
}

// ParsedNote is a NotePayload plus the structured recipe.
type ParsedNote struct {
	NotePayload
	Recipe *types.ParsedRecipe `json:"recipe"`
}

// SavedNote is a ParsedNote plus the persisted note and its raw lines.
type SavedNote struct {
	ParsedNote
	Note *types.NoteWithLines `json:"note"`
}

// ImagePayload is the raw image-import job payload.
type ImagePayload struct {
	ImportID uuid.UUID `json:"import_id"`
	NoteID   uuid.UUID `json:"note_id"`
	URL      string    `json:"url,omitempty"`
}

// FetchedImage is an ImagePayload plus the downloaded bytes.
type FetchedImage struct {
	ImagePayload
	Data        []byte `json:"-"`
	ContentType string `json:"content_type"`
}

// StoredImage is a FetchedImage plus the object storage key.
type StoredImage struct {
	FetchedImage
	Key string `json:"key"`
}

// NoteRef is the payload of the follow-up jobs that operate on an existing
// note (ingredients, instructions, categorization).
type NoteRef struct {
	ImportID uuid.UUID `json:"import_id"`
	NoteID   uuid.UUID `json:"note_id"`
}

// LoadedNote is a NoteRef plus the note loaded from the repository.
type LoadedNote struct {
	NoteRef
	Note *types.NoteWithLines `json:"note"`
}

// CategorizedNote is a LoadedNote plus the categories the model assigned.
type CategorizedNote struct {
	LoadedNote
	Categories []string `json:"categories"`
}
