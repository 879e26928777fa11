// Package types provides type definitions for structured data used throughout
// the recipe importer.
package types

import (
	"time"

	"github.com/google/uuid"
)

// ParsedRecipe is the structured output of parsing a recipe page.
type ParsedRecipe struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	ImageURL     string   `json:"image_url,omitempty"`
	SourceURL    string   `json:"source_url,omitempty"`
	Yield        string   `json:"yield,omitempty"`
	TotalTime    string   `json:"total_time,omitempty"`
}

// Note is a persisted recipe note.
type Note struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	SourceURL string    `json:"source_url,omitempty"`
	ImageKey  string    `json:"image_key,omitempty"`
	Labels    []string  `json:"labels,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteLine is one raw ingredient or instruction line captured at note
// creation, before the follow-up jobs turn it into structured rows.
type NoteLine struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
	Seq  int       `json:"seq"`
}

// NoteWithLines is a note together with the raw lines the parser produced.
// It is what the repository returns from CreateNote and what the follow-up
// pipelines load.
type NoteWithLines struct {
	Note             Note       `json:"note"`
	IngredientLines  []NoteLine `json:"ingredient_lines"`
	InstructionLines []NoteLine `json:"instruction_lines"`
}

// Ingredient is one structured ingredient row parsed from a note line.
type Ingredient struct {
	ID       uuid.UUID `json:"id"`
	NoteID   uuid.UUID `json:"note_id"`
	Quantity string    `json:"quantity,omitempty"`
	Unit     string    `json:"unit,omitempty"`
	Name     string    `json:"name"`
	Seq      int       `json:"seq"`
}

// Instruction is one numbered instruction step for a note.
type Instruction struct {
	ID     uuid.UUID `json:"id"`
	NoteID uuid.UUID `json:"note_id"`
	Text   string    `json:"text"`
	Seq    int       `json:"seq"`
}
