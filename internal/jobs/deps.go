// Package jobs defines the actions and pipeline builders for every
// background job type: note import, image import, ingredient extraction,
// instruction extraction, and categorization. Actions are registered in a
// per-job-type registry and composed by pure builder functions; the worker
// package binds the result to the queue.
package jobs

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/recipe-importer/internal/observability"
	"github.com/jonathan/recipe-importer/internal/pipeline"
	"github.com/jonathan/recipe-importer/internal/types"
)

// Queue names, one per job type.
const (
	QueueNote        = "note"
	QueueImage       = "image"
	QueueIngredient  = "ingredient"
	QueueInstruction = "instruction"
	QueueCategorize  = "categorize"
)

// Operation names carried on queued jobs.
const (
	OpImportNote         = "import_note"
	OpImportImage        = "import_image"
	OpImportIngredients  = "import_ingredients"
	OpImportInstructions = "import_instructions"
	OpCategorizeNote     = "categorize_note"
)

// Repo is the persistence surface the pipelines need. *db.DB satisfies it.
type Repo interface {
	CreateNote(ctx context.Context, userID uuid.UUID, recipe *types.ParsedRecipe) (*types.NoteWithLines, error)
	GetNoteWithLines(ctx context.Context, noteID uuid.UUID) (*types.NoteWithLines, error)
	SetNoteImage(ctx context.Context, noteID uuid.UUID, imageKey string) error
	SetNoteLabels(ctx context.Context, noteID uuid.UUID, labels []string) error
	CreateIngredients(ctx context.Context, noteID uuid.UUID, ingredients []types.Ingredient) error
	CreateInstructions(ctx context.Context, noteID uuid.UUID, instructions []types.Instruction) error
	SetImportStatus(ctx context.Context, id uuid.UUID, status types.ImportStatus, noteID *uuid.UUID, errMsg string) error
}

// Enqueuer schedules follow-up jobs. *queue.Queue satisfies it.
type Enqueuer interface {
	Add(ctx context.Context, queueName, operation string, payload any) (uuid.UUID, error)
}

// Notifier delivers status events. *broadcast.Broadcaster satisfies it.
type Notifier interface {
	Notify(ctx context.Context, event types.StatusEvent) error
}

// PageFetcher retrieves remote pages and images. *fetch.Fetcher satisfies it.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
	FetchImage(ctx context.Context, url string) ([]byte, string, error)
}

// HTMLParser turns cleaned HTML into a structured recipe. *parser.Parser
// satisfies it.
type HTMLParser interface {
	ParseHTML(ctx context.Context, content string) (*types.ParsedRecipe, error)
}

// ImageStore persists image bytes. *storage.ImageStore satisfies it.
type ImageStore interface {
	Put(ctx context.Context, noteID uuid.UUID, sourceURL, contentType string, data []byte) (string, error)
}

// Generator produces JSON from a prompt. llm.Client satisfies it.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Deps is the collaborator bundle shared by all actions of a worker. It is
// constructed once per worker and reused across jobs; actions treat every
// field as non-owned and read-only.
type Deps struct {
	Parser   HTMLParser
	Repo     Repo
	Queue    Enqueuer
	Notifier Notifier
	Fetcher  PageFetcher
	Images   ImageStore
	LLM      Generator

	// Labels is the category vocabulary offered to the model. Empty means
	// the default vocabulary.
	Labels []string

	Log   *observability.Logger
	Retry pipeline.RetryConfig
}

func (d Deps) retryConfig() pipeline.RetryConfig {
	if d.Retry == (pipeline.RetryConfig{}) {
		return pipeline.DefaultRetryConfig()
	}
	return d.Retry
}

func (d Deps) logger() *observability.Logger {
	if d.Log != nil {
		return d.Log
	}
	return observability.Default()
}

// retried wraps a with the worker's retry policy.
func retried(a pipeline.Action, d Deps) pipeline.Action {
	return pipeline.Retry(a, d.retryConfig(), d.logger())
}

// bestEffort wraps a so its failure never aborts the pipeline.
func bestEffort(a pipeline.Action, d Deps) pipeline.Action {
	return pipeline.BestEffort(a, d.logger())
}

// notify emits a status event, filling the common fields.
func notify(ctx context.Context, d Deps, importID uuid.UUID, noteID *uuid.UUID, status types.ImportStatus, message string, count int) error {
	return d.Notifier.Notify(ctx, types.StatusEvent{
		ImportID: importID,
		NoteID:   noteID,
		Status:   status,
		Message:  message,
		Count:    count,
	})
}
