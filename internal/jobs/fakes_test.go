package jobs

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/jonathan/recipe-importer/internal/observability"
	"github.com/jonathan/recipe-importer/internal/pipeline"
	"github.com/jonathan/recipe-importer/internal/types"
)

// Shared in-test fakes for the Deps collaborators.

type fakeRepo struct {
	note *types.NoteWithLines

	createdRecipe *types.ParsedRecipe
	ingredients   []types.Ingredient
	instructions  []types.Instruction
	labels        []string
	imageKey      string
	statuses      []types.ImportStatus

	err error
}

func (f *fakeRepo) CreateNote(_ context.Context, userID uuid.UUID, recipe *types.ParsedRecipe) (*types.NoteWithLines, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.createdRecipe = recipe

	note := &types.NoteWithLines{
		Note: types.Note{ID: uuid.New(), UserID: userID, Title: recipe.Title, SourceURL: recipe.SourceURL},
	}
	for i, line := range recipe.Ingredients {
		note.IngredientLines = append(note.IngredientLines, types.NoteLine{ID: uuid.New(), Text: line, Seq: i + 1})
	}
	for i, line := range recipe.Instructions {
		note.InstructionLines = append(note.InstructionLines, types.NoteLine{ID: uuid.New(), Text: line, Seq: i + 1})
	}
	f.note = note
	return note, nil
}

func (f *fakeRepo) GetNoteWithLines(context.Context, uuid.UUID) (*types.NoteWithLines, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.note, nil
}

func (f *fakeRepo) SetNoteImage(_ context.Context, _ uuid.UUID, key string) error {
	if f.err != nil {
		return f.err
	}
	f.imageKey = key
	return nil
}

func (f *fakeRepo) SetNoteLabels(_ context.Context, _ uuid.UUID, labels []string) error {
	if f.err != nil {
		return f.err
	}
	f.labels = labels
	return nil
}

func (f *fakeRepo) CreateIngredients(_ context.Context, _ uuid.UUID, ingredients []types.Ingredient) error {
	if f.err != nil {
		return f.err
	}
	f.ingredients = ingredients
	return nil
}

func (f *fakeRepo) CreateInstructions(_ context.Context, _ uuid.UUID, instructions []types.Instruction) error {
	if f.err != nil {
		return f.err
	}
	f.instructions = instructions
	return nil
}

func (f *fakeRepo) SetImportStatus(_ context.Context, _ uuid.UUID, status types.ImportStatus, _ *uuid.UUID, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.statuses = append(f.statuses, status)
	return nil
}

type enqueued struct {
	queue     string
	operation string
	payload   any
}

type fakeQueue struct {
	added []enqueued
	err   error
}

func (f *fakeQueue) Add(_ context.Context, queueName, operation string, payload any) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.added = append(f.added, enqueued{queue: queueName, operation: operation, payload: payload})
	return uuid.New(), nil
}

type fakeNotifier struct {
	events []types.StatusEvent
	err    error
}

func (f *fakeNotifier) Notify(_ context.Context, event types.StatusEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type fakeFetcher struct {
	page        string
	imageData   []byte
	contentType string
	err         error
	pageCalls   int
	imageCalls  int
}

func (f *fakeFetcher) FetchPage(context.Context, string) (string, error) {
	f.pageCalls++
	if f.err != nil {
		return "", f.err
	}
	return f.page, nil
}

func (f *fakeFetcher) FetchImage(context.Context, string) ([]byte, string, error) {
	f.imageCalls++
	if f.err != nil {
		return nil, "", f.err
	}
	return f.imageData, f.contentType, nil
}

type fakeImageStore struct {
	key  string
	data []byte
	err  error
}

func (f *fakeImageStore) Put(_ context.Context, _ uuid.UUID, _, _ string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.data = data
	return f.key, nil
}

type fakeLLM struct {
	response string
	prompt   string
	err      error
}

func (f *fakeLLM) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func quietLogger() *observability.Logger {
	return observability.NewLogger(io.Discard, observability.LevelError)
}

// fastRetry keeps test retries from sleeping for real.
func fastRetry() pipeline.RetryConfig {
	return pipeline.RetryConfig{MaxRetries: 1, Backoff: 1, Multiplier: 2, MaxBackoff: 10}
}

func testExecutor() *pipeline.Executor {
	return pipeline.NewExecutor(quietLogger())
}
