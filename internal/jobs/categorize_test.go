package jobs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recipe-importer/internal/pipeline"
	"github.com/jonathan/recipe-importer/internal/types"
)

func categorizeContext() *pipeline.ActionContext {
	return &pipeline.ActionContext{
		JobID:     uuid.New(),
		Queue:     QueueCategorize,
		Operation: OpCategorizeNote,
		Worker:    "test-worker",
		Attempt:   1,
	}
}

func TestCategorizePipelineSavesLabels(t *testing.T) {
	importID := uuid.New()
	repo := loadedNoteFixture(importID)
	n := &fakeNotifier{}
	model := &fakeLLM{response: `{"categories": ["soup", "dinner"]}`}
	deps := Deps{Repo: repo, Notifier: n, LLM: model, Log: quietLogger(), Retry: fastRetry()}

	reg := pipeline.NewRegistry[Deps]()
	RegisterCategorizeActions(reg)

	payload := NoteRef{ImportID: importID, NoteID: repo.note.Note.ID}
	actions, err := BuildCategorizePipeline(reg, deps, payload)
	require.NoError(t, err)

	out, err := testExecutor().Run(context.Background(), categorizeContext(), actions, payload)
	require.NoError(t, err)

	categorized := out.(CategorizedNote)
	assert.Equal(t, []string{"soup", "dinner"}, categorized.Categories)
	assert.Equal(t, []string{"soup", "dinner"}, repo.labels)

	// The prompt carries the note content.
	assert.Contains(t, model.prompt, "Tomato Soup")
	assert.Contains(t, model.prompt, "2 cups tomatoes")

	assert.Equal(t, []types.ImportStatus{types.ImportCompleted}, repo.statuses)
	require.Len(t, n.events, 1)
	assert.Equal(t, types.ImportCategorized, n.events[0].Status)
	assert.Equal(t, 2, n.events[0].Count)
}

func TestCategorizeRejectsInvalidModelOutput(t *testing.T) {
	importID := uuid.New()
	repo := loadedNoteFixture(importID)
	model := &fakeLLM{response: `{"categories": []}`}
	deps := Deps{Repo: repo, Notifier: &fakeNotifier{}, LLM: model, Log: quietLogger(), Retry: fastRetry()}

	reg := pipeline.NewRegistry[Deps]()
	RegisterCategorizeActions(reg)

	payload := NoteRef{ImportID: importID, NoteID: repo.note.Note.ID}
	actions, err := BuildCategorizePipeline(reg, deps, payload)
	require.NoError(t, err)

	_, err = testExecutor().Run(context.Background(), categorizeContext(), actions, payload)
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid categories")
	assert.Empty(t, repo.labels)
}

func TestCategorizeSaveIsBestEffort(t *testing.T) {
	importID := uuid.New()
	repo := loadedNoteFixture(importID)
	model := &fakeLLM{response: `{"categories": ["dinner"]}`}
	deps := Deps{Repo: repo, Notifier: &fakeNotifier{}, LLM: model, Log: quietLogger(), Retry: fastRetry()}

	reg := pipeline.NewRegistry[Deps]()
	RegisterCategorizeActions(reg)

	payload := NoteRef{ImportID: importID, NoteID: repo.note.Note.ID}
	actions, err := BuildCategorizePipeline(reg, deps, payload)
	require.NoError(t, err)

	// Run load + categorize normally, then fail every repo write: the save
	// and status steps are best-effort so the pipeline still resolves with
	// the categorized data unchanged.
	out, err := testExecutor().Run(context.Background(), categorizeContext(), actions[:2], payload)
	require.NoError(t, err)
	categorized := out.(CategorizedNote)

	repo.err = assert.AnError
	out, err = testExecutor().Run(context.Background(), categorizeContext(), actions[2:], categorized)
	require.NoError(t, err)
	assert.Equal(t, categorized, out)
}

func TestCategorizeReducesToStatusWithoutLLM(t *testing.T) {
	importID := uuid.New()
	repo := loadedNoteFixture(importID)
	n := &fakeNotifier{}
	deps := Deps{Repo: repo, Notifier: n, Log: quietLogger(), Retry: fastRetry()}

	reg := pipeline.NewRegistry[Deps]()
	RegisterCategorizeActions(reg)

	payload := NoteRef{ImportID: importID, NoteID: repo.note.Note.ID}
	actions, err := BuildCategorizePipeline(reg, deps, payload)
	require.NoError(t, err)
	require.Len(t, actions, 1)

	_, err = testExecutor().Run(context.Background(), categorizeContext(), actions, payload)
	require.NoError(t, err)

	// The import still reaches its terminal status.
	assert.Equal(t, []types.ImportStatus{types.ImportCompleted}, repo.statuses)
	require.Len(t, n.events, 1)
	assert.Equal(t, "categorization skipped", n.events[0].Message)
	assert.Empty(t, repo.labels)
}

func TestFilterAllowed(t *testing.T) {
	tests := []struct {
		name       string
		categories []string
		labels     []string
		want       []string
	}{
		{
			name:       "keeps allowed in order",
			categories: []string{"dinner", "soup"},
			labels:     []string{"soup", "dinner"},
			want:       []string{"dinner", "soup"},
		},
		{
			name:       "drops unknown",
			categories: []string{"dinner", "molecular-gastronomy"},
			labels:     []string{"dinner"},
			want:       []string{"dinner"},
		},
		{
			name:       "case insensitive with canonical casing",
			categories: []string{"DINNER", " Soup "},
			labels:     []string{"dinner", "soup"},
			want:       []string{"dinner", "soup"},
		},
		{
			name:       "deduplicates",
			categories: []string{"dinner", "Dinner"},
			labels:     []string{"dinner"},
			want:       []string{"dinner"},
		},
		{
			name:       "default vocabulary",
			categories: []string{"breakfast"},
			want:       []string{"breakfast"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filterAllowed(tt.categories, tt.labels))
		})
	}
}
