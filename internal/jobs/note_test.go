package jobs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recipe-importer/internal/parser"
	"github.com/jonathan/recipe-importer/internal/pipeline"
	"github.com/jonathan/recipe-importer/internal/types"
)

func noteDeps(repo *fakeRepo, q *fakeQueue, n *fakeNotifier, f *fakeFetcher) Deps {
	return Deps{
		Parser:   parser.NewParser(),
		Repo:     repo,
		Queue:    q,
		Notifier: n,
		Fetcher:  f,
		Log:      quietLogger(),
		Retry:    fastRetry(),
	}
}

func noteContext() *pipeline.ActionContext {
	return &pipeline.ActionContext{
		JobID:     uuid.New(),
		Queue:     QueueNote,
		Operation: OpImportNote,
		Worker:    "test-worker",
		Attempt:   1,
	}
}

func TestParseThenSaveProducesNote(t *testing.T) {
	repo := &fakeRepo{}
	deps := noteDeps(repo, &fakeQueue{}, &fakeNotifier{}, &fakeFetcher{})

	reg := pipeline.NewRegistry[Deps]()
	RegisterNoteActions(reg)
	parse, err := reg.Create(ActionParseHTML, deps)
	require.NoError(t, err)
	save, err := reg.Create(ActionSaveNote, deps)
	require.NoError(t, err)

	payload := NotePayload{ImportID: uuid.New(), UserID: uuid.New(), Content: "<h1>Soup</h1>"}
	out, err := testExecutor().Run(context.Background(), noteContext(),
		[]pipeline.Action{parse, save}, payload)
	require.NoError(t, err)

	saved, ok := out.(SavedNote)
	require.True(t, ok, "expected SavedNote, got %T", out)
	assert.Equal(t, "Soup", saved.Recipe.Title)
	assert.Empty(t, saved.Recipe.Ingredients)
	assert.Empty(t, saved.Recipe.Instructions)
	require.NotNil(t, saved.Note)
	assert.Equal(t, "Soup", saved.Note.Note.Title)
	assert.NotEqual(t, uuid.Nil, saved.Note.Note.ID)
}

const recipePage = `<html><head><script type="application/ld+json">
{"@type": "Recipe", "name": "Tomato Soup",
 "image": "https://example.com/soup.jpg",
 "recipeIngredient": ["2 cups tomatoes", "1 onion"],
 "recipeInstructions": [
   {"@type": "HowToStep", "text": "Chop the onion."},
   {"@type": "HowToStep", "text": "Simmer everything."}]}
</script></head><body><h1>Tomato Soup</h1></body></html>`

func TestNotePipelineEndToEnd(t *testing.T) {
	repo := &fakeRepo{}
	q := &fakeQueue{}
	n := &fakeNotifier{}
	deps := noteDeps(repo, q, n, &fakeFetcher{})

	reg := pipeline.NewRegistry[Deps]()
	RegisterNoteActions(reg)

	importID := uuid.New()
	payload := NotePayload{ImportID: importID, UserID: uuid.New(), Content: recipePage}
	actions, err := BuildNotePipeline(reg, deps, payload)
	require.NoError(t, err)

	out, err := testExecutor().Run(context.Background(), noteContext(), actions, payload)
	require.NoError(t, err)

	saved := out.(SavedNote)
	assert.Equal(t, "Tomato Soup", saved.Recipe.Title)
	assert.Len(t, saved.Note.IngredientLines, 2)
	assert.Len(t, saved.Note.InstructionLines, 2)

	// Follow-up jobs: instructions, ingredients, categorize, image.
	require.Len(t, q.added, 4)
	ops := make([]string, len(q.added))
	for i, a := range q.added {
		ops[i] = a.operation
	}
	assert.Equal(t, []string{OpImportInstructions, OpImportIngredients, OpCategorizeNote, OpImportImage}, ops)

	img := q.added[3].payload.(ImagePayload)
	assert.Equal(t, "https://example.com/soup.jpg", img.URL)
	assert.Equal(t, saved.Note.Note.ID, img.NoteID)

	// The import is marked processing up front, then note_created on save.
	assert.Equal(t, []types.ImportStatus{types.ImportProcessing, types.ImportNoteCreated}, repo.statuses)
	require.Len(t, n.events, 2)
	assert.Equal(t, types.ImportProcessing, n.events[0].Status)
	assert.Equal(t, types.ImportNoteCreated, n.events[1].Status)
	assert.Equal(t, importID, n.events[1].ImportID)
}

func TestNotePipelineIncludesFetchForURLPayloads(t *testing.T) {
	deps := noteDeps(&fakeRepo{}, &fakeQueue{}, &fakeNotifier{}, &fakeFetcher{page: recipePage})
	reg := pipeline.NewRegistry[Deps]()
	RegisterNoteActions(reg)

	withURL, err := BuildNotePipeline(reg, deps, NotePayload{URL: "https://example.com/recipe"})
	require.NoError(t, err)
	withContent, err := BuildNotePipeline(reg, deps, NotePayload{Content: "<h1>x</h1>"})
	require.NoError(t, err)

	// Both variants open with the status step; only URL payloads fetch.
	assert.Equal(t, ActionNoteStartedStatus, pipeline.DisplayName(withURL[0]))
	assert.Equal(t, ActionFetchPage, pipeline.DisplayName(withURL[1]))
	assert.Equal(t, ActionCleanHTML, pipeline.DisplayName(withContent[1]))
	assert.Len(t, withURL, len(withContent)+1)
}

func TestNotePipelineFetchesByURL(t *testing.T) {
	repo := &fakeRepo{}
	fetcher := &fakeFetcher{page: recipePage}
	deps := noteDeps(repo, &fakeQueue{}, &fakeNotifier{}, fetcher)
	reg := pipeline.NewRegistry[Deps]()
	RegisterNoteActions(reg)

	payload := NotePayload{ImportID: uuid.New(), UserID: uuid.New(), URL: "https://example.com/recipe"}
	actions, err := BuildNotePipeline(reg, deps, payload)
	require.NoError(t, err)

	out, err := testExecutor().Run(context.Background(), noteContext(), actions, payload)
	require.NoError(t, err)

	saved := out.(SavedNote)
	assert.Equal(t, 1, fetcher.pageCalls)
	assert.Equal(t, "Tomato Soup", saved.Recipe.Title)
	// URL payloads inherit the page URL as the recipe source.
	assert.Equal(t, "https://example.com/recipe", saved.Note.Note.SourceURL)
}

func TestNotePipelineSucceedsWhenSchedulingFails(t *testing.T) {
	repo := &fakeRepo{}
	q := &fakeQueue{err: assert.AnError}
	deps := noteDeps(repo, q, &fakeNotifier{}, &fakeFetcher{})
	reg := pipeline.NewRegistry[Deps]()
	RegisterNoteActions(reg)

	payload := NotePayload{ImportID: uuid.New(), UserID: uuid.New(), Content: recipePage}
	actions, err := BuildNotePipeline(reg, deps, payload)
	require.NoError(t, err)

	// Scheduling steps are best-effort: the note is still saved and the
	// pipeline still resolves.
	out, err := testExecutor().Run(context.Background(), noteContext(), actions, payload)
	require.NoError(t, err)
	require.NotNil(t, repo.note)
	assert.IsType(t, SavedNote{}, out)
}

func TestNotePipelineFailsFastOnParseError(t *testing.T) {
	repo := &fakeRepo{}
	q := &fakeQueue{}
	deps := noteDeps(repo, q, &fakeNotifier{}, &fakeFetcher{})
	reg := pipeline.NewRegistry[Deps]()
	RegisterNoteActions(reg)

	payload := NotePayload{ImportID: uuid.New(), UserID: uuid.New(), Content: "<p>not a recipe at all</p>"}
	actions, err := BuildNotePipeline(reg, deps, payload)
	require.NoError(t, err)

	_, err = testExecutor().Run(context.Background(), noteContext(), actions, payload)
	require.Error(t, err)

	// Nothing downstream of the failure ran.
	assert.Nil(t, repo.note)
	assert.Empty(t, q.added)
}
