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

func loadedNoteFixture(importID uuid.UUID) *fakeRepo {
	noteID := uuid.New()
	return &fakeRepo{
		note: &types.NoteWithLines{
			Note: types.Note{ID: noteID, Title: "Tomato Soup"},
			IngredientLines: []types.NoteLine{
				{ID: uuid.New(), Text: "2 cups tomatoes", Seq: 1},
				{ID: uuid.New(), Text: "1 onion", Seq: 2},
				{ID: uuid.New(), Text: "salt to taste", Seq: 3},
			},
			InstructionLines: []types.NoteLine{
				{ID: uuid.New(), Text: "Step 1: Chop the onion.", Seq: 1},
				{ID: uuid.New(), Text: "2. Simmer everything.", Seq: 2},
			},
		},
	}
}

func lineContext(queue, op string) *pipeline.ActionContext {
	return &pipeline.ActionContext{
		JobID:     uuid.New(),
		Queue:     queue,
		Operation: op,
		Worker:    "test-worker",
		Attempt:   1,
	}
}

func TestIngredientPipelineParsesAndSaves(t *testing.T) {
	importID := uuid.New()
	repo := loadedNoteFixture(importID)
	n := &fakeNotifier{}
	deps := Deps{Repo: repo, Notifier: n, Log: quietLogger(), Retry: fastRetry()}

	reg := pipeline.NewRegistry[Deps]()
	RegisterIngredientActions(reg)

	payload := NoteRef{ImportID: importID, NoteID: repo.note.Note.ID}
	actions, err := BuildIngredientPipeline(reg, deps, payload)
	require.NoError(t, err)

	_, err = testExecutor().Run(context.Background(),
		lineContext(QueueIngredient, OpImportIngredients), actions, payload)
	require.NoError(t, err)

	require.Len(t, repo.ingredients, 3)
	assert.Equal(t, types.Ingredient{NoteID: payload.NoteID, Quantity: "2", Unit: "cup", Name: "tomatoes", Seq: 1}, repo.ingredients[0])
	assert.Equal(t, types.Ingredient{NoteID: payload.NoteID, Quantity: "1", Name: "onion", Seq: 2}, repo.ingredients[1])
	assert.Equal(t, types.Ingredient{NoteID: payload.NoteID, Name: "salt to taste", Seq: 3}, repo.ingredients[2])

	require.Len(t, n.events, 1)
	assert.Equal(t, types.ImportIngredientsComplete, n.events[0].Status)
	assert.Equal(t, 3, n.events[0].Count)
}

func TestInstructionPipelineNormalizesSteps(t *testing.T) {
	importID := uuid.New()
	repo := loadedNoteFixture(importID)
	n := &fakeNotifier{}
	deps := Deps{Repo: repo, Notifier: n, Log: quietLogger(), Retry: fastRetry()}

	reg := pipeline.NewRegistry[Deps]()
	RegisterInstructionActions(reg)

	payload := NoteRef{ImportID: importID, NoteID: repo.note.Note.ID}
	actions, err := BuildInstructionPipeline(reg, deps, payload)
	require.NoError(t, err)

	_, err = testExecutor().Run(context.Background(),
		lineContext(QueueInstruction, OpImportInstructions), actions, payload)
	require.NoError(t, err)

	require.Len(t, repo.instructions, 2)
	// Step-number prefixes are stripped during normalization.
	assert.Equal(t, "Chop the onion.", repo.instructions[0].Text)
	assert.Equal(t, "Simmer everything.", repo.instructions[1].Text)
	assert.Equal(t, 1, repo.instructions[0].Seq)
	assert.Equal(t, 2, repo.instructions[1].Seq)

	require.Len(t, n.events, 1)
	assert.Equal(t, types.ImportInstructionsComplete, n.events[0].Status)
}

func TestLoadNoteValidatesNoteID(t *testing.T) {
	deps := Deps{Repo: &fakeRepo{}, Log: quietLogger()}
	reg := pipeline.NewRegistry[Deps]()
	RegisterIngredientActions(reg)

	load, err := reg.Create(ActionLoadNote, deps)
	require.NoError(t, err)

	err = load.ValidateInput(NoteRef{ImportID: uuid.New()})
	assert.ErrorContains(t, err, "note id is required")
}
