package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/recipe-importer/internal/parser"
	"github.com/jonathan/recipe-importer/internal/pipeline"
	"github.com/jonathan/recipe-importer/internal/types"
)

// Ingredient and instruction pipeline action names. load_note is shared with
// the categorize pipeline; each job type registers it in its own registry.
const (
	ActionLoadNote                    = "load_note"
	ActionSaveIngredients             = "save_ingredients"
	ActionSaveInstructions            = "save_instructions"
	ActionIngredientsCompletedStatus  = "ingredients_completed_status"
	ActionInstructionsCompletedStatus = "instructions_completed_status"
)

// RegisterIngredientActions fills a registry with the ingredient pipeline's
// actions.
func RegisterIngredientActions(reg *pipeline.Registry[Deps]) {
	reg.Register(ActionLoadNote, newLoadNote)
	reg.Register(ActionSaveIngredients, newSaveIngredients)
	reg.Register(ActionIngredientsCompletedStatus, newIngredientsCompletedStatus)
}

// RegisterInstructionActions fills a registry with the instruction
// pipeline's actions.
func RegisterInstructionActions(reg *pipeline.Registry[Deps]) {
	reg.Register(ActionLoadNote, newLoadNote)
	reg.Register(ActionSaveInstructions, newSaveInstructions)
	reg.Register(ActionInstructionsCompletedStatus, newInstructionsCompletedStatus)
}

// BuildIngredientPipeline composes the ingredient extraction pipeline.
func BuildIngredientPipeline(reg *pipeline.Registry[Deps], deps Deps, _ NoteRef) ([]pipeline.Action, error) {
	return buildLinePipeline(reg, deps, ActionSaveIngredients, ActionIngredientsCompletedStatus)
}

// BuildInstructionPipeline composes the instruction extraction pipeline.
func BuildInstructionPipeline(reg *pipeline.Registry[Deps], deps Deps, _ NoteRef) ([]pipeline.Action, error) {
	return buildLinePipeline(reg, deps, ActionSaveInstructions, ActionInstructionsCompletedStatus)
}

func buildLinePipeline(reg *pipeline.Registry[Deps], deps Deps, saveName, statusName string) ([]pipeline.Action, error) {
	load, err := reg.Create(ActionLoadNote, deps)
	if err != nil {
		return nil, err
	}
	save, err := reg.Create(saveName, deps)
	if err != nil {
		return nil, err
	}
	status, err := reg.Create(statusName, deps)
	if err != nil {
		return nil, err
	}
	return []pipeline.Action{
		retried(load, deps),
		retried(save, deps),
		bestEffort(status, deps),
	}, nil
}

func newLoadNote(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[NoteRef, LoadedNote]{
		Name:      ActionLoadNote,
		Retryable: true,
		Validate: func(p NoteRef) error {
			if p.NoteID == uuid.Nil {
				return errors.New("note id is required")
			}
			return nil
		},
		Run: func(ctx context.Context, p NoteRef) (LoadedNote, error) {
			note, err := d.Repo.GetNoteWithLines(ctx, p.NoteID)
			if err != nil {
				return LoadedNote{}, fmt.Errorf("failed to load note %s: %w", p.NoteID, err)
			}
			return LoadedNote{NoteRef: p, Note: note}, nil
		},
	})
}

func newSaveIngredients(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[LoadedNote, LoadedNote]{
		Name:      ActionSaveIngredients,
		Retryable: true,
		Run: func(ctx context.Context, p LoadedNote) (LoadedNote, error) {
			ingredients := make([]types.Ingredient, 0, len(p.Note.IngredientLines))
			for _, line := range p.Note.IngredientLines {
				parts := parser.ParseIngredientLine(line.Text)
				ingredients = append(ingredients, types.Ingredient{
					NoteID:   p.NoteID,
					Quantity: parts.Quantity,
					Unit:     parts.Unit,
					Name:     parts.Name,
					Seq:      line.Seq,
				})
			}
			if err := d.Repo.CreateIngredients(ctx, p.NoteID, ingredients); err != nil {
				return LoadedNote{}, fmt.Errorf("failed to save ingredients: %w", err)
			}
			return p, nil
		},
	})
}

func newSaveInstructions(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[LoadedNote, LoadedNote]{
		Name:      ActionSaveInstructions,
		Retryable: true,
		Run: func(ctx context.Context, p LoadedNote) (LoadedNote, error) {
			raw := make([]string, len(p.Note.InstructionLines))
			for i, line := range p.Note.InstructionLines {
				raw[i] = line.Text
			}
			steps := parser.NormalizeInstructions(raw)

			instructions := make([]types.Instruction, len(steps))
			for i, text := range steps {
				instructions[i] = types.Instruction{NoteID: p.NoteID, Text: text, Seq: i + 1}
			}
			if err := d.Repo.CreateInstructions(ctx, p.NoteID, instructions); err != nil {
				return LoadedNote{}, fmt.Errorf("failed to save instructions: %w", err)
			}
			return p, nil
		},
	})
}

func newIngredientsCompletedStatus(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[LoadedNote, LoadedNote]{
		Name: ActionIngredientsCompletedStatus,
		Run: func(ctx context.Context, p LoadedNote) (LoadedNote, error) {
			n := len(p.Note.IngredientLines)
			msg := fmt.Sprintf("%d ingredients saved", n)
			if err := notify(ctx, d, p.ImportID, &p.NoteID, types.ImportIngredientsComplete, msg, n); err != nil {
				return LoadedNote{}, err
			}
			return p, nil
		},
	})
}

func newInstructionsCompletedStatus(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[LoadedNote, LoadedNote]{
		Name: ActionInstructionsCompletedStatus,
		Run: func(ctx context.Context, p LoadedNote) (LoadedNote, error) {
			n := len(p.Note.InstructionLines)
			msg := fmt.Sprintf("%d instructions saved", n)
			if err := notify(ctx, d, p.ImportID, &p.NoteID, types.ImportInstructionsComplete, msg, n); err != nil {
				return LoadedNote{}, err
			}
			return p, nil
		},
	})
}
