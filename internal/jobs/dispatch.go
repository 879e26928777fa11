package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/recipe-importer/internal/pipeline"
)

// Pipelines owns one action registry per job type and dispatches a queued
// operation to the matching builder. Registries are per job type so one
// pipeline's action names cannot collide with another's.
type Pipelines struct {
	deps Deps

	note        *pipeline.Registry[Deps]
	image       *pipeline.Registry[Deps]
	ingredient  *pipeline.Registry[Deps]
	instruction *pipeline.Registry[Deps]
	categorize  *pipeline.Registry[Deps]
}

// NewPipelines registers every job type's actions and returns the dispatcher.
func NewPipelines(deps Deps) *Pipelines {
	p := &Pipelines{
		deps:        deps,
		note:        pipeline.NewRegistry[Deps](),
		image:       pipeline.NewRegistry[Deps](),
		ingredient:  pipeline.NewRegistry[Deps](),
		instruction: pipeline.NewRegistry[Deps](),
		categorize:  pipeline.NewRegistry[Deps](),
	}
	RegisterNoteActions(p.note)
	RegisterImageActions(p.image)
	RegisterIngredientActions(p.ingredient)
	RegisterInstructionActions(p.instruction)
	RegisterCategorizeActions(p.categorize)
	return p
}

// QueueFor maps an operation to the queue its jobs live on.
func QueueFor(operation string) (string, error) {
	switch operation {
	case OpImportNote:
		return QueueNote, nil
	case OpImportImage:
		return QueueImage, nil
	case OpImportIngredients:
		return QueueIngredient, nil
	case OpImportInstructions:
		return QueueInstruction, nil
	case OpCategorizeNote:
		return QueueCategorize, nil
	default:
		return "", fmt.Errorf("jobs: unknown operation %q", operation)
	}
}

// Build decodes rawPayload for the given operation and composes its pipeline.
// It returns the ordered action list and the initial data value the executor
// starts from.
func (p *Pipelines) Build(operation string, rawPayload []byte) ([]pipeline.Action, any, error) {
	switch operation {
	case OpImportNote:
		var payload NotePayload
		if err := json.Unmarshal(rawPayload, &payload); err != nil {
			return nil, nil, fmt.Errorf("jobs: bad %s payload: %w", operation, err)
		}
		actions, err := BuildNotePipeline(p.note, p.deps, payload)
		return actions, payload, err

	case OpImportImage:
		var payload ImagePayload
		if err := json.Unmarshal(rawPayload, &payload); err != nil {
			return nil, nil, fmt.Errorf("jobs: bad %s payload: %w", operation, err)
		}
		actions, err := BuildImagePipeline(p.image, p.deps, payload)
		return actions, payload, err

	case OpImportIngredients:
		var payload NoteRef
		if err := json.Unmarshal(rawPayload, &payload); err != nil {
			return nil, nil, fmt.Errorf("jobs: bad %s payload: %w", operation, err)
		}
		actions, err := BuildIngredientPipeline(p.ingredient, p.deps, payload)
		return actions, payload, err

	case OpImportInstructions:
		var payload NoteRef
		if err := json.Unmarshal(rawPayload, &payload); err != nil {
			return nil, nil, fmt.Errorf("jobs: bad %s payload: %w", operation, err)
		}
		actions, err := BuildInstructionPipeline(p.instruction, p.deps, payload)
		return actions, payload, err

	case OpCategorizeNote:
		var payload NoteRef
		if err := json.Unmarshal(rawPayload, &payload); err != nil {
			return nil, nil, fmt.Errorf("jobs: bad %s payload: %w", operation, err)
		}
		actions, err := BuildCategorizePipeline(p.categorize, p.deps, payload)
		return actions, payload, err

	default:
		return nil, nil, fmt.Errorf("jobs: unknown operation %q", operation)
	}
}
