package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/recipe-importer/internal/llm"
	"github.com/jonathan/recipe-importer/internal/pipeline"
	"github.com/jonathan/recipe-importer/internal/schemas"
	"github.com/jonathan/recipe-importer/internal/types"
)

// Categorize pipeline action names.
const (
	ActionCategorizeNote            = "categorize_note"
	ActionSaveCategories            = "save_categories"
	ActionCategorizeCompletedStatus = "categorize_completed_status"
	ActionCategorizeSkippedStatus   = "categorize_skipped_status"
)

// RegisterCategorizeActions fills a registry with the categorize pipeline's
// actions.
func RegisterCategorizeActions(reg *pipeline.Registry[Deps]) {
	reg.Register(ActionLoadNote, newLoadNote)
	reg.Register(ActionCategorizeNote, newCategorizeNote)
	reg.Register(ActionSaveCategories, newSaveCategories)
	reg.Register(ActionCategorizeCompletedStatus, newCategorizeCompletedStatus)
	reg.Register(ActionCategorizeSkippedStatus, newCategorizeSkippedStatus)
}

// BuildCategorizePipeline composes the categorization pipeline. The LLM call
// gets the retry policy; saving labels and the final status are best-effort
// so a model outage never marks the whole import failed. A worker without an
// LLM configured reduces to the final status step, since this pipeline owns
// marking the import completed.
func BuildCategorizePipeline(reg *pipeline.Registry[Deps], deps Deps, _ NoteRef) ([]pipeline.Action, error) {
	if deps.LLM == nil {
		status, err := reg.Create(ActionCategorizeSkippedStatus, deps)
		if err != nil {
			return nil, err
		}
		return []pipeline.Action{bestEffort(status, deps)}, nil
	}

	load, err := reg.Create(ActionLoadNote, deps)
	if err != nil {
		return nil, err
	}
	categorize, err := reg.Create(ActionCategorizeNote, deps)
	if err != nil {
		return nil, err
	}
	save, err := reg.Create(ActionSaveCategories, deps)
	if err != nil {
		return nil, err
	}
	status, err := reg.Create(ActionCategorizeCompletedStatus, deps)
	if err != nil {
		return nil, err
	}
	return []pipeline.Action{
		retried(load, deps),
		retried(categorize, deps),
		bestEffort(pipeline.Retry(save, deps.retryConfig(), deps.logger()), deps),
		bestEffort(status, deps),
	}, nil
}

func newCategorizeNote(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[LoadedNote, CategorizedNote]{
		Name:      ActionCategorizeNote,
		Retryable: true,
		Validate: func(p LoadedNote) error {
			if p.Note == nil {
				return errors.New("note is required")
			}
			return nil
		},
		Run: func(ctx context.Context, p LoadedNote) (CategorizedNote, error) {
			ingredients := make([]string, len(p.Note.IngredientLines))
			for i, line := range p.Note.IngredientLines {
				ingredients[i] = line.Text
			}
			instructions := make([]string, len(p.Note.InstructionLines))
			for i, line := range p.Note.InstructionLines {
				instructions[i] = line.Text
			}

			prompt := llm.BuildCategorizePrompt(d.Labels, p.Note.Note.Title, ingredients, instructions)
			raw, err := d.LLM.GenerateJSON(ctx, prompt)
			if err != nil {
				return CategorizedNote{}, fmt.Errorf("failed to categorize note %s: %w", p.NoteID, err)
			}
			if err := schemas.ValidateCategories(raw); err != nil {
				return CategorizedNote{}, fmt.Errorf("model returned invalid categories: %w", err)
			}

			var resp struct {
				Categories []string `json:"categories"`
			}
			if err := json.Unmarshal([]byte(raw), &resp); err != nil {
				return CategorizedNote{}, fmt.Errorf("failed to decode categories: %w", err)
			}

			categories := filterAllowed(resp.Categories, d.Labels)
			if len(categories) == 0 {
				return CategorizedNote{}, fmt.Errorf("model returned no categories from the allowed list")
			}
			return CategorizedNote{LoadedNote: p, Categories: categories}, nil
		},
	})
}

// filterAllowed keeps categories present in the vocabulary, case-insensitive,
// deduplicated, in model order.
func filterAllowed(categories, labels []string) []string {
	if len(labels) == 0 {
		labels = llm.DefaultLabels
	}
	allowed := make(map[string]string, len(labels))
	for _, l := range labels {
		allowed[strings.ToLower(l)] = l
	}

	var out []string
	seen := make(map[string]bool)
	for _, c := range categories {
		canonical, ok := allowed[strings.ToLower(strings.TrimSpace(c))]
		if !ok || seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}
	return out
}

func newSaveCategories(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[CategorizedNote, CategorizedNote]{
		Name:      ActionSaveCategories,
		Retryable: true,
		Validate: func(p CategorizedNote) error {
			if len(p.Categories) == 0 {
				return errors.New("categories are required")
			}
			return nil
		},
		Run: func(ctx context.Context, p CategorizedNote) (CategorizedNote, error) {
			if err := d.Repo.SetNoteLabels(ctx, p.NoteID, p.Categories); err != nil {
				return CategorizedNote{}, fmt.Errorf("failed to save categories: %w", err)
			}
			return p, nil
		},
	})
}

func newCategorizeSkippedStatus(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[NoteRef, NoteRef]{
		Name: ActionCategorizeSkippedStatus,
		Run: func(ctx context.Context, p NoteRef) (NoteRef, error) {
			if err := d.Repo.SetImportStatus(ctx, p.ImportID, types.ImportCompleted, &p.NoteID, ""); err != nil {
				return NoteRef{}, err
			}
			if err := notify(ctx, d, p.ImportID, &p.NoteID, types.ImportCategorized, "categorization skipped", 0); err != nil {
				return NoteRef{}, err
			}
			return p, nil
		},
	})
}

func newCategorizeCompletedStatus(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[CategorizedNote, CategorizedNote]{
		Name: ActionCategorizeCompletedStatus,
		Run: func(ctx context.Context, p CategorizedNote) (CategorizedNote, error) {
			if err := d.Repo.SetImportStatus(ctx, p.ImportID, types.ImportCompleted, &p.NoteID, ""); err != nil {
				return CategorizedNote{}, err
			}
			msg := fmt.Sprintf("categorized as %s", strings.Join(p.Categories, ", "))
			if err := notify(ctx, d, p.ImportID, &p.NoteID, types.ImportCategorized, msg, len(p.Categories)); err != nil {
				return CategorizedNote{}, err
			}
			return p, nil
		},
	})
}
