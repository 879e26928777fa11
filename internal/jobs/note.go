package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/recipe-importer/internal/parser"
	"github.com/jonathan/recipe-importer/internal/pipeline"
	"github.com/jonathan/recipe-importer/internal/types"
)

// Note pipeline action names.
const (
	ActionNoteStartedStatus    = "note_started_status"
	ActionFetchPage            = "fetch_page"
	ActionCleanHTML            = "clean_html"
	ActionParseHTML            = "parse_html"
	ActionSaveNote             = "save_note"
	ActionScheduleInstructions = "schedule_instructions"
	ActionScheduleFollowups    = "schedule_followup_tasks"
	ActionNoteCompletedStatus  = "note_completed_status"
)

// RegisterNoteActions fills a registry with the note pipeline's actions.
func RegisterNoteActions(reg *pipeline.Registry[Deps]) {
	reg.Register(ActionNoteStartedStatus, newNoteStartedStatus)
	reg.Register(ActionFetchPage, newFetchPage)
	reg.Register(ActionCleanHTML, newCleanHTML)
	reg.Register(ActionParseHTML, newParseHTML)
	reg.Register(ActionSaveNote, newSaveNote)
	reg.Register(ActionScheduleInstructions, newScheduleInstructions)
	reg.Register(ActionScheduleFollowups, newScheduleFollowups)
	reg.Register(ActionNoteCompletedStatus, newNoteCompletedStatus)
}

// BuildNotePipeline composes the note import pipeline. The fetch step is
// included only when the payload arrives with a URL and no raw content. The
// parse and save steps get the retry policy; status and scheduling steps are
// best-effort so their failure never loses an already-saved note.
func BuildNotePipeline(reg *pipeline.Registry[Deps], deps Deps, payload NotePayload) ([]pipeline.Action, error) {
	var names []string
	if payload.Content == "" {
		names = append(names, ActionFetchPage)
	}
	names = append(names, ActionCleanHTML, ActionParseHTML, ActionSaveNote)

	actions := make([]pipeline.Action, 0, len(names)+4)

	started, err := reg.Create(ActionNoteStartedStatus, deps)
	if err != nil {
		return nil, err
	}
	actions = append(actions, bestEffort(started, deps))

	for _, name := range names {
		a, err := reg.Create(name, deps)
		if err != nil {
			return nil, err
		}
		if name != ActionCleanHTML {
			a = retried(a, deps)
		}
		actions = append(actions, a)
	}

	for _, name := range []string{ActionScheduleInstructions, ActionScheduleFollowups, ActionNoteCompletedStatus} {
		a, err := reg.Create(name, deps)
		if err != nil {
			return nil, err
		}
		actions = append(actions, bestEffort(a, deps))
	}
	return actions, nil
}

func newNoteStartedStatus(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[NotePayload, NotePayload]{
		Name: ActionNoteStartedStatus,
		Run: func(ctx context.Context, p NotePayload) (NotePayload, error) {
			if err := d.Repo.SetImportStatus(ctx, p.ImportID, types.ImportProcessing, nil, ""); err != nil {
				return NotePayload{}, err
			}
			if err := notify(ctx, d, p.ImportID, nil, types.ImportProcessing, "import started", 0); err != nil {
				return NotePayload{}, err
			}
			return p, nil
		},
	})
}

func newFetchPage(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[NotePayload, NotePayload]{
		Name:      ActionFetchPage,
		Retryable: true,
		Validate: func(p NotePayload) error {
			if p.URL == "" {
				return errors.New("url is required")
			}
			return nil
		},
		Run: func(ctx context.Context, p NotePayload) (NotePayload, error) {
			html, err := d.Fetcher.FetchPage(ctx, p.URL)
			if err != nil {
				return NotePayload{}, fmt.Errorf("failed to fetch %s: %w", p.URL, err)
			}
			p.Content = html
			return p, nil
		},
	})
}

func newCleanHTML(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[NotePayload, NotePayload]{
		Name: ActionCleanHTML,
		Validate: func(p NotePayload) error {
			if p.Content == "" {
				return errors.New("content is required")
			}
			return nil
		},
		Run: func(_ context.Context, p NotePayload) (NotePayload, error) {
			p.Content = parser.CleanHTML(p.Content)
			return p, nil
		},
	})
}

func newParseHTML(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[NotePayload, ParsedNote]{
		Name: ActionParseHTML,
		Validate: func(p NotePayload) error {
			if p.Content == "" {
				return errors.New("content is required")
			}
			return nil
		},
		Run: func(ctx context.Context, p NotePayload) (ParsedNote, error) {
			recipe, err := d.Parser.ParseHTML(ctx, p.Content)
			if err != nil {
				return ParsedNote{}, err
			}
			if recipe.SourceURL == "" {
				recipe.SourceURL = p.URL
			}
			return ParsedNote{NotePayload: p, Recipe: recipe}, nil
		},
	})
}

func newSaveNote(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[ParsedNote, SavedNote]{
		Name:      ActionSaveNote,
		Retryable: true,
		Validate: func(p ParsedNote) error {
			if p.Recipe == nil {
				return errors.New("recipe is required")
			}
			return nil
		},
		Run: func(ctx context.Context, p ParsedNote) (SavedNote, error) {
			note, err := d.Repo.CreateNote(ctx, p.UserID, p.Recipe)
			if err != nil {
				return SavedNote{}, fmt.Errorf("failed to save note: %w", err)
			}
			return SavedNote{ParsedNote: p, Note: note}, nil
		},
	})
}

func newScheduleInstructions(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[SavedNote, SavedNote]{
		Name: ActionScheduleInstructions,
		Run: func(ctx context.Context, p SavedNote) (SavedNote, error) {
			ref := NoteRef{ImportID: p.ImportID, NoteID: p.Note.Note.ID}
			if _, err := d.Queue.Add(ctx, QueueInstruction, OpImportInstructions, ref); err != nil {
				return SavedNote{}, fmt.Errorf("failed to schedule instructions job: %w", err)
			}
			return p, nil
		},
	})
}

func newScheduleFollowups(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[SavedNote, SavedNote]{
		Name: ActionScheduleFollowups,
		Run: func(ctx context.Context, p SavedNote) (SavedNote, error) {
			noteID := p.Note.Note.ID
			ref := NoteRef{ImportID: p.ImportID, NoteID: noteID}

			if _, err := d.Queue.Add(ctx, QueueIngredient, OpImportIngredients, ref); err != nil {
				return SavedNote{}, fmt.Errorf("failed to schedule ingredients job: %w", err)
			}
			if _, err := d.Queue.Add(ctx, QueueCategorize, OpCategorizeNote, ref); err != nil {
				return SavedNote{}, fmt.Errorf("failed to schedule categorize job: %w", err)
			}
			img := ImagePayload{ImportID: p.ImportID, NoteID: noteID, URL: p.Recipe.ImageURL}
			if _, err := d.Queue.Add(ctx, QueueImage, OpImportImage, img); err != nil {
				return SavedNote{}, fmt.Errorf("failed to schedule image job: %w", err)
			}
			return p, nil
		},
	})
}

func newNoteCompletedStatus(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[SavedNote, SavedNote]{
		Name: ActionNoteCompletedStatus,
		Run: func(ctx context.Context, p SavedNote) (SavedNote, error) {
			noteID := p.Note.Note.ID
			if err := d.Repo.SetImportStatus(ctx, p.ImportID, types.ImportNoteCreated, &noteID, ""); err != nil {
				return SavedNote{}, err
			}
			msg := fmt.Sprintf("note %q created", p.Note.Note.Title)
			if err := notify(ctx, d, p.ImportID, &noteID, types.ImportNoteCreated, msg, 0); err != nil {
				return SavedNote{}, err
			}
			return p, nil
		},
	})
}
