package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/recipe-importer/internal/types"
)

// CreateNote persists a parsed recipe as a note plus its raw ingredient and
// instruction lines, atomically. The returned NoteWithLines carries the line
// ids the follow-up pipelines operate on.
func (db *DB) CreateNote(ctx context.Context, userID uuid.UUID, recipe *types.ParsedRecipe) (*types.NoteWithLines, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var note types.Note
	err = tx.QueryRow(ctx,
		`INSERT INTO notes (user_id, title, body, source_url)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, user_id, title, body, source_url, image_key, labels, created_at, updated_at`,
		userID, recipe.Title, recipe.Description, recipe.SourceURL,
	).Scan(&note.ID, &note.UserID, &note.Title, &note.Body, &note.SourceURL,
		&note.ImageKey, &note.Labels, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	result := &types.NoteWithLines{Note: note}

	result.IngredientLines, err = insertLines(ctx, tx, note.ID, "ingredient", recipe.Ingredients)
	if err != nil {
		return nil, err
	}
	result.InstructionLines, err = insertLines(ctx, tx, note.ID, "instruction", recipe.Instructions)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit note: %w", err)
	}
	return result, nil
}

func insertLines(ctx context.Context, tx pgx.Tx, noteID uuid.UUID, kind string, lines []string) ([]types.NoteLine, error) {
	out := make([]types.NoteLine, 0, len(lines))
	for i, text := range lines {
		var line types.NoteLine
		err := tx.QueryRow(ctx,
			`INSERT INTO note_lines (note_id, kind, text, seq)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, text, seq`,
			noteID, kind, text, i,
		).Scan(&line.ID, &line.Text, &line.Seq)
		if err != nil {
			return nil, fmt.Errorf("failed to insert %s line %d: %w", kind, i, err)
		}
		out = append(out, line)
	}
	return out, nil
}

// GetNoteWithLines loads a note and its raw lines. Returns nil when the note
// does not exist.
func (db *DB) GetNoteWithLines(ctx context.Context, noteID uuid.UUID) (*types.NoteWithLines, error) {
	var note types.Note
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, title, body, source_url, image_key, labels, created_at, updated_at
		 FROM notes WHERE id = $1`, noteID,
	).Scan(&note.ID, &note.UserID, &note.Title, &note.Body, &note.SourceURL,
		&note.ImageKey, &note.Labels, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, kind, text, seq FROM note_lines WHERE note_id = $1 ORDER BY kind, seq`, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get note lines: %w", err)
	}
	defer rows.Close()

	result := &types.NoteWithLines{Note: note}
	for rows.Next() {
		var line types.NoteLine
		var kind string
		if err := rows.Scan(&line.ID, &kind, &line.Text, &line.Seq); err != nil {
			return nil, fmt.Errorf("failed to scan note line: %w", err)
		}
		switch kind {
		case "ingredient":
			result.IngredientLines = append(result.IngredientLines, line)
		case "instruction":
			result.InstructionLines = append(result.InstructionLines, line)
		}
	}
	return result, rows.Err()
}

// SetNoteImage records the stored object key for a note's image.
func (db *DB) SetNoteImage(ctx context.Context, noteID uuid.UUID, imageKey string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE notes SET image_key = $1, updated_at = NOW() WHERE id = $2`, imageKey, noteID)
	if err != nil {
		return fmt.Errorf("failed to set note image: %w", err)
	}
	return nil
}

// SetNoteLabels replaces a note's category labels.
func (db *DB) SetNoteLabels(ctx context.Context, noteID uuid.UUID, labels []string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE notes SET labels = $1, updated_at = NOW() WHERE id = $2`, labels, noteID)
	if err != nil {
		return fmt.Errorf("failed to set note labels: %w", err)
	}
	return nil
}

// CreateIngredients replaces any structured ingredients for the note. Replace
// rather than append keeps the operation idempotent under job redelivery.
func (db *DB) CreateIngredients(ctx context.Context, noteID uuid.UUID, ingredients []types.Ingredient) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM ingredients WHERE note_id = $1`, noteID); err != nil {
		return fmt.Errorf("failed to clear ingredients: %w", err)
	}
	for _, ing := range ingredients {
		_, err := tx.Exec(ctx,
			`INSERT INTO ingredients (note_id, quantity, unit, name, seq)
			 VALUES ($1, $2, $3, $4, $5)`,
			noteID, ing.Quantity, ing.Unit, ing.Name, ing.Seq)
		if err != nil {
			return fmt.Errorf("failed to insert ingredient %d: %w", ing.Seq, err)
		}
	}
	return tx.Commit(ctx)
}

// CreateInstructions replaces any structured instructions for the note.
func (db *DB) CreateInstructions(ctx context.Context, noteID uuid.UUID, instructions []types.Instruction) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM instructions WHERE note_id = $1`, noteID); err != nil {
		return fmt.Errorf("failed to clear instructions: %w", err)
	}
	for _, ins := range instructions {
		_, err := tx.Exec(ctx,
			`INSERT INTO instructions (note_id, text, seq) VALUES ($1, $2, $3)`,
			noteID, ins.Text, ins.Seq)
		if err != nil {
			return fmt.Errorf("failed to insert instruction %d: %w", ins.Seq, err)
		}
	}
	return tx.Commit(ctx)
}
