package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/recipe-importer/internal/types"
)

// CreateImport records a new import request in pending state.
func (db *DB) CreateImport(ctx context.Context, userID uuid.UUID, url string) (*types.Import, error) {
	var imp types.Import
	err := db.pool.QueryRow(ctx,
		`INSERT INTO imports (user_id, url, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, user_id, url, status, note_id, error, created_at, updated_at`,
		userID, url, types.ImportPending,
	).Scan(&imp.ID, &imp.UserID, &imp.URL, &imp.Status, &imp.NoteID, &imp.Error,
		&imp.CreatedAt, &imp.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create import: %w", err)
	}
	return &imp, nil
}

// GetImport loads an import by id. Returns nil when not found.
func (db *DB) GetImport(ctx context.Context, id uuid.UUID) (*types.Import, error) {
	var imp types.Import
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, url, status, note_id, error, created_at, updated_at
		 FROM imports WHERE id = $1`, id,
	).Scan(&imp.ID, &imp.UserID, &imp.URL, &imp.Status, &imp.NoteID, &imp.Error,
		&imp.CreatedAt, &imp.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get import: %w", err)
	}
	return &imp, nil
}

// SetImportStatus updates an import's status, and optionally its note id and
// error message.
func (db *DB) SetImportStatus(ctx context.Context, id uuid.UUID, status types.ImportStatus, noteID *uuid.UUID, errMsg string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE imports
		 SET status = $1, note_id = COALESCE($2, note_id), error = $3, updated_at = NOW()
		 WHERE id = $4`,
		status, noteID, errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to update import status: %w", err)
	}
	return nil
}

// InsertStatusEvent persists one status event.
func (db *DB) InsertStatusEvent(ctx context.Context, ev *types.StatusEvent) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO status_events (import_id, note_id, status, message, context, count, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		ev.ImportID, ev.NoteID, ev.Status, ev.Message, ev.Context, ev.Count, ev.At,
	).Scan(&ev.ID)
	if err != nil {
		return fmt.Errorf("failed to insert status event: %w", err)
	}
	return nil
}

// ListStatusEvents returns a chronological view of an import's events.
func (db *DB) ListStatusEvents(ctx context.Context, importID uuid.UUID) ([]types.StatusEvent, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, import_id, note_id, status, message, context, count, at
		 FROM status_events WHERE import_id = $1 ORDER BY at`, importID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status events: %w", err)
	}
	defer rows.Close()

	var events []types.StatusEvent
	for rows.Next() {
		var ev types.StatusEvent
		if err := rows.Scan(&ev.ID, &ev.ImportID, &ev.NoteID, &ev.Status, &ev.Message,
			&ev.Context, &ev.Count, &ev.At); err != nil {
			return nil, fmt.Errorf("failed to scan status event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
