package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/recipe-importer/internal/jobs"
	"github.com/jonathan/recipe-importer/internal/server/middleware"
	"github.com/jonathan/recipe-importer/internal/types"
)

// handleCreateImport accepts a recipe URL or raw HTML, records the import
// and schedules the note job. The import runs asynchronously; the caller
// polls GET /api/imports/{id} or subscribes to the events stream.
func (s *Server) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req types.CreateImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	imp, err := s.store.CreateImport(r.Context(), userID, req.URL)
	if err != nil {
		s.log.Errorf("create import: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to create import")
		return
	}

	_, err = s.queue.Add(r.Context(), jobs.QueueNote, jobs.OpImportNote, jobs.NotePayload{
		ImportID: imp.ID,
		UserID:   userID,
		URL:      req.URL,
		Content:  req.Content,
	})
	if err != nil {
		s.log.Errorf("enqueue import %s: %v", imp.ID, err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to schedule import")
		return
	}

	s.jsonResponse(w, http.StatusAccepted, imp)
}

// handleGetImport returns the current state of one of the caller's imports.
func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	imp, ok := s.ownedImport(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, imp)
}

// handleImportEvents streams an import's status events over SSE. Persisted
// events are replayed first so late subscribers see the full history, then
// live events are forwarded until the import reaches a terminal status or
// the client disconnects.
func (s *Server) handleImportEvents(w http.ResponseWriter, r *http.Request) {
	imp, ok := s.ownedImport(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Subscribe before replaying so no event falls between the two.
	ch, cancel := s.events.Subscribe(imp.ID)
	defer cancel()

	history, err := s.store.ListStatusEvents(r.Context(), imp.ID)
	if err != nil {
		s.log.Errorf("list status events for import %s: %v", imp.ID, err)
		sse.WriteError("failed to load event history")
		return
	}

	seen := make(map[uuid.UUID]bool, len(history))
	for _, ev := range history {
		if done := emitStatusEvent(sse, imp.ID, ev, seen); done {
			return
		}
	}

	// The subscription only carries events emitted in this process. Workers
	// normally reach us through the Kafka relay; the ticker re-reads the
	// persisted events so deployments without Kafka still stream progress.
	ticker := time.NewTicker(s.ssePoll)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if done := emitStatusEvent(sse, imp.ID, ev, seen); done {
				return
			}
		case <-ticker.C:
			events, err := s.store.ListStatusEvents(r.Context(), imp.ID)
			if err != nil {
				s.log.Errorf("list status events for import %s: %v", imp.ID, err)
				continue
			}
			for _, ev := range events {
				if done := emitStatusEvent(sse, imp.ID, ev, seen); done {
					return
				}
			}
		}
	}
}

// emitStatusEvent writes one not-yet-delivered event to the stream. It
// reports true when the stream is finished, either because the import
// reached a terminal status or because the client went away.
func emitStatusEvent(sse *SSEWriter, importID uuid.UUID, ev types.StatusEvent, seen map[uuid.UUID]bool) bool {
	if seen[ev.ID] {
		return false
	}
	seen[ev.ID] = true
	if err := sse.WriteEvent("status", ev); err != nil {
		return true
	}
	if isTerminal(ev.Status) {
		sse.WriteComplete(importID.String(), string(ev.Status))
		return true
	}
	return false
}

// handleGetNote returns a note with its raw ingredient and instruction lines.
func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	noteID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid note id")
		return
	}

	note, err := s.store.GetNoteWithLines(r.Context(), noteID)
	if err != nil {
		s.log.Errorf("get note %s: %v", noteID, err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load note")
		return
	}
	if note == nil || note.Note.UserID != userID {
		notFound := &ErrNoteNotFound{NoteID: noteID}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, note)
}

// handleNoteImage serves a note's stored image from object storage.
func (s *Server) handleNoteImage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	noteID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid note id")
		return
	}

	note, err := s.store.GetNoteWithLines(r.Context(), noteID)
	if err != nil {
		s.log.Errorf("get note %s: %v", noteID, err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load note")
		return
	}
	if note == nil || note.Note.UserID != userID {
		notFound := &ErrNoteNotFound{NoteID: noteID}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return
	}
	if s.images == nil || note.Note.ImageKey == "" {
		s.errorResponse(w, http.StatusNotFound, "note has no image")
		return
	}

	data, contentType, err := s.images.Get(r.Context(), note.Note.ImageKey)
	if err != nil {
		s.log.Errorf("get image %s for note %s: %v", note.Note.ImageKey, noteID, err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load image")
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.log.Errorf("write image for note %s: %v", noteID, err)
	}
}

// ownedImport loads the import in the request path and checks it belongs to
// the authenticated user. On failure it writes the error response and
// returns ok=false.
func (s *Server) ownedImport(w http.ResponseWriter, r *http.Request) (*types.Import, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	importID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid import id")
		return nil, false
	}

	imp, err := s.store.GetImport(r.Context(), importID)
	if err != nil {
		s.log.Errorf("get import %s: %v", importID, err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load import")
		return nil, false
	}
	if imp == nil || imp.UserID != userID {
		notFound := &ErrImportNotFound{ImportID: importID}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return nil, false
	}
	return imp, true
}

func isTerminal(status types.ImportStatus) bool {
	return status == types.ImportCompleted || status == types.ImportFailed
}
