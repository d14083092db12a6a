package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/auth"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/summarizer"
)

// NotePublisher receives note change notifications for broadcast.
type NotePublisher interface {
	PublishNoteEvent(kind, id string)
}

// Handler holds API route handlers.
type Handler struct {
	svc    *noteservice.Service
	events NotePublisher
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(svc *noteservice.Service, events NotePublisher) *Handler {
	return &Handler{svc: svc, events: events}
}

func (h *Handler) publish(kind, id string) {
	if h.events != nil {
		h.events.PublishNoteEvent(kind, id)
	}
}

// userID extracts the authenticated identity placed by IdentityMiddleware.
func userID(r *http.Request) (string, bool) {
	return auth.UserID(r.Context())
}

// writeServiceError maps service-layer failures onto HTTP responses.
func writeServiceError(w http.ResponseWriter, err error, op string) {
	var verr validation.Errors
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, messageBody("Note not found"))
	case errors.Is(err, apperr.ErrForbidden):
		// Same body whether or not the note exists; non-owners learn nothing.
		writeJSON(w, http.StatusForbidden, messageBody("Unauthorized"))
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(verr))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, messageBody("internal error"))
	}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List the caller's notes, newest first
//	@Tags			notes
//	@Produce		json
//	@Param			page		query		int	false	"Page number (1-based)"
//	@Param			page_size	query		int	false	"Page size (default 20)"
//	@Success		200			{object}	NoteListResponse
//	@Failure		401			{object}	msgResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageBody("Unauthenticated"))
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = noteservice.DefaultPageSize
	}

	notes, total, err := h.svc.ListNotes(r.Context(), uid, page, pageSize)
	if err != nil {
		writeServiceError(w, err, "list notes")
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{
		Notes:    notes,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteResponse
//	@Failure		422		{object}	validationResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageBody("Unauthenticated"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageBody("invalid JSON body"))
		return
	}

	note, err := h.svc.CreateNote(r.Context(), uid, noteservice.CreateParams{
		Title:          req.Title,
		Content:        req.Content,
		IsConversation: req.IsConversation,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		writeServiceError(w, err, "create note")
		return
	}
	h.publish("created", note.ID)
	writeJSON(w, http.StatusCreated, NoteResponse{Message: "Note created successfully", Note: note})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	models.Note
//	@Failure		403	{object}	msgResponse
//	@Failure		404	{object}	msgResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageBody("Unauthenticated"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "get note")
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// UpdateNote handles PUT/PATCH /api/notes/{id}.
//
//	@Summary		Partially update a note's title and/or content
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		UpdateNoteRequest	true	"Fields to change"
//	@Success		200		{object}	NoteResponse
//	@Failure		403		{object}	msgResponse
//	@Failure		404		{object}	msgResponse
//	@Failure		422		{object}	validationResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageBody("Unauthenticated"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageBody("invalid JSON body"))
		return
	}

	note, err := h.svc.UpdateNote(r.Context(), uid, chi.URLParam(r, "id"), noteservice.UpdateParams{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		writeServiceError(w, err, "update note")
		return
	}
	h.publish("updated", note.ID)
	writeJSON(w, http.StatusOK, NoteResponse{Message: "Note updated successfully", Note: note})
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note permanently
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	msgResponse
//	@Failure		403	{object}	msgResponse
//	@Failure		404	{object}	msgResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageBody("Unauthenticated"))
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteNote(r.Context(), uid, id); err != nil {
		writeServiceError(w, err, "delete note")
		return
	}
	h.publish("deleted", id)
	writeJSON(w, http.StatusOK, messageBody("Note deleted successfully"))
}

// SummarizeNote handles POST /api/notes/{id}/summarize.
//
//	@Summary		Summarize a note via the AI service and persist the result
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Note id"
//	@Param			body	body		SummarizeNoteRequest	true	"Requested maximum summary length"
//	@Success		200		{object}	SummarizeResponse
//	@Failure		403		{object}	msgResponse
//	@Failure		404		{object}	msgResponse
//	@Failure		422		{object}	validationResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/summarize [post]
func (h *Handler) SummarizeNote(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageBody("Unauthenticated"))
		return
	}
	var req SummarizeNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageBody("invalid JSON body"))
		return
	}

	id := chi.URLParam(r, "id")
	res, err := h.svc.Summarize(r.Context(), uid, id, req.MaxLength)
	if err != nil {
		var serr *summarizer.Error
		if errors.As(err, &serr) {
			slog.Error("summarize failed",
				slog.String("note_id", id),
				slog.String("reason", string(serr.Reason)),
				slog.String("error", serr.Error()))
			body := errResponse{Message: "Failed to summarize note", Error: serr.Error()}
			if serr.Reason == summarizer.ReasonRejected {
				body = errResponse{Message: "AI service error", Error: serr.Body}
			}
			writeJSON(w, http.StatusInternalServerError, body)
			return
		}
		writeServiceError(w, err, "summarize note")
		return
	}
	h.publish("summarized", id)
	writeJSON(w, http.StatusOK, SummarizeResponse{
		Message: "Note summarized successfully",
		Summary: res.Summary,
		AIModel: res.Model,
		Note:    res.Note,
	})
}

// ListConversations handles GET /api/notes/conversations.
//
//	@Summary		List the caller's conversation threads
//	@Tags			conversations
//	@Produce		json
//	@Success		200	{array}		models.ConversationHead
//	@Failure		401	{object}	msgResponse
//	@Security		BearerAuth
//	@Router			/notes/conversations [get]
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageBody("Unauthenticated"))
		return
	}
	heads, err := h.svc.ListConversations(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err, "list conversations")
		return
	}
	writeJSON(w, http.StatusOK, heads)
}

// ConversationThread handles GET /api/notes/conversations/{conversationID}.
//
//	@Summary		Get a conversation thread in chronological order
//	@Tags			conversations
//	@Produce		json
//	@Param			conversationID	path		string	true	"Conversation id"
//	@Success		200				{array}		models.Note
//	@Failure		401				{object}	msgResponse
//	@Security		BearerAuth
//	@Router			/notes/conversations/{conversationID} [get]
func (h *Handler) ConversationThread(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageBody("Unauthenticated"))
		return
	}
	thread, err := h.svc.ConversationThread(r.Context(), uid, chi.URLParam(r, "conversationID"))
	if err != nil {
		writeServiceError(w, err, "conversation thread")
		return
	}
	writeJSON(w, http.StatusOK, thread)
}
