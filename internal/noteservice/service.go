// Package noteservice implements the note operations: ownership-scoped CRUD,
// conversation threads, and AI summarization.
package noteservice

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/notestore"
	"github.com/starford/ansuz/internal/summarizer"
)

// DefaultPageSize is the page size used when the caller does not supply one.
const DefaultPageSize = 20

// Service coordinates the note store and the summarization client.
type Service struct {
	store notestore.Store
	ai    summarizer.Client
}

// NewService creates a new note service.
func NewService(store notestore.Store, ai summarizer.Client) *Service {
	return &Service{store: store, ai: ai}
}

// CreateParams are the inputs for creating a note.
type CreateParams struct {
	Title          string
	Content        string
	IsConversation bool
	ConversationID string
}

// Validate enforces the creation rules: non-empty title of at most 255 runes
// and non-empty content.
func (p CreateParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.RuneLength(1, 255)),
		validation.Field(&p.Content, validation.Required),
	)
}

// UpdateParams are the inputs for a partial update. Nil fields are not changed.
type UpdateParams struct {
	Title   *string
	Content *string
}

// Validate applies the creation rules to whichever fields are supplied.
func (p UpdateParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.NilOrNotEmpty, validation.RuneLength(1, 255)),
		validation.Field(&p.Content, validation.NilOrNotEmpty),
	)
}

// SummarizeResult is the outcome of a successful summarization.
type SummarizeResult struct {
	Note    *models.Note
	Summary string
	Model   string
}

// CreateNote validates the params and persists a new note for ownerID.
// A conversation note without an explicit conversation id gets a generated one.
func (s *Service) CreateNote(_ context.Context, ownerID string, p CreateParams) (*models.Note, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	conversationID := p.ConversationID
	if p.IsConversation && conversationID == "" {
		conversationID = uuid.NewString()
	}

	n := &models.Note{
		OwnerID:        ownerID,
		Title:          p.Title,
		Content:        p.Content,
		IsConversation: p.IsConversation,
		ConversationID: conversationID,
	}
	if err := s.store.Create(n); err != nil {
		return nil, err
	}
	return n, nil
}

// GetNote loads a note and verifies ownership.
func (s *Service) GetNote(_ context.Context, userID, noteID string) (*models.Note, error) {
	n, err := s.store.Get(noteID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(userID, n); err != nil {
		return nil, err
	}
	return n, nil
}

// UpdateNote applies a partial update to an owned note. Validation and the
// ownership check both run before anything is written.
func (s *Service) UpdateNote(ctx context.Context, userID, noteID string, p UpdateParams) (*models.Note, error) {
	if _, err := s.GetNote(ctx, userID, noteID); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.store.Update(noteID, notestore.UpdateFields{Title: p.Title, Content: p.Content})
}

// DeleteNote removes an owned note permanently. A second delete of the same
// note reports not found.
func (s *Service) DeleteNote(ctx context.Context, userID, noteID string) error {
	if _, err := s.GetNote(ctx, userID, noteID); err != nil {
		return err
	}
	return s.store.Delete(noteID)
}

// ListNotes returns one page of the user's notes, newest-created first.
func (s *Service) ListNotes(_ context.Context, userID string, page, pageSize int) ([]models.Note, int, error) {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return s.store.ListByOwner(userID, page, pageSize)
}

// Summarize sends the note's content to the AI provider and, on success,
// persists the summary triple. On failure nothing is persisted and the note's
// prior summary is left untouched.
func (s *Service) Summarize(ctx context.Context, userID, noteID string, maxLength int) (*SummarizeResult, error) {
	n, err := s.GetNote(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	if err := validation.Validate(maxLength, validation.Required, validation.Min(50), validation.Max(1000)); err != nil {
		return nil, validation.Errors{"max_length": err}
	}

	res, err := s.ai.Summarize(ctx, n.Content, maxLength)
	if err != nil {
		return nil, err
	}

	// summary_length records the requested maximum, not the actual length.
	updated, err := s.store.SetSummary(noteID, res.Summary, maxLength, res.Model)
	if err != nil {
		return nil, err
	}
	return &SummarizeResult{Note: updated, Summary: res.Summary, Model: res.Model}, nil
}

// ListConversations returns the user's conversation thread entries.
func (s *Service) ListConversations(_ context.Context, userID string) ([]models.ConversationHead, error) {
	return s.store.ListConversations(userID)
}

// ConversationThread returns the user's notes in a thread, oldest first.
func (s *Service) ConversationThread(_ context.Context, userID, conversationID string) ([]models.Note, error) {
	return s.store.Thread(userID, conversationID)
}
