package api

import "github.com/starford/ansuz/internal/models"

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title          string `json:"title" example:"Trip" validate:"required"`
	Content        string `json:"content" example:"Went to the lake" validate:"required"`
	IsConversation bool   `json:"is_conversation"`
	ConversationID string `json:"conversation_id"`
}

// UpdateNoteRequest is the request body for a partial note update.
// Absent fields are left unchanged.
type UpdateNoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// SummarizeNoteRequest is the request body for summarizing a note.
type SummarizeNoteRequest struct {
	MaxLength int `json:"max_length" example:"100" validate:"required"`
}

// NoteResponse wraps a single note with a human-readable message.
type NoteResponse struct {
	Message string       `json:"message" validate:"required"`
	Note    *models.Note `json:"note" validate:"required"`
}

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes    []models.Note `json:"notes" validate:"required"`
	Total    int           `json:"total" example:"42" validate:"required"`
	Page     int           `json:"page" example:"1" validate:"required"`
	PageSize int           `json:"page_size" example:"20" validate:"required"`
}

// SummarizeResponse is returned after a successful summarization.
type SummarizeResponse struct {
	Message string       `json:"message" validate:"required"`
	Summary string       `json:"summary" validate:"required"`
	AIModel string       `json:"ai_model" validate:"required"`
	Note    *models.Note `json:"note" validate:"required"`
}
