package notestore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

const noteColumns = `id, owner_id, title, content, summary, summary_length,
	ai_model_used, is_conversation, conversation_id, created_at, updated_at`

// UpdateFields carries the fields of a partial update. Nil fields are left
// untouched.
type UpdateFields struct {
	Title   *string
	Content *string
}

// Create inserts a new note, assigning its ID and both timestamps.
func (db *DB) Create(n *models.Note) error {
	n.ID = uuid.NewString()
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now

	_, err := db.conn.Exec(`
		INSERT INTO notes (id, owner_id, title, content, is_conversation, conversation_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.OwnerID, n.Title, n.Content, n.IsConversation, n.ConversationID, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("notestore: create note: %w", err)
	}
	return nil
}

// Get returns the note with the given id, or apperr.ErrNotFound.
func (db *DB) Get(id string) (*models.Note, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("notestore: get note: %w", err)
	}
	return n, nil
}

// Update applies a partial update and refreshes updated_at. Unset fields keep
// their stored values. Returns the updated note, or apperr.ErrNotFound.
func (db *DB) Update(id string, fields UpdateFields) (*models.Note, error) {
	set := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if fields.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *fields.Title)
	}
	if fields.Content != nil {
		set = append(set, "content = ?")
		args = append(args, *fields.Content)
	}
	args = append(args, id)

	res, err := db.conn.Exec(`UPDATE notes SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("notestore: update note: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, apperr.ErrNotFound
	}
	return db.Get(id)
}

// SetSummary writes the summary triple in one statement so the three columns
// always change together, and refreshes updated_at.
func (db *DB) SetSummary(id, summary string, length int, model string) (*models.Note, error) {
	res, err := db.conn.Exec(`
		UPDATE notes
		SET summary = ?, summary_length = ?, ai_model_used = ?, updated_at = ?
		WHERE id = ?
	`, summary, length, model, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("notestore: set summary: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, apperr.ErrNotFound
	}
	return db.Get(id)
}

// Delete removes a note permanently. Deleting an absent note returns
// apperr.ErrNotFound, so a repeated delete is a visible failure.
func (db *DB) Delete(id string) error {
	res, err := db.conn.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("notestore: delete note: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ListByOwner returns one page of the owner's notes, newest-created first,
// along with the owner's total note count.
func (db *DB) ListByOwner(ownerID string, page, pageSize int) ([]models.Note, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes WHERE owner_id = ?`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("notestore: count notes: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT `+noteColumns+`
		FROM notes
		WHERE owner_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, ownerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("notestore: list notes: %w", err)
	}
	defer rows.Close()

	notes, err := collectNotes(rows)
	if err != nil {
		return nil, 0, err
	}
	return notes, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (*models.Note, error) {
	var (
		n       models.Note
		summary sql.NullString
		length  sql.NullInt64
		model   sql.NullString
	)
	err := row.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &summary, &length,
		&model, &n.IsConversation, &n.ConversationID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if summary.Valid {
		n.Summary = &summary.String
	}
	if length.Valid {
		l := int(length.Int64)
		n.SummaryLength = &l
	}
	if model.Valid {
		n.AIModelUsed = &model.String
	}
	return &n, nil
}

func collectNotes(rows *sql.Rows) ([]models.Note, error) {
	notes := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}
