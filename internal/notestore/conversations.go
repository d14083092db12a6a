package notestore

import (
	"fmt"

	"github.com/starford/ansuz/internal/models"
)

// ListConversations returns one entry per distinct (conversation_id, title,
// created_at) combination among the owner's conversation notes, newest first.
// Grouping keys on all three selected columns, so a thread whose notes carry
// differing titles yields one entry per title. This mirrors the upstream query
// exactly; do not collapse the grouping to conversation_id alone without
// product sign-off.
func (db *DB) ListConversations(ownerID string) ([]models.ConversationHead, error) {
	rows, err := db.conn.Query(`
		SELECT conversation_id, title, created_at
		FROM notes
		WHERE owner_id = ? AND is_conversation = 1
		GROUP BY conversation_id, title, created_at
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("notestore: list conversations: %w", err)
	}
	defer rows.Close()

	heads := []models.ConversationHead{}
	for rows.Next() {
		var h models.ConversationHead
		if err := rows.Scan(&h.ConversationID, &h.Title, &h.CreatedAt); err != nil {
			return nil, err
		}
		heads = append(heads, h)
	}
	return heads, rows.Err()
}

// Thread returns the owner's notes in the given conversation in chronological
// order (oldest first). An unknown conversation id yields an empty slice, the
// same as a thread with no notes.
func (db *DB) Thread(ownerID, conversationID string) ([]models.Note, error) {
	rows, err := db.conn.Query(`
		SELECT `+noteColumns+`
		FROM notes
		WHERE owner_id = ? AND conversation_id = ?
		ORDER BY created_at ASC
	`, ownerID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("notestore: thread: %w", err)
	}
	defer rows.Close()

	return collectNotes(rows)
}
