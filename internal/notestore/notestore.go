package notestore

import "github.com/starford/ansuz/internal/models"

// Store defines the interface for note persistence operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Store interface {
	Create(n *models.Note) error
	Get(id string) (*models.Note, error)
	Update(id string, fields UpdateFields) (*models.Note, error)
	SetSummary(id, summary string, length int, model string) (*models.Note, error)
	Delete(id string) error
	ListByOwner(ownerID string, page, pageSize int) ([]models.Note, int, error)
	ListConversations(ownerID string) ([]models.ConversationHead, error)
	Thread(ownerID, conversationID string) ([]models.Note, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
