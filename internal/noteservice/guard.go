package noteservice

import (
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// Authorize checks that userID owns the note. It returns apperr.ErrForbidden
// otherwise, and callers must not perform any further side effect after a
// denial. A non-owner learns only that access is forbidden, never whether the
// note exists with different content.
func Authorize(userID string, note *models.Note) error {
	if note.OwnerID != userID {
		return apperr.ErrForbidden
	}
	return nil
}
