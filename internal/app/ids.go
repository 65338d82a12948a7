package app

import (
	"github.com/google/uuid"

	"github.com/cimillas/item-reservations/internal/domain"
)

func newID() string {
	return uuid.NewString()
}

// checkIDs rejects ids that are not UUIDs before they reach storage.
func checkIDs(ids ...string) error {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return domain.ErrInvalidID
		}
	}
	return nil
}
