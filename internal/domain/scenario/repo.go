package scenario

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists saved scenarios.
type Repository interface {
	Create(ctx context.Context, s *SavedScenario) error
	GetByID(ctx context.Context, id uuid.UUID) (*SavedScenario, error)
	List(ctx context.Context, limit, offset int) ([]SavedSummary, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
