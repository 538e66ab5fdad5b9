package matchdir

import (
	"context"

	"github.com/google/uuid"

	"github.com/jdrlotr/fourline/go/internal/models"
)

// Directory is the match bookkeeping collaborator. The coordinator calls
// it exactly twice per match: at session creation and at the finished
// transition. Listing serves the match-history surface.
type Directory interface {
	CreateMatchRecord(ctx context.Context, ownerID uuid.UUID) (uuid.UUID, error)
	RecordOutcome(ctx context.Context, gameID uuid.UUID, winner *uuid.UUID, finalBoard models.Board) error
	ListMatches(ctx context.Context, userID uuid.UUID) ([]models.MatchRecord, error)
}
