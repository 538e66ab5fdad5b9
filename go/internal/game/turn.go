package game

import (
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/jdrlotr/fourline/go/internal/models"
)

// TurnCoordinator owns the tie-break protocol and turn-order bookkeeping.
// The coordinator process is the only authority that ever flips the coin;
// clients receive the result and never recompute it.
type TurnCoordinator struct {
	authority string
	flip      func() models.TossResult
}

// NewTurnCoordinator returns a coordinator with a uniform random coin.
func NewTurnCoordinator() *TurnCoordinator {
	return &TurnCoordinator{
		authority: "coordinator-" + uuid.New().String()[:8],
		flip: func() models.TossResult {
			if rand.IntN(2) == 0 {
				return models.TossHeads
			}
			return models.TossTails
		},
	}
}

// Resolve decides the first mover exactly once. A resolved toss is
// returned as-is without new randomness, so racing triggers all observe
// the identical outcome. When only one player ever joined, the toss is
// deterministic and the lone player moves first.
func (tc *TurnCoordinator) Resolve(toss models.CoinToss, players []uuid.UUID) (models.CoinToss, uuid.UUID) {
	if !toss.Resolved {
		toss.Resolved = true
		toss.DecidedBy = tc.authority
		if len(players) < 2 {
			toss.Result = models.TossHeads
		} else {
			toss.Result = tc.flip()
		}
	}
	return toss, FirstMover(toss.Result, players)
}

// FirstMover maps a toss result onto the player list: heads is the
// creator, tails the second player. With no second player the creator
// moves regardless.
func FirstMover(result models.TossResult, players []uuid.UUID) uuid.UUID {
	if result == models.TossTails && len(players) > 1 {
		return players[1]
	}
	return players[0]
}

// Advance hands the turn to the other player after an accepted move. In
// the single-player path the turn stays with the sole player.
func (tc *TurnCoordinator) Advance(players []uuid.UUID, current uuid.UUID) uuid.UUID {
	for _, p := range players {
		if p != current {
			return p
		}
	}
	return current
}
