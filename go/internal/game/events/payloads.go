package events

import (
	"github.com/jdrlotr/fourline/go/internal/models"
)

// Payload types shared between the game and gateway packages.

// CountdownPayload is emitted once per second while a match counts down
// to its start.
type CountdownPayload struct {
	GameID           string `json:"gameId"`
	SecondsRemaining int    `json:"secondsRemaining"`
}

// TossResolvedPayload is broadcast exactly once per match. It carries the
// players list so any observer can derive the first mover independently;
// the coordinator's own currentTurn stays authoritative.
type TossResolvedPayload struct {
	GameID  string            `json:"gameId"`
	Result  models.TossResult `json:"result"`
	Players []string          `json:"players"`
}

// StartedPayload announces the transition into play.
type StartedPayload struct {
	GameID      string           `json:"gameId"`
	State       models.GameState `json:"state"`
	Players     []string         `json:"players"`
	Board       models.Board     `json:"board"`
	CurrentTurn string           `json:"currentTurn"`
}

// MovedPayload carries the post-move board and the next player to act.
type MovedPayload struct {
	GameID      string       `json:"gameId"`
	Board       models.Board `json:"board"`
	CurrentTurn string       `json:"currentTurn"`
}

// EndedPayload announces a terminal outcome. Winner is null on a draw or
// a creator-forced end.
type EndedPayload struct {
	GameID string       `json:"gameId"`
	Board  models.Board `json:"board"`
	Winner *string      `json:"winner"`
}

// RejectedPayload is delivered only to the connection whose intent was
// refused; other participants never see it.
type RejectedPayload struct {
	GameID string `json:"gameId"`
	Reason string `json:"reason"`
}
