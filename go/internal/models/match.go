package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchStatus defines the status of a match directory record.
type MatchStatus string

const (
	MatchStatusOpen     MatchStatus = "OPEN"
	MatchStatusFinished MatchStatus = "FINISHED"
)

// MatchRecord is the directory row persisted for a match: created when
// the session is created, completed when the session finishes.
type MatchRecord struct {
	ID         uuid.UUID   `json:"id"`
	OwnerID    uuid.UUID   `json:"owner_id"`
	Status     MatchStatus `json:"status"`
	WinnerID   *uuid.UUID  `json:"winner_id,omitempty"`
	FinalBoard Board       `json:"final_board,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}
