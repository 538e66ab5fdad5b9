package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope broadcast for every accepted session transition.
type Event struct {
	ID        string          `json:"id"`
	GameID    string          `json:"gameId"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Type identifies a game event. The names and payload fields are part of
// the client compatibility surface.
type Type string

const (
	TypeCountdown    Type = "countdown"
	TypeTossResolved Type = "tossResolved"
	TypeStarted      Type = "started"
	TypeMoved        Type = "moved"
	TypeEnded        Type = "ended"
	TypeRejected     Type = "rejected"
	TypeSnapshot     Type = "snapshot"
)

// New builds an event envelope around a marshaled payload, stamped at ts.
// The timestamp comes from the caller's clock so event times follow the
// same injected time source as everything else.
func New(gameID uuid.UUID, t Type, ts time.Time, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		GameID:    gameID.String(),
		Type:      t,
		Timestamp: ts.UTC(),
		Data:      data,
	}, nil
}
