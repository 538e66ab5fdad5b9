package game

import (
	"github.com/google/uuid"

	"github.com/jdrlotr/fourline/go/internal/game/events"
)

// FanOut composes broadcasters so one session publish reaches several
// sinks (the WebSocket channel and the event relay).
func FanOut(broadcasters ...Broadcaster) Broadcaster {
	return fanOut(broadcasters)
}

type fanOut []Broadcaster

func (f fanOut) Publish(gameID uuid.UUID, event *events.Event) {
	for _, b := range f {
		b.Publish(gameID, event)
	}
}
