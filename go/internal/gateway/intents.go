package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/jdrlotr/fourline/go/internal/game"
	"github.com/jdrlotr/fourline/go/internal/game/events"
	"github.com/jdrlotr/fourline/go/internal/registry"
)

// Client intent message types. Part of the compatibility surface.
const (
	IntentJoinGame = "joinGame"
	IntentMakeMove = "makeMove"
	IntentEndGame  = "endGame"
)

// ClientIntent is the envelope clients send over the socket.
type ClientIntent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// JoinIntent asks to join a game as a participant.
type JoinIntent struct {
	GameID string `json:"gameId"`
	UserID string `json:"userId"`
}

// MoveIntent drops a piece into a column.
type MoveIntent struct {
	GameID string `json:"gameId"`
	UserID string `json:"userId"`
	Column int    `json:"column"`
}

// EndIntent asks to force-finish the game. Creator only.
type EndIntent struct {
	GameID string `json:"gameId"`
	UserID string `json:"userId"`
}

// IntentRouter parses client intents and applies them to sessions. The
// identity in each intent is supplied by the authentication layer in
// front of the gateway and is trusted here. Rejections go back to the
// offending connection only.
type IntentRouter struct {
	registry *registry.Registry
	manager  *ConnectionManager
	clock    clockwork.Clock
}

// NewIntentRouter creates a router over the session registry.
func NewIntentRouter(reg *registry.Registry, cm *ConnectionManager) *IntentRouter {
	return &IntentRouter{
		registry: reg,
		manager:  cm,
		clock:    clockwork.NewRealClock(),
	}
}

// HandleIntent routes one raw client message.
func (rt *IntentRouter) HandleIntent(ctx context.Context, conn *Connection, message []byte) {
	var intent ClientIntent
	if err := json.Unmarshal(message, &intent); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", conn.ID).
			Msg("unparseable client message")
		return
	}

	switch intent.Type {
	case IntentJoinGame:
		rt.handleJoin(conn, intent.Data)
	case IntentMakeMove:
		rt.handleMove(ctx, conn, intent.Data)
	case IntentEndGame:
		rt.handleEnd(ctx, conn, intent.Data)
	default:
		log.Warn().
			Str("intent_type", intent.Type).
			Str("connection_id", conn.ID).
			Msg("unknown intent type - ignoring")
	}
}

func (rt *IntentRouter) handleJoin(conn *Connection, data json.RawMessage) {
	var join JoinIntent
	if err := json.Unmarshal(data, &join); err != nil {
		log.Warn().Err(err).Str("connection_id", conn.ID).Msg("malformed join intent")
		return
	}

	session, userID, ok := rt.resolve(conn, join.GameID, join.UserID)
	if !ok {
		return
	}
	if err := session.Join(userID); err != nil {
		rt.reject(conn, join.GameID, rejectionReason(err))
	}
}

func (rt *IntentRouter) handleMove(ctx context.Context, conn *Connection, data json.RawMessage) {
	var move MoveIntent
	if err := json.Unmarshal(data, &move); err != nil {
		log.Warn().Err(err).Str("connection_id", conn.ID).Msg("malformed move intent")
		return
	}

	session, userID, ok := rt.resolve(conn, move.GameID, move.UserID)
	if !ok {
		return
	}
	if err := session.Move(ctx, userID, move.Column); err != nil {
		rt.reject(conn, move.GameID, rejectionReason(err))
	}
}

func (rt *IntentRouter) handleEnd(ctx context.Context, conn *Connection, data json.RawMessage) {
	var end EndIntent
	if err := json.Unmarshal(data, &end); err != nil {
		log.Warn().Err(err).Str("connection_id", conn.ID).Msg("malformed end intent")
		return
	}

	session, userID, ok := rt.resolve(conn, end.GameID, end.UserID)
	if !ok {
		return
	}
	if err := session.End(ctx, userID); err != nil {
		rt.reject(conn, end.GameID, rejectionReason(err))
	}
}

// resolve parses the ids and looks up the session, rejecting on this
// connection when either fails.
func (rt *IntentRouter) resolve(conn *Connection, gameID, userID string) (*game.Session, uuid.UUID, bool) {
	gid, err := uuid.Parse(gameID)
	if err != nil {
		rt.reject(conn, gameID, game.ReasonNotFound)
		return nil, uuid.Nil, false
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		rt.reject(conn, gameID, game.ReasonNotAuthorized)
		return nil, uuid.Nil, false
	}

	session, err := rt.registry.Get(gid)
	if err != nil {
		rt.reject(conn, gameID, game.ReasonNotFound)
		return nil, uuid.Nil, false
	}
	return session, uid, true
}

func rejectionReason(err error) string {
	if errors.Is(err, registry.ErrNotFound) {
		return game.ReasonNotFound
	}
	return game.Reason(err)
}

// reject delivers a rejection to the offending connection. No other
// participant sees it and no session state changed.
func (rt *IntentRouter) reject(conn *Connection, gameID, reason string) {
	parsed, err := uuid.Parse(gameID)
	if err != nil {
		parsed = uuid.Nil
	}
	evt, err := events.New(parsed, events.TypeRejected, rt.clock.Now(), events.RejectedPayload{
		GameID: gameID,
		Reason: reason,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build rejected event")
		return
	}
	if err := rt.manager.SendToConnection(conn, evt); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", conn.ID).
			Str("reason", reason).
			Msg("failed to deliver rejection")
	}
}
