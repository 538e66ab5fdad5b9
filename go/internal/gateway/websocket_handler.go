package gateway

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/jdrlotr/fourline/go/internal/game/events"
	"github.com/jdrlotr/fourline/go/internal/registry"
)

// WebSocketHandler handles WebSocket upgrade requests for game
// connections.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	registry          *registry.Registry
	clock             clockwork.Clock
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(cm *ConnectionManager, reg *registry.Registry) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		registry:          reg,
		clock:             clockwork.NewRealClock(),
	}
}

// HandleGameConnection handles WebSocket connections for a specific
// game. The new subscriber immediately receives a full state snapshot,
// which is also the whole reconnect protocol: state is idempotent, so a
// returning client just resubscribes.
func (h *WebSocketHandler) HandleGameConnection(w http.ResponseWriter, r *http.Request) {
	gameIDStr := r.URL.Query().Get("game_id")
	if gameIDStr == "" {
		http.Error(w, "game_id is required", http.StatusBadRequest)
		return
	}
	gameID, err := uuid.Parse(gameIDStr)
	if err != nil {
		http.Error(w, "invalid game_id format", http.StatusBadRequest)
		return
	}

	// The user id comes from the identity layer in front of the gateway;
	// here it is read from the query string and trusted.
	userIDStr := r.URL.Query().Get("user_id")
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(w, "invalid user_id format", http.StatusBadRequest)
		return
	}

	session, err := h.registry.Get(gameID)
	if err != nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	conn, err := h.connectionManager.UpgradeConnection(w, r, userID, gameID)
	if err != nil {
		log.Error().
			Err(err).
			Str("game_id", gameID.String()).
			Str("user_id", userID.String()).
			Msg("failed to upgrade WebSocket connection")
		return
	}

	snapshot, err := events.New(gameID, events.TypeSnapshot, h.clock.Now(), session.Snapshot())
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("failed to build snapshot event")
		return
	}
	if err := h.connectionManager.SendToConnection(conn, snapshot); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", conn.ID).
			Msg("failed to deliver snapshot")
	}
}

// HandleConnectionStats returns statistics about active connections.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	total, active := h.connectionManager.Stats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"total_connections":%d,"active_games":%d}`, total, active)
}

// RegisterRoutes registers WebSocket routes with an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/game", h.HandleGameConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
