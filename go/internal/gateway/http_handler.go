package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jdrlotr/fourline/go/internal/matchdir"
	"github.com/jdrlotr/fourline/go/internal/registry"
)

// GamesHandler serves the REST surface: match creation and the per-user
// match history.
type GamesHandler struct {
	registry  *registry.Registry
	directory matchdir.Directory
}

// NewGamesHandler creates the REST handler.
func NewGamesHandler(reg *registry.Registry, dir matchdir.Directory) *GamesHandler {
	return &GamesHandler{
		registry:  reg,
		directory: dir,
	}
}

type createGameRequest struct {
	UserID string `json:"userId"`
}

type createGameResponse struct {
	GameID string `json:"gameId"`
}

// HandleGames dispatches POST (create) and GET (list) on /games.
func (h *GamesHandler) HandleGames(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createGame(w, r)
	case http.MethodGet:
		h.listGames(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *GamesHandler) createGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ownerID, err := uuid.Parse(req.UserID)
	if err != nil {
		http.Error(w, "invalid userId format", http.StatusBadRequest)
		return
	}

	session, err := h.registry.Create(r.Context(), ownerID)
	if err != nil {
		log.Error().Err(err).Str("owner_id", ownerID.String()).Msg("failed to create game")
		http.Error(w, "failed to create game", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(createGameResponse{GameID: session.ID().String()}); err != nil {
		log.Error().Err(err).Msg("failed to write create game response")
	}
}

func (h *GamesHandler) listGames(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "invalid user_id format", http.StatusBadRequest)
		return
	}

	records, err := h.directory.ListMatches(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list matches")
		http.Error(w, "failed to list matches", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		log.Error().Err(err).Msg("failed to write match list response")
	}
}

// RegisterRoutes registers REST routes with an HTTP mux.
func (h *GamesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/games", h.HandleGames)
}
