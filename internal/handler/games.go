package handler

import (
	"net/http"

	"github.com/sakif/rilmas/internal/service"
)

type GameHandler struct {
	games *service.GameService
}

func NewGameHandler(games *service.GameService) *GameHandler {
	return &GameHandler{games: games}
}

// HandleSearch filters the catalog by name or category.
//
// HTTP: GET /api/games?q=fps
func (h *GameHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.games.Search(r.URL.Query().Get("q")))
}
