package handlers

import (
	"net/http"
	"strconv"

	"github.com/Kiptoo96/esports-arena/services"
)

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

func (h *LeaderboardHandler) RecentWinners(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var game *string
	if g := r.URL.Query().Get("game"); g != "" {
		game = &g
	}

	winners, err := h.leaderboardService.RecentWinners(r.Context(), game, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"winners": winners}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeaderboardHandler) TopEarners(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	winners, err := h.leaderboardService.TopEarners(r.Context(), limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"winners": winners}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
