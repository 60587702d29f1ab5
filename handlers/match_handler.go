package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Kiptoo96/esports-arena/middleware"
	"github.com/Kiptoo96/esports-arena/models"
	"github.com/Kiptoo96/esports-arena/services"
)

const maxEvidenceBytes = 10 << 20 // 10MB

type scorePayload struct {
	Player1Score int `json:"player1_score"`
	Player2Score int `json:"player2_score"`
}

type statsPayload struct {
	Player1Kills     int  `json:"player1_kills"`
	Player2Kills     int  `json:"player2_kills"`
	Player1Deaths    *int `json:"player1_deaths"`
	Player2Deaths    *int `json:"player2_deaths"`
	Player1Headshots *int `json:"player1_headshots"`
	Player2Headshots *int `json:"player2_headshots"`
}

func (p statsPayload) toStats() services.ShooterStats {
	return services.ShooterStats{
		Player1Kills:     p.Player1Kills,
		Player2Kills:     p.Player2Kills,
		Player1Deaths:    p.Player1Deaths,
		Player2Deaths:    p.Player2Deaths,
		Player1Headshots: p.Player1Headshots,
		Player2Headshots: p.Player2Headshots,
	}
}

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var round *int
	if roundStr := r.URL.Query().Get("round"); roundStr != "" {
		value, convErr := strconv.Atoi(roundStr)
		if convErr != nil || value < 1 {
			badRequestResponse(w, r, errors.New("invalid round parameter"))
			return
		}
		round = &value
	}

	matches, err := h.matchService.ListByTournament(r.Context(), tournamentID, round)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// scoreAction covers the propose and confirm endpoints, which share a
// signature and differ only in the service call.
func (h *MatchHandler) scoreAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, matchID, userID, player1Score, player2Score int) (*models.Match, error),
) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var payload scorePayload
	if err := readJSON(w, r, &payload); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := action(r.Context(), matchID, userID, payload.Player1Score, payload.Player2Score)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ProposeScore(w http.ResponseWriter, r *http.Request) {
	h.scoreAction(w, r, h.matchService.ProposeScore)
}

func (h *MatchHandler) ConfirmScore(w http.ResponseWriter, r *http.Request) {
	h.scoreAction(w, r, h.matchService.ConfirmScore)
}

func (h *MatchHandler) statsAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, matchID, userID int, stats services.ShooterStats) (*models.Match, error),
) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var payload statsPayload
	if err := readJSON(w, r, &payload); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := action(r.Context(), matchID, userID, payload.toStats())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ProposeStats(w http.ResponseWriter, r *http.Request) {
	h.statsAction(w, r, h.matchService.ProposeStats)
}

func (h *MatchHandler) ConfirmStats(w http.ResponseWriter, r *http.Request) {
	h.statsAction(w, r, h.matchService.ConfirmStats)
}

// UpdateScore is the admin path that settles a match without confirmation.
func (h *MatchHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var payload scorePayload
	if err := readJSON(w, r, &payload); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.UpdateScore(r.Context(), matchID, payload.Player1Score, payload.Player2Score)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) UpdateStats(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var payload statsPayload
	if err := readJSON(w, r, &payload); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.UpdateStats(r.Context(), matchID, payload.toStats())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListDisputes(w http.ResponseWriter, r *http.Request) {
	status := models.DisputeStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.DisputeStatusPending
	}
	if status != models.DisputeStatusPending && status != models.DisputeStatusResolved {
		badRequestResponse(w, r, errors.New("invalid status parameter"))
		return
	}

	disputes, err := h.matchService.ListDisputes(r.Context(), status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"disputes": disputes}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetDispute(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	dispute, err := h.matchService.GetDispute(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"dispute": dispute}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) UploadDisputeEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxEvidenceBytes)
	if err := r.ParseMultipartForm(maxEvidenceBytes); err != nil {
		badRequestResponse(w, r, errors.New("invalid multipart form or file too large"))
		return
	}

	file, header, err := r.FormFile("evidence")
	if err != nil {
		badRequestResponse(w, r, errors.New("evidence file is required"))
		return
	}
	defer file.Close()

	url, err := h.matchService.AddDisputeEvidence(r.Context(), id, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"evidence_url": url}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	adminID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var payload struct {
		WinnerID     int    `json:"winner_id"`
		Player1Score int    `json:"player1_score"`
		Player2Score int    `json:"player2_score"`
		Resolution   string `json:"resolution"`
	}
	if err := readJSON(w, r, &payload); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if payload.WinnerID < 1 || payload.Resolution == "" {
		badRequestResponse(w, r, errors.New("winner_id and resolution are required"))
		return
	}

	match, err := h.matchService.ResolveDispute(r.Context(), id, adminID,
		payload.WinnerID, payload.Player1Score, payload.Player2Score, payload.Resolution)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
