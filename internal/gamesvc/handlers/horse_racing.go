package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/annualparty/game-services/internal/service"
)

func (h *Handler) HorseRacingCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TotalParticipants int `json:"totalParticipants"`
	}

	// body is optional for this endpoint, everything has a default
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.TotalParticipants = 0
	}

	session, err := h.race.CreateSession(r.Context(), req.TotalParticipants)
	if err != nil {
		h.CreateErrorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Code: http.StatusOK,
		Data: map[string]interface{}{
			"sessionId": session.ID,
			"status":    "created",
		},
	})
}

func (h *Handler) HorseRacingJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GameId   string `json:"gameId"`
		Nickname string `json:"nickname"`
		Avatar   string `json:"avatar"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateErrorResponse(w, fmt.Errorf("%w: malformed request body", service.ErrValidation))
		return
	}

	participant, err := h.registry.Join(r.Context(), req.GameId, req.Nickname, req.Avatar)
	if err != nil {
		h.CreateErrorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Code: http.StatusOK,
		Data: map[string]interface{}{
			"participantId": participant.ID,
			"playerNumber":  participant.PlayerNumber,
			"status":        "joined",
		},
	})
}

func (h *Handler) HorseRacingStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GameId string `json:"gameId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateErrorResponse(w, fmt.Errorf("%w: malformed request body", service.ErrValidation))
		return
	}

	if err := h.race.Start(r.Context(), req.GameId); err != nil {
		h.CreateErrorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Code: http.StatusOK,
		Data: map[string]interface{}{"status": "started"},
	})
}

// HorseRacingShake is the HTTP fallback for controllers without a live
// socket; the primary path is the websocket shake message.
func (h *Handler) HorseRacingShake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GameId    string  `json:"gameId"`
		PlayerId  string  `json:"playerId"`
		Intensity float64 `json:"intensity"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateErrorResponse(w, fmt.Errorf("%w: malformed request body", service.ErrValidation))
		return
	}

	if err := h.race.Ingest(r.Context(), req.GameId, req.PlayerId, req.Intensity, time.Now().UnixMilli()); err != nil {
		h.CreateErrorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Code: http.StatusOK,
		Data: map[string]interface{}{"status": "ok"},
	})
}

func (h *Handler) HorseRacingFinish(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GameId   string              `json:"gameId"`
		Rankings []service.RankEntry `json:"rankings"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateErrorResponse(w, fmt.Errorf("%w: malformed request body", service.ErrValidation))
		return
	}

	if err := h.race.Finish(r.Context(), req.GameId, req.Rankings); err != nil {
		h.CreateErrorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Code: http.StatusOK,
		Data: map[string]interface{}{"status": "finished"},
	})
}

func (h *Handler) HorseRacingSession(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameId")

	session, err := h.race.Session(r.Context(), gameID)
	if err != nil {
		h.CreateErrorResponse(w, err)
		return
	}

	participants, err := h.registry.List(r.Context(), gameID)
	if err != nil {
		h.CreateErrorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Code: http.StatusOK,
		Data: map[string]interface{}{
			"session":      session,
			"participants": participants,
			"progress":     h.race.Snapshot(gameID),
		},
	})
}
