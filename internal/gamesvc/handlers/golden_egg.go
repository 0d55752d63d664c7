package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/annualparty/game-services/internal/service"
)

func (h *Handler) GoldenEggCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TotalParticipants int `json:"totalParticipants"`
		Rounds            int `json:"rounds"`
		PerRoundCount     int `json:"perRoundCount"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateErrorResponse(w, fmt.Errorf("%w: malformed request body", service.ErrValidation))
		return
	}

	session, err := h.draw.CreateSession(r.Context(), req.TotalParticipants, req.Rounds, req.PerRoundCount)
	if err != nil {
		h.CreateErrorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Code: http.StatusOK,
		Data: map[string]interface{}{
			"sessionId":        session.ID,
			"status":           "created",
			"totalValidNumbers": len(session.Settings.GoldenEgg.ValidNumbers),
		},
	})
}

func (h *Handler) GoldenEggDraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionId   string `json:"sessionId"`
		RoundNumber int    `json:"roundNumber"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateErrorResponse(w, fmt.Errorf("%w: malformed request body", service.ErrValidation))
		return
	}

	result, err := h.draw.Draw(r.Context(), req.SessionId, req.RoundNumber)
	if err != nil {
		h.CreateErrorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: result})
}

func (h *Handler) GoldenEggSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	results, err := h.draw.SessionResults(r.Context(), sessionID)
	if err != nil {
		h.CreateErrorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: results})
}
