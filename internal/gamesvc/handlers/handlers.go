package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/annualparty/game-services/internal/service"
	"github.com/annualparty/game-services/internal/store"
)

type Handler struct {
	tokenAuth *jwtauth.JWTAuth

	draw     *service.DrawService
	registry *service.RegistryService
	race     *service.RaceService
}

func NewHandler(draw *service.DrawService, registry *service.RegistryService,
	race *service.RaceService) *Handler {
	return &Handler{
		draw:     draw,
		registry: registry,
		race:     race,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

// CreateErrorResponse maps service errors onto HTTP status codes. Anything
// unrecognized is reported generically and logged for operators.
func (h *Handler) CreateErrorResponse(w http.ResponseWriter, err error) {
	var code int
	var msg string

	switch {
	case errors.Is(err, service.ErrValidation):
		code, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNoEligibleParticipants):
		code, msg = http.StatusBadRequest, "No eligible participants left"
	case errors.Is(err, store.ErrSessionNotFound):
		code, msg = http.StatusNotFound, "Session not found"
	case errors.Is(err, store.ErrParticipantNotFound):
		code, msg = http.StatusNotFound, "Participant not found"
	case errors.Is(err, store.ErrInvalidTransition), errors.Is(err, store.ErrSessionNotWaiting):
		code, msg = http.StatusConflict, err.Error()
	default:
		log.Errorf("internal error: %v", err)
		code, msg = http.StatusInternalServerError, "Internal server error"
	}

	h.CreateResponse(w, Response{Code: code, Error: msg})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "game service is running at port " + os.Getenv("GAME_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode health response: %v", err)
	}
}
