package handlers

import (
	"os"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		r.Route("/golden-egg", func(r chi.Router) {
			r.Post("/create", h.GoldenEggCreate)
			r.Post("/draw", h.GoldenEggDraw)
			r.Get("/{sessionId}", h.GoldenEggSession)
		})

		r.Route("/horse-racing", func(r chi.Router) {
			r.Post("/create", h.HorseRacingCreate)
			r.Post("/join", h.HorseRacingJoin)
			r.Post("/start", h.HorseRacingStart)
			r.Post("/shake", h.HorseRacingShake)
			r.Post("/finish", h.HorseRacingFinish)
			r.Get("/{gameId}", h.HorseRacingSession)
		})

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/health", h.HealthHandler)

		})
	})
}

func (h *Handler) InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)

	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()

	_, tokenString, _ := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": 8003022,
		"exp":        expirationTime,
	})

	// For debugging only, comment it out in production
	log.Infof("DEBUG: JWT for testing expires soon : %s", tokenString)
}
