package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/annualparty/game-services/configs"
	"github.com/annualparty/game-services/internal/audit"
	"github.com/annualparty/game-services/internal/gamesvc/broker"
	handlers "github.com/annualparty/game-services/internal/gamesvc/handlers"
	nats "github.com/annualparty/game-services/internal/nats"
	"github.com/annualparty/game-services/internal/service"
	"github.com/annualparty/game-services/internal/store"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "game"

var instanceId string

func init() {
	instanceId = "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {

	var (
		sessionStore     store.SessionStore
		participantStore store.ParticipantStore
		winnerStore      store.WinnerStore
	)

	// sessions are ephemeral, so the in-memory stores are a supported mode
	// for single-instance deployments without Postgres
	if os.Getenv("POSTGRES_URL") != "" {
		dbpool, err := store.Connect()
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer store.ClosePool()
		log.Printf("pg connection established successfully")

		sessionStore = store.NewPgSessionStore(dbpool)
		participantStore = store.NewPgParticipantStore(dbpool)
		winnerStore = store.NewPgWinnerStore(dbpool)
	} else {
		mem := store.NewMemSessionStore()
		sessionStore = mem
		participantStore = store.NewMemParticipantStore(mem)
		winnerStore = store.NewMemWinnerStore()
		log.Printf("running with in-memory stores")
	}

	// optional shake audit sink
	var recorder service.SampleRecorder
	if os.Getenv("MONGODB_URI") != "" {
		mongoDB, cancel, err := audit.Connect()
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer cancel()
		recorder = audit.NewShakeLog(mongoDB)
		log.Printf("mongo connection established successfully")
	}

	// Connect to NATS
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	locks := service.NewKeyLock()

	// the broker doubles as the room-event publisher, so build it first with
	// the race service wired in afterwards
	b := broker.NewBroker(n.Conn, nil)

	drawService := service.NewDrawService(sessionStore, participantStore, winnerStore, locks)
	registryService := service.NewRegistryService(sessionStore, participantStore, b)
	raceService := service.NewRaceService(sessionStore, participantStore, winnerStore, b, recorder)
	b.Race = raceService

	// consume controller input from the socket service
	sub, err := b.SubscribeGameEvents()
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(0)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(drawService, registryService, raceService)
	h.InitAuth()
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("GAME_SERVICE_PORT"),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
