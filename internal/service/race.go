package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/annualparty/game-services/internal/comm"
	"github.com/annualparty/game-services/internal/models"
	"github.com/annualparty/game-services/internal/store"
)

const (
	// TrackLength is the finish line in distance units.
	TrackLength = 100.0

	// SpeedScale converts shake intensity into distance per sample.
	SpeedScale = 0.5

	DefaultTotalParticipants = 60
	DefaultRaceDuration      = 10 * time.Second
	DefaultCountdownTime     = 3 * time.Second
)

type racePhase int

const (
	phaseCountdown racePhase = iota
	phaseRacing
	phaseFinished
)

type horse struct {
	participant *models.Participant
	speed       float64
	progress    float64
}

type raceState struct {
	mu        sync.Mutex
	phase     racePhase
	horses    map[string]*horse // by participant id
	order     []*horse          // join order, the tie-break for ranking
	countdown *time.Timer
	timer     *time.Timer
}

// RaceService aggregates shake samples into one consistent race per session
// and settles prizes when the race ends.
type RaceService struct {
	sessions     store.SessionStore
	participants store.ParticipantStore
	winners      store.WinnerStore
	pub          EventPublisher
	recorder     SampleRecorder // optional audit sink, may be nil

	mu    sync.Mutex
	races map[string]*raceState
}

func NewRaceService(sessions store.SessionStore, participants store.ParticipantStore,
	winners store.WinnerStore, pub EventPublisher, recorder SampleRecorder) *RaceService {
	return &RaceService{
		sessions:     sessions,
		participants: participants,
		winners:      winners,
		pub:          pub,
		recorder:     recorder,
		races:        make(map[string]*raceState),
	}
}

// CreateSession creates a horse-racing session in waiting state. Controllers
// join afterwards; the roster is not pre-populated.
func (s *RaceService) CreateSession(ctx context.Context, totalParticipants int) (*models.Session, error) {
	if totalParticipants <= 0 {
		totalParticipants = DefaultTotalParticipants
	}

	session := &models.Session{
		ID:                uuid.New().String(),
		GameType:          models.GameTypeHorseRacing,
		State:             models.StateWaiting,
		TotalParticipants: totalParticipants,
		Settings: models.Settings{
			HorseRacing: &models.HorseRacingSettings{
				RaceDuration:  models.Duration(DefaultRaceDuration),
				CountdownTime: models.Duration(DefaultCountdownTime),
			},
		},
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// Start fires the race. Only the shared display calls this. The store's
// check-and-set makes a second Start fail instead of broadcasting a second
// game_start.
func (s *RaceService) Start(ctx context.Context, gameID string) error {
	if gameID == "" {
		return fmt.Errorf("%w: gameId is required", ErrValidation)
	}

	session, err := s.sessions.Get(ctx, gameID)
	if err != nil {
		return err
	}
	if session.GameType != models.GameTypeHorseRacing {
		return fmt.Errorf("%w: session %s is not a horse-racing game", ErrValidation, gameID)
	}

	if err := s.sessions.Transition(ctx, gameID, models.StateWaiting, models.StateActive); err != nil {
		return err
	}

	roster, err := s.participants.ListBySession(ctx, gameID)
	if err != nil {
		return err
	}

	race := &raceState{
		phase:  phaseCountdown,
		horses: make(map[string]*horse, len(roster)),
	}
	for _, p := range roster {
		h := &horse{participant: p}
		race.horses[p.ID] = h
		race.order = append(race.order, h)
	}

	raceDuration := DefaultRaceDuration
	countdownTime := DefaultCountdownTime
	if hr := session.Settings.HorseRacing; hr != nil {
		if hr.RaceDuration.Std() > 0 {
			raceDuration = hr.RaceDuration.Std()
		}
		countdownTime = hr.CountdownTime.Std()
	}

	s.mu.Lock()
	s.races[gameID] = race
	s.mu.Unlock()

	if err := s.pub.Publish(gameID, comm.EventGameStart, comm.GameStart{Timestamp: time.Now().UnixMilli()}); err != nil {
		log.Errorf("failed to publish game_start for %s: %v", gameID, err)
	}

	race.mu.Lock()
	race.countdown = time.AfterFunc(countdownTime, func() {
		race.mu.Lock()
		if race.phase == phaseCountdown {
			race.phase = phaseRacing
			race.timer = time.AfterFunc(raceDuration, func() { s.settle(gameID) })
		}
		race.mu.Unlock()
	})
	race.mu.Unlock()

	log.Infof("race %s started: %d horses, %s countdown, %s duration",
		gameID, len(roster), countdownTime, raceDuration)

	return nil
}

// Ingest applies one shake sample. Samples are additive and loss-tolerant;
// only samples arriving while the race is running move a horse. The
// player_moved echo always goes out so the display can animate effort even
// during countdown.
func (s *RaceService) Ingest(ctx context.Context, gameID, playerID string, intensity float64, timestamp int64) error {
	if gameID == "" || playerID == "" {
		return fmt.Errorf("%w: gameId and playerId are required", ErrValidation)
	}
	if intensity < 0 {
		return fmt.Errorf("%w: intensity must be non-negative", ErrValidation)
	}

	if s.recorder != nil {
		sample := models.ShakeSample{ParticipantID: playerID, Intensity: intensity, Timestamp: timestamp}
		if err := s.recorder.Record(ctx, gameID, sample); err != nil {
			log.Warnf("shake audit write failed for %s: %v", gameID, err)
		}
	}

	if err := s.pub.Publish(gameID, comm.EventPlayerMoved, comm.PlayerMoved{PlayerId: playerID, Intensity: intensity}); err != nil {
		log.Errorf("failed to publish player_moved for %s: %v", gameID, err)
	}

	s.mu.Lock()
	race := s.races[gameID]
	s.mu.Unlock()
	if race == nil {
		return nil
	}

	allDone := false
	race.mu.Lock()
	if race.phase == phaseRacing {
		if h, ok := race.horses[playerID]; ok {
			h.speed = intensity
			h.progress += intensity * SpeedScale
			if h.progress > TrackLength {
				h.progress = TrackLength
			}

			allDone = len(race.order) > 0
			for _, other := range race.order {
				if other.progress < TrackLength {
					allDone = false
					break
				}
			}
		}
	}
	race.mu.Unlock()

	if allDone {
		s.settle(gameID)
	}

	return nil
}

// HorseProgress is a point-in-time view for the display.
type HorseProgress struct {
	ParticipantID string  `json:"participant_id"`
	Nickname      string  `json:"nickname"`
	PlayerNumber  int     `json:"player_number"`
	Speed         float64 `json:"speed"`
	Progress      float64 `json:"progress"`
}

// Snapshot returns current progress in join order, or nil when the race has
// not started.
func (s *RaceService) Snapshot(gameID string) []HorseProgress {
	s.mu.Lock()
	race := s.races[gameID]
	s.mu.Unlock()
	if race == nil {
		return nil
	}

	race.mu.Lock()
	defer race.mu.Unlock()

	out := make([]HorseProgress, len(race.order))
	for i, h := range race.order {
		out[i] = HorseProgress{
			ParticipantID: h.participant.ID,
			Nickname:      h.participant.Nickname,
			PlayerNumber:  h.participant.PlayerNumber,
			Speed:         h.speed,
			Progress:      h.progress,
		}
	}
	return out
}

// Session re-fetches the stored session record; gameplay decisions never use
// a cached copy.
func (s *RaceService) Session(ctx context.Context, gameID string) (*models.Session, error) {
	return s.sessions.Get(ctx, gameID)
}

type RankEntry struct {
	ParticipantID string `json:"participantId"`
	Rank          int    `json:"rank"`
}

// Finish settles the race from caller-supplied rankings, the path the shared
// display uses when it owns the final animation. With no rankings it settles
// from the aggregator's own state.
func (s *RaceService) Finish(ctx context.Context, gameID string, rankings []RankEntry) error {
	if gameID == "" {
		return fmt.Errorf("%w: gameId is required", ErrValidation)
	}

	if len(rankings) == 0 {
		return s.settle(gameID)
	}

	s.mu.Lock()
	race := s.races[gameID]
	s.mu.Unlock()

	if race != nil {
		race.mu.Lock()
		if race.phase == phaseFinished {
			race.mu.Unlock()
			return store.ErrInvalidTransition
		}
		race.stopTimers()
		race.phase = phaseFinished
		race.mu.Unlock()
	}

	if err := s.sessions.Transition(ctx, gameID, models.StateActive, models.StateCompleted); err != nil {
		return err
	}

	records := make([]*models.Winner, len(rankings))
	for i, r := range rankings {
		records[i] = &models.Winner{
			SessionID:     gameID,
			ParticipantID: r.ParticipantID,
			RoundNumber:   1, // horse racing is a single round
			PrizeRank:     prizeForRank(r.Rank),
		}
	}

	return s.winners.CreateBatch(ctx, records)
}

// settle ends the race from aggregator state: rank by progress descending
// with ties kept in join order, persist one winner per horse, complete the
// session. Safe to race between the timer, the last shake and a manual
// finish; only the first caller settles.
func (s *RaceService) settle(gameID string) error {
	s.mu.Lock()
	race := s.races[gameID]
	s.mu.Unlock()
	if race == nil {
		return store.ErrSessionNotFound
	}

	race.mu.Lock()
	if race.phase == phaseFinished {
		race.mu.Unlock()
		return store.ErrInvalidTransition
	}
	race.stopTimers()
	race.phase = phaseFinished

	ranked := make([]*horse, len(race.order))
	copy(ranked, race.order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].progress > ranked[j].progress
	})
	race.mu.Unlock()

	records := make([]*models.Winner, len(ranked))
	for i, h := range ranked {
		records[i] = &models.Winner{
			SessionID:     gameID,
			ParticipantID: h.participant.ID,
			RoundNumber:   1,
			PrizeRank:     prizeForRank(i + 1),
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.sessions.Transition(ctx, gameID, models.StateActive, models.StateCompleted); err != nil {
		log.Errorf("failed to complete race session %s: %v", gameID, err)
		return err
	}

	if err := s.winners.CreateBatch(ctx, records); err != nil {
		log.Errorf("failed to persist race results for %s: %v", gameID, err)
		return err
	}

	log.Infof("race %s settled with %d finishers", gameID, len(records))

	return nil
}

func (r *raceState) stopTimers() {
	if r.countdown != nil {
		r.countdown.Stop()
	}
	if r.timer != nil {
		r.timer.Stop()
	}
}

// prizeForRank maps race placement to the party's prize tiers. Everyone who
// raced gets at least the participation tier.
func prizeForRank(rank int) int {
	switch {
	case rank == 1:
		return 1
	case rank == 2:
		return 2
	case rank == 3:
		return 3
	case rank <= 20:
		return 4
	default:
		return 5
	}
}
