package service

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/annualparty/game-services/internal/models"
	"github.com/annualparty/game-services/internal/store"
)

const (
	DefaultRounds        = 4
	DefaultPerRoundCount = 15
)

// DrawService runs golden-egg sessions: a fixed roster of lucky numbers and
// no-repeat random draws across rounds.
type DrawService struct {
	sessions     store.SessionStore
	participants store.ParticipantStore
	winners      store.WinnerStore
	locks        *KeyLock
}

func NewDrawService(sessions store.SessionStore, participants store.ParticipantStore,
	winners store.WinnerStore, locks *KeyLock) *DrawService {
	return &DrawService{
		sessions:     sessions,
		participants: participants,
		winners:      winners,
		locks:        locks,
	}
}

// ValidNumbers returns the first total positive integers whose decimal form
// contains no digit 4, ascending from 1. 4 is unlucky on party night.
func ValidNumbers(total int) []int {
	numbers := make([]int, 0, total)
	for n := 1; len(numbers) < total; n++ {
		if strings.ContainsRune(strconv.Itoa(n), '4') {
			continue
		}
		numbers = append(numbers, n)
	}
	return numbers
}

type DrawWinner struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

type DrawResult struct {
	Round          int          `json:"round"`
	Winners        []DrawWinner `json:"winners"`
	RemainingCount int          `json:"remainingCount"`
}

type RoundWinner struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Round  int    `json:"round"`
}

type SessionResults struct {
	Session *models.Session `json:"session"`
	Winners []RoundWinner   `json:"winners"`
}

// CreateSession creates a golden-egg session and pre-registers one
// participant per valid number.
func (s *DrawService) CreateSession(ctx context.Context, totalParticipants, rounds, perRoundCount int) (*models.Session, error) {
	if totalParticipants <= 0 {
		return nil, fmt.Errorf("%w: totalParticipants is required", ErrValidation)
	}
	if rounds <= 0 {
		rounds = DefaultRounds
	}
	if perRoundCount <= 0 {
		perRoundCount = DefaultPerRoundCount
	}

	validNumbers := ValidNumbers(totalParticipants)

	session := &models.Session{
		ID:                uuid.New().String(),
		GameType:          models.GameTypeGoldenEgg,
		State:             models.StateWaiting,
		TotalParticipants: totalParticipants,
		Settings: models.Settings{
			GoldenEgg: &models.GoldenEggSettings{
				Rounds:        rounds,
				PerRoundCount: perRoundCount,
				ValidNumbers:  validNumbers,
			},
		},
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	entries := make([]store.ParticipantEntry, len(validNumbers))
	for i, n := range validNumbers {
		entries[i] = store.ParticipantEntry{
			Nickname:     fmt.Sprintf("Number %d", n),
			PlayerNumber: n,
		}
	}

	if err := s.participants.BulkRegister(ctx, session.ID, entries); err != nil {
		return nil, err
	}

	return session, nil
}

// Draw selects this round's winners uniformly without replacement among the
// participants who have not won in any prior round. The whole
// read-exclude-persist sequence holds the session lock so two concurrent
// draws can never double-award anyone.
func (s *DrawService) Draw(ctx context.Context, sessionID string, roundNumber int) (*DrawResult, error) {
	if sessionID == "" || roundNumber <= 0 {
		return nil, fmt.Errorf("%w: sessionId and roundNumber are required", ErrValidation)
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State == models.StateCompleted {
		return nil, store.ErrInvalidTransition
	}

	perRoundCount := DefaultPerRoundCount
	if session.Settings.GoldenEgg != nil && session.Settings.GoldenEgg.PerRoundCount > 0 {
		perRoundCount = session.Settings.GoldenEgg.PerRoundCount
	}

	participants, err := s.participants.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	existing, err := s.winners.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	won := make(map[string]bool, len(existing))
	for _, w := range existing {
		won[w.ParticipantID] = true
	}

	eligible := make([]*models.Participant, 0, len(participants))
	for _, p := range participants {
		if !won[p.ID] {
			eligible = append(eligible, p)
		}
	}

	if len(eligible) == 0 {
		return nil, ErrNoEligibleParticipants
	}

	count := perRoundCount
	if count > len(eligible) {
		count = len(eligible)
	}

	// partial Fisher-Yates: first count slots end up a uniform sample
	for i := 0; i < count; i++ {
		j := i + rand.Intn(len(eligible)-i)
		eligible[i], eligible[j] = eligible[j], eligible[i]
	}
	picked := eligible[:count]

	records := make([]*models.Winner, len(picked))
	result := &DrawResult{
		Round:          roundNumber,
		Winners:        make([]DrawWinner, len(picked)),
		RemainingCount: len(eligible) - count,
	}
	for i, p := range picked {
		records[i] = &models.Winner{
			SessionID:     sessionID,
			ParticipantID: p.ID,
			RoundNumber:   roundNumber,
		}
		result.Winners[i] = DrawWinner{Number: p.PlayerNumber, Name: p.Nickname}
	}

	if err := s.winners.CreateBatch(ctx, records); err != nil {
		return nil, err
	}

	// first draw moves the session into play; exhaustion is reported per
	// draw rather than by completing the session, so the results screen can
	// keep polling
	if session.State == models.StateWaiting {
		if err := s.sessions.Transition(ctx, sessionID, models.StateWaiting, models.StateActive); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// SessionResults returns the session and every winner so far, ordered by
// round then win time, joined to each participant's number and nickname.
func (s *DrawService) SessionResults(ctx context.Context, sessionID string) (*SessionResults, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	winners, err := s.winners.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	participants, err := s.participants.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}

	out := &SessionResults{Session: session, Winners: make([]RoundWinner, 0, len(winners))}
	for _, w := range winners {
		p, ok := byID[w.ParticipantID]
		if !ok {
			continue
		}
		out.Winners = append(out.Winners, RoundWinner{
			Number: p.PlayerNumber,
			Name:   p.Nickname,
			Round:  w.RoundNumber,
		})
	}

	return out, nil
}
