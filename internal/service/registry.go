package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/annualparty/game-services/internal/comm"
	"github.com/annualparty/game-services/internal/models"
	"github.com/annualparty/game-services/internal/store"
)

// RegistryService enrolls controllers into horse-racing sessions. Golden-egg
// rosters are pre-populated at creation and never go through here.
type RegistryService struct {
	sessions     store.SessionStore
	participants store.ParticipantStore
	pub          EventPublisher
}

func NewRegistryService(sessions store.SessionStore, participants store.ParticipantStore,
	pub EventPublisher) *RegistryService {
	return &RegistryService{
		sessions:     sessions,
		participants: participants,
		pub:          pub,
	}
}

// Join registers a participant and announces it to the session's room.
// player_joined is published here and only here, so a controller that
// reconnects and re-joins the room is never announced twice.
func (s *RegistryService) Join(ctx context.Context, gameID, nickname, avatarURL string) (*models.Participant, error) {
	if gameID == "" || nickname == "" {
		return nil, fmt.Errorf("%w: gameId and nickname are required", ErrValidation)
	}

	session, err := s.sessions.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if session.GameType != models.GameTypeHorseRacing {
		return nil, fmt.Errorf("%w: session %s is not a horse-racing game", ErrValidation, gameID)
	}
	if session.State == models.StateCompleted {
		return nil, store.ErrInvalidTransition
	}

	participant, err := s.participants.Register(ctx, gameID, nickname, avatarURL)
	if err != nil {
		return nil, err
	}

	event := comm.PlayerJoined{
		Id:           participant.ID,
		Nickname:     participant.Nickname,
		Avatar:       participant.AvatarURL,
		PlayerNumber: participant.PlayerNumber,
	}
	if err := s.pub.Publish(gameID, comm.EventPlayerJoined, event); err != nil {
		log.Errorf("failed to publish player_joined for %s: %v", participant.ID, err)
	}

	return participant, nil
}

// List returns the session's roster in join order.
func (s *RegistryService) List(ctx context.Context, gameID string) ([]*models.Participant, error) {
	if _, err := s.sessions.Get(ctx, gameID); err != nil {
		return nil, err
	}
	return s.participants.ListBySession(ctx, gameID)
}
