package store

import (
	"context"
	"errors"

	"github.com/annualparty/game-services/internal/models"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrInvalidTransition   = errors.New("invalid session state transition")
	ErrSessionNotWaiting   = errors.New("session is not in waiting state")
)

type SessionStore interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)

	// Transition is an atomic check-and-set: it succeeds only when the
	// session is currently in `from` and `to` strictly follows it.
	Transition(ctx context.Context, id string, from, to models.SessionState) error

	// UpdateSettings is allowed only while the session is still waiting.
	UpdateSettings(ctx context.Context, id string, settings models.Settings) error
}

type ParticipantEntry struct {
	Nickname     string
	AvatarURL    string
	PlayerNumber int
}

type ParticipantStore interface {
	// Register assigns player number count+1 atomically per session.
	Register(ctx context.Context, sessionID, nickname, avatarURL string) (*models.Participant, error)

	// BulkRegister pre-populates a roster with caller-supplied numbers.
	BulkRegister(ctx context.Context, sessionID string, entries []ParticipantEntry) error

	Get(ctx context.Context, id string) (*models.Participant, error)

	// ListBySession returns participants in insertion order.
	ListBySession(ctx context.Context, sessionID string) ([]*models.Participant, error)
}

type WinnerStore interface {
	CreateBatch(ctx context.Context, winners []*models.Winner) error

	// ListBySession returns winners ordered by (round ascending, wonAt
	// ascending), the ordering the results screen depends on.
	ListBySession(ctx context.Context, sessionID string) ([]*models.Winner, error)
}
