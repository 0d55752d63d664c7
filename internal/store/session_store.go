package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/annualparty/game-services/internal/models"
)

type PgSessionStore struct {
	db *pgxpool.Pool
}

func NewPgSessionStore(db *pgxpool.Pool) *PgSessionStore {
	return &PgSessionStore{db: db}
}

func (s *PgSessionStore) Create(ctx context.Context, session *models.Session) error {
	settings, err := json.Marshal(session.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	query := `
		INSERT INTO sessions (id, game_type, state, total_participants, settings)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err = s.db.QueryRow(ctx, query,
		session.ID,
		session.GameType,
		session.State,
		session.TotalParticipants,
		settings,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (s *PgSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, game_type, state, total_participants, settings, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`

	session := &models.Session{}
	var settings []byte
	err := s.db.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.GameType,
		&session.State,
		&session.TotalParticipants,
		&settings,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session by ID: %w", err)
	}

	if err := json.Unmarshal(settings, &session.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	return session, nil
}

// Transition performs the check-and-set as a single conditional UPDATE so two
// racing callers can never both see the old state.
func (s *PgSessionStore) Transition(ctx context.Context, id string, from, to models.SessionState) error {
	if from.Next() != to {
		return ErrInvalidTransition
	}

	query := `
		UPDATE sessions
		SET state = $3, updated_at = now()
		WHERE id = $1 AND state = $2
	`

	tag, err := s.db.Exec(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("failed to transition session: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// zero rows means either no such session or a stale `from`
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}

	return nil
}

func (s *PgSessionStore) UpdateSettings(ctx context.Context, id string, settings models.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	query := `
		UPDATE sessions
		SET settings = $2, updated_at = now()
		WHERE id = $1 AND state = 'waiting'
	`

	tag, err := s.db.Exec(ctx, query, id, raw)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrSessionNotWaiting
	}

	return nil
}
