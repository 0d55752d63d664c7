package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/annualparty/game-services/internal/models"
)

type PgParticipantStore struct {
	db *pgxpool.Pool
}

func NewPgParticipantStore(db *pgxpool.Pool) *PgParticipantStore {
	return &PgParticipantStore{db: db}
}

// Register inserts a participant with player number count+1. The CTE locks the
// session row so concurrent joins to the same session serialize on the count.
func (s *PgParticipantStore) Register(ctx context.Context, sessionID, nickname, avatarURL string) (*models.Participant, error) {
	if nickname == "" {
		return nil, fmt.Errorf("nickname cannot be empty")
	}

	const query = `
WITH locked_session AS (
  SELECT id
  FROM sessions
  WHERE id = $1
  FOR UPDATE
)
INSERT INTO participants (id, session_id, nickname, avatar_url, player_number)
SELECT $2, ls.id, $3, $4,
       (SELECT count(*) + 1 FROM participants WHERE session_id = ls.id)
FROM locked_session ls
RETURNING id, session_id, nickname, avatar_url, player_number, joined_at;
`

	p := &models.Participant{}
	err := s.db.QueryRow(ctx, query, sessionID, uuid.New().String(), nickname, avatarURL).Scan(
		&p.ID,
		&p.SessionID,
		&p.Nickname,
		&p.AvatarURL,
		&p.PlayerNumber,
		&p.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to register participant: %w", err)
	}

	return p, nil
}

func (s *PgParticipantStore) BulkRegister(ctx context.Context, sessionID string, entries []ParticipantEntry) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO participants (id, session_id, nickname, avatar_url, player_number)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, e := range entries {
		_, err := tx.Exec(ctx, query, uuid.New().String(), sessionID, e.Nickname, e.AvatarURL, e.PlayerNumber)
		if err != nil {
			return fmt.Errorf("failed to bulk register participant %d: %w", e.PlayerNumber, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PgParticipantStore) Get(ctx context.Context, id string) (*models.Participant, error) {
	query := `
		SELECT id, session_id, nickname, avatar_url, player_number, joined_at
		FROM participants
		WHERE id = $1
	`

	p := &models.Participant{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.SessionID,
		&p.Nickname,
		&p.AvatarURL,
		&p.PlayerNumber,
		&p.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant by ID: %w", err)
	}

	return p, nil
}

func (s *PgParticipantStore) ListBySession(ctx context.Context, sessionID string) ([]*models.Participant, error) {
	query := `
		SELECT id, session_id, nickname, avatar_url, player_number, joined_at
		FROM participants
		WHERE session_id = $1
		ORDER BY joined_at, player_number
	`

	rows, err := s.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		var p models.Participant
		err := rows.Scan(
			&p.ID,
			&p.SessionID,
			&p.Nickname,
			&p.AvatarURL,
			&p.PlayerNumber,
			&p.JoinedAt,
		)
		if err != nil {
			return nil, err
		}
		participants = append(participants, &p)
	}

	return participants, nil
}
