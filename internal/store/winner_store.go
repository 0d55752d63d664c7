package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/annualparty/game-services/internal/models"
)

type PgWinnerStore struct {
	db *pgxpool.Pool
}

func NewPgWinnerStore(db *pgxpool.Pool) *PgWinnerStore {
	return &PgWinnerStore{db: db}
}

func (s *PgWinnerStore) CreateBatch(ctx context.Context, winners []*models.Winner) error {
	if len(winners) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO winners (session_id, participant_id, round_number, prize_rank)
		VALUES ($1, $2, $3, $4)
		RETURNING won_at
	`

	for _, w := range winners {
		err := tx.QueryRow(ctx, query, w.SessionID, w.ParticipantID, w.RoundNumber, w.PrizeRank).Scan(&w.WonAt)
		if err != nil {
			return fmt.Errorf("failed to create winner record: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PgWinnerStore) ListBySession(ctx context.Context, sessionID string) ([]*models.Winner, error) {
	query := `
		SELECT session_id, participant_id, round_number, prize_rank, won_at
		FROM winners
		WHERE session_id = $1
		ORDER BY round_number, won_at
	`

	rows, err := s.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var winners []*models.Winner
	for rows.Next() {
		var w models.Winner
		err := rows.Scan(
			&w.SessionID,
			&w.ParticipantID,
			&w.RoundNumber,
			&w.PrizeRank,
			&w.WonAt,
		)
		if err != nil {
			return nil, err
		}
		winners = append(winners, &w)
	}

	return winners, nil
}
