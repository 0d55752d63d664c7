package models

import "time"

type Winner struct {
	SessionID     string    `json:"session_id"`
	ParticipantID string    `json:"participant_id"`
	RoundNumber   int       `json:"round_number"`
	PrizeRank     int       `json:"prize_rank"` // 0 for golden-egg draws, 1..5 for race placement
	WonAt         time.Time `json:"won_at"`
}
