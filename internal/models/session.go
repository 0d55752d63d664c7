package models

import "time"

type GameType string

const (
	GameTypeGoldenEgg   GameType = "golden-egg"
	GameTypeHorseRacing GameType = "horse-racing"
)

type SessionState string

const (
	StateWaiting   SessionState = "waiting"
	StateActive    SessionState = "active"
	StateCompleted SessionState = "completed"
)

// Next returns the state that strictly follows s, or "" when s is terminal.
func (s SessionState) Next() SessionState {
	switch s {
	case StateWaiting:
		return StateActive
	case StateActive:
		return StateCompleted
	}
	return ""
}

type Session struct {
	ID                string       `json:"id"`
	GameType          GameType     `json:"game_type"`
	State             SessionState `json:"state"`
	TotalParticipants int          `json:"total_participants"`
	Settings          Settings     `json:"settings"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}
