package models

import "time"

type Participant struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	Nickname     string    `json:"nickname"`
	AvatarURL    string    `json:"avatar_url"`
	PlayerNumber int       `json:"player_number"` // unique within a session
	JoinedAt     time.Time `json:"joined_at"`
}
