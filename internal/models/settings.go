package models

import (
	"encoding/json"
	"time"
)

// Settings is a tagged variant keyed by the session's game type. Exactly one
// member is non-nil for a valid session.
type Settings struct {
	GoldenEgg   *GoldenEggSettings   `json:"golden_egg,omitempty"`
	HorseRacing *HorseRacingSettings `json:"horse_racing,omitempty"`
}

type GoldenEggSettings struct {
	Rounds        int   `json:"rounds"`
	PerRoundCount int   `json:"per_round_count"`
	ValidNumbers  []int `json:"valid_numbers"`
}

type HorseRacingSettings struct {
	RaceDuration  Duration `json:"race_duration"`
	CountdownTime Duration `json:"countdown_time"`
}

// Duration marshals as seconds, matching what the display client expects.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).Seconds())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return err
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }
