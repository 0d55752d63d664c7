package models

// ShakeSample is one motion reading from a controller. Samples are additive
// input to the race aggregator and are never re-read for gameplay decisions.
type ShakeSample struct {
	ParticipantID string  `json:"participant_id"`
	Intensity     float64 `json:"intensity"`
	Timestamp     int64   `json:"timestamp"` // unix millis from the controller
}
