package service

import (
	"context"

	"github.com/annualparty/game-services/internal/models"
)

// EventPublisher fans an event out to every connection in a session's room.
// Production wires the NATS-backed publisher from the gamesvc broker; tests
// use an in-process capture. Delivery is fire-and-forget.
type EventPublisher interface {
	Publish(roomID, kind string, payload interface{}) error
}

// SampleRecorder persists shake samples for audit. A failed or absent
// recorder never affects gameplay.
type SampleRecorder interface {
	Record(ctx context.Context, sessionID string, sample models.ShakeSample) error
}
