package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/annualparty/game-services/internal/comm"
	"github.com/annualparty/game-services/internal/service"
)

// Broker bridges the game service and the socket service over NATS: room
// events out, controller shake input in.
type Broker struct {
	Conn *nats.Conn
	Race *service.RaceService
}

func NewBroker(nc *nats.Conn, race *service.RaceService) *Broker {
	return &Broker{Conn: nc, Race: race}
}

// Publish implements service.EventPublisher. Every socket service instance
// subscribed to room.events fans the event out to its connections in that
// room.
func (b *Broker) Publish(roomID, kind string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	event := comm.RoomEvent{RoomId: roomID, Kind: kind, Data: data}
	bytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal room event: %w", err)
	}

	if err := b.Conn.Publish(comm.TopicRoomEvents, bytes); err != nil {
		log.Errorf("Error publishing to topic %s: %s", comm.TopicRoomEvents, err)
		return err
	}

	return nil
}

// SubscribeGameEvents consumes controller input forwarded by the socket
// service. A queue group keeps each shake at exactly one game service
// instance.
func (b *Broker) SubscribeGameEvents() (*nats.Subscription, error) {
	sub, err := b.Conn.QueueSubscribe(comm.TopicGameEvents, "gamesvc", b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := &comm.WSMessage{}
	if err := json.Unmarshal(msgNat.Data, msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	switch msg.Type {
	case "shake":
		var shake comm.ShakeEvent
		if err := json.Unmarshal(msg.Data, &shake); err != nil {
			log.Errorf("Error decoding shake event: %s", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := b.Race.Ingest(ctx, shake.GameId, shake.PlayerId, shake.Intensity, shake.Timestamp); err != nil {
			log.Errorf("Error ingesting shake for game %s: %s", shake.GameId, err)
		}
	default:
		log.Warnf("unknown game event received: %s", msg.Type)
	}
}
