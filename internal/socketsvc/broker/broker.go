package broker

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/annualparty/game-services/internal/comm"
	"github.com/annualparty/game-services/internal/socketsvc/room"
)

// Broker consumes room events from the game service and hands them to the
// local room registry for fan-out.
type Broker struct {
	Conn     *nats.Conn
	Registry *room.Registry
}

func NewBroker(conn *nats.Conn, registry *room.Registry) *Broker {
	return &Broker{
		Conn:     conn,
		Registry: registry,
	}
}

// SubscribeRoomEvents receives every room event; each socket service
// instance delivers to the connections it holds.
func (b *Broker) SubscribeRoomEvents() (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(comm.TopicRoomEvents, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// Publish forwards controller input to the game service.
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

func (b *Broker) handleMessages(msgNats *nats.Msg) {
	event := &comm.RoomEvent{}
	if err := json.Unmarshal(msgNats.Data, event); err != nil {
		log.Errorf("Error decoding room event: %s", err)
		return
	}

	switch event.Kind {
	case comm.EventPlayerJoined, comm.EventGameStart, comm.EventPlayerMoved:
		b.Registry.Publish(event.RoomId, event.Kind, event.Data)
	default:
		log.Warnf("unknown room event kind: %s", event.Kind)
	}
}
