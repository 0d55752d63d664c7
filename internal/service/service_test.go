package service

import (
	"encoding/json"
	"sync"

	"github.com/annualparty/game-services/internal/store"
)

type capturedEvent struct {
	RoomID  string
	Kind    string
	Payload []byte
}

// capturePublisher records published events in order, in place of the NATS
// broker.
type capturePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (c *capturePublisher) Publish(roomID, kind string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, capturedEvent{RoomID: roomID, Kind: kind, Payload: data})
	return nil
}

func (c *capturePublisher) byKind(kind string) []capturedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []capturedEvent
	for _, e := range c.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type memStores struct {
	sessions     *store.MemSessionStore
	participants *store.MemParticipantStore
	winners      *store.MemWinnerStore
}

func newMemStores() memStores {
	sessions := store.NewMemSessionStore()
	return memStores{
		sessions:     sessions,
		participants: store.NewMemParticipantStore(sessions),
		winners:      store.NewMemWinnerStore(),
	}
}
