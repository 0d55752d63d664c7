package room

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/annualparty/game-services/internal/comm"
)

// sendBuffer is per connection; a controller that stops reading loses its
// connection once this fills, never the room's delivery to others.
const sendBuffer = 32

type client struct {
	socketId string
	send     chan []byte
	done     chan struct{}
	conn     *websocket.Conn
	once     sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// Registry maps sessions to their connected listeners. One room per session
// id; publish delivers to every joined connection, including the originator.
type Registry struct {
	connMap sync.Map // socketId -> *client
	roomMap sync.Map // socketId -> roomId
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a connection and starts its writer. Each connection writes
// from exactly one goroutine, so a slow socket only ever blocks itself.
func (r *Registry) Add(socketId string, conn *websocket.Conn) {
	c := &client{
		socketId: socketId,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
		conn:     conn,
	}
	r.connMap.Store(socketId, c)

	if conn != nil {
		go c.writeLoop()
	}
}

func (c *client) writeLoop() {
	defer c.conn.Close()
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Infof("write failed for socket %s: %v", c.socketId, err)
				return
			}
		case <-c.done:
			return
		}
	}
}

// Join moves the socket into the session's room. Re-joining after a
// reconnect is silent; announcements come from the registration API only.
func (r *Registry) Join(socketId, roomId string) {
	r.roomMap.Store(socketId, roomId)
}

func (r *Registry) Remove(socketId string) {
	r.roomMap.Delete(socketId)
	if v, ok := r.connMap.LoadAndDelete(socketId); ok {
		v.(*client).close()
	}
}

func (r *Registry) RoomSockets(roomId string) []string {
	var sockets []string
	r.roomMap.Range(func(key, value interface{}) bool {
		if value.(string) == roomId {
			sockets = append(sockets, key.(string))
		}
		return true // continue iterating
	})
	return sockets
}

// Publish fans one event out to the room. Fire-and-forget per connection: a
// full send buffer drops that connection rather than stalling the rest.
func (r *Registry) Publish(roomId, kind string, data json.RawMessage) {
	msg := &comm.WSMessage{Type: kind, Data: data}
	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("failed to marshal %s event: %v", kind, err)
		return
	}

	for _, socketId := range r.RoomSockets(roomId) {
		v, ok := r.connMap.Load(socketId)
		if !ok {
			continue
		}
		c := v.(*client)

		select {
		case c.send <- bytes:
		default:
			log.Warnf("dropping slow socket %s in room %s", socketId, roomId)
			r.Remove(socketId)
		}
	}
}
