package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/annualparty/game-services/internal/comm"
	"github.com/annualparty/game-services/internal/socketsvc/broker"
	"github.com/annualparty/game-services/internal/socketsvc/room"
)

type Handler struct {
	upgrader websocket.Upgrader
	registry *room.Registry
	broker   *broker.Broker
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func NewHandler(registry *room.Registry, b *broker.Broker) *Handler {
	h := &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		registry: registry,
		broker:   b,
	}
	return h
}

// HandleWebSocket accepts a controller or display connection and starts its
// read loop.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		http.Error(w, "Failed to upgrade to WebSocket", http.StatusInternalServerError)
		return
	}

	socketId := uuid.New().String()
	h.registry.Add(socketId, conn)

	log.Infof("New WebSocket connection established: %s", socketId)

	go h.handleConnection(conn, socketId)
}

func (h *Handler) handleConnection(conn *websocket.Conn, socketId string) {
	// Ensure cleanup happens when connection closes
	defer func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		conn.Close()
		h.registry.Remove(socketId)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			} else {
				log.Infof("WebSocket connection closed normally for socket: %s", socketId)
			}
			break
		}

		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, &message); err != nil {
			log.Errorf("Failed to unmarshal message from socket %s: %v", socketId, err)
			h.sendErrorToClient(conn, "Invalid message format")
			continue // Don't break, just skip this message
		}

		log.Debugf("Received message from socket %s: type=%s", socketId, message.Type)

		h.socketMessage(socketId, message)
	}
}

// socketMessage dispatches one message from a web client.
func (h *Handler) socketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "join_game":
		h.handleJoinGame(socketId, message)
	case "shake":
		h.handleShake(socketId, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

// handleJoinGame puts the socket in the session's room. The player_joined
// announcement is deliberately NOT sent here; the join API publishes it, so
// a reconnecting client never produces a duplicate.
func (h *Handler) handleJoinGame(socketId string, msg *comm.WSMessage) {
	var payload comm.JoinRoom
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("Error: invalid join_game payload %s", err)
		return
	}

	if payload.GameId == "" {
		log.Error("Invalid join_game payload: missing gameId")
		return
	}

	h.registry.Join(socketId, payload.GameId)
	log.Infof("socket %s joined room %s", socketId, payload.GameId)
}

// handleShake forwards controller motion to the game service; the aggregator
// is authoritative and echoes player_moved back through the room.
func (h *Handler) handleShake(socketId string, msg *comm.WSMessage) {
	var payload comm.ShakeEvent
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("Error: invalid shake payload %s", err)
		return
	}

	if payload.GameId == "" || payload.PlayerId == "" {
		log.Error("Invalid shake payload: missing gameId or playerId")
		return
	}

	msg.SocketId = socketId

	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return
	}

	if err := h.broker.Publish(comm.TopicGameEvents, bytes); err != nil {
		log.Errorf("Failed to publish to NATS topic %s: %v", comm.TopicGameEvents, err)
		return
	}
}

// sendErrorToClient sends an error message back to the WebSocket client
func (h *Handler) sendErrorToClient(conn *websocket.Conn, errorMsg string) {
	errorResponse := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	if data, err := json.Marshal(errorResponse); err == nil {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Errorf("Failed to send error message to client: %v", err)
		}
	}
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "socket service is running at port " + os.Getenv("SOCKET_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode health response: %v", err)
	}
}
