package comm

import "encoding/json"

// NATS topics shared by the game and socket services.
const (
	TopicRoomEvents = "room.events" // gamesvc -> socketsvc, fan-out to a room
	TopicGameEvents = "game.events" // socketsvc -> gamesvc, controller input
)

// Room event kinds delivered to web clients.
const (
	EventPlayerJoined = "player_joined"
	EventGameStart    = "game_start"
	EventPlayerMoved  = "player_moved"
)

// WSMessage is the envelope for everything on the websocket, e.g.
// "join_game", "shake".
type WSMessage struct {
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

// RoomEvent travels over NATS from the game service to every socket service
// instance, which fans it out to the connections joined to RoomId.
type RoomEvent struct {
	RoomId string          `json:"room_id"` // session id
	Kind   string          `json:"kind"`
	Data   json.RawMessage `json:"data"`
}

type JoinRoom struct {
	GameId string `json:"gameId"`
}

// ShakeEvent is controller input forwarded from the socket service to the
// game service for aggregation.
type ShakeEvent struct {
	GameId    string  `json:"gameId"`
	PlayerId  string  `json:"playerId"`
	Intensity float64 `json:"intensity"`
	Timestamp int64   `json:"timestamp"`
}

type PlayerJoined struct {
	Id           string `json:"id"`
	Nickname     string `json:"nickname"`
	Avatar       string `json:"avatar"`
	PlayerNumber int    `json:"playerNumber"`
}

type GameStart struct {
	Timestamp int64 `json:"timestamp"`
}

type PlayerMoved struct {
	PlayerId  string  `json:"playerId"`
	Intensity float64 `json:"intensity"`
}
