package types

import "github.com/DoyleJ11/wordchain-backend/internal/engine"

// Client -> Server
const (
	MsgCreateRoom = "create_room"
	MsgJoinRoom   = "join_room"
	MsgSubmitWord = "submit_word"
	MsgStartGame  = "start_game"
)

// Server -> Client
const (
	MsgRoomCreated     = "room_created"
	MsgPlayerAssigned  = "player_assigned"
	MsgPlayerJoined    = "player_joined"
	MsgPlayerLeft      = "player_left"
	MsgGameStarted     = "game_started"
	MsgGameStateUpdate = "game_state_update"
	MsgWordRejected    = "word_rejected"
	MsgGameOver        = "game_over"
	MsgError           = "error"
)

type ClientMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Word   string `json:"word,omitempty"`
}

type ServerMessage struct {
	Type      string     `json:"type"`
	Version   int        `json:"version,omitempty"`
	RoomID    string     `json:"roomId,omitempty"`
	PlayerID  string     `json:"playerId,omitempty"`
	GameState *GameState `json:"gameState,omitempty"`
	Message   string     `json:"message,omitempty"`
	ErrorType string     `json:"errorType,omitempty"`
}

// GameState is the client view of a session. Field names follow the browser client.
type GameState struct {
	Players       []engine.Slot       `json:"players"`
	CurrentPlayer engine.Slot         `json:"currentPlayer"`
	Timer         int                 `json:"timer"`
	UsedWords     []string            `json:"usedWords"`
	LastWord      string              `json:"lastWord"`
	Phase         engine.Phase        `json:"gameState"`
	Scores        map[engine.Slot]int `json:"scores"`
	Lives         map[engine.Slot]int `json:"lives"`
	Winner        engine.Slot         `json:"winner"`
}

// NewGameState copies s so the result can be handed to other goroutines.
func NewGameState(s engine.State) *GameState {
	c := s.Clone()
	return &GameState{
		Players:       c.Players,
		CurrentPlayer: c.CurrentPlayer,
		Timer:         c.TimerRemaining,
		UsedWords:     c.UsedWords,
		LastWord:      c.LastWord,
		Phase:         c.Phase,
		Scores:        c.Scores,
		Lives:         c.Lives,
		Winner:        c.Winner,
	}
}

func Error(message string) ServerMessage {
	return ServerMessage{Type: MsgError, Message: message}
}
