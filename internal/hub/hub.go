package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"

	"go.uber.org/zap"

	"github.com/DoyleJ11/wordchain-backend/internal/lobby"
)

const (
	CodeLength  = 6
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// maxCodeAttempts bounds regeneration when a fresh code collides with a live room.
	maxCodeAttempts = 32
)

var ErrNoFreeCode = errors.New("could not allocate a unique room code")
var ErrHubClosed = errors.New("hub is shut down")

func GenerateCode() (string, error) {
	code := make([]byte, CodeLength)
	for i := 0; i < CodeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

// Factory builds the lobby for a newly allocated room code.
type Factory func(ctx context.Context, code string) *lobby.Lobby

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Reply chan CreateResult
}

type CreateResult struct {
	Lobby *lobby.Lobby
	Err   error
}

type GetRoom struct {
	Code  string
	Reply chan *lobby.Lobby
}

type RemoveRoom struct {
	Code string
}

type CountRooms struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (CountRooms) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Hub is the registry of live rooms, keyed by room code.
type Hub struct {
	inbox    chan HubMsg
	lobbies  map[string]*lobby.Lobby
	newLobby Factory
	genCode  func() (string, error)
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewHub(parent context.Context, newLobby Factory, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		lobbies:  make(map[string]*lobby.Lobby),
		newLobby: newLobby,
		genCode:  GenerateCode,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				msg.Reply <- h.create()

			case GetRoom:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case RemoveRoom:
				if lb := h.lobbies[msg.Code]; lb != nil {
					delete(h.lobbies, msg.Code)
					// Close waits for the lobby loop; do not block the hub on it.
					go lb.Close()
					h.logger.Info("room removed", zap.String("room", msg.Code))
				}

			case CountRooms:
				msg.Reply <- len(h.lobbies)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create() CreateResult {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := h.genCode()
		if err != nil {
			return CreateResult{Err: err}
		}
		if _, taken := h.lobbies[code]; taken {
			h.logger.Debug("collision on code, regenerating", zap.String("room", code))
			continue
		}
		lb := h.newLobby(h.ctx, code)
		h.lobbies[code] = lb
		h.logger.Info("room created", zap.String("room", code))
		return CreateResult{Lobby: lb}
	}
	return CreateResult{Err: ErrNoFreeCode}
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		lb.Close()
	}
	clear(h.lobbies)
	h.cancel()
}

func (h *Hub) send(m HubMsg) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.inbox <- m:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Create() (*lobby.Lobby, error) {
	reply := make(chan CreateResult, 1)
	if !h.send(CreateRoom{Reply: reply}) {
		return nil, ErrHubClosed
	}
	select {
	case res := <-reply:
		return res.Lobby, res.Err
	case <-h.done:
		return nil, ErrHubClosed
	}
}

// Get returns nil when no live room has code.
func (h *Hub) Get(code string) *lobby.Lobby {
	reply := make(chan *lobby.Lobby, 1)
	if !h.send(GetRoom{Code: code, Reply: reply}) {
		return nil
	}
	select {
	case lb := <-reply:
		return lb
	case <-h.done:
		return nil
	}
}

func (h *Hub) Remove(code string) {
	h.send(RemoveRoom{Code: code})
}

func (h *Hub) Count() int {
	reply := make(chan int, 1)
	if !h.send(CountRooms{Reply: reply}) {
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-h.done:
		return 0
	}
}

// Shutdown closes every room and stops the hub.
func (h *Hub) Shutdown() {
	h.send(ShutdownHub{})
	<-h.done
}
