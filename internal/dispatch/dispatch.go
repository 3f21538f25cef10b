package dispatch

import (
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/wordchain-backend/internal/directory"
	"github.com/DoyleJ11/wordchain-backend/internal/engine"
	"github.com/DoyleJ11/wordchain-backend/internal/hub"
	"github.com/DoyleJ11/wordchain-backend/internal/lobby"
	"github.com/DoyleJ11/wordchain-backend/internal/types"
)

const (
	errInvalidFormat = "invalid message format"
	errUnknownType   = "unknown message type"
	errRoomNotFound  = "room not found"
	errRoomFull      = "room is full"
	errAlreadyInRoom = "already in a room"
	errCreateFailed  = "could not create room"
)

// Dispatcher routes decoded client messages from one connection to the right room.
// It holds no game state of its own.
type Dispatcher struct {
	hub    *hub.Hub
	dir    *directory.Directory
	bc     *directory.Broadcaster
	logger *zap.Logger
}

func New(h *hub.Hub, dir *directory.Directory, bc *directory.Broadcaster, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{hub: h, dir: dir, bc: bc, logger: logger}
}

// Connect registers connID and returns the channel its writer should drain.
func (d *Dispatcher) Connect(connID string) <-chan types.ServerMessage {
	d.logger.Debug("connection opened", zap.String("conn", connID))
	return d.bc.Attach(connID)
}

// Handle processes one raw inbound frame.
func (d *Dispatcher) Handle(connID string, data []byte) {
	var cm types.ClientMessage
	if err := json.Unmarshal(data, &cm); err != nil {
		d.bc.SendToConn(connID, types.Error(errInvalidFormat))
		return
	}

	switch cm.Type {
	case types.MsgCreateRoom:
		d.createRoom(connID)
	case types.MsgJoinRoom:
		d.joinRoom(connID, cm.RoomID)
	case types.MsgSubmitWord:
		if lb, b, ok := d.bound(connID); ok {
			_ = lb.Submit(b.Slot, cm.Word)
		}
	case types.MsgStartGame:
		if lb, b, ok := d.bound(connID); ok {
			_ = lb.Start(b.Slot)
		}
	default:
		d.bc.SendToConn(connID, types.Error(errUnknownType))
	}
}

func (d *Dispatcher) createRoom(connID string) {
	if _, ok := d.dir.Lookup(connID); ok {
		d.bc.SendToConn(connID, types.Error(errAlreadyInRoom))
		return
	}

	lb, err := d.hub.Create()
	if err != nil {
		d.logger.Error("create room", zap.String("conn", connID), zap.Error(err))
		d.bc.SendToConn(connID, types.Error(errCreateFailed))
		return
	}

	slot, err := lb.Join(connID)
	if err != nil {
		d.logger.Error("seat creator", zap.String("room", lb.Code()), zap.Error(err))
		d.hub.Remove(lb.Code())
		d.bc.SendToConn(connID, types.Error(errCreateFailed))
		return
	}

	d.bc.SendToConn(connID, types.ServerMessage{
		Type:     types.MsgRoomCreated,
		RoomID:   lb.Code(),
		PlayerID: string(slot),
	})
}

func (d *Dispatcher) joinRoom(connID, roomID string) {
	if _, ok := d.dir.Lookup(connID); ok {
		d.bc.SendToConn(connID, types.Error(errAlreadyInRoom))
		return
	}

	code := strings.ToUpper(strings.TrimSpace(roomID))
	if code == "" {
		d.bc.SendToConn(connID, types.Error(errRoomNotFound))
		return
	}
	lb := d.hub.Get(code)
	if lb == nil {
		d.bc.SendToConn(connID, types.Error(errRoomNotFound))
		return
	}

	slot, err := lb.Join(connID)
	switch {
	case errors.Is(err, engine.ErrRoomFull):
		d.bc.SendToConn(connID, types.Error(errRoomFull))
		return
	case err != nil:
		d.bc.SendToConn(connID, types.Error(errRoomNotFound))
		return
	}

	// player_joined was already broadcast from the lobby loop, so the assignment may
	// arrive after it.
	d.bc.SendToConn(connID, types.ServerMessage{
		Type:     types.MsgPlayerAssigned,
		RoomID:   code,
		PlayerID: string(slot),
	})
}

func (d *Dispatcher) bound(connID string) (*lobby.Lobby, directory.Binding, bool) {
	b, ok := d.dir.Lookup(connID)
	if !ok {
		return nil, b, false
	}
	lb := d.hub.Get(b.RoomID)
	if lb == nil {
		return nil, b, false
	}
	return lb, b, true
}

// Disconnect frees the connection's seat and deletes the room once nobody is left in it.
func (d *Dispatcher) Disconnect(connID string) {
	defer d.bc.Detach(connID)

	b, ok := d.dir.Unbind(connID)
	if !ok {
		d.logger.Debug("connection closed", zap.String("conn", connID))
		return
	}
	logger := d.logger.With(zap.String("conn", connID), zap.String("room", b.RoomID))

	lb := d.hub.Get(b.RoomID)
	if lb == nil {
		return
	}
	remaining, err := lb.Leave(b.Slot)
	if err != nil && !errors.Is(err, lobby.ErrClosed) {
		logger.Warn("leave room", zap.Error(err))
	}
	if errors.Is(err, lobby.ErrClosed) || remaining == 0 || d.dir.CountBound(b.RoomID) == 0 {
		d.hub.Remove(b.RoomID)
	}
	logger.Info("player disconnected", zap.String("slot", string(b.Slot)), zap.Int("remaining", remaining))
}
