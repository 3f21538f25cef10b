package directory

import (
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/wordchain-backend/internal/engine"
	"github.com/DoyleJ11/wordchain-backend/internal/types"
)

const outboxSize = 32

// Broadcaster owns one outbox per attached connection. Sends never block: when an
// outbox is full the message is dropped for that connection only.
type Broadcaster struct {
	dir    *Directory
	logger *zap.Logger

	mu       sync.RWMutex
	outboxes map[string]chan types.ServerMessage
}

func NewBroadcaster(dir *Directory, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		dir:      dir,
		logger:   logger,
		outboxes: make(map[string]chan types.ServerMessage),
	}
}

// Attach creates the outbox for connID. The channel is closed by Detach.
func (b *Broadcaster) Attach(connID string) <-chan types.ServerMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.outboxes[connID]; ok {
		return ch
	}
	ch := make(chan types.ServerMessage, outboxSize)
	b.outboxes[connID] = ch
	return ch
}

func (b *Broadcaster) Detach(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.outboxes[connID]; ok {
		close(ch)
		delete(b.outboxes, connID)
	}
}

func (b *Broadcaster) BroadcastToRoom(roomID string, msg types.ServerMessage) {
	for _, binding := range b.dir.Bound(roomID) {
		b.SendToConn(binding.ConnID, msg)
	}
}

// SendToPlayer is a no-op when nobody holds slot in roomID.
func (b *Broadcaster) SendToPlayer(roomID string, slot engine.Slot, msg types.ServerMessage) {
	for _, binding := range b.dir.Bound(roomID) {
		if binding.Slot == slot {
			b.SendToConn(binding.ConnID, msg)
			return
		}
	}
}

func (b *Broadcaster) SendToConn(connID string, msg types.ServerMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ch, ok := b.outboxes[connID]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		b.logger.Warn("outbox full, dropping message",
			zap.String("conn", connID),
			zap.String("type", msg.Type),
		)
	}
}
