// Package directory tracks which room seat each connection occupies and delivers
// server messages to those connections.
package directory

import (
	"sync"

	"github.com/DoyleJ11/wordchain-backend/internal/engine"
)

type Binding struct {
	ConnID string
	RoomID string
	Slot   engine.Slot
}

// Directory maps connection ids to their seat. One binding per connection.
type Directory struct {
	mu       sync.RWMutex
	bindings map[string]Binding
}

func New() *Directory {
	return &Directory{bindings: make(map[string]Binding)}
}

// Bind records connID as occupying slot in roomID, replacing any earlier binding.
func (d *Directory) Bind(connID, roomID string, slot engine.Slot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings[connID] = Binding{ConnID: connID, RoomID: roomID, Slot: slot}
}

func (d *Directory) Unbind(connID string) (Binding, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.bindings[connID]
	if ok {
		delete(d.bindings, connID)
	}
	return b, ok
}

func (d *Directory) Lookup(connID string) (Binding, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.bindings[connID]
	return b, ok
}

func (d *Directory) CountBound(roomID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, b := range d.bindings {
		if b.RoomID == roomID {
			n++
		}
	}
	return n
}

// Bound returns every binding in roomID.
func (d *Directory) Bound(roomID string) []Binding {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Binding
	for _, b := range d.bindings {
		if b.RoomID == roomID {
			out = append(out, b)
		}
	}
	return out
}
