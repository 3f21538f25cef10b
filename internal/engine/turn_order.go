package engine

import "slices"

// SlotOrder is the seat assignment order; the first seat owns the room.
var SlotOrder = []Slot{
	SlotPlayer1,
	SlotPlayer2,
}

// Other returns the opposing seat.
func (s Slot) Other() Slot {
	if s == SlotPlayer1 {
		return SlotPlayer2
	}
	return SlotPlayer1
}

func nextFreeSlot(taken []Slot) (Slot, bool) {
	if len(taken) >= len(SlotOrder) {
		return "", false
	}
	for _, slot := range SlotOrder {
		if !slices.Contains(taken, slot) {
			return slot, true
		}
	}
	return "", false
}
