// Package canvas translates pointer-drag gestures into node positions.
// It is pure coordinate arithmetic over canvas-local coordinates and
// performs no I/O.
package canvas

import (
	"strings"
	"sync"

	"ideaboard/internal/board"
)

// DragController tracks at most one in-progress drag. A drag in
// progress is never interrupted by hovering over another node; only
// End (or an explicit Begin for the same gesture) clears it. Safe for
// concurrent use; multiple clients may drive the same board.
type DragController struct {
	mu       sync.Mutex
	activeID string
	offset   board.Position
}

func NewDragController() *DragController {
	return &DragController{}
}

// Begin records the dragged node and the pointer's offset from the
// node's current position. If another drag is active it keeps going;
// Begin reports whether the new drag was accepted.
func (d *DragController) Begin(nodeID string, pointer, nodePos board.Position) bool {
	if d == nil {
		return false
	}
	nodeID = strings.TrimSpace(nodeID)
	if nodeID == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.activeID != "" {
		return false
	}
	d.activeID = nodeID
	d.offset = board.Position{X: pointer.X - nodePos.X, Y: pointer.Y - nodePos.Y}
	return true
}

// Move computes the dragged node's new position from the current
// pointer position. It returns false when no drag is active.
func (d *DragController) Move(pointer board.Position) (string, board.Position, bool) {
	if d == nil {
		return "", board.Position{}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.activeID == "" {
		return "", board.Position{}, false
	}
	pos := board.Position{X: pointer.X - d.offset.X, Y: pointer.Y - d.offset.Y}
	return d.activeID, pos, true
}

// End clears the active drag. Safe to call when idle, e.g. on pointer
// leave.
func (d *DragController) End() {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.activeID = ""
	d.offset = board.Position{}
}

// Dragging reports the id of the node being dragged, if any.
func (d *DragController) Dragging() (string, bool) {
	if d == nil {
		return "", false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.activeID == "" {
		return "", false
	}
	return d.activeID, true
}
