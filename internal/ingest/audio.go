package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ideaboard/internal/board"
)

// Recorder is one microphone capture. Start may fail with a permission
// error; Stop drains the buffered audio as a single blob with its MIME
// type.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (data []byte, mimeType string, err error)
}

// RecorderFactory mints a fresh Recorder per capture.
type RecorderFactory func() Recorder

// AudioCapture enforces the one-capture-per-board contract: at most one
// recorder is ever active, and starting while one is active stops and
// replaces it, discarding the prior buffer. Two recorders never run
// concurrently.
type AudioCapture struct {
	mu      sync.Mutex
	factory RecorderFactory
	active  Recorder
	now     func() time.Time
}

func NewAudioCapture(factory RecorderFactory) *AudioCapture {
	return &AudioCapture{factory: factory, now: time.Now}
}

// Start begins a capture. A capture already in progress is stopped and
// its buffer discarded before the new one starts.
func (c *AudioCapture) Start(ctx context.Context) error {
	if c == nil || c.factory == nil {
		return fmt.Errorf("ingest: audio capture is not available")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		_, _, _ = c.active.Stop(ctx)
		c.active = nil
	}

	rec := c.factory()
	if rec == nil {
		return fmt.Errorf("ingest: recorder factory returned nil")
	}
	if err := rec.Start(ctx); err != nil {
		return fmt.Errorf("ingest: start capture: %w", err)
	}
	c.active = rec
	return nil
}

// Stop ends the active capture and turns the buffered audio into one
// audio node titled with the capture's wall-clock timestamp. A capture
// that fails to drain creates no node.
func (c *AudioCapture) Stop(ctx context.Context, store *board.Store, pos board.Position) (*board.ContentNode, error) {
	if c == nil {
		return nil, fmt.Errorf("ingest: audio capture is not available")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return nil, fmt.Errorf("ingest: no capture in progress")
	}
	rec := c.active
	c.active = nil

	data, mimeType, err := rec.Stop(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest: stop capture: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("ingest: capture produced no audio")
	}

	size := board.DefaultSize(board.KindAudio)
	return store.AddNode(&board.ContentNode{
		Kind:     board.KindAudio,
		Title:    "Recording " + c.now().Format("2006-01-02 15:04:05"),
		Data:     data,
		MIMEType: mimeType,
		Size:     size,
		Position: board.Position{X: pos.X - size.W/2, Y: pos.Y - size.H/2},
	})
}

// Recording reports whether a capture is in progress.
func (c *AudioCapture) Recording() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}
