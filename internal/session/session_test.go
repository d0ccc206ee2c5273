package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ideaboard/internal/board"
	"ideaboard/internal/boardctx"
)

type fakeConv struct {
	mu      sync.Mutex
	sent    []string
	reply   Reply
	sendErr error
	block   chan struct{}
	closed  bool
}

// Send blocks on c.block for the first call only, so a test can hold
// one reply in flight while issuing another.
func (c *fakeConv) Send(ctx context.Context, message string) (Reply, error) {
	c.mu.Lock()
	first := len(c.sent) == 0
	c.sent = append(c.sent, message)
	gate := c.block
	c.mu.Unlock()
	if gate != nil && first {
		<-gate
	}
	return c.reply, c.sendErr
}

func (c *fakeConv) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *fakeConv) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

type fakeCollab struct {
	mu      sync.Mutex
	opens   int
	lastCtx []boardctx.Block
	conv    *fakeConv
	openErr error
}

func (f *fakeCollab) Open(ctx context.Context, blocks []boardctx.Block, system string) (Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opens++
	f.lastCtx = blocks
	if f.conv == nil {
		f.conv = &fakeConv{}
	}
	return f.conv, nil
}

func (f *fakeCollab) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func newBoard(t *testing.T, texts ...string) *board.Store {
	t.Helper()
	s := board.NewStore()
	for _, txt := range texts {
		if _, err := s.AddNode(&board.ContentNode{Kind: board.KindText, Text: txt}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return s
}

func TestSequentialAsksReuseConversation(t *testing.T) {
	store := newBoard(t, "one", "two")
	collab := &fakeCollab{conv: &fakeConv{reply: Reply{Text: "ok"}}}
	sess := New(store, collab, boardctx.Options{})

	if _, err := sess.Ask(context.Background(), "first"); err != nil {
		t.Fatalf("first ask: %v", err)
	}
	if _, err := sess.Ask(context.Background(), "second"); err != nil {
		t.Fatalf("second ask: %v", err)
	}
	if got := collab.openCount(); got != 1 {
		t.Fatalf("expected 1 conversation open, got %d", got)
	}
	if !sess.Ready() {
		t.Fatalf("session should be ready")
	}
}

func TestAddAndRemoveInvalidateSession(t *testing.T) {
	store := newBoard(t, "seed")
	collab := &fakeCollab{conv: &fakeConv{}}
	sess := New(store, collab, boardctx.Options{})

	if _, err := sess.Ask(context.Background(), "hi"); err != nil {
		t.Fatalf("ask: %v", err)
	}

	added, _ := store.AddNode(&board.ContentNode{Kind: board.KindText, Text: "new"})
	if sess.Ready() {
		t.Fatalf("session still ready after add")
	}
	if _, err := sess.Ask(context.Background(), "again"); err != nil {
		t.Fatalf("ask after add: %v", err)
	}
	if got := collab.openCount(); got != 2 {
		t.Fatalf("expected reinitialization after add, opens=%d", got)
	}

	_ = store.RemoveNode(added.ID)
	if _, err := sess.Ask(context.Background(), "after remove"); err != nil {
		t.Fatalf("ask after remove: %v", err)
	}
	if got := collab.openCount(); got != 3 {
		t.Fatalf("expected reinitialization after remove, opens=%d", got)
	}
}

func TestContentEditInvalidatesSession(t *testing.T) {
	store := newBoard(t, "draft")
	node := store.Nodes()[0]
	collab := &fakeCollab{conv: &fakeConv{}}
	sess := New(store, collab, boardctx.Options{})

	if _, err := sess.Ask(context.Background(), "hi"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if err := store.UpdateNodeContent(node.ID, "revised"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, err := sess.Ask(context.Background(), "re-read"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if got := collab.openCount(); got != 2 {
		t.Fatalf("content edit did not reinitialize, opens=%d", got)
	}
}

func TestPositionChangeKeepsSessionWarm(t *testing.T) {
	store := newBoard(t, "pinned")
	node := store.Nodes()[0]
	collab := &fakeCollab{conv: &fakeConv{}}
	sess := New(store, collab, boardctx.Options{})

	if _, err := sess.Ask(context.Background(), "hi"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if err := store.UpdateNodePosition(node.ID, 50, 60); err != nil {
		t.Fatalf("move: %v", err)
	}
	if !sess.Ready() {
		t.Fatalf("drag invalidated the session")
	}
	if _, err := sess.Ask(context.Background(), "still warm"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if got := collab.openCount(); got != 1 {
		t.Fatalf("position change reinitialized, opens=%d", got)
	}
}

func TestSendFailureResetsToUninitialized(t *testing.T) {
	store := newBoard(t, "seed")
	conv := &fakeConv{sendErr: fmt.Errorf("connection reset")}
	collab := &fakeCollab{conv: conv}
	sess := New(store, collab, boardctx.Options{})

	_, err := sess.Ask(context.Background(), "hi")
	if !errors.Is(err, ErrAssistantUnavailable) {
		t.Fatalf("expected ErrAssistantUnavailable, got %v", err)
	}
	if sess.Ready() {
		t.Fatalf("broken handle still considered ready")
	}

	conv.sendErr = nil
	if _, err := sess.Ask(context.Background(), "retry"); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if got := collab.openCount(); got != 2 {
		t.Fatalf("expected clean reinitialization, opens=%d", got)
	}
}

func TestOpenFailureIsAssistantUnavailable(t *testing.T) {
	store := newBoard(t, "seed")
	collab := &fakeCollab{openErr: fmt.Errorf("quota exceeded")}
	sess := New(store, collab, boardctx.Options{})

	_, err := sess.Ask(context.Background(), "hi")
	if !errors.Is(err, ErrAssistantUnavailable) {
		t.Fatalf("expected ErrAssistantUnavailable, got %v", err)
	}
}

func TestMalformedActionsAreAllOrNothing(t *testing.T) {
	store := newBoard(t, "seed")
	conv := &fakeConv{reply: Reply{
		Text: "done",
		Actions: []board.Action{
			{Kind: board.ActionDeleteNodes, DeleteNodes: []string{"n1"}},
			{Kind: board.ActionKind("bogus")},
		},
	}}
	collab := &fakeCollab{conv: conv}
	sess := New(store, collab, boardctx.Options{})

	reply, err := sess.Ask(context.Background(), "hi")
	if !errors.Is(err, ErrMalformedActions) {
		t.Fatalf("expected ErrMalformedActions, got %v", err)
	}
	if len(reply.Actions) != 0 {
		t.Fatalf("malformed batch leaked actions")
	}
	if reply.Text != "done" {
		t.Fatalf("assistant text lost: %q", reply.Text)
	}
}

func TestSupersededAskIsDiscarded(t *testing.T) {
	store := newBoard(t, "seed")
	gate := make(chan struct{})
	slow := &fakeConv{reply: Reply{Text: "slow"}, block: gate}
	collab := &fakeCollab{conv: slow}
	sess := New(store, collab, boardctx.Options{})

	errCh := make(chan error, 1)
	go func() {
		_, err := sess.Ask(context.Background(), "first")
		errCh <- err
	}()

	// Let the first ask reach Send, then supersede it.
	for slow.sentCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	if _, err := sess.Ask(context.Background(), "second"); err != nil {
		t.Fatalf("second ask: %v", err)
	}

	close(gate)
	if err := <-errCh; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
}
