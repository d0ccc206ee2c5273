// Package session manages one assistant conversation per board. The
// session lazily (re)initializes the external conversation whenever the
// board's informational content has changed since the context was
// captured, so the assistant never silently answers against a stale
// board.
package session

import (
	"context"
	"fmt"
	"sync"

	"ideaboard/internal/board"
	"ideaboard/internal/boardctx"
)

var (
	// ErrAssistantUnavailable wraps any communication failure with the
	// external collaborator. The session is back to uninitialized when
	// it is returned; the next Ask starts clean.
	ErrAssistantUnavailable = fmt.Errorf("session: assistant unavailable")

	// ErrMalformedActions reports an action list that failed
	// validation. None of its actions may be applied.
	ErrMalformedActions = fmt.Errorf("session: malformed assistant actions")

	// ErrSuperseded reports an Ask whose response arrived after a newer
	// Ask had already started. Its reply must be discarded.
	ErrSuperseded = fmt.Errorf("session: ask superseded by a newer one")
)

// Reply is the assistant's answer for one turn: free text plus zero or
// more board mutation requests, in the order the assistant issued them.
type Reply struct {
	Text    string
	Actions []board.Action
}

// Conversation is one open exchange with the external collaborator.
type Conversation interface {
	Send(ctx context.Context, message string) (Reply, error)
	Close() error
}

// Collaborator opens conversations seeded with serialized board
// context. It is constructor-injected so boards stay isolated and
// testable against a fake.
type Collaborator interface {
	Open(ctx context.Context, blocks []boardctx.Block, system string) (Conversation, error)
}

// SystemFraming describes the mutation actions the assistant may
// request. It is sent once per conversation, alongside the serialized
// board.
const SystemFraming = `You are a whiteboard assistant. The conversation opens with the
current board: each node appears as a header line followed by its
content. You may request board mutations with these actions:
create_notes, organize_layout, connect_nodes, delete_nodes,
group_nodes, ungroup_nodes. Reference nodes only by the ids shown in
the headers. Reply with text for the user alongside any actions.`

// Session is the stateful wrapper around one board's conversation.
// States: uninitialized (no conversation), ready (conversation open and
// fingerprint current) and stale (fingerprint behind the store), which
// behaves exactly like uninitialized on the next Ask.
type Session struct {
	store  *board.Store
	collab Collaborator
	opts   boardctx.Options

	mu          sync.Mutex
	conv        Conversation
	fingerprint int64
	gen         uint64
}

func New(store *board.Store, collab Collaborator, opts boardctx.Options) *Session {
	return &Session{store: store, collab: collab, opts: opts}
}

// Ready reports whether the next Ask would reuse the open conversation.
func (s *Session) Ready() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv != nil && s.fingerprint == s.store.Revision()
}

// Invalidate discards the open conversation explicitly. The next Ask
// reinitializes from scratch.
func (s *Session) Invalidate() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// Ask sends one user message. A stale or uninitialized session first
// serializes the full current board and opens a fresh conversation; a
// ready session sends only the incremental message. A newer Ask
// supersedes an in-flight one: the older reply is discarded and
// reported as ErrSuperseded so out-of-order mutations are never
// applied.
func (s *Session) Ask(ctx context.Context, message string) (Reply, error) {
	if s == nil || s.collab == nil {
		return Reply{}, fmt.Errorf("session: no collaborator configured")
	}

	s.mu.Lock()
	s.gen++
	myGen := s.gen

	if s.conv == nil || s.fingerprint != s.store.Revision() {
		s.closeLocked()
		rev := s.store.Revision()
		blocks, err := boardctx.Serialize(s.store, s.opts)
		if err != nil {
			s.mu.Unlock()
			return Reply{}, err
		}
		conv, err := s.collab.Open(ctx, blocks, SystemFraming)
		if err != nil {
			s.mu.Unlock()
			return Reply{}, fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
		}
		s.conv = conv
		s.fingerprint = rev
	}
	conv := s.conv
	s.mu.Unlock()

	reply, sendErr := conv.Send(ctx, message)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != myGen {
		return Reply{}, ErrSuperseded
	}
	if sendErr != nil {
		// Next Ask reinitializes rather than retrying a broken handle.
		s.closeLocked()
		return Reply{}, fmt.Errorf("%w: %v", ErrAssistantUnavailable, sendErr)
	}

	for _, a := range reply.Actions {
		if err := a.Validate(); err != nil {
			// All-or-nothing: the text still reaches the user, the
			// action list does not.
			return Reply{Text: reply.Text}, fmt.Errorf("%w: %v", ErrMalformedActions, err)
		}
	}
	return reply, nil
}

func (s *Session) closeLocked() {
	if s.conv != nil {
		_ = s.conv.Close()
		s.conv = nil
	}
	s.fingerprint = -1
}
