// Package whiteboard orchestrates one board per id: its node store,
// its assistant session, its audio capture and its drag state. All
// mutations flow through the board store's primitives so invariants
// hold regardless of origin (local drag, remote peer, assistant).
package whiteboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"ideaboard/internal/board"
	"ideaboard/internal/boardctx"
	"ideaboard/internal/boardidx"
	"ideaboard/internal/canvas"
	"ideaboard/internal/gateway/repository/blob"
	"ideaboard/internal/gateway/repository/boardstore"
	"ideaboard/internal/ingest"
	"ideaboard/internal/session"
)

// blobThreshold is the payload size above which media moves to the
// blob store instead of living only in the snapshot-less node.
const blobThreshold = 64 << 10

type Service struct {
	collab    session.Collaborator
	ctxOpts   boardctx.Options
	recorders ingest.RecorderFactory
	snapshots *boardstore.Store
	blobs     blob.Store

	mu     sync.Mutex
	boards map[string]*boardHandle
}

type boardHandle struct {
	id      string
	store   *board.Store
	session *session.Session
	capture *ingest.AudioCapture
	drag    *canvas.DragController
}

type Option func(*Service)

func WithRecorderFactory(f ingest.RecorderFactory) Option {
	return func(s *Service) { s.recorders = f }
}

func WithSnapshots(store *boardstore.Store) Option {
	return func(s *Service) { s.snapshots = store }
}

func WithBlobs(store blob.Store) Option {
	return func(s *Service) { s.blobs = store }
}

func WithContextOptions(opts boardctx.Options) Option {
	return func(s *Service) { s.ctxOpts = opts }
}

func New(collab session.Collaborator, opts ...Option) *Service {
	s := &Service{
		collab: collab,
		boards: make(map[string]*boardHandle),
	}
	for _, o := range opts {
		o(s)
	}
	if s.blobs == nil {
		s.blobs = blob.NewMemoryStore()
	}
	return s
}

// handle returns the live state for one board, restoring a persisted
// snapshot on first touch.
func (s *Service) handle(boardID string) (*boardHandle, error) {
	boardID = strings.TrimSpace(boardID)
	if s == nil || boardID == "" {
		return nil, fmt.Errorf("whiteboard: board_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.boards[boardID]; ok {
		return h, nil
	}

	store := board.NewStore()
	if s.snapshots != nil {
		if snap, ok := s.snapshots.Get(boardID); ok {
			if err := store.Restore(snap.Nodes, snap.Edges, snap.Groups); err != nil {
				log.Printf("whiteboard: restore %s: %v", boardID, err)
			} else {
				s.rehydrateMedia(boardID, store)
			}
		}
	}

	h := &boardHandle{
		id:      boardID,
		store:   store,
		session: session.New(store, s.collab, s.ctxOpts),
		capture: ingest.NewAudioCapture(s.recorders),
		drag:    canvas.NewDragController(),
	}
	s.boards[boardID] = h
	return h, nil
}

// rehydrateMedia refills binary payloads from the blob store;
// snapshots persist only the node metadata for media nodes.
func (s *Service) rehydrateMedia(boardID string, store *board.Store) {
	for _, n := range store.Nodes() {
		if !n.Kind.IsBinary() || len(n.Data) > 0 {
			continue
		}
		data, err := s.blobs.Get(context.Background(), boardID, n.ID)
		if err != nil {
			if !errors.Is(err, blob.ErrNotFound) {
				log.Printf("whiteboard: rehydrate %s/%s: %v", boardID, n.ID, err)
			}
			continue
		}
		if err := store.RestoreNodeData(n.ID, data); err != nil {
			log.Printf("whiteboard: rehydrate %s/%s: %v", boardID, n.ID, err)
		}
	}
}

// Snapshot returns the board's current persistable state. Media bytes
// are stripped; they live in the blob store.
func (s *Service) Snapshot(boardID string) (boardstore.Snapshot, error) {
	h, err := s.handle(boardID)
	if err != nil {
		return boardstore.Snapshot{}, err
	}
	return snapshotOf(h), nil
}

func snapshotOf(h *boardHandle) boardstore.Snapshot {
	nodes := h.store.Nodes()
	for _, n := range nodes {
		if n.Kind.IsBinary() && len(n.Data) > blobThreshold {
			n.Data = nil
		}
	}
	return boardstore.Snapshot{
		BoardID: h.id,
		Nodes:   nodes,
		Edges:   h.store.Edges(),
		Groups:  h.store.Groups(),
	}
}

func (s *Service) persist(h *boardHandle) {
	if s.snapshots == nil {
		return
	}
	s.snapshots.Put(snapshotOf(h))
}

// offload copies large media payloads to the blob store, best effort.
func (s *Service) offload(ctx context.Context, boardID string, node *board.ContentNode) {
	if node == nil || !node.Kind.IsBinary() || len(node.Data) <= blobThreshold {
		return
	}
	if err := s.blobs.Put(ctx, boardID, node.ID, node.MIMEType, node.Data); err != nil {
		log.Printf("whiteboard: offload %s/%s: %v", boardID, node.ID, err)
	}
}

// DropFiles ingests a dropped file batch at the given canvas point.
func (s *Service) DropFiles(ctx context.Context, boardID string, files []ingest.FileInput, pos board.Position) ([]ingest.FileResult, error) {
	h, err := s.handle(boardID)
	if err != nil {
		return nil, err
	}
	results := ingest.IngestFiles(h.store, files, pos)
	for _, r := range results {
		if r.Err != nil {
			log.Printf("whiteboard: ingest %s on %s: %v", r.Name, boardID, r.Err)
			continue
		}
		s.offload(ctx, boardID, r.Node)
	}
	s.persist(h)
	return results, nil
}

// DropText ingests dropped or pasted text / URLs.
func (s *Service) DropText(boardID, text string, pos board.Position) (*board.ContentNode, error) {
	h, err := s.handle(boardID)
	if err != nil {
		return nil, err
	}
	node, err := ingest.IngestText(h.store, text, pos)
	if err != nil {
		return nil, err
	}
	s.persist(h)
	return node, nil
}

// StartCapture begins the board's microphone capture.
func (s *Service) StartCapture(ctx context.Context, boardID string) error {
	h, err := s.handle(boardID)
	if err != nil {
		return err
	}
	return h.capture.Start(ctx)
}

// StopCapture ends the capture and drops the recording on the board.
func (s *Service) StopCapture(ctx context.Context, boardID string, pos board.Position) (*board.ContentNode, error) {
	h, err := s.handle(boardID)
	if err != nil {
		return nil, err
	}
	node, err := h.capture.Stop(ctx, h.store, pos)
	if err != nil {
		return nil, err
	}
	s.offload(ctx, boardID, node)
	s.persist(h)
	return node, nil
}

// BeginDrag starts a pointer drag over a node.
func (s *Service) BeginDrag(boardID, nodeID string, pointer board.Position) error {
	h, err := s.handle(boardID)
	if err != nil {
		return err
	}
	node, err := h.store.Node(nodeID)
	if err != nil {
		return err
	}
	if !h.drag.Begin(nodeID, pointer, node.Position) {
		return fmt.Errorf("whiteboard: another drag is in progress")
	}
	return nil
}

// DragTo moves the dragged node under the pointer.
func (s *Service) DragTo(boardID string, pointer board.Position) error {
	h, err := s.handle(boardID)
	if err != nil {
		return err
	}
	id, pos, ok := h.drag.Move(pointer)
	if !ok {
		return fmt.Errorf("whiteboard: no drag in progress")
	}
	return h.store.UpdateNodePosition(id, pos.X, pos.Y)
}

// EndDrag finishes the drag and persists the final layout.
func (s *Service) EndDrag(boardID string) error {
	h, err := s.handle(boardID)
	if err != nil {
		return err
	}
	h.drag.End()
	s.persist(h)
	return nil
}

// MoveNode applies a direct position update (remote peers).
func (s *Service) MoveNode(boardID, nodeID string, x, y float64) error {
	h, err := s.handle(boardID)
	if err != nil {
		return err
	}
	if err := h.store.UpdateNodePosition(nodeID, x, y); err != nil {
		return err
	}
	s.persist(h)
	return nil
}

// EditNodeContent replaces a text node's payload.
func (s *Service) EditNodeContent(boardID, nodeID, text string) error {
	h, err := s.handle(boardID)
	if err != nil {
		return err
	}
	if err := h.store.UpdateNodeContent(nodeID, text); err != nil {
		return err
	}
	s.persist(h)
	return nil
}

// RenameNode updates a node title.
func (s *Service) RenameNode(boardID, nodeID, title string) error {
	h, err := s.handle(boardID)
	if err != nil {
		return err
	}
	if err := h.store.UpdateNodeTitle(nodeID, title); err != nil {
		return err
	}
	s.persist(h)
	return nil
}

// DeleteNode removes a node and its offloaded media.
func (s *Service) DeleteNode(ctx context.Context, boardID, nodeID string) error {
	h, err := s.handle(boardID)
	if err != nil {
		return err
	}
	if err := h.store.RemoveNode(nodeID); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, boardID, nodeID); err != nil {
		log.Printf("whiteboard: delete blob %s/%s: %v", boardID, nodeID, err)
	}
	s.persist(h)
	return nil
}

// DeleteBoard drops a board entirely: live state, persisted snapshot
// and every blob offloaded for its nodes.
func (s *Service) DeleteBoard(ctx context.Context, boardID string) error {
	boardID = strings.TrimSpace(boardID)
	if s == nil || boardID == "" {
		return fmt.Errorf("whiteboard: board_id is required")
	}
	s.mu.Lock()
	delete(s.boards, boardID)
	s.mu.Unlock()

	if s.snapshots != nil {
		s.snapshots.Delete(boardID)
	}
	nodeIDs, err := s.blobs.List(ctx, boardID)
	if err != nil {
		return fmt.Errorf("whiteboard: list blobs for %s: %w", boardID, err)
	}
	for _, nodeID := range nodeIDs {
		if err := s.blobs.Delete(ctx, boardID, nodeID); err != nil {
			log.Printf("whiteboard: delete blob %s/%s: %v", boardID, nodeID, err)
		}
	}
	return nil
}

// ConnectNodes draws a labeled edge.
func (s *Service) ConnectNodes(boardID, fromID, toID, label string) (board.Edge, error) {
	h, err := s.handle(boardID)
	if err != nil {
		return board.Edge{}, err
	}
	edge, err := h.store.Connect(fromID, toID, label)
	if err != nil {
		return board.Edge{}, err
	}
	s.persist(h)
	return edge, nil
}

// DisconnectNodes removes an edge.
func (s *Service) DisconnectNodes(boardID, edgeID string) error {
	h, err := s.handle(boardID)
	if err != nil {
		return err
	}
	if err := h.store.Disconnect(edgeID); err != nil {
		return err
	}
	s.persist(h)
	return nil
}

// GroupNodes clusters nodes.
func (s *Service) GroupNodes(boardID string, nodeIDs []string, title string) (board.Group, error) {
	h, err := s.handle(boardID)
	if err != nil {
		return board.Group{}, err
	}
	group, err := h.store.Group(nodeIDs, title)
	if err != nil {
		return board.Group{}, err
	}
	s.persist(h)
	return group, nil
}

// UngroupNodes clears group membership.
func (s *Service) UngroupNodes(boardID string, nodeIDs []string) error {
	h, err := s.handle(boardID)
	if err != nil {
		return err
	}
	if err := h.store.Ungroup(nodeIDs); err != nil {
		return err
	}
	s.persist(h)
	return nil
}

// SearchMatch is one node hit for a word query.
type SearchMatch struct {
	NodeID string `json:"nodeId"`
	Title  string `json:"title"`
	Lines  []int  `json:"lines"`
}

// SearchNodes finds nodes whose title or text contains the query word.
// The index is rebuilt per call; boards are small enough that this
// beats keeping postings in sync with every edit.
func (s *Service) SearchNodes(boardID, query string) ([]SearchMatch, error) {
	h, err := s.handle(boardID)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("whiteboard: query is required")
	}

	idx := boardidx.New()
	titles := make(map[string]string)
	for _, n := range h.store.Nodes() {
		idx.Add(n.ID, n.Title, n.Text)
		titles[n.ID] = n.Title
	}

	byNode := make(map[string]*SearchMatch)
	var order []string
	for _, ref := range idx.Find(query) {
		m, ok := byNode[ref.NodeID]
		if !ok {
			m = &SearchMatch{NodeID: ref.NodeID, Title: titles[ref.NodeID]}
			byNode[ref.NodeID] = m
			order = append(order, ref.NodeID)
		}
		m.Lines = append(m.Lines, ref.Line)
	}
	out := make([]SearchMatch, 0, len(order))
	for _, id := range order {
		out = append(out, *byNode[id])
	}
	return out, nil
}

// Watch subscribes to the board's mutation events.
func (s *Service) Watch(boardID string) (<-chan board.Event, func(), error) {
	h, err := s.handle(boardID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := h.store.Subscribe()
	return ch, cancel, nil
}

// MediaURL returns a presigned URL for a node's offloaded media, or ""
// when the blob backend has no URL scheme.
func (s *Service) MediaURL(ctx context.Context, boardID, nodeID string) (string, error) {
	h, err := s.handle(boardID)
	if err != nil {
		return "", err
	}
	if !h.store.Has(nodeID) {
		return "", board.ErrNodeNotFound
	}
	return s.blobs.GetURL(ctx, boardID, nodeID)
}
