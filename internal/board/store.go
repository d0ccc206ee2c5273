package board

import (
	"fmt"
	"sort"
	"sync"
)

var (
	ErrNodeNotFound  = fmt.Errorf("board: node not found")
	ErrGroupNotFound = fmt.Errorf("board: group not found")
	ErrEdgeNotFound  = fmt.Errorf("board: edge not found")
)

// EventType labels a store mutation broadcast to subscribers.
type EventType string

const (
	EventNodeCreated  EventType = "node_created"
	EventNodeUpdated  EventType = "node_updated"
	EventNodeMoved    EventType = "node_moved"
	EventNodeDeleted  EventType = "node_deleted"
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventGrouped      EventType = "grouped"
	EventUngrouped    EventType = "ungrouped"
)

// Event is emitted for every mutation, regardless of whether the
// mutation originated from a local drag, a remote peer or an assistant
// action. Subscribers that fall behind lose events rather than block
// the mutating caller.
type Event struct {
	Type    EventType    `json:"type"`
	Node    *ContentNode `json:"node,omitempty"`
	NodeID  string       `json:"nodeId,omitempty"`
	Edge    *Edge        `json:"edge,omitempty"`
	GroupID string       `json:"groupId,omitempty"`
	NodeIDs []string     `json:"nodeIds,omitempty"`
}

// Store holds the authoritative set of nodes, groups and edges for one
// board. All mutations are serialized behind a single mutex; every
// mutation entry point is atomic with respect to the others.
//
// Revision counts content-changing mutations (add, remove, content and
// title edits, connect, group). Position-only moves do not bump it, so
// dragging never invalidates an assistant conversation.
type Store struct {
	mu     sync.RWMutex
	nodes  map[string]*ContentNode
	order  []string
	groups map[string]Group
	edges  map[string]Edge
	seq    int64
	rev    int64

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

func NewStore() *Store {
	return &Store{
		nodes:  make(map[string]*ContentNode),
		groups: make(map[string]Group),
		edges:  make(map[string]Edge),
		subs:   make(map[int]chan Event),
	}
}

// Revision returns the current context revision. Sessions capture it as
// their context fingerprint and compare it before each turn.
func (s *Store) Revision() int64 {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

// AddNode inserts a fully formed node. A missing ID is assigned; the
// creation sequence is always assigned here. Bumps the revision.
func (s *Store) AddNode(node *ContentNode) (*ContentNode, error) {
	if s == nil || node == nil {
		return nil, fmt.Errorf("board: nil node")
	}
	if !node.Kind.Valid() {
		return nil, fmt.Errorf("board: invalid node kind %q", node.Kind)
	}
	stored := node.Clone()
	stored.ID = normalizeID(stored.ID)
	if stored.ID == "" {
		stored.ID = NewID()
	}
	if stored.Size == (Size{}) {
		stored.Size = DefaultSize(stored.Kind)
	}

	s.mu.Lock()
	if _, exists := s.nodes[stored.ID]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("board: duplicate node id %q", stored.ID)
	}
	s.seq++
	stored.Seq = s.seq
	s.nodes[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	s.rev++
	s.mu.Unlock()

	out := stored.Clone()
	s.publish(Event{Type: EventNodeCreated, Node: out})
	return out, nil
}

// RemoveNode deletes the node and restores referential integrity:
// membership in any group is dropped and every edge touching the node
// is deleted. Bumps the revision.
func (s *Store) RemoveNode(id string) error {
	id = normalizeID(id)
	if s == nil || id == "" {
		return ErrNodeNotFound
	}

	s.mu.Lock()
	if _, ok := s.nodes[id]; !ok {
		s.mu.Unlock()
		return ErrNodeNotFound
	}
	delete(s.nodes, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	for eid, e := range s.edges {
		if e.FromID == id || e.ToID == id {
			delete(s.edges, eid)
		}
	}
	s.pruneEmptyGroupsLocked()
	s.rev++
	s.mu.Unlock()

	s.publish(Event{Type: EventNodeDeleted, NodeID: id})
	return nil
}

// UpdateNodePosition is a pure spatial mutation. It is idempotent and
// does not bump the revision.
func (s *Store) UpdateNodePosition(id string, x, y float64) error {
	id = normalizeID(id)
	if s == nil || id == "" {
		return ErrNodeNotFound
	}

	s.mu.Lock()
	node, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return ErrNodeNotFound
	}
	moved := node.Position.X != x || node.Position.Y != y
	node.Position = Position{X: x, Y: y}
	out := node.Clone()
	s.mu.Unlock()

	if moved {
		s.publish(Event{Type: EventNodeMoved, Node: out})
	}
	return nil
}

// UpdateNodeContent replaces the text payload of a text-like node.
// Content edits change what the assistant would see, so the revision is
// bumped.
func (s *Store) UpdateNodeContent(id, text string) error {
	id = normalizeID(id)
	if s == nil || id == "" {
		return ErrNodeNotFound
	}

	s.mu.Lock()
	node, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return ErrNodeNotFound
	}
	if node.Kind.IsBinary() {
		s.mu.Unlock()
		return fmt.Errorf("board: node %s holds binary content", id)
	}
	node.Text = text
	s.rev++
	out := node.Clone()
	s.mu.Unlock()

	s.publish(Event{Type: EventNodeUpdated, Node: out})
	return nil
}

// UpdateNodeTitle renames a node. The title is part of the serialized
// header, so this bumps the revision too.
func (s *Store) UpdateNodeTitle(id, title string) error {
	id = normalizeID(id)
	if s == nil || id == "" {
		return ErrNodeNotFound
	}

	s.mu.Lock()
	node, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return ErrNodeNotFound
	}
	node.Title = title
	s.rev++
	out := node.Clone()
	s.mu.Unlock()

	s.publish(Event{Type: EventNodeUpdated, Node: out})
	return nil
}

// Connect creates a labeled edge between two live nodes.
func (s *Store) Connect(fromID, toID, label string) (Edge, error) {
	fromID = normalizeID(fromID)
	toID = normalizeID(toID)
	if s == nil || fromID == "" || toID == "" {
		return Edge{}, ErrNodeNotFound
	}

	s.mu.Lock()
	if _, ok := s.nodes[fromID]; !ok {
		s.mu.Unlock()
		return Edge{}, fmt.Errorf("%w: %s", ErrNodeNotFound, fromID)
	}
	if _, ok := s.nodes[toID]; !ok {
		s.mu.Unlock()
		return Edge{}, fmt.Errorf("%w: %s", ErrNodeNotFound, toID)
	}
	edge := Edge{ID: NewID(), FromID: fromID, ToID: toID, Label: label}
	s.edges[edge.ID] = edge
	s.rev++
	s.mu.Unlock()

	s.publish(Event{Type: EventConnected, Edge: &edge})
	return edge, nil
}

// Disconnect removes one edge by id.
func (s *Store) Disconnect(edgeID string) error {
	edgeID = normalizeID(edgeID)
	if s == nil || edgeID == "" {
		return ErrEdgeNotFound
	}

	s.mu.Lock()
	edge, ok := s.edges[edgeID]
	if !ok {
		s.mu.Unlock()
		return ErrEdgeNotFound
	}
	delete(s.edges, edgeID)
	s.rev++
	s.mu.Unlock()

	s.publish(Event{Type: EventDisconnected, Edge: &edge})
	return nil
}

// Group clusters the given nodes under a fresh group id. Every id must
// reference a live node.
func (s *Store) Group(nodeIDs []string, title string) (Group, error) {
	if s == nil || len(nodeIDs) == 0 {
		return Group{}, fmt.Errorf("board: no nodes to group")
	}

	s.mu.Lock()
	for _, id := range nodeIDs {
		if _, ok := s.nodes[normalizeID(id)]; !ok {
			s.mu.Unlock()
			return Group{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}
	}
	group := Group{ID: NewID(), Title: title}
	s.groups[group.ID] = group
	ids := make([]string, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		id = normalizeID(id)
		s.nodes[id].GroupID = group.ID
		ids = append(ids, id)
	}
	// Regrouping may have drained an older group of its last member.
	s.pruneEmptyGroupsLocked()
	s.rev++
	s.mu.Unlock()

	s.publish(Event{Type: EventGrouped, GroupID: group.ID, NodeIDs: ids})
	return group, nil
}

// Ungroup clears group membership on the given nodes. Groups left empty
// are pruned; the nodes themselves are untouched.
func (s *Store) Ungroup(nodeIDs []string) error {
	if s == nil || len(nodeIDs) == 0 {
		return fmt.Errorf("board: no nodes to ungroup")
	}

	s.mu.Lock()
	cleared := make([]string, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		id = normalizeID(id)
		if node, ok := s.nodes[id]; ok && node.GroupID != "" {
			node.GroupID = ""
			cleared = append(cleared, id)
		}
	}
	if len(cleared) == 0 {
		s.mu.Unlock()
		return ErrNodeNotFound
	}
	s.pruneEmptyGroupsLocked()
	s.rev++
	s.mu.Unlock()

	s.publish(Event{Type: EventUngrouped, NodeIDs: cleared})
	return nil
}

// Node returns a copy of one node.
func (s *Store) Node(id string) (*ContentNode, error) {
	id = normalizeID(id)
	if s == nil || id == "" {
		return nil, ErrNodeNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.nodes[id]
	if !ok {
		return nil, ErrNodeNotFound
	}
	return node.Clone(), nil
}

// Has reports whether a node id is currently live.
func (s *Store) Has(id string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[normalizeID(id)]
	return ok
}

// Nodes returns copies of all nodes in creation order.
func (s *Store) Nodes() []*ContentNode {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ContentNode, 0, len(s.order))
	for _, id := range s.order {
		if node, ok := s.nodes[id]; ok {
			out = append(out, node.Clone())
		}
	}
	return out
}

// Edges returns all edges sorted by id for deterministic iteration.
func (s *Store) Edges() []Edge {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Groups returns all groups sorted by id.
func (s *Store) Groups() []Group {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the live node count.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Restore replaces the whole board state with a persisted snapshot.
// Node order defines the creation order; ids are kept. Counts as a
// content change.
func (s *Store) Restore(nodes []*ContentNode, edges []Edge, groups []Group) error {
	if s == nil {
		return fmt.Errorf("board: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = make(map[string]*ContentNode, len(nodes))
	s.order = s.order[:0]
	s.seq = 0
	for _, n := range nodes {
		if n == nil {
			continue
		}
		stored := n.Clone()
		stored.ID = normalizeID(stored.ID)
		if stored.ID == "" || !stored.Kind.Valid() {
			return fmt.Errorf("board: invalid snapshot node %+v", n)
		}
		if _, dup := s.nodes[stored.ID]; dup {
			return fmt.Errorf("board: duplicate snapshot node id %q", stored.ID)
		}
		s.seq++
		stored.Seq = s.seq
		s.nodes[stored.ID] = stored
		s.order = append(s.order, stored.ID)
	}

	s.edges = make(map[string]Edge, len(edges))
	for _, e := range edges {
		if _, ok := s.nodes[e.FromID]; !ok {
			continue
		}
		if _, ok := s.nodes[e.ToID]; !ok {
			continue
		}
		if normalizeID(e.ID) == "" {
			e.ID = NewID()
		}
		s.edges[e.ID] = e
	}

	s.groups = make(map[string]Group, len(groups))
	for _, g := range groups {
		if normalizeID(g.ID) != "" {
			s.groups[g.ID] = g
		}
	}
	s.pruneEmptyGroupsLocked()
	s.rev++
	return nil
}

// RestoreNodeData refills a binary node's payload after a snapshot
// restore. The bytes are the payload the snapshot was taken of, so
// this is not a content change.
func (s *Store) RestoreNodeData(id string, data []byte) error {
	id = normalizeID(id)
	if s == nil || id == "" {
		return ErrNodeNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}
	if !node.Kind.IsBinary() {
		return fmt.Errorf("board: node %s has no binary payload", id)
	}
	node.Data = append([]byte(nil), data...)
	return nil
}

// Subscribe registers a mutation event listener. The returned cancel
// func must be called to release the subscription.
func (s *Store) Subscribe() (<-chan Event, func()) {
	if s == nil {
		return nil, func() {}
	}
	ch := make(chan Event, 64)
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; drop rather than block a mutation.
		}
	}
}

func (s *Store) pruneEmptyGroupsLocked() {
	inUse := make(map[string]bool, len(s.groups))
	for _, node := range s.nodes {
		if node.GroupID != "" {
			inUse[node.GroupID] = true
		}
	}
	for gid := range s.groups {
		if !inUse[gid] {
			delete(s.groups, gid)
		}
	}
}
