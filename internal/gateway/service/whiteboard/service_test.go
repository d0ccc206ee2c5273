package whiteboard

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ideaboard/internal/board"
	"ideaboard/internal/boardctx"
	"ideaboard/internal/gateway/repository/blob"
	"ideaboard/internal/gateway/repository/boardstore"
	"ideaboard/internal/ingest"
	"ideaboard/internal/session"
)

// scriptedCollab replies with a fixed script and can run a hook while
// the reply is "in flight", to simulate user mutations racing an
// assistant call.
type scriptedCollab struct {
	reply      session.Reply
	beforeSend func()
	opens      int
}

type scriptedConv struct{ c *scriptedCollab }

func (c *scriptedCollab) Open(ctx context.Context, blocks []boardctx.Block, system string) (session.Conversation, error) {
	c.opens++
	return &scriptedConv{c: c}, nil
}

func (v *scriptedConv) Send(ctx context.Context, message string) (session.Reply, error) {
	if v.c.beforeSend != nil {
		v.c.beforeSend()
	}
	return v.c.reply, nil
}

func (v *scriptedConv) Close() error { return nil }

func seedBoard(t *testing.T, svc *Service, boardID string, texts ...string) []*board.ContentNode {
	t.Helper()
	var nodes []*board.ContentNode
	for _, txt := range texts {
		n, err := svc.DropText(boardID, txt, board.Position{X: 100, Y: 100})
		require.NoError(t, err)
		nodes = append(nodes, n)
	}
	return nodes
}

func TestAskAppliesActionsInOrder(t *testing.T) {
	collab := &scriptedCollab{}
	svc := New(collab)
	nodes := seedBoard(t, svc, "b1", "alpha", "beta")

	collab.reply = session.Reply{
		Text: "organized",
		Actions: []board.Action{
			{Kind: board.ActionCreateNotes, CreateNotes: []board.NoteSpec{{Content: "gamma"}}},
			{Kind: board.ActionOrganizeLayout, OrganizeLayout: []board.MoveSpec{
				{ID: nodes[0].ID, X: 10, Y: 20},
			}},
			{Kind: board.ActionConnectNodes, ConnectNodes: []board.ConnectionSpec{
				{FromID: nodes[0].ID, ToID: nodes[1].ID, Label: "next"},
			}},
		},
	}

	result, err := svc.Ask(context.Background(), "b1", "tidy up")
	require.NoError(t, err)
	require.Equal(t, "organized", result.Text)
	require.Equal(t, 3, result.Applied)
	require.Empty(t, result.Skipped)
	require.Len(t, result.Created, 1)

	snap, err := svc.Snapshot("b1")
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 3)
	require.Len(t, snap.Edges, 1)

	moved := findNode(t, snap.Nodes, nodes[0].ID)
	require.Equal(t, board.Position{X: 10, Y: 20}, moved.Position)
}

func TestAskSkipsDeletedNodeButAppliesRest(t *testing.T) {
	collab := &scriptedCollab{}
	svc := New(collab)
	nodes := seedBoard(t, svc, "b1", "one", "two", "three")

	// Delete a node while the assistant reply is in flight; its move
	// must be skipped, the other actions must still apply.
	collab.beforeSend = func() {
		require.NoError(t, svc.DeleteNode(context.Background(), "b1", nodes[1].ID))
	}
	collab.reply = session.Reply{
		Text: "summarized",
		Actions: []board.Action{
			{Kind: board.ActionOrganizeLayout, OrganizeLayout: []board.MoveSpec{
				{ID: nodes[0].ID, X: 1, Y: 1},
				{ID: nodes[1].ID, X: 2, Y: 2},
				{ID: nodes[2].ID, X: 3, Y: 3},
			}},
			{Kind: board.ActionCreateNotes, CreateNotes: []board.NoteSpec{{Content: "summary"}}},
		},
	}

	result, err := svc.Ask(context.Background(), "b1", "summarize")
	require.NoError(t, err)
	require.Equal(t, 3, result.Applied)
	require.Len(t, result.Skipped, 1)
	require.Equal(t, board.ActionOrganizeLayout, result.Skipped[0].Action)
	require.Contains(t, result.Skipped[0].Reason, nodes[1].ID)
}

func TestAskGroupDegradesToLiveMembers(t *testing.T) {
	collab := &scriptedCollab{}
	svc := New(collab)
	nodes := seedBoard(t, svc, "b1", "a", "b")

	collab.reply = session.Reply{
		Actions: []board.Action{
			{Kind: board.ActionGroupNodes, GroupNodes: []string{nodes[0].ID, nodes[1].ID, "ghost"}},
		},
	}
	result, err := svc.Ask(context.Background(), "b1", "group them")
	require.NoError(t, err)
	require.Equal(t, 1, result.Applied)
	require.Len(t, result.Skipped, 1)

	snap, _ := svc.Snapshot("b1")
	require.Len(t, snap.Groups, 1)
}

func TestBoardsAreIsolated(t *testing.T) {
	collab := &scriptedCollab{}
	svc := New(collab)
	seedBoard(t, svc, "b1", "only here")

	snap, err := svc.Snapshot("b2")
	require.NoError(t, err)
	require.Empty(t, snap.Nodes)
}

func TestSnapshotRoundTripThroughStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boards.json")
	collab := &scriptedCollab{}

	svc := New(collab, WithSnapshots(boardstore.New(path)))
	nodes := seedBoard(t, svc, "b1", "persisted")

	// A fresh service against the same file restores the board.
	svc2 := New(collab, WithSnapshots(boardstore.New(path)))
	snap, err := svc2.Snapshot("b1")
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 1)
	require.Equal(t, "persisted", snap.Nodes[0].Text)
	require.Equal(t, nodes[0].ID, snap.Nodes[0].ID)
}

func TestLargeMediaOffloadsToBlobStore(t *testing.T) {
	collab := &scriptedCollab{}
	path := filepath.Join(t.TempDir(), "boards.json")
	svc := New(collab, WithSnapshots(boardstore.New(path)))

	big := bytes.Repeat([]byte{7}, blobThreshold+1)
	results, err := svc.DropFiles(context.Background(), "b1", []ingest.FileInput{
		{Name: "clip.mp4", MIMEType: "video/mp4", Content: bytes.NewReader(big)},
	}, board.Position{})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	nodeID := results[0].Node.ID

	// The persisted snapshot must not carry the payload...
	persisted, ok := boardstore.New(path).Get("b1")
	require.True(t, ok)
	require.Empty(t, findNode(t, persisted.Nodes, nodeID).Data)

	// ...but a restored board gets it back from the blob store.
	svc2 := New(collab, WithSnapshots(boardstore.New(path)), WithBlobs(svc.blobs))
	snap, err := svc2.Snapshot("b1")
	require.NoError(t, err)
	require.Empty(t, findNode(t, snap.Nodes, nodeID).Data, "snapshots always strip large payloads")

	data, err := svc2.blobs.Get(context.Background(), "b1", nodeID)
	require.NoError(t, err)
	require.Equal(t, big, data)
}

func TestDeleteBoardPurgesSnapshotAndBlobs(t *testing.T) {
	collab := &scriptedCollab{}
	path := filepath.Join(t.TempDir(), "boards.json")
	store := boardstore.New(path)
	svc := New(collab, WithSnapshots(store))

	big := bytes.Repeat([]byte{9}, blobThreshold+1)
	results, err := svc.DropFiles(context.Background(), "b1", []ingest.FileInput{
		{Name: "clip.mp4", MIMEType: "video/mp4", Content: bytes.NewReader(big)},
	}, board.Position{})
	require.NoError(t, err)
	nodeID := results[0].Node.ID
	seedBoard(t, svc, "other", "untouched")

	require.NoError(t, svc.DeleteBoard(context.Background(), "b1"))

	_, ok := store.Get("b1")
	require.False(t, ok, "snapshot must be gone")
	_, err = svc.blobs.Get(context.Background(), "b1", nodeID)
	require.ErrorIs(t, err, blob.ErrNotFound)
	ids, err := svc.blobs.List(context.Background(), "b1")
	require.NoError(t, err)
	require.Empty(t, ids)

	// The deleted board comes back empty; other boards are untouched.
	snap, err := svc.Snapshot("b1")
	require.NoError(t, err)
	require.Empty(t, snap.Nodes)
	other, err := svc.Snapshot("other")
	require.NoError(t, err)
	require.Len(t, other.Nodes, 1)
}

func TestDragFlow(t *testing.T) {
	collab := &scriptedCollab{}
	svc := New(collab)
	nodes := seedBoard(t, svc, "b1", "draggable")

	require.NoError(t, svc.BeginDrag("b1", nodes[0].ID, board.Position{X: 10, Y: 10}))
	require.Error(t, svc.BeginDrag("b1", nodes[0].ID, board.Position{}), "second drag must be rejected")
	require.NoError(t, svc.DragTo("b1", board.Position{X: 60, Y: 110}))
	require.NoError(t, svc.EndDrag("b1"))
	require.Error(t, svc.DragTo("b1", board.Position{}), "drag ended")

	snap, _ := svc.Snapshot("b1")
	got := findNode(t, snap.Nodes, nodes[0].ID)
	want := board.Position{
		X: nodes[0].Position.X + 50,
		Y: nodes[0].Position.Y + 100,
	}
	require.Equal(t, want, got.Position)
}

func TestWatchSeesAssistantMutations(t *testing.T) {
	collab := &scriptedCollab{}
	svc := New(collab)

	events, cancel, err := svc.Watch("b1")
	require.NoError(t, err)
	defer cancel()

	collab.reply = session.Reply{
		Actions: []board.Action{
			{Kind: board.ActionCreateNotes, CreateNotes: []board.NoteSpec{{Content: "from assistant"}}},
		},
	}
	_, err = svc.Ask(context.Background(), "b1", "add a note")
	require.NoError(t, err)

	ev := <-events
	require.Equal(t, board.EventNodeCreated, ev.Type)
	require.NotNil(t, ev.Node)
	require.Equal(t, "from assistant", ev.Node.Text)
}

func findNode(t *testing.T, nodes []*board.ContentNode, id string) *board.ContentNode {
	t.Helper()
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %s not found", id)
	return nil
}

func TestSearchNodesFindsTitleAndText(t *testing.T) {
	svc := New(&scriptedCollab{})
	nodes := seedBoard(t, svc, "b1", "pricing model draft", "unrelated")
	require.NoError(t, svc.RenameNode("b1", nodes[1].ID, "Pricing"))

	matches, err := svc.SearchNodes("b1", "pricing")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, nodes[0].ID, matches[0].NodeID)
	require.Equal(t, []int{1}, matches[0].Lines)
	require.Equal(t, []int{0}, matches[1].Lines, "title hits report line 0")
}

func TestAskRequiresMessage(t *testing.T) {
	svc := New(&scriptedCollab{})
	_, err := svc.Ask(context.Background(), "b1", "   ")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "message"))
}
