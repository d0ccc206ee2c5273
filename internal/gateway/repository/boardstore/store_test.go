package boardstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ideaboard/internal/board"
)

func fileStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "boards.json")
	return New(path), path
}

func TestPutGetRoundTrip(t *testing.T) {
	s, _ := fileStore(t)

	node := &board.ContentNode{ID: "n1", Kind: board.KindText, Title: "Note", Text: "hello"}
	s.Put(Snapshot{
		BoardID: "b1",
		Nodes:   []*board.ContentNode{node},
		Edges:   []board.Edge{{ID: "e1", FromID: "n1", ToID: "n1", Label: "self"}},
	})

	snap, ok := s.Get("b1")
	if !ok {
		t.Fatal("expected snapshot")
	}
	if len(snap.Nodes) != 1 || snap.Nodes[0].Text != "hello" {
		t.Fatalf("unexpected nodes %+v", snap.Nodes)
	}
	if len(snap.Edges) != 1 {
		t.Fatalf("unexpected edges %+v", snap.Edges)
	}
	if snap.UpdatedAt.IsZero() {
		t.Fatal("UpdatedAt must be stamped on Put")
	}
}

func TestGetSurvivesRestart(t *testing.T) {
	s, path := fileStore(t)
	s.Put(Snapshot{BoardID: "b1", Nodes: []*board.ContentNode{{ID: "n1", Kind: board.KindText}}})

	again := New(path)
	snap, ok := again.Get("b1")
	if !ok || len(snap.Nodes) != 1 || snap.Nodes[0].ID != "n1" {
		t.Fatalf("snapshot not restored from disk: %+v ok=%v", snap, ok)
	}
}

func TestDeleteRemovesFromDisk(t *testing.T) {
	s, path := fileStore(t)
	s.Put(Snapshot{BoardID: "b1", Nodes: []*board.ContentNode{{ID: "n1"}}})
	s.Delete("b1")

	if _, ok := New(path).Get("b1"); ok {
		t.Fatal("deleted board must not reload")
	}
}

func TestListSortsBoardIDs(t *testing.T) {
	s, _ := fileStore(t)
	for _, id := range []string{"zeta", "alpha", "mid"} {
		s.Put(Snapshot{BoardID: id, Nodes: []*board.ContentNode{{ID: "n"}}})
	}
	got := s.List()
	want := []string{"alpha", "mid", "zeta"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestCorruptStateFileIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boards.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(path)
	if _, ok := s.Get("b1"); ok {
		t.Fatal("corrupt file must read as empty")
	}
	// Store stays usable after the corrupt load.
	s.Put(Snapshot{BoardID: "b1", Nodes: []*board.ContentNode{{ID: "n1"}}})
	if _, ok := s.Get("b1"); !ok {
		t.Fatal("store unusable after corrupt load")
	}
}

func TestBlankBoardIDIsRejected(t *testing.T) {
	s, _ := fileStore(t)
	s.Put(Snapshot{BoardID: "  "})
	if got := s.List(); len(got) != 0 {
		t.Fatalf("blank id must not persist: %v", got)
	}
	if _, ok := s.Get(""); ok {
		t.Fatal("blank id must not resolve")
	}
}
