// Package ingest translates external input events (file drops, pasted
// text, microphone captures) into board nodes.
package ingest

import (
	"fmt"
	"io"
	"strings"

	"ideaboard/internal/board"
)

// Vertical spacing between nodes created from one multi-file drop, so
// a batch never lands in a single stack.
const batchOffsetY = 40

// FileInput is one dropped or selected file.
type FileInput struct {
	Name     string
	MIMEType string
	Content  io.Reader
}

// FileResult pairs one input with its outcome. Err is set when that
// file failed; a failure never aborts the rest of the batch.
type FileResult struct {
	Name string
	Node *board.ContentNode
	Err  error
}

// ClassifyMIME maps a MIME type to the node kind it should produce.
// Types with no better home become documents so the serializer can
// still surface their existence.
func ClassifyMIME(mimeType string) board.Kind {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mt, "image/"):
		return board.KindImage
	case strings.HasPrefix(mt, "video/"):
		return board.KindVideo
	case strings.HasPrefix(mt, "audio/"):
		return board.KindAudio
	case mt == "application/pdf":
		return board.KindDocument
	case strings.HasPrefix(mt, "text/"):
		return board.KindText
	default:
		return board.KindDocument
	}
}

// IngestFiles reads every file in the batch and creates one node per
// readable file, centered on the drop point and offset vertically per
// extra file. Unreadable files report an error in their slot and leave
// no partial node behind.
func IngestFiles(store *board.Store, files []FileInput, drop board.Position) []FileResult {
	results := make([]FileResult, 0, len(files))
	placed := 0
	for _, f := range files {
		node, err := ingestOneFile(store, f, drop, placed)
		if err == nil {
			placed++
		}
		results = append(results, FileResult{Name: f.Name, Node: node, Err: err})
	}
	return results
}

func ingestOneFile(store *board.Store, f FileInput, drop board.Position, index int) (*board.ContentNode, error) {
	if f.Content == nil {
		return nil, fmt.Errorf("ingest: file %q has no content", f.Name)
	}
	data, err := io.ReadAll(f.Content)
	if err != nil {
		return nil, fmt.Errorf("ingest: read %q: %w", f.Name, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("ingest: file %q is empty", f.Name)
	}

	kind := ClassifyMIME(f.MIMEType)
	size := board.DefaultSize(kind)
	node := &board.ContentNode{
		Kind:  kind,
		Title: titleForFile(f.Name, kind),
		Size:  size,
		Position: board.Position{
			X: drop.X - size.W/2,
			Y: drop.Y - size.H/2 + float64(index)*batchOffsetY,
		},
	}
	if kind == board.KindText {
		node.Text = string(data)
	} else {
		node.Data = data
		node.MIMEType = strings.ToLower(strings.TrimSpace(f.MIMEType))
	}
	return store.AddNode(node)
}

func titleForFile(name string, kind board.Kind) string {
	name = strings.TrimSpace(name)
	if name != "" {
		return name
	}
	return string(kind)
}
