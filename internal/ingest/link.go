package ingest

import (
	"regexp"
	"strings"

	"ideaboard/internal/board"
)

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// ClassifyText decides what node a dropped or pasted string becomes.
// Known video/social hosts get a platform-specific treatment; anything
// with a URI scheme becomes a generic link; the rest is a plain note.
func ClassifyText(raw string) *board.ContentNode {
	text := strings.TrimSpace(raw)
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be"):
		return &board.ContentNode{Kind: board.KindEmbeddedVideo, Title: "Youtube video", Text: text}
	case strings.Contains(lower, "tiktok.com"):
		return &board.ContentNode{Kind: board.KindLink, Title: "Tiktok video", Text: text}
	case strings.Contains(lower, "instagram.com"):
		return &board.ContentNode{Kind: board.KindLink, Title: "Instagram content", Text: text}
	case schemeRe.MatchString(text):
		return &board.ContentNode{Kind: board.KindLink, Title: "Link", Text: text}
	default:
		return &board.ContentNode{Kind: board.KindText, Title: "Note", Text: text}
	}
}

// IngestText classifies the dropped string and places the resulting
// node centered on the drop point.
func IngestText(store *board.Store, raw string, drop board.Position) (*board.ContentNode, error) {
	node := ClassifyText(raw)
	node.Size = board.DefaultSize(node.Kind)
	node.Position = board.Position{
		X: drop.X - node.Size.W/2,
		Y: drop.Y - node.Size.H/2,
	}
	return store.AddNode(node)
}
