package board

import (
	"strings"

	"github.com/google/uuid"
)

// Kind identifies what a node holds and how it is rendered and serialized.
// It is fixed at creation.
type Kind string

const (
	KindText          Kind = "text"
	KindImage         Kind = "image"
	KindVideo         Kind = "video"
	KindAudio         Kind = "audio"
	KindDocument      Kind = "document"
	KindLink          Kind = "link"
	KindEmbeddedVideo Kind = "embedded_video"
)

// IsBinary reports whether the node payload lives in Data rather than Text.
func (k Kind) IsBinary() bool {
	switch k {
	case KindImage, KindVideo, KindAudio, KindDocument:
		return true
	default:
		return false
	}
}

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindImage, KindVideo, KindAudio, KindDocument, KindLink, KindEmbeddedVideo:
		return true
	default:
		return false
	}
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// DefaultSize returns the kind-specific footprint used when a node is
// created without explicit dimensions.
func DefaultSize(kind Kind) Size {
	switch kind {
	case KindImage:
		return Size{W: 200, H: 200}
	case KindVideo, KindEmbeddedVideo:
		return Size{W: 320, H: 180}
	case KindAudio:
		return Size{W: 240, H: 80}
	case KindDocument:
		return Size{W: 200, H: 240}
	case KindLink:
		return Size{W: 240, H: 100}
	default:
		return Size{W: 200, H: 200}
	}
}

// ContentNode is one placed item of content on the canvas.
//
// Text holds the payload for text, link and embedded_video kinds.
// Data plus MIMEType hold the payload for binary kinds. Seq is the
// creation sequence assigned by the store; it never changes and defines
// the stable serialization order.
type ContentNode struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"kind"`
	Title    string   `json:"title,omitempty"`
	Text     string   `json:"text,omitempty"`
	Data     []byte   `json:"data,omitempty"`
	MIMEType string   `json:"mimeType,omitempty"`
	Position Position `json:"position"`
	Size     Size     `json:"size"`
	GroupID  string   `json:"groupId,omitempty"`
	Color    string   `json:"color,omitempty"`
	Seq      int64    `json:"seq"`
}

// Clone returns a deep copy so callers can never mutate store state
// through a returned node.
func (n *ContentNode) Clone() *ContentNode {
	if n == nil {
		return nil
	}
	out := *n
	if n.Data != nil {
		out.Data = append([]byte(nil), n.Data...)
	}
	return &out
}

// Edge is a labeled connection between two live nodes.
type Edge struct {
	ID     string `json:"id"`
	FromID string `json:"fromId"`
	ToID   string `json:"toId"`
	Label  string `json:"label,omitempty"`
}

// Group is a weak cluster of nodes. Deleting a group never deletes its
// members; membership lives on the node as GroupID.
type Group struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// NewID mints an opaque node/group/edge identifier.
func NewID() string {
	return uuid.NewString()
}

func normalizeID(id string) string {
	return strings.TrimSpace(id)
}
