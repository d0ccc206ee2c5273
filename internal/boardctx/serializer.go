// Package boardctx projects a board into the ordered content blocks an
// assistant conversation is opened with. The projection is pure and
// deterministic: the same board state always serializes to the same
// bytes, and every node leaves at least a textual trace.
package boardctx

import (
	"fmt"
	"sort"
	"strings"

	"ideaboard/internal/board"
)

// ErrContextTooLarge reports a board whose textual context alone
// exceeds the configured budget. Binary payloads degrade to
// placeholders before this is ever returned.
var ErrContextTooLarge = fmt.Errorf("boardctx: context too large")

// DefaultMaxBytes bounds the total serialized payload for one
// assistant turn.
const DefaultMaxBytes = 8 << 20

// InlineData is a binary content block tagged with its MIME type.
type InlineData struct {
	MIMEType string
	Data     []byte
}

// Block is one element of the serialized context: a header line
// identifying a node, followed by either raw text or inline binary.
// Exactly one of Text/Inline is meaningful per emission rule; header-
// only blocks carry both empty.
type Block struct {
	Header string
	Text   string
	Inline *InlineData
}

// Options tunes the projection. The zero value serializes the whole
// board under DefaultMaxBytes.
type Options struct {
	// NodeIDs restricts the projection to an explicit subset. Empty
	// means every node.
	NodeIDs []string
	// MaxBytes caps header+text+inline bytes. <=0 means
	// DefaultMaxBytes.
	MaxBytes int
}

// supportedInlineMIME is the multimodal ingestion set the external
// collaborator accepts. Anything else is surfaced as a placeholder.
var supportedInlineMIME = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"image/heic":      true,
	"image/heif":      true,
	"video/mp4":       true,
	"video/mpeg":      true,
	"video/quicktime": true,
	"video/webm":      true,
	"audio/mpeg":      true,
	"audio/mp3":       true,
	"audio/wav":       true,
	"audio/ogg":       true,
	"audio/aac":       true,
	"audio/flac":      true,
	"application/pdf": true,
}

// InlineSupported reports whether a MIME type may be sent as inline
// binary.
func InlineSupported(mimeType string) bool {
	return supportedInlineMIME[strings.ToLower(strings.TrimSpace(mimeType))]
}

// Serialize projects the store into the ordered block sequence for one
// assistant turn. Nodes appear in creation order; two calls against the
// same state produce identical output.
func Serialize(store *board.Store, opts Options) ([]Block, error) {
	if store == nil {
		return nil, fmt.Errorf("boardctx: nil store")
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	nodes := store.Nodes()
	if len(opts.NodeIDs) > 0 {
		want := make(map[string]bool, len(opts.NodeIDs))
		for _, id := range opts.NodeIDs {
			want[strings.TrimSpace(id)] = true
		}
		filtered := nodes[:0]
		for _, n := range nodes {
			if want[n.ID] {
				filtered = append(filtered, n)
			}
		}
		nodes = filtered
	}

	// Bytes the context carries regardless of degradation: headers,
	// text payloads, unsupported-binary placeholders and the relations
	// summary. Only what remains of the budget is available for inline
	// binaries.
	rel := relationsSummary(store)
	baseText := 0
	for _, n := range nodes {
		baseText += len(headerFor(n))
		switch {
		case !n.Kind.IsBinary():
			baseText += len(n.Text)
		case !InlineSupported(n.MIMEType):
			baseText += len(placeholderFor(n, false))
		}
	}
	if rel != "" {
		baseText += len("[relations]") + len(rel)
	}

	degraded := planDegradations(nodes, maxBytes-baseText)

	blocks := make([]Block, 0, len(nodes)*2+1)
	textBytes := 0
	for _, n := range nodes {
		header := headerFor(n)
		blocks = append(blocks, Block{Header: header})
		textBytes += len(header)

		switch {
		case !n.Kind.IsBinary():
			blocks = append(blocks, Block{Text: n.Text})
			textBytes += len(n.Text)
		case InlineSupported(n.MIMEType) && !degraded[n.ID]:
			blocks = append(blocks, Block{Inline: &InlineData{
				MIMEType: strings.ToLower(strings.TrimSpace(n.MIMEType)),
				Data:     append([]byte(nil), n.Data...),
			}})
		default:
			// Never silently drop a node the collaborator cannot see.
			placeholder := placeholderFor(n, degraded[n.ID])
			blocks = append(blocks, Block{Text: placeholder})
			textBytes += len(placeholder)
		}
	}

	if rel != "" {
		blocks = append(blocks, Block{Header: "[relations]"}, Block{Text: rel})
		textBytes += len("[relations]") + len(rel)
	}

	if textBytes > maxBytes {
		return nil, fmt.Errorf("%w: %d text bytes over %d budget", ErrContextTooLarge, textBytes, maxBytes)
	}

	total := textBytes
	for _, b := range blocks {
		if b.Inline != nil {
			total += len(b.Inline.Data)
		}
	}
	if total > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes over %d budget", ErrContextTooLarge, total, maxBytes)
	}
	return blocks, nil
}

// planDegradations picks which binary payloads to demote to
// placeholders so the inline total fits what the budget has left after
// mandatory text. Largest payloads go first, oldest first among
// equals, so small recent media survive longest. Every demotion costs
// its placeholder text, which shrinks the budget it frees up.
func planDegradations(nodes []*board.ContentNode, inlineBudget int) map[string]bool {
	type candidate struct {
		id          string
		seq         int64
		size        int
		placeholder int
	}
	var cands []candidate
	inlineTotal := 0
	for _, n := range nodes {
		if n.Kind.IsBinary() && InlineSupported(n.MIMEType) {
			cands = append(cands, candidate{
				id:          n.ID,
				seq:         n.Seq,
				size:        len(n.Data),
				placeholder: len(placeholderFor(n, true)),
			})
			inlineTotal += len(n.Data)
		}
	}
	degraded := make(map[string]bool)
	if inlineTotal <= inlineBudget {
		return degraded
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].size != cands[j].size {
			return cands[i].size > cands[j].size
		}
		return cands[i].seq < cands[j].seq
	})
	for _, c := range cands {
		if inlineTotal <= inlineBudget {
			break
		}
		degraded[c.id] = true
		inlineTotal -= c.size
		inlineBudget -= c.placeholder
	}
	return degraded
}

func headerFor(n *board.ContentNode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[node %s] kind=%s", n.ID, n.Kind)
	if n.Title != "" {
		fmt.Fprintf(&b, " title=%q", n.Title)
	}
	fmt.Fprintf(&b, " at=(%g,%g) size=%gx%g", n.Position.X, n.Position.Y, n.Size.W, n.Size.H)
	if n.GroupID != "" {
		fmt.Fprintf(&b, " group=%s", n.GroupID)
	}
	return b.String()
}

func placeholderFor(n *board.ContentNode, overBudget bool) string {
	name := n.Title
	if name == "" {
		name = n.ID
	}
	if overBudget {
		return fmt.Sprintf("(file %q of type %s omitted to fit the context budget; it exists on the board but its content is not attached)", name, n.MIMEType)
	}
	return fmt.Sprintf("(file %q exists on the board but its type %s is unsupported for direct analysis)", name, n.MIMEType)
}

func relationsSummary(store *board.Store) string {
	edges := store.Edges()
	groups := store.Groups()
	if len(edges) == 0 && len(groups) == 0 {
		return ""
	}
	var b strings.Builder
	for _, e := range edges {
		fmt.Fprintf(&b, "edge %s -> %s", e.FromID, e.ToID)
		if e.Label != "" {
			fmt.Fprintf(&b, " (%s)", e.Label)
		}
		b.WriteString("\n")
	}
	members := make(map[string][]string)
	for _, n := range store.Nodes() {
		if n.GroupID != "" {
			members[n.GroupID] = append(members[n.GroupID], n.ID)
		}
	}
	for _, g := range groups {
		fmt.Fprintf(&b, "group %s", g.ID)
		if g.Title != "" {
			fmt.Fprintf(&b, " (%s)", g.Title)
		}
		fmt.Fprintf(&b, ": %s\n", strings.Join(members[g.ID], ", "))
	}
	return strings.TrimSuffix(b.String(), "\n")
}
