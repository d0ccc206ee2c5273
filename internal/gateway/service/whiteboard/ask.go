package whiteboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"ideaboard/internal/board"
	"ideaboard/internal/session"
)

// Placement fallback for assistant-created notes without coordinates.
const (
	defaultNoteX      = 120
	defaultNoteY      = 120
	defaultNoteStride = 40
)

// Skip records one assistant action (or one item of a list action)
// that referenced a node no longer on the board.
type Skip struct {
	Action board.ActionKind `json:"action"`
	Reason string           `json:"reason"`
}

// AskResult is the outcome of one assistant turn: the reply text and
// what happened to each requested mutation.
type AskResult struct {
	Text    string   `json:"text"`
	Applied int      `json:"applied"`
	Skipped []Skip   `json:"skipped,omitempty"`
	Created []string `json:"created,omitempty"`
}

// Ask runs one assistant turn against the board and applies the
// returned mutations in the order the assistant issued them. An action
// item referencing a node deleted while the call was in flight is
// skipped and reported; the rest of the batch still applies. A
// malformed batch applies nothing.
func (s *Service) Ask(ctx context.Context, boardID, message string) (AskResult, error) {
	h, err := s.handle(boardID)
	if err != nil {
		return AskResult{}, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return AskResult{}, fmt.Errorf("whiteboard: message is required")
	}

	reply, err := h.session.Ask(ctx, message)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrMalformedActions):
		log.Printf("whiteboard: %s: discarding malformed action batch: %v", boardID, err)
		return AskResult{Text: reply.Text}, err
	default:
		return AskResult{}, err
	}

	result := applyActions(h, reply.Actions)
	result.Text = reply.Text
	if result.Applied > 0 {
		s.persist(h)
	}
	return result, nil
}

// applyActions dispatches the validated action list against the store.
// The switch is exhaustive over board.ActionKind; session validation
// already rejected unknown kinds.
func applyActions(h *boardHandle, actions []board.Action) AskResult {
	var result AskResult
	skip := func(kind board.ActionKind, format string, args ...any) {
		reason := fmt.Sprintf(format, args...)
		log.Printf("whiteboard: %s: skipping %s: %s", h.id, kind, reason)
		result.Skipped = append(result.Skipped, Skip{Action: kind, Reason: reason})
	}

	for _, action := range actions {
		switch action.Kind {
		case board.ActionCreateNotes:
			for i, note := range action.CreateNotes {
				pos := board.Position{
					X: defaultNoteX + float64(i)*defaultNoteStride,
					Y: defaultNoteY + float64(i)*defaultNoteStride,
				}
				if note.Position != nil {
					pos = *note.Position
				}
				title := note.Title
				if title == "" {
					title = "Note"
				}
				node, err := h.store.AddNode(&board.ContentNode{
					Kind:     board.KindText,
					Title:    title,
					Text:     note.Content,
					Color:    note.Color,
					Position: pos,
				})
				if err != nil {
					skip(action.Kind, "create note: %v", err)
					continue
				}
				result.Created = append(result.Created, node.ID)
				result.Applied++
			}

		case board.ActionOrganizeLayout:
			for _, move := range action.OrganizeLayout {
				if err := h.store.UpdateNodePosition(move.ID, move.X, move.Y); err != nil {
					skip(action.Kind, "move %s: %v", move.ID, err)
					continue
				}
				result.Applied++
			}

		case board.ActionConnectNodes:
			for _, conn := range action.ConnectNodes {
				if _, err := h.store.Connect(conn.FromID, conn.ToID, conn.Label); err != nil {
					skip(action.Kind, "connect %s -> %s: %v", conn.FromID, conn.ToID, err)
					continue
				}
				result.Applied++
			}

		case board.ActionDeleteNodes:
			for _, id := range action.DeleteNodes {
				if err := h.store.RemoveNode(id); err != nil {
					skip(action.Kind, "delete %s: %v", id, err)
					continue
				}
				result.Applied++
			}

		case board.ActionGroupNodes:
			live := make([]string, 0, len(action.GroupNodes))
			for _, id := range action.GroupNodes {
				if h.store.Has(id) {
					live = append(live, id)
				} else {
					skip(action.Kind, "member %s: not found", id)
				}
			}
			if len(live) < 2 {
				skip(action.Kind, "fewer than two live members remain")
				continue
			}
			if _, err := h.store.Group(live, ""); err != nil {
				skip(action.Kind, "group: %v", err)
				continue
			}
			result.Applied++

		case board.ActionUngroupNodes:
			if err := h.store.Ungroup(action.UngroupNodes); err != nil {
				skip(action.Kind, "ungroup: %v", err)
				continue
			}
			result.Applied++
		}
	}
	return result
}
