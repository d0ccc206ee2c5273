package board

import "fmt"

// ActionKind discriminates the assistant action union.
type ActionKind string

const (
	ActionCreateNotes    ActionKind = "create_notes"
	ActionOrganizeLayout ActionKind = "organize_layout"
	ActionConnectNodes   ActionKind = "connect_nodes"
	ActionDeleteNodes    ActionKind = "delete_nodes"
	ActionGroupNodes     ActionKind = "group_nodes"
	ActionUngroupNodes   ActionKind = "ungroup_nodes"
)

// NoteSpec describes one note the assistant wants created.
type NoteSpec struct {
	Title    string    `json:"title,omitempty"`
	Content  string    `json:"content"`
	Color    string    `json:"color,omitempty"`
	Position *Position `json:"position,omitempty"`
}

// MoveSpec moves one existing node to a new position.
type MoveSpec struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// ConnectionSpec links two existing nodes.
type ConnectionSpec struct {
	FromID string `json:"fromId"`
	ToID   string `json:"toId"`
	Label  string `json:"label,omitempty"`
}

// Action is a tagged union: exactly the payload field matching Kind is
// set. Adding a new action means adding a variant here and a case to
// every switch over ActionKind.
type Action struct {
	Kind ActionKind `json:"kind"`

	CreateNotes    []NoteSpec       `json:"createNotes,omitempty"`
	OrganizeLayout []MoveSpec       `json:"organizeLayout,omitempty"`
	ConnectNodes   []ConnectionSpec `json:"connectNodes,omitempty"`
	DeleteNodes    []string         `json:"deleteNodes,omitempty"`
	GroupNodes     []string         `json:"groupNodes,omitempty"`
	UngroupNodes   []string         `json:"ungroupNodes,omitempty"`
}

// Validate rejects structurally malformed actions. Referential checks
// against the live store happen at apply time, not here.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionCreateNotes:
		if len(a.CreateNotes) == 0 {
			return fmt.Errorf("create_notes: no notes")
		}
		for i, n := range a.CreateNotes {
			if n.Content == "" {
				return fmt.Errorf("create_notes: note %d has empty content", i)
			}
		}
	case ActionOrganizeLayout:
		if len(a.OrganizeLayout) == 0 {
			return fmt.Errorf("organize_layout: no moves")
		}
		for i, m := range a.OrganizeLayout {
			if normalizeID(m.ID) == "" {
				return fmt.Errorf("organize_layout: move %d has empty id", i)
			}
		}
	case ActionConnectNodes:
		if len(a.ConnectNodes) == 0 {
			return fmt.Errorf("connect_nodes: no connections")
		}
		for i, c := range a.ConnectNodes {
			if normalizeID(c.FromID) == "" || normalizeID(c.ToID) == "" {
				return fmt.Errorf("connect_nodes: connection %d has empty endpoint", i)
			}
		}
	case ActionDeleteNodes:
		if len(a.DeleteNodes) == 0 {
			return fmt.Errorf("delete_nodes: no ids")
		}
	case ActionGroupNodes:
		if len(a.GroupNodes) < 2 {
			return fmt.Errorf("group_nodes: need at least two ids")
		}
	case ActionUngroupNodes:
		if len(a.UngroupNodes) == 0 {
			return fmt.Errorf("ungroup_nodes: no ids")
		}
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	return nil
}
