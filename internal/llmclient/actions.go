package llmclient

import (
	"encoding/json"
	"fmt"

	genai "google.golang.org/genai"

	"ideaboard/internal/board"
)

// boardTools declares the six board mutation actions to the model.
// Names and shapes match the board.Action union one to one.
func boardTools() []*genai.Tool {
	num := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeNumber, Description: desc}
	}
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	idList := &genai.Schema{
		Type:  genai.TypeArray,
		Items: str("node id as shown in the board context"),
	}

	return []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{
		{
			Name:        "create_notes",
			Description: "Create one or more text notes on the board.",
			Parameters: &genai.Schema{
				Type:     genai.TypeObject,
				Required: []string{"notes"},
				Properties: map[string]*genai.Schema{
					"notes": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type:     genai.TypeObject,
							Required: []string{"content"},
							Properties: map[string]*genai.Schema{
								"title":   str("short display label"),
								"content": str("note body"),
								"color":   str("optional display color"),
								"x":       num("optional x placement"),
								"y":       num("optional y placement"),
							},
						},
					},
				},
			},
		},
		{
			Name:        "organize_layout",
			Description: "Move existing nodes to new positions.",
			Parameters: &genai.Schema{
				Type:     genai.TypeObject,
				Required: []string{"moves"},
				Properties: map[string]*genai.Schema{
					"moves": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type:     genai.TypeObject,
							Required: []string{"id", "x", "y"},
							Properties: map[string]*genai.Schema{
								"id": str("node id"),
								"x":  num("new x"),
								"y":  num("new y"),
							},
						},
					},
				},
			},
		},
		{
			Name:        "connect_nodes",
			Description: "Draw labeled connections between existing nodes.",
			Parameters: &genai.Schema{
				Type:     genai.TypeObject,
				Required: []string{"connections"},
				Properties: map[string]*genai.Schema{
					"connections": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type:     genai.TypeObject,
							Required: []string{"fromId", "toId"},
							Properties: map[string]*genai.Schema{
								"fromId": str("source node id"),
								"toId":   str("target node id"),
								"label":  str("optional edge label"),
							},
						},
					},
				},
			},
		},
		{
			Name:        "delete_nodes",
			Description: "Delete nodes from the board.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Required:   []string{"nodeIds"},
				Properties: map[string]*genai.Schema{"nodeIds": idList},
			},
		},
		{
			Name:        "group_nodes",
			Description: "Cluster nodes into one group.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Required:   []string{"nodeIds"},
				Properties: map[string]*genai.Schema{"nodeIds": idList},
			},
		},
		{
			Name:        "ungroup_nodes",
			Description: "Remove nodes from their group.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Required:   []string{"nodeIds"},
				Properties: map[string]*genai.Schema{"nodeIds": idList},
			},
		},
	}}}
}

type noteArg struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Color   string   `json:"color"`
	X       *float64 `json:"x"`
	Y       *float64 `json:"y"`
}

type createNotesArgs struct {
	Notes []noteArg `json:"notes"`
}

type organizeLayoutArgs struct {
	Moves []board.MoveSpec `json:"moves"`
}

type connectNodesArgs struct {
	Connections []board.ConnectionSpec `json:"connections"`
}

type nodeIDsArgs struct {
	NodeIDs []string `json:"nodeIds"`
}

// actionFromCall converts one model function call into the typed action
// union. Unknown names and undecodable arguments are rejected so a
// malformed batch never reaches the store.
func actionFromCall(name string, args map[string]any) (board.Action, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return board.Action{}, fmt.Errorf("llmclient: encode %s args: %w", name, err)
	}
	switch name {
	case "create_notes":
		var a createNotesArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return board.Action{}, fmt.Errorf("llmclient: decode %s: %w", name, err)
		}
		notes := make([]board.NoteSpec, 0, len(a.Notes))
		for _, n := range a.Notes {
			spec := board.NoteSpec{Title: n.Title, Content: n.Content, Color: n.Color}
			if n.X != nil && n.Y != nil {
				spec.Position = &board.Position{X: *n.X, Y: *n.Y}
			}
			notes = append(notes, spec)
		}
		return board.Action{Kind: board.ActionCreateNotes, CreateNotes: notes}, nil
	case "organize_layout":
		var a organizeLayoutArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return board.Action{}, fmt.Errorf("llmclient: decode %s: %w", name, err)
		}
		return board.Action{Kind: board.ActionOrganizeLayout, OrganizeLayout: a.Moves}, nil
	case "connect_nodes":
		var a connectNodesArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return board.Action{}, fmt.Errorf("llmclient: decode %s: %w", name, err)
		}
		return board.Action{Kind: board.ActionConnectNodes, ConnectNodes: a.Connections}, nil
	case "delete_nodes", "group_nodes", "ungroup_nodes":
		var a nodeIDsArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return board.Action{}, fmt.Errorf("llmclient: decode %s: %w", name, err)
		}
		switch name {
		case "delete_nodes":
			return board.Action{Kind: board.ActionDeleteNodes, DeleteNodes: a.NodeIDs}, nil
		case "group_nodes":
			return board.Action{Kind: board.ActionGroupNodes, GroupNodes: a.NodeIDs}, nil
		default:
			return board.Action{Kind: board.ActionUngroupNodes, UngroupNodes: a.NodeIDs}, nil
		}
	default:
		return board.Action{}, fmt.Errorf("llmclient: unknown tool call %q", name)
	}
}
