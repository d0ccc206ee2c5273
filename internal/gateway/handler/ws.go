package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"ideaboard/internal/board"
	"ideaboard/internal/gateway/service/whiteboard"
)

const (
	boardWSWriteWait = 10 * time.Second
	boardWSPongWait  = 60 * time.Second
	boardWSPingEvery = (boardWSPongWait * 9) / 10
)

var boardWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// BoardWSHandler streams board mutation events to clients and accepts
// pointer-level interaction (drags, direct moves) inbound.
type BoardWSHandler struct {
	svc *whiteboard.Service
}

func NewBoardWSHandler(svc *whiteboard.Service) *BoardWSHandler {
	return &BoardWSHandler{svc: svc}
}

type boardWSInbound struct {
	Type   string  `json:"type"`
	NodeID string  `json:"nodeId,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
}

type boardWSOutbound struct {
	Type    string       `json:"type"`
	BoardID string       `json:"boardId,omitempty"`
	Event   *board.Event `json:"event,omitempty"`
	Code    string       `json:"code,omitempty"`
	Message string       `json:"message,omitempty"`
}

func (h *BoardWSHandler) HandleBoardWS(w http.ResponseWriter, r *http.Request) {
	boardID := strings.TrimSpace(r.PathValue("board_id"))
	if boardID == "" {
		http.Error(w, "board_id is required", http.StatusBadRequest)
		return
	}

	conn, err := boardWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(boardWSPongWait)); err != nil {
		log.Printf("board ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(boardWSPongWait))
	})

	writeCh := make(chan boardWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(boardWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(boardWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(boardWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	events, unsubscribe, subErr := h.svc.Watch(boardID)
	if subErr != nil {
		pushBoardWS(writeCh, boardWSOutbound{
			Type:    "error",
			Code:    "invalid_argument",
			Message: subErr.Error(),
		})
		cancel()
		<-writerDone
		return
	}
	defer unsubscribe()

	pushBoardWS(writeCh, boardWSOutbound{
		Type:    "subscribed",
		BoardID: boardID,
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				pushBoardWS(writeCh, boardWSOutbound{
					Type:    "board_event",
					BoardID: boardID,
					Event:   &evt,
				})
			}
		}
	}()

	for {
		var in boardWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		msgType := strings.ToLower(strings.TrimSpace(in.Type))
		switch msgType {
		case "ping":
			pushBoardWS(writeCh, boardWSOutbound{Type: "pong"})
		case "drag_begin":
			if err := h.svc.BeginDrag(boardID, in.NodeID, board.Position{X: in.X, Y: in.Y}); err != nil {
				pushBoardWS(writeCh, wsError(err))
			}
		case "drag_move":
			if err := h.svc.DragTo(boardID, board.Position{X: in.X, Y: in.Y}); err != nil {
				pushBoardWS(writeCh, wsError(err))
			}
		case "drag_end":
			if err := h.svc.EndDrag(boardID); err != nil {
				pushBoardWS(writeCh, wsError(err))
			}
		case "move":
			if err := h.svc.MoveNode(boardID, in.NodeID, in.X, in.Y); err != nil {
				pushBoardWS(writeCh, wsError(err))
			}
		case "":
			pushBoardWS(writeCh, boardWSOutbound{
				Type:    "error",
				Code:    "invalid_argument",
				Message: "type is required",
			})
		default:
			pushBoardWS(writeCh, boardWSOutbound{
				Type:    "error",
				Code:    "invalid_argument",
				Message: "unsupported type: " + msgType,
			})
		}
	}
}

func wsError(err error) boardWSOutbound {
	return boardWSOutbound{
		Type:    "error",
		Code:    "invalid_argument",
		Message: err.Error(),
	}
}

func pushBoardWS(writeCh chan boardWSOutbound, out boardWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
