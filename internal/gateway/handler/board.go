package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"ideaboard/internal/board"
	"ideaboard/internal/gateway/service/whiteboard"
	"ideaboard/internal/ingest"
	"ideaboard/internal/session"
)

// maxUploadBytes bounds one multipart file-drop request.
const maxUploadBytes = 128 << 20

type BoardHandler struct {
	svc *whiteboard.Service
}

func NewBoardHandler(svc *whiteboard.Service) *BoardHandler {
	return &BoardHandler{svc: svc}
}

func (h *BoardHandler) HandleGetBoard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Snapshot(r.PathValue("board_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleDropFiles ingests a multipart batch dropped at form fields x/y.
func (h *BoardHandler) HandleDropFiles(w http.ResponseWriter, r *http.Request) {
	boardID := r.PathValue("board_id")
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	pos := positionFromForm(r)

	// Field order decides the batch layout; map iteration would shuffle
	// it between requests.
	fields := make([]string, 0, len(r.MultipartForm.File))
	for field := range r.MultipartForm.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var files []ingest.FileInput
	for _, field := range fields {
		for _, fh := range r.MultipartForm.File[field] {
			f, err := fh.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "open upload "+fh.Filename)
				return
			}
			defer f.Close()
			files = append(files, ingest.FileInput{
				Name:     fh.Filename,
				MIMEType: fh.Header.Get("Content-Type"),
				Content:  f,
			})
		}
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files in request")
		return
	}

	results, err := h.svc.DropFiles(r.Context(), boardID, files, pos)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	type fileOut struct {
		Name  string             `json:"name"`
		Node  *board.ContentNode `json:"node,omitempty"`
		Error string             `json:"error,omitempty"`
	}
	out := make([]fileOut, 0, len(results))
	for _, res := range results {
		fo := fileOut{Name: res.Name, Node: res.Node}
		if res.Err != nil {
			fo.Error = res.Err.Error()
		}
		out = append(out, fo)
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": out})
}

func (h *BoardHandler) HandleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBoard(r.Context(), r.PathValue("board_id")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *BoardHandler) HandleDropText(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Text string  `json:"text"`
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	node, err := h.svc.DropText(r.PathValue("board_id"), in.Text, board.Position{X: in.X, Y: in.Y})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (h *BoardHandler) HandleCaptureStart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.StartCapture(r.Context(), r.PathValue("board_id")); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"recording": true})
}

func (h *BoardHandler) HandleCaptureStop(w http.ResponseWriter, r *http.Request) {
	var in struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	node, err := h.svc.StopCapture(r.Context(), r.PathValue("board_id"), board.Position{X: in.X, Y: in.Y})
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (h *BoardHandler) HandleMoveNode(w http.ResponseWriter, r *http.Request) {
	var in struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := h.svc.MoveNode(r.PathValue("board_id"), r.PathValue("node_id"), in.X, in.Y); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *BoardHandler) HandleEditContent(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := h.svc.EditNodeContent(r.PathValue("board_id"), r.PathValue("node_id"), in.Text); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *BoardHandler) HandleRenameNode(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := h.svc.RenameNode(r.PathValue("board_id"), r.PathValue("node_id"), in.Title); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *BoardHandler) HandleDeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNode(r.Context(), r.PathValue("board_id"), r.PathValue("node_id")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *BoardHandler) HandleMediaURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.MediaURL(r.Context(), r.PathValue("board_id"), r.PathValue("node_id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *BoardHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	var in struct {
		FromID string `json:"fromId"`
		ToID   string `json:"toId"`
		Label  string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	edge, err := h.svc.ConnectNodes(r.PathValue("board_id"), in.FromID, in.ToID, in.Label)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, edge)
}

func (h *BoardHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DisconnectNodes(r.PathValue("board_id"), r.PathValue("edge_id")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *BoardHandler) HandleGroup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		NodeIDs []string `json:"nodeIds"`
		Title   string   `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	group, err := h.svc.GroupNodes(r.PathValue("board_id"), in.NodeIDs, in.Title)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *BoardHandler) HandleUngroup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		NodeIDs []string `json:"nodeIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := h.svc.UngroupNodes(r.PathValue("board_id"), in.NodeIDs); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *BoardHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	matches, err := h.svc.SearchNodes(r.PathValue("board_id"), query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

// HandleAsk runs one assistant turn. A malformed action batch still
// returns the assistant text so the client can show it.
func (h *BoardHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(in.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	result, err := h.svc.Ask(r.Context(), r.PathValue("board_id"), in.Message)
	if err != nil {
		if errors.Is(err, session.ErrMalformedActions) {
			writeJSON(w, http.StatusOK, map[string]any{
				"text":    result.Text,
				"applied": 0,
				"warning": "assistant actions were malformed and discarded",
			})
			return
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func positionFromForm(r *http.Request) board.Position {
	parse := func(key string) float64 {
		v, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue(key)), 64)
		if err != nil {
			return 0
		}
		return v
	}
	return board.Position{X: parse("x"), Y: parse("y")}
}
