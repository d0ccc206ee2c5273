package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/require"

	"ideaboard/internal/board"
	"ideaboard/internal/gateway/service/whiteboard"
	"ideaboard/internal/llmclient"
)

func newTestHandler() *BoardHandler {
	return NewBoardHandler(whiteboard.New(llmclient.Disabled()))
}

func addImagePart(t *testing.T, w *multipart.Writer, field, filename string, payload []byte) {
	t.Helper()
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
}

func TestDropFilesBatchOrderIsDeterministic(t *testing.T) {
	h := newTestHandler()

	// Write the parts in reverse field order; the layout must still
	// follow field names, not body or map order, on every request.
	for i := 0; i < 8; i++ {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		addImagePart(t, w, "file_1", "second.png", []byte{2})
		addImagePart(t, w, "file_0", "first.png", []byte{1})
		require.NoError(t, w.WriteField("x", "0"))
		require.NoError(t, w.WriteField("y", "0"))
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/v1/boards/b1/files", &body)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.SetPathValue("board_id", fmt.Sprintf("b%d", i))
		rec := httptest.NewRecorder()
		h.HandleDropFiles(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var out struct {
			Files []struct {
				Name string             `json:"name"`
				Node *board.ContentNode `json:"node"`
			} `json:"files"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
		require.Len(t, out.Files, 2)
		require.Equal(t, "first.png", out.Files[0].Name)
		require.Equal(t, "second.png", out.Files[1].Name)
		require.Less(t, out.Files[0].Node.Position.Y, out.Files[1].Node.Position.Y,
			"batch slots must follow field order")
	}
}

func TestDropFilesRejectsEmptyBatch(t *testing.T) {
	h := newTestHandler()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("x", "10"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/boards/b1/files", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.SetPathValue("board_id", "b1")
	rec := httptest.NewRecorder()
	h.HandleDropFiles(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
