// Package handler exposes the whiteboard service over plain JSON HTTP
// plus one websocket endpoint for realtime board events.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"ideaboard/internal/board"
	"ideaboard/internal/boardctx"
	"ideaboard/internal/llmclient"
	"ideaboard/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, board.ErrNodeNotFound),
		errors.Is(err, board.ErrEdgeNotFound):
		return http.StatusNotFound
	case errors.Is(err, boardctx.ErrContextTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, session.ErrMalformedActions):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, session.ErrAssistantUnavailable),
		errors.Is(err, llmclient.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
