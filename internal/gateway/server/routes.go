package server

import (
	"net/http"

	"ideaboard/internal/gateway/handler"
	"ideaboard/internal/gateway/middleware"
)

func NewMux(boardHandler *handler.BoardHandler, wsHandler *handler.BoardWSHandler) http.Handler {
	mux := http.NewServeMux()

	// Board state
	mux.HandleFunc("GET /v1/boards/{board_id}", boardHandler.HandleGetBoard)
	mux.HandleFunc("DELETE /v1/boards/{board_id}", boardHandler.HandleDeleteBoard)

	// Ingestion
	mux.HandleFunc("POST /v1/boards/{board_id}/files", boardHandler.HandleDropFiles)
	mux.HandleFunc("POST /v1/boards/{board_id}/text", boardHandler.HandleDropText)
	mux.HandleFunc("POST /v1/boards/{board_id}/capture/start", boardHandler.HandleCaptureStart)
	mux.HandleFunc("POST /v1/boards/{board_id}/capture/stop", boardHandler.HandleCaptureStop)

	// Node operations
	mux.HandleFunc("POST /v1/boards/{board_id}/nodes/{node_id}/move", boardHandler.HandleMoveNode)
	mux.HandleFunc("POST /v1/boards/{board_id}/nodes/{node_id}/content", boardHandler.HandleEditContent)
	mux.HandleFunc("POST /v1/boards/{board_id}/nodes/{node_id}/title", boardHandler.HandleRenameNode)
	mux.HandleFunc("DELETE /v1/boards/{board_id}/nodes/{node_id}", boardHandler.HandleDeleteNode)
	mux.HandleFunc("GET /v1/boards/{board_id}/nodes/{node_id}/media", boardHandler.HandleMediaURL)

	// Relations
	mux.HandleFunc("POST /v1/boards/{board_id}/edges", boardHandler.HandleConnect)
	mux.HandleFunc("DELETE /v1/boards/{board_id}/edges/{edge_id}", boardHandler.HandleDisconnect)
	mux.HandleFunc("POST /v1/boards/{board_id}/groups", boardHandler.HandleGroup)
	mux.HandleFunc("POST /v1/boards/{board_id}/ungroup", boardHandler.HandleUngroup)

	// Search
	mux.HandleFunc("GET /v1/boards/{board_id}/search", boardHandler.HandleSearch)

	// Assistant
	mux.HandleFunc("POST /v1/boards/{board_id}/ask", boardHandler.HandleAsk)

	// Realtime
	mux.HandleFunc("/v1/boards/{board_id}/ws", wsHandler.HandleBoardWS)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return middleware.CORS(mux)
}
