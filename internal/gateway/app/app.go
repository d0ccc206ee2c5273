package app

import (
	"context"
	"fmt"
	"log"

	"ideaboard/internal/boardctx"
	"ideaboard/internal/gateway/config"
	"ideaboard/internal/gateway/handler"
	"ideaboard/internal/gateway/repository/boardstore"
	"ideaboard/internal/gateway/server"
	"ideaboard/internal/gateway/service/whiteboard"
	"ideaboard/internal/llmclient"
	"ideaboard/internal/session"
)

type App struct {
	server    *server.Server
	snapshots *boardstore.Store
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Dependencies
	collab := newCollaborator(ctx, cfg)
	blobStore, snapshotStore, err := initStores(cfg)
	if err != nil {
		return nil, err
	}
	// Load the snapshot index (or run migrations on the postgres
	// backend) before the first request touches a board.
	snapshotStore.EnsureLoaded()

	svc := whiteboard.New(collab,
		whiteboard.WithSnapshots(snapshotStore),
		whiteboard.WithBlobs(blobStore),
		whiteboard.WithContextOptions(boardctx.Options{MaxBytes: cfg.Context.MaxBytes}),
	)

	boardHandler := handler.NewBoardHandler(svc)
	wsHandler := handler.NewBoardWSHandler(svc)

	// Routing & Server
	mux := server.NewMux(boardHandler, wsHandler)
	srv := server.New(cfg.Port, mux)

	return &App{
		server:    srv,
		snapshots: snapshotStore,
	}, nil
}

func newCollaborator(ctx context.Context, cfg *config.Config) session.Collaborator {
	if cfg.Gemini.APIKey == "" {
		log.Printf("assistant: disabled (GEMINI_API_KEY not set)")
		return llmclient.Disabled()
	}
	collab, err := llmclient.NewGeminiCollaborator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		log.Printf("assistant: disabled (%v)", err)
		return llmclient.Disabled()
	}
	log.Printf("assistant: %s", collab.Name())
	return collab
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if a.snapshots != nil {
		_ = a.snapshots.Close()
	}
	return err
}
