package app

import (
	"fmt"
	"log"
	"strings"

	"ideaboard/internal/gateway/config"
	"ideaboard/internal/gateway/repository/blob"
	"ideaboard/internal/gateway/repository/boardstore"
)

func initStores(cfg *config.Config) (blob.Store, *boardstore.Store, error) {
	blobStore, err := chooseBlobStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return blobStore, chooseSnapshotStore(cfg), nil
}

func chooseBlobStore(cfg *config.Config) (blob.Store, error) {
	if cfg.Blob.CanUseS3() {
		s3Store, err := blob.NewS3Store(blob.S3Config{
			Endpoint:  cfg.Blob.Endpoint,
			Region:    cfg.Blob.Region,
			AccessKey: cfg.Blob.AccessKey,
			SecretKey: cfg.Blob.SecretKey,
			Bucket:    cfg.Blob.Bucket,
			UseSSL:    cfg.Blob.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize media blob store: %w", err)
		}
		log.Printf("blob store: s3 bucket=%s endpoint=%s", cfg.Blob.Bucket, cfg.Blob.Endpoint)
		return s3Store, nil
	}
	if cfg.Blob.Enabled {
		log.Printf("blob store: using in-memory fallback (s3 config incomplete)")
	}
	return blob.NewMemoryStore(), nil
}

func chooseSnapshotStore(cfg *config.Config) *boardstore.Store {
	if dsn := strings.TrimSpace(cfg.Board.DatabaseURL); dsn != "" {
		store, err := boardstore.NewPostgres(dsn)
		if err == nil {
			log.Printf("board store: postgres")
			return store
		}
		log.Printf("board store: postgres unavailable (%v), falling back to file", err)
	}
	log.Printf("board store: file %s", cfg.Board.SnapshotPath)
	return boardstore.New(cfg.Board.SnapshotPath)
}
