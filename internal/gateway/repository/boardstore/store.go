// Package boardstore persists board snapshots. A JSON file backend
// serves local development; a postgres backend (pgx via database/sql)
// is selected when BOARD_STORE_PG_DSN is set. Binary node payloads are
// not part of the snapshot; they live in the blob store.
package boardstore

import (
	"database/sql"
	"os"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"ideaboard/internal/board"
)

// Snapshot is one board's persisted state.
type Snapshot struct {
	BoardID   string               `json:"boardId"`
	Nodes     []*board.ContentNode `json:"nodes"`
	Edges     []board.Edge         `json:"edges,omitempty"`
	Groups    []board.Group        `json:"groups,omitempty"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

type Store struct {
	path string
	db   *sql.DB

	loadOnce sync.Once
	mu       sync.RWMutex
	byID     map[string]Snapshot

	schemaOnce sync.Once
	schemaErr  error

	readCache *lru.Cache[string, Snapshot]
}

// New returns a file-backed store rooted at path.
func New(path string) *Store {
	return &Store{
		path: path,
		byID: make(map[string]Snapshot),
	}
}

// NewPostgres returns a postgres-backed store.
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, Snapshot](1024)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{
		db:        db,
		readCache: cache,
	}, nil
}

// NewFromEnv picks the postgres backend when BOARD_STORE_PG_DSN is set
// and reachable, else falls back to the file backend.
func NewFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("BOARD_STORE_PG_DSN"))
	if dsn == "" {
		return New(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return New(path)
	}
	return s
}

func (s *Store) EnsureLoaded() {
	if s == nil {
		return
	}
	if s.db != nil {
		_ = s.ensureSchema()
		return
	}
	s.ensureLoadedFile()
}

// Get returns the snapshot for one board.
func (s *Store) Get(boardID string) (Snapshot, bool) {
	boardID = strings.TrimSpace(boardID)
	if s == nil || boardID == "" {
		return Snapshot{}, false
	}
	if s.db != nil {
		return s.getDB(boardID)
	}
	return s.getFile(boardID)
}

// Put stores a snapshot, replacing any prior state for the board.
func (s *Store) Put(snap Snapshot) {
	if s == nil || strings.TrimSpace(snap.BoardID) == "" {
		return
	}
	snap.UpdatedAt = time.Now().UTC()
	if s.db != nil {
		s.putDB(snap)
		return
	}
	s.putFile(snap)
}

// Delete drops a board's snapshot.
func (s *Store) Delete(boardID string) {
	boardID = strings.TrimSpace(boardID)
	if s == nil || boardID == "" {
		return
	}
	if s.db != nil {
		s.deleteDB(boardID)
		return
	}
	s.deleteFile(boardID)
}

// List returns all persisted board ids.
func (s *Store) List() []string {
	if s == nil {
		return nil
	}
	if s.db != nil {
		return s.listDB()
	}
	return s.listFile()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
