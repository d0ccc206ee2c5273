// Package blob stores the binary payloads of media nodes outside the
// board snapshot, keyed by board and node id.
package blob

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrNotFound = errors.New("blob not found")

// Store persists node media.
type Store interface {
	Put(ctx context.Context, boardID, nodeID, mimeType string, content []byte) error
	Get(ctx context.Context, boardID, nodeID string) ([]byte, error)
	GetURL(ctx context.Context, boardID, nodeID string) (string, error)
	List(ctx context.Context, boardID string) ([]string, error)
	Delete(ctx context.Context, boardID, nodeID string) error
}

// MemoryStore is the in-process backend used when no object storage is
// configured.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, boardID, nodeID, _ string, content []byte) error {
	key, err := blobKey(boardID, nodeID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, boardID, nodeID string) ([]byte, error) {
	key, err := blobKey(boardID, nodeID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) GetURL(context.Context, string, string) (string, error) {
	// No URL scheme for in-process blobs; callers fall back to Get.
	return "", nil
}

func (s *MemoryStore) List(_ context.Context, boardID string) ([]string, error) {
	boardID = strings.TrimSpace(boardID)
	if boardID == "" {
		return nil, fmt.Errorf("board_id is required")
	}
	prefix := boardID + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, 16)
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			out = append(out, strings.TrimPrefix(key, prefix))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, boardID, nodeID string) error {
	key, err := blobKey(boardID, nodeID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func blobKey(boardID, nodeID string) (string, error) {
	boardID = strings.TrimSpace(boardID)
	nodeID = strings.TrimSpace(nodeID)
	if boardID == "" {
		return "", fmt.Errorf("board_id is required")
	}
	if nodeID == "" {
		return "", fmt.Errorf("node_id is required")
	}
	return boardID + "/" + nodeID, nil
}
