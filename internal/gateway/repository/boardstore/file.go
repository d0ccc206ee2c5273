package boardstore

import (
	"encoding/json"
	"log"
	"os"
	"sort"

	"ideaboard/internal/safeio"
)

func (s *Store) ensureLoadedFile() {
	s.loadOnce.Do(func() {
		raw, err := os.ReadFile(s.path)
		if err != nil {
			return
		}
		var byID map[string]Snapshot
		if err := json.Unmarshal(raw, &byID); err != nil {
			log.Printf("boardstore: ignoring corrupt state file %s: %v", s.path, err)
			return
		}
		s.mu.Lock()
		s.byID = byID
		s.mu.Unlock()
	})
}

func (s *Store) saveFile() {
	s.mu.RLock()
	raw, err := json.MarshalIndent(s.byID, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		log.Printf("boardstore: encode state: %v", err)
		return
	}
	if err := safeio.WriteFileAtomic(s.path, raw, 0o644); err != nil {
		log.Printf("boardstore: write state: %v", err)
	}
}

func (s *Store) getFile(boardID string) (Snapshot, bool) {
	s.ensureLoadedFile()
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.byID[boardID]
	return snap, ok
}

func (s *Store) putFile(snap Snapshot) {
	s.ensureLoadedFile()
	s.mu.Lock()
	s.byID[snap.BoardID] = snap
	s.mu.Unlock()
	s.saveFile()
}

func (s *Store) deleteFile(boardID string) {
	s.ensureLoadedFile()
	s.mu.Lock()
	delete(s.byID, boardID)
	s.mu.Unlock()
	s.saveFile()
}

func (s *Store) listFile() []string {
	s.ensureLoadedFile()
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
