package boardstore

import (
	"database/sql"
	"encoding/json"
	"log"
)

func (s *Store) ensureSchema() error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS board_snapshots (
    board_id TEXT PRIMARY KEY,
    payload JSONB NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
`)
	})
	return s.schemaErr
}

func (s *Store) getDB(boardID string) (Snapshot, bool) {
	if snap, ok := s.readCache.Get(boardID); ok {
		return snap, true
	}
	if err := s.ensureSchema(); err != nil {
		log.Printf("boardstore: schema: %v", err)
		return Snapshot{}, false
	}
	var raw []byte
	err := s.db.QueryRow(`SELECT payload FROM board_snapshots WHERE board_id=$1`, boardID).Scan(&raw)
	if err == sql.ErrNoRows {
		return Snapshot{}, false
	}
	if err != nil {
		log.Printf("boardstore: get %s: %v", boardID, err)
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		log.Printf("boardstore: decode %s: %v", boardID, err)
		return Snapshot{}, false
	}
	s.readCache.Add(boardID, snap)
	return snap, true
}

func (s *Store) putDB(snap Snapshot) {
	if err := s.ensureSchema(); err != nil {
		log.Printf("boardstore: schema: %v", err)
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		log.Printf("boardstore: encode %s: %v", snap.BoardID, err)
		return
	}
	_, err = s.db.Exec(`
INSERT INTO board_snapshots (board_id, payload, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (board_id)
DO UPDATE SET payload=EXCLUDED.payload, updated_at=EXCLUDED.updated_at
`, snap.BoardID, raw, snap.UpdatedAt)
	if err != nil {
		log.Printf("boardstore: put %s: %v", snap.BoardID, err)
		return
	}
	s.readCache.Add(snap.BoardID, snap)
}

func (s *Store) deleteDB(boardID string) {
	if err := s.ensureSchema(); err != nil {
		log.Printf("boardstore: schema: %v", err)
		return
	}
	if _, err := s.db.Exec(`DELETE FROM board_snapshots WHERE board_id=$1`, boardID); err != nil {
		log.Printf("boardstore: delete %s: %v", boardID, err)
	}
	s.readCache.Remove(boardID)
}

func (s *Store) listDB() []string {
	if err := s.ensureSchema(); err != nil {
		log.Printf("boardstore: schema: %v", err)
		return nil
	}
	rows, err := s.db.Query(`SELECT board_id FROM board_snapshots ORDER BY board_id`)
	if err != nil {
		log.Printf("boardstore: list: %v", err)
		return nil
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		log.Printf("boardstore: list: %v", err)
	}
	return ids
}
