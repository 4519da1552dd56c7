package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"loglite/pkg/apperror"
	"loglite/pkg/types"
)

// OffsetStore persists the Tailer's per-file byte offsets. The Tailer is
// its sole writer; admin/read paths may read.
type OffsetStore struct {
	db *sqlx.DB
}

func NewOffsetStore(db *sqlx.DB) *OffsetStore { return &OffsetStore{db: db} }

// Get returns the committed offset for (sourceID, filePath), defaulting
// to 0 when no row exists yet.
func (s *OffsetStore) Get(sourceID int64, filePath string) (int64, error) {
	var offset int64
	err := s.db.Get(&offset, `SELECT offset_bytes FROM tail_offsets WHERE source_id = ? AND file_path = ?`,
		sourceID, filePath)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, apperror.Wrap(err, "store", "GetOffset")
	}
	return offset, nil
}

// Upsert commits a new offset for (sourceID, filePath).
func (s *OffsetStore) Upsert(sourceID int64, filePath string, offset int64) error {
	_, err := s.db.Exec(`INSERT INTO tail_offsets (source_id, file_path, offset_bytes, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_id, file_path) DO UPDATE SET offset_bytes=excluded.offset_bytes, updated_at=excluded.updated_at`,
		sourceID, filePath, offset, time.Now().UTC())
	if err != nil {
		return apperror.Wrap(err, "store", "UpsertOffset")
	}
	return nil
}

// ListBySource returns every offset row recorded for a source, for
// admin/inspection reads.
func (s *OffsetStore) ListBySource(sourceID int64) ([]types.TailOffset, error) {
	var offsets []types.TailOffset
	err := s.db.Select(&offsets, `SELECT source_id, file_path, offset_bytes, updated_at
		FROM tail_offsets WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, apperror.Wrap(err, "store", "ListOffsets")
	}
	return offsets, nil
}
