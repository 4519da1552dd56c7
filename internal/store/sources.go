package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"loglite/pkg/apperror"
	"loglite/pkg/types"
)

// SourceStore persists ingestion descriptors.
type SourceStore struct {
	db *sqlx.DB
}

func NewSourceStore(db *sqlx.DB) *SourceStore { return &SourceStore{db: db} }

// Create inserts a new Source. kind=tail requires a non-empty path.
func (s *SourceStore) Create(src types.Source) (types.Source, error) {
	if src.Kind == types.SourceKindTail && src.Path == "" {
		return types.Source{}, apperror.Validation("store", "CreateSource", "path is required for kind=tail")
	}
	if src.Encoding == "" {
		src.Encoding = "utf-8"
	}
	src.CreatedAt = time.Now().UTC()

	res, err := s.db.Exec(`INSERT INTO app_sources
		(app_id, kind, path, recursive, encoding, include_glob, exclude_glob, enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.AppID, src.Kind, src.Path, src.Recursive, src.Encoding,
		src.IncludeGlob, src.ExcludeGlob, src.Enabled, src.CreatedAt)
	if err != nil {
		return types.Source{}, apperror.Wrap(err, "store", "CreateSource")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.Source{}, apperror.Wrap(err, "store", "CreateSource")
	}
	src.ID = id
	return src, nil
}

// Get fetches a source by id.
func (s *SourceStore) Get(id int64) (types.Source, error) {
	var src types.Source
	err := s.db.Get(&src, `SELECT id, app_id, kind, path, recursive, encoding,
		include_glob, exclude_glob, enabled, created_at FROM app_sources WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Source{}, apperror.NotFound("store", "GetSource", "source not found")
	}
	if err != nil {
		return types.Source{}, apperror.Wrap(err, "store", "GetSource")
	}
	return src, nil
}

// ListByApp returns every source registered for an app; if appID is
// empty, every source across all tenants.
func (s *SourceStore) ListByApp(appID string) ([]types.Source, error) {
	q := `SELECT id, app_id, kind, path, recursive, encoding,
		include_glob, exclude_glob, enabled, created_at FROM app_sources`
	args := []interface{}{}
	if appID != "" {
		q += ` WHERE app_id = ?`
		args = append(args, appID)
	}
	q += ` ORDER BY id`

	var sources []types.Source
	if err := s.db.Select(&sources, q, args...); err != nil {
		return nil, apperror.Wrap(err, "store", "ListSources")
	}
	return sources, nil
}

// ListEnabledTail returns every enabled tail source across all tenants,
// the working set the Tailer scans each tick.
func (s *SourceStore) ListEnabledTail() ([]types.Source, error) {
	var sources []types.Source
	err := s.db.Select(&sources, `SELECT id, app_id, kind, path, recursive, encoding,
		include_glob, exclude_glob, enabled, created_at FROM app_sources
		WHERE kind = ? AND enabled = 1`, types.SourceKindTail)
	if err != nil {
		return nil, apperror.Wrap(err, "store", "ListEnabledTail")
	}
	return sources, nil
}

// Update applies a partial update: only non-nil fields are changed.
type SourceUpdate struct {
	Path        *string `json:"path,omitempty"`
	Recursive   *bool   `json:"recursive,omitempty"`
	Encoding    *string `json:"encoding,omitempty"`
	IncludeGlob *string `json:"include_glob,omitempty"`
	ExcludeGlob *string `json:"exclude_glob,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

func (s *SourceStore) Update(id int64, upd SourceUpdate) (types.Source, error) {
	src, err := s.Get(id)
	if err != nil {
		return types.Source{}, err
	}
	if upd.Path != nil {
		src.Path = *upd.Path
	}
	if upd.Recursive != nil {
		src.Recursive = *upd.Recursive
	}
	if upd.Encoding != nil {
		src.Encoding = *upd.Encoding
	}
	if upd.IncludeGlob != nil {
		src.IncludeGlob = *upd.IncludeGlob
	}
	if upd.ExcludeGlob != nil {
		src.ExcludeGlob = *upd.ExcludeGlob
	}
	if upd.Enabled != nil {
		src.Enabled = *upd.Enabled
	}

	_, err = s.db.Exec(`UPDATE app_sources SET path=?, recursive=?, encoding=?,
		include_glob=?, exclude_glob=?, enabled=? WHERE id=?`,
		src.Path, src.Recursive, src.Encoding, src.IncludeGlob, src.ExcludeGlob, src.Enabled, id)
	if err != nil {
		return types.Source{}, apperror.Wrap(err, "store", "UpdateSource")
	}
	return src, nil
}

// Delete removes a source and its tail offsets.
func (s *SourceStore) Delete(id int64) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return apperror.Wrap(err, "store", "DeleteSource")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tail_offsets WHERE source_id = ?`, id); err != nil {
		return apperror.Wrap(err, "store", "DeleteSource")
	}
	res, err := tx.Exec(`DELETE FROM app_sources WHERE id = ?`, id)
	if err != nil {
		return apperror.Wrap(err, "store", "DeleteSource")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperror.NotFound("store", "DeleteSource", "source not found")
	}
	return tx.Commit()
}
