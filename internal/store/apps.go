package store

import (
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"loglite/pkg/apperror"
	"loglite/pkg/types"
)

// AppStore persists tenant records.
type AppStore struct {
	db *sqlx.DB
}

func NewAppStore(db *sqlx.DB) *AppStore { return &AppStore{db: db} }

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the stable app_id from a human name: a lower-kebab
// slug of the name plus a short hex hash of the original name, so two
// names with the same slug (e.g. "My App" and "my_app") get distinct
// app_ids; only the exact same name maps to the same app_id.
func Slugify(name string) string {
	slug := slugNonAlnum.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "app"
	}
	sum := sha1.Sum([]byte(name))
	return fmt.Sprintf("%s-%s", slug, hex.EncodeToString(sum[:])[:8])
}

// Create inserts a new App, deriving its app_id from name. Returns a
// Conflict AppError if the slug+hash already exists.
func (s *AppStore) Create(name string) (types.App, error) {
	app := types.App{
		AppID:     Slugify(name),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(`INSERT INTO apps (app_id, name, created_at) VALUES (?, ?, ?)`,
		app.AppID, app.Name, app.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return types.App{}, apperror.Conflict("store", "CreateApp", "app already exists: "+app.AppID)
		}
		return types.App{}, apperror.Wrap(err, "store", "CreateApp")
	}
	return app, nil
}

// EnsureExists inserts a tenant row for appID if none exists yet.
// Tenants are created on first admission; the id stands in for the name
// until a caller registers one.
func (s *AppStore) EnsureExists(appID string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO apps (app_id, name, created_at) VALUES (?, ?, ?)`,
		appID, appID, time.Now().UTC())
	if err != nil {
		return apperror.Wrap(err, "store", "EnsureApp")
	}
	return nil
}

// GetByID fetches an app by its app_id.
func (s *AppStore) GetByID(appID string) (types.App, error) {
	var app types.App
	err := s.db.Get(&app, `SELECT app_id, name, created_at FROM apps WHERE app_id = ?`, appID)
	if errors.Is(err, sql.ErrNoRows) {
		return types.App{}, apperror.NotFound("store", "GetApp", "app not found: "+appID)
	}
	if err != nil {
		return types.App{}, apperror.Wrap(err, "store", "GetApp")
	}
	return app, nil
}

// List returns every registered app.
func (s *AppStore) List() ([]types.App, error) {
	var apps []types.App
	if err := s.db.Select(&apps, `SELECT app_id, name, created_at FROM apps ORDER BY created_at`); err != nil {
		return nil, apperror.Wrap(err, "store", "ListApps")
	}
	return apps, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint")
}
