// Package types holds the domain records shared across loglite's storage,
// ingestion, and search layers.
package types

import (
	"strings"
	"time"
)

// App is a tenant namespace. AppID is derived once from Name and never
// changes; Name itself carries no uniqueness constraint.
type App struct {
	AppID     string    `json:"app_id" db:"app_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SourceKind tags the ingestion descriptor variant. "tail" is the only
// kind implemented today; the field exists so a future kind (e.g. "http")
// doesn't require a schema migration.
type SourceKind string

const (
	SourceKindTail SourceKind = "tail"
)

// Source describes where the Tailer should look for log files on behalf
// of a tenant.
type Source struct {
	ID          int64      `json:"id" db:"id"`
	AppID       string     `json:"app_id" db:"app_id"`
	Kind        SourceKind `json:"kind" db:"kind"`
	Path        string     `json:"path" db:"path"`
	Recursive   bool       `json:"recursive" db:"recursive"`
	Encoding    string     `json:"encoding" db:"encoding"`
	IncludeGlob string     `json:"include_glob,omitempty" db:"include_glob"`
	ExcludeGlob string     `json:"exclude_glob,omitempty" db:"exclude_glob"`
	Enabled     bool       `json:"enabled" db:"enabled"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// TailOffset is the last byte position committed to storage for a given
// (source, file) pair. It is the sole owner of Tailer resumption state.
type TailOffset struct {
	SourceID    int64     `json:"source_id" db:"source_id"`
	FilePath    string    `json:"file_path" db:"file_path"`
	OffsetBytes int64     `json:"offset_bytes" db:"offset_bytes"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Event is the canonical log record, owned jointly by the relational
// store and the full-text index once admitted; it is never mutated after
// creation and is removed only by retention.
type Event struct {
	ID         uint64                 `json:"id" db:"id"`
	AppID      string                 `json:"app_id" db:"app_id"`
	Ts         time.Time              `json:"ts" db:"ts"`
	Host       string                 `json:"host" db:"host"`
	Source     string                 `json:"source" db:"source"`
	Sourcetype string                 `json:"sourcetype,omitempty" db:"sourcetype"`
	Severity   *int                   `json:"severity,omitempty" db:"severity"`
	Message    string                 `json:"message" db:"message"`
	Fields     map[string]interface{} `json:"fields,omitempty" db:"-"`
}

// IngestEvent is the shape accepted on the JSON ingest surface, before an
// id is assigned and defaults are filled in.
type IngestEvent struct {
	Message  string                 `json:"message"`
	Host     string                 `json:"host,omitempty"`
	Source   string                 `json:"source,omitempty"`
	Severity *int                   `json:"severity,omitempty"`
	Ts       *time.Time             `json:"ts,omitempty"`
	Fields   map[string]interface{} `json:"fields,omitempty"`
}

// Syslog severities assigned to recognized level tokens: FATAL/ERROR=3,
// WARN=4, INFO=6, DEBUG/TRACE=7.
const (
	SeverityError = 3
	SeverityWarn  = 4
	SeverityInfo  = 6
	SeverityDebug = 7
)

// SeverityForLevel maps a case-insensitive level token to a syslog
// severity. The second return is false when the level is unrecognized.
func SeverityForLevel(level string) (int, bool) {
	switch strings.ToUpper(level) {
	case "FATAL", "ERROR":
		return SeverityError, true
	case "WARN", "WARNING":
		return SeverityWarn, true
	case "INFO":
		return SeverityInfo, true
	case "DEBUG", "TRACE":
		return SeverityDebug, true
	default:
		return 0, false
	}
}
