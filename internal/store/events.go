package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"loglite/pkg/apperror"
	"loglite/pkg/types"
)

// EventStore is the relational half of the canonical event store. The
// index (internal/search) holds the other half; the two are kept
// consistent by internal/writer and internal/retention.
type EventStore struct {
	db *sqlx.DB
}

func NewEventStore(db *sqlx.DB) *EventStore { return &EventStore{db: db} }

type eventRow struct {
	ID         uint64        `db:"id"`
	AppID      string        `db:"app_id"`
	Ts         time.Time     `db:"ts"`
	Host       string        `db:"host"`
	Source     string        `db:"source"`
	Sourcetype string        `db:"sourcetype"`
	Severity   sql.NullInt64 `db:"severity"`
	Message    string        `db:"message"`
	Fields     string        `db:"fields"`
}

// Insert writes one event row. ts and message are never NULL (empty
// message is permitted, nil is not representable by the Event struct
// itself).
func (s *EventStore) Insert(ev types.Event) error {
	fieldsJSON, err := marshalFields(ev.Fields)
	if err != nil {
		return apperror.Wrap(err, "store", "InsertEvent")
	}

	var severity sql.NullInt64
	if ev.Severity != nil {
		severity = sql.NullInt64{Int64: int64(*ev.Severity), Valid: true}
	}

	_, err = s.db.Exec(`INSERT INTO events (id, app_id, ts, host, source, sourcetype, severity, message, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.AppID, ev.Ts.UTC(), ev.Host, ev.Source, ev.Sourcetype, severity, ev.Message, fieldsJSON)
	if err != nil {
		return apperror.Wrap(err, "store", "InsertEvent")
	}
	return nil
}

// GetByID fetches a single event, scoped to appID so cross-tenant ids
// never leak.
func (s *EventStore) GetByID(appID string, id uint64) (types.Event, error) {
	var row eventRow
	err := s.db.Get(&row, `SELECT id, app_id, ts, host, source, sourcetype, severity, message, fields
		FROM events WHERE app_id = ? AND id = ?`, appID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Event{}, apperror.NotFound("store", "GetEvent", "event not found")
	}
	if err != nil {
		return types.Event{}, apperror.Wrap(err, "store", "GetEvent")
	}
	return row.toEvent()
}

// HydrateByIDs loads the full rows for a set of ids, used by the search
// facade to join index hits back to canonical events.
func (s *EventStore) HydrateByIDs(ids []uint64) (map[uint64]types.Event, error) {
	if len(ids) == 0 {
		return map[uint64]types.Event{}, nil
	}

	query, args, err := sqlx.In(`SELECT id, app_id, ts, host, source, sourcetype, severity, message, fields
		FROM events WHERE id IN (?)`, ids)
	if err != nil {
		return nil, apperror.Wrap(err, "store", "HydrateEvents")
	}
	query = s.db.Rebind(query)

	var rows []eventRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, "store", "HydrateEvents")
	}

	out := make(map[uint64]types.Event, len(rows))
	for _, row := range rows {
		ev, err := row.toEvent()
		if err != nil {
			return nil, err
		}
		out[ev.ID] = ev
	}
	return out, nil
}

// SelectExpired returns up to limit event ids with ts < cutoff, ordered
// by ts ascending.
func (s *EventStore) SelectExpired(cutoff time.Time, limit int) ([]uint64, error) {
	var ids []uint64
	err := s.db.Select(&ids, `SELECT id FROM events WHERE ts < ? ORDER BY ts ASC LIMIT ?`, cutoff.UTC(), limit)
	if err != nil {
		return nil, apperror.Wrap(err, "store", "SelectExpired")
	}
	return ids, nil
}

// DeleteByIDs removes the given event ids from the relational store.
func (s *EventStore) DeleteByIDs(ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM events WHERE id IN (?)`, ids)
	if err != nil {
		return apperror.Wrap(err, "store", "DeleteEvents")
	}
	query = s.db.Rebind(query)
	if _, err := s.db.Exec(query, args...); err != nil {
		return apperror.Wrap(err, "store", "DeleteEvents")
	}
	return nil
}

// SavePendingDeletes persists the id set a retention cycle is about to
// delete from the relational store, before it has touched the index.
// If the process crashes mid-cycle, the next retention tick reloads this
// set and retries the index delete for exactly those ids.
func (s *EventStore) SavePendingDeletes(ids []uint64) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return apperror.Wrap(err, "store", "SavePendingDeletes")
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO pending_retention_deletes (event_id) VALUES (?)`, id); err != nil {
			return apperror.Wrap(err, "store", "SavePendingDeletes")
		}
	}
	return tx.Commit()
}

// LoadPendingDeletes returns ids recorded by a prior cycle's
// SavePendingDeletes that have not yet been cleared.
func (s *EventStore) LoadPendingDeletes() ([]uint64, error) {
	var ids []uint64
	if err := s.db.Select(&ids, `SELECT event_id FROM pending_retention_deletes`); err != nil {
		return nil, apperror.Wrap(err, "store", "LoadPendingDeletes")
	}
	return ids, nil
}

// ClearPendingDeletes removes the given ids from the pending-delete
// ledger once the index delete for them has succeeded.
func (s *EventStore) ClearPendingDeletes(ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM pending_retention_deletes WHERE event_id IN (?)`, ids)
	if err != nil {
		return apperror.Wrap(err, "store", "ClearPendingDeletes")
	}
	query = s.db.Rebind(query)
	if _, err := s.db.Exec(query, args...); err != nil {
		return apperror.Wrap(err, "store", "ClearPendingDeletes")
	}
	return nil
}

func (r eventRow) toEvent() (types.Event, error) {
	ev := types.Event{
		ID:         r.ID,
		AppID:      r.AppID,
		Ts:         r.Ts.UTC(),
		Host:       r.Host,
		Source:     r.Source,
		Sourcetype: r.Sourcetype,
		Message:    r.Message,
	}
	if r.Severity.Valid {
		sev := int(r.Severity.Int64)
		ev.Severity = &sev
	}
	fields, err := unmarshalFields(r.Fields)
	if err != nil {
		return types.Event{}, apperror.Wrap(err, "store", "decodeFields")
	}
	ev.Fields = fields
	return ev, nil
}

func marshalFields(fields map[string]interface{}) (string, error) {
	if len(fields) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalFields(raw string) (map[string]interface{}, error) {
	if strings.TrimSpace(raw) == "" || raw == "{}" {
		return nil, nil
	}
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
