// Package writer implements the Event Writer: the single admission path
// through which every parsed event reaches both the relational store
// and the full-text index.
package writer

import (
	"os"

	"loglite/internal/idgen"
	"loglite/internal/metrics"
	"loglite/internal/search"
	"loglite/internal/store"
	"loglite/pkg/apperror"
	"loglite/pkg/types"
)

// Writer stamps ids and admits events into both stores in a fixed order.
type Writer struct {
	ids      *idgen.Allocator
	apps     *store.AppStore
	events   *store.EventStore
	index    *search.Index
	hostname string
}

func New(ids *idgen.Allocator, apps *store.AppStore, events *store.EventStore, index *search.Index) *Writer {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &Writer{ids: ids, apps: apps, events: events, index: index, hostname: host}
}

// Admit assigns an id to each event (overwriting any caller-supplied id)
// and writes it to the relational store, then the index, in that fixed
// order. It stops at the first write failure of either kind and reports
// how many events made it into both stores.
//
// The index write for an admitted batch is left uncommitted; callers
// that need search-visibility guarantees within the same request should
// call Commit once the batch is done.
func (w *Writer) Admit(appID string, events []types.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	// Tenants are created on first admission.
	if err := w.apps.EnsureExists(appID); err != nil {
		return 0, apperror.Wrap(err, "writer", "Admit")
	}

	accepted := 0
	for i := range events {
		ev := events[i]
		ev.AppID = appID
		ev.ID = w.ids.Next()
		if ev.Host == "" {
			ev.Host = w.hostname
		}
		metrics.EventsIngestedTotal.WithLabelValues(appID, ev.Source).Inc()

		if err := w.events.Insert(ev); err != nil {
			metrics.EventsRejectedTotal.WithLabelValues(appID, ev.Source).Inc()
			return accepted, apperror.Wrap(err, "writer", "Admit")
		}

		doc := search.Doc{
			AppID:      ev.AppID,
			EventID:    ev.ID,
			Message:    ev.Message,
			Host:       ev.Host,
			Source:     ev.Source,
			Sourcetype: ev.Sourcetype,
			TsEpochMs:  ev.Ts.UnixMilli(),
			Severity:   ev.Severity,
		}
		if err := w.index.Add(doc); err != nil {
			metrics.EventsRejectedTotal.WithLabelValues(appID, ev.Source).Inc()
			return accepted, apperror.Wrap(err, "writer", "Admit")
		}

		metrics.EventsAcceptedTotal.WithLabelValues(appID, ev.Source).Inc()
		accepted++
	}
	return accepted, nil
}

// Commit flushes the index writes made by Admit, making them visible to
// search.
func (w *Writer) Commit() error {
	return w.index.Commit()
}
