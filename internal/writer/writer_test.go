package writer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"loglite/internal/idgen"
	"loglite/internal/search"
	"loglite/internal/store"
	"loglite/pkg/types"
)

func newTestWriter(t *testing.T) (*Writer, *store.AppStore, *store.EventStore, *search.Index) {
	t.Helper()

	dir := t.TempDir()
	db, err := store.Open(dir + "/events.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	apps := store.NewAppStore(db)
	events := store.NewEventStore(db)

	idx, err := search.Open(dir + "/idx.bleve")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	return New(idgen.New(1), apps, events, idx), apps, events, idx
}

func TestAdmitWritesRelationalThenIndex(t *testing.T) {
	w, _, events, idx := newTestWriter(t)

	batch := []types.Event{
		{AppID: "app1", Ts: time.Now(), Host: "h1", Source: "app.log", Message: "hello world"},
		{AppID: "app1", Ts: time.Now(), Host: "h1", Source: "app.log", Message: "second line"},
	}

	accepted, err := w.Admit("app1", batch)
	require.NoError(t, err)
	require.Equal(t, 2, accepted)
	require.NoError(t, w.Commit())

	total, hits, err := idx.Search(search.Params{AppID: "app1", Query: "hello"})
	require.NoError(t, err)
	require.Equal(t, 1, total)

	ev, err := events.GetByID("app1", hits[0].EventID)
	require.NoError(t, err)
	require.Equal(t, "hello world", ev.Message)
}

func TestAdmitAssignsStrictlyIncreasingIDs(t *testing.T) {
	w, _, events, _ := newTestWriter(t)

	base := time.Now().Add(-time.Minute)
	batch := make([]types.Event, 5)
	for i := range batch {
		batch[i] = types.Event{AppID: "app1", Ts: base.Add(time.Duration(i) * time.Second), Host: "h1", Source: "app.log", Message: "x"}
	}

	accepted, err := w.Admit("app1", batch)
	require.NoError(t, err)
	require.Equal(t, 5, accepted)

	// SelectExpired orders by ts ascending, which here is input order.
	ids, err := events.SelectExpired(time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, ids, 5)
	for i := 1; i < len(ids); i++ {
		require.Greater(t, ids[i], ids[i-1], "ids must be assigned in input order")
	}
}

func TestAdmitDefaultsHostWhenAbsent(t *testing.T) {
	w, _, events, _ := newTestWriter(t)

	batch := []types.Event{
		{AppID: "app1", Ts: time.Now(), Source: "app.log", Message: "no host supplied"},
	}

	accepted, err := w.Admit("app1", batch)
	require.NoError(t, err)
	require.Equal(t, 1, accepted)

	ids, err := events.SelectExpired(time.Now().Add(time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	ev, err := events.GetByID("app1", ids[0])
	require.NoError(t, err)
	require.NotEmpty(t, ev.Host, "host must default to the machine hostname when absent from input")
}

func TestAdmitCreatesTenantOnFirstAdmission(t *testing.T) {
	w, apps, _, _ := newTestWriter(t)

	_, err := apps.GetByID("fresh-tenant")
	require.Error(t, err)

	accepted, err := w.Admit("fresh-tenant", []types.Event{
		{Ts: time.Now(), Host: "h1", Source: "app.log", Message: "first ever event"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, accepted)

	app, err := apps.GetByID("fresh-tenant")
	require.NoError(t, err)
	require.Equal(t, "fresh-tenant", app.AppID)
}

func TestAdmitStampsTenantOntoEveryEvent(t *testing.T) {
	w, _, events, _ := newTestWriter(t)

	batch := []types.Event{
		{AppID: "wrong-tenant", Ts: time.Now(), Host: "h1", Source: "app.log", Message: "tenant stamped by Admit"},
	}

	accepted, err := w.Admit("app1", batch)
	require.NoError(t, err)
	require.Equal(t, 1, accepted)

	ids, err := events.SelectExpired(time.Now().Add(time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	_, err = events.GetByID("wrong-tenant", ids[0])
	require.Error(t, err, "event must not be visible under the caller-supplied tenant")

	ev, err := events.GetByID("app1", ids[0])
	require.NoError(t, err)
	require.Equal(t, "app1", ev.AppID)
}
