package retention

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"loglite/internal/search"
	"loglite/internal/store"
	"loglite/pkg/types"
)

func newTestCollector(t *testing.T, retention time.Duration) (*Collector, *store.EventStore, *search.Index) {
	t.Helper()
	dir := t.TempDir()

	db, err := store.Open(dir + "/events.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	events := store.NewEventStore(db)

	idx, err := search.Open(dir + "/idx.bleve")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	return New(events, idx, logrus.New(), time.Hour, retention, 0), events, idx
}

func insertExpired(t *testing.T, events *store.EventStore, idx *search.Index, id uint64, age time.Duration) {
	t.Helper()
	ts := time.Now().UTC().Add(-age)
	ev := types.Event{ID: id, AppID: "app1", Ts: ts, Host: "h1", Source: "s1", Message: "old event"}
	require.NoError(t, events.Insert(ev))
	require.NoError(t, idx.Add(search.Doc{AppID: "app1", EventID: id, Message: "old event", TsEpochMs: ts.UnixMilli()}))
	require.NoError(t, idx.Commit())
}

func TestCycleExpiresOldEventsFromBothStores(t *testing.T) {
	c, events, idx := newTestCollector(t, 7*24*time.Hour)

	insertExpired(t, events, idx, 1, 8*24*time.Hour)
	insertExpired(t, events, idx, 2, 1*time.Hour)

	c.Cycle()

	_, err := events.GetByID("app1", 1)
	require.Error(t, err, "expired event must be gone from the relational store")

	_, err = events.GetByID("app1", 2)
	require.NoError(t, err, "recent event must survive")

	total, _, err := idx.Search(search.Params{AppID: "app1", Query: "old"})
	require.NoError(t, err)
	require.Equal(t, 1, total, "only the surviving event should remain in the index")
}

func TestRetryPendingDeletesCleansOrphanedIndexDoc(t *testing.T) {
	c, events, idx := newTestCollector(t, 7*24*time.Hour)

	insertExpired(t, events, idx, 1, 8*24*time.Hour)

	// Simulate a crash between the relational delete and the index delete:
	// the relational row is already gone but the ledger still names it.
	require.NoError(t, events.SavePendingDeletes([]uint64{1}))
	require.NoError(t, events.DeleteByIDs([]uint64{1}))

	total, _, err := idx.Search(search.Params{AppID: "app1", Query: "old"})
	require.NoError(t, err)
	require.Equal(t, 1, total, "index still has the orphaned doc before recovery")

	c.retryPendingDeletes()

	total, _, err = idx.Search(search.Params{AppID: "app1", Query: "old"})
	require.NoError(t, err)
	require.Equal(t, 0, total)

	pending, err := events.LoadPendingDeletes()
	require.NoError(t, err)
	require.Empty(t, pending)
}
