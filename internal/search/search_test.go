package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	dir := t.TempDir()
	idx, err := Open(dir + "/idx.bleve")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func sevPtr(v int) *int { return &v }

func TestSearchIsTenantScoped(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Add(Doc{AppID: "a1", EventID: 1, Message: "database connection refused", TsEpochMs: 1000}))
	require.NoError(t, idx.Add(Doc{AppID: "a2", EventID: 2, Message: "database connection refused", TsEpochMs: 2000}))
	require.NoError(t, idx.Commit())

	total, hits, err := idx.Search(Params{AppID: "a1", Query: "database"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, hits, 1)
	require.Equal(t, uint64(1), hits[0].EventID)
}

func TestSearchOrdersByTsThenEventIDDescending(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Add(Doc{AppID: "a1", EventID: 10, Message: "tie", TsEpochMs: 5000}))
	require.NoError(t, idx.Add(Doc{AppID: "a1", EventID: 11, Message: "tie", TsEpochMs: 5000}))
	require.NoError(t, idx.Add(Doc{AppID: "a1", EventID: 5, Message: "tie", TsEpochMs: 9000}))
	require.NoError(t, idx.Commit())

	_, hits, err := idx.Search(Params{AppID: "a1", Query: "tie"})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	require.Equal(t, uint64(5), hits[0].EventID)
	require.Equal(t, uint64(11), hits[1].EventID)
	require.Equal(t, uint64(10), hits[2].EventID)
}

func TestSearchReturnsExactLargeEventIDs(t *testing.T) {
	idx := newTestIndex(t)

	// Adjacent ids above float64's 2^53 integer range would collapse if
	// the join went through the stored numeric field.
	const id = uint64(340_282_366_920_938_463)
	require.NoError(t, idx.Add(Doc{AppID: "a1", EventID: id, Message: "precision", TsEpochMs: 1000}))
	require.NoError(t, idx.Add(Doc{AppID: "a1", EventID: id + 1, Message: "precision", TsEpochMs: 1000}))
	require.NoError(t, idx.Commit())

	_, hits, err := idx.Search(Params{AppID: "a1", Query: "precision"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, id+1, hits[0].EventID)
	require.Equal(t, id, hits[1].EventID)
}

func TestSearchEmptyQueryDegeneratesToFilterScan(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Add(Doc{AppID: "a1", EventID: 1, Message: "anything at all", Source: "nginx", TsEpochMs: 1000}))
	require.NoError(t, idx.Add(Doc{AppID: "a1", EventID: 2, Message: "something else", Source: "java", TsEpochMs: 2000}))
	require.NoError(t, idx.Commit())

	total, hits, err := idx.Search(Params{AppID: "a1", Source: "nginx"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, uint64(1), hits[0].EventID)
}

func TestSearchQuotedPhraseVsBareTerms(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Add(Doc{AppID: "a1", EventID: 1, Message: "connection refused by peer", TsEpochMs: 1000}))
	require.NoError(t, idx.Add(Doc{AppID: "a1", EventID: 2, Message: "refused to open connection", TsEpochMs: 2000}))
	require.NoError(t, idx.Commit())

	total, hits, err := idx.Search(Params{AppID: "a1", Query: `"connection refused"`})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, uint64(1), hits[0].EventID)
}

func TestSearchSeverityAndTsRangeFilters(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Add(Doc{AppID: "a1", EventID: 1, Message: "boom", Severity: sevPtr(3), TsEpochMs: 1000}))
	require.NoError(t, idx.Add(Doc{AppID: "a1", EventID: 2, Message: "boom", Severity: sevPtr(6), TsEpochMs: 2000}))
	require.NoError(t, idx.Commit())

	sev := 3
	total, hits, err := idx.Search(Params{AppID: "a1", Severity: &sev})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, uint64(1), hits[0].EventID)

	start := int64(1500)
	_, hits, err = idx.Search(Params{AppID: "a1", StartTs: &start})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, uint64(2), hits[0].EventID)
}

func TestDeleteByIDsRequiresCommit(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Add(Doc{AppID: "a1", EventID: 1, Message: "to delete", TsEpochMs: 1000}))
	require.NoError(t, idx.Commit())

	total, _, err := idx.Search(Params{AppID: "a1", Query: "delete"})
	require.NoError(t, err)
	require.Equal(t, 1, total)

	require.NoError(t, idx.DeleteByIDs([]uint64{1}))
	total, _, err = idx.Search(Params{AppID: "a1", Query: "delete"})
	require.NoError(t, err)
	require.Equal(t, 1, total, "delete not yet committed")

	require.NoError(t, idx.Commit())
	total, _, err = idx.Search(Params{AppID: "a1", Query: "delete"})
	require.NoError(t, err)
	require.Equal(t, 0, total)
}
