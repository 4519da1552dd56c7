// Package search wraps a single embedded bleve full-text index behind a
// tenant-scoped facade. Every query carries a mandatory app_id filter;
// there is exactly one on-disk index covering all tenants.
package search

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"loglite/pkg/apperror"
)

// Doc is the full-text document for one event.
type Doc struct {
	AppID      string
	EventID    uint64
	Message    string
	Host       string
	Source     string
	Sourcetype string
	TsEpochMs  int64
	Severity   *int
}

// Index is the facade over the on-disk bleve index. Adds are batched by
// the caller and only become visible after Commit.
type Index struct {
	mu    sync.Mutex
	bl    bleve.Index
	batch *bleve.Batch
}

// Open opens the index at dir, creating it with loglite's fixed mapping
// if it does not yet exist.
func Open(dir string) (*Index, error) {
	bl, err := bleve.Open(dir)
	if err != nil {
		bl, err = bleve.New(dir, buildMapping())
		if err != nil {
			return nil, apperror.Wrap(err, "search", "Open")
		}
	}
	return &Index{bl: bl, batch: bl.NewBatch()}, nil
}

// Close releases the underlying index files.
func (idx *Index) Close() error {
	return idx.bl.Close()
}

// docID is the exact decimal event id, zero-padded so lexicographic
// doc-id order matches numeric order. The stored event_id field is a
// float64 inside bleve and loses precision above 2^53; the doc id is
// the only lossless carrier of the id.
func docID(eventID uint64) string {
	return fmt.Sprintf("%020d", eventID)
}

// Add stages a single document for the next Commit. Safe to call from
// the Event Writer's admission path; does not itself suspend on disk
// I/O.
func (idx *Index) Add(d Doc) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	sev := -1
	if d.Severity != nil {
		sev = *d.Severity
	}

	err := idx.batch.Index(docID(d.EventID), map[string]interface{}{
		"app_id":      d.AppID,
		"event_id":    float64(d.EventID),
		"message":     d.Message,
		"host":        d.Host,
		"source":      d.Source,
		"sourcetype":  d.Sourcetype,
		"ts_epoch_ms": float64(d.TsEpochMs),
		"severity":    float64(sev),
	})
	if err != nil {
		return apperror.Wrap(err, "search", "Add")
	}
	return nil
}

// DeleteByIDs stages deletions for the next Commit.
func (idx *Index) DeleteByIDs(ids []uint64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, id := range ids {
		idx.batch.Delete(docID(id))
	}
	return nil
}

// Commit flushes every staged Add/DeleteByIDs, making them visible to
// Search.
func (idx *Index) Commit() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.batch.Size() == 0 {
		return nil
	}
	if err := idx.bl.Batch(idx.batch); err != nil {
		return apperror.Wrap(err, "search", "Commit")
	}
	idx.batch = idx.bl.NewBatch()
	return nil
}

// DocCount reports the number of live documents, used for observability.
func (idx *Index) DocCount() (uint64, error) {
	n, err := idx.bl.DocCount()
	if err != nil {
		return 0, fmt.Errorf("doc count: %w", err)
	}
	return n, nil
}

// Hit is one search result: enough to join back to the relational store.
type Hit struct {
	EventID   uint64
	TsEpochMs int64
}

// Params is a search request.
type Params struct {
	AppID    string
	Query    string
	Source   string
	Host     string
	Severity *int
	StartTs  *int64 // epoch ms, inclusive
	EndTs    *int64 // epoch ms, exclusive
	Limit    int
}

// Search runs a tenant-scoped query and returns the total match count
// plus a page of hits sorted by ts_epoch_ms descending, ties broken by
// event_id descending.
func (idx *Index) Search(p Params) (int, []Hit, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	q := buildQuery(p)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.SortBy([]string{"-ts_epoch_ms", "-_id"})
	req.Fields = []string{"ts_epoch_ms"}

	res, err := idx.bl.Search(req)
	if err != nil {
		return 0, nil, apperror.Wrap(err, "search", "Search")
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		eventID, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			continue
		}
		tsMs, _ := toInt64(h.Fields["ts_epoch_ms"])
		hits = append(hits, Hit{EventID: eventID, TsEpochMs: tsMs})
	}
	return int(res.Total), hits, nil
}

func toInt64(v interface{}) (int64, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
