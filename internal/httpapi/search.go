package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"loglite/internal/metrics"
	"loglite/internal/search"
	"loglite/pkg/apperror"
	"loglite/pkg/types"
)

type searchRequest struct {
	AppID    string `json:"app_id"`
	Query    string `json:"q"`
	Source   string `json:"source"`
	Host     string `json:"host"`
	Severity *int   `json:"severity"`
	StartTs  *int64 `json:"start_ts"`
	EndTs    *int64 `json:"end_ts"`
	Limit    int    `json:"limit"`
}

type searchResponse struct {
	Total int           `json:"total"`
	Items []types.Event `json:"items"`
}

// searchHandler implements POST /api/search: runs the tenant-scoped
// index query, then hydrates hits against the relational store. A query
// with no matches returns 200 with total:0, items:[], not 404.
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.Validation("httpapi", "Search", "invalid JSON body"))
		return
	}
	if req.AppID == "" {
		writeError(w, apperror.Validation("httpapi", "Search", "app_id is required"))
		return
	}

	start := time.Now()
	defer func() {
		metrics.SearchRequestDuration.WithLabelValues(req.AppID).Observe(time.Since(start).Seconds())
	}()

	total, hits, err := s.index.Search(search.Params{
		AppID:    req.AppID,
		Query:    req.Query,
		Source:   req.Source,
		Host:     req.Host,
		Severity: req.Severity,
		StartTs:  req.StartTs,
		EndTs:    req.EndTs,
		Limit:    req.Limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	ids := make([]uint64, len(hits))
	for i, h := range hits {
		ids[i] = h.EventID
	}
	byID, err := s.events.HydrateByIDs(ids)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]types.Event, 0, len(hits))
	for _, h := range hits {
		if ev, ok := byID[h.EventID]; ok {
			items = append(items, ev)
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{Total: total, Items: items})
}
