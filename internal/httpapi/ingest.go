package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"loglite/internal/metrics"
	"loglite/internal/parser"
	"loglite/pkg/apperror"
	"loglite/pkg/types"
)

type ingestJSONRequest struct {
	AppID  string              `json:"app_id"`
	Events []types.IngestEvent `json:"events"`
}

type ingestResponse struct {
	Accepted int `json:"accepted"`
}

// ingestJSONHandler implements POST /api/ingest: a batch of
// already-structured events, one id-stamping and admission pass through
// the Event Writer.
func (s *Server) ingestJSONHandler(w http.ResponseWriter, r *http.Request) {
	var req ingestJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.Validation("httpapi", "Ingest", "invalid JSON body"))
		return
	}
	if req.AppID == "" {
		writeError(w, apperror.Validation("httpapi", "Ingest", "app_id is required"))
		return
	}

	now := time.Now().UTC()
	events := make([]types.Event, 0, len(req.Events))
	for _, in := range req.Events {
		ts := now
		if in.Ts != nil {
			ts = in.Ts.UTC()
		}
		source := in.Source
		if source == "" {
			source = "http"
		}
		events = append(events, types.Event{
			AppID:    req.AppID,
			Ts:       ts,
			Host:     in.Host,
			Source:   source,
			Severity: in.Severity,
			Message:  in.Message,
			Fields:   in.Fields,
		})
	}

	s.admitAndRespond(w, req.AppID, events)
}

// ingestTextHandler implements POST /api/ingest/{format}: a raw
// text/plain body in one of the known formats, or auto-detected.
func (s *Server) ingestTextHandler(w http.ResponseWriter, r *http.Request) {
	format := mux.Vars(r)["format"]
	appID := r.URL.Query().Get("app_id")
	if appID == "" {
		writeError(w, apperror.Validation("httpapi", "Ingest", "app_id query parameter is required"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperror.Validation("httpapi", "Ingest", "failed to read request body"))
		return
	}

	now := time.Now().UTC()
	var result parser.Result
	if format == "auto" {
		result, _ = parser.ParseAuto(string(body), now)
	} else {
		var ok bool
		result, ok = parser.ParseWithFormat(format, string(body), now)
		if !ok {
			writeError(w, apperror.Validation("httpapi", "Ingest", "unknown format: "+format))
			return
		}
	}

	if result.Dropped > 0 {
		metrics.ParseDroppedTotal.WithLabelValues(appID, "http:"+format).Add(float64(result.Dropped))
	}
	for i := range result.Events {
		result.Events[i].Source = "http:" + format
	}

	s.admitAndRespond(w, appID, result.Events)
}

func (s *Server) admitAndRespond(w http.ResponseWriter, appID string, events []types.Event) {
	accepted, err := s.writer.Admit(appID, events)
	if err != nil {
		if cerr := s.writer.Commit(); cerr != nil {
			s.logger.WithError(cerr).Warn("httpapi: index commit failed after partial admission")
		}
		writeJSON(w, http.StatusInternalServerError, ingestResponse{Accepted: accepted})
		return
	}
	if err := s.writer.Commit(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Accepted: accepted})
}
