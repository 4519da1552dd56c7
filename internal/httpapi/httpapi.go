// Package httpapi exposes loglite's HTTP surface: tenant and source
// management, JSON and raw-text ingestion, and search.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"loglite/internal/metrics"
	"loglite/internal/search"
	"loglite/internal/store"
	"loglite/pkg/apperror"
	"loglite/pkg/types"
)

// eventAdmitter is the subset of the Event Writer the ingest handlers
// need, so Server depends on Admit and Commit rather than on the
// concrete internal/writer type.
type eventAdmitter interface {
	Admit(appID string, events []types.Event) (int, error)
	Commit() error
}

// Server wires every store and component the HTTP surface depends on.
type Server struct {
	apps    *store.AppStore
	sources *store.SourceStore
	events  *store.EventStore
	index   *search.Index
	writer  eventAdmitter
	logger  *logrus.Logger
}

func New(apps *store.AppStore, sources *store.SourceStore, events *store.EventStore, index *search.Index, w eventAdmitter, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{apps: apps, sources: sources, events: events, index: index, writer: w, logger: logger}
}

// Router builds the mux.Router and wraps it with the middleware stack.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", s.healthHandler).Methods(http.MethodGet)

	r.HandleFunc("/api/apps", s.createAppHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/apps", s.listAppsHandler).Methods(http.MethodGet)

	r.HandleFunc("/api/sources", s.createSourceHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/sources", s.listSourcesHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/sources/{id}", s.getSourceHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/sources/{id}", s.updateSourceHandler).Methods(http.MethodPut)
	r.HandleFunc("/api/sources/{id}", s.deleteSourceHandler).Methods(http.MethodDelete)

	r.HandleFunc("/api/ingest", s.ingestJSONHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/ingest/{format}", s.ingestTextHandler).Methods(http.MethodPost)

	r.HandleFunc("/api/search", s.searchHandler).Methods(http.MethodPost)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.Use(handlers.CompressHandler)
	r.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(false)))

	return handlers.CustomLoggingHandler(io.Discard, r, func(_ io.Writer, params handlers.LogFormatterParams) {
		s.logger.WithFields(logrus.Fields{
			"method":   params.Request.Method,
			"path":     params.URL.RequestURI(),
			"status":   params.StatusCode,
			"size":     params.Size,
			"duration": time.Since(params.TimeStamp),
		}).Debug("http request")
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an error to loglite's HTTP status taxonomy. Errors
// that aren't already classified are treated as transient store
// failures (500).
func writeError(w http.ResponseWriter, err error) {
	ae := apperror.Wrap(err, "httpapi", "request")
	status := http.StatusInternalServerError
	switch ae.Kind {
	case apperror.KindValidation:
		status = http.StatusBadRequest
	case apperror.KindNotFound:
		status = http.StatusNotFound
	case apperror.KindConflict:
		status = http.StatusConflict
	case apperror.KindTransient:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": ae.Message})
}
