package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"loglite/internal/store"
	"loglite/pkg/apperror"
	"loglite/pkg/types"
)

type sourceRequest struct {
	AppID       string `json:"app_id"`
	Kind        string `json:"kind"`
	Path        string `json:"path"`
	Recursive   bool   `json:"recursive"`
	Encoding    string `json:"encoding"`
	IncludeGlob string `json:"include_glob"`
	ExcludeGlob string `json:"exclude_glob"`
	Enabled     *bool  `json:"enabled"`
}

func (s *Server) createSourceHandler(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.Validation("httpapi", "CreateSource", "invalid JSON body"))
		return
	}
	if req.AppID == "" {
		writeError(w, apperror.Validation("httpapi", "CreateSource", "app_id is required"))
		return
	}

	kind := types.SourceKind(req.Kind)
	if kind == "" {
		kind = types.SourceKindTail
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	src, err := s.sources.Create(types.Source{
		AppID:       req.AppID,
		Kind:        kind,
		Path:        req.Path,
		Recursive:   req.Recursive,
		Encoding:    req.Encoding,
		IncludeGlob: req.IncludeGlob,
		ExcludeGlob: req.ExcludeGlob,
		Enabled:     enabled,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (s *Server) listSourcesHandler(w http.ResponseWriter, r *http.Request) {
	appID := r.URL.Query().Get("app_id")
	sources, err := s.sources.ListByApp(appID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sources)
}

func (s *Server) getSourceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := sourceIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	src, err := s.sources.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (s *Server) updateSourceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := sourceIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var upd store.SourceUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, apperror.Validation("httpapi", "UpdateSource", "invalid JSON body"))
		return
	}

	src, err := s.sources.Update(id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (s *Server) deleteSourceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := sourceIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.sources.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sourceIDFromPath(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.Validation("httpapi", "sourceID", "id must be an integer")
	}
	return id, nil
}
