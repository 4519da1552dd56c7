package httpapi

import (
	"encoding/json"
	"net/http"

	"loglite/pkg/apperror"
)

type createAppRequest struct {
	Name string `json:"name"`
}

func (s *Server) createAppHandler(w http.ResponseWriter, r *http.Request) {
	var req createAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.Validation("httpapi", "CreateApp", "invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeError(w, apperror.Validation("httpapi", "CreateApp", "name is required"))
		return
	}

	app, err := s.apps.Create(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) listAppsHandler(w http.ResponseWriter, r *http.Request) {
	apps, err := s.apps.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}
