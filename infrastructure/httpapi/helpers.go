package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reglet-dev/cligate/hostfuncs"
)

type setStoreRequest struct {
	Target any            `json:"target"`
	Store  map[string]any `json:"store"`
}

type setControllerLevelRequest struct {
	Target any `json:"target"`
	Level  any `json:"level"`
}

type finishConstructionSitesRequest struct {
	Rooms []string `json:"rooms"`
}

type helpBody struct {
	Help string `json:"help"`
}

// withHelpers resolves the helpers or answers 404 when none are configured.
func (s *Server) withHelpers(w http.ResponseWriter) (Helpers, bool) {
	if s.config.helpers == nil {
		writeError(w, http.StatusNotFound, hostfuncs.ErrorResponse{
			Error:   "NOT_FOUND",
			Message: "helpers are not enabled",
			Code:    http.StatusNotFound,
		})
		return nil, false
	}
	return s.config.helpers, true
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	h, ok := s.withHelpers(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, helpBody{Help: h.Help()})
}

func (s *Server) handleSetStore(w http.ResponseWriter, r *http.Request) {
	h, ok := s.withHelpers(w)
	if !ok {
		return
	}
	var req setStoreRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusAccepted, replyBody{Reply: h.SetStore(chi.URLParam(r, "user"), req.Target, req.Store)})
}

func (s *Server) handleSetStoreHuge(w http.ResponseWriter, r *http.Request) {
	h, ok := s.withHelpers(w)
	if !ok {
		return
	}
	var req setStoreRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusAccepted, replyBody{Reply: h.SetStoreHuge(chi.URLParam(r, "user"), req.Target)})
}

func (s *Server) handleSetControllerLevel(w http.ResponseWriter, r *http.Request) {
	h, ok := s.withHelpers(w)
	if !ok {
		return
	}
	var req setControllerLevelRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusAccepted, replyBody{Reply: h.SetControllerLevel(chi.URLParam(r, "user"), req.Target, req.Level)})
}

func (s *Server) handleFinishConstructionSites(w http.ResponseWriter, r *http.Request) {
	h, ok := s.withHelpers(w)
	if !ok {
		return
	}
	var req finishConstructionSitesRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusAccepted, replyBody{Reply: h.FinishConstructionSites(chi.URLParam(r, "user"), req.Rooms...)})
}
