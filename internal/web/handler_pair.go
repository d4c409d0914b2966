package web

import (
	"net/http"

	"github.com/vbonduro/prakriti/internal/domain"
)

// statusParam reads ?status=, defaulting to def. ok is false for an unknown
// status.
func statusParam(r *http.Request, def domain.Status) (domain.Status, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return def, true
	}
	st := domain.Status(raw)
	return st, st.Valid()
}

func (s *Server) handleListPairs(w http.ResponseWriter, r *http.Request) {
	status, ok := statusParam(r, domain.StatusPending)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	pairs, err := s.service.Pairs(r.Context(), status)
	if err != nil {
		s.writeServiceError(w, err, "failed to list pairs")
		return
	}
	s.writeJSON(w, http.StatusOK, pairs)
}

func (s *Server) handleApprovePair(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid pair id")
		return
	}

	pair, err := s.service.Approve(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err, "failed to approve pair", "pair_id", id)
		return
	}
	s.writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRejectPair(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid pair id")
		return
	}

	if err := s.service.Reject(r.Context(), id); err != nil {
		s.writeServiceError(w, err, "failed to reject pair", "pair_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Dashboard(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "failed to build dashboard")
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	status, ok := statusParam(r, "")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	markers, err := s.service.MapMarkers(r.Context(), status)
	if err != nil {
		s.writeServiceError(w, err, "failed to list map markers")
		return
	}
	s.writeJSON(w, http.StatusOK, markers)
}
