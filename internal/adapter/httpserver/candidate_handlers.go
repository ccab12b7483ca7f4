package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
	"github.com/fairyhunter13/ai-cv-search/internal/usecase"
)

type searchResponse struct {
	Results []usecase.RankedCandidate `json:"results"`
	Count   int                       `json:"count"`
	Limit   int                       `json:"limit"`
	Offset  int                       `json:"offset"`
}

// SemanticSearchHandler handles GET /v1/search/semantic.
func (s *Server) SemanticSearchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, details, err := parseSearch(r.URL.Query())
		if err != nil {
			writeError(w, r, err, details)
			return
		}
		if q.Text == "" {
			writeError(w, r, fmt.Errorf("%w: q is required", domain.ErrInvalidArgument), map[string]string{"q": "required"})
			return
		}
		res, err := s.Candidates.SemanticSearch(r.Context(), q)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, searchResponse{Results: res, Count: len(res), Limit: q.Limit, Offset: q.Offset})
	}
}

// FilterSearchHandler handles GET /v1/search/filter. A q parameter is ignored.
func (s *Server) FilterSearchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, details, err := parseSearch(r.URL.Query())
		if err != nil {
			writeError(w, r, err, details)
			return
		}
		res, err := s.Candidates.FilterSearch(r.Context(), q)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, searchResponse{Results: res, Count: len(res), Limit: q.Limit, Offset: q.Offset})
	}
}

// SkillsHandler handles GET /v1/skills.
func (s *Server) SkillsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, details, err := parseListing(r.URL.Query())
		if err != nil {
			writeError(w, r, err, details)
			return
		}
		skills, err := s.Candidates.Skills(r.Context(), limit)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"skills": nonNil(skills), "count": len(skills)})
	}
}

// LocationsHandler handles GET /v1/locations.
func (s *Server) LocationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, details, err := parseListing(r.URL.Query())
		if err != nil {
			writeError(w, r, err, details)
			return
		}
		locs, err := s.Candidates.Locations(r.Context(), limit)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"locations": nonNil(locs), "count": len(locs)})
	}
}

// ListCandidatesHandler handles GET /v1/candidates.
func (s *Server) ListCandidatesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, details, err := parsePage(r.URL.Query())
		if err != nil {
			writeError(w, r, err, details)
			return
		}
		list, err := s.Candidates.List(r.Context(), page.Offset, page.Limit)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"candidates": nonNil(list), "count": len(list), "offset": page.Offset})
	}
}

// GetCandidateHandler handles GET /v1/candidates/{id}.
func (s *Server) GetCandidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.Candidates.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// UpdateCandidateHandler handles PUT /v1/candidates/{id} with a full profile body.
func (s *Server) UpdateCandidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var req profileRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), validationDetails(err))
			return
		}
		c, err := s.Candidates.Update(r.Context(), chi.URLParam(r, "id"), req.toProfile())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// DeleteCandidateHandler handles DELETE /v1/candidates/{id}.
func (s *Server) DeleteCandidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Candidates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
