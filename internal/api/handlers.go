package api

import (
	"context"
	"net/http"
	"time"

	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/models"
	"benefit-orchestrator/internal/orchestrator"

	"github.com/go-chi/chi/v5"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failures := map[string]string{}
	for _, c := range s.deps.Checks {
		if err := c.Check(ctx); err != nil {
			failures[c.Name] = err.Error()
		}
	}
	if len(failures) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "not_ready",
			"failures": failures,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready"})
}

func (s *Server) getCase(w http.ResponseWriter, r *http.Request) {
	c, notFound, err := s.deps.Store.LookupCase(r.Context(), chi.URLParam(r, "caseId"))
	switch {
	case err != nil:
		s.internalError(w, err)
	case notFound != nil:
		writeJSON(w, http.StatusNotFound, notFound)
	default:
		writeJSON(w, http.StatusOK, c)
	}
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, notFound, err := s.deps.Store.LookupDocument(r.Context(), chi.URLParam(r, "caseId"), chi.URLParam(r, "documentId"))
	switch {
	case err != nil:
		s.internalError(w, err)
	case notFound != nil:
		writeJSON(w, http.StatusNotFound, notFound)
	default:
		writeJSON(w, http.StatusOK, doc)
	}
}

type searchResponse struct {
	Results []models.MatchResult `json:"results"`
	Count   int                  `json:"count"`
}

func (s *Server) searchIdentity(w http.ResponseWriter, r *http.Request) {
	q, ok := readJSON[models.IdentityQuery](w, r)
	if !ok {
		return
	}
	results, err := s.deps.Matcher.Search(r.Context(), q)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if results == nil {
		results = []models.MatchResult{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results, Count: len(results)})
}

func (s *Server) verifyIdentity(w http.ResponseWriter, r *http.Request) {
	q, ok := readJSON[models.IdentityQuery](w, r)
	if !ok {
		return
	}
	v, err := s.deps.Matcher.Verify(r.Context(), q)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type routeRequest struct {
	History models.History `json:"history"`
}

func (s *Server) routeNext(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[routeRequest](w, r)
	if !ok {
		return
	}
	// A budget error is carried by the decision itself.
	decision, _ := s.deps.Router.Route(req.History)
	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) runCase(w http.ResponseWriter, r *http.Request) {
	if s.deps.Driver == nil {
		writeError(w, apperrors.NewCollaboratorUnavailableError("driver", errNoDriver))
		return
	}

	out, err := s.deps.Driver.Run(r.Context(), chi.URLParam(r, "caseId"))
	if err != nil {
		s.log.Error("case run failed", map[string]interface{}{"error": err.Error()})
		writeRunError(w, err, out)
		return
	}
	if out.Status == orchestrator.RunCaseNotFound {
		writeJSON(w, http.StatusNotFound, out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("request failed", map[string]interface{}{"error": err.Error()})
	writeError(w, err)
}
