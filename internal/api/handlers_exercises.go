package api

import (
	"errors"
	"net/http"

	"github.com/JJublanc/virtual-ai-coach/internal/catalog"
	"github.com/JJublanc/virtual-ai-coach/internal/httputil"
)

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := s.catalog.ListExercises()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "catalog_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"exercises": exercises,
		"count":     len(exercises),
	})
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	exercise, err := s.catalog.GetExercise(r.PathValue("name"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "unknown_exercise", "no such exercise")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "catalog_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, exercise)
}
