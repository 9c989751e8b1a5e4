package server

import (
	"net/http"
	"strconv"
)

// Location endpoints answer with bare arrays for the autocomplete widget.

func (s *Service) handleLocationSearch(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	s.writeJSON(w, http.StatusOK, s.geo.Search(r.URL.Query().Get("q"), limit))
}

func (s *Service) handleCounties(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.geo.CountyNames())
}

func (s *Service) handleCities(w http.ResponseWriter, r *http.Request) {
	cities := s.geo.Cities(r.URL.Query().Get("county"))
	if cities == nil {
		s.writeError(w, http.StatusNotFound, "not_found", "Județ necunoscut.")
		return
	}
	s.writeJSON(w, http.StatusOK, cities)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.database != nil {
		if err := s.database.Ping(r.Context()); err != nil {
			s.logger.WithError(err).Warn("health check failed")
			s.writeError(w, http.StatusServiceUnavailable, "unavailable", msgUnavailable)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
