// internal/server/handlers.go
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"tracklift/internal/metadata"
	"tracklift/internal/scraperr"
	"tracklift/pkg/types"
)

// scrapeRequest is the wire form of a scrape call. Durations come in as
// integers to keep the payload language-neutral.
type scrapeRequest struct {
	URL     string `json:"url"`
	Options struct {
		TimeoutMS       int    `json:"timeout_ms,omitempty"`
		Retries         int    `json:"retries,omitempty"`
		DelayMS         int    `json:"delay_ms,omitempty"`
		UseCache        *bool  `json:"use_cache,omitempty"`
		CacheTTLSeconds int    `json:"cache_ttl_seconds,omitempty"`
		Method          string `json:"method,omitempty"`
		UserAgent       string `json:"user_agent,omitempty"`
		ValidateLinks   bool   `json:"validate_links,omitempty"`
		IncludeMetadata bool   `json:"include_metadata,omitempty"`
		Enrich          bool   `json:"enrich,omitempty"`
	} `json:"options"`
}

func (r scrapeRequest) scrapingOptions() types.ScrapingOptions {
	opts := types.DefaultScrapingOptions()
	if r.Options.TimeoutMS > 0 {
		opts.Timeout = time.Duration(r.Options.TimeoutMS) * time.Millisecond
	}
	if r.Options.Retries > 0 {
		opts.Retries = r.Options.Retries
	}
	if r.Options.DelayMS > 0 {
		opts.Delay = time.Duration(r.Options.DelayMS) * time.Millisecond
	}
	if r.Options.UseCache != nil {
		opts.UseCache = *r.Options.UseCache
	}
	if r.Options.CacheTTLSeconds > 0 {
		opts.CacheTTL = time.Duration(r.Options.CacheTTLSeconds) * time.Second
	}
	if r.Options.Method != "" {
		opts.Method = types.ScrapingMethod(r.Options.Method)
	}
	opts.UserAgent = r.Options.UserAgent
	opts.ValidateLinks = r.Options.ValidateLinks
	opts.IncludeMetadata = r.Options.IncludeMetadata
	opts.Enrich = r.Options.Enrich
	return opts.Normalized()
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, scraperr.CodeInvalidInput, "request body is not valid JSON")
		return
	}
	if req.URL == "" {
		s.writeError(w, http.StatusBadRequest, scraperr.CodeInvalidInput, "url is required")
		return
	}

	result := s.scraper.Scrape(r.Context(), req.URL, req.scrapingOptions())
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	title := query.Get("title")
	if title == "" {
		s.writeError(w, http.StatusBadRequest, scraperr.CodeInvalidInput, "title is required")
		return
	}
	enrich, _ := strconv.ParseBool(query.Get("enrich"))

	meta := s.metadata.SearchMetadata(r.Context(), title, query.Get("artist"), metadata.SearchOptions{Enrich: enrich})
	s.writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	if s.cache == nil {
		s.writeError(w, http.StatusServiceUnavailable, scraperr.CodeCacheIO, "cache is not configured")
		return
	}
	s.writeJSON(w, http.StatusOK, s.cache.Stats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		s.writeError(w, http.StatusServiceUnavailable, scraperr.CodeCacheIO, "cache is not configured")
		return
	}
	if err := s.cache.Clear(r.Context()); err != nil {
		s.logger.Errorf("http: cache clear failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, scraperr.CodeCacheIO, "failed to clear cache")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorEnvelope is the uniform error payload.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, code scraperr.Code, message string) {
	var envelope errorEnvelope
	envelope.Error.Code = string(code)
	envelope.Error.Message = message
	s.writeJSON(w, status, envelope)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Errorf("http: failed to encode response: %v", err)
	}
}
