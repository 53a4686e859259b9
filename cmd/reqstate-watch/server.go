package main

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Sternrassler/reqstate/pkg/descriptor"
	"github.com/Sternrassler/reqstate/pkg/logging"
	"github.com/Sternrassler/reqstate/pkg/metrics"
	"github.com/Sternrassler/reqstate/pkg/state"
)

// watcher is the part of a request the HTTP surface drives.
type watcher interface {
	State() state.State
	Refresh()
	Update(d *descriptor.Descriptor)
}

type stateResponse struct {
	URL        string `json:"url,omitempty"`
	IsFetching bool   `json:"is_fetching"`
	RequestID  int    `json:"request_id"`
	Data       any    `json:"data"`
	Error      string `json:"error,omitempty"`
}

type configRequest struct {
	URL string `json:"url"`
}

func newRouter(w watcher) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/state", stateHandler(w))
	r.Post("/refresh", refreshHandler(w))
	r.Put("/config", configHandler(w))
	r.Handle("/metrics", metrics.Handler())

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func stateHandler(wt watcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, toResponse(wt.State()))
	}
}

func refreshHandler(wt watcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wt.Refresh()
		writeJSON(w, http.StatusAccepted, toResponse(wt.State()))
	}
}

func configHandler(wt watcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body configRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		u, err := url.Parse(body.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			http.Error(w, "url must be absolute", http.StatusBadRequest)
			return
		}

		wt.Update(descriptor.URL(body.URL))
		writeJSON(w, http.StatusAccepted, toResponse(wt.State()))
	}
}

func toResponse(s state.State) stateResponse {
	resp := stateResponse{
		IsFetching: s.IsFetching,
		RequestID:  s.RequestID,
	}
	if s.Config != nil {
		resp.URL = s.Config.BuildURL()
	}
	if s.Data != nil {
		if json.Valid(s.Data) {
			resp.Data = json.RawMessage(s.Data)
		} else {
			resp.Data = string(s.Data)
		}
	}
	if s.Err != nil {
		resp.Error = s.Err.Error()
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := logging.NewLogger("http")
		logger.Warn().Err(err).Msg("Failed to write response")
	}
}
