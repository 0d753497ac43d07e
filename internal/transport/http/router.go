package http

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"cx-lms-service/internal/metrics"
)

// NewRouter mounts the quiz socket, the JSON API, health and metrics.
func NewRouter(ws *WSHandler, api *API, m *metrics.Collectors) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /ws/quiz", ws.ServeWS)
	api.Register(mux)
	return instrument(mux, m)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController and the websocket upgrader reach the hijacker.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func instrument(mux *http.ServeMux, m *metrics.Collectors) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)
		_, pattern := mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		m.ObserveRequest(r.Method, pattern, rec.status, time.Since(start))
	})
}
