package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"tunnelrun.ai/internal/sim/match"
	"tunnelrun.ai/internal/transport/observer"
	"tunnelrun.ai/internal/transport/ws"
)

type routerConfig struct {
	Match       *match.Match
	Index       runtimeIndex
	Logger      *log.Logger
	EnableAdmin bool
}

func newRouter(cfg routerConfig) http.Handler {
	m := cfg.Match

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	r.Get("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMatchMetrics(rw, m.Metrics())
		if cfg.Index != nil {
			writeIndexMetrics(rw, cfg.Index)
		}
	})
	r.Get("/v1/info", func(rw http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		info, err := m.Info(ctx)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(info)
	})
	r.Get("/v1/ws", ws.NewServer(m, cfg.Logger).Handler())

	if !cfg.EnableAdmin {
		if cfg.Logger != nil {
			cfg.Logger.Printf("admin endpoints disabled (TUNNELRUN_ENABLE_ADMIN_HTTP=false)")
		}
		return r
	}

	// Local-only admin endpoints.
	obsSrv := observer.NewServer(m, cfg.Logger)
	r.Route("/admin/v1", func(r chi.Router) {
		r.Use(loopbackOnly)
		r.Get("/state", func(rw http.ResponseWriter, r *http.Request) {
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(struct {
				Running bool          `json:"running"`
				Metrics match.Metrics `json:"metrics"`
			}{
				Running: m.Running(),
				Metrics: m.Metrics(),
			})
		})
		r.Post("/quit", func(rw http.ResponseWriter, r *http.Request) {
			running := m.Running()
			if running {
				m.Quit()
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "was_running": running})
		})
		r.Get("/observer/bootstrap", obsSrv.BootstrapHandler())
		r.Get("/observer/ws", obsSrv.WSHandler())
	})
	return r
}

func loopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if !observer.IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(rw, r)
	})
}

// Minimal Prometheus exposition format.
func writeMatchMetrics(rw http.ResponseWriter, mm match.Metrics) {
	running := 0
	if mm.State == "running" {
		running = 1
	}
	fmt.Fprintf(rw, "# HELP tunnelrun_match_running Whether a match is in progress.\n")
	fmt.Fprintf(rw, "# TYPE tunnelrun_match_running gauge\n")
	fmt.Fprintf(rw, "tunnelrun_match_running %d\n", running)

	fmt.Fprintf(rw, "# HELP tunnelrun_match_tick Ticks executed in the current match.\n")
	fmt.Fprintf(rw, "# TYPE tunnelrun_match_tick gauge\n")
	fmt.Fprintf(rw, "tunnelrun_match_tick %d\n", mm.Tick)

	fmt.Fprintf(rw, "# HELP tunnelrun_match_level Current level.\n")
	fmt.Fprintf(rw, "# TYPE tunnelrun_match_level gauge\n")
	fmt.Fprintf(rw, "tunnelrun_match_level %d\n", mm.Level)

	fmt.Fprintf(rw, "# HELP tunnelrun_match_score Current score.\n")
	fmt.Fprintf(rw, "# TYPE tunnelrun_match_score gauge\n")
	fmt.Fprintf(rw, "tunnelrun_match_score %d\n", mm.Score)

	fmt.Fprintf(rw, "# HELP tunnelrun_match_lives Lives left.\n")
	fmt.Fprintf(rw, "# TYPE tunnelrun_match_lives gauge\n")
	fmt.Fprintf(rw, "tunnelrun_match_lives %d\n", mm.Lives)

	fmt.Fprintf(rw, "# HELP tunnelrun_subscribers Connected state stream consumers.\n")
	fmt.Fprintf(rw, "# TYPE tunnelrun_subscribers gauge\n")
	fmt.Fprintf(rw, "tunnelrun_subscribers %d\n", mm.Subscribers)

	fmt.Fprintf(rw, "# HELP tunnelrun_matches_total Matches started since boot.\n")
	fmt.Fprintf(rw, "# TYPE tunnelrun_matches_total counter\n")
	fmt.Fprintf(rw, "tunnelrun_matches_total %d\n", mm.Matches)

	fmt.Fprintf(rw, "# HELP tunnelrun_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE tunnelrun_step_ms gauge\n")
	fmt.Fprintf(rw, "tunnelrun_step_ms %.3f\n", mm.StepMS)
}

func writeIndexMetrics(rw http.ResponseWriter, idx runtimeIndex) {
	s := idx.Stats()
	fmt.Fprintf(rw, "# HELP tunnelrun_index_queue_depth Index writer backlog.\n")
	fmt.Fprintf(rw, "# TYPE tunnelrun_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "tunnelrun_index_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP tunnelrun_index_dropped_total Index writes dropped because the queue was full.\n")
	fmt.Fprintf(rw, "# TYPE tunnelrun_index_dropped_total counter\n")
	fmt.Fprintf(rw, "tunnelrun_index_dropped_total{kind=%q} %d\n", "tick", s.DropTickTotal)
	fmt.Fprintf(rw, "tunnelrun_index_dropped_total{kind=%q} %d\n", "match", s.DropMatchTotal)
	fmt.Fprintf(rw, "tunnelrun_index_dropped_total{kind=%q} %d\n", "snapshot", s.DropSnapshotTotal)
}
