// Package metrics exposes Prometheus counters for the quiz engine.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "idiomquiz"

// Recorder holds the engine's collectors.
type Recorder struct {
	commands       *prometheus.CounterVec
	scoreEvents    *prometheus.CounterVec
	writeFailures  *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Recognized quiz commands by verb.",
		}, []string{"verb"}),
		scoreEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_events_total",
			Help:      "Scoring calls by kind and whether the window let them through.",
		}, []string{"kind", "applied"}),
		writeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Ledger writes that failed and were kept in memory only.",
		}, []string{"store"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Rounds currently in progress.",
		}),
	}
	reg.MustRegister(r.commands, r.scoreEvents, r.writeFailures, r.activeSessions)
	return r
}

// Command counts a recognized command.
func (r *Recorder) Command(verb string) {
	if r == nil {
		return
	}
	r.commands.WithLabelValues(verb).Inc()
}

// ScoreEvent counts a scoring call. kind is "credit" or "debit".
func (r *Recorder) ScoreEvent(kind string, applied bool) {
	if r == nil {
		return
	}
	r.scoreEvents.WithLabelValues(kind, strconv.FormatBool(applied)).Inc()
}

// WriteFailure counts a failed durable write.
func (r *Recorder) WriteFailure(store string) {
	if r == nil {
		return
	}
	r.writeFailures.WithLabelValues(store).Inc()
}

// SetActiveSessions records the number of live rounds.
func (r *Recorder) SetActiveSessions(n int) {
	if r == nil {
		return
	}
	r.activeSessions.Set(float64(n))
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Metrics listener started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
