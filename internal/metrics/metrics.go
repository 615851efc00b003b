// Package metrics exposes Prometheus collectors for the drug-information pipeline.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Fetch and write outcomes used as label values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

var (
	pagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "druginfo_pages_total",
			Help: "Total number of pages fetched, labeled by stage, site and status.",
		},
		[]string{"stage", "site", "status"},
	)

	bytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "druginfo_bytes_total",
			Help: "Total number of bytes fetched, labeled by stage.",
		},
		[]string{"stage"},
	)

	linksDiscoveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "druginfo_links_discovered_total",
			Help: "Total number of unique links discovered, labeled by stage.",
		},
		[]string{"stage"},
	)

	documentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "druginfo_documents_total",
			Help: "Total number of document upserts, labeled by status.",
		},
		[]string{"status"},
	)

	rateLimitDelaysSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "druginfo_rate_limit_delays_seconds",
			Help:    "Histogram of rate limit wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)
)

// SanitizeSite extracts a lowercase hostname from a URL.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObservePage records one page fetch for a pipeline stage.
func ObservePage(stage, rawURL, status string, bytesFetched int) {
	pagesTotal.WithLabelValues(stage, SanitizeSite(rawURL), status).Inc()
	if bytesFetched > 0 {
		bytesTotal.WithLabelValues(stage).Add(float64(bytesFetched))
	}
}

// ObserveLinks records newly discovered unique links.
func ObserveLinks(stage string, count int) {
	if count <= 0 {
		return
	}
	linksDiscoveredTotal.WithLabelValues(stage).Add(float64(count))
}

// ObserveDocument records the outcome of one upsert.
func ObserveDocument(status string) {
	documentsTotal.WithLabelValues(status).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Router serves /metrics and a lightweight /healthz.
func Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", Handler())
	return r
}

// Serve exposes Router on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown error", zap.Error(err))
		}
	}()
	logger.Info("metrics server started", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
