// Package obs is the observability spine shared by every ReedCMS
// subsystem: a structured logger with stdout/stderr stream separation,
// plus the Prometheus metrics the cache and rate-limit layers publish.
package obs

import (
	"bytes"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// OutputSplitter routes formatted log records to stderr when they carry
// "level=error" and to stdout otherwise, so container log collectors can
// treat the two streams differently.
type OutputSplitter struct{}

func (OutputSplitter) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte("level=error")) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the process-wide structured logger. Callers attach context via
// Logger.WithFields(map[string]any{"component": ..., "key": ..., ...}).
var Logger = logrus.New()

func init() {
	Logger.SetOutput(OutputSplitter{})
}

// Metrics groups the counters and histograms ReedCMS components publish.
var Metrics = struct {
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	RateLimitRejects *prometheus.CounterVec
	BundleRebuildSec prometheus.Histogram
}{
	CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reedcms",
		Name:      "cache_hits_total",
		Help:      "ReedBase cache lookups served from memory.",
	}, []string{"cache"}),
	CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reedcms",
		Name:      "cache_misses_total",
		Help:      "ReedBase cache lookups that fell through every fallback.",
	}, []string{"cache"}),
	RateLimitRejects: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reedcms",
		Name:      "rate_limit_rejections_total",
		Help:      "Requests rejected for exceeding their sliding-window quota.",
	}, []string{"operation"}),
	BundleRebuildSec: promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reedcms",
		Name:      "bundle_rebuild_seconds",
		Help:      "Wall-clock duration of an asset bundle rebuild.",
		Buckets:   prometheus.DefBuckets,
	}),
}
