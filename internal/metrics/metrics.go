// Package metrics records per-route request counters and latency histograms
// and exposes them in the Prometheus text format.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
)

var buckets = vm.ExponentialBuckets(1e-3, 5, 6)

// Recorder owns a metrics set and the lazily created per-route series.
type Recorder struct {
	set       *vm.Set
	buildInfo string

	mu   sync.Mutex
	refs map[string]ref
}

type ref struct {
	counter   *vm.Counter
	histogram *vm.PrometheusHistogram
}

// New creates a Recorder that reports build information for title/version.
func New(title, version string) *Recorder {
	return &Recorder{
		set:       vm.NewSet(),
		buildInfo: joinQuote("build_info{goversion=", runtime.Version(), ",title=", title, ",version=", version, "} 1\n"),
		refs:      make(map[string]ref),
	}
}

// statusRecorder captures the response status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

// Middleware measures every request, labelled by the matched route pattern.
func (rec *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(sr, r)

		path := r.Pattern
		if _, p, ok := strings.Cut(path, " "); ok {
			path = p
		}
		if path == "" {
			path = "unmatched"
		}
		rec.observe(r.Method, path, sr.statusCode, start)
	})
}

func (rec *Recorder) observe(method, path string, status int, start time.Time) {
	uid := method + " " + path + " " + strconv.Itoa(status)

	rec.mu.Lock()
	s, ok := rec.refs[uid]
	if !ok {
		labels := joinQuote("{method=", method, ",path=", path, ",status=", strconv.Itoa(status), "}")
		s = ref{
			counter:   rec.set.NewCounter("http_requests_total" + labels),
			histogram: rec.set.NewPrometheusHistogramExt("http_request_duration_seconds"+labels, buckets),
		}
		rec.refs[uid] = s
	}
	rec.mu.Unlock()

	s.counter.Inc()
	s.histogram.UpdateDuration(start)
}

// WritePrometheus writes build info, request metrics and process metrics.
func (rec *Recorder) WritePrometheus(w io.Writer) {
	fmt.Fprint(w, rec.buildInfo)
	rec.set.WritePrometheus(w)
	vm.WriteProcessMetrics(w)
}

// Handler serves WritePrometheus over HTTP.
func (rec *Recorder) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		rec.WritePrometheus(w)
	}
}

// joinQuote is [strings.Join] with " as separator.
func joinQuote(elems ...string) string { return strings.Join(elems, `"`) }
