// Package httpapi serves the read-only HTTP surface described in §6: the
// ROA JSON snapshot, per-origin DNS zone text, and Prometheus metrics.
package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dn42/regsynth/internal/driver"
)

var requestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "regsynth_http_requests_total", Help: "HTTP requests served, by route and status"},
	[]string{"route", "status"},
)

func init() {
	prometheus.MustRegister(requestsTotal)
}

// Snapshots is the subset of *driver.Driver the HTTP surface depends on,
// narrowed so handlers are testable without a real Driver.
type Snapshots interface {
	ROA() string
	DNSContent(origin string) (string, bool)
}

var _ Snapshots = (*driver.Driver)(nil)

// Options configures the mux.
type Options struct {
	ROAEndpoint                 string
	DNSContentEndpointDirectory string
	RateLimiter                 *RateLimiter
}

// NewMux builds the HTTP handler for the configured endpoints, plus
// /metrics served via promhttp.Handler() exactly as the teacher's metrics
// server does.
func NewMux(snap Snapshots, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(opts.ROAEndpoint, opts.RateLimiter.wrap(roaHandler(snap)))

	dir := strings.TrimSuffix(opts.DNSContentEndpointDirectory, "/") + "/"
	mux.Handle(dir, opts.RateLimiter.wrap(dnsContentHandler(snap, dir)))

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func roaHandler(snap Snapshots) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := snap.ROA()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
		requestsTotal.WithLabelValues("roa", strconv.Itoa(http.StatusOK)).Inc()
	}
}

func dnsContentHandler(snap Snapshots, prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimPrefix(r.URL.Path, prefix)
		if origin == "" {
			w.WriteHeader(http.StatusNotFound)
			requestsTotal.WithLabelValues("dns", strconv.Itoa(http.StatusNotFound)).Inc()
			return
		}

		text, ok := snap.DNSContent(origin)
		if !ok {
			// Try with a trailing dot, since origins are published in
			// canonical FQDN form.
			text, ok = snap.DNSContent(origin + ".")
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			requestsTotal.WithLabelValues("dns", strconv.Itoa(http.StatusNotFound)).Inc()
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(text))
		requestsTotal.WithLabelValues("dns", strconv.Itoa(http.StatusOK)).Inc()
	}
}

// clientIP extracts the request's originating address for rate limiting,
// ignoring any proxy headers (the registry synthesis surface is meant to
// sit directly behind its own listener, not a shared edge proxy).
func clientIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}
