// Package driver runs the periodic synthesis cycle (§4.8) and publishes
// its output behind a reader-writer lock per §5: readers clone a published
// snapshot under a shared lock and release before responding; the writer
// computes everything off-lock and holds the exclusive lock only long
// enough to swap the prepared value in.
package driver

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dn42/regsynth/internal/forwardzone"
	"github.com/dn42/regsynth/internal/fqdn"
	"github.com/dn42/regsynth/internal/refresh"
	"github.com/dn42/regsynth/internal/registry"
	"github.com/dn42/regsynth/internal/reversezone"
	"github.com/dn42/regsynth/internal/roa"
	"github.com/dn42/regsynth/internal/zonefmt"
)

var (
	cycleTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "regsynth_cycle_total", Help: "Total synthesis cycles run, by outcome"},
		[]string{"task", "outcome"},
	)
	cycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "regsynth_cycle_duration_seconds", Help: "Synthesis cycle duration", Buckets: prometheus.DefBuckets},
		[]string{"task"},
	)
	reverseZoneCounters = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "regsynth_reversezone_prefixes", Help: "Reverse-zone leaf prefixes by delegation shape"},
		[]string{"shape"},
	)
)

func init() {
	prometheus.MustRegister(cycleTotal, cycleDuration, reverseZoneCounters)
}

// Paths configures where each registry subdirectory lives, relative to the
// registry root (§6).
type Paths struct {
	Root          string
	IPv4Route     string
	IPv6Route     string
	DNS           string
	IPv4Inetnum   string
	IPv6Inetnum   string
}

// DNSSnapshot is the published map from zone origin to formatted
// master-file text, plus the time it was produced.
type DNSSnapshot struct {
	Zones       map[string]string
	LastUpdated time.Time
}

// Driver owns the published snapshots and the ticking goroutine that
// refreshes them.
type Driver struct {
	paths     Paths
	refresher refresh.Refresher
	opts      SynthOptions
	logger    *log.Logger
	interval  time.Duration

	roaMu  sync.RWMutex
	roaDoc string

	dnsMu  sync.RWMutex
	dnsDoc DNSSnapshot

	warnMu   sync.Mutex
	warnings []string
}

// SynthOptions carries the values every synthesizer needs.
type SynthOptions struct {
	PrimaryMaster    string
	ResponsibleParty string
}

// New builds a Driver. The returned Driver publishes nothing until Run (or
// RunOnce) is called at least once.
func New(paths Paths, refresher refresh.Refresher, opts SynthOptions, interval time.Duration, logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.Default()
	}
	return &Driver{
		paths:     paths,
		refresher: refresher,
		opts:      opts,
		logger:    logger,
		interval:  interval,
		dnsDoc:    DNSSnapshot{Zones: map[string]string{}},
	}
}

// ROA returns the most recently published ROA JSON document. Before the
// first successful cycle this is the empty string (§7: readers never see
// an HTTP 5xx for an unpopulated snapshot, only an empty body).
func (d *Driver) ROA() string {
	d.roaMu.RLock()
	defer d.roaMu.RUnlock()
	return d.roaDoc
}

// DNSContent returns the most recently published zone text for origin, and
// whether it exists.
func (d *Driver) DNSContent(origin string) (string, bool) {
	d.dnsMu.RLock()
	defer d.dnsMu.RUnlock()
	text, ok := d.dnsDoc.Zones[origin]
	return text, ok
}

// Warnings returns the most recent cycle's accumulated warning list, for
// diagnostics (original_source/ supplement; not an HTTP endpoint).
func (d *Driver) Warnings() []string {
	d.warnMu.Lock()
	defer d.warnMu.Unlock()
	out := make([]string, len(d.warnings))
	copy(out, d.warnings)
	return out
}

// Run blocks, running one cycle immediately and then one per interval,
// until ctx is cancelled (§5 cancellation: the driver aborts at its next
// suspension point).
func (d *Driver) Run(ctx context.Context) {
	d.RunOnce(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single cycle: refresh, then ROA, then DNS (§4.8). A
// failing step is logged and the next one runs regardless.
func (d *Driver) RunOnce(ctx context.Context) {
	memo := newMemoLogger(d.logger)

	if err := d.refresher.Refresh(ctx); err != nil {
		d.logger.Printf("driver: registry refresh failed, continuing with on-disk tree: %v", err)
	}

	d.runROA(memo)
	d.runDNS(memo)

	d.warnMu.Lock()
	d.warnings = memo.lines
	d.warnMu.Unlock()
}

func (d *Driver) runROA(memo *memoLogger) {
	start := time.Now()
	routeObjs, errs := registry.LoadDir(d.paths.dir(d.paths.IPv4Route))
	for _, err := range errs {
		memo.Printf("driver: loading route directory: %v", err)
	}
	route6Objs, errs := registry.LoadDir(d.paths.dir(d.paths.IPv6Route))
	for _, err := range errs {
		memo.Printf("driver: loading route6 directory: %v", err)
	}

	out := roa.Synthesize(routeObjs, route6Objs, roa.Options{Now: start, Logger: memo.Logger})
	data, err := json.Marshal(out)
	cycleDuration.WithLabelValues("roa").Observe(time.Since(start).Seconds())
	if err != nil {
		cycleTotal.WithLabelValues("roa", "failure").Inc()
		d.logger.Printf("driver: marshaling ROA output: %v", err)
		return
	}

	d.roaMu.Lock()
	d.roaDoc = string(data)
	d.roaMu.Unlock()
	cycleTotal.WithLabelValues("roa", "success").Inc()
}

func (d *Driver) runDNS(memo *memoLogger) {
	start := time.Now()
	dnsObjs, errs := registry.LoadDir(d.paths.dir(d.paths.DNS))
	for _, err := range errs {
		memo.Printf("driver: loading dns directory: %v", err)
	}
	inetnumObjs, errs := registry.LoadDir(d.paths.dir(d.paths.IPv4Inetnum))
	for _, err := range errs {
		memo.Printf("driver: loading inetnum directory: %v", err)
	}
	inet6numObjs, errs := registry.LoadDir(d.paths.dir(d.paths.IPv6Inetnum))
	for _, err := range errs {
		memo.Printf("driver: loading inet6num directory: %v", err)
	}

	primaryMaster, err := fqdn.Parse(d.opts.PrimaryMaster)
	if err != nil {
		cycleTotal.WithLabelValues("dns", "failure").Inc()
		d.logger.Printf("driver: invalid dns_primary_master %q: %v", d.opts.PrimaryMaster, err)
		return
	}

	now := time.Now()
	fwdOpts := forwardzone.Options{PrimaryMaster: primaryMaster, ResponsibleParty: d.opts.ResponsibleParty, Now: now, Logger: memo.Logger}
	revOpts := reversezone.Options{PrimaryMaster: primaryMaster, ResponsibleParty: d.opts.ResponsibleParty, Now: now, Logger: memo.Logger}

	fwdZones := forwardzone.Synthesize(dnsObjs, fwdOpts)
	revZones, stats := reversezone.Synthesize(inetnumObjs, inet6numObjs, revOpts)

	reverseZoneCounters.WithLabelValues("ipv4_align").Set(float64(stats.IPv4Align))
	reverseZoneCounters.WithLabelValues("ipv4_non_align").Set(float64(stats.IPv4NonAlign))
	reverseZoneCounters.WithLabelValues("ipv6_align").Set(float64(stats.IPv6Align))
	reverseZoneCounters.WithLabelValues("ipv6_non_align").Set(float64(stats.IPv6NonAlign))

	onSkip := func(name, rrtype, reason string) {
		memo.Printf("driver: skipped record %s %s: %s", name, rrtype, reason)
	}

	rendered := make(map[string]string, len(fwdZones)+len(revZones))
	for origin, z := range fwdZones {
		rendered[origin] = zonefmt.Render(z, onSkip)
	}
	for origin, z := range revZones {
		rendered[origin] = zonefmt.Render(z, onSkip)
	}

	cycleDuration.WithLabelValues("dns").Observe(time.Since(start).Seconds())

	d.dnsMu.Lock()
	d.dnsDoc = DNSSnapshot{Zones: rendered, LastUpdated: now}
	d.dnsMu.Unlock()
	cycleTotal.WithLabelValues("dns", "success").Inc()
}

func (p Paths) dir(relative string) string {
	if p.Root == "" {
		return relative
	}
	return p.Root + "/" + relative
}

// memoLogger wraps the configured logger so every line logged during a
// cycle is both emitted and retained for Driver.Warnings() (the
// original_source/ warning-accumulation supplement).
type memoLogger struct {
	*log.Logger
	lines []string
}

func newMemoLogger(base *log.Logger) *memoLogger {
	m := &memoLogger{}
	m.Logger = log.New(io.MultiWriter(base.Writer(), &memoWriter{m}), base.Prefix(), base.Flags())
	return m
}

type memoWriter struct{ m *memoLogger }

func (w *memoWriter) Write(p []byte) (int, error) {
	w.m.lines = append(w.m.lines, strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
