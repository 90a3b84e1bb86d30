// Package roa synthesizes the RPKI ROA JSON snapshot from route/route6
// registry objects.
package roa

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"time"

	"github.com/dn42/regsynth/internal/prefix"
	"github.com/dn42/regsynth/internal/registry"
)

// Entry is one ROA JSON array element.
type Entry struct {
	ASN       uint32 `json:"asn"`
	Prefix    string `json:"prefix"`
	MaxLength uint8  `json:"maxLength"`
}

// Metadata carries build provenance for the snapshot.
type Metadata struct {
	BuildTime string `json:"buildtime"`
	Counts    int    `json:"counts"`
	ROAs      int    `json:"roas"`
}

// Output is the full ROA JSON document (§6).
type Output struct {
	Metadata Metadata `json:"metadata"`
	ROAs     []Entry  `json:"roas"`
}

// Options configures synthesis.
type Options struct {
	Now    time.Time
	Logger *log.Logger
}

// asnPattern tightens the original's permissive "contains AS" split into
// an anchored token match, per the ASN-parsing open question.
var asnPattern = regexp.MustCompile(`^AS(\d+)$`)

// Synthesize builds the ROA JSON document from route and route6 registry
// objects. A malformed record is logged and skipped; it never aborts the
// whole run (§7).
func Synthesize(routeObjects, route6Objects []*registry.RecordFile, opts Options) Output {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	var entries []Entry
	entries = append(entries, extract(routeObjects, registry.FieldRoute, prefix.V4, logger)...)
	entries = append(entries, extract(route6Objects, registry.FieldRoute6, prefix.V6, logger)...)

	return Output{
		Metadata: Metadata{
			BuildTime: now.UTC().Format(time.RFC3339),
			Counts:    len(entries),
			ROAs:      len(entries),
		},
		ROAs: entries,
	}
}

func extract(objs []*registry.RecordFile, routeField registry.Field, fam prefix.Family, logger *log.Logger) []Entry {
	var out []Entry
	for _, rf := range objs {
		routeStr, ok := rf.GetOne(routeField)
		if !ok {
			logger.Printf("roa: skipping %s: expected exactly one %s: field", rf.Path, routeField)
			continue
		}
		p, err := prefix.Parse(routeStr)
		if err != nil {
			logger.Printf("roa: skipping %s: invalid prefix %q: %v", rf.Path, routeStr, err)
			continue
		}
		if p.Family() != fam {
			logger.Printf("roa: skipping %s: %q is the wrong address family for this directory", rf.Path, routeStr)
			continue
		}

		maxLength, err := resolveMaxLength(rf, p)
		if err != nil {
			logger.Printf("roa: skipping %s: %v", rf.Path, err)
			continue
		}

		origins := rf.Get(registry.FieldOrigin)
		if len(origins) == 0 {
			logger.Printf("roa: skipping %s: missing origin: field", rf.Path)
			continue
		}
		for _, asnStr := range origins {
			asn, err := parseASN(asnStr)
			if err != nil {
				logger.Printf("roa: skipping ASN in %s: %v", rf.Path, err)
				continue
			}
			out = append(out, Entry{ASN: asn, Prefix: p.String(), MaxLength: maxLength})
		}
	}
	return out
}

// resolveMaxLength defaults maxLength to the route's own prefix length only
// when the field is entirely absent, mirroring the original implementation
// rather than always defaulting blindly: a present-but-malformed
// max-length: line is a parse error, not a silent fallback.
func resolveMaxLength(rf *registry.RecordFile, p prefix.Prefix) (uint8, error) {
	vals := rf.Get(registry.FieldMaxLength)
	if len(vals) == 0 {
		return p.Len(), nil
	}
	if len(vals) != 1 {
		return 0, fmt.Errorf("expected exactly one max-length: field, got %d", len(vals))
	}
	n, err := strconv.ParseUint(vals[0], 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid max-length %q: %w", vals[0], err)
	}
	return uint8(n), nil
}

func parseASN(s string) (uint32, error) {
	m := asnPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid ASN token %q", s)
	}
	n, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("ASN %q out of range: %w", s, err)
	}
	return uint32(n), nil
}
