// Package zonefmt renders a zone.Zone into conventional DNS master-file
// text: a $TTL/$ORIGIN header, the SOA block, and column-aligned records
// with default-TTL elision.
//
// The builder-reuse pattern below mirrors the teacher's sync.Pool usage in
// internal/pool/buffers.go (there pooling *dns.Msg to cut GC pressure on
// the hot query path; here pooling *strings.Builder to cut allocation
// pressure on the periodic-regeneration hot path, which re-renders every
// zone from scratch each cycle).
package zonefmt

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/miekg/dns"

	"github.com/dn42/regsynth/internal/fqdn"
	"github.com/dn42/regsynth/internal/zone"
)

const defaultTTLFallback = 3600

var builderPool = sync.Pool{
	New: func() interface{} { return new(strings.Builder) },
}

func getBuilder() *strings.Builder {
	b := builderPool.Get().(*strings.Builder)
	b.Reset()
	return b
}

func putBuilder(b *strings.Builder) {
	builderPool.Put(b)
}

// SkipFunc is called for a record that lies outside the zone's origin
// instead of crashing the formatter; the caller typically logs it.
type SkipFunc func(name, rrtype, reason string)

// row is a zone line ready to render: a name (relative to origin, "@" at
// apex), a TTL, a type string, and a pre-rendered rdata string. Typed
// dns.RR records and opaque zone.RawRecord values (ds-rdata:'s
// passed-through text) are both flattened into this shape so they sort
// and column-align together.
type row struct {
	name  string
	ttl   uint32
	typ   string
	rdata string
}

// Render produces the master-file text for z. Callers must populate z.SOA
// before calling Render; a zone without an SOA is a programmer error
// (assertion violation per the error taxonomy), and Render panics.
func Render(z *zone.Zone, onSkip SkipFunc) string {
	if z.SOA == nil {
		panic(fmt.Sprintf("zonefmt: zone %s has no SOA record", z.Origin))
	}

	var rows []row
	for _, rr := range z.Records() {
		if rr.Header().Rrtype == dns.TypeSOA {
			continue
		}
		owner, err := fqdn.Parse(rr.Header().Name)
		if err != nil {
			if onSkip != nil {
				onSkip(rr.Header().Name, dns.TypeToString[rr.Header().Rrtype], err.Error())
			}
			continue
		}
		rel, ok := owner.RelativeTo(z.Origin)
		if !ok {
			if onSkip != nil {
				onSkip(rr.Header().Name, dns.TypeToString[rr.Header().Rrtype], "name not within origin")
			}
			continue
		}
		rows = append(rows, row{name: rel, ttl: rr.Header().Ttl, typ: dns.TypeToString[rr.Header().Rrtype], rdata: rdata(rr)})
	}

	for _, rec := range z.RawRecords() {
		rel, ok := rec.Owner.RelativeTo(z.Origin)
		if !ok {
			if onSkip != nil {
				onSkip(rec.Owner.String(), rec.Type, "name not within origin")
			}
			continue
		}
		rows = append(rows, row{name: rel, ttl: rec.TTL, typ: rec.Type, rdata: rec.Rdata})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].name != rows[j].name {
			return rows[i].name < rows[j].name
		}
		return rows[i].typ < rows[j].typ
	})

	defaultTTL := mostFrequentTTL(rows, func(r row) uint32 { return r.ttl })

	nameCol := 5
	ttlCol := 3
	classCol := 2
	typeCol := 4
	for _, r := range rows {
		if n := len(r.name); n > nameCol {
			nameCol = n
		}
		if r.ttl != defaultTTL {
			if n := len(fmt.Sprint(r.ttl)); n > ttlCol {
				ttlCol = n
			}
		}
		if n := len(r.typ); n > typeCol {
			typeCol = n
		}
	}
	_ = classCol // always "IN": 2, matches the minimum.

	b := getBuilder()
	defer putBuilder(b)

	fmt.Fprintf(b, "$TTL %d\n", defaultTTL)
	fmt.Fprintf(b, "$ORIGIN %s\n", z.Origin.String())
	writeSOA(b, z.SOA, nameCol, ttlCol, defaultTTL)

	for _, r := range rows {
		writeRow(b, r, nameCol, ttlCol, classCol, typeCol, defaultTTL)
	}

	return b.String()
}

func mostFrequentTTL[T any](rows []T, ttlOf func(T) uint32) uint32 {
	if len(rows) == 0 {
		return defaultTTLFallback
	}
	counts := make(map[uint32]int)
	for _, r := range rows {
		counts[ttlOf(r)]++
	}
	var best uint32 = defaultTTLFallback
	bestCount := -1
	// Deterministic tie-break: lowest TTL value wins.
	ttls := make([]uint32, 0, len(counts))
	for ttl := range counts {
		ttls = append(ttls, ttl)
	}
	sort.Slice(ttls, func(i, j int) bool { return ttls[i] < ttls[j] })
	for _, ttl := range ttls {
		if counts[ttl] > bestCount {
			bestCount = counts[ttl]
			best = ttl
		}
	}
	return best
}

func writeSOA(b *strings.Builder, soa *dns.SOA, nameCol, ttlCol int, defaultTTL uint32) {
	fmt.Fprintf(b, "%-*s %-*s IN  SOA %s %s (\n",
		nameCol, "@", ttlCol, ttlField(soa.Hdr.Ttl, ttlCol, defaultTTL),
		ensureFQDN(soa.Ns), ensureFQDN(soa.Mbox))
	fmt.Fprintf(b, "                %-10d ; serial\n", soa.Serial)
	fmt.Fprintf(b, "                %-10d ; refresh\n", soa.Refresh)
	fmt.Fprintf(b, "                %-10d ; update retry\n", soa.Retry)
	fmt.Fprintf(b, "                %-10d ; expiry\n", soa.Expire)
	fmt.Fprintf(b, "                %-10d ) ; minimum\n", soa.Minttl)
}

func ttlField(ttl uint32, ttlCol int, defaultTTL uint32) string {
	if ttl == defaultTTL {
		return strings.Repeat(" ", ttlCol+1)
	}
	return fmt.Sprint(ttl)
}

func writeRow(b *strings.Builder, r row, nameCol, ttlCol, classCol, typeCol int, defaultTTL uint32) {
	fmt.Fprintf(b, "%-*s %-*s %-*s %-*s %s\n",
		nameCol, r.name,
		ttlCol, ttlField(r.ttl, ttlCol, defaultTTL),
		classCol, "IN",
		typeCol, r.typ,
		r.rdata)
}

func rdata(rr dns.RR) string {
	switch v := rr.(type) {
	case *dns.A:
		return v.A.String()
	case *dns.AAAA:
		return v.AAAA.String()
	case *dns.CNAME:
		return ensureFQDN(v.Target)
	case *dns.NS:
		return ensureFQDN(v.Ns)
	case *dns.PTR:
		return ensureFQDN(v.Ptr)
	case *dns.MX:
		return fmt.Sprintf("%d %s", v.Preference, ensureFQDN(v.Mx))
	case *dns.SRV:
		return fmt.Sprintf("%d %d %d %s", v.Priority, v.Weight, v.Port, ensureFQDN(v.Target))
	case *dns.TXT:
		parts := make([]string, len(v.Txt))
		for i, s := range v.Txt {
			parts[i] = quoteTXT(s)
		}
		return strings.Join(parts, " ")
	default:
		return rr.String()
	}
}

func quoteTXT(s string) string {
	escaped := strings.ReplaceAll(s, `"`, `\"`)
	return `"` + escaped + `"`
}

// ensureFQDN replaces "@" with "." and appends a trailing dot if absent, so
// every rendered target name is an unambiguous absolute name regardless of
// where it was sourced from.
//
// Owner names never need a similar quoting pass: fqdn.Parse's label grammar
// (§4.1) already excludes whitespace and ':' from labels, so a relative
// name can only ever be "@" (the literal apex marker, rendered bare per
// spec) or a dot-joined run of valid labels — nothing master-file syntax
// would misparse.
func ensureFQDN(name string) string {
	name = strings.ReplaceAll(name, "@", ".")
	if !strings.HasSuffix(name, ".") {
		name += "."
	}
	return name
}
