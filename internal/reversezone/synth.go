// Package reversezone synthesizes the in-addr.arpa and ip6.arpa zones from
// inetnum/inet6num registry objects, including RFC 2317 classless
// delegation for non-octet-aligned IPv4 blocks.
package reversezone

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/dn42/regsynth/internal/fqdn"
	"github.com/dn42/regsynth/internal/prefix"
	"github.com/dn42/regsynth/internal/prefixtrie"
	"github.com/dn42/regsynth/internal/registry"
	"github.com/dn42/regsynth/internal/rrbuild"
	"github.com/dn42/regsynth/internal/zone"
)

const (
	soaRefresh = 3600
	soaRetry   = 600
	soaExpire  = 604800
	soaMinimum = 1440
	defaultTTL = 3600
)

const (
	v4Origin = "in-addr.arpa."
	v6Origin = "ip6.arpa."
)

// Stats tallies how many leaf prefixes fell into each delegation shape
// across one synthesis run (§4.6.4). Non-fatal; purely observational.
type Stats struct {
	IPv4Align    int
	IPv4NonAlign int
	IPv6Align    int
	IPv6NonAlign int
}

// Options configures synthesis.
type Options struct {
	PrimaryMaster    fqdn.FQDN
	ResponsibleParty string
	Now              time.Time
	Logger           *log.Logger
}

type extractedNetworkInfo struct {
	cidr        prefix.Prefix
	nameServers []registry.NameServer
	dsRdata     []string
}

// Synthesize builds the in-addr.arpa and ip6.arpa zones from inetnum and
// inet6num registry objects. It always returns both zones, each seeded with
// an apex NS record, even if no leaf delegations are produced.
func Synthesize(inetnumObjects, inet6numObjects []*registry.RecordFile, opts Options) (zones map[string]*zone.Zone, stats Stats) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	v4Zone := zone.New(fqdn.MustParse(v4Origin))
	v6Zone := zone.New(fqdn.MustParse(v6Origin))
	addSOA(v4Zone, opts)
	addSOA(v6Zone, opts)
	addApexNS(v4Zone, opts)
	addApexNS(v6Zone, opts)

	v4Trie := prefixtrie.New(prefix.V4)
	v6Trie := prefixtrie.New(prefix.V6)
	v4Info := make(map[string]extractedNetworkInfo)
	v6Info := make(map[string]extractedNetworkInfo)

	collect := func(objs []*registry.RecordFile, fam prefix.Family, trie *prefixtrie.Tree, info map[string]extractedNetworkInfo) {
		for _, rf := range objs {
			ex, err := extractNetworkInfo(rf, fam)
			if err != nil {
				logger.Printf("reversezone: skipping %s: %v", rf.Path, err)
				continue
			}
			if len(ex.nameServers) == 0 {
				continue
			}
			trie.Insert(ex.cidr)
			info[ex.cidr.String()] = ex
		}
	}
	collect(inetnumObjects, prefix.V4, v4Trie, v4Info)
	collect(inet6numObjects, prefix.V6, v6Trie, v6Info)

	for _, leaf := range v4Trie.Leaves() {
		ex, ok := v4Info[leaf.String()]
		if !ok {
			continue
		}
		emitIPv4(v4Zone, ex, &stats, logger)
	}
	for _, leaf := range v6Trie.Leaves() {
		ex, ok := v6Info[leaf.String()]
		if !ok {
			continue
		}
		emitIPv6(v6Zone, ex, &stats, logger)
	}

	return map[string]*zone.Zone{
		v4Origin: v4Zone,
		v6Origin: v6Zone,
	}, stats
}

func addSOA(z *zone.Zone, opts Options) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	serial := uint32(now.Unix() % (1 << 32))

	soa := &dns.SOA{
		Hdr:     dns.RR_Header{Name: z.Origin.String(), Rrtype: dns.TypeSOA, Class: dns.ClassINET, Ttl: defaultTTL},
		Ns:      opts.PrimaryMaster.String(),
		Mbox:    opts.ResponsibleParty,
		Serial:  serial,
		Refresh: soaRefresh,
		Retry:   soaRetry,
		Expire:  soaExpire,
		Minttl:  soaMinimum,
	}
	_ = z.AddRecord(soa)
}

// addApexNS ensures every generated zone is serveable in isolation (§4.6).
func addApexNS(z *zone.Zone, opts Options) {
	ns := &dns.NS{
		Hdr: dns.RR_Header{Name: z.Origin.String(), Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: defaultTTL},
		Ns:  opts.PrimaryMaster.String(),
	}
	_ = z.AddRecord(ns)
}

func extractNetworkInfo(rf *registry.RecordFile, fam prefix.Family) (extractedNetworkInfo, error) {
	cidrStr, ok := rf.GetOne(registry.FieldCidr)
	if !ok {
		return extractedNetworkInfo{}, fmt.Errorf("expected exactly one cidr: field, got %d", len(rf.Get(registry.FieldCidr)))
	}
	p, err := prefix.Parse(cidrStr)
	if err != nil {
		return extractedNetworkInfo{}, fmt.Errorf("cidr %q: %w", cidrStr, err)
	}
	if p.Family() != fam {
		return extractedNetworkInfo{}, fmt.Errorf("cidr %q: wrong address family for this directory", cidrStr)
	}

	servers := registry.ParseNameServers(rf.Get(registry.FieldNserver))

	return extractedNetworkInfo{
		cidr:        p,
		nameServers: servers,
		dsRdata:     rf.Get(registry.FieldDSRdata),
	}, nil
}

// emitIPv4 implements §4.6.1: octet-aligned delegation names the prefix
// directly; non-aligned prefixes get a synthetic "/L" zone plus one CNAME
// per covered address (RFC 2317).
func emitIPv4(z *zone.Zone, ex extractedNetworkInfo, stats *Stats, logger *log.Logger) {
	octets := ex.cidr.Octets()
	l := int(ex.cidr.Len())

	if l%8 == 0 {
		stats.IPv4Align++
		k := l / 8
		name := reverseOctetsName(octets[:k])
		if name == "" {
			name = v4Origin
		}
		addDelegation(z, name, ex, logger)
		return
	}

	stats.IPv4NonAlign++
	k := l / 8
	r := l % 8
	h := int(octets[k])

	tail := reverseOctetsName(octets[:k])
	var synthName string
	if tail == "" {
		synthName = fmt.Sprintf("%d/%d.in-addr.arpa.", h, l)
	} else {
		synthName = fmt.Sprintf("%d/%d.%s", h, l, tail)
	}
	addDelegation(z, synthName, ex, logger)

	span := 1 << uint(8-r)
	for i := h; i < h+span; i++ {
		var classicName string
		if tail == "" {
			classicName = fmt.Sprintf("%d.in-addr.arpa.", i)
		} else {
			classicName = fmt.Sprintf("%d.%s", i, tail)
		}
		cname := &dns.CNAME{
			Hdr:    dns.RR_Header{Name: classicName, Rrtype: dns.TypeCNAME, Class: dns.ClassINET, Ttl: defaultTTL},
			Target: fmt.Sprintf("%d.%s", i, synthName),
		}
		if err := z.AddRecord(cname); err != nil {
			logger.Printf("reversezone: CNAME %s: %v", classicName, err)
		}
	}
}

// reverseOctetsName renders the first k octets of an address, most
// significant last, dot-joined and suffixed with "in-addr.arpa.". An empty
// octets slice (k=0, a /0) returns "" and the caller appends the origin.
func reverseOctetsName(octets []byte) string {
	if len(octets) == 0 {
		return ""
	}
	parts := make([]string, len(octets))
	for i, o := range octets {
		parts[len(octets)-1-i] = strconv.Itoa(int(o))
	}
	return strings.Join(parts, ".") + ".in-addr.arpa."
}

// emitIPv6 implements §4.6.2: nibble-aligned delegation only. Non-aligned
// prefixes are warned about, counted, and skipped.
func emitIPv6(z *zone.Zone, ex extractedNetworkInfo, stats *Stats, logger *log.Logger) {
	l := int(ex.cidr.Len())
	if l%4 != 0 {
		stats.IPv6NonAlign++
		logger.Printf("reversezone: %s is not nibble-aligned, skipping", ex.cidr.String())
		return
	}
	stats.IPv6Align++

	k := l / 4
	octets := ex.cidr.Octets()
	nibbles := make([]byte, 32)
	for i, o := range octets {
		nibbles[i*2] = o >> 4
		nibbles[i*2+1] = o & 0x0F
	}

	name := v6Origin
	if k > 0 {
		parts := make([]string, k)
		for i := 0; i < k; i++ {
			parts[k-1-i] = strconv.FormatUint(uint64(nibbles[i]), 16)
		}
		name = strings.Join(parts, ".") + ".ip6.arpa."
	}

	addDelegation(z, name, ex, logger)
}

// addDelegation emits the NS (+optional glue), and optional DS records for
// a reverse-zone delegation apex (§4.6.3).
func addDelegation(z *zone.Zone, name string, ex extractedNetworkInfo, logger *log.Logger) {
	for _, ns := range ex.nameServers {
		nsRR := &dns.NS{
			Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: defaultTTL},
			Ns:  ns.FQDN.String(),
		}
		if err := z.AddRecord(nsRR); err != nil {
			logger.Printf("reversezone: NS %s at %s: %v", ns.FQDN, name, err)
			continue
		}
		if ns.IP != nil {
			glue := rrbuild.GlueRecord(ns.FQDN, ns.IP, defaultTTL)
			if err := z.AddRecord(glue); err != nil {
				logger.Printf("reversezone: glue for %s: %v", ns.FQDN, err)
			}
		}
	}

	for _, rdata := range ex.dsRdata {
		if err := rrbuild.AddDSRecord(z, name, rdata, defaultTTL); err != nil {
			logger.Printf("reversezone: DS at %s: %v", name, err)
		}
	}
}
