// Package forwardzone groups DNS registry objects by TLD and synthesizes
// one forward zone per TLD, including NS delegations, inline glue, DS
// transport, and the registry-sync synthetic A/AAAA records that let a
// nameserver's own address be encoded in its name.
package forwardzone

import (
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/dn42/regsynth/internal/fqdn"
	"github.com/dn42/regsynth/internal/registry"
	"github.com/dn42/regsynth/internal/rrbuild"
	"github.com/dn42/regsynth/internal/zone"
)

// Default SOA timing for every synthesized zone (§4.5).
const (
	soaRefresh = 3600
	soaRetry   = 600
	soaExpire  = 604800
	soaMinimum = 1440
	defaultTTL = 3600
)

const registrySyncSuffix = ".registry-sync.dn42"

// extractedDomainInfo is one domain object's relevant fields.
type extractedDomainInfo struct {
	domain      fqdn.FQDN
	tld         string
	nameServers []registry.NameServer
	dsRdata     []string
}

// Options configures synthesis.
type Options struct {
	PrimaryMaster     fqdn.FQDN
	ResponsibleParty  string
	Now               time.Time
	Logger            *log.Logger
}

// Synthesize builds one zone per distinct TLD found across domainObjects.
func Synthesize(domainObjects []*registry.RecordFile, opts Options) map[string]*zone.Zone {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	var extracted []extractedDomainInfo
	for _, rf := range domainObjects {
		info, err := extractDomainInfo(rf)
		if err != nil {
			logger.Printf("forwardzone: skipping %s: %v", rf.Path, err)
			continue
		}
		extracted = append(extracted, info)
	}

	zones := make(map[string]*zone.Zone)
	ensureZone := func(tld string) *zone.Zone {
		if z, ok := zones[tld]; ok {
			return z
		}
		origin := fqdn.MustParse(tld)
		z := zone.New(origin)
		addSOA(z, opts)
		zones[tld] = z
		return z
	}

	for _, info := range extracted {
		z := ensureZone(info.tld)
		apex := z.Origin

		for _, ns := range info.nameServers {
			nsRR := &dns.NS{
				Hdr: dns.RR_Header{Name: info.domain.String(), Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: defaultTTL},
				Ns:  ns.FQDN.String(),
			}
			if err := z.AddRecord(nsRR); err != nil {
				logger.Printf("forwardzone: NS %s at %s: %v", ns.FQDN, info.domain, err)
			}

			if ns.IP != nil {
				glue := rrbuild.GlueRecord(ns.FQDN, ns.IP, defaultTTL)
				if err := z.AddRecord(glue); err != nil {
					logger.Printf("forwardzone: glue for %s: %v", ns.FQDN, err)
				}
			}
		}

		if !info.domain.Equal(apex) {
			for _, rdata := range info.dsRdata {
				if err := rrbuild.AddDSRecord(z, info.domain.String(), rdata, defaultTTL); err != nil {
					logger.Printf("forwardzone: DS for %s: %v", info.domain, err)
				}
			}
		}
	}

	// Registry-sync synthetic A/AAAA records live in the dn42 zone
	// regardless of which domain object's nserver: line encoded them.
	for _, info := range extracted {
		for _, ns := range info.nameServers {
			rr, ok := decodeRegistrySync(ns.FQDN)
			if !ok {
				if strings.HasSuffix(strings.TrimSuffix(ns.FQDN.String(), "."), registrySyncSuffix) {
					logger.Printf("forwardzone: cannot decode registry-sync name %s", ns.FQDN)
				}
				continue
			}
			z := ensureZone("dn42")
			if err := z.AddRecord(rr); err != nil {
				logger.Printf("forwardzone: registry-sync record for %s: %v", ns.FQDN, err)
			}
		}
	}

	return zones
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

func extractDomainInfo(rf *registry.RecordFile) (extractedDomainInfo, error) {
	domainStr, ok := rf.GetOne(registry.FieldDomain)
	if !ok {
		return extractedDomainInfo{}, fmt.Errorf("expected exactly one domain: field, got %d", len(rf.Get(registry.FieldDomain)))
	}
	domain, err := fqdn.Parse(domainStr)
	if err != nil {
		return extractedDomainInfo{}, fmt.Errorf("domain %q: %w", domainStr, err)
	}

	servers := registry.ParseNameServers(rf.Get(registry.FieldNserver))
	for i := range servers {
		servers[i].FQDN = servers[i].FQDN.WithTrailingDot()
	}

	return extractedDomainInfo{
		domain:      domain.WithTrailingDot(),
		tld:         domain.TLD(),
		nameServers: servers,
		dsRdata:     rf.Get(registry.FieldDSRdata),
	}, nil
}

// decodeRegistrySync recognizes the two dn42 registry-sync shapes and
// synthesizes the corresponding A/AAAA record. Parse failures are reported
// via ok=false; the caller treats them as warnings, not fatal errors.
func decodeRegistrySync(ns fqdn.FQDN) (dns.RR, bool) {
	s := strings.TrimSuffix(ns.String(), ".")
	if !strings.HasSuffix(s, registrySyncSuffix) {
		return nil, false
	}

	labels := ns.Labels()
	// labels ends with ["ipv4"/"ipv6", "registry-sync", "dn42"].
	if len(labels) < 3 {
		return nil, false
	}
	tail := labels[len(labels)-3:]
	if tail[1] != "registry-sync" || tail[2] != "dn42" {
		return nil, false
	}

	switch tail[0] {
	case "ipv4":
		if len(labels) != 7 {
			return nil, false
		}
		octets := labels[0:4]
		rev := make([]string, 4)
		for i, o := range octets {
			rev[3-i] = o
		}
		ipStr := strings.Join(rev, ".")
		ip := net.ParseIP(ipStr)
		if ip == nil || ip.To4() == nil {
			return nil, false
		}
		return &dns.A{
			Hdr: dns.RR_Header{Name: ns.String(), Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: defaultTTL},
			A:   ip.To4(),
		}, true
	case "ipv6":
		if len(labels) != 35 {
			return nil, false
		}
		nibbles := labels[0:32]
		rev := make([]string, 32)
		for i, n := range nibbles {
			if len(n) != 1 {
				return nil, false
			}
			rev[31-i] = n
		}
		var segs [8]string
		for i := 0; i < 8; i++ {
			segs[i] = strings.Join(rev[i*4:i*4+4], "")
		}
		ipStr := strings.Join(segs[:], ":")
		ip := net.ParseIP(ipStr)
		if ip == nil {
			return nil, false
		}
		return &dns.AAAA{
			Hdr:  dns.RR_Header{Name: ns.String(), Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: defaultTTL},
			AAAA: ip.To16(),
		}, true
	default:
		return nil, false
	}
}
