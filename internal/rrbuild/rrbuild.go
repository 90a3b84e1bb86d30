// Package rrbuild holds the small pieces of record construction shared by
// the forward- and reverse-zone synthesizers: inline glue records and
// ds-rdata passthrough. Factored out once both synthesizers needed the
// exact same handful of lines.
package rrbuild

import (
	"net"

	"github.com/miekg/dns"

	"github.com/dn42/regsynth/internal/fqdn"
	"github.com/dn42/regsynth/internal/zone"
)

// GlueRecord builds an inline A or AAAA record for a nameserver address,
// chosen by the shape of ip.
func GlueRecord(ns fqdn.FQDN, ip net.IP, ttl uint32) dns.RR {
	if v4 := ip.To4(); v4 != nil {
		return &dns.A{
			Hdr: dns.RR_Header{Name: ns.String(), Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: ttl},
			A:   v4,
		}
	}
	return &dns.AAAA{
		Hdr:  dns.RR_Header{Name: ns.String(), Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: ttl},
		AAAA: ip.To16(),
	}
}

// AddDSRecord inserts a ds-rdata: value on z, owned by owner. Per the data
// model (§3), ds-rdata is opaque and passed through: it is never split,
// parsed, or reformatted, and is rendered later byte-for-byte exactly as
// given in the registry object.
func AddDSRecord(z *zone.Zone, owner, rdata string, ttl uint32) error {
	return z.AddRawRecord(owner, ttl, "DS", rdata)
}
