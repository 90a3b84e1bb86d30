// Package zone implements the Zone value type: an origin, an SOA record,
// and a set of resource records, all of which must lie within the origin.
//
// DNSRecord's variant enumeration (A/AAAA/CNAME/NS/PTR/MX/TXT/SRV/SOA/DS) is
// realized directly as github.com/miekg/dns's dns.RR interface rather than
// a hand-rolled sum type — the teacher's own zone model (internal/zone in
// the dnsscienced pack) is built the same way. Structural set-dedup keys on
// rr.String(), a full serialization of name/class/ttl/rdata, which is
// exactly the "full structural value equality" the model calls for.
package zone

import (
	"fmt"

	"github.com/miekg/dns"

	"github.com/dn42/regsynth/internal/fqdn"
)

// Zone is an origin, an SOA record, and a hashed set of resource records.
type Zone struct {
	Origin fqdn.FQDN
	SOA    *dns.SOA

	records map[string]dns.RR // keyed by rr.String() for structural dedup
	order   []string          // insertion order of the keys above

	rawRecords map[string]RawRecord // opaque records, keyed by type+owner+rdata
	rawOrder   []string
}

// RawRecord is an opaque resource record whose rdata is never parsed or
// reformatted — it is stored and rendered exactly as given. ds-rdata: is
// the one field the data model defines this way (§3: "opaque, passed
// through"), so it is carried as a RawRecord rather than a dns.RR.
type RawRecord struct {
	Owner fqdn.FQDN
	TTL   uint32
	Type  string // e.g. "DS"
	Rdata string
}

// New creates an empty zone at origin.
func New(origin fqdn.FQDN) *Zone {
	return &Zone{
		Origin:     origin.WithTrailingDot(),
		records:    make(map[string]dns.RR),
		rawRecords: make(map[string]RawRecord),
	}
}

// AddRecord inserts rr if its owner name lies within the zone's origin
// (equal to it or a child of it). Duplicate structural inserts are
// idempotent. SOA records are additionally stored in z.SOA.
func (z *Zone) AddRecord(rr dns.RR) error {
	if rr == nil {
		return fmt.Errorf("zone: cannot add nil record")
	}

	owner, err := fqdn.Parse(rr.Header().Name)
	if err != nil {
		return fmt.Errorf("zone: record owner %q: %w", rr.Header().Name, err)
	}
	if !owner.Equal(z.Origin) && !owner.IsChildOf(z.Origin) {
		return fmt.Errorf("zone: record %s not within origin %s", owner, z.Origin)
	}

	key := rr.String()
	if _, exists := z.records[key]; !exists {
		z.records[key] = rr
		z.order = append(z.order, key)
	}

	if soa, ok := rr.(*dns.SOA); ok {
		z.SOA = soa
	}
	return nil
}

// Records returns all records currently in the zone, in insertion order.
// Insertion order is not semantically meaningful (see the formatter's
// explicit sort) but is kept stable for reproducible tests.
func (z *Zone) Records() []dns.RR {
	out := make([]dns.RR, 0, len(z.order))
	for _, k := range z.order {
		out = append(out, z.records[k])
	}
	return out
}

// Len returns the number of distinct records in the zone.
func (z *Zone) Len() int { return len(z.records) }

// AddRawRecord inserts an opaque record if owner lies within the zone's
// origin, the same placement rule AddRecord enforces for typed records.
// rdata is stored verbatim: it is never parsed, validated, or
// reformatted, matching the "passed through" data model for fields like
// ds-rdata:.
func (z *Zone) AddRawRecord(owner string, ttl uint32, recordType, rdata string) error {
	ownerFQDN, err := fqdn.Parse(owner)
	if err != nil {
		return fmt.Errorf("zone: record owner %q: %w", owner, err)
	}
	if !ownerFQDN.Equal(z.Origin) && !ownerFQDN.IsChildOf(z.Origin) {
		return fmt.Errorf("zone: record %s not within origin %s", ownerFQDN, z.Origin)
	}

	key := recordType + " " + ownerFQDN.String() + " " + rdata
	if _, exists := z.rawRecords[key]; !exists {
		z.rawRecords[key] = RawRecord{Owner: ownerFQDN, TTL: ttl, Type: recordType, Rdata: rdata}
		z.rawOrder = append(z.rawOrder, key)
	}
	return nil
}

// RawRecords returns all opaque records in the zone, in insertion order.
func (z *Zone) RawRecords() []RawRecord {
	out := make([]RawRecord, 0, len(z.rawOrder))
	for _, k := range z.rawOrder {
		out = append(out, z.rawRecords[k])
	}
	return out
}

// RawRecordsOfType returns all opaque records of the given type (e.g.
// "DS"), in insertion order.
func (z *Zone) RawRecordsOfType(recordType string) []RawRecord {
	var out []RawRecord
	for _, k := range z.rawOrder {
		if rec := z.rawRecords[k]; rec.Type == recordType {
			out = append(out, rec)
		}
	}
	return out
}

// RecordsOfType returns all records of the given RR type, in insertion
// order.
func (z *Zone) RecordsOfType(rrtype uint16) []dns.RR {
	var out []dns.RR
	for _, k := range z.order {
		rr := z.records[k]
		if rr.Header().Rrtype == rrtype {
			out = append(out, rr)
		}
	}
	return out
}
