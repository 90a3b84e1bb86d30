package zonefmt

import (
	"strings"
	"testing"

	"github.com/miekg/dns"

	"github.com/dn42/regsynth/internal/fqdn"
	"github.com/dn42/regsynth/internal/zone"
)

func newTestZone(t *testing.T) *zone.Zone {
	t.Helper()
	z := zone.New(fqdn.MustParse("dn42."))
	soa := &dns.SOA{
		Hdr:     dns.RR_Header{Name: "dn42.", Rrtype: dns.TypeSOA, Class: dns.ClassINET, Ttl: 3600},
		Ns:      "ns1.example.net.",
		Mbox:    "hostmaster.example.net.",
		Serial:  2024010100,
		Refresh: 3600,
		Retry:   600,
		Expire:  604800,
		Minttl:  1440,
	}
	if err := z.AddRecord(soa); err != nil {
		t.Fatal(err)
	}
	return z
}

func TestRender_HeaderAndSOA(t *testing.T) {
	z := newTestZone(t)
	out := Render(z, nil)

	if !strings.Contains(out, "$TTL 3600") {
		t.Error("missing $TTL line")
	}
	if !strings.Contains(out, "$ORIGIN dn42.") {
		t.Error("missing $ORIGIN line")
	}
	if !strings.Contains(out, "SOA") {
		t.Error("missing SOA record")
	}
	if !strings.Contains(out, "; serial") || !strings.Contains(out, "; refresh") ||
		!strings.Contains(out, "; update retry") || !strings.Contains(out, "; expiry") ||
		!strings.Contains(out, "; minimum") {
		t.Errorf("SOA block missing labeled comments:\n%s", out)
	}
}

func TestRender_DefaultTTLElided(t *testing.T) {
	z := newTestZone(t)
	z.AddRecord(&dns.NS{Hdr: dns.RR_Header{Name: "dn42.", Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: 3600}, Ns: "ns1.example.net."})
	z.AddRecord(&dns.A{Hdr: dns.RR_Header{Name: "ns1.burble.dn42.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 3600}, A: []byte{172, 20, 129, 1}})

	out := Render(z, nil)
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "NS") && strings.Contains(line, "ns1.example.net.") {
			if strings.Contains(line, "3600") {
				t.Errorf("default-TTL record should elide TTL, got line: %q", line)
			}
		}
	}
}

func TestRender_NonDefaultTTLShown(t *testing.T) {
	z := newTestZone(t)
	// Two records at 3600 against one at 60, so 3600 is the most frequent
	// TTL (a tie would go to the lower value, 60).
	z.AddRecord(&dns.NS{Hdr: dns.RR_Header{Name: "dn42.", Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: 3600}, Ns: "ns1.example.net."})
	z.AddRecord(&dns.NS{Hdr: dns.RR_Header{Name: "burble.dn42.", Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: 3600}, Ns: "ns1.burble.dn42."})
	z.AddRecord(&dns.A{Hdr: dns.RR_Header{Name: "ns1.burble.dn42.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60}, A: []byte{172, 20, 129, 1}})

	out := Render(z, nil)
	found := false
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "ns1.burble") && strings.Contains(line, "60") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected non-default TTL 60 to appear:\n%s", out)
	}
}

func TestRender_ApexRendersAsAt(t *testing.T) {
	z := newTestZone(t)
	z.AddRecord(&dns.NS{Hdr: dns.RR_Header{Name: "dn42.", Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: 3600}, Ns: "ns1.example.net."})

	out := Render(z, nil)
	found := false
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == "@" && strings.Contains(line, "NS") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected apex NS record to render name as @:\n%s", out)
	}
}

func TestRender_TXTQuotingEscapesEmbeddedQuote(t *testing.T) {
	z := newTestZone(t)
	z.AddRecord(&dns.TXT{Hdr: dns.RR_Header{Name: "dn42.", Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: 3600}, Txt: []string{`say "hi"`}})

	out := Render(z, nil)
	if !strings.Contains(out, `"say \"hi\""`) {
		t.Errorf("expected escaped TXT quoting, got:\n%s", out)
	}
}

func TestRender_DSRendersRdataVerbatim(t *testing.T) {
	z := newTestZone(t)
	const nonCanonical = "12345  8 2   abcdef0123"
	if err := z.AddRawRecord("dn42.", 3600, "DS", nonCanonical); err != nil {
		t.Fatal(err)
	}

	out := Render(z, nil)
	if !strings.Contains(out, nonCanonical) {
		t.Errorf("expected ds-rdata to render byte-for-byte unchanged, got:\n%s", out)
	}
}

func TestRender_SortsByNameThenType(t *testing.T) {
	z := newTestZone(t)
	z.AddRecord(&dns.A{Hdr: dns.RR_Header{Name: "b.dn42.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 3600}, A: []byte{1, 1, 1, 1}})
	z.AddRecord(&dns.A{Hdr: dns.RR_Header{Name: "a.dn42.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 3600}, A: []byte{2, 2, 2, 2}})

	out := Render(z, nil)
	idxA := strings.Index(out, "1.1.1.1")
	idxB := strings.Index(out, "2.2.2.2")
	if idxB == -1 || idxA == -1 || idxB > idxA {
		t.Errorf("expected a.dn42 (2.2.2.2) to sort before b.dn42 (1.1.1.1):\n%s", out)
	}
}

func TestRender_WellFormedZoneReportsNoSkips(t *testing.T) {
	z := newTestZone(t)
	// An out-of-origin record; it is never added to the zone.
	bad := &dns.A{Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 3600}, A: []byte{9, 9, 9, 9}}

	var skipped []string
	onSkip := func(name, rrtype, reason string) { skipped = append(skipped, name+" "+rrtype) }

	// Can't insert via AddRecord (it would reject), so build a throwaway
	// zone sharing the SOA but containing the bad record through the
	// exported constructor path only — here we just assert Render doesn't
	// panic when given a well-formed zone, and that onSkip is plumbed.
	_ = bad
	out := Render(z, onSkip)
	if len(skipped) != 0 {
		t.Errorf("unexpected skips for well-formed zone: %v", skipped)
	}
	if out == "" {
		t.Error("expected non-empty render")
	}
}

func TestRender_PanicsWithoutSOA(t *testing.T) {
	z := zone.New(fqdn.MustParse("dn42."))
	defer func() {
		if recover() == nil {
			t.Error("expected panic rendering zone without SOA")
		}
	}()
	Render(z, nil)
}
