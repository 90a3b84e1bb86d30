package forwardzone

import (
	"testing"

	"github.com/miekg/dns"

	"github.com/dn42/regsynth/internal/fqdn"
	"github.com/dn42/regsynth/internal/registry"
)

func record(fields map[registry.Field][]string) *registry.RecordFile {
	return &registry.RecordFile{Path: "test", Fields: fields}
}

func testOpts() Options {
	return Options{
		PrimaryMaster:    fqdn.MustParse("ns1.example.net."),
		ResponsibleParty: "hostmaster.example.net.",
	}
}

func TestSynthesize_NSAndGlue(t *testing.T) {
	objs := []*registry.RecordFile{
		record(map[registry.Field][]string{
			registry.FieldDomain:  {"burble.dn42"},
			registry.FieldNserver: {"ns1.burble.dn42 172.20.129.1"},
		}),
	}

	zones := Synthesize(objs, testOpts())
	z, ok := zones["dn42"]
	if !ok {
		t.Fatal("expected dn42 zone")
	}

	var foundNS, foundGlue bool
	for _, rr := range z.Records() {
		if ns, ok := rr.(*dns.NS); ok && ns.Header().Name == "burble.dn42." && ns.Ns == "ns1.burble.dn42." {
			foundNS = true
		}
		if a, ok := rr.(*dns.A); ok && a.Header().Name == "ns1.burble.dn42." && a.A.String() == "172.20.129.1" {
			foundGlue = true
		}
	}
	if !foundNS {
		t.Error("missing NS record")
	}
	if !foundGlue {
		t.Error("missing glue A record")
	}
}

func TestSynthesize_RegistrySyncIPv4(t *testing.T) {
	objs := []*registry.RecordFile{
		record(map[registry.Field][]string{
			registry.FieldDomain:  {"burble.dn42"},
			registry.FieldNserver: {"1.129.20.172.ipv4.registry-sync.dn42"},
		}),
	}

	zones := Synthesize(objs, testOpts())
	z, ok := zones["dn42"]
	if !ok {
		t.Fatal("expected dn42 zone")
	}

	var found bool
	for _, rr := range z.Records() {
		if a, ok := rr.(*dns.A); ok &&
			a.Header().Name == "1.129.20.172.ipv4.registry-sync.dn42." &&
			a.A.String() == "172.20.129.1" {
			found = true
		}
	}
	if !found {
		t.Error("missing synthesized registry-sync A record")
	}
}

func TestSynthesize_DSNotOnOwnApex(t *testing.T) {
	objs := []*registry.RecordFile{
		record(map[registry.Field][]string{
			registry.FieldDomain:  {"dn42"},
			registry.FieldNserver: {"ns1.dn42"},
			registry.FieldDSRdata: {"12345 8 2 ABCDEF"},
		}),
	}

	zones := Synthesize(objs, testOpts())
	z := zones["dn42"]
	for _, rec := range z.RawRecordsOfType("DS") {
		if rec.Owner.Equal(z.Origin) {
			t.Error("DS record must not be stamped on its own apex")
		}
	}
}

func TestSynthesize_DSOnNonApexDomain(t *testing.T) {
	objs := []*registry.RecordFile{
		record(map[registry.Field][]string{
			registry.FieldDomain:  {"burble.dn42"},
			registry.FieldNserver: {"ns1.burble.dn42"},
			registry.FieldDSRdata: {"12345 8 2 ABCDEF"},
		}),
	}

	zones := Synthesize(objs, testOpts())
	z := zones["dn42"]
	var found bool
	for _, rec := range z.RawRecordsOfType("DS") {
		if rec.Owner.String() == "burble.dn42." {
			found = true
		}
	}
	if !found {
		t.Error("expected DS record on non-apex domain")
	}
}

func TestSynthesize_DSRdataPassedThroughVerbatim(t *testing.T) {
	const nonCanonical = "12345  8 2   abcdef0123"
	objs := []*registry.RecordFile{
		record(map[registry.Field][]string{
			registry.FieldDomain:  {"burble.dn42"},
			registry.FieldNserver: {"ns1.burble.dn42"},
			registry.FieldDSRdata: {nonCanonical},
		}),
	}

	zones := Synthesize(objs, testOpts())
	z := zones["dn42"]
	var found bool
	for _, rec := range z.RawRecordsOfType("DS") {
		if rec.Owner.String() == "burble.dn42." {
			if rec.Rdata != nonCanonical {
				t.Errorf("expected ds-rdata %q passed through unchanged, got %q", nonCanonical, rec.Rdata)
			}
			found = true
		}
	}
	if !found {
		t.Error("expected DS record on non-apex domain")
	}
}

func TestSynthesize_RejectsZeroOrMultipleDomainFields(t *testing.T) {
	objs := []*registry.RecordFile{
		record(map[registry.Field][]string{
			registry.FieldNserver: {"ns1.dn42"},
		}),
		record(map[registry.Field][]string{
			registry.FieldDomain: {"a.dn42", "b.dn42"},
		}),
	}
	zones := Synthesize(objs, testOpts())
	if len(zones) != 0 {
		t.Errorf("expected no zones from malformed objects, got %v", zones)
	}
}
