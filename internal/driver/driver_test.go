package driver

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dn42/regsynth/internal/refresh"
)

func writeObject(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newTestDriver(t *testing.T) (*Driver, string) {
	t.Helper()
	root := t.TempDir()
	paths := Paths{
		Root:        root,
		IPv4Route:   "route",
		IPv6Route:   "route6",
		DNS:         "dns",
		IPv4Inetnum: "inetnum",
		IPv6Inetnum: "inet6num",
	}
	for _, sub := range []string{"route", "route6", "dns", "inetnum", "inet6num"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, sub), 0o755))
	}
	opts := SynthOptions{PrimaryMaster: "ns1.example.net.", ResponsibleParty: "hostmaster.example.net."}
	d := New(paths, refresh.NoopRefresher{}, opts, time.Hour, log.New(os.Stderr, "", 0))
	return d, root
}

func TestDriver_EmptyRegistryPublishesEmptySnapshots(t *testing.T) {
	d, _ := newTestDriver(t)

	d.RunOnce(context.Background())

	require.NotEmpty(t, d.ROA(), "expected a non-empty (but zero-count) ROA document")
	_, ok := d.DNSContent("in-addr.arpa.")
	require.True(t, ok, "expected in-addr.arpa. zone to be published even with no inetnum objects")
}

func TestDriver_PublishesForwardAndReverseZones(t *testing.T) {
	d, root := newTestDriver(t)
	writeObject(t, filepath.Join(root, "dns"), "burble.dn42", "domain: burble.dn42\nnserver: ns1.burble.dn42 172.20.129.1\n")

	d.RunOnce(context.Background())

	text, ok := d.DNSContent("dn42")
	require.True(t, ok, "expected dn42 zone to be published")
	require.NotEmpty(t, text)

	_, ok = d.DNSContent("in-addr.arpa.")
	require.True(t, ok, "expected in-addr.arpa. zone to be published")
}

func TestDriver_RunOnceRepublishesAcrossCycles(t *testing.T) {
	d, _ := newTestDriver(t)

	d.RunOnce(context.Background())
	first := d.ROA()
	d.RunOnce(context.Background())
	second := d.ROA()

	require.NotEmpty(t, first)
	require.NotEmpty(t, second)
}

func TestDriver_RunCancelsAtNextTick(t *testing.T) {
	d, _ := newTestDriver(t)
	d.interval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d.Run(ctx)

	require.NotEmpty(t, d.ROA(), "expected at least the immediate cycle to have published")
}
