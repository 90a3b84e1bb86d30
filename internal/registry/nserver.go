package registry

import (
	"net"
	"strings"

	"github.com/dn42/regsynth/internal/fqdn"
)

// NameServer is a parsed nserver: line: an FQDN and an optional inline
// glue address. Shared between the forward- and reverse-zone
// synthesizers, which both accept "nserver: fqdn [ip]" lines.
type NameServer struct {
	FQDN fqdn.FQDN
	IP   net.IP // nil if the line carried no address
}

// ParseNameServers parses a list of raw nserver: values. Lines that don't
// whitespace-split into one or two tokens, or whose first token isn't a
// valid FQDN, are silently skipped — the registry is human-edited.
func ParseNameServers(lines []string) []NameServer {
	var out []NameServer
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 || len(fields) > 2 {
			continue
		}
		name, err := fqdn.Parse(fields[0])
		if err != nil {
			continue
		}
		var ip net.IP
		if len(fields) == 2 {
			ip = net.ParseIP(fields[1])
		}
		out = append(out, NameServer{FQDN: name, IP: ip})
	}
	return out
}
