// Package prefix implements the IPv4/IPv6 CIDR value type with the
// bit-level operations the reverse-zone synthesizer is built on.
package prefix

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Family distinguishes IPv4 from IPv6 prefixes.
type Family int

const (
	V4 Family = iota
	V6
)

func (f Family) maxLen() int {
	if f == V4 {
		return 32
	}
	return 128
}

func (f Family) byteLen() int {
	if f == V4 {
		return 4
	}
	return 16
}

// Prefix is an (network, prefix length) pair. The zero value is invalid;
// build one with New or Parse.
type Prefix struct {
	network net.IP // always 4 or 16 bytes, family-normalized
	len     uint8
	family  Family
}

// New constructs a Prefix, masking host bits of ip to zero.
func New(ip net.IP, prefixLen uint8, fam Family) (Prefix, error) {
	norm := normalizeIP(ip, fam)
	if norm == nil {
		return Prefix{}, fmt.Errorf("prefix: invalid address %v for family", ip)
	}
	if int(prefixLen) > fam.maxLen() {
		return Prefix{}, fmt.Errorf("prefix: prefix length %d exceeds family max %d", prefixLen, fam.maxLen())
	}
	masked := maskIP(norm, int(prefixLen))
	return Prefix{network: masked, len: prefixLen, family: fam}, nil
}

// Parse parses "a.b.c.d/n" or "aaaa::bbbb/n".
func Parse(s string) (Prefix, error) {
	idx := strings.IndexByte(s, '/')
	if idx < 0 {
		return Prefix{}, fmt.Errorf("prefix: missing '/' in %q", s)
	}
	addrPart, lenPart := s[:idx], s[idx+1:]

	ip := net.ParseIP(addrPart)
	if ip == nil {
		return Prefix{}, fmt.Errorf("prefix: invalid address %q", addrPart)
	}

	fam := V6
	v4 := ip.To4()
	if v4 != nil && !strings.Contains(addrPart, ":") {
		fam = V4
		ip = v4
	}

	n, err := strconv.ParseUint(lenPart, 10, 8)
	if err != nil {
		return Prefix{}, fmt.Errorf("prefix: invalid prefix length %q: %w", lenPart, err)
	}
	if int(n) > fam.maxLen() {
		return Prefix{}, fmt.Errorf("prefix: prefix length %d exceeds family max %d", n, fam.maxLen())
	}

	return New(ip, uint8(n), fam)
}

func normalizeIP(ip net.IP, fam Family) net.IP {
	if fam == V4 {
		v4 := ip.To4()
		return v4
	}
	return ip.To16()
}

func maskIP(ip net.IP, prefixLen int) net.IP {
	out := make(net.IP, len(ip))
	copy(out, ip)
	full := prefixLen / 8
	rem := prefixLen % 8
	for i := full; i < len(out); i++ {
		if i == full && rem > 0 {
			mask := byte(0xFF << (8 - rem))
			out[i] &= mask
			continue
		}
		if i >= full {
			out[i] = 0
		}
	}
	return out
}

// Family returns the address family.
func (p Prefix) Family() Family { return p.family }

// Len returns the prefix length.
func (p Prefix) Len() uint8 { return p.len }

// IP returns the (masked) network address.
func (p Prefix) IP() net.IP { return p.network }

// String renders "a.b.c.d/n".
func (p Prefix) String() string {
	return fmt.Sprintf("%s/%d", p.network.String(), p.len)
}

// Octets returns the raw address bytes (4 or 16).
func (p Prefix) Octets() []byte { return []byte(p.network) }

// GetBits returns the ordered sequence of 0/1 bytes of length Len(),
// MSB-first across the octet array of the network.
func (p Prefix) GetBits() []byte {
	bits := make([]byte, p.len)
	for i := 0; i < int(p.len); i++ {
		byteIdx := i / 8
		bitIdx := 7 - (i % 8)
		if p.network[byteIdx]&(1<<uint(bitIdx)) != 0 {
			bits[i] = 1
		}
	}
	return bits
}

// FromBits packs a 0/1 bit sequence into a zero-padded octet array of the
// given family's length. The resulting prefix length equals len(bits).
func FromBits(bits []byte, fam Family) (Prefix, error) {
	if len(bits) > fam.maxLen() {
		return Prefix{}, fmt.Errorf("prefix: %d bits exceeds family max %d", len(bits), fam.maxLen())
	}
	out := make(net.IP, fam.byteLen())
	for i, b := range bits {
		if b == 0 {
			continue
		}
		byteIdx := i / 8
		bitIdx := 7 - (i % 8)
		out[byteIdx] |= 1 << uint(bitIdx)
	}
	return Prefix{network: out, len: uint8(len(bits)), family: fam}, nil
}

// WithPrefixLen returns the Prefix obtained by truncating or zero-extending
// the bit sequence to n bits. Rejects n greater than the family maximum.
func (p Prefix) WithPrefixLen(n uint8) (Prefix, error) {
	if int(n) > p.family.maxLen() {
		return Prefix{}, fmt.Errorf("prefix: prefix length %d exceeds family max %d", n, p.family.maxLen())
	}
	bits := p.GetBits()
	if int(n) <= len(bits) {
		bits = bits[:n]
	} else {
		padded := make([]byte, n)
		copy(padded, bits)
		bits = padded
	}
	return FromBits(bits, p.family)
}

// Contains reports whether p covers other bit-for-bit (other's leading
// p.Len() bits equal p's network bits). Both must share a family.
func (p Prefix) Contains(other Prefix) bool {
	if p.family != other.family || p.len > other.len {
		return false
	}
	pb, ob := p.GetBits(), other.GetBits()
	for i := range pb {
		if pb[i] != ob[i] {
			return false
		}
	}
	return true
}

// Equal compares network and prefix length for structural equality.
func (p Prefix) Equal(other Prefix) bool {
	return p.family == other.family && p.len == other.len && p.network.Equal(other.network)
}
