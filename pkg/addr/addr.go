// Package addr maps (slot, chunk, kind) triples to synthetic IPv6 addresses
// and back from their ip6.arpa reverse names.
//
// The low 64 bits of an address carry four 16-bit groups:
//
//	prefix (64 bits) : kind : reserved : chunk : slot
//
// An AAAA answer is the base prefix with the slot id in the last group. The
// default base has kind 1 in its fifth group, so reverse-resolving an AAAA
// answer as-is yields the origin name; clients then rewrite kind to 2 and
// step the chunk group to walk the content.
package addr

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/miekg/dns"
)

// Kind selects what a reverse lookup answers with
type Kind uint16

const (
	// KindOriginName answers with the name that allocated the slot
	KindOriginName Kind = 1

	// KindChunk answers with the chunk at the encoded index
	KindChunk Kind = 2
)

// ReverseSuffix is the zone reverse names live under
const ReverseSuffix = "ip6.arpa."

// reverseLabels is 32 nibble labels plus "ip6" and "arpa"
const reverseLabels = 34

// ErrInvalidReverseName is returned for names that do not decode
var ErrInvalidReverseName = errors.New("invalid reverse name")

// fieldNibbles lists, per field, the reverse-name label indexes holding its
// nibbles from most to least significant. Label 0 is the lowest nibble of
// the address.
var fieldNibbles = [4][4]int{
	{3, 2, 1, 0},     // slot
	{7, 6, 5, 4},     // chunk
	{11, 10, 9, 8},   // reserved
	{15, 14, 13, 12}, // kind
}

const (
	fieldSlot = iota
	fieldChunk
	fieldReserved
	fieldKind
)

// Query is the triple a reverse name carries
type Query struct {
	Slot  uint16
	Chunk uint16
	Kind  Kind
}

// Codec encodes and decodes addresses under one base prefix
type Codec struct {
	base [16]byte
}

// NewCodec parses base, which must be an IPv6 address whose reserved,
// chunk and slot groups are zero.
func NewCodec(base string) (*Codec, error) {
	a, err := netip.ParseAddr(base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base prefix: %w", err)
	}
	if !a.Is6() || a.Is4In6() {
		return nil, fmt.Errorf("base prefix must be IPv6: %s", base)
	}

	b := a.As16()
	for _, v := range b[10:] {
		if v != 0 {
			return nil, fmt.Errorf("base prefix must end in three zero groups: %s", base)
		}
	}
	return &Codec{base: b}, nil
}

// Base returns the configured base address
func (c *Codec) Base() netip.Addr {
	return netip.AddrFrom16(c.base)
}

// EncodeAAAA returns the address answered for slot id
func (c *Codec) EncodeAAAA(id uint16) netip.Addr {
	b := c.base
	b[14] = byte(id >> 8)
	b[15] = byte(id)
	return netip.AddrFrom16(b)
}

// Address builds the full address for q under the base's upper 64 bits
func (c *Codec) Address(q Query) netip.Addr {
	var b [16]byte
	copy(b[:8], c.base[:8])
	putGroup(b[:], 8, uint16(q.Kind))
	putGroup(b[:], 12, q.Chunk)
	putGroup(b[:], 14, q.Slot)
	return netip.AddrFrom16(b)
}

// EncodeReverseName returns the fully qualified ip6.arpa name for q
func (c *Codec) EncodeReverseName(q Query) string {
	name, err := dns.ReverseAddr(c.Address(q).String())
	if err != nil {
		// A valid netip.Addr always reverses
		panic(err)
	}
	return name
}

func putGroup(b []byte, at int, v uint16) {
	b[at] = byte(v >> 8)
	b[at+1] = byte(v)
}

// IsReverseName reports whether name is under ip6.arpa with full arity
func IsReverseName(name string) bool {
	name = strings.ToLower(dns.Fqdn(name))
	return dns.IsSubDomain(ReverseSuffix, name) && dns.CountLabel(name) == reverseLabels
}

// DecodeReverseName extracts the triple from a reverse name. The prefix
// nibbles are not checked against the base.
func DecodeReverseName(name string) (Query, error) {
	labels := dns.SplitDomainName(strings.ToLower(name))
	if len(labels) != reverseLabels {
		return Query{}, fmt.Errorf("%w: want %d labels, got %d", ErrInvalidReverseName, reverseLabels, len(labels))
	}
	if labels[32] != "ip6" || labels[33] != "arpa" {
		return Query{}, fmt.Errorf("%w: not under %s", ErrInvalidReverseName, ReverseSuffix)
	}

	var nibbles [32]uint16
	for i, l := range labels[:32] {
		v, ok := hexNibble(l)
		if !ok {
			return Query{}, fmt.Errorf("%w: label %d is not a hex nibble: %q", ErrInvalidReverseName, i, l)
		}
		nibbles[i] = v
	}

	field := func(f int) uint16 {
		var v uint16
		for _, idx := range fieldNibbles[f] {
			v = v<<4 | nibbles[idx]
		}
		return v
	}

	return Query{
		Slot:  field(fieldSlot),
		Chunk: field(fieldChunk),
		Kind:  Kind(field(fieldKind)),
	}, nil
}

func hexNibble(l string) (uint16, bool) {
	if len(l) != 1 {
		return 0, false
	}
	switch c := l[0]; {
	case c >= '0' && c <= '9':
		return uint16(c - '0'), true
	case c >= 'a' && c <= 'f':
		return uint16(c-'a') + 10, true
	}
	return 0, false
}
