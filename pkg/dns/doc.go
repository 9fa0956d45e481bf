/*
Package dns provides the tracething authoritative DNS responder.

The responder answers for a single zone suffix. A forward AAAA query names
a content source and its arguments; the answer is an IPv6 address whose
low bits carry the slot the fetched text was stored in. Reverse PTR queries
against addresses derived from that slot then read the content back one
chunk at a time.

# Architecture

	┌──────────────────────────────────────────────────────────────┐
	│                      DNS Server                              │
	│  • One miekg/dns listener per network (udp, tcp)             │
	│  • Assigns a query id, recovers panics                       │
	└────────┬─────────────────────────────────────────────────────┘
	         │
	         ▼
	┌──────────────────────────────────────────────────────────────┐
	│                        Router                                │
	│  • NS at the apex                                            │
	│  • AAAA: source registry → chunker → slot allocator          │
	│  • PTR: address codec → slot table                           │
	└──────────────────────────────────────────────────────────────┘

## Forward Flow

	Query: AAAA abc123.octocat.gist.thing.f0x.es.
	  ↓
	1. Strip the zone suffix, last remaining label is the source key (gist)
	  ↓
	2. Name already holds a live slot? Answer that slot, no fetch
	  ↓
	3. Fetch with residual labels [abc123 octocat], coalesced per name
	  ↓
	4. Chunk the text, allocate the next slot in the ring
	  ↓
	5. Answer 2a0f:9400:7311:1337:1::<slot>

## Reverse Flow

The reverse name of an AAAA answer decodes as kind 1 and returns the origin
name. Setting the kind nibble to 2 and the chunk group to N returns chunk N
under the sentinel domain:

	Query: PTR <32 nibbles>.ip6.arpa. (slot 1f, chunk 0, kind 2)
	Response:
	└── ... 60 IN PTR hello.world.hello.world.0--0.f0x.es.

Past the last chunk the answer is end-of-the-line.0--0.f0x.es., which tells
a client to stop walking.

# Empty Answers

Anything the router cannot answer produces NOERROR with no records: other
zones, unknown sources, failed fetches, empty slots, unknown kinds and
unsupported types or classes. The reason is logged with the query id and
counted in tracething_dns_queries_total under the result label. A message
that does not carry exactly one question gets FORMERR.

# Usage

	router := dns.NewRouter(cfg, registry, slots, codec)
	server := dns.NewServer(router, &dns.Config{
		ListenAddr: "[::]:53",
		Networks:   []string{"udp", "tcp"},
	})
	if err := server.Start(ctx); err != nil {
		return err
	}
	defer server.Stop()
*/
package dns
