package dns

import (
	"context"
	"encoding/hex"
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/cuemby/tracething/pkg/addr"
	"github.com/cuemby/tracething/pkg/chunk"
	"github.com/cuemby/tracething/pkg/events"
	"github.com/cuemby/tracething/pkg/log"
	"github.com/cuemby/tracething/pkg/metrics"
	"github.com/cuemby/tracething/pkg/slot"
	"github.com/cuemby/tracething/pkg/source"
	"github.com/miekg/dns"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Outcomes recorded per question. Only "answered" and "identity" put records
// on the wire; everything else is an empty answer.
const (
	resultAnswered         = "answered"
	resultIdentity         = "identity"
	resultUnsupportedClass = "unsupported_class"
	resultUnsupportedType  = "unsupported_type"
	resultWrongSuffix      = "wrong_suffix"
	resultUnknownSource    = "unknown_source"
	resultFetchFailed      = "fetch_failed"
	resultInvalidName      = "invalid_name"
	resultEmptySlot        = "empty_slot"
	resultUnknownKind      = "unknown_kind"
	resultBadTarget        = "bad_target"
)

// RouterConfig holds the zone settings the router answers with. Names are
// expected fully qualified and lower-case.
type RouterConfig struct {
	Suffix           string
	Nameserver       string
	TTL              uint32
	IdentityName     string
	IdentityPayload  string
	Sentinel         string
	SentinelDomain   string
	MaxLabelSetBytes int
}

// Publisher receives slot and fetch activity
type Publisher interface {
	Publish(event *events.Event) bool
}

// Router answers one question at a time against the shared slot table
type Router struct {
	cfg          RouterConfig
	suffixLabels int
	sources      *source.Registry
	slots        *slot.Allocator
	codec        *addr.Codec
	fetches      singleflight.Group
	events       Publisher
}

// NewRouter creates a router
func NewRouter(cfg RouterConfig, sources *source.Registry, slots *slot.Allocator, codec *addr.Codec) *Router {
	cfg.Suffix = strings.ToLower(dns.Fqdn(cfg.Suffix))
	cfg.SentinelDomain = strings.ToLower(dns.Fqdn(cfg.SentinelDomain))
	cfg.Nameserver = dns.Fqdn(cfg.Nameserver)
	if cfg.IdentityName != "" {
		cfg.IdentityName = strings.ToLower(dns.Fqdn(cfg.IdentityName))
	}
	if cfg.MaxLabelSetBytes <= 0 {
		cfg.MaxLabelSetBytes = chunk.DefaultMaxLabelSetBytes
	}

	return &Router{
		cfg:          cfg,
		suffixLabels: dns.CountLabel(cfg.Suffix),
		sources:      sources,
		slots:        slots,
		codec:        codec,
	}
}

// SetPublisher attaches an activity sink. Call before serving.
func (r *Router) SetPublisher(p Publisher) {
	r.events = p
}

func (r *Router) publish(t events.EventType, msg string, meta map[string]string) {
	if r.events == nil {
		return
	}
	r.events.Publish(&events.Event{Type: t, Message: msg, Metadata: meta})
}

// Resolve answers q. It never fails: anything that does not match yields
// an empty answer set.
func (r *Router) Resolve(ctx context.Context, q dns.Question) []dns.RR {
	logger := queryLogger(ctx)
	qtype := dns.TypeToString[q.Qtype]

	answers, result := r.resolve(ctx, logger, q)

	metrics.QueriesTotal.WithLabelValues(qtype, result).Inc()
	logger.Debug().
		Str("query", q.Name).
		Str("type", qtype).
		Str("result", result).
		Int("answers", len(answers)).
		Msg("DNS question resolved")

	return answers
}

func (r *Router) resolve(ctx context.Context, logger *zerolog.Logger, q dns.Question) ([]dns.RR, string) {
	if q.Qclass != dns.ClassINET {
		return nil, resultUnsupportedClass
	}

	name := strings.ToLower(dns.Fqdn(q.Name))

	switch q.Qtype {
	case dns.TypeNS:
		if name != r.cfg.Suffix {
			return nil, resultWrongSuffix
		}
		return []dns.RR{&dns.NS{
			Hdr: r.header(q.Name, dns.TypeNS),
			Ns:  r.cfg.Nameserver,
		}}, resultAnswered

	case dns.TypeAAAA:
		return r.resolveAAAA(ctx, logger, q, name)

	case dns.TypePTR:
		return r.resolvePTR(logger, q, name)
	}

	return nil, resultUnsupportedType
}

// resolveAAAA handles <residual...>.<source>.<suffix>
func (r *Router) resolveAAAA(ctx context.Context, logger *zerolog.Logger, q dns.Question, name string) ([]dns.RR, string) {
	if !dns.IsSubDomain(r.cfg.Suffix, name) {
		return nil, resultWrongSuffix
	}

	labels := dns.SplitDomainName(name)
	rest := labels[:len(labels)-r.suffixLabels]
	if len(rest) == 0 {
		return nil, resultWrongSuffix
	}
	key, residual := rest[len(rest)-1], rest[:len(rest)-1]

	if _, ok := r.sources.Lookup(key); !ok {
		return nil, resultUnknownSource
	}

	// A live slot answers again without refetching
	if id, ok := r.slots.Lookup(name); ok {
		return []dns.RR{r.aaaa(q.Name, id)}, resultAnswered
	}

	v, err, shared := r.fetches.Do(name, func() (interface{}, error) {
		return r.fetchAndAllocate(ctx, logger, key, residual, name)
	})
	if err != nil {
		var fe *source.FetchError
		ev := logger.Warn().Err(err).Str("query", q.Name).Str("source", key)
		if errors.As(err, &fe) {
			ev = ev.Str("failed_source", fe.Source)
		}
		ev.Msg("content fetch failed, answering empty")
		r.publish(events.EventFetchFailed, err.Error(), map[string]string{
			"query":  name,
			"source": key,
		})
		return nil, resultFetchFailed
	}
	if shared {
		logger.Debug().Str("query", q.Name).Msg("shared in-flight fetch")
	}

	return []dns.RR{r.aaaa(q.Name, v.(uint16))}, resultAnswered
}

func (r *Router) fetchAndAllocate(ctx context.Context, logger *zerolog.Logger, key string, residual []string, name string) (uint16, error) {
	timer := metrics.NewTimer()
	text, _, err := r.sources.Fetch(ctx, key, residual)
	timer.ObserveDurationVec(metrics.FetchDuration, key)
	if err != nil {
		metrics.FetchesTotal.WithLabelValues(key, "error").Inc()
		return 0, err
	}
	metrics.FetchesTotal.WithLabelValues(key, "ok").Inc()

	chunks := chunk.Split(text, r.cfg.MaxLabelSetBytes)
	metrics.ChunksPerResult.Observe(float64(len(chunks)))

	id, evicted := r.slots.Allocate(name, chunks)
	metrics.SlotAllocations.Inc()
	if evicted {
		metrics.SlotEvictions.Inc()
	}
	metrics.SlotsInUse.Set(float64(r.slots.Stats().Used))

	logger.Info().
		Str("query", name).
		Str("source", key).
		Uint16("slot", id).
		Int("chunks", len(chunks)).
		Bool("evicted", evicted).
		Msg("allocated slot")

	meta := map[string]string{
		"query":  name,
		"source": key,
		"slot":   strconv.Itoa(int(id)),
		"chunks": strconv.Itoa(len(chunks)),
	}
	r.publish(events.EventSlotAllocated, "allocated slot "+meta["slot"], meta)
	if evicted {
		r.publish(events.EventSlotEvicted, "evicted previous occupant of slot "+meta["slot"], map[string]string{
			"slot": meta["slot"],
		})
	}

	return id, nil
}

// resolvePTR handles reverse names carrying a (slot, chunk, kind) triple
func (r *Router) resolvePTR(logger *zerolog.Logger, q dns.Question, name string) ([]dns.RR, string) {
	if !addr.IsReverseName(name) {
		return nil, resultInvalidName
	}

	if r.cfg.IdentityName != "" && name == r.cfg.IdentityName {
		return []dns.RR{&dns.RFC3597{
			Hdr:   r.header(q.Name, dns.TypePTR),
			Rdata: hex.EncodeToString([]byte(r.cfg.IdentityPayload)),
		}}, resultIdentity
	}

	rq, err := addr.DecodeReverseName(name)
	if err != nil {
		logger.Debug().Err(err).Str("query", q.Name).Msg("undecodable reverse name")
		return nil, resultInvalidName
	}

	rs, ok := r.slots.Get(int(rq.Slot))
	if !ok {
		return nil, resultEmptySlot
	}

	var target string
	switch rq.Kind {
	case addr.KindOriginName:
		target = rs.OriginName
	case addr.KindChunk:
		c, ok := rs.Chunk(int(rq.Chunk))
		if !ok {
			c = r.cfg.Sentinel
		}
		target = c + "." + r.cfg.SentinelDomain
	default:
		return nil, resultUnknownKind
	}

	if _, ok := dns.IsDomainName(target); !ok {
		logger.Warn().
			Str("query", q.Name).
			Uint16("slot", rq.Slot).
			Uint16("chunk", rq.Chunk).
			Msg("PTR target is not a valid domain name")
		return nil, resultBadTarget
	}

	return []dns.RR{&dns.PTR{
		Hdr: r.header(q.Name, dns.TypePTR),
		Ptr: target,
	}}, resultAnswered
}

func (r *Router) aaaa(owner string, id uint16) dns.RR {
	return &dns.AAAA{
		Hdr:  r.header(owner, dns.TypeAAAA),
		AAAA: net.IP(r.codec.EncodeAAAA(id).AsSlice()),
	}
}

func (r *Router) header(owner string, rrtype uint16) dns.RR_Header {
	return dns.RR_Header{
		Name:   owner,
		Rrtype: rrtype,
		Class:  dns.ClassINET,
		Ttl:    r.cfg.TTL,
	}
}

// queryLogger returns the per-query logger carried by ctx, falling back to
// a component logger.
func queryLogger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	l := log.WithComponent("dns.router")
	return &l
}
