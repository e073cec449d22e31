// Package guardiandns is the filtering DNS server: the query pipeline
// (parse, cache lookup, decision, upstream resolve, cache store,
// stats) plus UDP and TCP listeners.
package guardiandns

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"time"

	dnswire "github.com/bigr-systems/guardian/internal/dns"
	"github.com/bigr-systems/guardian/internal/dnscache"
	"github.com/bigr-systems/guardian/internal/dnsstats"
	"github.com/bigr-systems/guardian/internal/decision"
)

// RulesChecker and BlocklistChecker mirror decision.Decide's
// collaborators, kept local so callers can pass either the concrete
// stores or test doubles.
type RulesChecker = decision.RulesChecker
type BlocklistChecker = decision.BlocklistChecker

// Resolver is the subset of resolve.Resolver the handler needs.
type Resolver interface {
	Resolve(ctx context.Context, reqBytes []byte) ([]byte, error)
}

// Config configures a Handler.
type Config struct {
	Logger       *slog.Logger
	Cache        *dnscache.Cache
	Resolver     Resolver
	Rules        RulesChecker
	Blocklist    BlocklistChecker
	Stats        *dnsstats.Tracker
	SinkholeIP   net.IP
	QueryTimeout time.Duration // default 4s
	SinkholeTTL  uint32        // default 300
	DefaultTTL   uint32        // cap on cached answer TTLs, and the TTL for negative or unparseable responses; default 300
}

// Handler implements query pipeline.
type Handler struct {
	logger       *slog.Logger
	cache        *dnscache.Cache
	resolver     Resolver
	rules        RulesChecker
	blocklist    BlocklistChecker
	stats        *dnsstats.Tracker
	sinkholeIP   net.IP
	queryTimeout time.Duration
	sinkholeTTL  uint32
	defaultTTL   uint32
}

// New builds a Handler from Config, applying defaults for zero fields.
func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 4 * time.Second
	}
	if cfg.SinkholeTTL == 0 {
		cfg.SinkholeTTL = 300
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 300
	}
	if cfg.SinkholeIP == nil {
		cfg.SinkholeIP = net.IPv4(0, 0, 0, 0)
	}
	return &Handler{
		logger:       cfg.Logger,
		cache:        cfg.Cache,
		resolver:     cfg.Resolver,
		rules:        cfg.Rules,
		blocklist:    cfg.Blocklist,
		stats:        cfg.Stats,
		sinkholeIP:   cfg.SinkholeIP,
		queryTimeout: cfg.QueryTimeout,
		sinkholeTTL:  cfg.SinkholeTTL,
		defaultTTL:   cfg.DefaultTTL,
	}
}

// Handle runs one query through the full pipeline and returns the wire
// bytes to send back, or nil if the query should be silently dropped.
func (h *Handler) Handle(ctx context.Context, reqBytes []byte) []byte {
	pkt, err := dnswire.ParseRequestBounded(reqBytes)
	if err != nil {
		h.logger.DebugContext(ctx, "dropping unparseable dns query", "error", err)
		return nil
	}
	q := pkt.Questions[0]
	key := cacheKey(q.Name, q.Type)

	if cached, ok, _ := h.cache.Get(key); ok {
		h.recordStat(q.Name, dnsstats.ActionAllow, "cache_hit", true)
		return overwriteTxID(cached, pkt.Header.ID)
	}

	d := decision.Decide(q.Name, h.rules, h.blocklist)
	if d.Verdict == decision.Sinkhole {
		resp := h.buildSinkholeResponse(pkt)
		b, err := resp.Marshal()
		if err != nil {
			h.logger.ErrorContext(ctx, "marshal sinkhole response", "error", err)
			return nil
		}
		h.recordStat(q.Name, dnsstats.ActionSinkhole, string(d.Reason), false)
		return b
	}

	rctx, cancel := context.WithTimeout(ctx, h.queryTimeout)
	defer cancel()
	respBytes, err := h.resolver.Resolve(rctx, reqBytes)
	if err != nil {
		h.logger.WarnContext(ctx, "upstream resolve failed", "domain", q.Name, "error", err)
		errResp := dnswire.BuildErrorResponse(pkt, uint16(dnswire.RCodeServFail))
		b, _ := errResp.Marshal()
		h.recordStat(q.Name, dnsstats.ActionError, "upstream_failure", false)
		return b
	}

	respBytes = overwriteTxID(respBytes, pkt.Header.ID)
	ttl, entryType := h.classifyResponse(respBytes)
	h.cache.Set(key, respBytes, ttl, entryType)
	h.recordStat(q.Name, dnsstats.ActionAllow, string(d.Reason), false)
	return respBytes
}

func (h *Handler) recordStat(domain string, action dnsstats.Action, reason string, cacheHit bool) {
	if h.stats != nil {
		h.stats.RecordQuery(domain, action, reason, cacheHit)
	}
}

// buildSinkholeResponse synthesizes an A-record answer pointing at the
// configured sinkhole IP.
func (h *Handler) buildSinkholeResponse(req dnswire.Packet) dnswire.Packet {
	flags := uint16(dnswire.QRFlag) | (req.Header.Flags & dnswire.RDFlag) | dnswire.RAFlag

	answer := dnswire.Record{
		Name:  req.Questions[0].Name,
		Type:  uint16(dnswire.TypeA),
		Class: uint16(dnswire.ClassIN),
		TTL:   h.sinkholeTTL,
		Data:  []byte(h.sinkholeIP.To4()),
	}

	return dnswire.Packet{
		Header: dnswire.Header{
			ID:      req.Header.ID,
			Flags:   flags,
			QDCount: 1,
			ANCount: 1,
		},
		Questions: req.Questions,
		Answers:   []dnswire.Record{answer},
	}
}

// classifyResponse parses an upstream response to determine the TTL
// to cache it under — min(answer TTLs, default 300) — and its
// negative-caching classification.
func (h *Handler) classifyResponse(respBytes []byte) (time.Duration, dnscache.EntryType) {
	pkt, err := dnswire.ParsePacket(respBytes)
	if err != nil {
		return time.Duration(h.defaultTTL) * time.Second, dnscache.SERVFAIL
	}

	rcode := dnswire.RCodeFromFlags(pkt.Header.Flags)
	switch rcode {
	case dnswire.RCodeServFail:
		return time.Duration(h.defaultTTL) * time.Second, dnscache.SERVFAIL
	case dnswire.RCodeNXDomain:
		return time.Duration(h.defaultTTL) * time.Second, dnscache.NXDOMAIN
	}

	if len(pkt.Answers) == 0 {
		return time.Duration(h.defaultTTL) * time.Second, dnscache.NODATA
	}

	minTTL := pkt.Answers[0].TTL
	for _, rr := range pkt.Answers[1:] {
		if rr.TTL < minTTL {
			minTTL = rr.TTL
		}
	}
	if minTTL > h.defaultTTL {
		minTTL = h.defaultTTL
	}
	return time.Duration(minTTL) * time.Second, dnscache.Positive
}

func cacheKey(fqdn string, qtype uint16) string {
	return fmt.Sprintf("%s:%d", fqdn, qtype)
}

// overwriteTxID rewrites the 2-byte transaction ID at the front of a
// wire-format response, needed whenever a cached or singleflight-shared
// answer is replayed to a caller whose request carried a different ID.
func overwriteTxID(resp []byte, id uint16) []byte {
	if len(resp) < 2 {
		return resp
	}
	out := make([]byte, len(resp))
	copy(out, resp)
	binary.BigEndian.PutUint16(out[0:2], id)
	return out
}
