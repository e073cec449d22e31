package guardiandns

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigr-systems/guardian/internal/blocklist"
	dnswire "github.com/bigr-systems/guardian/internal/dns"
	"github.com/bigr-systems/guardian/internal/dnscache"
	"github.com/bigr-systems/guardian/internal/dnsstats"
	"github.com/bigr-systems/guardian/internal/rules"
)

type stubResolver struct {
	resp []byte
	err  error
}

func (s *stubResolver) Resolve(_ context.Context, _ []byte) ([]byte, error) {
	return s.resp, s.err
}

func buildQuery(id uint16, name string, qtype uint16) []byte {
	pkt := dnswire.Packet{
		Header: dnswire.Header{ID: id, Flags: dnswire.RDFlag, QDCount: 1},
		Questions: []dnswire.Question{
			{Name: name, Type: qtype, Class: uint16(dnswire.ClassIN)},
		},
	}
	b, err := pkt.Marshal()
	if err != nil {
		panic(err)
	}
	return b
}

func buildUpstreamAnswer(id uint16, name string, ip net.IP, ttl uint32) []byte {
	pkt := dnswire.Packet{
		Header: dnswire.Header{ID: id, Flags: dnswire.QRFlag | dnswire.RDFlag | dnswire.RAFlag, QDCount: 1, ANCount: 1},
		Questions: []dnswire.Question{
			{Name: name, Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN)},
		},
		Answers: []dnswire.Record{
			{Name: name, Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN), TTL: ttl, Data: []byte(ip.To4())},
		},
	}
	b, err := pkt.Marshal()
	if err != nil {
		panic(err)
	}
	return b
}

func newTestHandler(t *testing.T, resolver Resolver, r *rules.Store, b *blocklist.Store) *Handler {
	t.Helper()
	if r == nil {
		r = rules.New()
	}
	if b == nil {
		b = blocklist.New()
	}
	return New(Config{
		Cache:      dnscache.New(dnscache.Config{NegativeCaching: true}),
		Resolver:   resolver,
		Rules:      r,
		Blocklist:  b,
		Stats:      dnsstats.New(dnsstats.Config{}),
		SinkholeIP: net.IPv4(0, 0, 0, 0),
	})
}

func TestHandleDropsUnparseableQuery(t *testing.T) {
	h := newTestHandler(t, &stubResolver{}, nil, nil)
	resp := h.Handle(t.Context(), []byte{0x01, 0x02})
	assert.Nil(t, resp)
}

func TestHandleSinkholesBlocklistedDomain(t *testing.T) {
	b := blocklist.New()
	b.RegisterSource(&blocklist.Source{ID: 1, Name: "test"})
	b.SyncSource(1, []string{"ads.example.com"}, "advertising")

	h := newTestHandler(t, &stubResolver{}, nil, b)
	req := buildQuery(42, "ads.example.com", uint16(dnswire.TypeA))

	resp := h.Handle(t.Context(), req)
	require.NotEmpty(t, resp)

	pkt, err := dnswire.ParsePacket(resp)
	require.NoError(t, err)
	assert.Equal(t, uint16(42), pkt.Header.ID)
	require.Len(t, pkt.Answers, 1)
	ip, ok := pkt.Answers[0].IPv4()
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0", ip)
	assert.EqualValues(t, 300, pkt.Answers[0].TTL)
}

func TestHandleResolvesAndCachesUpstreamAnswer(t *testing.T) {
	upstream := buildUpstreamAnswer(7, "example.com", net.IPv4(93, 184, 216, 34), 120)
	resolver := &stubResolver{resp: upstream}

	h := newTestHandler(t, resolver, nil, nil)
	req := buildQuery(99, "example.com", uint16(dnswire.TypeA))

	resp := h.Handle(t.Context(), req)
	require.NotEmpty(t, resp)
	pkt, err := dnswire.ParsePacket(resp)
	require.NoError(t, err)
	assert.Equal(t, uint16(99), pkt.Header.ID, "transaction ID must be overwritten to match the request")
	require.Len(t, pkt.Answers, 1)

	resp2 := h.Handle(t.Context(), buildQuery(100, "example.com", uint16(dnswire.TypeA)))
	require.NotEmpty(t, resp2)
	pkt2, err := dnswire.ParsePacket(resp2)
	require.NoError(t, err)
	assert.Equal(t, uint16(100), pkt2.Header.ID)

	snap := h.stats.Summary()
	assert.Equal(t, int64(1), snap.Period.CacheHits, "second identical query must be served from cache")
}

func TestHandleReturnsServfailOnResolverError(t *testing.T) {
	resolver := &stubResolver{err: errors.New("upstream unreachable")}
	h := newTestHandler(t, resolver, nil, nil)

	resp := h.Handle(t.Context(), buildQuery(5, "example.com", uint16(dnswire.TypeA)))
	require.NotEmpty(t, resp)
	pkt, err := dnswire.ParsePacket(resp)
	require.NoError(t, err)
	assert.Equal(t, dnswire.RCodeServFail, dnswire.RCodeFromFlags(pkt.Header.Flags))
}

func TestHandleCustomAllowBypassesBlocklist(t *testing.T) {
	b := blocklist.New()
	b.RegisterSource(&blocklist.Source{ID: 1, Name: "test"})
	b.SyncSource(1, []string{"tracker.example.com"}, "analytics")

	r := rules.New()
	_, err := r.Add(rules.Allow, "tracker.example.com", "", "trusted partner")
	require.NoError(t, err)

	upstream := buildUpstreamAnswer(3, "tracker.example.com", net.IPv4(10, 0, 0, 1), 60)
	h := newTestHandler(t, &stubResolver{resp: upstream}, r, b)

	resp := h.Handle(t.Context(), buildQuery(3, "tracker.example.com", uint16(dnswire.TypeA)))
	require.NotEmpty(t, resp)
	pkt, err := dnswire.ParsePacket(resp)
	require.NoError(t, err)
	ip, ok := pkt.Answers[0].IPv4()
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", ip)
}
