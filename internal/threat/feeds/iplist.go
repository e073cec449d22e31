package feeds

import (
	"bufio"
	"context"
	"encoding/binary"
	"net"
	"net/http"
	"strings"
)

// maxExpandedHosts bounds the number of individual addresses a single
// CIDR block is expanded into, so a hostile feed cannot exhaust
// memory.
const maxExpandedHosts = 500_000

// IPListParser reads a plain-text, line-oriented IP/CIDR blocklist
// (e.g. CINS, FireHOL level lists).
type IPListParser struct {
	FeedName string
	URL      string
}

var _ Parser = (*IPListParser)(nil)

func (p *IPListParser) Name() string { return p.FeedName }

// Fetch scans the list line by line: one entry per
// non-empty, non-comment line; bare IPv4 addresses pass through
// unchanged; CIDR blocks with prefix <= 24 emit only their network
// address as a representative, narrower blocks (prefix > 24) are
// expanded host by host up to maxExpandedHosts.
func (p *IPListParser) Fetch(ctx context.Context, client *http.Client) ([]Indicator, error) {
	resp, err := doRequest(ctx, client, http.MethodGet, p.URL, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out []Indicator
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		// Some lists trail entries with a comment separated by whitespace.
		if idx := strings.IndexAny(line, " \t"); idx != -1 {
			line = line[:idx]
		}

		if ip := net.ParseIP(line); ip != nil && !strings.Contains(line, "/") {
			out = append(out, Indicator{IP: ip.String(), IndicatorType: "blocklisted", SourceFeed: p.FeedName})
			continue
		}

		ip, ipnet, err := net.ParseCIDR(line)
		if err != nil {
			continue
		}
		ones, bits := ipnet.Mask.Size()
		if bits != 32 {
			continue // IPv6 expansion is out of scope; representative handling only applies to v4 feeds observed in the corpus.
		}
		if ones <= 24 {
			out = append(out, Indicator{IP: ipnet.IP.String(), IndicatorType: "blocklisted", SourceFeed: p.FeedName})
			continue
		}
		hosts := expandHosts(ipnet, maxExpandedHosts)
		for _, h := range hosts {
			out = append(out, Indicator{IP: h, IndicatorType: "blocklisted", SourceFeed: p.FeedName})
		}
		_ = ip
	}
	if err := scanner.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// expandHosts enumerates every address in ipnet, capped at limit
// entries, using the uint32 IP<->int encoding pattern from
// common/network/network.go's IPAddrToUint32/Uint32ToIPAddr.
func expandHosts(ipnet *net.IPNet, limit int) []string {
	base := ipToUint32(ipnet.IP)
	ones, bits := ipnet.Mask.Size()
	size := bits - ones
	count := 1 << uint(size)
	if count > limit {
		count = limit
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, uint32ToIP(base+uint32(i)).String())
	}
	return out
}

func ipToUint32(ip net.IP) uint32 {
	b := ip.To4()
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func uint32ToIP(v uint32) net.IP {
	b := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(b, v)
	return b
}
