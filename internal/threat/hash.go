package threat

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
)

// fallbackHMACKey is used when THREAT_HMAC_KEY is unset:
// "absence falls back to a deterministic derived key." It is not a
// secret in the cryptographic sense — operators who care about the
// privacy guarantee must configure a real key.
const fallbackHMACKey = "guardian-threat-ingestor-default-key"

// ResolveHMACKey returns configured, or the fallback if it is empty.
func ResolveHMACKey(configured string) string {
	if configured != "" {
		return configured
	}
	return fallbackHMACKey
}

// HashSubnet implements Threat Indicator identity:
// HMAC-SHA256(secret, subnet_string), hex-encoded.
func HashSubnet(secret, subnet string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(subnet))
	return hex.EncodeToString(mac.Sum(nil))
}

// Subnet24 derives the /24 network string for ip, e.g.
// "192.168.1.57" -> "192.168.1.0/24".
func Subnet24(ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("threat: invalid ip %q", ip)
	}
	v4 := parsed.To4()
	if v4 == nil {
		return "", fmt.Errorf("threat: ipv6 not supported: %q", ip)
	}
	network := net.IPv4(v4[0], v4[1], v4[2], 0)
	return fmt.Sprintf("%s/24", network.String()), nil
}

// privateNetworks enumerates the RFC 1918 and RFC 6598 (CGNAT)
// ranges.
var privateNetworks = parseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"100.64.0.0/10",
)

func parseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		out = append(out, n)
	}
	return out
}

// IsPrivate reports whether ip falls within a private or CGNAT
// range; only those subnets may keep a cleartext prefix on disk.
func IsPrivate(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range privateNetworks {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}
