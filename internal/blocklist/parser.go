package blocklist

import (
	"bufio"
	"io"
	"strings"
)

// Format identifies a blocklist source's wire format.
type Format string

const (
	FormatHosts   Format = "hosts"
	FormatDomains Format = "domains"
	FormatAdblock Format = "adblock"
)

// neverBlock is the glossary's never-block set: names that must never
// appear in the merged blocklist regardless of what the upstream
// source file contains.
var neverBlock = map[string]struct{}{
	"localhost":             {},
	"localhost.localdomain": {},
	"local":                 {},
	"broadcasthost":         {},
	"ip6-localhost":         {},
	"ip6-loopback":          {},
}

// sinkIPs are the "hosts"-format first-field addresses accepted as a
// blocking entry (0.0.0.0 and 127.0.0.1 are the two conventional
// sinkholes shipped by hosts-format blocklists).
var sinkIPs = map[string]struct{}{
	"0.0.0.0":   {},
	"127.0.0.1": {},
}

// ParseLines parses r according to format, yielding lowercase,
// trailing-dot-stripped domains with comments, blanks, and the
// never-block set already removed.
func ParseLines(r io.Reader, format Format) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var out []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}

		var domain string
		switch format {
		case FormatHosts:
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			if _, ok := sinkIPs[fields[0]]; !ok {
				continue
			}
			domain = fields[1]
		case FormatAdblock:
			d, ok := parseAdblockLine(line)
			if !ok {
				continue
			}
			domain = d
		default: // FormatDomains
			domain = line
		}

		domain = normalizeDomain(domain)
		if domain == "" {
			continue
		}
		if _, blocked := neverBlock[domain]; blocked {
			continue
		}
		out = append(out, domain)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// parseAdblockLine extracts the domain from a simple adblock-style
// rule of the form "||example.com^" (element-hiding and option-bearing
// rules are not blocklist entries and are skipped).
func parseAdblockLine(line string) (string, bool) {
	if !strings.HasPrefix(line, "||") {
		return "", false
	}
	rest := line[2:]
	if idx := strings.IndexAny(rest, "^$/"); idx >= 0 {
		rest = rest[:idx]
	}
	if rest == "" || strings.ContainsAny(rest, "*?") {
		return "", false
	}
	return rest, true
}

// normalizeDomain lowercases and strips a single trailing dot.
func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimSuffix(domain, ".")
	return domain
}

// DeriveCategory implements category derivation: first try
// name-based keywords against the source name, then domain-substring
// keywords, falling back to the source's declared category.
func DeriveCategory(sourceName, domain, declaredCategory string) string {
	lowerName := strings.ToLower(sourceName)
	for keyword, category := range nameKeywords {
		if strings.Contains(lowerName, keyword) {
			return category
		}
	}
	lowerDomain := strings.ToLower(domain)
	for keyword, category := range domainKeywords {
		if strings.Contains(lowerDomain, keyword) {
			return category
		}
	}
	return declaredCategory
}

var nameKeywords = map[string]string{
	"ads":       "advertising",
	"advert":    "advertising",
	"analytics": "analytics",
	"tracking":  "analytics",
	"tracker":   "analytics",
	"malware":   "malware",
	"phishing":  "phishing",
	"porn":      "adult",
	"adult":     "adult",
	"social":    "social",
	"gambling":  "gambling",
}

var domainKeywords = map[string]string{
	"doubleclick": "advertising",
	"googleads":   "advertising",
	"adservice":   "advertising",
	"analytics":   "analytics",
	"metrics":     "analytics",
	"telemetry":   "analytics",
	"malware":     "malware",
	"phish":       "phishing",
}
