// dnsquery sends one DNS query over UDP and prints the answer,
// flagging responses that match Guardian's sinkhole address so an
// operator can tell a blocked name from a real resolution at a glance.
package main

import (
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"strings"
	"time"

	"github.com/bigr-systems/guardian/internal/dns"
)

var qtypeNames = map[string]dns.RecordType{
	"a":     dns.TypeA,
	"aaaa":  dns.TypeAAAA,
	"cname": dns.TypeCNAME,
	"mx":    dns.TypeMX,
	"ns":    dns.TypeNS,
	"txt":   dns.TypeTXT,
	"ptr":   dns.TypePTR,
}

func main() {
	var (
		server   = flag.String("server", "127.0.0.1:53", "DNS server HOST:PORT")
		name     = flag.String("name", "example.com", "query name")
		qtype    = flag.String("qtype", "a", "query type (a, aaaa, cname, mx, ns, txt, ptr)")
		timeout  = flag.Duration("timeout", 2*time.Second, "query timeout")
		sinkhole = flag.String("sinkhole", "0.0.0.0", "address treated as a Guardian sinkhole answer")
		quiet    = flag.Bool("quiet", false, "no output, exit status only")
	)
	flag.Parse()

	rt, ok := qtypeNames[strings.ToLower(*qtype)]
	if !ok {
		fmt.Fprintf(os.Stderr, "dnsquery: unknown qtype %q\n", *qtype)
		os.Exit(2)
	}

	pkt, err := exchange(*server, *name, rt, *timeout)
	if err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "dnsquery: %v\n", err)
		}
		os.Exit(1)
	}
	if *quiet {
		return
	}
	report(pkt, *sinkhole)
}

func exchange(server, name string, qtype dns.RecordType, timeout time.Duration) (dns.Packet, error) {
	if strings.TrimSpace(name) == "" {
		return dns.Packet{}, errors.New("query name required")
	}

	req := dns.Packet{
		Header: dns.Header{ID: uint16(rand.Uint32() | 1), Flags: dns.RDFlag},
		Questions: []dns.Question{{
			Name:  strings.TrimSuffix(name, "."),
			Type:  uint16(qtype),
			Class: uint16(dns.ClassIN),
		}},
	}
	wire, err := req.Marshal()
	if err != nil {
		return dns.Packet{}, err
	}

	conn, err := net.DialTimeout("udp", server, timeout)
	if err != nil {
		return dns.Packet{}, err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	if _, err := conn.Write(wire); err != nil {
		return dns.Packet{}, err
	}
	buf := make([]byte, dns.MaxIncomingDNSMessageSize)
	n, err := conn.Read(buf)
	if err != nil {
		return dns.Packet{}, err
	}
	return dns.ParsePacket(buf[:n])
}

func report(p dns.Packet, sinkhole string) {
	rcode := dns.RCodeFromFlags(p.Header.Flags)
	fmt.Printf(";; id=%d rcode=%d answers=%d\n", p.Header.ID, rcode, len(p.Answers))

	for _, rr := range p.Answers {
		line := formatRR(rr)
		if ip, ok := rr.IPv4(); ok && ip == sinkhole {
			line += "   ; BLOCKED by guardian"
		}
		fmt.Println(line)
	}
	if rcode == dns.RCodeNXDomain {
		fmt.Println(";; NXDOMAIN")
	}
}

func formatRR(rr dns.Record) string {
	name := rr.Name
	if name == "" {
		name = "."
	}
	if ip, ok := rr.IPv4(); ok {
		return fmt.Sprintf("%s\t%d\tIN\tA\t%s", name, rr.TTL, ip)
	}
	if ip, ok := rr.IPv6(); ok {
		return fmt.Sprintf("%s\t%d\tIN\tAAAA\t%s", name, rr.TTL, ip)
	}
	switch data := rr.Data.(type) {
	case string:
		return fmt.Sprintf("%s\t%d\tIN\tTYPE%d\t%s", name, rr.TTL, rr.Type, data)
	case dns.MXData:
		return fmt.Sprintf("%s\t%d\tIN\tMX\t%d %s", name, rr.TTL, data.Preference, data.Exchange)
	default:
		return fmt.Sprintf("%s\t%d\tIN\tTYPE%d\t(opaque)", name, rr.TTL, rr.Type)
	}
}
