// bench load-tests a running Guardian resolver over UDP and reports
// throughput, latency percentiles, and the rcode mix — the rcode
// breakdown shows how much of the load was sinkholed or SERVFAILed
// rather than resolved.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/bigr-systems/guardian/internal/dns"
)

type sample struct {
	latency time.Duration
	rcode   dns.RCode
}

func main() {
	var (
		server      = flag.String("server", "127.0.0.1:53", "DNS server HOST:PORT")
		name        = flag.String("name", "example.com", "query name")
		concurrency = flag.Int("concurrency", 200, "concurrent workers")
		requests    = flag.Int("requests", 20000, "total requests")
		timeout     = flag.Duration("timeout", 2*time.Second, "per-request timeout")
	)
	flag.Parse()

	addr, err := net.ResolveUDPAddr("udp", *server)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bench: %v\n", err)
		os.Exit(1)
	}

	req := dns.Packet{
		Header:    dns.Header{ID: 0x4744, Flags: dns.RDFlag},
		Questions: []dns.Question{{Name: *name, Type: uint16(dns.TypeA), Class: uint16(dns.ClassIN)}},
	}
	wire, err := req.Marshal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bench: %v\n", err)
		os.Exit(1)
	}

	workers := max(*concurrency, 1)
	total := max(*requests, 1)

	results := make(chan sample, total)
	t0 := time.Now()

	var wg sync.WaitGroup
	for w := range workers {
		n := total / workers
		if w < total%workers {
			n++
		}
		if n == 0 {
			continue
		}
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			runWorker(addr, wire, *timeout, n, results)
		}(n)
	}
	wg.Wait()
	close(results)
	elapsed := time.Since(t0)

	printSummary(*server, *name, workers, elapsed, results)
}

func runWorker(addr *net.UDPAddr, wire []byte, timeout time.Duration, n int, out chan<- sample) {
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return
	}
	defer conn.Close()

	buf := make([]byte, dns.MaxIncomingDNSMessageSize)
	for range n {
		start := time.Now()
		_ = conn.SetDeadline(start.Add(timeout))
		if _, err := conn.Write(wire); err != nil {
			continue
		}
		read, err := conn.Read(buf)
		if err != nil {
			continue
		}
		s := sample{latency: time.Since(start)}
		if p, err := dns.ParsePacket(buf[:read]); err == nil {
			s.rcode = dns.RCodeFromFlags(p.Header.Flags)
		}
		out <- s
	}
}

func printSummary(server, name string, workers int, elapsed time.Duration, results <-chan sample) {
	var latencies []float64
	rcodes := map[dns.RCode]int{}
	for s := range results {
		latencies = append(latencies, float64(s.latency.Microseconds())/1000.0)
		rcodes[s.rcode]++
	}
	if len(latencies) == 0 {
		fmt.Println("no successful requests")
		return
	}
	sort.Float64s(latencies)

	fmt.Printf("server=%s name=%q workers=%d ok=%d elapsed_s=%.3f qps=%.1f\n",
		server, name, workers, len(latencies), elapsed.Seconds(),
		float64(len(latencies))/elapsed.Seconds())
	fmt.Printf("latency_ms p50=%.3f p95=%.3f p99=%.3f min=%.3f max=%.3f\n",
		percentile(latencies, 50), percentile(latencies, 95), percentile(latencies, 99),
		latencies[0], latencies[len(latencies)-1])
	fmt.Printf("rcodes noerror=%d nxdomain=%d servfail=%d other=%d\n",
		rcodes[dns.RCodeNoError], rcodes[dns.RCodeNXDomain], rcodes[dns.RCodeServFail],
		len(latencies)-rcodes[dns.RCodeNoError]-rcodes[dns.RCodeNXDomain]-rcodes[dns.RCodeServFail])
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := len(sorted)*p/100 - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
