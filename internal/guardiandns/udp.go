package guardiandns

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"runtime"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	dnswire "github.com/bigr-systems/guardian/internal/dns"
	"github.com/bigr-systems/guardian/internal/pool"
)

const defaultWorkersPerSocket = 256

var udpBufferPool = pool.NewBuffers(dnswire.MaxIncomingDNSMessageSize)

type udpPacket struct {
	bufPtr *[]byte
	n      int
	peer   *net.UDPAddr
}

// UDPServer runs the DNS handler over one SO_REUSEPORT socket per CPU
// core, each backed by a fixed worker pool; every incoming datagram is
// handled independently of the rest.
type UDPServer struct {
	Logger           *slog.Logger
	Handler          *Handler
	WorkersPerSocket int

	conns []*net.UDPConn
	wg    sync.WaitGroup
}

// Run starts listening on addr until ctx is cancelled, then drains
// in-flight workers with a 5s grace period.
func (s *UDPServer) Run(ctx context.Context, addr string) error {
	if s.WorkersPerSocket <= 0 {
		s.WorkersPerSocket = defaultWorkersPerSocket
	}

	socketCount := runtime.NumCPU()
	s.conns = make([]*net.UDPConn, 0, socketCount)

	for range socketCount {
		conn, err := listenUDPReusePort(addr)
		if err != nil {
			for _, c := range s.conns {
				_ = c.Close()
			}
			return err
		}
		s.conns = append(s.conns, conn)

		ch := make(chan udpPacket, s.WorkersPerSocket*2)
		c := conn
		s.wg.Go(func() { s.recvLoop(ctx, c, ch) })
		for range s.WorkersPerSocket {
			s.wg.Go(func() { s.workerLoop(ctx, c, ch) })
		}
	}

	<-ctx.Done()
	return s.Stop(5 * time.Second)
}

func (s *UDPServer) recvLoop(ctx context.Context, conn *net.UDPConn, out chan<- udpPacket) {
	for {
		bufPtr := udpBufferPool.Get()
		buf := *bufPtr

		n, peer, err := conn.ReadFromUDP(buf)
		if err != nil {
			udpBufferPool.Put(bufPtr)
			return
		}

		select {
		case out <- udpPacket{bufPtr, n, peer}:
		default:
			udpBufferPool.Put(bufPtr)
			if s.Logger != nil {
				s.Logger.WarnContext(ctx, "udp worker pool saturated, dropping packet")
			}
		}
	}
}

func (s *UDPServer) workerLoop(ctx context.Context, conn *net.UDPConn, in <-chan udpPacket) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-in:
			if !ok {
				return
			}
			s.handlePacket(ctx, conn, p)
		}
	}
}

func (s *UDPServer) handlePacket(ctx context.Context, conn *net.UDPConn, p udpPacket) {
	defer udpBufferPool.Put(p.bufPtr)

	if s.Handler == nil {
		return
	}

	payload := (*p.bufPtr)[:p.n]
	resp := s.Handler.Handle(ctx, payload)
	if len(resp) == 0 {
		return
	}
	_, _ = conn.WriteToUDP(resp, p.peer)
}

// Stop closes every listening socket and waits up to timeout for
// in-flight workers to drain.
func (s *UDPServer) Stop(timeout time.Duration) error {
	for _, c := range s.conns {
		_ = c.Close()
	}

	if timeout <= 0 {
		s.wg.Wait()
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.New("udp server: timeout waiting for workers to exit")
	}
}

func listenUDPReusePort(addr string) (*net.UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}

	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp", udpAddr.String())
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}
