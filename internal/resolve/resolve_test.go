package resolve

import (
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQuestion(id byte) []byte {
	// Minimal well-formed DNS header (12 bytes) + a single question
	// for "example.com" type A class IN. ID byte is varied per-caller
	// to exercise dedupeKey's ID-stripping behavior.
	header := []byte{0, id, 0x01, 0x00, 0, 1, 0, 0, 0, 0, 0, 0}
	question := []byte{
		7, 'e', 'x', 'a', 'm', 'p', 'l', 'e',
		3, 'c', 'o', 'm',
		0,
		0, 1, // TYPE A
		0, 1, // CLASS IN
	}
	return append(header, question...)
}

func TestResolveUsesDoHWhenAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/dns-message", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/dns-message")
		w.Write([]byte("doh-response"))
	}))
	defer srv.Close()

	r := New(Config{DoHURL: srv.URL})
	defer r.Close()

	resp, err := r.Resolve(t.Context(), sampleQuestion(1))
	require.NoError(t, err)
	assert.Equal(t, []byte("doh-response"), resp)
}

func TestResolveFallsBackToUDPOnDoHFailure(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	go func() {
		buf := make([]byte, 512)
		n, addr, err := pc.ReadFrom(buf)
		if err != nil {
			return
		}
		_ = n
		pc.WriteTo([]byte("udp-fallback-response"), addr)
	}()

	r := New(Config{DoHURL: "http://127.0.0.1:1", FallbackAddr: pc.LocalAddr().String(), DoHTimeout: 50 * time.Millisecond})
	defer r.Close()

	resp, err := r.Resolve(t.Context(), sampleQuestion(1))
	require.NoError(t, err)
	assert.Equal(t, []byte("udp-fallback-response"), resp)
}

func TestResolveReturnsErrorWhenBothFail(t *testing.T) {
	r := New(Config{DoHURL: "http://127.0.0.1:1", FallbackAddr: "127.0.0.1:1", DoHTimeout: 50 * time.Millisecond, UDPTimeout: 50 * time.Millisecond})
	defer r.Close()

	_, err := r.Resolve(t.Context(), sampleQuestion(1))
	assert.ErrorIs(t, err, ErrBothFailed)
}

func TestResolveDedupesConcurrentIdenticalQueries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		w.Write([]byte("shared-response"))
	}))
	defer srv.Close()

	r := New(Config{DoHURL: srv.URL})
	defer r.Close()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id byte) {
			defer wg.Done()
			resp, err := r.Resolve(t.Context(), sampleQuestion(id))
			assert.NoError(t, err)
			assert.Equal(t, []byte("shared-response"), resp)
		}(byte(i))
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "identical in-flight queries must be coalesced into one upstream call")
}
