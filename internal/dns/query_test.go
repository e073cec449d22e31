package dns

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestBounded(t *testing.T) {
	wire, err := queryPacket("example.com", TypeA).Marshal()
	require.NoError(t, err)

	p, err := ParseRequestBounded(wire)
	require.NoError(t, err)
	assert.Equal(t, "example.com", p.Questions[0].Name)
}

func TestParseRequestBoundedRejects(t *testing.T) {
	base, err := queryPacket("example.com", TypeA).Marshal()
	require.NoError(t, err)

	t.Run("oversized", func(t *testing.T) {
		_, err := ParseRequestBounded(make([]byte, MaxIncomingDNSMessageSize+1))
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("response packet", func(t *testing.T) {
		wire := append([]byte(nil), base...)
		flags := binary.BigEndian.Uint16(wire[2:4]) | QRFlag
		binary.BigEndian.PutUint16(wire[2:4], flags)
		_, err := ParseRequestBounded(wire)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("non-query opcode", func(t *testing.T) {
		wire := append([]byte(nil), base...)
		flags := binary.BigEndian.Uint16(wire[2:4]) | 2<<11 // STATUS
		binary.BigEndian.PutUint16(wire[2:4], flags)
		_, err := ParseRequestBounded(wire)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("no question", func(t *testing.T) {
		wire, err := Packet{Header: Header{ID: 9, Flags: RDFlag}}.Marshal()
		require.NoError(t, err)
		_, err = ParseRequestBounded(wire)
		require.ErrorIs(t, err, ErrMalformed)
	})
}

func TestBuildErrorResponse(t *testing.T) {
	req, err := ParseRequestBounded(mustMarshal(t, queryPacket("fail.example.com", TypeA)))
	require.NoError(t, err)

	resp := BuildErrorResponse(req, uint16(RCodeServFail))
	assert.Equal(t, req.Header.ID, resp.Header.ID)
	assert.NotZero(t, resp.Header.Flags&QRFlag)
	assert.NotZero(t, resp.Header.Flags&RDFlag, "RD echoed back")
	assert.Equal(t, RCodeServFail, RCodeFromFlags(resp.Header.Flags))
	assert.Empty(t, resp.Answers)

	// The response still carries the original question once marshaled.
	p, err := ParsePacket(mustMarshal(t, resp))
	require.NoError(t, err)
	require.Len(t, p.Questions, 1)
	assert.Equal(t, "fail.example.com", p.Questions[0].Name)
}

func mustMarshal(t *testing.T, p Packet) []byte {
	t.Helper()
	b, err := p.Marshal()
	require.NoError(t, err)
	return b
}
