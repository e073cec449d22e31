package dns

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryPacket(name string, qtype RecordType) Packet {
	return Packet{
		Header:    Header{ID: 0x1234, Flags: RDFlag},
		Questions: []Question{{Name: name, Type: uint16(qtype), Class: uint16(ClassIN)}},
	}
}

func TestPacketQueryRoundTrip(t *testing.T) {
	wire, err := queryPacket("Example.COM", TypeA).Marshal()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(wire), headerLen)
	assert.Equal(t, uint16(0x1234), binary.BigEndian.Uint16(wire[0:2]))

	p, err := ParsePacket(wire)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), p.Header.ID)
	assert.Equal(t, uint16(1), p.Header.QDCount)
	require.Len(t, p.Questions, 1)
	// Question names are normalized on parse.
	assert.Equal(t, "example.com", p.Questions[0].Name)
	assert.Equal(t, uint16(TypeA), p.Questions[0].Type)
}

func TestPacketResponseRoundTrip(t *testing.T) {
	resp := Packet{
		Header: Header{ID: 0xBEEF, Flags: QRFlag | RDFlag | RAFlag},
		Questions: []Question{
			{Name: "example.com", Type: uint16(TypeA), Class: uint16(ClassIN)},
		},
		Answers: []Record{
			{Name: "example.com", Type: uint16(TypeA), Class: uint16(ClassIN), TTL: 300, Data: []byte{93, 184, 216, 34}},
			{Name: "example.com", Type: uint16(TypeCNAME), Class: uint16(ClassIN), TTL: 60, Data: "cdn.example.net"},
		},
	}
	wire, err := resp.Marshal()
	require.NoError(t, err)

	p, err := ParsePacket(wire)
	require.NoError(t, err)
	require.Len(t, p.Answers, 2)

	ip, ok := p.Answers[0].IPv4()
	require.True(t, ok)
	assert.Equal(t, "93.184.216.34", ip)
	assert.Equal(t, uint32(300), p.Answers[0].TTL)

	assert.Equal(t, "cdn.example.net", p.Answers[1].Data)
}

func TestRecordMXRoundTrip(t *testing.T) {
	rr := Record{
		Name:  "example.com",
		Type:  uint16(TypeMX),
		Class: uint16(ClassIN),
		TTL:   3600,
		Data:  MXData{Preference: 10, Exchange: "mail.example.com"},
	}
	wire, err := Packet{Header: Header{ID: 1}, Answers: []Record{rr}}.Marshal()
	require.NoError(t, err)

	p, err := ParsePacket(wire)
	require.NoError(t, err)
	require.Len(t, p.Answers, 1)
	mx, ok := p.Answers[0].Data.(MXData)
	require.True(t, ok)
	assert.Equal(t, uint16(10), mx.Preference)
	assert.Equal(t, "mail.example.com", mx.Exchange)
}

func TestRecordAAAA(t *testing.T) {
	addr := make([]byte, 16)
	addr[0], addr[1], addr[15] = 0x20, 0x01, 0x01
	rr := Record{Name: "v6.example.com", Type: uint16(TypeAAAA), Class: uint16(ClassIN), TTL: 120, Data: addr}

	ip, ok := rr.IPv6()
	require.True(t, ok)
	assert.Equal(t, "2001::1", ip)

	_, ok = rr.IPv4()
	assert.False(t, ok)
}

func TestRecordOpaqueRoundTrip(t *testing.T) {
	// TXT rdata is carried raw and must survive a re-marshal untouched.
	raw := []byte{4, 't', 'e', 's', 't'}
	rr := Record{Name: "example.com", Type: uint16(TypeTXT), Class: uint16(ClassIN), TTL: 60, Data: raw}

	wire, err := Packet{Header: Header{ID: 2}, Answers: []Record{rr}}.Marshal()
	require.NoError(t, err)
	p, err := ParsePacket(wire)
	require.NoError(t, err)
	require.Len(t, p.Answers, 1)
	assert.Equal(t, raw, p.Answers[0].Data)
}

func TestRecordBadRData(t *testing.T) {
	bad := []Record{
		{Name: "x.com", Type: uint16(TypeA), Data: []byte{1, 2, 3}},
		{Name: "x.com", Type: uint16(TypeAAAA), Data: []byte{1}},
		{Name: "x.com", Type: uint16(TypeCNAME), Data: ""},
		{Name: "x.com", Type: uint16(TypeMX), Data: "not-mxdata"},
	}
	for _, rr := range bad {
		_, err := Packet{Header: Header{ID: 3}, Answers: []Record{rr}}.Marshal()
		require.ErrorIs(t, err, ErrMalformed, "type %d", rr.Type)
	}
}

func TestParsePacketTruncated(t *testing.T) {
	wire, err := queryPacket("example.com", TypeA).Marshal()
	require.NoError(t, err)

	for _, cut := range []int{0, 5, headerLen, len(wire) - 1} {
		_, err := ParsePacket(wire[:cut])
		assert.ErrorIs(t, err, ErrMalformed, "cut at %d", cut)
	}
}

func TestParsePacketForgedCounts(t *testing.T) {
	// A header claiming 65535 answers with no body must fail cleanly.
	wire := make([]byte, headerLen)
	binary.BigEndian.PutUint16(wire[6:8], 0xFFFF)
	_, err := ParsePacket(wire)
	require.ErrorIs(t, err, ErrMalformed)
}
