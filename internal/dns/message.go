package dns

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Header is the fixed 12-byte message header (RFC 1035 §4.1.1).
type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

func (h Header) appendWire(out []byte) []byte {
	return binary.BigEndian.AppendUint16(
		binary.BigEndian.AppendUint16(
			binary.BigEndian.AppendUint16(
				binary.BigEndian.AppendUint16(
					binary.BigEndian.AppendUint16(
						binary.BigEndian.AppendUint16(out, h.ID),
						h.Flags),
					h.QDCount),
				h.ANCount),
			h.NSCount),
		h.ARCount)
}

func parseHeader(msg []byte, off *int) (Header, error) {
	if *off+headerLen > len(msg) {
		return Header{}, fmt.Errorf("%w: short header", ErrMalformed)
	}
	b := msg[*off:]
	h := Header{
		ID:      binary.BigEndian.Uint16(b[0:]),
		Flags:   binary.BigEndian.Uint16(b[2:]),
		QDCount: binary.BigEndian.Uint16(b[4:]),
		ANCount: binary.BigEndian.Uint16(b[6:]),
		NSCount: binary.BigEndian.Uint16(b[8:]),
		ARCount: binary.BigEndian.Uint16(b[10:]),
	}
	*off += headerLen
	return h, nil
}

// Question is one entry of the question section (RFC 1035 §4.1.2).
// Name is stored normalized (lowercase, no trailing dot).
type Question struct {
	Name  string
	Type  uint16
	Class uint16
}

func (q Question) appendWire(out []byte) ([]byte, error) {
	name, err := EncodeName(q.Name)
	if err != nil {
		return nil, err
	}
	out = append(out, name...)
	out = binary.BigEndian.AppendUint16(out, q.Type)
	out = binary.BigEndian.AppendUint16(out, q.Class)
	return out, nil
}

func parseQuestion(msg []byte, off *int) (Question, error) {
	name, err := DecodeName(msg, off)
	if err != nil {
		return Question{}, err
	}
	if *off+4 > len(msg) {
		return Question{}, fmt.Errorf("%w: short question", ErrMalformed)
	}
	q := Question{
		Name:  NormalizeName(name),
		Type:  binary.BigEndian.Uint16(msg[*off:]),
		Class: binary.BigEndian.Uint16(msg[*off+2:]),
	}
	*off += 4
	return q, nil
}

// MXData is the rdata of an MX record.
type MXData struct {
	Preference uint16
	Exchange   string
}

// Record is a resource record from any of the three RR sections. Data
// holds the rdata in its most useful form: a target name (string) for
// CNAME/NS/PTR, MXData for MX, and raw bytes for everything else —
// including A/AAAA, whose 4/16-byte address form is exactly the wire
// form.
type Record struct {
	Name  string
	Type  uint16
	Class uint16
	TTL   uint32
	Data  any
}

// IPv4 returns the dotted-quad address of an A record.
func (rr Record) IPv4() (string, bool) {
	b, ok := rr.Data.([]byte)
	if RecordType(rr.Type) != TypeA || !ok || len(b) != 4 {
		return "", false
	}
	return net.IPv4(b[0], b[1], b[2], b[3]).String(), true
}

// IPv6 returns the textual address of an AAAA record.
func (rr Record) IPv6() (string, bool) {
	b, ok := rr.Data.([]byte)
	if RecordType(rr.Type) != TypeAAAA || !ok || len(b) != 16 {
		return "", false
	}
	return net.IP(b).String(), true
}

func parseRecord(msg []byte, off *int) (Record, error) {
	name, err := DecodeName(msg, off)
	if err != nil {
		return Record{}, err
	}
	if *off+10 > len(msg) {
		return Record{}, fmt.Errorf("%w: short record header", ErrMalformed)
	}
	rr := Record{
		Name:  name,
		Type:  binary.BigEndian.Uint16(msg[*off:]),
		Class: binary.BigEndian.Uint16(msg[*off+2:]),
		TTL:   binary.BigEndian.Uint32(msg[*off+4:]),
	}
	rdlen := int(binary.BigEndian.Uint16(msg[*off+8:]))
	*off += 10
	start := *off
	if start+rdlen > len(msg) {
		return Record{}, fmt.Errorf("%w: rdata runs past end of message", ErrMalformed)
	}

	switch RecordType(rr.Type) {
	case TypeCNAME, TypeNS, TypePTR:
		target, err := DecodeName(msg, off)
		if err != nil {
			return Record{}, err
		}
		if *off-start != rdlen {
			return Record{}, fmt.Errorf("%w: rdata length mismatch for type %d", ErrMalformed, rr.Type)
		}
		rr.Data = target
	case TypeMX:
		if *off+2 > len(msg) {
			return Record{}, fmt.Errorf("%w: short MX rdata", ErrMalformed)
		}
		pref := binary.BigEndian.Uint16(msg[*off:])
		*off += 2
		exchange, err := DecodeName(msg, off)
		if err != nil {
			return Record{}, err
		}
		if *off-start != rdlen {
			return Record{}, fmt.Errorf("%w: rdata length mismatch for MX", ErrMalformed)
		}
		rr.Data = MXData{Preference: pref, Exchange: exchange}
	default:
		raw := make([]byte, rdlen)
		copy(raw, msg[start:start+rdlen])
		*off = start + rdlen
		rr.Data = raw
	}
	return rr, nil
}

func (rr Record) appendWire(out []byte) ([]byte, error) {
	// OPT pseudo-records carry the root name.
	if RecordType(rr.Type) == TypeOPT {
		out = append(out, 0)
	} else {
		name, err := EncodeName(rr.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, name...)
	}

	rdata, err := rr.wireData()
	if err != nil {
		return nil, err
	}
	out = binary.BigEndian.AppendUint16(out, rr.Type)
	out = binary.BigEndian.AppendUint16(out, rr.Class)
	out = binary.BigEndian.AppendUint32(out, rr.TTL)
	out = binary.BigEndian.AppendUint16(out, uint16(len(rdata)))
	return append(out, rdata...), nil
}

func (rr Record) wireData() ([]byte, error) {
	switch RecordType(rr.Type) {
	case TypeA:
		b, ok := rr.Data.([]byte)
		if !ok || len(b) != 4 {
			return nil, fmt.Errorf("%w: A rdata must be 4 bytes", ErrMalformed)
		}
		return b, nil
	case TypeAAAA:
		b, ok := rr.Data.([]byte)
		if !ok || len(b) != 16 {
			return nil, fmt.Errorf("%w: AAAA rdata must be 16 bytes", ErrMalformed)
		}
		return b, nil
	case TypeCNAME, TypeNS, TypePTR:
		target, ok := rr.Data.(string)
		if !ok || target == "" {
			return nil, fmt.Errorf("%w: type %d rdata must be a target name", ErrMalformed, rr.Type)
		}
		return EncodeName(target)
	case TypeMX:
		mx, ok := rr.Data.(MXData)
		if !ok {
			return nil, fmt.Errorf("%w: MX rdata must be MXData", ErrMalformed)
		}
		exchange, err := EncodeName(mx.Exchange)
		if err != nil {
			return nil, err
		}
		out := binary.BigEndian.AppendUint16(make([]byte, 0, 2+len(exchange)), mx.Preference)
		return append(out, exchange...), nil
	default:
		// TXT, SOA, OPT and anything unrecognized round-trips as raw
		// bytes, exactly as parseRecord stored it.
		if rr.Data == nil {
			return nil, nil
		}
		if b, ok := rr.Data.([]byte); ok {
			return b, nil
		}
		return nil, fmt.Errorf("%w: cannot serialize rdata for type %d", ErrMalformed, rr.Type)
	}
}

// Packet is a complete DNS message.
type Packet struct {
	Header      Header
	Questions   []Question
	Answers     []Record
	Authorities []Record
	Additionals []Record
}

// Marshal serializes the packet, deriving the header's section counts
// from the actual section lengths.
func (p Packet) Marshal() ([]byte, error) {
	h := p.Header
	h.QDCount = uint16(len(p.Questions))
	h.ANCount = uint16(len(p.Answers))
	h.NSCount = uint16(len(p.Authorities))
	h.ARCount = uint16(len(p.Additionals))

	out := h.appendWire(make([]byte, 0, 512))
	var err error
	for _, q := range p.Questions {
		if out, err = q.appendWire(out); err != nil {
			return nil, err
		}
	}
	for _, section := range [][]Record{p.Answers, p.Authorities, p.Additionals} {
		for _, rr := range section {
			if out, err = rr.appendWire(out); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// ParsePacket parses a full message. Section slice capacities are
// clamped so a forged header claiming thousands of records cannot
// force a large allocation before the first parse error.
func ParsePacket(msg []byte) (Packet, error) {
	off := 0
	h, err := parseHeader(msg, &off)
	if err != nil {
		return Packet{}, err
	}

	p := Packet{
		Header:    h,
		Questions: make([]Question, 0, min(int(h.QDCount), maxQuestions)),
	}
	for range h.QDCount {
		q, err := parseQuestion(msg, &off)
		if err != nil {
			return Packet{}, err
		}
		p.Questions = append(p.Questions, q)
	}

	for _, section := range []struct {
		count uint16
		dst   *[]Record
	}{
		{h.ANCount, &p.Answers},
		{h.NSCount, &p.Authorities},
		{h.ARCount, &p.Additionals},
	} {
		*section.dst = make([]Record, 0, min(int(section.count), maxRRPerSection))
		for range section.count {
			rr, err := parseRecord(msg, &off)
			if err != nil {
				return Packet{}, err
			}
			*section.dst = append(*section.dst, rr)
		}
	}
	return p, nil
}
