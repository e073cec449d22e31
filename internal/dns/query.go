package dns

import "fmt"

// ParseRequestBounded parses an incoming query and rejects anything
// Guardian will not serve: oversized messages, responses masquerading
// as queries, non-QUERY opcodes, and section counts outside the
// bounds in dns.go. The handler drops queries that fail here without
// replying.
func ParseRequestBounded(msg []byte) (Packet, error) {
	if len(msg) > MaxIncomingDNSMessageSize {
		return Packet{}, fmt.Errorf("%w: message exceeds %d bytes", ErrMalformed, MaxIncomingDNSMessageSize)
	}
	p, err := ParsePacket(msg)
	if err != nil {
		return Packet{}, err
	}

	if p.Header.Flags&QRFlag != 0 {
		return Packet{}, fmt.Errorf("%w: QR flag set on a query", ErrMalformed)
	}
	if opcode := (p.Header.Flags & OpcodeMask) >> 11; opcode != 0 {
		return Packet{}, fmt.Errorf("%w: unsupported opcode %d", ErrMalformed, opcode)
	}

	qd := int(p.Header.QDCount)
	an, ns, ar := int(p.Header.ANCount), int(p.Header.NSCount), int(p.Header.ARCount)
	switch {
	case qd != 1:
		return Packet{}, fmt.Errorf("%w: expected exactly one question, got %d", ErrMalformed, qd)
	case an > maxRRPerSection || ns > maxRRPerSection || ar > maxRRPerSection:
		return Packet{}, fmt.Errorf("%w: resource record section too large", ErrMalformed)
	case an+ns+ar > maxTotalRR:
		return Packet{}, fmt.Errorf("%w: too many resource records", ErrMalformed)
	}
	return p, nil
}

// BuildErrorResponse synthesizes an answerless response to req carrying
// rcode. The transaction ID and the question section are echoed back,
// RD is preserved and QR set, so the client can match the failure to
// its query.
func BuildErrorResponse(req Packet, rcode uint16) Packet {
	flags := QRFlag | (req.Header.Flags & RDFlag)
	flags = (flags &^ RCodeMask) | (rcode & RCodeMask)
	return Packet{
		Header:    Header{ID: req.Header.ID, Flags: flags},
		Questions: req.Questions,
	}
}
