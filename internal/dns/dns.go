// Package dns implements the subset of RFC 1035 wire handling Guardian
// needs: parsing incoming queries, reading upstream answers, and
// synthesizing responses (sinkhole A records, SERVFAIL). It is not a
// general-purpose DNS library — record types outside the common set are
// carried as opaque rdata so responses survive a parse/re-marshal
// round trip untouched.
package dns

import "errors"

// ErrMalformed is wrapped by every parse or encode failure in this
// package; callers match it with errors.Is.
var ErrMalformed = errors.New("malformed dns message")

// Bounds applied to incoming queries before any allocation happens.
// A normal recursive query has exactly one question and no resource
// records, so these are generous.
const (
	MaxIncomingDNSMessageSize = 4096
	maxQuestions              = 4
	maxRRPerSection           = 100
	maxTotalRR                = 200
)

const headerLen = 12

// Header flag bits (RFC 1035 §4.1.1). The 16-bit field packs, from
// the MSB down: QR, 4-bit opcode, AA, TC, RD, RA, Z, AD, CD and the
// 4-bit RCODE.
const (
	QRFlag     uint16 = 0x8000
	OpcodeMask uint16 = 0x7800
	AAFlag     uint16 = 0x0400
	TCFlag     uint16 = 0x0200
	RDFlag     uint16 = 0x0100
	RAFlag     uint16 = 0x0080
	RCodeMask  uint16 = 0x000F
)

// RecordType identifies a resource record type.
type RecordType uint16

const (
	TypeA     RecordType = 1
	TypeNS    RecordType = 2
	TypeCNAME RecordType = 5
	TypeSOA   RecordType = 6
	TypePTR   RecordType = 12
	TypeMX    RecordType = 15
	TypeTXT   RecordType = 16
	TypeAAAA  RecordType = 28
	TypeOPT   RecordType = 41
)

// RecordClass identifies a resource record class.
type RecordClass uint16

// ClassIN is the only class Guardian ever serves or forwards.
const ClassIN RecordClass = 1

// RCode is a DNS response code.
type RCode uint16

const (
	RCodeNoError  RCode = 0
	RCodeFormErr  RCode = 1
	RCodeServFail RCode = 2
	RCodeNXDomain RCode = 3
	RCodeNotImp   RCode = 4
	RCodeRefused  RCode = 5
)

// RCodeFromFlags extracts the response code from a header flags field.
func RCodeFromFlags(flags uint16) RCode {
	return RCode(flags & RCodeMask)
}
