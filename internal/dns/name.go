package dns

import (
	"fmt"
	"strings"
)

// NormalizeName lowercases a domain name and strips any trailing dot,
// so "WWW.Example.COM." and "www.example.com" compare equal (RFC 4343).
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}

// EncodeName writes a domain name as an uncompressed label sequence:
// each label prefixed by its length, terminated by the root label.
// "example.com" becomes [7]example[3]com[0]. Labels are capped at 63
// bytes and the whole encoding at 255 (RFC 1035 §3.1); only ASCII is
// accepted, IDNs must arrive already punycoded.
func EncodeName(name string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty domain name", ErrMalformed)
	}
	trimmed := strings.TrimRight(name, ".")
	if trimmed == "" {
		// The root zone itself.
		return []byte{0}, nil
	}

	out := make([]byte, 0, len(trimmed)+2)
	for _, label := range strings.Split(trimmed, ".") {
		if label == "" {
			return nil, fmt.Errorf("%w: empty label in %q", ErrMalformed, name)
		}
		if len(label) > 63 {
			return nil, fmt.Errorf("%w: label %q exceeds 63 bytes", ErrMalformed, label)
		}
		for i := 0; i < len(label); i++ {
			if label[i] > 0x7F {
				return nil, fmt.Errorf("%w: non-ASCII byte in %q", ErrMalformed, name)
			}
		}
		out = append(out, byte(len(label)))
		out = append(out, label...)
	}
	out = append(out, 0)

	if len(out) > 255 {
		return nil, fmt.Errorf("%w: encoded name exceeds 255 bytes", ErrMalformed)
	}
	return out, nil
}

// maxPointerHops bounds compression-pointer chains; a legitimate
// message never chains more than a handful.
const maxPointerHops = 20

// DecodeName reads a possibly-compressed name from msg starting at
// *off, advancing *off past the name as it appears in place (pointer
// bytes included, pointed-to bytes not). Compression pointers
// (RFC 1035 §4.1.4) are the two high bits of a length byte set; the
// remaining 14 bits are an absolute offset into msg.
func DecodeName(msg []byte, off *int) (string, error) {
	var sb strings.Builder
	pos := *off
	hops := 0
	jumped := false

	for {
		if pos < 0 || pos >= len(msg) {
			return "", fmt.Errorf("%w: name runs past end of message", ErrMalformed)
		}
		b := msg[pos]

		switch {
		case b == 0:
			if !jumped {
				*off = pos + 1
			}
			return sb.String(), nil

		case b&0xC0 == 0xC0:
			if pos+1 >= len(msg) {
				return "", fmt.Errorf("%w: truncated compression pointer", ErrMalformed)
			}
			hops++
			if hops > maxPointerHops {
				return "", fmt.Errorf("%w: compression pointer loop", ErrMalformed)
			}
			target := int(b&0x3F)<<8 | int(msg[pos+1])
			if target >= len(msg) {
				return "", fmt.Errorf("%w: compression pointer out of bounds", ErrMalformed)
			}
			if !jumped {
				*off = pos + 2
				jumped = true
			}
			pos = target

		case b&0xC0 != 0:
			// 01 / 10 prefixes are reserved label types.
			return "", fmt.Errorf("%w: reserved label type 0x%02x", ErrMalformed, b&0xC0)

		default:
			end := pos + 1 + int(b)
			if end > len(msg) {
				return "", fmt.Errorf("%w: label runs past end of message", ErrMalformed)
			}
			label := msg[pos+1 : end]
			for _, c := range label {
				if c > 0x7F {
					return "", fmt.Errorf("%w: non-ASCII byte in label", ErrMalformed)
				}
			}
			if sb.Len() > 0 {
				sb.WriteByte('.')
			}
			sb.Write(label)
			pos = end
		}
	}
}
