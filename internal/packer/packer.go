// Package packer implements the variable-length ASCII-hex number
// stream with repeat compression used by the styled-text chunk
// (spec.md §4.1).
package packer

import (
	"strconv"

	"github.com/deepteams/dirplayer/internal/binreader"
)

// Packer decodes a sequence of signed integers from a packed byte
// stream. Each call to Int advances the cursor and returns one value.
type Packer struct {
	buf []byte
	pos int

	lastValue   int
	repeatsLeft int
}

// New creates a Packer over data, starting at the beginning of the
// stream.
func New(data []byte) *Packer {
	return &Packer{buf: data}
}

// Pos returns the current byte offset into the stream.
func (p *Packer) Pos() int { return p.pos }

// Remaining reports whether unread bytes remain.
func (p *Packer) Remaining() bool { return p.pos < len(p.buf) }

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'A' && b <= 'F') || (b >= 'a' && b <= 'f')
}

// Int decodes one signed integer, per spec.md §4.1:
//
//   - A pending repeat count (from a prior N-repeat control byte) is
//     decremented and the last value returned again.
//   - Otherwise a control byte is read. Bit 7 set means "repeat the
//     previous value"; additionally bit 6 set means "read one more
//     byte N and schedule N-1 further repeats".
//   - Otherwise the longest following run of ASCII hex digits
//     (optionally '-'-prefixed) is parsed as base-16 signed; if the
//     control byte's low nibble is 1 the value is reinterpreted modulo
//     2^16.
//
// Out-of-data returns 0 without advancing the cursor past the end.
func (p *Packer) Int() int {
	if p.repeatsLeft > 0 {
		p.repeatsLeft--
		return p.lastValue
	}
	if p.pos >= len(p.buf) {
		return 0
	}

	ctrl := p.buf[p.pos]
	p.pos++

	if ctrl&0x80 != 0 {
		if ctrl&0x40 != 0 {
			if p.pos >= len(p.buf) {
				return p.lastValue
			}
			n := int(p.buf[p.pos])
			p.pos++
			if n > 1 {
				p.repeatsLeft = n - 1
			}
		}
		return p.lastValue
	}

	start := p.pos
	if start < len(p.buf) && p.buf[start] == '-' {
		start++
	}
	end := start
	for end < len(p.buf) && isHexDigit(p.buf[end]) {
		end++
	}

	var value int
	if end > start {
		if n, err := strconv.ParseInt(string(p.buf[p.pos:end]), 16, 64); err == nil {
			value = int(n)
		}
	}
	p.pos = end

	if ctrl&0x0F == 1 {
		value = int(int16(uint16(value)))
	}

	p.lastValue = value
	return value
}

// refConTypeCode is the styled-text ref-con section type that requires
// the special skip-the-payload handling documented in spec.md §4.1.
const refConTypeCode = 65547

// ReadRefCon reads a ref-con field for the given type code at the
// reader's current position. If typeCode == refConTypeCode, it expects
// a 0x00 byte, an ASCII-decimal length, an optional ',' separator, and
// that many raw payload bytes (which are skipped). It returns the
// total number of bytes consumed. For any other type code it returns 0
// and does not touch the reader.
func ReadRefCon(r *binreader.Reader, typeCode int) int {
	if typeCode != refConTypeCode {
		return 0
	}
	start := r.Pos()
	if r.Remaining() < 1 || r.U8() != 0x00 {
		r.Seek(start)
		return 0
	}

	length := 0
	for r.Remaining() > 0 {
		save := r.Pos()
		c := r.U8()
		switch {
		case c >= '0' && c <= '9':
			length = length*10 + int(c-'0')
		case c == ',':
			// separator consumed, stop scanning digits
		default:
			r.Seek(save) // not part of the length field, push back
		}
		if c < '0' || c > '9' {
			break
		}
	}

	r.Bytes(length)
	return r.Pos() - start
}
