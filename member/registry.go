package member

import (
	"github.com/deepteams/dirplayer/internal/binreader"
	"github.com/deepteams/dirplayer/internal/diag"
)

// castHeaderSize is the fixed prefix every CASt chunk opens with: a
// u32 size of the specific-data region, a u32 size of the name/info
// region, then the type code, before the two variable regions
// themselves (spec.md §6: "CASt cast member").
const castHeaderSize = 9

// registry maps a member type code to its specific-data decoder.
// Grounded on mux/demux.go's FourCC-keyed switch dispatch in
// parseExtendedChunks/parseSingleExtendedFrame, adapted from binary
// four-byte chunk ids to a single cast-member type byte.
var registry = map[Type]decoder{
	TypeField:       decodeField,
	TypeBitmap:      decodeBitmap,
	TypeFilmLoop:    decodeFilmLoop,
	TypeText:        decodeText,
	TypeScript:      decodeScript,
	TypeShape:       decodeShape,
	TypeButton:      decodeButton,
	TypeVectorShape: decodeVectorShape,
	TypeSound:       decodeSound,
	TypePalette:     decodePalette,
	TypeFont:        decodeFont,
}

// Decode parses one CASt chunk into a typed Member. Unknown or
// malformed type codes fall back to Type set to TypeUnknown with the
// specific-data region preserved verbatim in Unrecognised, per the
// core's non-panicking diagnostic policy (spec.md §7).
func Decode(chunk []byte, sink *diag.Sink) Member {
	r := binreader.New(chunk, binreader.BigEndian)
	specificLen := int(r.U32())
	infoLen := int(r.U32())
	typeCode := int(r.U8())

	specific := r.Bytes(specificLen)
	info := r.Bytes(infoLen)
	if r.Err() != nil {
		record(sink, "member.header", "CASt chunk truncated (specific=%d info=%d, have %d)", specificLen, infoLen, len(chunk)-castHeaderSize)
	}

	t := Type(typeCode)
	build, ok := registry[t]
	if !ok {
		record(sink, "member.type", "unrecognised cast member type code %d", typeCode)
		return Member{Type: TypeUnknown, Name: decodeName(info), Unrecognised: specific}
	}

	m := build(specific, sink)
	if m == nil {
		m = &Member{Type: TypeUnknown, Unrecognised: specific}
	}
	m.Type = t
	m.Name = decodeName(info)
	return *m
}

// decodeName extracts the Pascal-string member name from the front of
// the CASt info region, matching richtext/fonts.go's decodePascalName
// shape (length byte, then that many bytes).
func decodeName(info []byte) string {
	if len(info) == 0 {
		return ""
	}
	n := int(info[0])
	if n+1 > len(info) {
		n = len(info) - 1
	}
	if n <= 0 {
		return ""
	}
	return string(info[1 : 1+n])
}
