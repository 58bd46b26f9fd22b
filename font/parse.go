// Package font implements the scalable-font record parser, the
// outline-and-bitmap glyph rasteriser, and the grid-atlas assembler
// (spec.md §4.3).
package font

import (
	"golang.org/x/image/math/fixed"

	"github.com/deepteams/dirplayer/internal/binreader"
	"github.com/deepteams/dirplayer/internal/diag"
)

// CommandKind discriminates one outline command (spec.md §3 "Parsed
// font": "outline glyph (list of contours, each a list of commands)").
type CommandKind int

const (
	CmdMove CommandKind = iota
	CmdLine
	CmdCurve
	CmdClose
)

// Command is one contour instruction in font units (oru, GLOSSARY).
type Command struct {
	Kind CommandKind
	// X, Y are used by Move/Line (Close carries none). Curve additionally uses
	// CX1, CY1, CX2, CY2 as the two cubic control points.
	X, Y     fixed.Int26_6
	CX1, CY1 fixed.Int26_6
	CX2, CY2 fixed.Int26_6
}

// Contour is an ordered list of commands, normally starting with a
// Move and ending with a Close.
type Contour []Command

// OutlineGlyph is a character's vector outline.
type OutlineGlyph struct {
	Contours []Contour
}

// BitmapStrike is a character's fixed bitmap rendering (spec.md §3):
// width/height, origin offset, set-width, and a packed MSB-first bit
// image.
type BitmapStrike struct {
	Width, Height int
	XPos, YPos    int
	SetWidth      int
	Bits          []byte // packed, row-major, MSB-first
}

// LogicalMatrix is a 2x2 transform in 1/256 fixed point (spec.md §3
// "logical fonts carry a 2x2 matrix in 1/256 fixed point").
type LogicalMatrix struct {
	A, B, C, D int16 // each value is n/256
}

// PhysicalFont is the font-wide metric block (spec.md §3 "Parsed
// font").
type PhysicalFont struct {
	Ascender, Descender int
	XMin                int
	OutlineResolution   int // oru per em
	StandardSetWidth    int
	BlueZoneTop         int
	BlueZoneBottom      int
}

// GlyphEntry pairs a character code with whatever representation the
// source font supplies: an outline, a bitmap strike, or both.
type GlyphEntry struct {
	Code    int
	Outline *OutlineGlyph
	Strike  *BitmapStrike
}

// ParsedFont is the fully decoded scalable-font record.
type ParsedFont struct {
	Physical PhysicalFont
	Glyphs   map[int]GlyphEntry
	Logical  *LogicalMatrix // nil if this is not a logical font
}

// Outline command opcode bytes, as laid out in the source format.
const (
	opMove  = 0
	opLine  = 1
	opCurve = 2
	opClose = 3
)

// Parse decodes a scalable font record (spec.md §4.3's input, §3's
// data model). Truncated or malformed glyph entries are skipped with a
// diagnostic rather than aborting the whole font, per spec.md §7.
func Parse(data []byte, sink *diag.Sink) ParsedFont {
	r := binreader.New(data, binreader.BigEndian)
	pf := ParsedFont{Glyphs: map[int]GlyphEntry{}}

	pf.Physical.Ascender = int(r.I16())
	pf.Physical.Descender = int(r.I16())
	pf.Physical.XMin = int(r.I16())
	pf.Physical.OutlineResolution = int(r.U16())
	pf.Physical.StandardSetWidth = int(r.U16())
	pf.Physical.BlueZoneTop = int(r.I16())
	pf.Physical.BlueZoneBottom = int(r.I16())

	if r.Err() != nil {
		if sink != nil {
			sink.Record("font.parse", "truncated physical font header: %v", r.Err())
		}
		return pf
	}

	isLogical := r.U8()
	if isLogical != 0 {
		m := &LogicalMatrix{
			A: int16(r.I16()), B: int16(r.I16()), C: int16(r.I16()), D: int16(r.I16()),
		}
		if r.Err() == nil {
			pf.Logical = m
		}
	}

	glyphCount := int(r.U16())
	if r.Err() != nil {
		return pf
	}
	for g := 0; g < glyphCount; g++ {
		code := int(r.U16())
		hasOutline := r.U8()
		hasStrike := r.U8()
		if r.Err() != nil {
			if sink != nil {
				sink.Record("font.parse", "truncated glyph table at entry %d", g)
			}
			break
		}

		entry := GlyphEntry{Code: code}
		if hasOutline != 0 {
			outline, ok := parseOutline(r)
			if ok {
				entry.Outline = outline
			} else if sink != nil {
				sink.Record("font.parse", "malformed outline for glyph %d", code)
			}
		}
		if hasStrike != 0 {
			strike, ok := parseStrike(r)
			if ok {
				entry.Strike = strike
			} else if sink != nil {
				sink.Record("font.parse", "malformed bitmap strike for glyph %d", code)
			}
		}
		pf.Glyphs[code] = entry
	}

	return pf
}

func parseOutline(r *binreader.Reader) (*OutlineGlyph, bool) {
	contourCount := int(r.U16())
	if r.Err() != nil {
		return nil, false
	}
	o := &OutlineGlyph{}
	for c := 0; c < contourCount; c++ {
		cmdCount := int(r.U16())
		if r.Err() != nil {
			return nil, false
		}
		contour := make(Contour, 0, cmdCount)
		for k := 0; k < cmdCount; k++ {
			op := r.U8()
			var cmd Command
			switch op {
			case opMove:
				cmd = Command{Kind: CmdMove, X: readOru(r), Y: readOru(r)}
			case opLine:
				cmd = Command{Kind: CmdLine, X: readOru(r), Y: readOru(r)}
			case opCurve:
				cmd = Command{
					Kind: CmdCurve,
					CX1:  readOru(r), CY1: readOru(r),
					CX2: readOru(r), CY2: readOru(r),
					X: readOru(r), Y: readOru(r),
				}
			case opClose:
				cmd = Command{Kind: CmdClose}
			default:
				return nil, false
			}
			if r.Err() != nil {
				return nil, false
			}
			contour = append(contour, cmd)
		}
		o.Contours = append(o.Contours, contour)
	}
	return o, true
}

// readOru reads one signed 16-bit outline-resolution-unit coordinate
// as a 26.6 fixed-point value (the oru value itself is an integer; the
// fixed-point representation lets downstream rasterisation compose
// fractional scale factors without re-converting types).
func readOru(r *binreader.Reader) fixed.Int26_6 {
	return fixed.Int26_6(int32(r.I16()) << 6)
}

func parseStrike(r *binreader.Reader) (*BitmapStrike, bool) {
	s := &BitmapStrike{
		Width:    int(r.U16()),
		Height:   int(r.U16()),
		XPos:     int(r.I16()),
		YPos:     int(r.I16()),
		SetWidth: int(r.U16()),
	}
	if r.Err() != nil {
		return nil, false
	}
	rowBytes := (s.Width + 7) / 8
	n := rowBytes * s.Height
	if n < 0 || n > 4*1024*1024 {
		return nil, false
	}
	s.Bits = r.Bytes(n)
	if r.Err() != nil {
		return nil, false
	}
	return s, true
}
