package richtext

import (
	"github.com/deepteams/dirplayer/internal/diag"
	"github.com/deepteams/dirplayer/internal/packer"
)

// Style is one decoded style record (spec.md §4.2 "0x0006 — styles",
// §3 "Styled span").
type Style struct {
	FontIndex   int
	FontSize    int
	WordWrap    bool
	ForeColor   uint32 // ARGB
	BackColor   uint32 // ARGB
	Kerning     float64
	CharSpacing float64
	Bold        bool
	Italic      bool
	Underline   bool
}

// defaultStyle is style index 0's fallback when the style table is
// absent or a run references an out-of-range index (spec.md §4.2 span
// synthesis: "fallback to style 0").
var defaultStyle = Style{FontSize: 12}

// decodeStyles decodes every 0x0006 section's count-prefixed style
// record sequence (spec.md §4.2). Invalid records fall back to
// defaultStyle with a diagnostic rather than aborting the table.
func decodeStyles(sections [][]byte, sink *diag.Sink) []Style {
	var styles []Style
	for _, payload := range sections {
		p := packer.New(payload)
		count := p.Int()
		for i := 0; i < count && p.Remaining(); i++ {
			s, ok := decodeOneStyle(p)
			if !ok {
				if sink != nil {
					sink.Record("richtext.styles", "malformed style record %d, using default", i)
				}
				s = defaultStyle
			}
			styles = append(styles, s)
		}
	}
	if len(styles) == 0 {
		styles = []Style{defaultStyle}
	}
	return styles
}

// decodeOneStyle decodes the long packer-driven style schedule spec.md
// §4.2 describes: font index, metric padding ints, font size (accepted
// only in (0, 200]), word-wrap indicator, placeholder ints, fore/back
// ARGB colour groups, version-gated extras, eleven extension ints
// (index 6 = kerning, 7 = char spacing, both x65536), a ref-con, and a
// gap2 block of 32 or 16 ints carrying bold/italic/underline at 0,1,2.
func decodeOneStyle(p *packer.Packer) (Style, bool) {
	var s Style
	s.FontIndex = p.Int()

	// Metric padding: three ints not otherwise interpreted.
	p.Int()
	p.Int()
	p.Int()

	rawSize := p.Int()
	if rawSize > 0 && rawSize <= 200 {
		s.FontSize = rawSize
	} else {
		s.FontSize = defaultStyle.FontSize
	}

	s.WordWrap = p.Int() == 2

	// Placeholder ints.
	for i := 0; i < 3; i++ {
		p.Int()
	}

	s.ForeColor = decodeColorGroup(p)
	s.BackColor = decodeColorGroup(p)

	// Version-gated additional ints: consumed but not interpreted
	// (original field meaning is opaque across source versions).
	for i := 0; i < 4; i++ {
		p.Int()
	}

	ext := make([]int, 11)
	for i := range ext {
		ext[i] = p.Int()
	}
	s.Kerning = float64(ext[6]) / 65536
	s.CharSpacing = float64(ext[7]) / 65536

	p.Int() // ref-con

	gapCount := p.Int()
	if gapCount < 0 || gapCount > 32 {
		return s, false
	}
	gap := make([]int, gapCount)
	for i := range gap {
		gap[i] = p.Int()
	}
	if len(gap) > 2 {
		s.Bold = gap[0] != 0
		s.Italic = gap[1] != 0
		s.Underline = gap[2] != 0
	}

	return s, true
}

// decodeColorGroup reads four packed 16-bit colour components and
// reconstructs ARGB by taking the high byte of each (spec.md §4.2).
func decodeColorGroup(p *packer.Packer) uint32 {
	a := p.Int()
	r := p.Int()
	g := p.Int()
	b := p.Int()
	hi := func(v int) uint32 { return uint32(uint16(v)>>8) & 0xFF }
	return hi(a)<<24 | hi(r)<<16 | hi(g)<<8 | hi(b)
}
