package richtext

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Span is a plain-text fragment plus its resolved style (spec.md §3
// "Styled span").
type Span struct {
	Text  string
	Start int
	End   int // exclusive
	Style Style
}

// decodeTextSection decodes a 0x0002/0x0003 text-content section:
// length-prefixed after a ',' separator, optionally terminated by
// 0x03, with bytes >= 0x80 mapped through Mac-Roman to Unicode
// (spec.md §4.2).
func decodeTextSection(payload []byte) string {
	comma := indexByte(payload, ',')
	body := payload
	if comma >= 0 {
		body = payload[comma+1:]
	}
	if n := len(body); n > 0 && body[n-1] == 0x03 {
		body = body[:n-1]
	}

	runes := make([]rune, 0, len(body))
	for _, b := range body {
		if b < 0x80 {
			runes = append(runes, rune(b))
			continue
		}
		runes = append(runes, charmap.Macintosh.DecodeByte(b))
	}
	return string(runes)
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// MaterializeSpans walks the normalised run list and synthesises
// contiguous styled spans (spec.md §4.2 "Span synthesis"): run i
// covers [run[i].Position, run[i+1].Position) or
// [run[i].Position, len(text)) for the last run. An empty run list
// (spec.md Boundary cases: "only 0x0003 and no runs") yields one span
// covering the whole text with the default style.
func MaterializeSpans(text string, runs []CharRun, styles []Style) []Span {
	runeText := []rune(text)
	n := len(runeText)

	if len(runs) == 0 {
		if n == 0 {
			return nil
		}
		return []Span{{Text: text, Start: 0, End: n, Style: resolveStyle(styles, 0)}}
	}

	var spans []Span
	for i, r := range runs {
		start := r.Position
		end := n
		if i+1 < len(runs) {
			end = runs[i+1].Position
		}
		if start < 0 {
			start = 0
		}
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		spans = append(spans, Span{
			Text:  string(runeText[start:end]),
			Start: start,
			End:   end,
			Style: resolveStyle(styles, r.StyleIdx),
		})
	}
	return spans
}

func resolveStyle(styles []Style, idx int) Style {
	if idx < 0 || idx >= len(styles) {
		if len(styles) > 0 {
			return styles[0]
		}
		return defaultStyle
	}
	return styles[idx]
}

// namedFaceNoScale and namedFaceSevenFifths are the two named font
// faces spec.md §4.2 calls out as exceptions to the general 9/8 size
// mapping: one overflows quickly when upscaled and keeps its authored
// size, the other is a bitmap face that needs the steeper 7/5 scale to
// match. Matching is substring/case-insensitive against the face name,
// since the authoring tool suffixes these names inconsistently.
const (
	namedFaceNoScale     = "tiki magic"
	namedFaceSevenFifths = "tiki island"
)

// ScaledFontSize applies spec.md §4.2's size mapping for fontFace.
func ScaledFontSize(rawSize int, fontFace string) int {
	if rawSize <= 0 {
		return 0
	}
	face := strings.ToLower(fontFace)
	switch {
	case strings.Contains(face, namedFaceNoScale):
		return rawSize
	case strings.Contains(face, namedFaceSevenFifths):
		return maxInt(rawSize*7/5, 1)
	default:
		return maxInt((rawSize*9+4)/8, 1)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SpanAt returns the span covering rune offset pos, or false if pos is
// outside every span. Additive beyond spec.md's minimum (see
// SPEC_FULL.md "Supplemented features"): callers doing cursor/selection
// mapping need a position lookup, not just a flat list.
func (d Document) SpanAt(pos int) (Span, bool) {
	for _, s := range d.Spans {
		if pos >= s.Start && pos < s.End {
			return s, true
		}
	}
	return Span{}, false
}
