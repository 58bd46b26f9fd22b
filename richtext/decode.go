// Package richtext implements the styled-text chunk decoder (spec.md
// §4.2): a multi-section, variable-length-encoded container decoded
// into a flat sequence of styled spans.
package richtext

import (
	"github.com/deepteams/dirplayer/internal/diag"
	"github.com/deepteams/dirplayer/internal/packer"
)

// sectionHeaderSize is the fixed 20-character ASCII header size
// (spec.md §4.2): KKKKCCCCCCCCTTTTDDDD.
const sectionHeaderSize = 20

// magicPrefix is the first 12 characters of the container's own
// 20-character leading header.
const magicPrefix = "FFFF00000006"

// Document is the fully decoded styled-text container (spec.md §3
// "Decoded document").
type Document struct {
	Version        int
	Width          int
	Height         int
	PageHeight     int
	PlainText      string
	Spans          []Span
	Alignment      Alignment
	WordWrap       bool
	FixedLineSpace float64
	LineHeight     float64
	LineCount      int
	Indents        Indents
	Fonts          []FontEntry
}

// Alignment mirrors spec.md §3's alignment enum.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
	AlignJustify
)

// Indents holds the paragraph-level spacing fields spec.md §4.2 names.
type Indents struct {
	Left, Right, First float64
	TopSpacing, BottomSpacing float64
}

// Decode walks the section stream and builds a Document (spec.md
// §4.2). Malformed or truncated sections are skipped with a
// diagnostic; parsing stops cleanly at a non-hex-digit header or
// end-of-data rather than failing the whole document (spec.md §7).
func Decode(data []byte, sink *diag.Sink) Document {
	doc := Document{Alignment: AlignLeft}

	pos := 0
	if len(data) >= sectionHeaderSize && string(data[:12]) == magicPrefix {
		pos = sectionHeaderSize
	}

	var textChunks []string
	var runs4, runs5 []CharRun
	var styleSections [][]byte
	var paragraphSections [][]byte
	var fontSections [][]byte

	for pos+sectionHeaderSize <= len(data) {
		header := data[pos : pos+sectionHeaderSize]
		if !isHexHeader(header) {
			break
		}
		key := parseHex(header[0:4])
		count := parseHex(header[4:12])
		typ := parseHex(header[12:16])
		declared := parseHex(header[16:20])

		bodyStart := pos + sectionHeaderSize
		bodyEnd := bodyStart + count
		if bodyEnd > len(data) || count < 0 {
			if sink != nil {
				sink.Record("richtext.decode", "section key %04x truncated (count=%d)", key, count)
			}
			break
		}
		payload := data[bodyStart:bodyEnd]

		switch key {
		case 0x0000:
			decodeDocHeader(&doc, payload, sink)
		case 0x0002, 0x0003:
			textChunks = append(textChunks, decodeTextSection(payload))
		case 0x0004:
			runs4 = append(runs4, decodeCharRuns(payload)...)
		case 0x0005:
			runs5 = append(runs5, decodeCharRuns(payload)...)
		case 0x0006:
			styleSections = append(styleSections, payload)
		case 0x0007:
			paragraphSections = append(paragraphSections, payload)
		case 0x0008:
			fontSections = append(fontSections, payload)
		}

		pos = bodyEnd
		_ = typ
		_ = declared
	}

	for _, s := range textChunks {
		doc.PlainText += s
	}

	styles := decodeStyles(styleSections, sink)
	runs := mergeRuns(runs4, runs5)
	doc.Spans = MaterializeSpans(doc.PlainText, runs, styles)
	doc.Fonts = decodeFonts(fontSections)
	applyParagraphInfo(&doc, paragraphSections)

	if len(doc.Spans) > 0 {
		doc.FixedLineSpace = float64(doc.Spans[0].Style.FontSize) * 1.2
	}

	return doc
}

func isHexHeader(h []byte) bool {
	for _, b := range h {
		if !isHexDigit(b) {
			return false
		}
	}
	return true
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'A' && b <= 'F') || (b >= 'a' && b <= 'f')
}

func parseHex(h []byte) int {
	v := 0
	for _, b := range h {
		v <<= 4
		switch {
		case b >= '0' && b <= '9':
			v |= int(b - '0')
		case b >= 'A' && b <= 'F':
			v |= int(b-'A') + 10
		case b >= 'a' && b <= 'f':
			v |= int(b-'a') + 10
		}
	}
	return v
}

// decodeDocHeader decodes section 0x0000: document version, width,
// height, page-height as five packed ints with version-gated extras
// (spec.md §4.2).
func decodeDocHeader(doc *Document, payload []byte, sink *diag.Sink) {
	p := packer.New(payload)
	doc.Version = p.Int()
	doc.Width = p.Int()
	doc.Height = p.Int()
	doc.PageHeight = p.Int()
	_ = p.Int() // fifth packed int (reserved / version-gated extra)
}
