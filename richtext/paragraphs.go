package richtext

import "github.com/deepteams/dirplayer/internal/packer"

// applyParagraphInfo decodes every 0x0007 section and folds the
// alignment and indent/spacing fields into doc (spec.md §4.2).
func applyParagraphInfo(doc *Document, sections [][]byte) {
	for _, payload := range sections {
		if len(payload) <= 36 {
			continue // alignment stays AlignLeft, the documented default
		}
		doc.Alignment = decodeAlignment(payload[36])

		decoded := decodeParagraphInts(payload)
		setIfInRange(&doc.Indents.Left, decoded, 57)
		setIfInRange(&doc.Indents.Right, decoded, 58)
		setIfInRange(&doc.Indents.First, decoded, 59)
		setIfInRange(&doc.LineHeight, decoded, 62)
		setIfInRange(&doc.Indents.TopSpacing, decoded, 64)
		setIfInRange(&doc.Indents.BottomSpacing, decoded, 65)
	}
}

// decodeAlignment maps a byte 36 value to an Alignment per spec.md
// §4.2's 0x01/0x31/0x02/0x32/0x03/0x33 table.
func decodeAlignment(b byte) Alignment {
	switch b {
	case 0x01, 0x31:
		return AlignCenter
	case 0x02, 0x32:
		return AlignRight
	case 0x03, 0x33:
		return AlignJustify
	default:
		return AlignLeft
	}
}

// decodeParagraphInts decodes the section's full packed-int stream so
// indices named by spec.md §4.2 (57, 58, 59, 62, 64, 65) can be read by
// position.
func decodeParagraphInts(payload []byte) []int {
	p := packer.New(payload)
	var vals []int
	for p.Remaining() {
		vals = append(vals, p.Int())
	}
	return vals
}

// setIfInRange assigns decoded[idx] to dst when idx is present and its
// value falls in [0, 1000], per spec.md §4.2.
func setIfInRange(dst *float64, decoded []int, idx int) {
	if idx < 0 || idx >= len(decoded) {
		return
	}
	v := decoded[idx]
	if v < 0 || v > 1000 {
		return
	}
	*dst = float64(v)
}
