package richtext

import "github.com/deepteams/dirplayer/internal/packer"

// nameBlockSize is the fixed-width Pascal-string block size spec.md
// §4.2 gives as "≈64 bytes".
const nameBlockSize = 64

// FontEntry is one decoded logical font table entry (spec.md §4.2
// "0x0008 — fonts"): two name blocks (regular/bold-italic variants in
// the source format) plus a packer-driven properties tail.
type FontEntry struct {
	Name      string
	AltName   string
	Style     int
	Size      int
	Kerning   float64
	AntiAlias bool
}

// decodeFonts decodes every 0x0008 section's two-entries-per-logical-
// font stream.
func decodeFonts(sections [][]byte) []FontEntry {
	var out []FontEntry
	for _, payload := range sections {
		out = append(out, decodeFontSection(payload)...)
	}
	return out
}

func decodeFontSection(payload []byte) []FontEntry {
	var entries []FontEntry
	pos := 0
	for pos+2*nameBlockSize <= len(payload) {
		name := decodePascalName(payload[pos : pos+nameBlockSize])
		altName := decodePascalName(payload[pos+nameBlockSize : pos+2*nameBlockSize])
		pos += 2 * nameBlockSize

		entry := FontEntry{Name: name, AltName: altName}
		if pos < len(payload) {
			p := packer.New(payload[pos:])
			entry.Style = p.Int()
			entry.Size = p.Int()
			entry.Kerning = float64(p.Int()) / 65536
			entry.AntiAlias = p.Int() != 0
			pos += p.Pos()
		}
		entries = append(entries, entry)
	}
	return entries
}

// decodePascalName reads a length-prefixed Pascal string from the
// front of a fixed-width name block.
func decodePascalName(block []byte) string {
	if len(block) == 0 {
		return ""
	}
	n := int(block[0])
	if n < 0 || n+1 > len(block) {
		n = len(block) - 1
	}
	return string(block[1 : 1+n])
}
