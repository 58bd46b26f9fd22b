package score

import (
	"sort"

	"github.com/deepteams/dirplayer/internal/binreader"
)

// Tween holds the animated-attribute metadata that follows a primary
// sprite-span record in a D6+ score (spec.md §4.5).
type Tween struct {
	Curvature int16
	Flags     uint16
	EaseIn    int16
	EaseOut   int16
}

// Tween flag bits (spec.md §4.5).
const (
	TweenContinuous  uint16 = 1 << 0
	TweenPath        uint16 = 1 << 1
	TweenSize        uint16 = 1 << 2
	TweenForecolor   uint16 = 1 << 3
	TweenBackcolor   uint16 = 1 << 4
	TweenBlend       uint16 = 1 << 5
	TweenRotation    uint16 = 1 << 6
	TweenSkew        uint16 = 1 << 7
	TweenSmoothSpeed uint16 = 1 << 9
)

// PrimarySpanEntry is a primary sprite-span record from the D6+ score
// chunk's offset-table entries (spec.md §4.5): a 44- or 48-byte record
// giving the frame interval, channel, and tween metadata for a sprite.
type PrimarySpanEntry struct {
	StartFrame   int32
	EndFrame     int32
	XtraInfo     int32
	SpriteFlags  uint16
	ChannelIndex uint16
	Tween        Tween
}

// decodePrimaryEntry decodes one 44- or 48-byte primary entry.
func decodePrimaryEntry(b []byte) (PrimarySpanEntry, bool) {
	if len(b) != 44 && len(b) != 48 {
		return PrimarySpanEntry{}, false
	}
	r := binreader.New(b, binreader.BigEndian)
	var e PrimarySpanEntry
	e.StartFrame = int32(r.U32())
	e.EndFrame = int32(r.U32())
	e.XtraInfo = int32(r.U32())
	e.SpriteFlags = r.U16()
	e.ChannelIndex = r.U16()
	// 20-byte tween block.
	e.Tween.Curvature = r.I16()
	e.Tween.Flags = r.U16()
	e.Tween.EaseIn = r.I16()
	e.Tween.EaseOut = r.I16()
	r.Skip(12) // padding, to the end of the 20-byte tween block
	return e, true
}

// OffsetTable is the D6+ score chunk's preamble plus its array of
// entry offsets (spec.md §4.5).
type OffsetTable struct {
	FramesStreamSize int
	Version          int
	ListStart        int
	NumEntries       int
	ListSize         int
	MaxDataLen       int
	// Offsets[i] is relative to FrameDataOffset.
	Offsets          []int32
	FrameDataOffset  int
}

// ParseOffsetTable parses entry 0 of a D6+ score chunk's offset table:
// the frame-stream preamble, then the num_entries/list_size/
// max_data_len header at list_start, then the num_entries 32-bit
// offsets.
func ParseOffsetTable(data []byte) (OffsetTable, bool) {
	r := binreader.New(data, binreader.BigEndian)
	var t OffsetTable
	t.FramesStreamSize = int(r.U32())
	t.Version = int(r.U32())
	t.ListStart = int(r.U32())
	if r.Err() != nil || t.ListStart < 0 || t.ListStart > len(data) {
		return OffsetTable{}, false
	}

	r2 := binreader.New(data, binreader.BigEndian)
	r2.Seek(t.ListStart)
	t.NumEntries = int(r2.U32())
	t.ListSize = int(r2.U32())
	t.MaxDataLen = int(r2.U32())
	if r2.Err() != nil || t.NumEntries < 0 || t.NumEntries > len(data) {
		return OffsetTable{}, false
	}

	t.FrameDataOffset = t.ListStart + 12 + t.ListSize*4
	t.Offsets = make([]int32, 0, t.NumEntries)
	for i := 0; i < t.NumEntries; i++ {
		t.Offsets = append(t.Offsets, int32(r2.U32()))
		if r2.Err() != nil {
			break
		}
	}
	return t, true
}

// entryOffset returns the absolute byte offset of entry index idx
// (Offsets[idx] plus FrameDataOffset), or false if idx is outside the
// table. The offset table does not record per-entry lengths, so only
// the start position is returned.
func (t OffsetTable) entryOffset(idx int) (int, bool) {
	if idx < 0 || idx >= len(t.Offsets) {
		return 0, false
	}
	return t.FrameDataOffset + int(t.Offsets[idx]), true
}

// behaviorRecordSize is the fixed size of one behavior-list record
// (spec.md §4.5: "a packed sequence of 8-byte records").
const behaviorRecordSize = 8

const maxAcceptedCastMember = 10000

// ReadBehaviors decodes the behavior stream for a sprite whose
// sprite_list_idx is spriteListIdx, per spec.md §4.5: behaviors live
// at absolute offset offsets[N+1]; the stream is terminated by a
// (0,0) record; cast_lib == 0xFFFF means "use parent cast lib"; only
// 0 < cast_member < 10000 is accepted.
func ReadBehaviors(data []byte, t OffsetTable, spriteListIdx int) []BehaviorRef {
	off, ok := t.entryOffset(spriteListIdx + 1)
	if !ok {
		return nil
	}
	return readBehaviorStreamAt(data, off)
}

func readBehaviorStreamAt(data []byte, off int) []BehaviorRef {
	var out []BehaviorRef
	for off+behaviorRecordSize <= len(data) {
		r := binreader.New(data[off:off+behaviorRecordSize], binreader.BigEndian)
		castLib := r.U16()
		castMember := r.U16()
		_ = r.U32() // initializer_index

		if castLib == 0 && castMember == 0 {
			break
		}
		if castMember > 0 && castMember < maxAcceptedCastMember {
			out = append(out, BehaviorRef{CastLib: castLib, CastMember: castMember})
		}
		off += behaviorRecordSize
	}
	return out
}

// readBehaviorListEntries decodes the run of behavior-list entries
// that follow a primary sprite-span entry, per spec.md §4.5: entries
// whose byte length is a positive multiple of 8 are behavior lists (8
// bytes per record: cast_lib, cast_member, unk); a non-8-multiple
// entry terminates the run. If unk indexes an entry containing a
// printable byte sequence starting with '[', that entry is parsed as
// a property-list parameter (kept raw — see richtext/script for
// structured property-list parsing elsewhere in this module; scoring
// keeps the bytes verbatim per spec.md §4.5).
func readBehaviorListEntries(entries [][]byte) []BehaviorRef {
	var out []BehaviorRef
	for _, entry := range entries {
		if len(entry) == 0 || len(entry)%behaviorRecordSize != 0 {
			break
		}
		for off := 0; off+behaviorRecordSize <= len(entry); off += behaviorRecordSize {
			r := binreader.New(entry[off:off+behaviorRecordSize], binreader.BigEndian)
			castLib := r.U16()
			castMember := r.U16()
			unk := r.U32()
			if castLib == 0 || castMember == 0 {
				continue
			}
			ref := BehaviorRef{CastLib: castLib, CastMember: castMember}
			if int(unk) >= 0 && int(unk) < len(entries) {
				if params := entries[unk]; looksLikePropertyList(params) {
					ref.ParamsRaw = params
				}
			}
			out = append(out, ref)
		}
	}
	return out
}

func looksLikePropertyList(b []byte) bool {
	for _, c := range b {
		if c == '[' {
			return true
		}
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return false
}

// MaterializeSpans groups per-channel frame records across the whole
// matrix by channel, sorted by frame index, and coalesces consecutive
// frames that share (cast_lib, cast_member) into one SpriteSpan
// (spec.md §4.5 "Sprite-span materialisation").
func MaterializeSpans(m *ChannelMatrix) []SpriteSpan {
	type key struct {
		castLib, castMember uint16
	}
	open := map[int]*SpriteSpan{} // channel -> in-progress span

	var spans []SpriteSpan
	for i := range m.Frames {
		detail := m.Detail(i)
		seen := map[int]bool{}
		for ch, rec := range detail.Sprites {
			seen[ch] = true
			if s, ok := open[ch]; ok && s.CastLib == rec.CastLib && s.CastMember == rec.CastMember {
				s.EndFrame = i
				continue
			}
			if s, ok := open[ch]; ok {
				spans = append(spans, *s)
				delete(open, ch)
			}
			open[ch] = &SpriteSpan{
				Channel:    ch,
				StartFrame: i,
				EndFrame:   i,
				CastLib:    rec.CastLib,
				CastMember: rec.CastMember,
			}
		}
		for ch := range open {
			if !seen[ch] {
				spans = append(spans, *open[ch])
				delete(open, ch)
			}
		}
	}
	for _, s := range open {
		spans = append(spans, *s)
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Channel != spans[j].Channel {
			return spans[i].Channel < spans[j].Channel
		}
		return spans[i].StartFrame < spans[j].StartFrame
	})
	return spans
}
