package score

import "github.com/deepteams/dirplayer/internal/binreader"

// FrameDetail is everything recovered from one decoded frame: the
// non-zero sprite records (indexed by channel), the sound records,
// and the tempo record, filtered per the emission rules in spec.md
// §4.4 ("A sprite record is emitted... only if any numeric field is
// non-zero... A tempo record is emitted if not the 'no change'
// sentinel... and not all-zero").
type FrameDetail struct {
	Sprites map[int]ChannelRecord // key: channel index
	Sounds  map[int]Sound         // key: channel index (3, 4 in D6+)
	Tempo   *Tempo
}

// Detail decodes frame index i of the matrix into its non-zero
// records, per the layout-dependent field offsets of spec.md §4.4.
func (m *ChannelMatrix) Detail(i int) FrameDetail {
	if i < 0 || i >= len(m.Frames) {
		return FrameDetail{}
	}
	raw := m.Frames[i]
	if m.Layout == LayoutD5Packed {
		return detailD5(raw, m.Header.ChannelCount)
	}
	return detailD6(raw, m.Header.ChannelCount, m.Header.SpriteRecSize)
}

func detailD5(raw []byte, channelCount int) FrameDetail {
	fd := FrameDetail{Sprites: map[int]ChannelRecord{}}

	if len(raw) >= d5MainChannelSize {
		main := raw[:d5MainChannelSize]
		// D5's main-channel block carries a single tempo byte at
		// offset 21 (spec.md §4.4 table), not the full 20-byte D6+
		// tempo record; wrap it in Tempo for a uniform FrameDetail
		// shape across layouts.
		if main[21] != 0 && main[21] != noChangeTempoFlags[0] {
			fd.Tempo = &Tempo{Value: main[21]}
		}
	}

	for c := 0; c < channelCount; c++ {
		off := d5MainChannelSize + c*d5SpriteRecordSize
		if off+d5SpriteRecordSize > len(raw) {
			break
		}
		rec := decodeD5SpriteRecord(raw[off : off+d5SpriteRecordSize])
		if rec.IsNonZero() {
			fd.Sprites[c] = rec
		}
	}
	return fd
}

// decodeD5SpriteRecord reads the 24-byte D5 layout (frames_version <=
// 7): spriteType, inkData, castLib, castMember, scriptCastLib,
// scriptMember, foreColor, backColor, posY, posX, height, width,
// colorcode, blend, thickness, unused. The script cast-lib/member pair
// has no dedicated field on this layout's D6+ counterpart, so it's
// packed into SpriteListIdx the same way the byte range is reused
// there (hi = scriptCastLib, lo = scriptMember).
func decodeD5SpriteRecord(b []byte) ChannelRecord {
	r := binreader.New(b, binreader.BigEndian)
	var rec ChannelRecord
	rec.SpriteType = r.U8()
	rec.InkFlags = r.U8()
	rec.CastLib = r.U16()
	rec.CastMember = r.U16()
	scriptCastLib := r.U16()
	scriptMember := r.U16()
	rec.SpriteListIdx = uint32(scriptCastLib)<<16 | uint32(scriptMember)
	rec.ForeColor = r.U8()
	rec.BackColor = r.U8()
	rec.PosY = r.I16()
	rec.PosX = r.I16()
	rec.Height = r.U16()
	rec.Width = r.U16()
	rec.ColorFlags = r.U8()
	rec.Blend = r.U8()
	r.Skip(2) // thickness, unused
	return rec
}

func detailD6(raw []byte, channelCount, recSize int) FrameDetail {
	fd := FrameDetail{Sprites: map[int]ChannelRecord{}, Sounds: map[int]Sound{}}

	for c := 0; c < channelCount; c++ {
		off := c * recSize
		if off+recSize > len(raw) {
			break
		}
		chunk := raw[off : off+recSize]

		switch c {
		case 3, 4:
			var s Sound
			n := copy(s.Raw[:], chunk)
			if n >= 4 {
				r := binreader.New(chunk, binreader.BigEndian)
				s.CastLib = r.U16()
				s.CastMember = r.U16()
			}
			if !isZero(s.Raw[:]) {
				fd.Sounds[c] = s
			}
		case 5:
			var t Tempo
			n := copy(t.Raw[:], chunk)
			if n > 0 {
				t.Value = t.Raw[0]
			}
			if !t.IsNoChange() && !t.IsZero() {
				fd.Tempo = &t
			}
		default:
			rec := decodeD6SpriteRecord(chunk)
			if rec.IsNonZero() {
				fd.Sprites[c] = rec
			}
		}
	}
	return fd
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// decodeD6SpriteRecord reads a D6+ uniform sprite record. The base 20
// bytes are fixed by spec.md §3's field list; the 22/24/28/>=36 size
// variants follow read_with_size's field order (two reserved bytes at
// 24, the extended color quad at 28, two reserved u16s bracketing
// rotation/skew at 36).
func decodeD6SpriteRecord(b []byte) ChannelRecord {
	r := binreader.New(b, binreader.BigEndian)
	var rec ChannelRecord

	rec.SpriteType = r.U8()
	rec.InkFlags = r.U8()
	rec.ForeColor = r.U8()
	rec.BackColor = r.U8()
	rec.CastLib = r.U16()
	rec.CastMember = r.U16()
	hi := r.U16()
	lo := r.U16()
	rec.SpriteListIdx = uint32(hi)<<16 | uint32(lo)
	rec.PosY = r.I16()
	rec.PosX = r.I16()
	rec.Height = r.U16()
	rec.Width = r.U16()

	if len(b) >= 22 {
		rec.ColorFlags = r.U8()
		rec.Blend = r.U8()
	}
	if len(b) >= 24 {
		r.Skip(2) // reserved
	}
	if len(b) >= 28 {
		rec.ForeColorGreen = r.U8()
		rec.BackColorGreen = r.U8()
		rec.ForeColorBlue = r.U8()
		rec.BackColorBlue = r.U8()
		rec.HasExtendedColor = true
	}
	if len(b) >= 36 {
		r.Skip(2) // reserved
		rec.RotationX100 = r.I16()
		r.Skip(2) // reserved
		rec.SkewX100 = r.I16()
		rec.HasRotationSkew = true
	}

	return rec
}
