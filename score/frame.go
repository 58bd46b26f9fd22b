// Package score implements the score frame decoder and analyser
// (spec.md §4.4, §4.5): decoding the compressed per-channel delta
// stream into a dense matrix of sprite channel records across frames,
// and the subsequent pass that recovers sprite spans and behavior
// attachments.
package score

// Channel record field layout. Sprite records are fixed-size within a
// file but the size varies by source version: 20, 22, 24, 28, or >=36
// bytes (spec.md §3).
type ChannelRecord struct {
	SpriteType    uint8
	InkFlags      uint8 // low 6 bits = ink, bit 6 = trails, bit 7 = stretch
	ForeColor     uint8
	BackColor     uint8
	CastLib       uint16
	CastMember    uint16
	SpriteListIdx uint32 // hi/lo split in the source record
	PosX, PosY    int16
	Width, Height uint16
	ColorFlags    uint8 // bit 6 = editable, bit 7 = moveable; remaining bits opaque (spec.md §9)
	Blend         uint8

	// Present only in D8+ records.
	ForeColorGreen, ForeColorBlue uint8
	BackColorGreen, BackColorBlue uint8
	HasExtendedColor              bool

	// Rotation/skew stored scaled x100 as signed; treated as
	// degrees/100. Present only in the widest record layouts.
	RotationX100, SkewX100 int16
	HasRotationSkew        bool
}

// Ink returns the low 6 bits of InkFlags.
func (c ChannelRecord) Ink() uint8 { return c.InkFlags & 0x3F }

// Trails reports bit 6 of InkFlags.
func (c ChannelRecord) Trails() bool { return c.InkFlags&0x40 != 0 }

// Stretch reports bit 7 of InkFlags.
func (c ChannelRecord) Stretch() bool { return c.InkFlags&0x80 != 0 }

// Editable reports bit 6 of ColorFlags.
func (c ChannelRecord) Editable() bool { return c.ColorFlags&0x40 != 0 }

// Moveable reports bit 7 of ColorFlags.
func (c ChannelRecord) Moveable() bool { return c.ColorFlags&0x80 != 0 }

// IsNonZero reports whether any numeric field is non-zero, the test
// spec.md §4.4 uses to decide whether a sprite record is emitted.
func (c ChannelRecord) IsNonZero() bool {
	return c.SpriteType != 0 || c.CastMember != 0 || c.ForeColor != 0 ||
		c.BackColor != 0 || c.PosX != 0 || c.PosY != 0 || c.Width != 0 ||
		c.Height != 0 || c.RotationX100 != 0 || c.SkewX100 != 0 ||
		c.Blend != 0 || c.Ink() != 0
}

// Tempo record (20-byte fixed record, spec.md §3). The decoder fills
// Value and Raw only; Unk3 and Unk4 are not set by it and stay zero,
// and the opaque bytes are available only through Raw.
type Tempo struct {
	Value uint8
	Unk3  byte
	Unk4  byte
	Raw   [20]byte
}

// noChangeTempoFlags is the "no change" sentinel byte pair tested at
// offsets [0:2] of the 20-byte tempo record (spec.md §4.4).
var noChangeTempoFlags = [2]byte{0xff, 0xfe}

// IsNoChange reports whether this tempo record is the sentinel meaning
// "no tempo change this frame".
func (t Tempo) IsNoChange() bool {
	return t.Raw[0] == noChangeTempoFlags[0] && t.Raw[1] == noChangeTempoFlags[1]
}

// IsZero reports whether every byte of the record is zero.
func (t Tempo) IsZero() bool {
	for _, b := range t.Raw {
		if b != 0 {
			return false
		}
	}
	return true
}

// Sound record (20-byte fixed record, spec.md §3).
type Sound struct {
	CastLib    uint16
	CastMember uint16
	Raw        [20]byte
}

// FrameDataHeader holds the frame stream header fields (spec.md §3).
type FrameDataHeader struct {
	FrameCount    int // advisory only; see pre-scan in decode.go
	SpriteRecSize int
	ChannelCount  int
	FramesVersion int
}

// SpriteSpan is a maximal run of frames sharing one (cast lib, cast
// member) pair on one channel, with any attached behaviors (spec.md §3
// Sprite span, §4.5).
type SpriteSpan struct {
	Channel    int
	StartFrame int
	EndFrame   int // inclusive
	CastLib    uint16
	CastMember uint16
	Behaviors  []BehaviorRef
}

// BehaviorRef references one behavior cast member attached to a
// sprite, with an optional property-list parameter kept as raw bytes
// (spec.md §4.5).
type BehaviorRef struct {
	CastLib    uint16
	CastMember uint16
	// ParamsRaw holds the unparsed bytes of the parameter entry when
	// that entry looks like a property list (printable bytes up to a
	// '['); it is nil otherwise.
	ParamsRaw []byte
}
