package score

import (
	"fmt"

	"github.com/deepteams/dirplayer/internal/binreader"
	"github.com/deepteams/dirplayer/internal/diag"
	"github.com/deepteams/dirplayer/internal/pool"
)

// Layout distinguishes the two frame-record layouts spec.md §4.4 names.
type Layout int

const (
	// LayoutD5Packed covers versions <= 7: the first 48 bytes of every
	// frame hold packed "main" channels, sprite channels follow at
	// fixed 24-byte records.
	LayoutD5Packed Layout = iota
	// LayoutD6Uniform covers versions > 7: channel 3/4 are sound
	// records, channel 5 is a tempo record, all others are sprite
	// records at a uniform record size.
	LayoutD6Uniform
)

// LayoutFor returns the frame layout for a given source version.
func LayoutFor(version int) Layout {
	if version <= 7 {
		return LayoutD5Packed
	}
	return LayoutD6Uniform
}

// ErrChannelOutOfBounds is the fatal error spec.md §4.4/§7 describes:
// a channel-delta write that would exceed the frame buffer aborts the
// current score decode (the rest of the file is still loaded).
var ErrChannelOutOfBounds = fmt.Errorf("score: channel delta write exceeds frame buffer")

// d5MainChannelSize is the size in bytes of the packed main-channel
// block at the start of every D5-layout frame (spec.md §4.4 table).
const d5MainChannelSize = 48

const d5SpriteRecordSize = 24

// ReadHeader parses the frame stream header. If version <= 13 the
// "num channels displayed" field is present and skipped: 48 bytes for
// version <= 7, else 120 (spec.md §4.4).
func ReadHeader(r *binreader.Reader, version int) FrameDataHeader {
	hdr := FrameDataHeader{
		FrameCount:    int(r.U32()),
		SpriteRecSize: int(r.U16()),
		ChannelCount:  int(r.U16()),
		FramesVersion: version,
	}
	if version <= 13 {
		if version <= 7 {
			r.Skip(48)
		} else {
			r.Skip(120)
		}
	}
	return hdr
}

// PreScan counts the length-prefixed frame blocks actually present in
// the frame stream starting at data, per spec.md §4.4/§8 item 8: "the
// pre-scanned score frame count equals the actual number of frame
// blocks successfully parsed". It stops at a zero-length terminator or
// end of stream and never errors; a truncated trailing block simply
// ends the count.
func PreScan(data []byte) int {
	pos := 0
	count := 0
	for pos+2 <= len(data) {
		length := int(data[pos])<<8 | int(data[pos+1])
		if length == 0 {
			break
		}
		next := pos + length
		if next > len(data) || length < 2 {
			break
		}
		pos = next
		count++
	}
	return count
}

// ChannelMatrix is the dense per-frame, per-channel byte buffer
// produced by Expand, plus the metadata needed to interpret it.
type ChannelMatrix struct {
	Header FrameDataHeader
	Layout Layout
	// Frames[i] is the full raw bytes of frame i: for LayoutD5Packed
	// this is d5MainChannelSize + ChannelCount*24 bytes; for
	// LayoutD6Uniform it is ChannelCount*SpriteRecSize bytes.
	Frames [][]byte
}

// frameByteSize returns the size in bytes of one frame's dense record,
// for the matrix's layout.
func (h FrameDataHeader) frameByteSize(layout Layout) int {
	if layout == LayoutD5Packed {
		return d5MainChannelSize + h.ChannelCount*d5SpriteRecordSize
	}
	return h.ChannelCount * h.SpriteRecSize
}

// Expand decodes the two-pass (carry-forward + delta) frame stream
// starting at data, using the pre-scanned authoritative frame count.
// It implements spec.md §4.4 "Expansion" and its invariant (spec.md
// §8 item 1): channel_data[i, c] = channel_data[i-1, c] unless frame
// i's delta stream wrote bytes covering that channel's byte range.
func Expand(data []byte, hdr FrameDataHeader, layout Layout, sink *diag.Sink) (*ChannelMatrix, error) {
	authoritative := PreScan(data)
	if authoritative != hdr.FrameCount {
		if sink != nil {
			sink.Record("score.header", "frame count mismatch: header=%d pre-scan=%d, using pre-scan", hdr.FrameCount, authoritative)
		}
		hdr.FrameCount = authoritative
	}

	frameSize := hdr.frameByteSize(layout)
	m := &ChannelMatrix{Header: hdr, Layout: layout, Frames: make([][]byte, hdr.FrameCount)}

	pos := 0
	var prev []byte
	for i := 0; i < hdr.FrameCount; i++ {
		if pos+2 > len(data) {
			break
		}
		length := int(data[pos])<<8 | int(data[pos+1])
		if length < 2 || pos+length > len(data) {
			break
		}
		delta := data[pos+2 : pos+length]
		pos += length

		cur := make([]byte, frameSize)
		if prev != nil {
			copy(cur, prev)
		}

		if err := applyDelta(cur, delta, sink, i); err != nil {
			// Fatal: abort this score's decode, rest of file unaffected.
			if sink != nil {
				sink.RecordFatal("score.frame", "frame %d: %v", i, err)
			}
			m.Frames = m.Frames[:i]
			return m, err
		}

		m.Frames[i] = cur
		prev = cur
	}

	return m, nil
}

// applyDelta overwrites byte ranges of cur according to the delta
// stream's (channel_size, channel_offset, bytes) records.
func applyDelta(cur []byte, delta []byte, sink *diag.Sink, frameIdx int) error {
	scratch := pool.Get(len(delta))
	defer pool.Put(scratch)
	copy(scratch, delta)
	scratch = scratch[:len(delta)]

	pos := 0
	for pos+4 <= len(scratch) {
		size := int(scratch[pos])<<8 | int(scratch[pos+1])
		offset := int(scratch[pos+2])<<8 | int(scratch[pos+3])
		pos += 4
		if pos+size > len(scratch) {
			return fmt.Errorf("%w: delta record truncated at frame %d", ErrChannelOutOfBounds, frameIdx)
		}
		if offset+size > len(cur) {
			return ErrChannelOutOfBounds
		}
		copy(cur[offset:offset+size], scratch[pos:pos+size])
		pos += size
	}
	return nil
}
