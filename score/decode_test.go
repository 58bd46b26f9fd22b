package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepteams/dirplayer/internal/diag"
)

func u16be(v int) []byte { return []byte{byte(v >> 8), byte(v)} }

// buildDeltaBlock builds one frame's delta stream out of (offset,
// size, byteValue) triples; frameBlock then wraps it in a
// length-prefixed frame block.
func buildDeltaBlock(deltas ...[3]int) []byte {
	// deltas: {offset, size, byteValue} triples, built into one
	// (size,offset,bytes...) delta record each.
	var out []byte
	for _, d := range deltas {
		offset, size, val := d[0], d[1], d[2]
		out = append(out, u16be(size)...)
		out = append(out, u16be(offset)...)
		for i := 0; i < size; i++ {
			out = append(out, byte(val))
		}
	}
	return out
}

func frameBlock(delta []byte) []byte {
	length := len(delta) + 2
	return append(u16be(length), delta...)
}

func TestPreScanMatchesActualBlocks(t *testing.T) {
	stream := append(frameBlock(buildDeltaBlock([3]int{0, 2, 0xAA})), frameBlock(buildDeltaBlock([3]int{2, 2, 0xBB}))...)
	stream = append(stream, 0, 0) // zero-length terminator

	got := PreScan(stream)
	assert.Equal(t, 2, got)
}

func TestPreScanStopsAtTruncation(t *testing.T) {
	good := frameBlock(buildDeltaBlock([3]int{0, 2, 1}))
	truncated := frameBlock(buildDeltaBlock([3]int{2, 2, 2}))
	stream := append(good, truncated[:len(truncated)-1]...) // cut the second block's tail

	got := PreScan(stream)
	assert.Equal(t, 1, got, "the truncated trailing block does not count as a successful read")
}

func TestExpandCarriesForwardUnwrittenChannels(t *testing.T) {
	// Two D6+ channels of 20 bytes each = 40-byte frame.
	hdr := FrameDataHeader{FrameCount: 2, SpriteRecSize: 20, ChannelCount: 2, FramesVersion: 9}

	// Frame 0: channel 1's castMember field (bytes 6-7 of the 20-byte
	// record starting at abs offset 20) is set to a nonzero value.
	frame0 := buildDeltaBlock([3]int{26, 2, 5})
	// Frame 1: only change position (posX within channel1 at rel 14-15 -> abs 34-35).
	frame1 := buildDeltaBlock([3]int{34, 2, 7})

	stream := append(frameBlock(frame0), frameBlock(frame1)...)

	sink := &diag.Sink{}
	m, err := Expand(stream, hdr, LayoutD6Uniform, sink)
	require.NoError(t, err)
	require.Len(t, m.Frames, 2)

	d0 := m.Detail(0)
	d1 := m.Detail(1)
	require.Contains(t, d0.Sprites, 1)
	require.Contains(t, d1.Sprites, 1)
	assert.Equal(t, d0.Sprites[1].CastMember, d1.Sprites[1].CastMember, "unwritten channel byte range must carry forward")
}

func TestExpandFatalOnOutOfBoundsDelta(t *testing.T) {
	hdr := FrameDataHeader{FrameCount: 1, SpriteRecSize: 20, ChannelCount: 1, FramesVersion: 9}
	// Frame byte size is 20; offset 30 is out of range.
	bad := buildDeltaBlock([3]int{30, 4, 1})
	stream := frameBlock(bad)

	sink := &diag.Sink{}
	_, err := Expand(stream, hdr, LayoutD6Uniform, sink)
	require.Error(t, err)
	assert.True(t, sink.HasFatal())
}

func TestMaterializeSpansCoalescesConsecutiveFrames(t *testing.T) {
	hdr := FrameDataHeader{FrameCount: 3, SpriteRecSize: 20, ChannelCount: 2}
	m := &ChannelMatrix{Header: hdr, Layout: LayoutD6Uniform}

	mk := func(castLib, castMember uint16) []byte {
		b := make([]byte, 40)
		// channel 1 at offset 20, castLib/castMember at rel 4-5/6-7 -> abs 24-27
		b[24], b[25] = byte(castLib>>8), byte(castLib)
		b[26], b[27] = byte(castMember>>8), byte(castMember)
		b[36], b[37] = 0, 10 // height nonzero to keep record non-zero
		return b
	}
	m.Frames = [][]byte{mk(1, 5), mk(1, 5), mk(1, 6)}

	spans := MaterializeSpans(m)
	require.Len(t, spans, 2)
	assert.Equal(t, 0, spans[0].StartFrame)
	assert.Equal(t, 1, spans[0].EndFrame)
	assert.EqualValues(t, 5, spans[0].CastMember)
	assert.Equal(t, 2, spans[1].StartFrame)
	assert.Equal(t, 2, spans[1].EndFrame)
	assert.EqualValues(t, 6, spans[1].CastMember)
}

func TestZeroFrameScoreProducesNoErrors(t *testing.T) {
	hdr := FrameDataHeader{FrameCount: 0, SpriteRecSize: 20, ChannelCount: 2}
	sink := &diag.Sink{}
	m, err := Expand(nil, hdr, LayoutD6Uniform, sink)
	require.NoError(t, err)
	assert.Empty(t, m.Frames)
}
