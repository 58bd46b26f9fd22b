package font

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/image/math/fixed"
)

func rectContour(x0, y0, x1, y1 int32) Contour {
	toFixed := func(v int32) fixed.Int26_6 { return fixed.Int26_6(v << 6) }
	return Contour{
		{Kind: CmdMove, X: toFixed(x0), Y: toFixed(y0)},
		{Kind: CmdLine, X: toFixed(x1), Y: toFixed(y0)},
		{Kind: CmdLine, X: toFixed(x1), Y: toFixed(y1)},
		{Kind: CmdLine, X: toFixed(x0), Y: toFixed(y1)},
		{Kind: CmdClose},
	}
}

func TestRasterizeRectangleFillsSolidBlock(t *testing.T) {
	// Glyph bbox scenario from spec.md §8: M(0,0) L(100,0) L(100,200)
	// L(0,200) Z at scale 1.0 into a 110x210 cell produces a solid
	// 100x200 rectangle at (0,0).
	contour := rectContour(0, 0, 100, 200)
	pts := flattenContour(contour, 1, 1, 0, 0)
	alpha := RasterizeAlpha([][]point{pts}, 110, 210, 1)

	assert.Equal(t, byte(255), alpha[50*110+50], "inside the rectangle must be fully opaque")
	assert.Equal(t, byte(0), alpha[5*110+105], "outside the rectangle (x >= 100) must be empty")
	assert.Equal(t, byte(255), alpha[150*110+50])
}

func TestRasterizeDeterministic(t *testing.T) {
	contour := rectContour(0, 0, 40, 40)
	pts := flattenContour(contour, 1, 1, 0, 0)
	a := RasterizeAlpha([][]point{pts}, 50, 50, 4)
	b := RasterizeAlpha([][]point{pts}, 50, 50, 4)
	assert.Equal(t, a, b)
}

func TestFlattenCubicRespectsTolerance(t *testing.T) {
	p0 := point{0, 0}
	p1 := point{0, 50}
	p2 := point{100, 50}
	p3 := point{100, 0}
	var out []point
	flattenCubic(p0, p1, p2, p3, flatteningTolerance, &out)
	assert.NotEmpty(t, out)
	assert.Equal(t, p3, out[len(out)-1])
}
