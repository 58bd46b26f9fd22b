package font

import (
	"math"

	"github.com/deepteams/dirplayer/internal/pool"
)

// flatteningTolerance is the default tolerance in oru (spec.md §4.3).
const flatteningTolerance = 0.5

// point is a 2-D point in target-pixel space (after scale/offset).
type point struct{ x, y float64 }

// edge is one flattened line segment of a transformed contour.
type edge struct {
	a, b point
}

// flattenContour converts font-unit commands into a closed polyline in
// target-pixel space, applying (scaleX, scaleY) and (offX, offY),
// subdividing cubics by de Casteljau per spec.md §4.3.
func flattenContour(c Contour, scaleX, scaleY, offX, offY float64) []point {
	var pts []point
	var cur point
	toPixel := func(x, y fixed26) point {
		return point{x: float64(x)/64*scaleX + offX, y: float64(y)/64*scaleY + offY}
	}

	for _, cmd := range c {
		switch cmd.Kind {
		case CmdMove:
			cur = toPixel(int32(cmd.X), int32(cmd.Y))
			pts = append(pts, cur)
		case CmdLine:
			cur = toPixel(int32(cmd.X), int32(cmd.Y))
			pts = append(pts, cur)
		case CmdCurve:
			p0 := cur
			p1 := toPixel(int32(cmd.CX1), int32(cmd.CY1))
			p2 := toPixel(int32(cmd.CX2), int32(cmd.CY2))
			p3 := toPixel(int32(cmd.X), int32(cmd.Y))
			flattenCubic(p0, p1, p2, p3, flatteningTolerance*math.Abs(scaleX), &pts)
			cur = p3
		case CmdClose:
			if len(pts) > 0 && pts[0] != cur {
				pts = append(pts, pts[0])
			}
		}
	}
	return pts
}

// fixed26 documents that the commands passed to flattenContour are
// stored as fixed.Int26_6-compatible 32-bit values; declared as an
// alias purely to make toPixel's signature self-describing.
type fixed26 = int32

// flattenCubic recursively subdivides by de Casteljau at t=0.5 until
// the flatness measure (d2+d3)^2 < tolerance^2*(dx^2+dy^2), emitting
// endpoints of sufficiently flat pieces (spec.md §4.3).
func flattenCubic(p0, p1, p2, p3 point, tolerance float64, out *[]point) {
	flattenCubicRec(p0, p1, p2, p3, tolerance, 0, out)
}

const maxCubicDepth = 24

func flattenCubicRec(p0, p1, p2, p3 point, tolerance float64, depth int, out *[]point) {
	if depth >= maxCubicDepth || isFlatEnough(p0, p1, p2, p3, tolerance) {
		*out = append(*out, p3)
		return
	}
	p01 := mid(p0, p1)
	p12 := mid(p1, p2)
	p23 := mid(p2, p3)
	p012 := mid(p01, p12)
	p123 := mid(p12, p23)
	p0123 := mid(p012, p123)

	flattenCubicRec(p0, p01, p012, p0123, tolerance, depth+1, out)
	flattenCubicRec(p0123, p123, p23, p3, tolerance, depth+1, out)
}

func mid(a, b point) point { return point{(a.x + b.x) / 2, (a.y + b.y) / 2} }

// isFlatEnough computes the (d2+d3)^2 < tolerance^2*(dx^2+dy^2) test,
// where d2/d3 are the signed perpendicular distances of the control
// points from the endpoint chord (spec.md §4.3 "Curve flattening").
func isFlatEnough(p0, p1, p2, p3 point, tolerance float64) bool {
	dx := p3.x - p0.x
	dy := p3.y - p0.y
	d2 := (p1.x-p3.x)*dy - (p1.y-p3.y)*dx
	d3 := (p2.x-p3.x)*dy - (p2.y-p3.y)*dx
	if d2 < 0 {
		d2 = -d2
	}
	if d3 < 0 {
		d3 = -d3
	}
	sum := d2 + d3
	return sum*sum < tolerance*tolerance*(dx*dx+dy*dy)
}

// crossing is one scanline/edge intersection.
type crossing struct {
	x   float64
	dir int
}

// rasterizeMask1bit rasterises flattened contours into a w*h 1-bit
// mask (one byte per pixel, 0 or 1) using the non-zero winding rule
// (spec.md §4.3 "Scanline fill").
func rasterizeMask1bit(contours [][]point, w, h int) []byte {
	mask := pool.Get(w * h)
	for i := range mask {
		mask[i] = 0
	}
	edges := buildEdges(contours)

	for y := 0; y < h; y++ {
		scanY := float64(y) + 0.5
		var xs []crossing
		for _, e := range edges {
			y0, y1 := e.a.y, e.b.y
			if math.Abs(y0-y1) < 0.001 {
				continue
			}
			if (scanY < y0) == (scanY < y1) {
				continue
			}
			t := (scanY - y0) / (y1 - y0)
			x := e.a.x + t*(e.b.x-e.a.x)
			dir := -1
			if y0 < y1 {
				dir = 1
			}
			xs = append(xs, crossing{x: x, dir: dir})
		}
		if len(xs) < 2 {
			continue
		}
		sortCrossings(xs)

		winding := 0
		for i := 0; i < len(xs)-1; i++ {
			winding += xs[i].dir
			if winding != 0 {
				fillRow(mask, w, y, xs[i].x, xs[i+1].x)
			}
		}
	}
	return mask
}

func buildEdges(contours [][]point) []edge {
	var edges []edge
	for _, c := range contours {
		for i := 0; i+1 < len(c); i++ {
			edges = append(edges, edge{a: c[i], b: c[i+1]})
		}
	}
	return edges
}

func sortCrossings(xs []crossing) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1].x > xs[j].x; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

func fillRow(mask []byte, w, y int, x0, x1 float64) {
	start := int(math.Ceil(x0))
	end := int(math.Ceil(x1))
	if start < 0 {
		start = 0
	}
	if end > w {
		end = w
	}
	for x := start; x < end; x++ {
		mask[y*w+x] = 1
	}
}

// RasterizeAlpha renders contours (already in target-pixel space, w x
// h cell) into an 8-bit alpha mask, supersampling at factor N (default
// 4) with gamma-0.5 coverage per spec.md §4.3.
func RasterizeAlpha(contours [][]point, w, h, supersample int) []byte {
	if supersample < 1 {
		supersample = 1
	}
	hiW, hiH := w*supersample, h*supersample
	scaled := make([][]point, len(contours))
	for i, c := range contours {
		scaled[i] = make([]point, len(c))
		for j, p := range c {
			scaled[i][j] = point{p.x * float64(supersample), p.y * float64(supersample)}
		}
	}
	hiMask := rasterizeMask1bit(scaled, hiW, hiH)
	defer pool.Put(hiMask)

	alpha := make([]byte, w*h)
	n2 := supersample * supersample
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			count := 0
			for sy := 0; sy < supersample; sy++ {
				row := (y*supersample + sy) * hiW
				for sx := 0; sx < supersample; sx++ {
					if hiMask[row+x*supersample+sx] != 0 {
						count++
					}
				}
			}
			alpha[y*w+x] = coverageToAlpha(count, n2)
		}
	}
	return alpha
}

func coverageToAlpha(count, n2 int) byte {
	v := float64(count) * 255 / float64(n2)
	rounded := int(math.Round(v))
	if rounded == 0 || rounded == 255 {
		return byte(rounded)
	}
	return byte(math.Round(math.Sqrt(float64(rounded)/255) * 255))
}

// Rasterize1Bit renders contours into a 1-bit mask at the given
// supersample factor: a pixel is lit when at least one sub-pixel is
// filled (spec.md §4.3).
func Rasterize1Bit(contours [][]point, w, h, supersample int) []byte {
	if supersample < 1 {
		supersample = 1
	}
	hiW, hiH := w*supersample, h*supersample
	scaled := make([][]point, len(contours))
	for i, c := range contours {
		scaled[i] = make([]point, len(c))
		for j, p := range c {
			scaled[i][j] = point{p.x * float64(supersample), p.y * float64(supersample)}
		}
	}
	hiMask := rasterizeMask1bit(scaled, hiW, hiH)
	defer pool.Put(hiMask)

	out := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			lit := byte(0)
			for sy := 0; sy < supersample && lit == 0; sy++ {
				row := (y*supersample + sy) * hiW
				for sx := 0; sx < supersample; sx++ {
					if hiMask[row+x*supersample+sx] != 0 {
						lit = 1
						break
					}
				}
			}
			out[y*w+x] = lit
		}
	}
	return out
}
