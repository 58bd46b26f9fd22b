package font

import (
	"math"
	"sync"

	"github.com/google/uuid"
)

// RasterizedFont is the atlas assembler's output (spec.md §3
// "Rasterised font").
type RasterizedFont struct {
	RGBA          []byte // w*h*4, row-major
	Width, Height int
	CellW, CellH  int
	Cols, Rows    int
	Advances      map[int]int
	FirstChar     int
	NumChars      int
}

// gridCols/gridRows fix the ASCII grid layout spec.md §4.3 names: 16
// columns by ceil(128/16) rows.
const (
	gridCols      = 16
	asciiNumChars = 128
	gridRows      = (asciiNumChars + gridCols - 1) / gridCols
)

// supersampleFactor is the default oversample factor N (spec.md §4.3).
const supersampleFactor = 4

// AssembleOptions configures one atlas build.
type AssembleOptions struct {
	ScaleX, ScaleY float64 // target-pixel-size / outline-resolution
	SetWidthScale  float64
	BlackPixelBit  bool // source "black pixel" flag; inverts strike bits when false
	Supersample    int
}

// Assemble builds a grid atlas for the ASCII range (spec.md §4.3
// "Atlas assembly"). Outline glyphs are rasterised; glyphs with only a
// bitmap strike are blitted directly; glyphs with neither leave an
// empty cell.
func Assemble(pf ParsedFont, opt AssembleOptions) RasterizedFont {
	if opt.Supersample <= 0 {
		opt.Supersample = supersampleFactor
	}
	if opt.SetWidthScale == 0 {
		opt.SetWidthScale = 1
	}

	maxAdvance, maxBBoxW := measureMaxima(pf, opt)
	cellW := int(math.Ceil(math.Max(maxAdvance, maxBBoxW)))
	if cellW < 1 {
		cellW = 1
	}
	cellH := int(pf.Physical.Ascender) + absInt(pf.Physical.Descender) + 1
	if cellH < 1 {
		cellH = 1
	}

	rf := RasterizedFont{
		Width: cellW * gridCols, Height: cellH * gridRows,
		CellW: cellW, CellH: cellH,
		Cols: gridCols, Rows: gridRows,
		Advances:  map[int]int{},
		FirstChar: 0, NumChars: asciiNumChars,
	}
	rf.RGBA = make([]byte, rf.Width*rf.Height*4)

	for code := 0; code < asciiNumChars; code++ {
		entry, ok := pf.Glyphs[code]
		col, row := code%gridCols, code/gridCols
		cellX, cellY := col*cellW, row*cellH

		advance := 1
		if ok {
			advance = renderGlyph(&rf, entry, pf, opt, cellX, cellY, cellW, cellH)
		}
		rf.Advances[code] = advance
	}

	applyCapsOnlyFallback(&rf)
	return rf
}

func measureMaxima(pf ParsedFont, opt AssembleOptions) (maxAdvance, maxBBoxW float64) {
	for _, g := range pf.Glyphs {
		sw := float64(pf.Physical.StandardSetWidth)
		if g.Strike != nil && g.Strike.SetWidth > 0 {
			sw = float64(g.Strike.SetWidth)
		}
		adv := sw * opt.SetWidthScale
		if adv > maxAdvance {
			maxAdvance = adv
		}
		if g.Outline != nil {
			_, _, x1, _ := outlineBBox(g.Outline)
			w := x1 * opt.ScaleX
			if w > maxBBoxW {
				maxBBoxW = w
			}
		}
	}
	return
}

// outlineBBox returns the bounding box (x0, y0, x1, y1) in oru,
// including cubic control points per spec.md §4.3.
func outlineBBox(o *OutlineGlyph) (x0, y0, x1, y1 float64) {
	first := true
	consider := func(x, y int32) {
		fx, fy := float64(x)/64, float64(y)/64
		if first {
			x0, y0, x1, y1 = fx, fy, fx, fy
			first = false
			return
		}
		if fx < x0 {
			x0 = fx
		}
		if fx > x1 {
			x1 = fx
		}
		if fy < y0 {
			y0 = fy
		}
		if fy > y1 {
			y1 = fy
		}
	}
	for _, c := range o.Contours {
		for _, cmd := range c {
			switch cmd.Kind {
			case CmdMove, CmdLine:
				consider(int32(cmd.X), int32(cmd.Y))
			case CmdCurve:
				consider(int32(cmd.CX1), int32(cmd.CY1))
				consider(int32(cmd.CX2), int32(cmd.CY2))
				consider(int32(cmd.X), int32(cmd.Y))
			}
		}
	}
	return
}

// renderGlyph rasterises or blits one glyph into its atlas cell and
// returns its pixel advance.
func renderGlyph(rf *RasterizedFont, entry GlyphEntry, pf ParsedFont, opt AssembleOptions, cellX, cellY, cellW, cellH int) int {
	sw := float64(pf.Physical.StandardSetWidth)

	if entry.Outline != nil {
		offX := -float64(pf.Physical.XMin) * opt.ScaleX
		offY := float64(pf.Physical.Ascender) * opt.ScaleY
		scaleY := opt.ScaleY
		if flipY(pf) {
			scaleY = -scaleY
		}

		var contours [][]point
		for _, c := range entry.Outline.Contours {
			pts := flattenContour(c, opt.ScaleX, scaleY, offX, offY)
			if len(pts) > 1 {
				contours = append(contours, pts)
			}
		}
		alpha := RasterizeAlpha(contours, cellW, cellH, opt.Supersample)
		blitAlpha(rf, alpha, cellX, cellY, cellW, cellH)
	} else if entry.Strike != nil {
		blitStrike(rf, entry.Strike, cellX, cellY, cellW, cellH, opt.BlackPixelBit)
		sw = float64(entry.Strike.SetWidth)
	}

	advance := int(math.Round(sw * opt.SetWidthScale))
	if advance < 1 {
		advance = 1
	}
	return advance
}

// flipY derives the single Y-flip from the logical font matrix's sign,
// defaulting to flipped (font-unit Y grows upward, pixel Y grows
// downward) when there is no logical matrix (spec.md §4.3).
func flipY(pf ParsedFont) bool {
	if pf.Logical == nil {
		return true
	}
	return pf.Logical.D >= 0
}

func blitAlpha(rf *RasterizedFont, alpha []byte, cellX, cellY, w, h int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := alpha[y*w+x]
			if a == 0 {
				continue
			}
			px := cellX + x
			py := cellY + y
			if px < 0 || px >= rf.Width || py < 0 || py >= rf.Height {
				continue
			}
			o := (py*rf.Width + px) * 4
			rf.RGBA[o+0] = 0
			rf.RGBA[o+1] = 0
			rf.RGBA[o+2] = 0
			rf.RGBA[o+3] = a
		}
	}
}

// blitStrike blits a packed MSB-first bitmap strike, guarding against
// declared sizes exceeding 4x the cell (spec.md §4.3).
func blitStrike(rf *RasterizedFont, s *BitmapStrike, cellX, cellY, cellW, cellH int, blackPixel bool) {
	if s.Width > 4*cellW || s.Height > 4*cellH {
		return
	}
	rowBytes := (s.Width + 7) / 8
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			byteIdx := y*rowBytes + x/8
			if byteIdx >= len(s.Bits) {
				continue
			}
			bit := (s.Bits[byteIdx] >> (7 - uint(x%8))) & 1
			lit := bit != 0
			if !blackPixel {
				lit = !lit
			}
			if !lit {
				continue
			}
			px := cellX + s.XPos + x
			py := cellY + s.YPos + y
			if px < 0 || px >= rf.Width || py < 0 || py >= rf.Height {
				continue
			}
			o := (py*rf.Width + px) * 4
			rf.RGBA[o+0] = 0
			rf.RGBA[o+1] = 0
			rf.RGBA[o+2] = 0
			rf.RGBA[o+3] = 255
		}
	}
}

// applyCapsOnlyFallback copies uppercase cells over empty/near-empty
// lowercase cells and duplicates the advance (spec.md §4.3
// "Caps-only fallback").
func applyCapsOnlyFallback(rf *RasterizedFont) {
	for code := 'a'; code <= 'z'; code++ {
		lo := int(code)
		up := lo - 32
		if lo >= rf.NumChars || up < 0 {
			continue
		}
		if inkHeight(rf, lo) > 2 {
			continue
		}
		copyCell(rf, up, lo)
		rf.Advances[lo] = rf.Advances[up]
	}
}

func inkHeight(rf *RasterizedFont, code int) int {
	col, row := code%rf.Cols, code/rf.Cols
	cellX, cellY := col*rf.CellW, row*rf.CellH
	top, bottom := -1, -1
	for y := 0; y < rf.CellH; y++ {
		rowHasInk := false
		for x := 0; x < rf.CellW; x++ {
			px, py := cellX+x, cellY+y
			o := (py*rf.Width + px) * 4
			if rf.RGBA[o+3] != 0 {
				rowHasInk = true
				break
			}
		}
		if rowHasInk {
			if top == -1 {
				top = y
			}
			bottom = y
		}
	}
	if top == -1 {
		return 0
	}
	return bottom - top + 1
}

func copyCell(rf *RasterizedFont, srcCode, dstCode int) {
	srcCol, srcRow := srcCode%rf.Cols, srcCode/rf.Cols
	dstCol, dstRow := dstCode%rf.Cols, dstCode/rf.Cols
	for y := 0; y < rf.CellH; y++ {
		for x := 0; x < rf.CellW; x++ {
			srcO := ((srcRow*rf.CellH+y)*rf.Width + srcCol*rf.CellW + x) * 4
			dstO := ((dstRow*rf.CellH+y)*rf.Width + dstCol*rf.CellW + x) * 4
			copy(rf.RGBA[dstO:dstO+4], rf.RGBA[srcO:srcO+4])
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Cache is a process-wide atlas cache keyed by a caller-supplied
// identity string (spec.md §5: "process-wide, mutex-guarded
// singletons only where explicitly allowed, e.g. the glyph atlas
// cache"). It mirrors the teacher's bucketed sync.Pool pattern: a
// guarding mutex plus plain map, not sync.Map, since entries are
// large and rarely churn.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	hits    int
	misses  int
}

type cacheEntry struct {
	id   uuid.UUID
	font RasterizedFont
}

// globalCache is the single process-wide instance; callers needing
// isolation (e.g. tests) should construct their own Cache instead.
var globalCache = NewCache()

// NewCache returns an empty atlas cache.
func NewCache() *Cache {
	return &Cache{entries: map[string]*cacheEntry{}}
}

// GlobalCache returns the process-wide atlas cache.
func GlobalCache() *Cache { return globalCache }

// GetOrBuild returns the cached atlas for key, building it with build
// if absent.
func (c *Cache) GetOrBuild(key string, build func() RasterizedFont) RasterizedFont {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return e.font
	}
	c.misses++
	c.mu.Unlock()

	built := build()

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.font
	}
	c.entries[key] = &cacheEntry{id: uuid.New(), font: built}
	return built
}

// Flush clears every cached atlas. Additive beyond spec.md's minimum
// (see SPEC_FULL.md "Supplemented features"): useful when a cast's
// fonts are reloaded and stale atlases must not be served.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*cacheEntry{}
}

// Stats reports cumulative hit/miss counts for monitoring.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
