package main

import (
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// GlowCanvas is a braille sub-cell pixel surface (2x4 pixels per cell)
// with alpha compositing and a persistent accumulation buffer. The buffer
// is never wiped between frames; Fade applies the translucent-overlay
// clear that produces the trail effect.
type GlowCanvas struct {
	width  int
	height int
	pw, ph int
	r      []float64
	g      []float64
	b      []float64
	a      []float64
}

func NewGlowCanvas(w, h int) *GlowCanvas {
	gc := &GlowCanvas{}
	gc.Resize(w, h)
	return gc
}

// Resize reallocates the pixel buffers; accumulated trails are lost.
func (gc *GlowCanvas) Resize(w, h int) {
	gc.width = w
	gc.height = h
	gc.pw = w * 2
	gc.ph = h * 4
	n := gc.pw * gc.ph
	gc.r = make([]float64, n)
	gc.g = make([]float64, n)
	gc.b = make([]float64, n)
	gc.a = make([]float64, n)
}

func (gc *GlowCanvas) PixelWidth() int  { return gc.pw }
func (gc *GlowCanvas) PixelHeight() int { return gc.ph }

// Fade scales everything toward black, leaving the previous frame as a
// decaying trail.
func (gc *GlowCanvas) Fade(decay float64) {
	for i := range gc.a {
		gc.r[i] *= decay
		gc.g[i] *= decay
		gc.b[i] *= decay
		gc.a[i] *= decay
	}
}

// FillCircle composites a filled circle over the buffer with soft edges.
func (gc *GlowCanvas) FillCircle(cx, cy, radius float64, col colorful.Color, alpha float64) {
	if alpha <= 0 || radius <= 0 {
		return
	}
	x0 := int(cx - radius - 1)
	x1 := int(cx + radius + 1)
	y0 := int(cy - radius - 1)
	y1 := int(cy + radius + 1)
	if x1 < 0 || y1 < 0 || x0 >= gc.pw || y0 >= gc.ph {
		return
	}
	x0 = clampInt(x0, 0, gc.pw-1)
	x1 = clampInt(x1, 0, gc.pw-1)
	y0 = clampInt(y0, 0, gc.ph-1)
	y1 = clampInt(y1, 0, gc.ph-1)

	for y := y0; y <= y1; y++ {
		dy := float64(y) + 0.5 - cy
		for x := x0; x <= x1; x++ {
			dx := float64(x) + 0.5 - cx
			dist := dx*dx + dy*dy
			if dist > (radius+0.5)*(radius+0.5) {
				continue
			}
			cover := clamp(radius+0.5-math.Sqrt(dist), 0, 1)
			sa := alpha * cover
			if sa <= 0.003 {
				continue
			}
			i := y*gc.pw + x
			inv := 1 - sa
			gc.r[i] = col.R*sa + gc.r[i]*inv
			gc.g[i] = col.G*sa + gc.g[i]*inv
			gc.b[i] = col.B*sa + gc.b[i]*inv
			gc.a[i] = sa + gc.a[i]*inv
		}
	}
}

// Render rasterizes the pixel buffer into braille cells. A terminal cell
// has a single foreground color, so each cell takes the color of its
// strongest pixel.
func (gc *GlowCanvas) Render(screen tcell.Screen, offsetX, offsetY int) {
	const lit = 0.055
	for cy := 0; cy < gc.height; cy++ {
		for cx := 0; cx < gc.width; cx++ {
			var braille rune = 0x2800
			best := -1.0
			var br, bg, bb float64

			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					py := cy*4 + dy
					px := cx*2 + dx
					i := py*gc.pw + px
					if gc.a[i] < lit {
						continue
					}
					braille |= brailleBit(dx, dy)
					if gc.a[i] > best {
						best = gc.a[i]
						br, bg, bb = gc.r[i], gc.g[i], gc.b[i]
					}
				}
			}

			if braille != 0x2800 {
				color := tcell.NewRGBColor(
					int32(clamp(br, 0, 1)*255),
					int32(clamp(bg, 0, 1)*255),
					int32(clamp(bb, 0, 1)*255),
				)
				st := tcell.StyleDefault.Foreground(color)
				screen.SetContent(offsetX+cx, offsetY+cy, braille, nil, st)
			}
		}
	}
}

func brailleBit(x, y int) rune {
	offsets := [2][4]rune{
		{0x01, 0x02, 0x04, 0x40},
		{0x08, 0x10, 0x20, 0x80},
	}
	return offsets[x][y]
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
