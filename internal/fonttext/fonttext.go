// Package fonttext implements the concrete text-measurement/rendering
// collaborator (§6) that the layout component (H) uses to size axis
// labels, legend rows, and the data-box overlay before drawing them,
// grounded on cmd/iqmviewer/main.go's drawHint's golang.org/x/image
// usage (font.Drawer over basicfont.Face7x13 with fixed.Point26_6
// placement).
package fonttext

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Renderer measures and draws text against a single fixed bitmap face,
// matching the source's own fixed-font choice (basicfont.Face7x13) —
// there's no font file to load, so Open/Close are no-ops kept
// only so callers can treat this the same as a loadable-font
// collaborator per §6's interface shape.
type Renderer struct {
	face font.Face
}

// Open returns a Renderer bound to the built-in 7x13 bitmap face. name
// is accepted (per §6's OpenFont signature) but ignored: swapping in a
// real scalable font later only needs a different font.Face behind
// this same struct.
func Open(name string, size float64) (*Renderer, error) {
	return &Renderer{face: basicfont.Face7x13}, nil
}

// Close releases the face. basicfont.Face7x13 owns no resources, so
// this is a no-op kept for the collaborator's symmetry.
func (r *Renderer) Close() {}

// SizeUTF8 returns the pixel width and height text would occupy.
func (r *Renderer) SizeUTF8(text string) (width, height int) {
	d := font.Drawer{Face: r.face}
	w := d.MeasureString(text).Ceil()
	m := r.face.Metrics()
	return w, m.Ascent.Ceil() + m.Descent.Ceil()
}

// FontHeight returns the face's ascent+descent, for line-height layout
// math independent of any particular string's width.
func (r *Renderer) FontHeight() int {
	m := r.face.Metrics()
	return m.Ascent.Ceil() + m.Descent.Ceil()
}

// DrawText draws text onto dst with its baseline at (x, y), in col,
// matching drawHint's font.Drawer usage (Dot placed via
// fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}).
func (r *Renderer) DrawText(dst draw.Image, x, y int, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: r.face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// DrawTextShadowed draws text twice, once offset by one pixel in
// shadowCol then on top in col, matching drawHint's shadow-then-text
// idiom for readability over a varying background.
func (r *Renderer) DrawTextShadowed(dst draw.Image, x, y int, text string, col, shadowCol color.Color) {
	r.DrawText(dst, x+1, y+1, text, shadowCol)
	r.DrawText(dst, x, y, text, col)
}
