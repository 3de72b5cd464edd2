package raster

import (
	"testing"

	"github.com/iafilius/plotcore/internal/scheme"
)

// New's clip rect matches the full 100x100 surface, so normalized
// viewport-space (0,0)..(1,1) maps to pixel (0,100)..(100,0) (Y
// flipped).
func newFullCanvas(t *testing.T) *Canvas {
	t.Helper()
	c, err := New(100, 100, 0, 100, 0, 100, 5, scheme.Dark())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestTrialLineClipsOutsideMargin(t *testing.T) {
	c := newFullCanvas(t)

	if !c.TrialLine(0.1, 0.1, 0.9, 0.9) {
		t.Fatal("segment inside the canvas should be visible")
	}
	if c.TrialLine(2, 2, 3, 3) {
		t.Fatal("segment entirely beyond the margin should be clipped")
	}
	// A segment whose far endpoint maps just inside the margined clip
	// rect should still count as visible even though its near endpoint
	// maps outside the raw clip rect.
	if !c.TrialLine(-0.1, -0.1, 0.03, 0.03) {
		t.Fatal("segment crossing into the margined clip rect should be visible")
	}
}

func TestTrialDotClipsOutsideMargin(t *testing.T) {
	c := newFullCanvas(t)

	if !c.TrialDot(0.5, 0.5) {
		t.Fatal("dot inside the canvas should be visible")
	}
	if c.TrialDot(-0.2, -0.2) {
		t.Fatal("dot beyond the margin should be clipped")
	}
	if !c.TrialDot(-0.03, -0.03) {
		t.Fatal("dot within the margin should be visible")
	}
}

func TestToPixelFlipsY(t *testing.T) {
	c := newFullCanvas(t)

	px, py := c.toPixel(0, 0)
	if px != 0 || py != 100 {
		t.Fatalf("toPixel(0,0) = (%v,%v), want (0,100) — viewport-space origin is the pixel bottom-left", px, py)
	}
	px, py = c.toPixel(1, 1)
	if px != 100 || py != 0 {
		t.Fatalf("toPixel(1,1) = (%v,%v), want (100,0) — viewport-space top-right is the pixel top-right", px, py)
	}
}

func TestCanvasCallsDoNotPanic(t *testing.T) {
	c, err := New(50, 50, 0, 50, 0, 50, 5, scheme.Dark())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.CanvasLine(0, 0, 1, 1, 1, scheme.Figure1)
	c.CanvasDash(0, 1, 1, 0, 1, scheme.Figure2)
	c.CanvasDot(0.5, 0.5, scheme.Hidden)

	if _, err := c.Image(); err != nil {
		t.Fatalf("Image: %v", err)
	}
}
