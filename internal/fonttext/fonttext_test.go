package fonttext

import (
	"image"
	"image/color"
	"testing"
)

func TestSizeUTF8Grows(t *testing.T) {
	r, err := Open("", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	w1, h1 := r.SizeUTF8("x")
	w2, h2 := r.SizeUTF8("xxxxx")
	if h1 != h2 {
		t.Fatalf("height should not depend on string length: %d vs %d", h1, h2)
	}
	if w2 <= w1 {
		t.Fatalf("longer string should measure wider: %d vs %d", w1, w2)
	}
	if h1 != r.FontHeight() {
		t.Fatalf("SizeUTF8 height %d should match FontHeight %d", h1, r.FontHeight())
	}
}

func TestSizeUTF8Empty(t *testing.T) {
	r, err := Open("", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	w, h := r.SizeUTF8("")
	if w != 0 {
		t.Fatalf("empty string should measure zero width, got %d", w)
	}
	if h != r.FontHeight() {
		t.Fatalf("empty string should still report the face's line height, got %d", h)
	}
}

func TestDrawTextDoesNotPanic(t *testing.T) {
	r, err := Open("", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	dst := image.NewRGBA(image.Rect(0, 0, 64, 32))
	r.DrawText(dst, 2, 20, "hi", color.Black)

	nonBlank := false
	for _, p := range dst.Pix {
		if p != 0 {
			nonBlank = true
			break
		}
	}
	if !nonBlank {
		t.Fatal("DrawText left the destination image entirely blank")
	}
}

func TestDrawTextShadowedDoesNotPanic(t *testing.T) {
	r, err := Open("", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	dst := image.NewRGBA(image.Rect(0, 0, 64, 32))
	r.DrawTextShadowed(dst, 2, 20, "hi", color.White, color.Black)
}

func TestCloseDoesNotPanic(t *testing.T) {
	r, err := Open("", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	r.Close()
}
