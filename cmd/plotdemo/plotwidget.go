package main

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// plotView is a fyne widget wrapping one rendered plot frame, forwarding
// mouse movement to the owning demoState for data-box slicing —
// grounded on cmd/iqmviewer/main.go's crosshairOverlay, generalized
// from an overlay-on-top-of-a-separate-chart-image into the single
// widget that both renders and hosts the hover, since this demo has no
// go-chart series of its own to overlay onto.
type plotView struct {
	widget.BaseWidget
	state    *demoState
	img      *canvas.Image
	hovering bool
}

func newPlotView(state *demoState) *plotView {
	v := &plotView{state: state, img: canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))}
	v.img.FillMode = canvas.ImageFillStretch
	v.ExtendBaseWidget(v)
	return v
}

func (v *plotView) CreateRenderer() fyne.WidgetRenderer {
	return &plotViewRenderer{v: v, objs: []fyne.CanvasObject{v.img}}
}

// plotViewRenderer is a minimal single-object renderer, matching the
// shape of cmd/iqmviewer/main.go's crosshairRenderer (Layout/MinSize/
// Refresh/Objects/Destroy) but for the one image object this widget
// owns instead of a crosshair's several overlay primitives.
type plotViewRenderer struct {
	v    *plotView
	objs []fyne.CanvasObject
}

func (r *plotViewRenderer) Destroy() {}
func (r *plotViewRenderer) Layout(size fyne.Size) {
	r.v.img.Resize(size)
}
func (r *plotViewRenderer) MinSize() fyne.Size           { return fyne.NewSize(100, 80) }
func (r *plotViewRenderer) Objects() []fyne.CanvasObject { return r.objs }
func (r *plotViewRenderer) Refresh()                     { r.v.img.Refresh() }

// setImage swaps the displayed frame and refreshes the widget.
func (v *plotView) setImage(img image.Image) {
	v.img.Image = img
	v.img.Refresh()
}

// MouseMoved implements desktop.Hoverable, driving the data box's
// slice-mode lookup at the hovered pixel — matching crosshairOverlay's
// own MouseMoved wiring, but feeding internal/layout's hit tests
// instead of a bespoke pixel-to-index table.
func (v *plotView) MouseMoved(ev *desktop.MouseEvent) {
	v.hovering = true
	v.state.onHover(float64(ev.Position.X), float64(ev.Position.Y))
}

func (v *plotView) MouseIn(ev *desktop.MouseEvent) { v.hovering = true }

func (v *plotView) MouseOut() {
	v.hovering = false
	v.state.onHoverEnd()
}

var _ desktop.Hoverable = (*plotView)(nil)
