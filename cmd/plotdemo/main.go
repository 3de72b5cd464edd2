// Command plotdemo is a small fyne window exercising the full plotting
// stack — a streaming dataset, the axis/figure model, the progressive
// draw engine, the go-chart rasterizer, and the layout/legend/data-box
// overlay — against synthetic data, grounded on cmd/iqmviewer/main.go's
// app/window/redraw-loop wiring.
package main

import (
	"flag"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/iafilius/plotcore/internal/axis"
	"github.com/iafilius/plotcore/internal/config"
	drawengine "github.com/iafilius/plotcore/internal/draw"
	"github.com/iafilius/plotcore/internal/fonttext"
	"github.com/iafilius/plotcore/internal/layout"
	"github.com/iafilius/plotcore/internal/plog"
	"github.com/iafilius/plotcore/internal/rangecache"
	"github.com/iafilius/plotcore/internal/scheme"
	"github.com/iafilius/plotcore/internal/store"
)

// demoState holds every collaborator wired together for one window,
// matching cmd/iqmviewer/main.go's uiState but scoped to a single
// synthetic dataset instead of a loaded results file.
type demoState struct {
	app    fyne.App
	window fyne.Window

	opts config.Options

	rc      *rangecache.Cache
	dataset *store.Dataset
	axes    *axis.Manager
	engine  *drawengine.Engine
	scheme  *scheme.Scheme
	fonts   *fonttext.Renderer

	layoutMgr *layout.Manager

	axisX, axisY1, axisY2 int
	figSine, figCosine    int

	sim  *simulator
	view *plotView
}

func newDemoState(a fyne.App, w fyne.Window) *demoState {
	s := &demoState{app: a, window: w, opts: config.NewOptions()}

	s.rc = rangecache.New()
	s.dataset = store.New(0, 3, 4096, s.opts.Compress.Enabled, s.rc)
	resolve := func(id int) *store.Dataset {
		if id == 0 {
			return s.dataset
		}
		return nil
	}
	s.axes = axis.New(resolve, s.rc)
	s.axes.Viewport = axis.Viewport{MinX: 0, MaxX: 1, MinY: 0, MaxY: 1}

	var err error
	s.axisX, err = s.axes.AddAxis(axis.OrientationX, "elapsed (s)")
	if err != nil {
		plog.Errorf("plotdemo: add X axis: %v", err)
	}
	s.axisY1, err = s.axes.AddAxis(axis.OrientationY, "sine")
	if err != nil {
		plog.Errorf("plotdemo: add sine Y axis: %v", err)
	}
	s.axisY2, err = s.axes.AddAxis(axis.OrientationY, "cosine")
	if err != nil {
		plog.Errorf("plotdemo: add cosine Y axis: %v", err)
	}

	s.figSine, err = s.axes.FigureAdd(0, 0, 1, s.axisX, s.axisY1, "sine + jitter")
	if err != nil {
		plog.Errorf("plotdemo: add sine figure: %v", err)
	}
	s.figCosine, err = s.axes.FigureAdd(0, 0, 2, s.axisX, s.axisY2, "cosine")
	if err != nil {
		plog.Errorf("plotdemo: add cosine figure: %v", err)
	}
	s.axes.Figures[s.figCosine].Drawing = axis.DrawingDash

	// Fallback ranges before any data has streamed in; autoScale
	// (called every redraw) overwrites these once rows exist.
	if err := s.axes.ScaleManual(s.axisX, 0, 60); err != nil {
		plog.Errorf("plotdemo: scale X axis: %v", err)
	}
	if err := s.axes.ScaleManual(s.axisY1, -1.5, 1.5); err != nil {
		plog.Errorf("plotdemo: scale sine Y axis: %v", err)
	}
	if err := s.axes.ScaleManual(s.axisY2, 0, 2); err != nil {
		plog.Errorf("plotdemo: scale cosine Y axis: %v", err)
	}

	s.scheme = scheme.Dark()
	fonts, err := fonttext.Open("", 13)
	if err != nil {
		plog.Errorf("plotdemo: open font: %v", err)
	}
	s.fonts = fonts
	s.layoutMgr = layout.New(s.axes, s.fonts, s.opts.Layout)
	s.layoutMgr.Precision = int(s.opts.FPrecision)
	s.layoutMgr.DataBoxMode = layout.DataBoxSlice
	s.layoutMgr.MarkOn = true

	s.engine = drawengine.New(s.axes, s.rc, nil) // Rasterizer is created fresh per frame in render, since its pixel rect depends on the current window size
	s.sim = newSimulator(s.dataset)

	return s
}

// onHover updates the data box to the row nearest the hovered pixel's
// X position, converting screen pixels back to data space through the
// X axis's own (scale, offset) — matching plotDataBoxSlice's own
// pixel-to-data lookup ahead of a plotDataSliceGet call.
func (s *demoState) onHover(px, py float64) {
	s.layoutMgr.LegendFigureAt(px, py)

	vp := s.layoutMgr.Viewport
	span := vp.MaxX - vp.MinX
	if span <= 0 {
		return
	}
	normX := (px - vp.MinX) / span
	dataX := s.axes.AxisConvInv(s.axisX, normX)
	s.layoutMgr.UpdateDataBoxSlice(s.rc, dataX, 0, false)
	s.redraw()
}

func (s *demoState) onHoverEnd() {
	s.layoutMgr.LegendFigureAt(-1, -1)
	s.redraw()
}

// autoScale refits every axis to the dataset's current row range, so
// the plot keeps scrolling to show newly streamed-in rows instead of
// the fixed fallback range newDemoState seeded before any data
// existed, matching plotAxisScaleAutoAll's per-frame re-fit.
func (s *demoState) autoScale() {
	for _, aN := range []int{s.axisX, s.axisY1, s.axisY2} {
		if err := s.axes.ScaleAuto(aN); err != nil {
			plog.Errorf("plotdemo: auto-scale axis %d: %v", aN, err)
		}
	}
}

// redraw renders one frame and pushes it to the view; called from the
// resize-poll goroutine and from onHover, matching cmd/iqmviewer's own
// redrawCharts entry point.
func (s *demoState) redraw() {
	s.autoScale()
	sz := s.window.Canvas().Size()
	img, err := s.render(int(sz.Width), int(sz.Height))
	if err != nil {
		plog.Errorf("plotdemo: render: %v", err)
		return
	}
	s.view.setImage(img)
}

func main() {
	flag.Parse()

	a := app.NewWithID("dev.plotcore.plotdemo")
	w := a.NewWindow("plotcore demo")
	w.Resize(fyne.NewSize(900, 600))

	state := newDemoState(a, w)
	state.view = newPlotView(state)

	hint := widget.NewLabel("hover the plot for a data-box readout")
	content := container.NewBorder(nil, hint, nil, nil, state.view)
	w.SetContent(content)

	go state.sim.run(200 * time.Millisecond)

	done := make(chan struct{})
	w.SetOnClosed(func() {
		state.sim.stop()
		close(done)
	})

	go func() {
		t := time.NewTicker(150 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				fyne.Do(state.redraw)
			}
		}
	}()

	w.ShowAndRun()
}
