// Package preview shows a live rectified-board view with a physical grid
// and the configured slot outlines, for aiming cameras and drawing slot
// polygons.
package preview

import (
	"image"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"shadowboard/pkg/geometry"
)

// Slot is one outlined region in rectified-frame pixels.
type Slot struct {
	Name    string
	Polygon []geometry.Point2D
}

// Options configure the viewer window.
type Options struct {
	Title         string
	BoardWidthCm  float64
	BoardHeightCm float64
	// GridSpacingCm draws grid lines every N centimeters; zero disables
	// the grid.
	GridSpacingCm float64
	Slots         []Slot
	// OnRefresh, when set, adds a Refresh button that triggers a new
	// capture. The callback runs on the UI goroutine; keep it short or
	// hand off.
	OnRefresh func()
}

var (
	gridColor = color.RGBA{R: 0, G: 180, B: 0, A: 255}
	slotColor = color.RGBA{R: 255, G: 220, B: 0, A: 255}
)

// Viewer is a window displaying rectified frames as they arrive.
type Viewer struct {
	app    fyne.App
	win    fyne.Window
	raster *fynecanvas.Raster
	opts   Options

	mu    sync.Mutex
	frame image.Image
}

// NewViewer builds the window. ShowAndRun must be called from the main
// goroutine; SetFrame may be called from any.
func NewViewer(opts Options) *Viewer {
	if opts.Title == "" {
		opts.Title = "shadowboard preview"
	}
	v := &Viewer{opts: opts}
	v.app = app.New()
	v.win = v.app.NewWindow(opts.Title)
	v.raster = fynecanvas.NewRaster(v.render)
	v.raster.ScaleMode = fynecanvas.ImageScalePixels

	if opts.OnRefresh != nil {
		refresh := widget.NewButton("Refresh", opts.OnRefresh)
		v.win.SetContent(container.NewBorder(refresh, nil, nil, nil, v.raster))
	} else {
		v.win.SetContent(v.raster)
	}
	v.win.Resize(fyne.NewSize(900, 640))
	return v
}

// SetFrame replaces the displayed frame and repaints.
func (v *Viewer) SetFrame(img image.Image) {
	v.mu.Lock()
	v.frame = img
	v.mu.Unlock()
	v.raster.Refresh()
}

// ShowAndRun blocks until the window is closed.
func (v *Viewer) ShowAndRun() {
	v.win.ShowAndRun()
}

// render paints the current frame scaled to fit, then the grid and slot
// outlines on top in frame coordinates.
func (v *Viewer) render(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255
	}

	v.mu.Lock()
	frame := v.frame
	v.mu.Unlock()
	if frame == nil || w == 0 || h == 0 {
		return out
	}

	fb := frame.Bounds()
	fw, fh := fb.Dx(), fb.Dy()
	if fw == 0 || fh == 0 {
		return out
	}

	scale := float64(w) / float64(fw)
	if s := float64(h) / float64(fh); s < scale {
		scale = s
	}

	// Nearest-neighbor blit; preview favors responsiveness over quality.
	dw, dh := int(float64(fw)*scale), int(float64(fh)*scale)
	for y := 0; y < dh; y++ {
		sy := fb.Min.Y + int(float64(y)/scale)
		for x := 0; x < dw; x++ {
			sx := fb.Min.X + int(float64(x)/scale)
			out.Set(x, y, frame.At(sx, sy))
		}
	}

	if v.opts.GridSpacingCm > 0 && v.opts.BoardWidthCm > 0 && v.opts.BoardHeightCm > 0 {
		pxPerCmX := float64(fw) / v.opts.BoardWidthCm * scale
		pxPerCmY := float64(fh) / v.opts.BoardHeightCm * scale
		for cm := v.opts.GridSpacingCm; cm < v.opts.BoardWidthCm; cm += v.opts.GridSpacingCm {
			drawLine(out, int(cm*pxPerCmX), 0, int(cm*pxPerCmX), dh-1, gridColor)
		}
		for cm := v.opts.GridSpacingCm; cm < v.opts.BoardHeightCm; cm += v.opts.GridSpacingCm {
			drawLine(out, 0, int(cm*pxPerCmY), dw-1, int(cm*pxPerCmY), gridColor)
		}
	}

	for _, slot := range v.opts.Slots {
		drawPolygon(out, slot.Polygon, scale, slotColor)
	}

	return out
}

func drawPolygon(out *image.RGBA, pts []geometry.Point2D, scale float64, c color.RGBA) {
	if len(pts) < 2 {
		return
	}
	for i := range pts {
		a := pts[i].Scale(scale)
		b := pts[(i+1)%len(pts)].Scale(scale)
		drawLine(out, int(a.X), int(a.Y), int(b.X), int(b.Y), c)
	}
}

// drawLine rasterizes a segment with the integer midpoint algorithm.
func drawLine(out *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		out.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
