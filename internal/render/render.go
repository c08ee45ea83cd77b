// Package render draws the labelled embedding as a PNG scatter plot with a
// legend to the right of the axes.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mesh-intelligence/vbranch/pkg/types"
)

// Alpha values for canonical and unresolved series.
const (
	CanonicalAlpha = 0.85
	OtherAlpha     = 0.6
)

// Options controls the rendered image.
type Options struct {
	Width       int
	Height      int
	PointRadius float64
	Title       string
	XLabel      string
	YLabel      string
}

// DefaultOptions returns the options used for the reference plot.
func DefaultOptions() Options {
	return Options{
		Width:       2100,
		Height:      1800,
		PointRadius: 4,
		Title:       "Human embryo (cESFW) - Manual_Annotations (normalized)",
		XLabel:      "UMAP-1",
		YLabel:      "UMAP-2",
	}
}

// OptionsFrom converts plot configuration into render options.
func OptionsFrom(cfg types.PlotConfig) Options {
	o := DefaultOptions()
	if cfg.Width > 0 {
		o.Width = cfg.Width
	}
	if cfg.Height > 0 {
		o.Height = cfg.Height
	}
	if cfg.PointRadius > 0 {
		o.PointRadius = cfg.PointRadius
	}
	if cfg.Title != "" {
		o.Title = cfg.Title
	}
	return o
}

var (
	white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	ink   = color.NRGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
	face  = basicfont.Face7x13
)

type canvas struct {
	img  *image.RGBA
	w, h int
}

// Plot draws points colored by series and encodes the image as PNG to w.
// labels is parallel to points. Series are drawn in order, so points of later
// series sit on top.
func Plot(w io.Writer, points []types.Point, labels []types.Resolved, series []types.Series, opts Options) error {
	if len(points) != len(labels) {
		return fmt.Errorf("%w: %d points for %d labels", types.ErrCoordinateMismatch, len(points), len(labels))
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", types.ErrPlotSizeInvalid, opts.Width, opts.Height)
	}

	c := &canvas{img: image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height)), w: opts.Width, h: opts.Height}
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)

	lay := layout(opts, series)
	c.frame(lay.plot)
	c.text(opts.Width/2-textWidth(opts.Title)/2, lay.plot.Min.Y-14, opts.Title)
	c.text(lay.plot.Min.X+lay.plot.Dx()/2-textWidth(opts.XLabel)/2, lay.plot.Max.Y+28, opts.XLabel)
	c.text(lay.plot.Min.X-textWidth(opts.YLabel)/2, lay.plot.Min.Y-2, opts.YLabel)

	proj := newProjection(points, lay.plot, opts.PointRadius)
	byLabel := make(map[string][]int)
	for i, r := range labels {
		byLabel[r.Label] = append(byLabel[r.Label], i)
	}
	for _, s := range series {
		col, err := ParseHex(s.Color)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Label, err)
		}
		alpha := OtherAlpha
		if s.Canonical {
			alpha = CanonicalAlpha
		}
		for _, i := range byLabel[s.Label] {
			x, y := proj.at(points[i])
			c.disc(x, y, opts.PointRadius, col, alpha)
		}
	}

	if err := c.legend(lay.legend, series); err != nil {
		return err
	}
	return png.Encode(w, c.img)
}

// Save renders the plot to path, creating parent directories.
func Save(path string, points []types.Point, labels []types.Resolved, series []types.Series, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create plot dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot: %w", err)
	}
	if err := Plot(f, points, labels, series, opts); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

type plotLayout struct {
	plot   image.Rectangle
	legend image.Point
}

// layout reserves a title band, axis label margins, and a legend column sized
// to the longest label.
func layout(opts Options, series []types.Series) plotLayout {
	legendW := 0
	for _, s := range series {
		legendW = max(legendW, textWidth(s.Label))
	}
	legendW += 48

	left, top, bottom := 50, 48, 48
	right := opts.Width - legendW - 16
	if right < left+opts.Width/3 {
		right = left + opts.Width/3
	}
	return plotLayout{
		plot:   image.Rect(left, top, right, max(top+1, opts.Height-bottom)),
		legend: image.Pt(right+24, top+8),
	}
}

type projection struct {
	minX, minY, scaleX, scaleY float64
	rect                       image.Rectangle
}

// newProjection maps data coordinates into rect with a 5% margin, keeping the
// point radius inside the frame.
func newProjection(points []types.Point, rect image.Rectangle, radius float64) projection {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	if len(points) == 0 {
		minX, maxX, minY, maxY = 0, 1, 0, 1
	}
	if maxX == minX {
		minX, maxX = minX-1, maxX+1
	}
	if maxY == minY {
		minY, maxY = minY-1, maxY+1
	}
	padX, padY := (maxX-minX)*0.05, (maxY-minY)*0.05
	minX, maxX = minX-padX, maxX+padX
	minY, maxY = minY-padY, maxY+padY

	inner := rect.Inset(int(math.Ceil(radius)) + 1)
	return projection{
		minX:   minX,
		minY:   minY,
		scaleX: float64(inner.Dx()) / (maxX - minX),
		scaleY: float64(inner.Dy()) / (maxY - minY),
		rect:   inner,
	}
}

// at returns pixel coordinates; y grows upwards in data space.
func (p projection) at(pt types.Point) (float64, float64) {
	x := float64(p.rect.Min.X) + (pt.X-p.minX)*p.scaleX
	y := float64(p.rect.Max.Y) - (pt.Y-p.minY)*p.scaleY
	return x, y
}

// disc fills a circle centred on (cx, cy).
func (c *canvas) disc(cx, cy, r float64, col color.NRGBA, alpha float64) {
	r2 := r * r
	for y := int(math.Floor(cy - r)); y <= int(math.Ceil(cy+r)); y++ {
		for x := int(math.Floor(cx - r)); x <= int(math.Ceil(cx+r)); x++ {
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			if dx*dx+dy*dy <= r2 {
				c.blend(x, y, col, alpha)
			}
		}
	}
}

func (c *canvas) frame(r image.Rectangle) {
	for x := r.Min.X; x <= r.Max.X; x++ {
		c.blend(x, r.Min.Y, ink, 1)
		c.blend(x, r.Max.Y, ink, 1)
	}
	for y := r.Min.Y; y <= r.Max.Y; y++ {
		c.blend(r.Min.X, y, ink, 1)
		c.blend(r.Max.X, y, ink, 1)
	}
}

func (c *canvas) text(x, y int, s string) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(ink),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func textWidth(s string) int {
	return font.MeasureString(face, s).Ceil()
}

// legend draws one swatch and label per series, one row each.
func (c *canvas) legend(at image.Point, series []types.Series) error {
	const row = 18
	for i, s := range series {
		col, err := ParseHex(s.Color)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Label, err)
		}
		alpha := OtherAlpha
		if s.Canonical {
			alpha = CanonicalAlpha
		}
		y := at.Y + i*row
		c.disc(float64(at.X+6), float64(y+6), 5, col, alpha)
		c.text(at.X+18, y+11, s.Label)
	}
	return nil
}
