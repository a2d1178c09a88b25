// Package raster draws a composed day or week layout into an RGBA image.
// Output carries blocks and grid lines only; text is left to the HTML view.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"schedcal/internal/calendar"
)

// Options controls the frame around the grid.
type Options struct {
	// HeaderHeight is the band above the grid holding the day markers.
	HeaderHeight int
	// Gutter is the strip left of the grid holding the hour ticks.
	Gutter int
	// Offset translates one card, e.g. while it is being dragged.
	OffsetID string
	Offset   calendar.Point
}

const (
	DefaultHeaderHeight = 24
	DefaultGutter       = 40
)

var (
	background = color.NRGBA{0xff, 0xff, 0xff, 0xff}
	lineColor  = color.NRGBA{0xde, 0xe2, 0xe6, 0xff}
	tickColor  = color.NRGBA{0x86, 0x8e, 0x96, 0xff}
	todayColor = color.NRGBA{0x0d, 0x6e, 0xfd, 0xff}
)

// ErrUnmeasured is returned for layouts composed before a width was known.
var ErrUnmeasured = errors.New("raster: layout has no measured width")

// Render draws l. Cards are filled with their resolved color and a 1px
// darker border.
func Render(l *calendar.TimeLayout, opts Options) (*image.NRGBA, error) {
	if l == nil {
		return nil, errors.New("raster: layout is nil")
	}
	if !l.Measured {
		return nil, ErrUnmeasured
	}
	if opts.HeaderHeight <= 0 {
		opts.HeaderHeight = DefaultHeaderHeight
	}
	if opts.Gutter <= 0 {
		opts.Gutter = DefaultGutter
	}

	ox, oy := opts.Gutter, opts.HeaderHeight
	w := ox + int(math.Ceil(l.Width)) + 1
	h := oy + int(math.Ceil(l.Height)) + 1
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)

	for _, ln := range l.HLines {
		y := oy + int(ln.Y1)
		hline(img, ox, ox+int(ln.X2), y, lineColor)
		hline(img, ox-6, ox, y, tickColor)
	}
	vline(img, ox, oy, h, lineColor)
	for _, ln := range l.VLines {
		vline(img, ox+int(ln.X1), oy, oy+int(ln.Y2), lineColor)
	}

	cw := l.Grid.ColumnWidth()
	for i, d := range l.Days {
		if !d.Today {
			continue
		}
		x0 := ox + int(cw*float64(i))
		fill(img, image.Rect(x0, oy-4, x0+int(cw), oy), todayColor)
	}

	for _, c := range l.Cards {
		r := c.Rect
		dx, dy := 0.0, 0.0
		if opts.OffsetID != "" && c.Event.ID == opts.OffsetID {
			dx, dy = opts.Offset.X, opts.Offset.Y
		}
		x0 := ox + int(math.Round(r.Left+dx))
		y0 := oy + int(math.Round(r.Top+dy))
		rect := image.Rect(x0, y0, x0+int(math.Round(r.Width)), y0+int(math.Max(1, math.Round(r.Height))))
		fg, border := cardColors(c.Color)
		fill(img, rect, fg)
		outline(img, rect, border)
	}
	return img, nil
}

// cardColors converts a CSS hex color to the fill and a darker border.
func cardColors(hex string) (color.NRGBA, color.NRGBA) {
	c, ok := calendar.ParseColor(hex)
	if !ok {
		c, _ = calendar.ParseColor(calendar.DefaultCardColor)
	}
	l, a, b := c.Lab()
	dark := colorful.Lab(l*0.75, a, b).Clamped()
	return toNRGBA(c), toNRGBA(dark)
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.RGB255()
	return color.NRGBA{r, g, b, 0xff}
}

func fill(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	draw.Draw(img, r.Intersect(img.Bounds()), &image.Uniform{c}, image.Point{}, draw.Src)
}

func outline(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	if r.Empty() {
		return
	}
	hline(img, r.Min.X, r.Max.X, r.Min.Y, c)
	hline(img, r.Min.X, r.Max.X, r.Max.Y-1, c)
	vline(img, r.Min.X, r.Min.Y, r.Max.Y, c)
	vline(img, r.Max.X-1, r.Min.Y, r.Max.Y, c)
}

func hline(img *image.NRGBA, x0, x1, y int, c color.NRGBA) {
	fill(img, image.Rect(x0, y, x1, y+1), c)
}

func vline(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	fill(img, image.Rect(x, y0, x+1, y1), c)
}

// EncodePNG renders l and writes it as PNG.
func EncodePNG(w io.Writer, l *calendar.TimeLayout, opts Options) error {
	img, err := Render(l, opts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("raster: encode png: %w", err)
	}
	return nil
}
