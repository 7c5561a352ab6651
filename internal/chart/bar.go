// Package chart renders small raster charts for the web UI.
package chart

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Bar is one labelled value.
type Bar struct {
	Label string
	Value float64
}

// Options controls the canvas. Zero fields fall back to defaults.
type Options struct {
	Width  int
	Height int
	Title  string
}

const (
	defaultWidth  = 800
	defaultHeight = 480
	marginTop     = 40
	marginBottom  = 40
	marginSide    = 30
	barGap        = 8
	glyphWidth    = 7
)

var (
	background = color.RGBA{0xff, 0xff, 0xff, 0xff}
	axisColor  = color.RGBA{0x33, 0x33, 0x33, 0xff}
	barColor   = color.RGBA{0x3b, 0x82, 0xf6, 0xff}
	textColor  = color.RGBA{0x11, 0x11, 0x11, 0xff}
)

// ErrCanvasTooSmall is returned when the requested canvas cannot hold the plot area.
var ErrCanvasTooSmall = errors.New("chart canvas too small")

// RenderPNG draws a vertical bar chart and encodes it as PNG into w.
// Negative values are drawn as zero-height bars.
func RenderPNG(w io.Writer, bars []Bar, opts Options) error {
	img, err := Render(bars, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// Render draws a vertical bar chart into a new image.
func Render(bars []Bar, opts Options) (*image.RGBA, error) {
	width, height := opts.Width, opts.Height
	if width == 0 {
		width = defaultWidth
	}
	if height == 0 {
		height = defaultHeight
	}
	plotW := width - 2*marginSide
	plotH := height - marginTop - marginBottom
	if plotW <= 0 || plotH <= 0 {
		return nil, ErrCanvasTooSmall
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	if opts.Title != "" {
		drawText(img, opts.Title, (width-len(opts.Title)*glyphWidth)/2, marginTop/2+4)
	}

	baseY := marginTop + plotH
	fillRect(img, image.Rect(marginSide, baseY, marginSide+plotW, baseY+1), axisColor)
	fillRect(img, image.Rect(marginSide, marginTop, marginSide+1, baseY), axisColor)

	if len(bars) == 0 {
		msg := "no data"
		drawText(img, msg, (width-len(msg)*glyphWidth)/2, marginTop+plotH/2)
		return img, nil
	}

	maxVal := 0.0
	for _, b := range bars {
		if b.Value > maxVal {
			maxVal = b.Value
		}
	}

	slot := plotW / len(bars)
	barW := slot - barGap
	if barW < 1 {
		barW = 1
	}
	for i, b := range bars {
		x0 := marginSide + i*slot + barGap/2
		h := 0
		if maxVal > 0 && b.Value > 0 {
			// leave room above the tallest bar for its value label
			h = int(b.Value / maxVal * float64(plotH-16))
		}
		fillRect(img, image.Rect(x0, baseY-h, x0+barW, baseY), barColor)

		value := fmt.Sprintf("%.0f", b.Value)
		drawText(img, fit(value, barW), x0, baseY-h-4)
		drawText(img, fit(b.Label, barW), x0, baseY+16)
	}
	return img, nil
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func drawText(img *image.RGBA, s string, x, y int) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// fit truncates s so it renders within width pixels.
func fit(s string, width int) string {
	n := width / glyphWidth
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return string(r[:1])
	}
	return string(r[:n-1]) + "…"
}
