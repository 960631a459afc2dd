package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	marginLeft   = 100.0
	marginRight  = 40.0
	marginTop    = 70.0
	marginBottom = 80.0
)

var palette = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
}

var parseFont = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
})

type Point struct {
	X, Y float64
}

type Series struct {
	Label  string
	Points []Point
}

// LineChart is a titled set of series sharing the same axes.
type LineChart struct {
	Title  string
	XLabel string
	YLabel string
	Series []Series
	Width  int
	Height int
}

// Save renders the chart as a PNG file at path.
func (c *LineChart) Save(path string) error {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write chart %s: %w", path, err)
	}
	return nil
}

// Render draws the chart and encodes it as PNG into w.
func (c *LineChart) Render(w io.Writer) error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("chart %q: invalid size %dx%d", c.Title, c.Width, c.Height)
	}
	f, err := parseFont()
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}

	W, H := float64(c.Width), float64(c.Height)
	dc := gg.NewContext(c.Width, c.Height)
	dc.SetColor(color.White)
	dc.Clear()

	x0, x1, y0, y1 := c.bounds()
	plotW := W - marginLeft - marginRight
	plotH := H - marginTop - marginBottom
	px := func(x float64) float64 { return marginLeft + (x-x0)/(x1-x0)*plotW }
	py := func(y float64) float64 { return marginTop + plotH - (y-y0)/(y1-y0)*plotH }

	small := face(f, 13)
	dc.SetFontFace(small)

	// Grid and ticks.
	dc.SetLineWidth(1)
	for _, t := range ticks(y0, y1, 6) {
		dc.SetColor(color.Gray{Y: 0xe0})
		dc.DrawLine(marginLeft, py(t), marginLeft+plotW, py(t))
		dc.Stroke()
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(formatTick(t), marginLeft-8, py(t), 1, 0.35)
	}
	for _, t := range ticks(x0, x1, 10) {
		dc.SetColor(color.Gray{Y: 0xe0})
		dc.DrawLine(px(t), marginTop, px(t), marginTop+plotH)
		dc.Stroke()
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(formatTick(t), px(t), marginTop+plotH+8, 0.5, 1)
	}

	// Axes.
	dc.SetColor(color.Black)
	dc.SetLineWidth(1.5)
	dc.DrawLine(marginLeft, marginTop+plotH, marginLeft+plotW, marginTop+plotH)
	dc.DrawLine(marginLeft, marginTop, marginLeft, marginTop+plotH)
	dc.Stroke()

	// Series.
	dc.SetLineWidth(2)
	for i, s := range c.Series {
		if len(s.Points) == 0 {
			continue
		}
		dc.SetColor(palette[i%len(palette)])
		dc.MoveTo(px(s.Points[0].X), py(s.Points[0].Y))
		for _, p := range s.Points[1:] {
			dc.LineTo(px(p.X), py(p.Y))
		}
		dc.Stroke()
	}

	// Legend.
	lx, ly := marginLeft+16, marginTop+16
	for i, s := range c.Series {
		dc.SetColor(palette[i%len(palette)])
		dc.DrawRectangle(lx, ly+float64(i)*20-5, 18, 10)
		dc.Fill()
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(s.Label, lx+26, ly+float64(i)*20, 0, 0.35)
	}

	// Labels.
	dc.SetFontFace(face(f, 15))
	dc.DrawStringAnchored(c.XLabel, marginLeft+plotW/2, H-24, 0.5, 0)
	dc.Push()
	dc.RotateAbout(gg.Radians(-90), 24, marginTop+plotH/2)
	dc.DrawStringAnchored(c.YLabel, 24, marginTop+plotH/2, 0.5, 0.5)
	dc.Pop()

	dc.SetFontFace(face(f, 22))
	dc.DrawStringAnchored(c.Title, W/2, marginTop/2, 0.5, 0.5)

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode chart %q: %w", c.Title, err)
	}
	return nil
}

// bounds returns the data ranges; the y axis always starts at zero.
func (c *LineChart) bounds() (x0, x1, y0, y1 float64) {
	x0, x1 = math.Inf(1), math.Inf(-1)
	y1 = math.Inf(-1)
	for _, s := range c.Series {
		for _, p := range s.Points {
			x0 = math.Min(x0, p.X)
			x1 = math.Max(x1, p.X)
			y1 = math.Max(y1, p.Y)
		}
	}
	if math.IsInf(x0, 0) {
		x0, x1 = 0, 1
	}
	if x1 == x0 {
		x1 = x0 + 1
	}
	if math.IsInf(y1, 0) || y1 <= 0 {
		y1 = 1
	}
	return x0, x1, 0, y1 * 1.05
}

func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// ticks returns round values covering [lo, hi] with about n steps.
func ticks(lo, hi float64, n int) []float64 {
	step := niceStep((hi - lo) / float64(n))
	var res []float64
	for t := math.Ceil(lo/step) * step; t <= hi+step*1e-9; t += step {
		res = append(res, t)
	}
	return res
}

func niceStep(raw float64) float64 {
	if raw <= 0 {
		return 1
	}
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch r := raw / mag; {
	case r <= 1:
		return mag
	case r <= 2:
		return 2 * mag
	case r <= 5:
		return 5 * mag
	default:
		return 10 * mag
	}
}

func formatTick(v float64) string {
	if math.Abs(v) < 1e-12 {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}
