package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"

	"github.com/fogleman/gg"

	"stockboard/internal/dashboard"
)

// ImageOptions controls RenderPNG. A blank FontPath keeps gg's built-in
// bitmap face.
type ImageOptions struct {
	Width    int
	Height   int
	FontPath string
	FontSize float64
}

func (o ImageOptions) withDefaults() ImageOptions {
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 640
	}
	if o.FontSize <= 0 {
		o.FontSize = 18
	}
	return o
}

// RenderPNG draws the close-price line of points with an average-close
// reference line and a stats footer, and returns the encoded PNG.
func RenderPNG(symbol string, rng dashboard.Range, points []dashboard.Point, opts ImageOptions) ([]byte, error) {
	opts = opts.withDefaults()
	const padding = 48.0

	w, h := float64(opts.Width), float64(opts.Height)
	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetColor(color.White)
	dc.Clear()

	if opts.FontPath != "" {
		if err := dc.LoadFontFace(opts.FontPath, opts.FontSize); err != nil {
			return nil, fmt.Errorf("loading font %s: %w", opts.FontPath, err)
		}
	}

	stats := dashboard.Summarize(points)
	dc.SetColor(color.Black)
	title := fmt.Sprintf("%s  %s", symbol, rng)
	dc.DrawStringAnchored(title, padding, padding/2, 0, 0.5)

	plotL, plotR := padding+60, w-padding
	plotT, plotB := padding, h-padding*1.5

	dc.SetColor(color.RGBA{R: 220, G: 220, B: 220, A: 255})
	dc.SetLineWidth(1)
	dc.DrawRectangle(plotL, plotT, plotR-plotL, plotB-plotT)
	dc.Stroke()

	if len(points) == 0 {
		dc.SetColor(color.RGBA{R: 120, G: 120, B: 120, A: 255})
		dc.DrawStringAnchored("No data", (plotL+plotR)/2, (plotT+plotB)/2, 0.5, 0.5)
		return encode(dc)
	}

	lo, hi := stats.Low.InexactFloat64(), stats.High.InexactFloat64()
	vals := closes(points, len(points))
	clo, chi := bounds(vals)
	lo, hi = min(lo, clo), max(hi, chi)
	if hi == lo {
		lo, hi = lo-1, hi+1
	}
	yOf := func(v float64) float64 {
		return plotB - (v-lo)/(hi-lo)*(plotB-plotT)
	}
	xOf := func(i int) float64 {
		if len(vals) == 1 {
			return (plotL + plotR) / 2
		}
		return plotL + float64(i)/float64(len(vals)-1)*(plotR-plotL)
	}

	dc.SetColor(color.RGBA{R: 100, G: 100, B: 100, A: 255})
	dc.DrawStringAnchored(fmt.Sprintf("%.2f", hi), plotL-8, plotT, 1, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.2f", lo), plotL-8, plotB, 1, 0.5)
	dc.DrawStringAnchored(points[0].Date, plotL, plotB+16, 0, 0.5)
	dc.DrawStringAnchored(points[len(points)-1].Date, plotR, plotB+16, 1, 0.5)

	avg := yOf(stats.AvgClose.InexactFloat64())
	dc.SetColor(color.RGBA{R: 160, G: 160, B: 160, A: 255})
	dc.SetDash(6, 4)
	dc.DrawLine(plotL, avg, plotR, avg)
	dc.Stroke()
	dc.SetDash()

	dc.SetColor(trendColor(stats.Change.Sign()))
	dc.SetLineWidth(2)
	for i, v := range vals {
		if i == 0 {
			dc.MoveTo(xOf(i), yOf(v))
			continue
		}
		dc.LineTo(xOf(i), yOf(v))
	}
	if len(vals) == 1 {
		dc.DrawCircle(xOf(0), yOf(vals[0]), 3)
		dc.Fill()
	} else {
		dc.Stroke()
	}

	footer := fmt.Sprintf("Close %s  Change %s  High %s  Low %s  Avg %s  Volume %s",
		dashboard.FormatPrice(stats.LastClose),
		dashboard.FormatChange(stats.ChangePct),
		dashboard.FormatPrice(stats.High),
		dashboard.FormatPrice(stats.Low),
		dashboard.FormatPrice(stats.AvgClose),
		dashboard.FormatVolume(stats.TotalVolume))
	dc.SetColor(color.RGBA{R: 90, G: 90, B: 90, A: 255})
	dc.DrawStringAnchored(footer, padding, h-padding/2, 0, 0.5)

	return encode(dc)
}

func encode(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func trendColor(sign int) color.Color {
	switch {
	case sign > 0:
		return color.RGBA{R: 28, G: 160, B: 92, A: 255}
	case sign < 0:
		return color.RGBA{R: 220, G: 68, B: 68, A: 255}
	}
	return color.RGBA{R: 120, G: 120, B: 120, A: 255}
}
