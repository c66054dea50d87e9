// Package chart draws close-price charts for the terminal and as PNG images.
package chart

import (
	"fmt"
	"strings"

	"stockboard/internal/dashboard"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// closes samples the close prices of points down to at most width values,
// keeping the last close of each bucket.
func closes(points []dashboard.Point, width int) []float64 {
	if len(points) == 0 || width <= 0 {
		return nil
	}
	if len(points) <= width {
		out := make([]float64, len(points))
		for i, p := range points {
			out[i] = p.Close.InexactFloat64()
		}
		return out
	}
	out := make([]float64, width)
	for i := range out {
		idx := (i+1)*len(points)/width - 1
		out[i] = points[idx].Close.InexactFloat64()
	}
	return out
}

func bounds(vals []float64) (lo, hi float64) {
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Sparkline renders closes as a single line of block characters.
func Sparkline(points []dashboard.Point, width int) string {
	vals := closes(points, width)
	if len(vals) == 0 {
		return ""
	}
	lo, hi := bounds(vals)
	top := len(sparkBlocks) - 1

	var b strings.Builder
	for _, v := range vals {
		level := top / 2
		if hi > lo {
			level = int((v - lo) * float64(top) / (hi - lo))
		}
		b.WriteRune(sparkBlocks[level])
	}
	return b.String()
}

// RenderText draws an area chart of closes, height rows tall, with the high
// and low marked on a left axis. It returns "No data" for an empty view.
func RenderText(points []dashboard.Point, width, height int) string {
	if height < 2 {
		height = 2
	}
	const axisWidth = 11
	vals := closes(points, width-axisWidth)
	if len(vals) == 0 {
		return "No data"
	}
	lo, hi := bounds(vals)

	// Filled rows per column, 1..height.
	levels := make([]int, len(vals))
	for i, v := range vals {
		levels[i] = height / 2
		if hi > lo {
			levels[i] = 1 + int((v-lo)/(hi-lo)*float64(height-1)+0.5)
		}
	}

	var b strings.Builder
	for row := height; row >= 1; row-- {
		switch row {
		case height:
			fmt.Fprintf(&b, "%9.2f │", hi)
		case 1:
			fmt.Fprintf(&b, "%9.2f │", lo)
		default:
			b.WriteString(strings.Repeat(" ", 9) + " │")
		}
		for _, lvl := range levels {
			switch {
			case lvl == row:
				b.WriteRune('▄')
			case lvl > row:
				b.WriteRune('█')
			default:
				b.WriteRune(' ')
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString(strings.Repeat(" ", 10) + "└" + strings.Repeat("─", len(vals)) + "\n")

	first, last := points[0].Date, points[len(points)-1].Date
	gap := len(vals) + 1 - len(first) - len(last)
	if gap < 1 {
		gap = 1
	}
	b.WriteString(strings.Repeat(" ", 10) + first + strings.Repeat(" ", gap) + last)
	return b.String()
}
