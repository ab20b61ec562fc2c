package ca

import "strings"

// Render returns an ASCII drawing of a single generation: '#' for live
// cells, '*' for dying cells (Brian's Brain state 2), '.' otherwise.
func Render(g Grid) string {
	var b strings.Builder
	b.Grow((g.Width + 1) * g.Height)
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			switch g.At(row, col) {
			case 1:
				b.WriteByte('#')
			case 2:
				b.WriteByte('*')
			default:
				b.WriteByte('.')
			}
		}
		if row < g.Height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// RenderHistory draws a one-dimensional history as stacked rows, one
// generation per line. For two-dimensional histories it draws the final
// generation only.
func RenderHistory(h *History) string {
	if h.Dim == 2 {
		return Render(h.Last())
	}
	rows := make([]string, 0, len(h.Generations))
	for _, g := range h.Generations {
		rows = append(rows, Render(g))
	}
	return strings.Join(rows, "\n")
}
