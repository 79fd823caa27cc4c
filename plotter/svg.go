// Package plotter renders simulated trajectories as standalone SVG plots.
//
// A Plot collects line and point series and renders them as a self-contained
// SVG document suitable for writing next to a compiled artifact or embedding
// in a report. Concentration curves that decay over several orders of
// magnitude can be drawn on a log10 Y axis.
package plotter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Crispae/wasm-pk/simulate"
)

// Layout margins in SVG user units.
const (
	marginTop    = 40.0
	marginRight  = 30.0
	marginBottom = 50.0
	marginLeft   = 60.0
)

var palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728",
	"#9467bd", "#8c564b", "#e377c2", "#7f7f7f",
}

// Series is one plotted trace.
type Series struct {
	X     []float64
	Y     []float64
	Label string
	Color string
	Marks bool
}

// Bounds holds the padded data extents of the last render.
type Bounds struct {
	Xmin, Xmax float64
	Ymin, Ymax float64
}

// Plot accumulates series and renders them to SVG.
type Plot struct {
	Width  float64
	Height float64
	Title  string
	XLabel string
	YLabel string
	LogY   bool

	series []Series
	bounds Bounds
}

// New creates a plot with the given outer dimensions.
func New(width, height float64) *Plot {
	return &Plot{
		Width:  width,
		Height: height,
		XLabel: "Time",
		YLabel: "Amount",
	}
}

// SetTitle sets the plot title.
func (p *Plot) SetTitle(title string) *Plot {
	p.Title = title
	return p
}

// SetXLabel sets the X-axis label.
func (p *Plot) SetXLabel(label string) *Plot {
	p.XLabel = label
	return p
}

// SetYLabel sets the Y-axis label.
func (p *Plot) SetYLabel(label string) *Plot {
	p.YLabel = label
	return p
}

// SetLogY switches the Y axis to a log10 scale.
// Non-positive values are dropped from log-scale plots.
func (p *Plot) SetLogY(on bool) *Plot {
	p.LogY = on
	return p
}

// AddLine adds a connected trace. An empty color picks the next palette entry.
func (p *Plot) AddLine(x, y []float64, label, color string) *Plot {
	return p.add(Series{X: x, Y: y, Label: label, Color: color})
}

// AddPoints adds a scatter trace, used to overlay observed data
// on a simulated curve.
func (p *Plot) AddPoints(x, y []float64, label, color string) *Plot {
	return p.add(Series{X: x, Y: y, Label: label, Color: color, Marks: true})
}

func (p *Plot) add(s Series) *Plot {
	if s.Color == "" {
		s.Color = palette[len(p.series)%len(palette)]
	}
	p.series = append(p.series, s)
	return p
}

// Bounds reports the padded data extents computed by the last Render call.
func (p *Plot) Bounds() Bounds {
	return p.bounds
}

// Render generates the SVG document.
func (p *Plot) Render() string {
	b := p.dataBounds()
	p.bounds = b

	pw := p.Width - marginLeft - marginRight
	ph := p.Height - marginTop - marginBottom

	sx := func(x float64) float64 {
		return marginLeft + (x-b.Xmin)/(b.Xmax-b.Xmin)*pw
	}
	sy := func(y float64) float64 {
		v, lo, hi := y, b.Ymin, b.Ymax
		if p.LogY {
			v, lo, hi = math.Log10(y), math.Log10(b.Ymin), math.Log10(b.Ymax)
		}
		return marginTop + ph - (v-lo)/(hi-lo)*ph
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="Helvetica, sans-serif">`,
		int(p.Width), int(p.Height), int(p.Width), int(p.Height))
	fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="#ffffff"/>`, int(p.Width), int(p.Height))

	if p.Title != "" {
		fmt.Fprintf(&sb, `<text x="%g" y="24" text-anchor="middle" font-size="15" font-weight="bold">%s</text>`,
			p.Width/2, escape(p.Title))
	}

	p.renderGrid(&sb, b, sx, sy, pw, ph)
	p.renderSeries(&sb, sx, sy)
	p.renderAxes(&sb, pw, ph)
	p.renderLegend(&sb)

	sb.WriteString(`</svg>`)
	return sb.String()
}

// dataBounds computes padded extents over every series, ignoring
// non-positive values when the Y axis is logarithmic.
func (p *Plot) dataBounds() Bounds {
	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	for _, s := range p.series {
		for i := range s.X {
			y := s.Y[i]
			if p.LogY && y <= 0 {
				continue
			}
			xmin = math.Min(xmin, s.X[i])
			xmax = math.Max(xmax, s.X[i])
			ymin = math.Min(ymin, y)
			ymax = math.Max(ymax, y)
		}
	}
	if xmin > xmax {
		xmin, xmax = 0, 1
	}
	if ymin > ymax {
		ymin, ymax = 0, 1
		if p.LogY {
			ymin = 0.1
		}
	}

	if dx := xmax - xmin; dx == 0 {
		xmin, xmax = xmin-0.5, xmax+0.5
	} else {
		xmin, xmax = xmin-0.05*dx, xmax+0.05*dx
	}

	if p.LogY {
		lo, hi := math.Log10(ymin), math.Log10(ymax)
		if d := hi - lo; d == 0 {
			lo, hi = lo-0.5, hi+0.5
		} else {
			lo, hi = lo-0.05*d, hi+0.05*d
		}
		ymin, ymax = math.Pow(10, lo), math.Pow(10, hi)
	} else if dy := ymax - ymin; dy == 0 {
		ymin, ymax = ymin-0.5, ymax+0.5
	} else {
		ymin, ymax = ymin-0.1*dy, ymax+0.1*dy
	}
	return Bounds{Xmin: xmin, Xmax: xmax, Ymin: ymin, Ymax: ymax}
}

func (p *Plot) renderGrid(sb *strings.Builder, b Bounds, sx, sy func(float64) float64, pw, ph float64) {
	for _, x := range linearTicks(b.Xmin, b.Xmax, 6) {
		px := sx(x)
		fmt.Fprintf(sb, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#ddd" stroke-width="0.5"/>`,
			px, marginTop, px, marginTop+ph)
		fmt.Fprintf(sb, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#333" stroke-width="1"/>`,
			px, marginTop+ph, px, marginTop+ph+5)
		fmt.Fprintf(sb, `<text x="%g" y="%g" text-anchor="middle" font-size="10">%s</text>`,
			px, marginTop+ph+18, formatTick(x))
	}

	var ys []float64
	if p.LogY {
		ys = decadeTicks(b.Ymin, b.Ymax)
	} else {
		ys = linearTicks(b.Ymin, b.Ymax, 6)
	}
	for _, y := range ys {
		py := sy(y)
		fmt.Fprintf(sb, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#ddd" stroke-width="0.5"/>`,
			marginLeft, py, marginLeft+pw, py)
		fmt.Fprintf(sb, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#333" stroke-width="1"/>`,
			marginLeft-5, py, marginLeft, py)
		fmt.Fprintf(sb, `<text x="%g" y="%g" text-anchor="end" font-size="10">%s</text>`,
			marginLeft-8, py+3.5, formatTick(y))
	}
}

func (p *Plot) renderSeries(sb *strings.Builder, sx, sy func(float64) float64) {
	for _, s := range p.series {
		if s.Marks {
			for i := range s.X {
				if p.LogY && s.Y[i] <= 0 {
					continue
				}
				fmt.Fprintf(sb, `<circle cx="%g" cy="%g" r="3" fill="%s"/>`,
					sx(s.X[i]), sy(s.Y[i]), s.Color)
			}
			continue
		}

		var path strings.Builder
		pen := false
		for i := range s.X {
			if p.LogY && s.Y[i] <= 0 {
				// lift the pen across dropped points
				pen = false
				continue
			}
			cmd := "L"
			if !pen {
				cmd = "M"
				pen = true
			}
			fmt.Fprintf(&path, "%s%g %g ", cmd, sx(s.X[i]), sy(s.Y[i]))
		}
		if path.Len() == 0 {
			continue
		}
		fmt.Fprintf(sb, `<path d="%s" stroke="%s" stroke-width="2" fill="none" stroke-linejoin="round"/>`,
			strings.TrimSpace(path.String()), s.Color)
	}
}

func (p *Plot) renderAxes(sb *strings.Builder, pw, ph float64) {
	fmt.Fprintf(sb, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#333" stroke-width="1.5"/>`,
		marginLeft, marginTop, marginLeft, marginTop+ph)
	fmt.Fprintf(sb, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#333" stroke-width="1.5"/>`,
		marginLeft, marginTop+ph, marginLeft+pw, marginTop+ph)
	fmt.Fprintf(sb, `<text x="%g" y="%g" text-anchor="middle" font-size="12">%s</text>`,
		marginLeft+pw/2, p.Height-12, escape(p.XLabel))
	fmt.Fprintf(sb, `<text x="16" y="%g" text-anchor="middle" font-size="12" transform="rotate(-90 16 %g)">%s</text>`,
		marginTop+ph/2, marginTop+ph/2, escape(p.YLabel))
}

func (p *Plot) renderLegend(sb *strings.Builder) {
	labeled := 0
	for _, s := range p.series {
		if s.Label != "" {
			labeled++
		}
	}
	if labeled == 0 {
		return
	}
	y := marginTop + 12.0
	for _, s := range p.series {
		if s.Label == "" {
			continue
		}
		x1 := p.Width - marginRight - 54
		x2 := p.Width - marginRight - 36
		if s.Marks {
			fmt.Fprintf(sb, `<circle cx="%g" cy="%g" r="3" fill="%s"/>`, (x1+x2)/2, y, s.Color)
		} else {
			fmt.Fprintf(sb, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="%s" stroke-width="2"/>`,
				x1, y, x2, y, s.Color)
		}
		fmt.Fprintf(sb, `<text x="%g" y="%g" font-size="11">%s</text>`, x2+6, y+4, escape(s.Label))
		y += 18
	}
}

// PlotSolution renders the named variables of a solution as a line plot.
// A nil variables slice plots every state variable.
func PlotSolution(sol *simulate.Solution, variables []string, width, height float64, title string) string {
	p := New(width, height).SetTitle(title)
	if variables == nil {
		variables = sol.Labels
	}
	for _, name := range variables {
		y := sol.Series(name)
		if y == nil {
			continue
		}
		p.AddLine(sol.T, y, name, "")
	}
	return p.Render()
}

// linearTicks returns n evenly spaced values covering [lo, hi].
func linearTicks(lo, hi float64, n int) []float64 {
	ticks := make([]float64, n)
	for i := range ticks {
		ticks[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return ticks
}

// decadeTicks returns the powers of ten within [lo, hi].
func decadeTicks(lo, hi float64) []float64 {
	var ticks []float64
	for e := math.Ceil(math.Log10(lo)); ; e++ {
		v := math.Pow(10, e)
		if v > hi*(1+1e-12) {
			break
		}
		ticks = append(ticks, v)
	}
	if len(ticks) < 2 {
		ticks = []float64{lo, hi}
	}
	return ticks
}

func formatTick(v float64) string {
	if v != 0 && (math.Abs(v) >= 1e4 || math.Abs(v) < 1e-3) {
		return strconv.FormatFloat(v, 'e', 1, 64)
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
