//Package chemplot produces PNG plots of the distributions computed by atoman:
//histograms of per-atom values, radial distribution functions and Q4/Q6 maps.
package chemplot

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/cdjsvis/atoman/histo"
)

func basicPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	return p
}

func save(p *plot.Plot, w, h vg.Length, plotname string) error {
	filename := fmt.Sprintf("%s.png", plotname)
	if err := p.Save(w, h, filename); err != nil {
		return fmt.Errorf("chemplot: can't save %s: %w", filename, err)
	}
	return nil
}

//Histogram plots the histogram h to plotname.png (the extension is added).
func Histogram(h *histo.Data, title, xlabel, plotname string) error {
	if h == nil {
		return fmt.Errorf("chemplot.Histogram: given nil data")
	}
	div := h.CopyDividers()
	bins := h.View()
	ph := &plotter.Histogram{
		Bins:      make([]plotter.HistogramBin, len(bins)),
		Width:     div[len(div)-1] - div[0],
		FillColor: color.RGBA{R: 140, G: 140, B: 220, A: 255},
		LineStyle: plotter.DefaultLineStyle,
	}
	for i, v := range bins {
		ph.Bins[i] = plotter.HistogramBin{Min: div[i], Max: div[i+1], Weight: v}
	}
	ylabel := "Count"
	if h.Normalized() {
		ylabel = "Fraction"
	}
	p := basicPlot(title, xlabel, ylabel)
	p.Add(ph)
	return save(p, 5*vg.Inch, 4*vg.Inch, plotname)
}

//RDF plots one or more radial distribution functions, sharing the r values, to plotname.png.
//names, if not nil, must have one label for each function in g.
func RDF(r []float64, g [][]float64, names []string, title, plotname string) error {
	if len(g) == 0 {
		return fmt.Errorf("chemplot.RDF: given no data")
	}
	if names != nil && len(names) != len(g) {
		return fmt.Errorf("chemplot.RDF: %d names given for %d functions", len(names), len(g))
	}
	p := basicPlot(title, "r", "g(r)")
	for key, val := range g {
		if len(val) != len(r) {
			return fmt.Errorf("chemplot.RDF: function %d has %d points, expected %d", key, len(val), len(r))
		}
		xy := make(plotter.XYs, len(r))
		for i := range r {
			xy[i].X = r[i]
			xy[i].Y = val[i]
		}
		l, err := plotter.NewLine(xy)
		if err != nil {
			return err
		}
		cr, cg, cb := colors(key, len(g))
		l.LineStyle.Color = color.RGBA{R: cr, G: cg, B: cb, A: 255}
		p.Add(l)
		if names != nil {
			p.Legend.Add(names[key], l)
		}
	}
	return save(p, 5*vg.Inch, 4*vg.Inch, plotname)
}

//Partials plots every function in the upper triangle of a (square) matrix of RDFs,
//labelled with the given species symbols.
func Partials(M *histo.Matrix, symbols []string, title, plotname string) error {
	r, c := M.Dims()
	if r != c || len(symbols) != r {
		return fmt.Errorf("chemplot.Partials: %d symbols given for a %dx%d matrix", len(symbols), r, c)
	}
	var g [][]float64
	var names []string
	var centers []float64
	for i := 0; i < r; i++ {
		for j := i; j < c; j++ {
			d := M.View(i, j)
			if centers == nil {
				centers = d.Centers()
			}
			g = append(g, d.Copy())
			names = append(names, symbols[i]+"-"+symbols[j])
		}
	}
	return RDF(centers, g, names, title, plotname)
}

//OrderMap plots the Q4, Q6 pair of each atom. The points with indexes in tag (at most 4)
//are highlighted with a different glyph.
func OrderMap(q4, q6 []float64, tag []int, title, plotname string) error {
	if len(q4) != len(q6) {
		return fmt.Errorf("chemplot.OrderMap: %d Q4 values and %d Q6 values", len(q4), len(q6))
	}
	p := basicPlot(title, "Q4", "Q6")
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	temp := make(plotter.XYs, 1)
	var tagged int
	for key := range q4 {
		temp[0].X = q4[key]
		temp[0].Y = q6[key]
		s, err := plotter.NewScatter(temp)
		if err != nil {
			return err
		}
		r, g, b := colors(key, len(q4))
		if isIn(tag, key) {
			//past the 4th one the regular glyph is used
			s.GlyphStyle.Shape, _ = getShape(tagged)
			s.GlyphStyle.Radius = vg.Points(4)
			tagged++
		}
		s.GlyphStyle.Color = color.RGBA{R: r, B: b, G: g, A: 255}
		p.Add(s)
	}
	return save(p, 4*vg.Inch, 4*vg.Inch, plotname)
}

func isIn(container []int, test int) bool {
	for _, i := range container {
		if test == i {
			return true
		}
	}
	return false
}

func getShape(tagged int) (draw.GlyphDrawer, error) {
	switch tagged {
	case 0:
		return draw.PyramidGlyph{}, nil
	case 1:
		return draw.CircleGlyph{}, nil
	case 2:
		return draw.SquareGlyph{}, nil
	case 3:
		return draw.CrossGlyph{}, nil
	default:
		return draw.RingGlyph{}, fmt.Errorf("maximum number of taggable points is 4")
	}
}

//takes hue (0-360), v and s (0-1), returns r,g,b (0-255)
func iHVS2RGB(h, v, s float64) (uint8, uint8, uint8) {
	var r, g, b float64
	conversion := 255.0 * v
	if s == 0.0 {
		return uint8(conversion), uint8(conversion), uint8(conversion)
	}
	h = h / 60
	i := math.Floor(h)
	f := h - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch int(i) {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default: //case 5
		r, g, b = v, p, q
	}
	return uint8(r * conversion), uint8(g * conversion), uint8(b * conversion)
}

//colors returns the colour for the key-th of steps series, going from red to violet
//while skipping the yellows, which are hard to see on white.
func colors(key, steps int) (r, g, b uint8) {
	norm := 260.0 / float64(steps)
	hp := float64(key)*norm + 20.0
	h := hp + 20.0
	if hp < 55 {
		h = hp - 20.0
	}
	return iHVS2RGB(h, 1.0, 1.0)
}
