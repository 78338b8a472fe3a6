// Package plotting renders the scoring diagnostics with gonum/plot.
package plotting

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/correlation"
	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/models"
)

// HistogramBins matches the default bin count of common plotting tools
const HistogramBins = 10

// ErrNoData is returned when there is nothing to plot
var ErrNoData = errors.New("no data to plot")

var (
	kendallColor = color.RGBA{R: 220, A: 255}
	pearsonColor = color.RGBA{B: 220, A: 255}
)

// Renderer draws plots onto a square canvas and writes them as PNG
type Renderer struct {
	Size vg.Length
	DPI  int
}

// NewRenderer returns a renderer for a square canvas of sizeInches at dpi
func NewRenderer(sizeInches float64, dpi int) *Renderer {
	return &Renderer{Size: vg.Length(sizeInches) * vg.Inch, DPI: dpi}
}

// GridShape lays n subplots out in a near-square grid
func GridShape(n int) (rows, cols int) {
	rows = int(math.Sqrt(float64(n))) + 1
	cols = n / rows
	if rows*cols < n {
		cols++
	}
	return rows, cols
}

// Funnels scatters predicted score against ground truth, one subplot per protein
func (r *Renderer) Funnels(desc *models.Description, scores models.ScoreMap, path string) error {
	n := len(desc.Proteins)
	rows, cols := GridShape(n)

	plots := make([][]*plot.Plot, rows)
	for j := range plots {
		plots[j] = make([]*plot.Plot, cols)
	}

	for i, protein := range desc.Proteins {
		truth, predicted, err := correlation.Series(protein, scores)
		if err != nil {
			return err
		}
		p, err := funnel(protein.ID, truth, predicted)
		if err != nil {
			return fmt.Errorf("failed to build funnel for %s: %w", protein.ID, err)
		}
		plots[i/cols][i%cols] = p
	}

	img := r.canvas()
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 2,
		PadY:      vg.Millimeter * 2,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, draw.New(img))
	for j := range plots {
		for i, p := range plots[j] {
			if p != nil {
				p.Draw(canvases[j][i])
			}
		}
	}

	return writePNG(img, path)
}

func funnel(title string, truth, predicted []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title

	xys := finiteXYs(truth, predicted)
	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Radius = vg.Points(2)
	p.Add(scatter)

	if len(xys) > 0 {
		xs, ys := unzip(xys)
		p.X.Min = -0.1
		p.X.Max = floats.Max(xs) + 1
		p.Y.Min = floats.Min(ys) - 1
		p.Y.Max = floats.Max(ys) + 1
	} else {
		p.X.Min, p.X.Max = -0.1, 1
		p.Y.Min, p.Y.Max = -1, 1
	}
	return p, nil
}

// Loss draws the loss values in logged order. Non-finite steps leave a gap.
func (r *Renderer) Loss(losses []float64, path string) error {
	p := plot.New()
	p.Title.Text = "Loss function"
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Loss"

	steps := make([]float64, len(losses))
	for i := range losses {
		steps[i] = float64(i)
	}
	line, err := plotter.NewLine(finiteXYs(steps, losses))
	if err != nil {
		return fmt.Errorf("failed to build loss line: %w", err)
	}
	if len(line.XYs) > 0 {
		p.Add(line)
	}

	return r.save(p, path)
}

// Correlations draws Kendall tau (red) and Pearson r (blue) against epoch
func (r *Renderer) Correlations(epochs []int, taus, pearsons []float64, path string) error {
	if len(taus) != len(epochs) || len(pearsons) != len(epochs) {
		return fmt.Errorf("got %d epochs, %d Kendall and %d Pearson values", len(epochs), len(taus), len(pearsons))
	}

	p := plot.New()
	p.Title.Text = "Validation correlation"
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "Correlation"
	p.Legend.Top = true

	kendall, err := epochLine(epochs, taus, kendallColor)
	if err != nil {
		return fmt.Errorf("failed to build Kendall line: %w", err)
	}
	pearson, err := epochLine(epochs, pearsons, pearsonColor)
	if err != nil {
		return fmt.Errorf("failed to build Pearson line: %w", err)
	}
	for _, series := range []struct {
		name string
		line *plotter.Line
	}{{"Kendall tau", kendall}, {"Pearson r", pearson}} {
		if len(series.line.XYs) == 0 {
			continue
		}
		p.Add(series.line)
		p.Legend.Add(series.name, series.line)
	}

	return r.save(p, path)
}

func epochLine(epochs []int, values []float64, c color.Color) (*plotter.Line, error) {
	xs := make([]float64, len(epochs))
	for i, epoch := range epochs {
		xs[i] = float64(epoch)
	}
	line, err := plotter.NewLine(finiteXYs(xs, values))
	if err != nil {
		return nil, err
	}
	line.Color = c
	return line, nil
}

// finiteXYs pairs xs with ys, dropping points the plot library rejects
func finiteXYs(xs, ys []float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(xs))
	for i := range xs {
		if !isFinite(xs[i]) || !isFinite(ys[i]) {
			continue
		}
		xys = append(xys, plotter.XY{X: xs[i], Y: ys[i]})
	}
	return xys
}

func unzip(xys plotter.XYs) (xs, ys []float64) {
	xs = make([]float64, len(xys))
	ys = make([]float64, len(xys))
	for i, xy := range xys {
		xs[i], ys[i] = xy.X, xy.Y
	}
	return xs, ys
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Histogram draws the distribution of values
func (r *Renderer) Histogram(values []float64, path string) error {
	if len(values) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Decoy sampling"
	p.X.Label.Text = "Similarity"
	p.Y.Label.Text = "Count"

	hist, err := plotter.NewHist(plotter.Values(values), HistogramBins)
	if err != nil {
		return fmt.Errorf("failed to build histogram: %w", err)
	}
	p.Add(hist)

	return r.save(p, path)
}

func (r *Renderer) canvas() *vgimg.Canvas {
	return vgimg.NewWith(vgimg.UseWH(r.Size, r.Size), vgimg.UseDPI(r.DPI))
}

func (r *Renderer) save(p *plot.Plot, path string) error {
	img := r.canvas()
	p.Draw(draw.New(img))
	return writePNG(img, path)
}

func writePNG(img *vgimg.Canvas, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
