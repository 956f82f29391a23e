package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// WriteJPEG encodes img at the given quality (1-100).
func WriteJPEG(w io.Writer, img image.Image, quality int) error {
	if quality < 1 || quality > 100 {
		quality = 100
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

// SaveJPEG writes img to path.
func SaveJPEG(path string, img image.Image, quality int) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteJPEG(out, img, quality); err != nil {
		out.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return out.Close()
}

// grid adapts a plane to plotter.GridXYZ. Columns are x, rows are y.
type grid struct {
	m mat.Matrix
}

func (g grid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g grid) Z(c, r int) float64 { return g.m.At(r, c) }
func (g grid) X(c int) float64    { return float64(c) }
func (g grid) Y(r int) float64    { return float64(r) }

// HeatMap builds a plot of the plane using a heat palette.
func HeatMap(m mat.Matrix, title string) (*plot.Plot, error) {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, fmt.Errorf("preview: empty plane")
	}

	hm := plotter.NewHeatMap(grid{m}, palette.Heat(64, 1))
	hm.NaN = color.Transparent
	s := newScaler(m)
	hm.Min, hm.Max = s.min, s.max

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "NAXIS1"
	p.Y.Label.Text = "NAXIS2"
	p.Add(hm)
	return p, nil
}

// SaveHeatMap renders the plane to an image file; the format follows the
// extension of path (png, svg, pdf, ...).
func SaveHeatMap(path string, m mat.Matrix, title string) error {
	p, err := HeatMap(m, title)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save heat map %s: %w", path, err)
	}
	return nil
}
