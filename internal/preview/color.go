// Package preview renders decoded FITS image planes as 8-bit images.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// scaler maps plane values linearly onto [0, 255].
type scaler struct {
	min, max float64
}

func newScaler(m mat.Matrix) scaler {
	r, c := m.Dims()
	finite := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); !math.IsNaN(v) && !math.IsInf(v, 0) {
				finite = append(finite, v)
			}
		}
	}
	if len(finite) == 0 {
		return scaler{0, 1}
	}
	s := scaler{min: floats.Min(finite), max: floats.Max(finite)}
	if s.max == s.min {
		s.max = s.min + 1
	}
	return s
}

// scale returns v in [0, 255]. Undefined values render black.
func (s scaler) scale(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	// https://stats.stackexchange.com/questions/281162/scale-a-number-between-a-range
	scaled := (v - s.min) / (s.max - s.min) * 255
	return int(math.Max(0, math.Min(255, scaled)))
}

// Grayscale renders a plane with its minimum as black and maximum as white.
// FITS rows count upward, so row 0 is drawn at the bottom.
func Grayscale(m mat.Matrix) *image.Gray {
	height, width := m.Dims()
	s := newScaler(m)
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, height-1-y, color.Gray{Y: uint8(s.scale(m.At(y, x)))})
		}
	}
	return img
}

// ParseBayer normalizes a BAYERPAT header value.
func ParseBayer(bayer string) string {
	return strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(bayer, "'", "")))
}

var bayerPatterns = map[string]bool{"RGGB": true, "BGGR": true, "GRBG": true, "GBRG": true}

type pixel struct {
	row, col, height, width int
	m                       mat.Matrix
	s                       scaler
	pattern                 string
}

func (p *pixel) colorAt(row, col int) byte {
	return p.pattern[2*(row%2)+col%2]
}

func (p *pixel) valueAt(row, col int) int {
	return p.s.scale(p.m.At(row, col))
}

// channel averages the 3x3 neighbourhood pixels that carry color c.
func (p *pixel) channel(c byte) int {
	if p.colorAt(p.row, p.col) == c {
		return p.valueAt(p.row, p.col)
	}
	var values []int
	for r := max(p.row-1, 0); r <= min(p.row+1, p.height-1); r++ {
		for col := max(p.col-1, 0); col <= min(p.col+1, p.width-1); col++ {
			if p.colorAt(r, col) == c {
				values = append(values, p.valueAt(r, col))
			}
		}
	}
	return mean(values)
}

// Debayer reconstructs a color image from a one-shot-color sensor plane by
// bilinear interpolation. pattern is the 2x2 filter layout, e.g. RGGB.
func Debayer(m mat.Matrix, pattern string) (*image.RGBA, error) {
	pattern = ParseBayer(pattern)
	if !bayerPatterns[pattern] {
		return nil, fmt.Errorf("preview: unsupported Bayer pattern %q", pattern)
	}

	height, width := m.Dims()
	s := newScaler(m)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			pix := &pixel{row: row, col: col, height: height, width: width, m: m, s: s, pattern: pattern}
			img.SetRGBA(col, height-1-row, color.RGBA{
				R: uint8(pix.channel('R')),
				G: uint8(pix.channel('G')),
				B: uint8(pix.channel('B')),
				A: 255,
			})
		}
	}
	return img, nil
}

func mean(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return sum / len(values)
}
