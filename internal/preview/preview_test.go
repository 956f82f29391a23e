package preview

import (
	"bytes"
	"image"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestGrayscale(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{
		0, 10,
		20, 30,
	})
	img := Grayscale(m)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())

	// Row 0 of the plane is the bottom row of the image.
	assert.Equal(t, uint8(0), img.GrayAt(0, 1).Y)
	assert.InDelta(t, 85, int(img.GrayAt(1, 1).Y), 1)
	assert.InDelta(t, 170, int(img.GrayAt(0, 0).Y), 1)
	assert.Equal(t, uint8(255), img.GrayAt(1, 0).Y)
}

func TestGrayscaleUndefined(t *testing.T) {
	m := mat.NewDense(1, 3, []float64{math.NaN(), 4, 4})
	img := Grayscale(m)
	assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), img.GrayAt(1, 0).Y)
}

func TestParseBayer(t *testing.T) {
	assert.Equal(t, "RGGB", ParseBayer("'rggb '"))
	assert.Equal(t, "GBRG", ParseBayer(" GBRG"))
}

func TestDebayer(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{
		0, 85,
		170, 255,
	})
	img, err := Debayer(m, "RGGB")
	require.NoError(t, err)

	// Plane (0,0) is the red site, drawn at the bottom left.
	c := img.RGBAAt(0, 1)
	assert.Equal(t, uint8(0), c.R)
	assert.InDelta(t, 127, int(c.G), 1)
	assert.Equal(t, uint8(255), c.B)
	assert.Equal(t, uint8(255), c.A)

	// Plane (1,1) is the blue site.
	c = img.RGBAAt(1, 0)
	assert.Equal(t, uint8(255), c.B)
	assert.Equal(t, uint8(0), c.R)

	_, err = Debayer(m, "RGBX")
	assert.Error(t, err)
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0, mean(nil))
	assert.Equal(t, 15, mean([]int{10, 20}))
	assert.Equal(t, 7, mean([]int{7}))
}

func TestDebayerEdgeNeighbours(t *testing.T) {
	// A 1x1 plane has no neighbours for the missing channels.
	img, err := Debayer(mat.NewDense(1, 1, []float64{5}), "BGGR")
	require.NoError(t, err)
	c := img.RGBAAt(0, 0)
	assert.Equal(t, uint8(0), c.R)
	assert.Equal(t, uint8(0), c.G)
}

func TestWriteJPEG(t *testing.T) {
	img := Grayscale(mat.NewDense(4, 6, nil))

	var buf bytes.Buffer
	require.NoError(t, WriteJPEG(&buf, img, 0))

	decoded, err := jpeg.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestSaveJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plane.jpeg")
	require.NoError(t, SaveJPEG(path, Grayscale(mat.NewDense(2, 2, []float64{1, 2, 3, 4})), 90))

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, st.Size())

	assert.Error(t, SaveJPEG(filepath.Join(t.TempDir(), "missing", "x.jpeg"), image.NewGray(image.Rect(0, 0, 1, 1)), 90))
}

func TestHeatMap(t *testing.T) {
	m := mat.NewDense(3, 4, []float64{
		0, 1, 2, 3,
		4, 5, math.NaN(), 7,
		8, 9, 10, 11,
	})
	p, err := HeatMap(m, "M31")
	require.NoError(t, err)
	assert.Equal(t, "M31", p.Title.Text)
	assert.Equal(t, "NAXIS1", p.X.Label.Text)

	g := grid{m}
	c, r := g.Dims()
	assert.Equal(t, 4, c)
	assert.Equal(t, 3, r)
	assert.Equal(t, 9.0, g.Z(1, 2))

	path := filepath.Join(t.TempDir(), "heat.png")
	require.NoError(t, SaveHeatMap(path, m, "M31"))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
