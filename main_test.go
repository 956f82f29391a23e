package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/noamichael/fitsgo/fits"
	"github.com/noamichael/fitsgo/internal/fitstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSample(t *testing.T) string {
	t.Helper()
	image := []byte{
		0, 10, 20,
		30, 40, 50,
	}
	table := append(fitstest.Extension("TABLE", 8, 0, 1, 9, 2),
		fitstest.Card("TFIELDS", "2", ""),
		fitstest.Card("TTYPE1", fitstest.Str("NAME"), ""),
		fitstest.Card("TFORM1", fitstest.Str("A5"), ""),
		fitstest.Card("TBCOL1", "1", ""),
		fitstest.Card("TFORM2", fitstest.Str("I4"), ""),
		fitstest.Card("TBCOL2", "6", ""),
	)
	buf := fitstest.File(
		fitstest.HDU{Cards: append(fitstest.Primary(8, 3, 2),
			fitstest.Card("OBJECT", fitstest.Str("NGC 4151"), ""),
		), Data: image},
		fitstest.HDU{Cards: table, Data: []byte("vega    1" + "rigel  22")},
	)
	path := filepath.Join(t.TempDir(), "sample.fits")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestParseFlags(t *testing.T) {
	cfg, err := parseFlags([]string{"-keywords", "-rows", "2", "-parallel", "3", "x.fits"})
	require.NoError(t, err)
	assert.Equal(t, "x.fits", cfg.Path)
	assert.True(t, cfg.Keywords)
	assert.Equal(t, 2, cfg.Rows)
	assert.Equal(t, 3, cfg.Parallel)
	assert.Equal(t, -1, cfg.HDU)
	assert.Len(t, cfg.options(), 1)

	cfg, err = parseFlags([]string{"-jpeg", "out.jpeg", "-legacy-strings", "-v", "x.fits"})
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.HDU, "rendering defaults to the primary HDU")
	assert.Len(t, cfg.options(), 3)

	_, err = parseFlags(nil)
	assert.Error(t, err)
	_, err = parseFlags([]string{"a.fits", "b.fits"})
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	path := writeSample(t)
	cfg, err := parseFlags([]string{"-keywords", path})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run(cfg, &out))

	s := out.String()
	assert.Contains(t, s, "2 HDUs (Primary, ASCII Table)")
	assert.Contains(t, s, "HDU 0: Primary")
	assert.Contains(t, s, "shape [2 3]")
	assert.Contains(t, s, "OBJECT   = NGC 4151")
	assert.Contains(t, s, "NAME(A5) | col2(I4)")
	assert.Contains(t, s, "vega | 1")
	assert.Contains(t, s, "rigel | 22")
}

func TestRunSingleHDURaw(t *testing.T) {
	path := writeSample(t)
	cfg, err := parseFlags([]string{"-hdu", "1", "-raw", "-rows", "1", path})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run(cfg, &out))

	s := out.String()
	assert.NotContains(t, s, "HDU 0:")
	assert.Contains(t, s, "XTENSION= ")
	assert.Contains(t, s, "vega | 1")
	assert.NotContains(t, s, "rigel")
}

func TestRunRender(t *testing.T) {
	path := writeSample(t)
	dir := t.TempDir()
	jpegPath := filepath.Join(dir, "plane.jpeg")
	heatPath := filepath.Join(dir, "plane.png")

	cfg, err := parseFlags([]string{"-jpeg", jpegPath, "-heatmap", heatPath, path})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run(cfg, &out))
	assert.Contains(t, out.String(), "wrote "+jpegPath)
	assert.FileExists(t, jpegPath)
	assert.FileExists(t, heatPath)

	cfg, err = parseFlags([]string{"-hdu", "1", "-jpeg", jpegPath, path})
	require.NoError(t, err)
	assert.ErrorContains(t, run(cfg, &out), "not an image")
}

func TestRunMissingFile(t *testing.T) {
	cfg, err := parseFlags([]string{filepath.Join(t.TempDir(), "none.fits")})
	require.NoError(t, err)
	assert.Error(t, run(cfg, &bytes.Buffer{}))
}

func TestDescribeUnclassified(t *testing.T) {
	var out bytes.Buffer
	hdu := &fits.HDU{Index: 2, Header: fits.NewHeader(), Data: &fits.Empty{}}
	require.NoError(t, describe(&Config{}, &out, hdu))
	assert.Contains(t, out.String(), "HDU 2: Unclassified")
	assert.Contains(t, out.String(), "unclassified payload")
}
