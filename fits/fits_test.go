package fits

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/noamichael/fitsgo/internal/fitstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	buf := threeHDUFile()
	f, err := Decode(buf)
	require.NoError(t, err)

	assert.Equal(t, len(buf), f.Size())
	require.Len(t, f.HDUs, 3)
	assert.Same(t, f.HDUs[0], f.Primary())

	want := []string{"Primary", "Image", "Binary Table"}
	if diff := cmp.Diff(want, f.ListHeaders()); diff != "" {
		t.Errorf("ListHeaders mismatch (-want +got):\n%s", diff)
	}

	primary, ok := f.Primary().Data.(*ArrayData)
	require.True(t, ok)
	arr, err := primary.FormatData()
	require.NoError(t, err)
	assert.Equal(t, []int{10, 10}, arr.Shape())
	v, err := arr.At(9, 9)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	hdu, err := f.HDU(1)
	require.NoError(t, err)
	typ, err := hdu.Type()
	require.NoError(t, err)
	assert.Equal(t, TypeImage, typ)
	assert.Equal(t, []int{2, 2000}, hdu.Data.(*ArrayData).Shape())

	_, err = f.HDU(3)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDecodeParallelMatchesSequential(t *testing.T) {
	buf := threeHDUFile()
	seq, err := Decode(buf)
	require.NoError(t, err)
	par, err := Decode(buf, WithParallel(4))
	require.NoError(t, err)

	assert.Equal(t, seq.ListHeaders(), par.ListHeaders())
	for i := range seq.HDUs {
		assert.Equal(t, seq.HDUs[i].Header.Keywords(), par.HDUs[i].Header.Keywords())
		assert.Equal(t, len(seq.HDUs[i].Data.Blocks()), len(par.HDUs[i].Data.Blocks()))
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Decode(make([]byte, 100))
	assert.ErrorIs(t, err, ErrBlockSize)

	bad := fitstest.File(
		fitstest.HDU{Cards: fitstest.Primary(8)},
		fitstest.HDU{Cards: fitstest.Extension("FOO", 8, 0, 1)},
	)
	for _, opts := range [][]Option{nil, {WithParallel(2)}} {
		_, err = Decode(bad, opts...)
		require.ErrorIs(t, err, ErrUnknownExtension)

		var derr *DecodeError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, 1, derr.HDU)
		assert.Equal(t, "parse header", derr.Op)
	}

	missing := fitstest.File(fitstest.HDU{Cards: []string{
		fitstest.Card("SIMPLE", "T", ""),
		fitstest.Card("NAXIS", "0", ""),
	}})
	_, err = Decode(missing)
	require.ErrorIs(t, err, ErrKeywordNotFound)
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "build payload", derr.Op)
	assert.Contains(t, err.Error(), "BITPIX")
}

func TestDecodeStringMode(t *testing.T) {
	buf := fitstest.File(fitstest.HDU{Cards: append(fitstest.Primary(8),
		fitstest.Card("OBJECT", fitstest.Str("NGC 4151"), ""),
	)})

	f, err := Decode(buf)
	require.NoError(t, err)
	v, _ := f.Primary().Header.Keyword("OBJECT")
	assert.Equal(t, "NGC 4151", v)

	f, err = Decode(buf, WithStringMode(StringLegacy))
	require.NoError(t, err)
	v, _ = f.Primary().Header.Keyword("OBJECT")
	assert.Equal(t, "NGC4151", v)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "three.fits")
	require.NoError(t, os.WriteFile(path, threeHDUFile(), 0o644))

	f, err := Open(path)
	require.NoError(t, err)
	assert.Len(t, f.HDUs, 3)

	_, err = Open(filepath.Join(t.TempDir(), "missing.fits"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type logRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *logRecorder) logf(format string, v ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, v...))
}

func (r *logRecorder) text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.lines, "\n")
}

func TestDecodeWithLogger(t *testing.T) {
	var rec logRecorder
	_, err := Decode(threeHDUFile(), WithLogger(rec.logf))
	require.NoError(t, err)

	out := rec.text()
	assert.Contains(t, out, "3 HDUs")
	assert.Contains(t, out, "hdu 2: Binary Table")
}

func TestSetLogger(t *testing.T) {
	saved := Logf
	t.Cleanup(func() { Logf = saved })

	var rec logRecorder
	SetLogger(rec.logf)

	_, err := Decode(threeHDUFile())
	require.NoError(t, err)
	assert.Empty(t, rec.text(), "quiet without WithVerbose")

	_, err = Decode(threeHDUFile(), WithVerbose())
	require.NoError(t, err)
	assert.Contains(t, rec.text(), "hdu 1: Image")

	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("discarded %d", 1) })
}
