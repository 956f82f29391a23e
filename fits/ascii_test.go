package fits

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/noamichael/fitsgo/internal/fitstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeASCIIField(t *testing.T) {
	tests := []struct {
		format string
		raw    string
		want   any
	}{
		{"I5", "  123", int64(123)},
		{"I4", "  -7", int64(-7)},
		{"A3", "abc", "abc"},
		{"A8", "  ngc   ", "ngc"},
		{"F6.2", "  3.50", 3.5},
		{"F6.2", " 12345", 123.45},
		{"E10.3", " 1.500E+01", float32(15)},
		{"D12.4", "  2.5000D-01", 0.25},
		{"Z4", " xy ", "xy"},
		{"", " free ", "free"},
	}
	for _, tc := range tests {
		t.Run(tc.format+"/"+tc.raw, func(t *testing.T) {
			got, err := DecodeASCIIField(tc.format, []byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeASCIIFieldErrors(t *testing.T) {
	tests := []struct {
		format string
		raw    string
	}{
		{"I5", "     "},
		{"I5", "12a  "},
		{"F6.2", " abc  "},
		{"E10.3", "          "},
		{"D8.2", "1.0.0   "},
	}
	for _, tc := range tests {
		t.Run(tc.format+"/"+tc.raw, func(t *testing.T) {
			v, err := DecodeASCIIField(tc.format, []byte(tc.raw))
			assert.ErrorIs(t, err, ErrFieldParse)
			assert.Nil(t, v)
		})
	}
}

func asciiTableCards(extra ...string) []string {
	cards := append(fitstest.Extension("TABLE", 8, 0, 1, 15, 2),
		fitstest.Card("TFIELDS", "3", ""),
		fitstest.Card("TTYPE1", fitstest.Str("NAME"), ""),
		fitstest.Card("TFORM1", fitstest.Str("A5"), ""),
		fitstest.Card("TBCOL1", "1", ""),
		fitstest.Card("TTYPE2", fitstest.Str("COUNT"), ""),
		fitstest.Card("TFORM2", fitstest.Str("I4"), ""),
		fitstest.Card("TBCOL2", "6", ""),
		fitstest.Card("TTYPE3", fitstest.Str("FLUX"), ""),
		fitstest.Card("TFORM3", fitstest.Str("F6.2"), ""),
		fitstest.Card("TUNIT3", fitstest.Str("Jy"), ""),
		fitstest.Card("TBCOL3", "10", ""),
	)
	return append(cards, extra...)
}

func asciiTable(t *testing.T, rows string) *ASCIITable {
	t.Helper()
	f, err := Decode(fitstest.File(
		fitstest.HDU{Cards: fitstest.Primary(8)},
		fitstest.HDU{Cards: asciiTableCards(), Data: []byte(rows)},
	))
	require.NoError(t, err)
	require.Len(t, f.HDUs, 2)
	tbl, ok := f.HDUs[1].Data.(*ASCIITable)
	require.True(t, ok, "got %T", f.HDUs[1].Data)
	return tbl
}

func TestASCIITableFormatData(t *testing.T) {
	tbl := asciiTable(t, "alpha  12  3.50"+"beta   -7 12345")

	assert.Equal(t, 3, tbl.Tfields)
	assert.Equal(t, []int{1, 6, 10}, tbl.Tbcoln)
	assert.Equal(t, []string{"A5", "I4", "F6.2"}, tbl.Tformn)
	wantCols := []Column{
		{Name: "NAME", Format: "A5"},
		{Name: "COUNT", Format: "I4"},
		{Name: "FLUX", Format: "F6.2", Unit: "Jy"},
	}
	if diff := cmp.Diff(wantCols, tbl.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	m, err := tbl.FormatData()
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, 3, m.Cols())

	row, err := m.Row(0)
	require.NoError(t, err)
	assert.Equal(t, []any{"alpha", int64(12), 3.5}, row)

	flux, err := m.Column(2)
	require.NoError(t, err)
	assert.Equal(t, []any{3.5, 123.45}, flux)

	single, err := tbl.Row(1)
	require.NoError(t, err)
	assert.Equal(t, []any{"beta", int64(-7), 123.45}, single)

	_, err = tbl.Row(2)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestASCIITableFieldError(t *testing.T) {
	tbl := asciiTable(t, "alpha  12  3.50"+"beta   xx 12345")

	_, err := tbl.FormatData()
	require.ErrorIs(t, err, ErrFieldParse)

	var ferr *FieldError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, 1, ferr.Row)
	assert.Equal(t, 1, ferr.Column)
	assert.Equal(t, "I4", ferr.Format)

	row, err := tbl.Row(0)
	require.NoError(t, err)
	assert.Equal(t, "alpha", row[0])
}

func TestASCIITableDecodeRow(t *testing.T) {
	tbl := asciiTable(t, "alpha  12  3.50"+"beta   -7 12345")

	row, err := tbl.DecodeRow([]byte("gamma   0  0.25"))
	require.NoError(t, err)
	assert.Equal(t, []any{"gamma", int64(0), 0.25}, row)

	_, err = tbl.DecodeRow([]byte("short"))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestASCIITableTbcolOutOfRow(t *testing.T) {
	cards := append(fitstest.Extension("TABLE", 8, 0, 1, 4, 1),
		fitstest.Card("TFIELDS", "1", ""),
		fitstest.Card("TFORM1", fitstest.Str("I4"), ""),
		fitstest.Card("TBCOL1", "9", ""),
	)
	h := initializedHeader(t, cards...)
	_, err := FromHeader(nil, h)
	assert.ErrorIs(t, err, ErrInvalidKeyword)
}
