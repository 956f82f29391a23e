package fits

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ASCIITable is the payload of a TABLE extension. Each row is NAXIS1
// characters and holds TFIELDS fields starting at the TBCOLn offsets.
type ASCIITable struct {
	blocks []Block
	Layout

	Tfields int
	Tformn  []string
	// Tbcoln holds the 1-based starting byte of each field.
	Tbcoln  []int
	Columns []Column
}

func (*ASCIITable) isData() {}

func (t *ASCIITable) Blocks() []Block { return t.blocks }

func newASCIITable(blocks []Block, h *Header) (*ASCIITable, error) {
	l, tformn, columns, err := readTableLayout(blocks, h)
	if err != nil {
		return nil, err
	}
	// FITS 4.0 §7.2.1: ASCII tables have no heap.
	if err := requireCount("PCOUNT", l.Pcount, 0); err != nil {
		return nil, err
	}

	tbcoln := make([]int, len(tformn))
	for i := range tbcoln {
		key := fmt.Sprintf("TBCOL%d", i+1)
		if tbcoln[i], err = h.Int(key); err != nil {
			return nil, err
		}
		if tbcoln[i] < 1 || tbcoln[i] > l.Naxisn[0] {
			return nil, &KeywordError{Keyword: key, Value: fmt.Sprint(tbcoln[i]), Err: ErrInvalidKeyword}
		}
	}

	return &ASCIITable{
		blocks:  blocks,
		Layout:  l,
		Tfields: len(tformn),
		Tformn:  tformn,
		Tbcoln:  tbcoln,
		Columns: columns,
	}, nil
}

// RowWidth is NAXIS1, the number of characters in a row.
func (t *ASCIITable) RowWidth() int { return t.Naxisn[0] }

// NumRows is NAXIS2.
func (t *ASCIITable) NumRows() int { return t.Naxisn[1] }

// DecodeRow splits one row into its fields. Field i spans from TBCOLi to
// the byte before TBCOL(i+1); the last field runs to the end of the row.
func (t *ASCIITable) DecodeRow(row []byte) ([]any, error) {
	return t.decodeRow(-1, row)
}

func (t *ASCIITable) decodeRow(index int, row []byte) ([]any, error) {
	out := make([]any, t.Tfields)
	for i := range out {
		start := t.Tbcoln[i] - 1
		end := len(row)
		if i+1 < t.Tfields {
			end = t.Tbcoln[i+1] - 1
		}
		if start < 0 || end > len(row) || end < start {
			return nil, &FieldError{Row: index, Column: i, Format: t.Tformn[i],
				Err: fmt.Errorf("%w: bytes [%d,%d) of a %d byte row", ErrOutOfRange, start, end, len(row))}
		}

		v, err := DecodeASCIIField(t.Tformn[i], row[start:end])
		if err != nil {
			return nil, &FieldError{Row: index, Column: i, Format: t.Tformn[i], Err: err}
		}
		out[i] = v
	}
	return out, nil
}

func (t *ASCIITable) raw() ([]byte, error) {
	data, err := t.data(t.blocks)
	if err != nil {
		return nil, err
	}
	return data[:t.RowWidth()*t.NumRows()], nil
}

// Row decodes row i (zero-based).
func (t *ASCIITable) Row(i int) ([]any, error) {
	if i < 0 || i >= t.NumRows() {
		return nil, fmt.Errorf("%w: row %d of %d", ErrOutOfRange, i, t.NumRows())
	}
	raw, err := t.raw()
	if err != nil {
		return nil, err
	}
	w := t.RowWidth()
	return t.decodeRow(i, raw[i*w:(i+1)*w])
}

// FormatData decodes every row into a NAXIS2 x TFIELDS matrix.
func (t *ASCIITable) FormatData() (*Matrix2D[any], error) {
	raw, err := t.raw()
	if err != nil {
		return nil, err
	}
	w := t.RowWidth()
	m := NewMatrix2D[any](0, t.Tfields)
	for i := 0; i < t.NumRows(); i++ {
		row, err := t.decodeRow(i, raw[i*w:(i+1)*w])
		if err != nil {
			return nil, err
		}
		if err := m.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// DecodeASCIIField interprets the characters of one ASCII table field
// according to its TFORM code:
//
//	Aw    string, surrounding blanks trimmed
//	Iw    int64
//	Fw.d  float64
//	Ew.d  float32
//	Dw.d  float64
//
// Any other code yields the trimmed text. A numeric field that does not
// parse, including a blank one, is an error.
func DecodeASCIIField(format string, raw []byte) (any, error) {
	format = strings.TrimSpace(format)
	text := strings.TrimSpace(string(raw))
	if format == "" {
		return text, nil
	}

	switch code := format[0]; code {
	case 'A':
		return text, nil
	case 'I':
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q as %s", ErrFieldParse, text, format)
		}
		return n, nil
	case 'F':
		f, err := parseReal(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q as %s", ErrFieldParse, text, format)
		}
		return impliedDecimal(f, text, format), nil
	case 'E':
		f, err := parseReal(text, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q as %s", ErrFieldParse, text, format)
		}
		return float32(impliedDecimal(f, text, format)), nil
	case 'D':
		f, err := parseReal(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q as %s", ErrFieldParse, text, format)
		}
		return impliedDecimal(f, text, format), nil
	}
	return text, nil
}

// impliedDecimal applies FITS 4.0 §7.2.5: when a real field has no decimal
// point, the last d digits of the mantissa are the fraction.
func impliedDecimal(f float64, text, format string) float64 {
	if strings.ContainsAny(text, ".") {
		return f
	}
	dot := strings.IndexByte(format, '.')
	if dot < 0 {
		return f
	}
	d, err := strconv.Atoi(format[dot+1:])
	if err != nil || d <= 0 {
		return f
	}
	return f / math.Pow10(d)
}
