package fits

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TForm is a parsed binary table format such as "16A", "1E" or "1PJ(40)".
type TForm struct {
	Repeat int
	Code   byte
	// Extra is whatever follows the type code; for P and Q columns it
	// names the element type of the heap array.
	Extra string
}

// maxRepeat keeps Repeat * 16 within an int.
const maxRepeat = math.MaxInt / 16

// elementWidth is the size in bytes of one element of each type code.
// X is stored bit-packed and is handled separately.
var elementWidth = map[byte]int{
	'L': 1, 'X': 1, 'B': 1, 'A': 1,
	'I': 2,
	'J': 4, 'E': 4,
	'K': 8, 'D': 8, 'C': 8, 'P': 8,
	'M': 16, 'Q': 16,
}

// ParseTForm parses a binary table TFORMn value. The repeat count defaults
// to 1 when omitted.
func ParseTForm(s string) (TForm, error) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}

	f := TForm{Repeat: 1}
	if i > 0 {
		n, err := strconv.Atoi(s[:i])
		if err != nil || n > maxRepeat {
			return f, fmt.Errorf("%w: repeat count in %q", ErrUnknownFormat, s)
		}
		f.Repeat = n
	}
	if i >= len(s) {
		return f, fmt.Errorf("%w: %q has no type code", ErrUnknownFormat, s)
	}
	f.Code = s[i]
	if _, ok := elementWidth[f.Code]; !ok {
		return f, fmt.Errorf("%w: type code %q in %q", ErrUnknownFormat, f.Code, s)
	}
	f.Extra = s[i+1:]
	return f, nil
}

// ElementWidth is the size in bytes of a single element.
func (f TForm) ElementWidth() int {
	return elementWidth[f.Code]
}

// Width is the number of bytes the field occupies in a row.
func (f TForm) Width() int {
	if f.Code == 'X' {
		return (f.Repeat + 7) / 8
	}
	return f.Repeat * f.ElementWidth()
}

// Descriptor points at a variable-length array in the heap (P and Q
// columns).
type Descriptor struct {
	Count  int64
	Offset int64
}

// DecodeBinaryField decodes one field. raw must hold exactly f.Width()
// bytes. A repeat count of 1 yields a scalar and larger counts a slice:
//
//	L  bool        B  uint8       I  int16      J  int32
//	K  int64       E  float32     D  float64    C  complex64
//	M  complex128  P,Q Descriptor
//
// A fields always decode to a string with trailing blanks and NULs
// removed. X fields decode to a byte when they hold at most 8 bits and to
// a []byte of packed bits otherwise. A repeat count of 0 yields nil.
func DecodeBinaryField(f TForm, raw []byte) (any, error) {
	if _, ok := elementWidth[f.Code]; !ok {
		return nil, fmt.Errorf("%w: type code %q", ErrUnknownFormat, f.Code)
	}
	if f.Repeat < 0 || f.Repeat > maxRepeat {
		return nil, fmt.Errorf("%w: repeat count %d", ErrShapeMismatch, f.Repeat)
	}
	if len(raw) != f.Width() {
		return nil, fmt.Errorf("%w: %d bytes for %d%c", ErrShapeMismatch, len(raw), f.Repeat, f.Code)
	}
	if f.Repeat == 0 {
		return nil, nil
	}

	be := binary.BigEndian
	n := f.Repeat

	switch f.Code {
	case 'A':
		return strings.TrimRight(string(raw), " \x00"), nil
	case 'X':
		if len(raw) == 1 {
			return raw[0], nil
		}
		return append([]byte(nil), raw...), nil
	case 'L':
		return decodeN(raw, 1, n, func(b []byte) bool { return logical(b[0]) }), nil
	case 'B':
		return decodeN(raw, 1, n, func(b []byte) uint8 { return b[0] }), nil
	case 'I':
		return decodeN(raw, 2, n, func(b []byte) int16 { return int16(be.Uint16(b)) }), nil
	case 'J':
		return decodeN(raw, 4, n, func(b []byte) int32 { return int32(be.Uint32(b)) }), nil
	case 'K':
		return decodeN(raw, 8, n, func(b []byte) int64 { return int64(be.Uint64(b)) }), nil
	case 'E':
		return decodeN(raw, 4, n, func(b []byte) float32 { return math.Float32frombits(be.Uint32(b)) }), nil
	case 'D':
		return decodeN(raw, 8, n, func(b []byte) float64 { return math.Float64frombits(be.Uint64(b)) }), nil
	case 'C':
		return decodeN(raw, 8, n, func(b []byte) complex64 {
			return complex(math.Float32frombits(be.Uint32(b)), math.Float32frombits(be.Uint32(b[4:])))
		}), nil
	case 'M':
		return decodeN(raw, 16, n, func(b []byte) complex128 {
			return complex(math.Float64frombits(be.Uint64(b)), math.Float64frombits(be.Uint64(b[8:])))
		}), nil
	case 'P':
		return decodeN(raw, 8, n, func(b []byte) Descriptor {
			return Descriptor{Count: int64(int32(be.Uint32(b))), Offset: int64(int32(be.Uint32(b[4:])))}
		}), nil
	case 'Q':
		return decodeN(raw, 16, n, func(b []byte) Descriptor {
			return Descriptor{Count: int64(be.Uint64(b)), Offset: int64(be.Uint64(b[8:]))}
		}), nil
	}
	return nil, fmt.Errorf("%w: type code %q", ErrUnknownFormat, f.Code)
}

// logical reads an L element: 'T' is true, 'F' and NUL are false. Any other
// non-zero byte is treated as true.
func logical(b byte) bool {
	switch b {
	case 'T':
		return true
	case 'F', 0:
		return false
	}
	return true
}

func decodeN[T any](raw []byte, width, n int, read func([]byte) T) any {
	if n == 1 {
		return read(raw[:width])
	}
	out := make([]T, n)
	for i := range out {
		out[i] = read(raw[i*width : (i+1)*width])
	}
	return out
}

// BinaryTable is the payload of a BINTABLE extension.
type BinaryTable struct {
	blocks []Block
	Layout

	Tfields int
	Tformn  []string
	Forms   []TForm
	Columns []Column
	// Theap is the byte offset of the heap from the start of the data.
	Theap int
}

func (*BinaryTable) isData() {}

func (t *BinaryTable) Blocks() []Block { return t.blocks }

func newBinaryTable(blocks []Block, h *Header) (*BinaryTable, error) {
	l, tformn, columns, err := readTableLayout(blocks, h)
	if err != nil {
		return nil, err
	}

	forms := make([]TForm, len(tformn))
	width := 0
	for i, s := range tformn {
		f, err := ParseTForm(s)
		if err != nil {
			return nil, &KeywordError{Keyword: fmt.Sprintf("TFORM%d", i+1), Value: s, Err: err}
		}
		forms[i] = f
		// Each width is at most maxRepeat*16, so a wrapped sum turns negative.
		if width += f.Width(); width < 0 || width > l.Naxisn[0] {
			break
		}
	}
	if width != l.Naxisn[0] {
		return nil, &KeywordError{Keyword: "NAXIS1", Value: fmt.Sprint(l.Naxisn[0]),
			Err: fmt.Errorf("%w: fields span %d bytes", ErrShapeMismatch, width)}
	}

	theap, err := h.IntOr("THEAP", l.Naxisn[0]*l.Naxisn[1])
	if err != nil {
		return nil, err
	}
	if theap < 0 {
		return nil, &KeywordError{Keyword: "THEAP", Value: fmt.Sprint(theap), Err: ErrInvalidKeyword}
	}

	return &BinaryTable{
		blocks:  blocks,
		Layout:  l,
		Tfields: len(tformn),
		Tformn:  tformn,
		Forms:   forms,
		Columns: columns,
		Theap:   theap,
	}, nil
}

// RowWidth is NAXIS1, the number of bytes in a row.
func (t *BinaryTable) RowWidth() int { return t.Naxisn[0] }

// NumRows is NAXIS2.
func (t *BinaryTable) NumRows() int { return t.Naxisn[1] }

// DecodeRow decodes one row of RowWidth bytes, advancing through the row by
// each field's width.
func (t *BinaryTable) DecodeRow(row []byte) ([]any, error) {
	return t.decodeRow(-1, row)
}

func (t *BinaryTable) decodeRow(index int, row []byte) ([]any, error) {
	if len(row) != t.RowWidth() {
		return nil, fmt.Errorf("%w: row of %d bytes, NAXIS1 = %d", ErrShapeMismatch, len(row), t.RowWidth())
	}
	out := make([]any, t.Tfields)
	cursor := 0
	for i, f := range t.Forms {
		w := f.Width()
		v, err := DecodeBinaryField(f, row[cursor:cursor+w])
		if err != nil {
			return nil, &FieldError{Row: index, Column: i, Format: t.Tformn[i], Err: err}
		}
		out[i] = v
		cursor += w
	}
	return out, nil
}

func (t *BinaryTable) raw() ([]byte, error) {
	data, err := t.data(t.blocks)
	if err != nil {
		return nil, err
	}
	return data[:t.RowWidth()*t.NumRows()], nil
}

// Row decodes row i (zero-based).
func (t *BinaryTable) Row(i int) ([]any, error) {
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
func (t *BinaryTable) FormatData() (*Matrix2D[any], error) {
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

// Heap returns the bytes from THEAP to the end of the data area.
func (t *BinaryTable) Heap() ([]byte, error) {
	data, err := t.data(t.blocks)
	if err != nil {
		return nil, err
	}
	if t.Theap > len(data) {
		return nil, fmt.Errorf("%w: THEAP %d beyond data end %d", ErrOutOfRange, t.Theap, len(data))
	}
	return data[t.Theap:], nil
}

// HeapArray decodes the variable-length array d points at. column is the
// zero-based index of the P or Q column d was read from.
func (t *BinaryTable) HeapArray(column int, d Descriptor) (any, error) {
	if column < 0 || column >= t.Tfields {
		return nil, fmt.Errorf("%w: column %d of %d", ErrOutOfRange, column, t.Tfields)
	}
	f := t.Forms[column]
	if f.Code != 'P' && f.Code != 'Q' {
		return nil, fmt.Errorf("%w: column %d is %c, not a heap descriptor", ErrUnknownFormat, column+1, f.Code)
	}
	if f.Extra == "" {
		return nil, fmt.Errorf("%w: %q has no element type", ErrUnknownFormat, t.Tformn[column])
	}

	code := f.Extra[0]
	if _, ok := elementWidth[code]; !ok || code == 'P' || code == 'Q' {
		return nil, fmt.Errorf("%w: heap element type %q", ErrUnknownFormat, code)
	}

	heap, err := t.Heap()
	if err != nil {
		return nil, err
	}
	span, ok := heapSpan(code, d.Count)
	size := int64(len(heap))
	if !ok || d.Offset < 0 || d.Offset > size || span > size-d.Offset {
		return nil, fmt.Errorf("%w: descriptor %+v beyond heap of %d bytes", ErrOutOfRange, d, len(heap))
	}
	// span fits in the heap, so the count fits in an int.
	elem := TForm{Repeat: int(d.Count), Code: code}
	return DecodeBinaryField(elem, heap[d.Offset:d.Offset+span])
}

// heapSpan is the number of heap bytes count elements of code occupy.
func heapSpan(code byte, count int64) (int64, bool) {
	if count < 0 {
		return 0, false
	}
	if code == 'X' {
		return count/8 + min(count%8, 1), true
	}
	return mulInt64(count, int64(elementWidth[code]))
}
