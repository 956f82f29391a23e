package fits

import (
	"fmt"
	"math"
	"strings"
)

// Data is the payload of an HDU. The set of implementations is closed:
// *Empty, *ArrayData, *ASCIITable and *BinaryTable.
type Data interface {
	// Blocks returns the raw data blocks, padding included.
	Blocks() []Block
	isData()
}

// Empty is the payload of an HDU whose header has not been classified yet.
type Empty struct {
	blocks []Block
}

func (*Empty) isData() {}

// Append adds a raw data block. Only unclassified payloads grow.
func (e *Empty) Append(b Block) {
	e.blocks = append(e.blocks, b)
}

func (e *Empty) Blocks() []Block { return e.blocks }

// Layout is the numeric metadata shared by every classified payload.
type Layout struct {
	Bitpix int
	Naxis  int
	// Naxisn holds NAXIS1..NAXISn in header order; NAXIS1 varies fastest
	// in the byte stream.
	Naxisn []int
	Pcount int
	Gcount int
}

// mulInt64 multiplies two non-negative values, reporting false on overflow
// or negative input.
func mulInt64(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt64/b {
		return 0, false
	}
	return a * b, true
}

// elements is the product of the axis lengths, or 0 when there are no axes.
// ok is false when the product does not fit in an int64.
func (l Layout) elements() (n int64, ok bool) {
	if len(l.Naxisn) == 0 {
		return 0, true
	}
	n = 1
	for _, v := range l.Naxisn {
		if n, ok = mulInt64(n, int64(v)); !ok {
			return 0, false
		}
	}
	return n, true
}

// NBits is the size of the payload in bits:
// |BITPIX| * GCOUNT * (PCOUNT + NAXIS1 * ... * NAXISn).
// It is -1 when a count is negative or the size does not fit in an int64;
// FromHeader rejects such layouts.
func (l Layout) NBits() int64 {
	bitpix := int64(l.Bitpix)
	if bitpix < 0 {
		bitpix = -bitpix
	}
	e, ok := l.elements()
	if !ok || l.Pcount < 0 || int64(l.Pcount) > math.MaxInt64-e {
		return -1
	}
	g, ok := mulInt64(bitpix, int64(l.Gcount))
	if !ok {
		return -1
	}
	bits, ok := mulInt64(g, int64(l.Pcount)+e)
	if !ok {
		return -1
	}
	return bits
}

// NBytes is NBits expressed in bytes, or -1 when NBits is.
func (l Layout) NBytes() int64 {
	bits := l.NBits()
	if bits < 0 {
		return -1
	}
	return bits / 8
}

// data returns the NBytes bytes of the data area. Every payload decoder
// reads through it, so the header-declared size bounds all decoding.
func (l Layout) data(blocks []Block) ([]byte, error) {
	n := l.NBytes()
	if n < 0 {
		return nil, fmt.Errorf("%w: data size overflows", ErrInvalidKeyword)
	}
	return payload(blocks, n)
}

// blocksFor is the number of blocks needed to hold n bytes.
func blocksFor(n int64) int64 {
	b := n / BlockSize
	if n%BlockSize != 0 {
		b++
	}
	return b
}

// payload returns the first n bytes of blocks.
func payload(blocks []Block, n int64) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrOutOfRange, n)
	}
	have := int64(len(blocks)) * BlockSize
	if n > have {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, have)
	}
	out := make([]byte, 0, n)
	for i := range blocks {
		if int64(len(out)) >= n {
			break
		}
		rest := n - int64(len(out))
		if rest >= BlockSize {
			out = append(out, blocks[i][:]...)
		} else {
			out = append(out, blocks[i][:rest]...)
		}
	}
	return out, nil
}

// Column describes one table field.
type Column struct {
	Name   string // TTYPEn, empty when absent
	Format string // TFORMn
	Unit   string // TUNITn, empty when absent
}

// FromHeader builds the payload matching h's type from the raw data blocks.
// h must be initialized. A missing or malformed mandatory keyword is
// returned as a *KeywordError.
func FromHeader(blocks []Block, h *Header) (Data, error) {
	t, err := h.Type()
	if err != nil {
		return nil, err
	}

	var d Data
	switch t {
	case TypePrimary, TypeImage:
		d, err = newArrayData(blocks, h, t == TypeImage)
	case TypeASCIITable:
		d, err = newASCIITable(blocks, h)
	case TypeBinaryTable:
		d, err = newBinaryTable(blocks, h)
	default:
		return nil, fmt.Errorf("fits: no payload for header type %v", t)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// readLayout reads the size keywords and checks that blocks is no longer
// than the data area they declare.
func readLayout(blocks []Block, h *Header, extension bool) (Layout, error) {
	var (
		l   Layout
		err error
	)

	if l.Bitpix, err = h.Int("BITPIX"); err != nil {
		return l, err
	}
	if _, err := PrecisionFromBitpix(l.Bitpix); err != nil {
		return l, &KeywordError{Keyword: "BITPIX", Value: fmt.Sprint(l.Bitpix), Err: err}
	}

	// FITS 4.0 §4.4.1.1: NAXIS is a non-negative integer no greater
	// than 999.
	if l.Naxis, err = h.Int("NAXIS"); err != nil {
		return l, err
	}
	if l.Naxis < 0 || l.Naxis > 999 {
		return l, &KeywordError{Keyword: "NAXIS", Value: fmt.Sprint(l.Naxis), Err: ErrInvalidKeyword}
	}

	l.Naxisn = make([]int, l.Naxis)
	for i := range l.Naxisn {
		key := fmt.Sprintf("NAXIS%d", i+1)
		n, err := h.Int(key)
		if err != nil {
			return l, err
		}
		if n < 0 {
			return l, &KeywordError{Keyword: key, Value: fmt.Sprint(n), Err: ErrInvalidKeyword}
		}
		l.Naxisn[i] = n
	}

	l.Pcount, l.Gcount = 0, 1
	if extension {
		if l.Pcount, err = h.Int("PCOUNT"); err != nil {
			return l, err
		}
		if l.Gcount, err = h.Int("GCOUNT"); err != nil {
			return l, err
		}
		if l.Pcount < 0 {
			return l, &KeywordError{Keyword: "PCOUNT", Value: fmt.Sprint(l.Pcount), Err: ErrInvalidKeyword}
		}
		if l.Gcount < 0 {
			return l, &KeywordError{Keyword: "GCOUNT", Value: fmt.Sprint(l.Gcount), Err: ErrInvalidKeyword}
		}
	}

	n := l.NBytes()
	if n < 0 {
		return l, &KeywordError{Keyword: "NAXIS", Value: fmt.Sprint(l.Naxis),
			Err: fmt.Errorf("%w: data size overflows int64", ErrInvalidKeyword)}
	}
	if int64(len(blocks)) > blocksFor(n) {
		return l, fmt.Errorf("%w: %d data blocks, header declares %d bytes", ErrShapeMismatch, len(blocks), n)
	}
	return l, nil
}

// requireCount checks that keyword, already read into got, holds want.
func requireCount(keyword string, got, want int) error {
	if got != want {
		return &KeywordError{Keyword: keyword, Value: fmt.Sprint(got),
			Err: fmt.Errorf("%w: must be %d", ErrInvalidKeyword, want)}
	}
	return nil
}

// readTableLayout reads the keywords every table extension carries.
func readTableLayout(blocks []Block, h *Header) (Layout, []string, []Column, error) {
	l, err := readLayout(blocks, h, true)
	if err != nil {
		return l, nil, nil, err
	}
	if l.Naxis != 2 {
		return l, nil, nil, &KeywordError{Keyword: "NAXIS", Value: fmt.Sprint(l.Naxis), Err: ErrInvalidKeyword}
	}
	// FITS 4.0 §7.2.1, §7.3.1: tables are a single group of bytes.
	if err := requireCount("BITPIX", l.Bitpix, 8); err != nil {
		return l, nil, nil, err
	}
	if err := requireCount("GCOUNT", l.Gcount, 1); err != nil {
		return l, nil, nil, err
	}

	tfields, err := h.Int("TFIELDS")
	if err != nil {
		return l, nil, nil, err
	}
	if tfields < 0 || tfields > 999 {
		return l, nil, nil, &KeywordError{Keyword: "TFIELDS", Value: fmt.Sprint(tfields), Err: ErrInvalidKeyword}
	}

	tformn := make([]string, tfields)
	columns := make([]Column, tfields)
	for i := range tformn {
		form, err := h.String(fmt.Sprintf("TFORM%d", i+1))
		if err != nil {
			return l, nil, nil, err
		}
		tformn[i] = strings.TrimSpace(form)

		name, _ := h.Keyword(fmt.Sprintf("TTYPE%d", i+1))
		unit, _ := h.Keyword(fmt.Sprintf("TUNIT%d", i+1))
		columns[i] = Column{Name: name, Format: tformn[i], Unit: unit}
	}
	return l, tformn, columns, nil
}
