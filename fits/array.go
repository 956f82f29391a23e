package fits

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Precision is the element type selected by BITPIX.
type Precision int

const (
	Uint8 Precision = iota
	Int16
	Int32
	Int64
	Float32
	Float64
)

// PrecisionFromBitpix maps a BITPIX value to its element type.
func PrecisionFromBitpix(bitpix int) (Precision, error) {
	switch bitpix {
	case 8:
		return Uint8, nil
	case 16:
		return Int16, nil
	case 32:
		return Int32, nil
	case 64:
		return Int64, nil
	case -32:
		return Float32, nil
	case -64:
		return Float64, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedBitpix, bitpix)
}

// Width is the element size in bytes.
func (p Precision) Width() int {
	switch p {
	case Uint8:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	}
	return 0
}

func (p Precision) String() string {
	switch p {
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return fmt.Sprintf("Precision(%d)", int(p))
}

// Number is the set of element types an NDArray can hold.
type Number interface {
	uint8 | int16 | int32 | int64 | float32 | float64
}

// Array is a decoded N-dimensional array. Its dynamic type is one of
// *NDArray[uint8], *NDArray[int16], *NDArray[int32], *NDArray[int64],
// *NDArray[float32] or *NDArray[float64].
type Array interface {
	Precision() Precision
	// Shape lists the axis lengths outermost first, so the last entry is
	// NAXIS1.
	Shape() []int
	Len() int
	// Float64 returns the i-th element in storage order.
	Float64(i int) float64
	At(idx ...int) (float64, error)
	Float64s() []float64
	reshape(shape []int) error
}

// NDArray is a row-major array of T.
type NDArray[T Number] struct {
	precision Precision
	shape     []int
	data      []T
}

func newNDArray[T Number](p Precision, data []T) *NDArray[T] {
	return &NDArray[T]{precision: p, shape: []int{len(data)}, data: data}
}

func (a *NDArray[T]) Precision() Precision { return a.precision }

func (a *NDArray[T]) Shape() []int {
	out := make([]int, len(a.shape))
	copy(out, a.shape)
	return out
}

func (a *NDArray[T]) Len() int { return len(a.data) }

// Values returns the elements in storage order.
func (a *NDArray[T]) Values() []T { return a.data }

func (a *NDArray[T]) Float64(i int) float64 { return float64(a.data[i]) }

func (a *NDArray[T]) Float64s() []float64 {
	out := make([]float64, len(a.data))
	for i, v := range a.data {
		out[i] = float64(v)
	}
	return out
}

// Offset converts a multi-dimensional index, outermost axis first, into a
// storage offset.
func (a *NDArray[T]) Offset(idx ...int) (int, error) {
	if len(idx) != len(a.shape) {
		return 0, fmt.Errorf("%w: %d indices for %d axes", ErrOutOfRange, len(idx), len(a.shape))
	}
	off := 0
	for axis, i := range idx {
		if i < 0 || i >= a.shape[axis] {
			return 0, fmt.Errorf("%w: index %d on axis %d of length %d", ErrOutOfRange, i, axis, a.shape[axis])
		}
		off = off*a.shape[axis] + i
	}
	return off, nil
}

// Index returns the element at idx, outermost axis first.
func (a *NDArray[T]) Index(idx ...int) (T, error) {
	off, err := a.Offset(idx...)
	if err != nil {
		var zero T
		return zero, err
	}
	return a.data[off], nil
}

func (a *NDArray[T]) At(idx ...int) (float64, error) {
	v, err := a.Index(idx...)
	return float64(v), err
}

func (a *NDArray[T]) reshape(shape []int) error {
	n := 1
	for _, s := range shape {
		n *= s
	}
	if len(shape) == 0 {
		n = 0
	}
	if n != len(a.data) {
		return fmt.Errorf("%w: %d elements for shape %v", ErrShapeMismatch, len(a.data), shape)
	}
	a.shape = append([]int(nil), shape...)
	return nil
}

// Reshape gives a a new shape, outermost axis first. The element count must
// not change.
func Reshape(a Array, shape []int) error {
	return a.reshape(shape)
}

// DecodeValues decodes big-endian raw bytes into a one-dimensional array of
// the precision selected by bitpix.
func DecodeValues(raw []byte, bitpix int) (Array, error) {
	p, err := PrecisionFromBitpix(bitpix)
	if err != nil {
		return nil, err
	}
	w := p.Width()
	if len(raw)%w != 0 {
		return nil, fmt.Errorf("%w: %d bytes, width %d", ErrMisaligned, len(raw), w)
	}
	n := len(raw) / w
	be := binary.BigEndian

	switch p {
	case Uint8:
		out := make([]uint8, n)
		copy(out, raw)
		return newNDArray(p, out), nil
	case Int16:
		out := make([]int16, n)
		for i := range out {
			out[i] = int16(be.Uint16(raw[i*2:]))
		}
		return newNDArray(p, out), nil
	case Int32:
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(be.Uint32(raw[i*4:]))
		}
		return newNDArray(p, out), nil
	case Int64:
		out := make([]int64, n)
		for i := range out {
			out[i] = int64(be.Uint64(raw[i*8:]))
		}
		return newNDArray(p, out), nil
	case Float32:
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(be.Uint32(raw[i*4:]))
		}
		return newNDArray(p, out), nil
	case Float64:
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(be.Uint64(raw[i*8:]))
		}
		return newNDArray(p, out), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitpix, bitpix)
}

// ArrayData is the payload of primary and IMAGE HDUs.
type ArrayData struct {
	blocks []Block
	Layout

	// FITS 4.0 §4.4.2.5: physical = BZERO + BSCALE * array value.
	// BLANK marks undefined integer values.
	Bscale float64
	Bzero  float64
	Blank  *int64
}

func (*ArrayData) isData() {}

func (a *ArrayData) Blocks() []Block { return a.blocks }

func newArrayData(blocks []Block, h *Header, extension bool) (*ArrayData, error) {
	l, err := readLayout(blocks, h, extension)
	if err != nil {
		return nil, err
	}
	// FITS 4.0 §7.1.1: an IMAGE extension has PCOUNT = 0 and GCOUNT = 1.
	if extension {
		if err := requireCount("PCOUNT", l.Pcount, 0); err != nil {
			return nil, err
		}
		if err := requireCount("GCOUNT", l.Gcount, 1); err != nil {
			return nil, err
		}
	}
	a := &ArrayData{blocks: blocks, Layout: l}

	if a.Bscale, err = h.FloatOr("BSCALE", 1); err != nil {
		return nil, err
	}
	if a.Bzero, err = h.FloatOr("BZERO", 0); err != nil {
		return nil, err
	}
	if _, ok := h.Keyword("BLANK"); ok {
		blank, err := h.Int("BLANK")
		if err != nil {
			return nil, err
		}
		b := int64(blank)
		a.Blank = &b
	}
	return a, nil
}

// Shape lists the axis lengths outermost first (NAXISn ... NAXIS1).
func (a *ArrayData) Shape() []int {
	shape := make([]int, len(a.Naxisn))
	for i, n := range a.Naxisn {
		shape[len(shape)-1-i] = n
	}
	return shape
}

// FormatData decodes the payload into an array shaped by NAXISn. Values
// are returned as stored; see Physical for scaled values.
func (a *ArrayData) FormatData() (Array, error) {
	raw, err := a.data(a.blocks)
	if err != nil {
		return nil, err
	}
	arr, err := DecodeValues(raw, a.Bitpix)
	if err != nil {
		return nil, err
	}
	if len(a.Naxisn) == 0 {
		return arr, nil
	}
	if err := arr.reshape(a.Shape()); err != nil {
		return nil, err
	}
	return arr, nil
}

// Physical decodes the payload and applies BSCALE and BZERO. Integer
// elements equal to BLANK become NaN.
func (a *ArrayData) Physical() ([]float64, error) {
	arr, err := a.FormatData()
	if err != nil {
		return nil, err
	}
	integer := arr.Precision() != Float32 && arr.Precision() != Float64

	out := make([]float64, arr.Len())
	for i := range out {
		v := arr.Float64(i)
		if integer && a.Blank != nil && v == float64(*a.Blank) {
			out[i] = math.NaN()
			continue
		}
		out[i] = a.Bzero + a.Bscale*v
	}
	return out, nil
}
