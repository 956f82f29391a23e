package fits

import (
	"errors"
	"fmt"
)

// Format errors. These abort decoding of the HDU (and the file) they occur in.
var (
	ErrEmpty              = errors.New("fits: empty buffer")
	ErrBlockSize          = errors.New("fits: buffer length is not a multiple of 2880")
	ErrNoHeaderStart      = errors.New("fits: first block is not a SIMPLE or XTENSION header")
	ErrMissingEnd         = errors.New("fits: header has no END card")
	ErrNotInitialized     = errors.New("fits: header not initialized")
	ErrAlreadyInitialized = errors.New("fits: header already initialized")
	ErrUnclassified       = errors.New("fits: header has neither SIMPLE nor XTENSION")
	ErrUnknownExtension   = errors.New("fits: unsupported XTENSION")
	ErrInvalidKeyword     = errors.New("fits: invalid keyword value")
	ErrUnsupportedBitpix  = errors.New("fits: unsupported BITPIX")
	ErrMisaligned         = errors.New("fits: byte count is not a multiple of the element width")
	ErrShapeMismatch      = errors.New("fits: length does not match shape")
	ErrTruncated          = errors.New("fits: data shorter than header declares")
	ErrOutOfRange         = errors.New("fits: index out of range")
	ErrUnknownFormat      = errors.New("fits: unknown field format")
	ErrFieldParse         = errors.New("fits: cannot parse field")
)

// ErrKeywordNotFound is a lookup miss. It is only fatal when the keyword is
// mandatory for the HDU type being built.
var ErrKeywordNotFound = errors.New("fits: keyword not found")

// KeywordError reports a missing or malformed header keyword.
type KeywordError struct {
	Keyword string
	Value   string
	Err     error
}

func (e *KeywordError) Error() string {
	if errors.Is(e.Err, ErrKeywordNotFound) {
		return fmt.Sprintf("fits: keyword %s not found", e.Keyword)
	}
	return fmt.Sprintf("fits: keyword %s = %q: %v", e.Keyword, e.Value, e.Err)
}

func (e *KeywordError) Unwrap() error { return e.Err }

// FieldError reports a table field that could not be decoded.
type FieldError struct {
	Row    int // -1 when decoding a detached row
	Column int // zero-based
	Format string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("fits: row %d column %d (%s): %v", e.Row, e.Column+1, e.Format, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// DecodeError ties an error to the HDU and stage that produced it.
type DecodeError struct {
	HDU int
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("fits: hdu %d: %s: %v", e.HDU, e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
