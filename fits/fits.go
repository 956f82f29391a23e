// Package fits decodes FITS (Flexible Image Transport System) files held in
// memory.
//
// A file is a sequence of 2880-byte blocks grouped into Header/Data Units.
// Decode scans the blocks into HDUs, parses each header into a keyword
// dictionary, classifies it as a primary array, IMAGE, TABLE or BINTABLE
// extension, and attaches the matching payload. Payloads keep their raw
// blocks and are only decoded when FormatData is called.
package fits

import (
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
)

// HDU is one Header/Data Unit.
type HDU struct {
	// Index is the zero-based position of the HDU in the file.
	Index  int
	Header *Header
	Data   Data
}

func newHDU(index int) *HDU {
	return &HDU{Index: index, Header: NewHeader(), Data: &Empty{}}
}

// Type returns the structural kind of the HDU.
func (hdu *HDU) Type() (HeaderType, error) {
	return hdu.Header.Type()
}

// initialize parses the header and replaces the unclassified payload with
// the typed one.
func (hdu *HDU) initialize(mode StringMode) error {
	if err := hdu.Header.InitializeWith(mode); err != nil {
		return &DecodeError{HDU: hdu.Index, Op: "parse header", Err: err}
	}
	data, err := FromHeader(hdu.Data.Blocks(), hdu.Header)
	if err != nil {
		return &DecodeError{HDU: hdu.Index, Op: "build payload", Err: err}
	}
	hdu.Data = data
	return nil
}

// File is a decoded FITS file.
type File struct {
	HDUs []*HDU
	size int
}

// Decode decodes a complete FITS file held in buf. buf must be a positive
// multiple of 2880 bytes long and start with a SIMPLE or XTENSION header.
func Decode(buf []byte, opts ...Option) (*File, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	hdus, err := Scan(buf)
	if err != nil {
		return nil, err
	}
	o.log("fits: %d bytes, %d blocks, %d HDUs", len(buf), len(buf)/BlockSize, len(hdus))

	if o.parallel > 1 {
		var g errgroup.Group
		g.SetLimit(o.parallel)
		for _, hdu := range hdus {
			g.Go(func() error { return hdu.initialize(o.stringMode) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for _, hdu := range hdus {
			if err := hdu.initialize(o.stringMode); err != nil {
				return nil, err
			}
		}
	}

	for _, hdu := range hdus {
		t, err := hdu.Type()
		if err != nil {
			return nil, &DecodeError{HDU: hdu.Index, Op: "classify", Err: err}
		}
		o.log("fits: hdu %d: %v, %d header blocks, %d data blocks", hdu.Index, t, hdu.Header.Len(), len(hdu.Data.Blocks()))
	}

	return &File{HDUs: hdus, size: len(buf)}, nil
}

// Open reads the whole file at path and decodes it.
func Open(path string, opts ...Option) (*File, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fits: read %s: %w", path, err)
	}
	return Decode(buf, opts...)
}

// Size is the length in bytes of the decoded buffer.
func (f *File) Size() int { return f.size }

// Primary returns the first HDU.
func (f *File) Primary() *HDU {
	if len(f.HDUs) == 0 {
		return nil
	}
	return f.HDUs[0]
}

// HDU returns the i-th HDU.
func (f *File) HDU(i int) (*HDU, error) {
	if i < 0 || i >= len(f.HDUs) {
		return nil, fmt.Errorf("%w: hdu %d of %d", ErrOutOfRange, i, len(f.HDUs))
	}
	return f.HDUs[i], nil
}

// ListHeaders names the type of every HDU in file order.
func (f *File) ListHeaders() []string {
	out := make([]string, len(f.HDUs))
	for i, hdu := range f.HDUs {
		t, err := hdu.Type()
		if err != nil {
			out[i] = "Unclassified"
			continue
		}
		out[i] = t.String()
	}
	return out
}
