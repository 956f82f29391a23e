package fits

import (
	"bytes"
	"fmt"
)

// The following decoder is based on the FITS standard
// version 4.0

// FITS 4.0 §3.1: Each FITS structure shall consist of an integral number of
// FITS blocks, which are each 2880 bytes (23040 bits) in length.
const BlockSize = 2880

// FITS 4.0 §3.3.1: Each 2880-byte header block contains 36 keyword records
// of 80 characters.
const (
	CardSize      = 80
	CardsPerBlock = BlockSize / CardSize
)

// Block is one 2880-byte FITS block.
type Block [BlockSize]byte

var (
	simpleMarker   = []byte("SIMPLE  ")
	xtensionMarker = []byte("XTENSION")
	endMarker      = []byte("END     ")
)

// isHeaderStart reports whether b opens a new HDU. SIMPLE must be followed by
// exactly two spaces to keep random data from matching.
func isHeaderStart(b *Block) bool {
	return bytes.Equal(b[0:8], simpleMarker) || bytes.Equal(b[0:8], xtensionMarker)
}

// hasEnd reports whether any card slot in b is the END card.
func hasEnd(b *Block) bool {
	for i := 0; i < CardsPerBlock; i++ {
		if bytes.Equal(b[i*CardSize:i*CardSize+8], endMarker) {
			return true
		}
	}
	return false
}

// Blocks splits buf into 2880-byte blocks. The buffer length must be a
// positive multiple of BlockSize.
func Blocks(buf []byte) ([]Block, error) {
	if len(buf) == 0 {
		return nil, ErrEmpty
	}
	if len(buf)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrBlockSize, len(buf))
	}

	blocks := make([]Block, len(buf)/BlockSize)
	for i := range blocks {
		copy(blocks[i][:], buf[i*BlockSize:(i+1)*BlockSize])
	}
	return blocks, nil
}

// Scan groups the blocks of buf into HDUs. Headers are left unparsed and
// every payload is an *Empty holding the raw data blocks.
func Scan(buf []byte) ([]*HDU, error) {
	blocks, err := Blocks(buf)
	if err != nil {
		return nil, err
	}
	if !isHeaderStart(&blocks[0]) {
		return nil, ErrNoHeaderStart
	}

	var (
		hdus          []*HDU
		current       = newHDU(0)
		readingHeader = false
		data          = &Empty{}
	)
	current.Data = data

	for i := range blocks {
		b := &blocks[i]

		if isHeaderStart(b) {
			if readingHeader {
				return nil, fmt.Errorf("%w: hdu %d", ErrMissingEnd, current.Index)
			}
			readingHeader = true
			if !current.Header.IsEmpty() {
				hdus = append(hdus, current)
				current = newHDU(len(hdus))
				data = &Empty{}
				current.Data = data
			}
		}

		if readingHeader {
			current.Header.Append(*b)
			if hasEnd(b) {
				readingHeader = false
			}
		} else {
			data.Append(*b)
		}
	}

	if readingHeader {
		return nil, fmt.Errorf("%w: hdu %d", ErrMissingEnd, current.Index)
	}
	hdus = append(hdus, current)

	return hdus, nil
}
