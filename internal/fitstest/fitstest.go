// Package fitstest builds small FITS files in memory for tests.
package fitstest

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	blockSize = 2880
	cardSize  = 80
)

// Card formats a value record: keyword in columns 1-8, "= " in 9-10 and the
// value (already in FITS notation) followed by an optional comment.
func Card(keyword, value, comment string) string {
	s := fmt.Sprintf("%-8s= %20s", keyword, value)
	if comment != "" {
		s += " / " + comment
	}
	return pad(s)
}

// Comment formats a commentary record such as COMMENT or HISTORY.
func Comment(keyword, text string) string {
	return pad(fmt.Sprintf("%-8s %s", keyword, text))
}

// Str quotes s as a FITS character string, padded to at least 8 characters.
func Str(s string) string {
	return "'" + fmt.Sprintf("%-8s", strings.ReplaceAll(s, "'", "''")) + "'"
}

// Int formats an integer value.
func Int(n int) string { return fmt.Sprint(n) }

func pad(s string) string {
	if len(s) > cardSize {
		return s[:cardSize]
	}
	return s + strings.Repeat(" ", cardSize-len(s))
}

// HDU is one header and its raw (unpadded) data.
type HDU struct {
	Cards []string
	Data  []byte
}

// Header concatenates cards, appends END and pads with blanks to whole
// blocks.
func Header(cards ...string) []byte {
	var buf bytes.Buffer
	for _, c := range cards {
		buf.WriteString(pad(c))
	}
	buf.WriteString(pad("END"))
	return Pad(buf.Bytes(), ' ')
}

// Pad extends b with fill to a multiple of the block size.
func Pad(b []byte, fill byte) []byte {
	out := append([]byte(nil), b...)
	for len(out)%blockSize != 0 {
		out = append(out, fill)
	}
	return out
}

// File assembles HDUs into a complete file. Data areas are zero padded.
func File(hdus ...HDU) []byte {
	var buf bytes.Buffer
	for _, h := range hdus {
		buf.Write(Header(h.Cards...))
		buf.Write(Pad(h.Data, 0))
	}
	return buf.Bytes()
}

// Primary returns the mandatory cards of a primary header.
func Primary(bitpix int, naxisn ...int) []string {
	cards := []string{
		Card("SIMPLE", "T", "conforms to FITS standard"),
		Card("BITPIX", Int(bitpix), ""),
		Card("NAXIS", Int(len(naxisn)), ""),
	}
	for i, n := range naxisn {
		cards = append(cards, Card(fmt.Sprintf("NAXIS%d", i+1), Int(n), ""))
	}
	return cards
}

// Extension returns the mandatory cards of an extension header.
func Extension(xtension string, bitpix int, pcount, gcount int, naxisn ...int) []string {
	cards := []string{
		Card("XTENSION", Str(xtension), ""),
		Card("BITPIX", Int(bitpix), ""),
		Card("NAXIS", Int(len(naxisn)), ""),
	}
	for i, n := range naxisn {
		cards = append(cards, Card(fmt.Sprintf("NAXIS%d", i+1), Int(n), ""))
	}
	return append(cards,
		Card("PCOUNT", Int(pcount), ""),
		Card("GCOUNT", Int(gcount), ""),
	)
}
