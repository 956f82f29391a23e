// Command fitsgo prints the structure of a FITS file and optionally renders
// an image plane.
package main

import (
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"strings"

	"github.com/noamichael/fitsgo/fits"
	"github.com/noamichael/fitsgo/internal/preview"
)

// Config holds the command line settings.
type Config struct {
	Path          string
	HDU           int // -1 for every HDU
	Keywords      bool
	Raw           bool
	Rows          int
	Plane         int
	JPEG          string
	HeatMap       string
	LegacyStrings bool
	Parallel      int
	Verbose       bool
}

func parseFlags(args []string) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("fitsgo", flag.ContinueOnError)
	fs.IntVar(&cfg.HDU, "hdu", -1, "only describe this HDU (zero-based)")
	fs.BoolVar(&cfg.Keywords, "keywords", false, "list header keywords")
	fs.BoolVar(&cfg.Raw, "raw", false, "print raw 80-column header records")
	fs.IntVar(&cfg.Rows, "rows", 5, "table rows to print")
	fs.IntVar(&cfg.Plane, "plane", 0, "image plane to render")
	fs.StringVar(&cfg.JPEG, "jpeg", "", "write the image plane of -hdu as JPEG")
	fs.StringVar(&cfg.HeatMap, "heatmap", "", "write the image plane of -hdu as a heat map (png, svg, pdf)")
	fs.BoolVar(&cfg.LegacyStrings, "legacy-strings", false, "strip all whitespace from quoted header strings")
	fs.IntVar(&cfg.Parallel, "parallel", 1, "HDUs to parse concurrently")
	fs.BoolVar(&cfg.Verbose, "v", false, "log decoding progress")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("usage: fitsgo [flags] <file.fits>")
	}
	cfg.Path = fs.Arg(0)
	if (cfg.JPEG != "" || cfg.HeatMap != "") && cfg.HDU < 0 {
		cfg.HDU = 0
	}
	return cfg, nil
}

func (cfg *Config) options() []fits.Option {
	opts := []fits.Option{fits.WithParallel(cfg.Parallel)}
	if cfg.LegacyStrings {
		opts = append(opts, fits.WithStringMode(fits.StringLegacy))
	}
	if cfg.Verbose {
		opts = append(opts, fits.WithVerbose())
	}
	return opts
}

func run(cfg *Config, w io.Writer) error {
	f, err := fits.Open(cfg.Path, cfg.options()...)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: %d bytes, %d HDUs (%s)\n", cfg.Path, f.Size(), len(f.HDUs), strings.Join(f.ListHeaders(), ", "))

	for _, hdu := range f.HDUs {
		if cfg.HDU >= 0 && hdu.Index != cfg.HDU {
			continue
		}
		if err := describe(cfg, w, hdu); err != nil {
			return err
		}
	}

	if cfg.JPEG == "" && cfg.HeatMap == "" {
		return nil
	}
	hdu, err := f.HDU(cfg.HDU)
	if err != nil {
		return err
	}
	return render(cfg, w, hdu)
}

func describe(cfg *Config, w io.Writer, hdu *fits.HDU) error {
	kind := "Unclassified"
	if t, err := hdu.Type(); err == nil {
		kind = t.String()
	}
	fmt.Fprintf(w, "\nHDU %d: %s (%d header blocks, %d data blocks)\n", hdu.Index, kind, hdu.Header.Len(), len(hdu.Data.Blocks()))

	if cfg.Raw {
		fmt.Fprint(w, hdu.Header.Raw())
	}
	if cfg.Keywords {
		for _, kv := range hdu.Header.Keywords() {
			fmt.Fprintf(w, "  %-8s = %s\n", kv.Keyword, kv.Value)
		}
	}

	switch d := hdu.Data.(type) {
	case *fits.ArrayData:
		fmt.Fprintf(w, "  BITPIX %d, shape %v, %d bits\n", d.Bitpix, d.Shape(), d.NBits())
	case *fits.ASCIITable:
		fmt.Fprintf(w, "  %d rows x %d fields\n", d.NumRows(), d.Tfields)
		return printRows(w, d.Columns, d.NumRows(), cfg.Rows, d.Row)
	case *fits.BinaryTable:
		fmt.Fprintf(w, "  %d rows x %d fields, heap %d bytes\n", d.NumRows(), d.Tfields, d.Pcount)
		return printRows(w, d.Columns, d.NumRows(), cfg.Rows, d.Row)
	case *fits.Empty:
		fmt.Fprintf(w, "  unclassified payload\n")
	}
	return nil
}

func printRows(w io.Writer, columns []fits.Column, total, limit int, row func(int) ([]any, error)) error {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
		if names[i] == "" {
			names[i] = fmt.Sprintf("col%d", i+1)
		}
		names[i] += "(" + c.Format + ")"
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(names, " | "))

	for i := 0; i < total && i < limit; i++ {
		values, err := row(i)
		if err != nil {
			return err
		}
		cells := make([]string, len(values))
		for j, v := range values {
			cells[j] = fmt.Sprint(v)
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(cells, " | "))
	}
	return nil
}

func render(cfg *Config, w io.Writer, hdu *fits.HDU) error {
	arr, ok := hdu.Data.(*fits.ArrayData)
	if !ok {
		return fmt.Errorf("hdu %d is not an image", hdu.Index)
	}
	plane, err := arr.Plane(cfg.Plane)
	if err != nil {
		return err
	}

	if cfg.JPEG != "" {
		var img image.Image = preview.Grayscale(plane)
		if pattern, ok := hdu.Header.Keyword("BAYERPAT"); ok {
			if img, err = preview.Debayer(plane, pattern); err != nil {
				return err
			}
		}
		if err := preview.SaveJPEG(cfg.JPEG, img, 100); err != nil {
			return err
		}
		fmt.Fprintf(w, "wrote %s\n", cfg.JPEG)
	}

	if cfg.HeatMap != "" {
		title := fmt.Sprintf("%s HDU %d plane %d", cfg.Path, hdu.Index, cfg.Plane)
		if err := preview.SaveHeatMap(cfg.HeatMap, plane, title); err != nil {
			return err
		}
		fmt.Fprintf(w, "wrote %s\n", cfg.HeatMap)
	}
	return nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatal(err)
	}
	if err := run(cfg, os.Stdout); err != nil {
		log.Fatal(err)
	}
}
