package fits

// StringMode selects how quoted header string values are cleaned.
type StringMode int

const (
	// StringStandard strips the enclosing quotes and surrounding blanks,
	// keeps interior spaces and turns '' into '.
	StringStandard StringMode = iota
	// StringLegacy removes every quote and every whitespace character,
	// including spaces inside the string.
	StringLegacy
)

// Option configures Decode and Open.
type Option func(*options)

type options struct {
	stringMode StringMode
	parallel   int
	verbose    bool
	logf       func(format string, v ...interface{})
}

func defaultOptions() *options {
	return &options{
		stringMode: StringStandard,
		parallel:   1,
	}
}

func (o *options) log(format string, v ...interface{}) {
	if !o.verbose {
		return
	}
	if o.logf != nil {
		o.logf(format, v...)
		return
	}
	Logf(format, v...)
}

// WithStringMode sets how quoted string values are cleaned.
func WithStringMode(mode StringMode) Option {
	return func(o *options) {
		if mode == StringStandard || mode == StringLegacy {
			o.stringMode = mode
		}
	}
}

// WithParallel initializes up to n HDUs concurrently. Values below 1 are ignored.
func WithParallel(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.parallel = n
		}
	}
}

// WithVerbose enables per-HDU diagnostics through Logf.
func WithVerbose() Option {
	return func(o *options) {
		o.verbose = true
	}
}

// WithLogger routes verbose diagnostics to f instead of the package Logf.
// It implies WithVerbose.
func WithLogger(f func(format string, v ...interface{})) Option {
	return func(o *options) {
		o.logf = f
		o.verbose = f != nil
	}
}
