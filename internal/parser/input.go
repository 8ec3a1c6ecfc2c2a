package parser

import (
	"math"
	"strconv"
	"unsafe"

	"github.com/tatami-inc/eminem-sub000/internal/cursor"
	"github.com/tatami-inc/eminem-sub000/pkg/types"
)

// input wraps a ByteCursor with line tracking and a sticky source error.
type input struct {
	cur  cursor.ByteCursor
	line uint64 // 1-based line of the current byte
	err  error  // first error reported by the cursor

	token []byte // scratch space for real-valued tokens
}

func newInput(cur cursor.ByteCursor, line uint64) *input {
	return &input{cur: cur, line: line, token: make([]byte, 0, 32)}
}

func (in *input) valid() bool {
	return in.cur.Valid()
}

func (in *input) get() byte {
	return in.cur.Get()
}

// advance moves past the current byte, which must exist.
func (in *input) advance() bool {
	if in.cur.Get() == '\n' {
		in.line++
	}
	ok, err := in.cur.Advance()
	if err != nil && in.err == nil {
		in.err = err
	}
	return ok
}

// fail builds an error for the current line. A pending source error takes
// precedence, since the grammar failure is then only a symptom of it.
func (in *input) fail(kind types.ErrorKind, format string, args ...interface{}) error {
	return in.failAt(in.line, kind, format, args...)
}

func (in *input) failAt(line uint64, kind types.ErrorKind, format string, args ...interface{}) error {
	if in.err != nil {
		return in.ioError()
	}
	return types.NewParseError(kind, line, format, args...)
}

func (in *input) ioError() error {
	return &types.ParseError{Kind: types.KindIO, Line: in.line, Message: "failed to read input", Err: in.err}
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

// skipBlanks advances over spaces and tabs and reports whether a byte remains.
func (in *input) skipBlanks() bool {
	for in.valid() {
		if !isBlank(in.get()) {
			return true
		}
		in.advance()
	}
	return false
}

// skipLines advances over comment lines and empty lines, stopping at the first
// byte of a line with content (or at the end of input).
func (in *input) skipLines() {
	for in.valid() {
		switch in.get() {
		case '%':
			for {
				if !in.advance() {
					return
				}
				if in.get() == '\n' {
					in.advance()
					break
				}
			}
		case '\n':
			in.advance()
		default:
			return
		}
	}
}

// endField runs after a non-empty field token, with the cursor on the byte that
// ended it. When last is set the line must end here (end of input is
// tolerated); otherwise another field must follow on the same line.
func (in *input) endField(last bool, what string) error {
	if in.valid() && isBlank(in.get()) {
		in.skipBlanks()
	}

	if !in.valid() {
		if !last {
			return in.fail(types.KindGrammar, "unexpected end of file after the %s; expected more fields", what)
		}
		return nil
	}

	if in.get() == '\n' {
		if !last {
			return in.fail(types.KindGrammar, "unexpected newline after the %s; expected more fields", what)
		}
		in.advance()
		return nil
	}

	if last {
		return in.fail(types.KindGrammar, "more fields than expected after the %s", what)
	}
	return nil
}

// scanDigits accumulates a decimal magnitude, stopping at the first blank,
// newline or end of input.
func (in *input) scanDigits(what string) (uint64, error) {
	var value uint64
	digits := 0
	for in.valid() {
		c := in.get()
		if c == ' ' || c == '\t' || c == '\n' {
			break
		}
		if c < '0' || c > '9' {
			return 0, in.fail(types.KindGrammar, "unexpected character %q in the %s", c, what)
		}
		d := uint64(c - '0')
		if value > (maxUint64-d)/10 {
			return 0, in.fail(types.KindConversion, "%s does not fit in 64 bits", what)
		}
		value = value*10 + d
		digits++
		in.advance()
	}

	if digits == 0 {
		return 0, in.fail(types.KindGrammar, "empty %s", what)
	}
	return value, nil
}

const maxUint64 = ^uint64(0)

// scanUnsigned reads a non-negative integer field.
func (in *input) scanUnsigned(last bool, what string) (uint64, error) {
	value, err := in.scanDigits(what)
	if err != nil {
		return 0, err
	}
	if err := in.endField(last, what); err != nil {
		return 0, err
	}
	return value, nil
}

// scanSigned reads an integer field with an optional leading '-'.
func (in *input) scanSigned(last bool, what string) (int64, error) {
	negative := false
	if in.valid() && in.get() == '-' {
		negative = true
		in.advance()
	}

	magnitude, err := in.scanDigits(what)
	if err != nil {
		return 0, err
	}

	var value int64
	switch {
	case negative && magnitude <= 1<<63:
		value = int64(-magnitude) // two's complement covers math.MinInt64
	case !negative && magnitude < 1<<63:
		value = int64(magnitude)
	default:
		return 0, in.fail(types.KindConversion, "%s does not fit in a signed 64-bit integer", what)
	}

	if err := in.endField(last, what); err != nil {
		return 0, err
	}
	return value, nil
}

// scanToken collects the bytes up to the next blank, newline or end of input.
func (in *input) scanToken(what string) ([]byte, error) {
	in.token = in.token[:0]
	for in.valid() {
		c := in.get()
		if c == ' ' || c == '\t' || c == '\n' {
			break
		}
		in.token = append(in.token, c)
		in.advance()
	}
	if len(in.token) == 0 {
		return nil, in.fail(types.KindGrammar, "empty %s", what)
	}
	return in.token, nil
}

// scanFloat reads one floating-point token and converts it. The token must be
// consumed in full by the conversion.
func (in *input) scanFloat(bitSize int, what string) (float64, error) {
	line := in.line
	token, err := in.scanToken(what)
	if err != nil {
		return 0, err
	}
	value, ok := convertFloat(token, bitSize)
	if !ok {
		return 0, in.failAt(line, types.KindConversion, "failed to convert %q in the %s", string(token), what)
	}
	return value, nil
}

// scanReal reads a floating-point field.
func (in *input) scanReal(last bool, bitSize int) (float64, error) {
	value, err := in.scanFloat(bitSize, "real value")
	if err != nil {
		return 0, err
	}
	if err := in.endField(last, "real value"); err != nil {
		return 0, err
	}
	return value, nil
}

// scanComplex reads the real and imaginary parts of a complex value, separated
// by blanks.
func (in *input) scanComplex(last bool, bitSize int) (float64, float64, error) {
	re, err := in.scanFloat(bitSize, "real part")
	if err != nil {
		return 0, 0, err
	}

	if !in.valid() {
		return 0, 0, in.fail(types.KindGrammar, "unexpected end of file after the real part of a complex value")
	}
	if in.get() == '\n' {
		return 0, 0, in.fail(types.KindGrammar, "unexpected newline after the real part of a complex value")
	}
	if !in.skipBlanks() {
		return 0, 0, in.fail(types.KindGrammar, "missing imaginary part of a complex value before end of file")
	}
	if in.get() == '\n' {
		return 0, 0, in.fail(types.KindGrammar, "missing imaginary part of a complex value before newline")
	}

	im, err := in.scanFloat(bitSize, "imaginary part")
	if err != nil {
		return 0, 0, err
	}
	if err := in.endField(last, "imaginary part"); err != nil {
		return 0, 0, err
	}
	return re, im, nil
}

// convertFloat applies strconv.ParseFloat to the whole token. Out-of-range
// magnitudes saturate to ±Inf or zero rather than failing. Signed NaN literals
// are accepted as well.
func convertFloat(token []byte, bitSize int) (float64, bool) {
	// Zero-copy view of the scratch buffer. ParseFloat does not retain it on success.
	s := unsafe.String(unsafe.SliceData(token), len(token))
	value, err := strconv.ParseFloat(s, bitSize)
	if err == nil {
		return value, true
	}
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		return value, true
	}
	if len(token) == 4 && (token[0] == '-' || token[0] == '+') && equalFold(token[1:], "nan") {
		return nan(token[0] == '-'), true
	}
	return 0, false
}

func equalFold(b []byte, lower string) bool {
	if len(b) != len(lower) {
		return false
	}
	for i := range b {
		c := b[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != lower[i] {
			return false
		}
	}
	return true
}

func nan(negative bool) float64 {
	if negative {
		return math.Copysign(math.NaN(), -1)
	}
	return math.NaN()
}
