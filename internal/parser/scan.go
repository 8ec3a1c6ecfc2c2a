package parser

import (
	"context"
	"unsafe"

	"golang.org/x/exp/constraints"

	"github.com/tatami-inc/eminem-sub000/pkg/types"
)

// ScanInteger scans the body of an integer file, delivering each value as T.
// It returns true if every line was delivered and false if fn stopped early.
func ScanInteger[T constraints.Integer](ctx context.Context, p *Parser, fn Callback[T]) (bool, error) {
	accept := func(f types.Field) bool { return f == types.FieldInteger }
	var zero T
	return scanBody(ctx, p, "scanning integer values", accept, integerValue[T], zero, fn)
}

// ScanReal scans the body of a real, double or integer file, delivering each
// value as T.
func ScanReal[T constraints.Float](ctx context.Context, p *Parser, fn Callback[T]) (bool, error) {
	accept := func(f types.Field) bool {
		return f == types.FieldReal || f == types.FieldDouble || f == types.FieldInteger
	}
	var zero T
	return scanBody(ctx, p, "scanning real values", accept, realValue[T], zero, fn)
}

// ScanComplex scans the body of a complex file.
func ScanComplex[T constraints.Complex](ctx context.Context, p *Parser, fn Callback[T]) (bool, error) {
	accept := func(f types.Field) bool { return f == types.FieldComplex }
	var zero T
	return scanBody(ctx, p, "scanning complex values", accept, complexValue[T], zero, fn)
}

// ScanPattern scans the body of a pattern file. The value is always true.
func ScanPattern(ctx context.Context, p *Parser, fn Callback[bool]) (bool, error) {
	accept := func(f types.Field) bool { return f == types.FieldPattern }
	return scanBody[bool](ctx, p, "scanning pattern entries", accept, nil, true, fn)
}

// ScanEntries scans the body with the value type chosen from the banner's
// field, delivering field-tagged entries.
func (p *Parser) ScanEntries(ctx context.Context, fn func(types.Entry) bool) (bool, error) {
	if err := p.begin(StateSizeScanned, "scanning entries"); err != nil {
		return false, err
	}

	field := p.desc.Field
	switch field {
	case types.FieldInteger:
		return ScanInteger(ctx, p, func(row, col uint64, v int64) bool {
			return fn(types.Entry{Row: row, Col: col, Value: types.Value{Field: field, Integer: v}})
		})
	case types.FieldComplex:
		return ScanComplex(ctx, p, func(row, col uint64, v complex128) bool {
			return fn(types.Entry{Row: row, Col: col, Value: types.Value{Field: field, Complex: v}})
		})
	case types.FieldPattern:
		return ScanPattern(ctx, p, func(row, col uint64, _ bool) bool {
			return fn(types.Entry{Row: row, Col: col, Value: types.Value{Field: field}})
		})
	default:
		return ScanReal(ctx, p, func(row, col uint64, v float64) bool {
			return fn(types.Entry{Row: row, Col: col, Value: types.Value{Field: field, Real: v}})
		})
	}
}

func scanBody[T any](ctx context.Context, p *Parser, op string, accept func(types.Field) bool, value valueFunc[T], pattern T, fn Callback[T]) (bool, error) {
	if err := p.begin(StateSizeScanned, op); err != nil {
		return false, err
	}
	if !accept(p.desc.Field) {
		return false, usageError("%s: the file holds %s values", op, p.desc.Field)
	}

	p.state = StateBodyScanning
	defer func() { p.state = StateBodyDone }()

	g := newLineGrammar(p.desc, p.dims, value, pattern)
	m := newMerger(p.desc, p.dims, fn)

	var completed bool
	var err error
	if p.config.Workers > 1 {
		completed, err = scanParallel(ctx, p, g, m)
	} else {
		completed, err = scanSerial(ctx, p.in, g, m)
	}
	p.stats.Entries = m.count
	return completed, p.record(err)
}

func integerValue[T constraints.Integer](in *input) (T, error) {
	line := in.line
	var zero T
	if zero-1 > zero && in.valid() && in.get() != '-' {
		// Unsigned T takes the full 64-bit magnitude.
		m, err := in.scanUnsigned(true, "integer value")
		if err != nil {
			return 0, err
		}
		t := T(m)
		if uint64(t) != m {
			return 0, in.failAt(line, types.KindConversion, "integer value %d does not fit in %T", m, t)
		}
		return t, nil
	}

	v, err := in.scanSigned(true, "integer value")
	if err != nil {
		return 0, err
	}
	t := T(v)
	if int64(t) != v || (v < 0) != (t < 0) {
		return 0, in.failAt(line, types.KindConversion, "integer value %d does not fit in %T", v, t)
	}
	return t, nil
}

func realValue[T constraints.Float](in *input) (T, error) {
	v, err := in.scanReal(true, floatBits[T]())
	if err != nil {
		return 0, err
	}
	return T(v), nil
}

func complexValue[T constraints.Complex](in *input) (T, error) {
	var zero T
	bitSize := 64
	if unsafe.Sizeof(zero) == 8 {
		bitSize = 32
	}
	re, im, err := in.scanComplex(true, bitSize)
	if err != nil {
		return zero, err
	}
	return T(complex(re, im)), nil
}

func floatBits[T constraints.Float]() int {
	var zero T
	if unsafe.Sizeof(zero) == 4 {
		return 32
	}
	return 64
}
