package parser

import (
	"context"

	"github.com/tatami-inc/eminem-sub000/pkg/types"
)

// ctxCheckInterval is how many data lines the serial loop parses between
// checks of the context.
const ctxCheckInterval = 4096

// Callback receives one entry. Returning false stops the scan.
type Callback[T any] func(row, col uint64, value T) bool

// Always adapts a callback without a return value into one that never stops
// the scan.
func Always[T any](fn func(row, col uint64, value T)) Callback[T] {
	return func(row, col uint64, value T) bool {
		fn(row, col, value)
		return true
	}
}

// valueFunc scans the value field at the end of a data line.
type valueFunc[T any] func(in *input) (T, error)

// lineGrammar parses single data lines for a given descriptor. It performs
// everything that can be decided from the line alone, so it runs unchanged
// on a worker's block.
type lineGrammar[T any] struct {
	indexFields int
	rows, cols  uint64
	value       valueFunc[T] // nil for pattern files
	pattern     T            // value reported when there is no value field
}

func newLineGrammar[T any](desc types.Descriptor, dims types.Dimensions, value valueFunc[T], pattern T) *lineGrammar[T] {
	return &lineGrammar[T]{
		indexFields: desc.IndexFields(),
		rows:        dims.Rows,
		cols:        dims.Cols,
		value:       value,
		pattern:     pattern,
	}
}

// parse reads one data line starting at the cursor. Array lines report a zero
// position; their position is assigned when entries are delivered in order.
func (g *lineGrammar[T]) parse(in *input) (row, col uint64, value T, err error) {
	line := in.line
	hasValue := g.value != nil

	switch g.indexFields {
	case 2:
		if row, err = in.scanUnsigned(false, "row index"); err != nil {
			return
		}
		if err = checkIndex(in, line, row, g.rows, "row"); err != nil {
			return
		}
		if col, err = in.scanUnsigned(!hasValue, "column index"); err != nil {
			return
		}
		if err = checkIndex(in, line, col, g.cols, "column"); err != nil {
			return
		}
	case 1:
		if row, err = in.scanUnsigned(!hasValue, "row index"); err != nil {
			return
		}
		if err = checkIndex(in, line, row, g.rows, "row"); err != nil {
			return
		}
		col = 1
	}

	if !hasValue {
		return row, col, g.pattern, nil
	}
	value, err = g.value(in)
	return
}

func checkIndex(in *input, line, index, limit uint64, name string) error {
	if index == 0 {
		return in.failAt(line, types.KindRange, "%s index must be positive", name)
	}
	if index > limit {
		return in.failAt(line, types.KindRange, "%s index %d exceeds the number of %ss (%d)", name, index, name, limit)
	}
	return nil
}

// merger delivers parsed entries to the callback in file order. It owns the
// global line count, so the declared-line checks and the array positions are
// decided here rather than in the workers.
type merger[T any] struct {
	lines uint64
	rows  uint64
	array bool
	fn    Callback[T]

	count      uint64
	arrRow     uint64
	arrCol     uint64
	terminated bool
}

func newMerger[T any](desc types.Descriptor, dims types.Dimensions, fn Callback[T]) *merger[T] {
	return &merger[T]{
		lines:  dims.Lines,
		rows:   dims.Rows,
		array:  desc.Format == types.FormatArray,
		fn:     fn,
		arrRow: 1,
		arrCol: 1,
	}
}

// check runs before a data line on the given line number is parsed.
func (m *merger[T]) check(line uint64) error {
	if m.count >= m.lines {
		return types.NewParseError(types.KindCountMismatch, line, "more lines present than specified in the header (%d)", m.lines)
	}
	return nil
}

// deliver passes one entry to the callback and reports whether to continue.
func (m *merger[T]) deliver(row, col uint64, value T) bool {
	if m.array {
		row, col = m.arrRow, m.arrCol
		m.arrRow++
		if m.arrRow > m.rows {
			m.arrRow = 1
			m.arrCol++
		}
	}
	m.count++
	if !m.fn(row, col, value) {
		m.terminated = true
		return false
	}
	return true
}

// finish runs at the end of input.
func (m *merger[T]) finish(line uint64) error {
	if m.count != m.lines {
		return types.NewParseError(types.KindCountMismatch, line, "fewer lines present (%d) than specified in the header (%d)", m.count, m.lines)
	}
	return nil
}

// scanSerial drives the data-line loop directly over the parser's cursor.
func scanSerial[T any](ctx context.Context, in *input, g *lineGrammar[T], m *merger[T]) (bool, error) {
	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return false, canceled(err, in.line)
			}
		}

		in.skipLines()
		if !in.valid() {
			break
		}

		line := in.line
		if err := m.check(line); err != nil {
			return false, err
		}
		row, col, value, err := g.parse(in)
		if err != nil {
			return false, err
		}
		if !m.deliver(row, col, value) {
			return false, nil
		}
	}

	if in.err != nil {
		return false, in.ioError()
	}
	if err := m.finish(in.line); err != nil {
		return false, err
	}
	return true, nil
}

// canceled reports a scan stopped by its context. The context error stays
// reachable through errors.Is.
func canceled(err error, line uint64) error {
	return &types.ParseError{Kind: types.KindCanceled, Line: line, Message: "scan canceled", Err: err}
}
