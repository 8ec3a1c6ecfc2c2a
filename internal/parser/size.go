package parser

import (
	"math/bits"

	"github.com/tatami-inc/eminem-sub000/pkg/types"
)

// scanSize parses the size line, whose fields depend on the descriptor:
//
//	matrix coordinate: rows cols lines
//	matrix array:      rows cols
//	vector coordinate: rows lines
//	vector array:      lines
func scanSize(in *input, desc types.Descriptor) (types.Dimensions, error) {
	var dims types.Dimensions

	in.skipLines()
	if !in.valid() {
		if in.err != nil {
			return dims, in.ioError()
		}
		return dims, in.fail(types.KindGrammar, "failed to find size line before end of file")
	}

	var err error
	switch {
	case desc.Object == types.ObjectMatrix && desc.Format == types.FormatCoordinate:
		if dims.Rows, err = in.scanUnsigned(false, "number of rows"); err != nil {
			return dims, err
		}
		if dims.Cols, err = in.scanUnsigned(false, "number of columns"); err != nil {
			return dims, err
		}
		if dims.Lines, err = in.scanUnsigned(true, "number of lines"); err != nil {
			return dims, err
		}

	case desc.Object == types.ObjectMatrix:
		line := in.line
		if dims.Rows, err = in.scanUnsigned(false, "number of rows"); err != nil {
			return dims, err
		}
		if dims.Cols, err = in.scanUnsigned(true, "number of columns"); err != nil {
			return dims, err
		}
		hi, lo := bits.Mul64(dims.Rows, dims.Cols)
		if hi != 0 {
			return dims, in.failAt(line, types.KindConversion, "number of entries (%d x %d) does not fit in 64 bits", dims.Rows, dims.Cols)
		}
		dims.Lines = lo

	case desc.Format == types.FormatCoordinate:
		if dims.Rows, err = in.scanUnsigned(false, "number of rows"); err != nil {
			return dims, err
		}
		if dims.Lines, err = in.scanUnsigned(true, "number of lines"); err != nil {
			return dims, err
		}
		dims.Cols = 1

	default:
		if dims.Lines, err = in.scanUnsigned(true, "number of lines"); err != nil {
			return dims, err
		}
		dims.Rows = dims.Lines
		dims.Cols = 1
	}

	return dims, nil
}
