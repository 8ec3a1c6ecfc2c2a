package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatami-inc/eminem-sub000/internal/cursor"
	"github.com/tatami-inc/eminem-sub000/pkg/types"
)

func newTestParser(input string, config *Config) *Parser {
	return New(cursor.NewBufferCursor([]byte(input)), config)
}

// requireKind asserts that err is a *types.ParseError of the given kind and
// returns it.
func requireKind(t *testing.T, err error, kind types.ErrorKind) *types.ParseError {
	t.Helper()
	require.Error(t, err)
	var pe *types.ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, kind, pe.Kind, "unexpected error: %v", err)
	return pe
}

func TestScanBanner(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  types.Descriptor
	}{
		{
			name:  "coordinate integer general",
			input: "%%MatrixMarket matrix coordinate integer general\n",
			want:  types.Descriptor{Object: types.ObjectMatrix, Format: types.FormatCoordinate, Field: types.FieldInteger, Symmetry: types.SymmetryGeneral},
		},
		{
			name:  "single percent",
			input: "%MatrixMarket matrix array real symmetric\n",
			want:  types.Descriptor{Object: types.ObjectMatrix, Format: types.FormatArray, Field: types.FieldReal, Symmetry: types.SymmetrySymmetric},
		},
		{
			name:  "tabs and skew-symmetric",
			input: "%%MatrixMarket\tmatrix\tcoordinate\tdouble\tskew-symmetric\n",
			want:  types.Descriptor{Object: types.ObjectMatrix, Format: types.FormatCoordinate, Field: types.FieldDouble, Symmetry: types.SymmetrySkewSymmetric},
		},
		{
			name:  "hermitian complex",
			input: "%%MatrixMarket matrix coordinate complex hermitian\n",
			want:  types.Descriptor{Object: types.ObjectMatrix, Format: types.FormatCoordinate, Field: types.FieldComplex, Symmetry: types.SymmetryHermitian},
		},
		{
			name:  "pattern without trailing newline",
			input: "%%MatrixMarket matrix coordinate pattern symmetric",
			want:  types.Descriptor{Object: types.ObjectMatrix, Format: types.FormatCoordinate, Field: types.FieldPattern, Symmetry: types.SymmetrySymmetric},
		},
		{
			name:  "extra tokens ignored",
			input: "%%MatrixMarket matrix coordinate real general some future field\n",
			want:  types.Descriptor{Object: types.ObjectMatrix, Format: types.FormatCoordinate, Field: types.FieldReal, Symmetry: types.SymmetryGeneral},
		},
		{
			name:  "vector symmetry is forced to general",
			input: "%%MatrixMarket vector array real symmetric\n",
			want:  types.Descriptor{Object: types.ObjectVector, Format: types.FormatArray, Field: types.FieldReal, Symmetry: types.SymmetryGeneral},
		},
		{
			name:  "vector without symmetry",
			input: "%%MatrixMarket vector coordinate integer\n",
			want:  types.Descriptor{Object: types.ObjectVector, Format: types.FormatCoordinate, Field: types.FieldInteger, Symmetry: types.SymmetryGeneral},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestParser(tt.input, nil)
			require.NoError(t, p.ScanBanner())
			assert.Equal(t, StateBannerScanned, p.State())

			desc, err := p.Descriptor()
			require.NoError(t, err)
			assert.Equal(t, tt.want, desc)
		})
	}
}

func TestScanBanner_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"empty file", "", "failed to find banner"},
		{"not a banner", "3 3 3\n", "first line of the file should be the banner"},
		{"comment instead of banner", "% hello\n", "first line of the file should be the banner"},
		{"misspelled magic", "%%MatrixMarkex matrix coordinate real general\n", "first line of the file should be the banner"},
		{"magic with suffix", "%%MatrixMarketX matrix coordinate real general\n", "first line of the file should be the banner"},
		{"truncated magic", "%%Matrix", "unexpected end of file"},
		{"end of file after magic", "%%MatrixMarket", "before the object field"},
		{"end of line after magic", "%%MatrixMarket\n", "end of line before the object field"},
		{"bad object", "%%MatrixMarket tensor coordinate real general\n", "'matrix' or 'vector'"},
		{"missing format", "%%MatrixMarket matrix", "end of file before the format field"},
		{"bad format", "%%MatrixMarket matrix dense real general\n", "'coordinate' or 'array'"},
		{"missing field", "%%MatrixMarket matrix coordinate\n", "end of line before the field field"},
		{"bad field", "%%MatrixMarket matrix coordinate float general\n", "field in the banner"},
		{"field prefix", "%%MatrixMarket matrix coordinate rea general\n", "field in the banner"},
		{"missing symmetry", "%%MatrixMarket matrix coordinate real", "end of file before the symmetry field"},
		{"missing symmetry at newline", "%%MatrixMarket matrix coordinate real\n", "end of line before the symmetry field"},
		{"bad symmetry", "%%MatrixMarket matrix coordinate real skew\n", "symmetry in the banner"},
		{"single letter symmetry", "%%MatrixMarket matrix coordinate real s\n", "symmetry in the banner"},
		{"carriage return", "%%MatrixMarket matrix coordinate real general\r\n", "symmetry in the banner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestParser(tt.input, nil)
			err := p.ScanBanner()
			pe := requireKind(t, err, types.KindGrammar)
			assert.Contains(t, pe.Message, tt.message)
			assert.Equal(t, uint64(1), pe.Line)
			assert.ErrorIs(t, err, types.ErrGrammar)
			assert.Equal(t, StateInitial, p.State())
		})
	}
}

func TestScanSize(t *testing.T) {
	tests := []struct {
		name   string
		banner string
		size   string
		want   types.Dimensions
	}{
		{"matrix coordinate", "matrix coordinate real general", "3 4 5\n", types.Dimensions{Rows: 3, Cols: 4, Lines: 5}},
		{"matrix array", "matrix array real general", "3 4\n", types.Dimensions{Rows: 3, Cols: 4, Lines: 12}},
		{"vector coordinate", "vector coordinate real", "10 3\n", types.Dimensions{Rows: 10, Cols: 1, Lines: 3}},
		{"vector array", "vector array integer", "7\n", types.Dimensions{Rows: 7, Cols: 1, Lines: 7}},
		{"no trailing newline", "matrix coordinate real general", "3 4 5", types.Dimensions{Rows: 3, Cols: 4, Lines: 5}},
		{"mixed blanks", "matrix coordinate real general", "3 \t 4\t5  \n", types.Dimensions{Rows: 3, Cols: 4, Lines: 5}},
		{"comments and blank lines first", "matrix coordinate real general", "% a comment\n\n%another\n3 4 5\n", types.Dimensions{Rows: 3, Cols: 4, Lines: 5}},
		{"zero size", "matrix coordinate real general", "0 0 0\n", types.Dimensions{}},
		{"large", "matrix coordinate real general", "18446744073709551615 1 0\n", types.Dimensions{Rows: 18446744073709551615, Cols: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestParser("%%MatrixMarket "+tt.banner+"\n"+tt.size, nil)
			require.NoError(t, p.ScanPreamble())
			assert.Equal(t, StateSizeScanned, p.State())

			dims, err := p.Dimensions()
			require.NoError(t, err)
			assert.Equal(t, tt.want, dims)

			rows, err := p.Rows()
			require.NoError(t, err)
			assert.Equal(t, tt.want.Rows, rows)
			cols, err := p.Cols()
			require.NoError(t, err)
			assert.Equal(t, tt.want.Cols, cols)
			lines, err := p.Lines()
			require.NoError(t, err)
			assert.Equal(t, tt.want.Lines, lines)
		})
	}
}

func TestScanSize_Errors(t *testing.T) {
	tests := []struct {
		name   string
		banner string
		size   string
		kind   types.ErrorKind
		line   uint64
	}{
		{"missing", "matrix coordinate real general", "", types.KindGrammar, 2},
		{"only comments", "matrix coordinate real general", "% nothing\n\n", types.KindGrammar, 4},
		{"too few fields", "matrix coordinate real general", "3 4\n", types.KindGrammar, 2},
		{"too few fields at eof", "matrix coordinate real general", "3 4", types.KindGrammar, 2},
		{"too many fields", "matrix coordinate real general", "3 4 5 6\n", types.KindGrammar, 2},
		{"too many array fields", "matrix array real general", "3 4 5\n", types.KindGrammar, 2},
		{"negative", "matrix coordinate real general", "3 -4 5\n", types.KindGrammar, 2},
		{"not a number", "vector array real", "seven\n", types.KindGrammar, 2},
		{"leading blank", "matrix coordinate real general", " 3 4 5\n", types.KindGrammar, 2},
		{"carriage return", "matrix coordinate real general", "3 4 5\r\n", types.KindGrammar, 2},
		{"overflow", "matrix coordinate real general", "3 4 18446744073709551616\n", types.KindConversion, 2},
		{"array product overflow", "matrix array real general", "4294967296 4294967296\n", types.KindConversion, 2},
		{"after comments", "matrix coordinate real general", "%c\n3 x 5\n", types.KindGrammar, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestParser("%%MatrixMarket "+tt.banner+"\n"+tt.size, nil)
			require.NoError(t, p.ScanBanner())

			err := p.ScanSize()
			pe := requireKind(t, err, tt.kind)
			assert.Equal(t, tt.line, pe.Line)
			assert.Equal(t, StateBannerScanned, p.State())
		})
	}
}

func TestParser_Usage(t *testing.T) {
	ctx := context.Background()
	const input = "%%MatrixMarket matrix coordinate integer general\n2 2 1\n1 1 5\n"

	t.Run("accessors before scanning", func(t *testing.T) {
		p := newTestParser(input, nil)

		_, err := p.Descriptor()
		requireKind(t, err, types.KindUsage)
		_, err = p.Dimensions()
		requireKind(t, err, types.KindUsage)
		_, err = p.Rows()
		requireKind(t, err, types.KindUsage)
		_, err = p.Cols()
		requireKind(t, err, types.KindUsage)
		_, err = p.Lines()
		requireKind(t, err, types.KindUsage)
	})

	t.Run("size before banner", func(t *testing.T) {
		p := newTestParser(input, nil)
		err := p.ScanSize()
		pe := requireKind(t, err, types.KindUsage)
		assert.Contains(t, pe.Message, "banner")
		assert.ErrorIs(t, err, types.ErrUsage)
	})

	t.Run("size accessors after banner only", func(t *testing.T) {
		p := newTestParser(input, nil)
		require.NoError(t, p.ScanBanner())
		_, err := p.Descriptor()
		require.NoError(t, err)
		_, err = p.Rows()
		requireKind(t, err, types.KindUsage)
	})

	t.Run("banner twice", func(t *testing.T) {
		p := newTestParser(input, nil)
		require.NoError(t, p.ScanBanner())
		requireKind(t, p.ScanBanner(), types.KindUsage)
	})

	t.Run("size twice", func(t *testing.T) {
		p := newTestParser(input, nil)
		require.NoError(t, p.ScanPreamble())
		requireKind(t, p.ScanSize(), types.KindUsage)
		requireKind(t, p.ScanPreamble(), types.KindUsage)
	})

	t.Run("body before size", func(t *testing.T) {
		p := newTestParser(input, nil)
		_, err := ScanInteger(ctx, p, Always(func(uint64, uint64, int64) {}))
		requireKind(t, err, types.KindUsage)

		require.NoError(t, p.ScanBanner())
		_, err = p.ScanEntries(ctx, func(types.Entry) bool { return true })
		requireKind(t, err, types.KindUsage)
	})

	t.Run("body twice", func(t *testing.T) {
		p := newTestParser(input, nil)
		require.NoError(t, p.ScanPreamble())

		completed, err := ScanInteger(ctx, p, Always(func(uint64, uint64, int) {}))
		require.NoError(t, err)
		assert.True(t, completed)
		assert.Equal(t, StateBodyDone, p.State())

		_, err = ScanInteger(ctx, p, Always(func(uint64, uint64, int) {}))
		pe := requireKind(t, err, types.KindUsage)
		assert.Contains(t, pe.Message, "already been scanned")
	})

	t.Run("wrong value kind", func(t *testing.T) {
		p := newTestParser(input, nil)
		require.NoError(t, p.ScanPreamble())

		_, err := ScanComplex(ctx, p, Always(func(uint64, uint64, complex128) {}))
		requireKind(t, err, types.KindUsage)
		_, err = ScanPattern(ctx, p, Always(func(uint64, uint64, bool) {}))
		requireKind(t, err, types.KindUsage)

		// Rejected kinds leave the body unscanned.
		assert.Equal(t, StateSizeScanned, p.State())
		_, err = ScanInteger(ctx, p, Always(func(uint64, uint64, int32) {}))
		require.NoError(t, err)
	})

	t.Run("integer file scanned as real", func(t *testing.T) {
		p := newTestParser(input, nil)
		require.NoError(t, p.ScanPreamble())

		var got []float64
		_, err := ScanReal(ctx, p, Always(func(_, _ uint64, v float64) { got = append(got, v) }))
		require.NoError(t, err)
		assert.Equal(t, []float64{5}, got)
	})

	t.Run("real file scanned as integer", func(t *testing.T) {
		p := newTestParser("%%MatrixMarket matrix coordinate real general\n1 1 1\n1 1 5\n", nil)
		require.NoError(t, p.ScanPreamble())
		_, err := ScanInteger(ctx, p, Always(func(uint64, uint64, int64) {}))
		requireKind(t, err, types.KindUsage)
	})

	t.Run("after a failure", func(t *testing.T) {
		p := newTestParser("%%MatrixMarket matrix coordinate integer general\n2 2\n", nil)
		require.NoError(t, p.ScanBanner())
		requireKind(t, p.ScanSize(), types.KindGrammar)

		err := p.ScanSize()
		pe := requireKind(t, err, types.KindUsage)
		assert.Contains(t, pe.Message, "previous failure")
		assert.Equal(t, types.KindUsage, types.KindOf(err))
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "initial", StateInitial.String())
	assert.Equal(t, "banner_scanned", StateBannerScanned.String())
	assert.Equal(t, "size_scanned", StateSizeScanned.String())
	assert.Equal(t, "body_scanning", StateBodyScanning.String())
	assert.Equal(t, "body_done", StateBodyDone.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestNew_Defaults(t *testing.T) {
	p := New(cursor.NewBufferCursor(nil), &Config{Workers: -3})
	assert.Equal(t, 1, p.config.Workers)
	assert.Equal(t, DefaultBlockSize, p.config.BlockSize)
	assert.NotNil(t, p.config.Factory)
	assert.Equal(t, uint64(1), p.Line())
}
