package parser

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatami-inc/eminem-sub000/internal/cursor"
	"github.com/tatami-inc/eminem-sub000/pkg/types"
)

// scanFixture parses testdata/name with config and returns the preamble and
// every entry.
func scanFixture(t *testing.T, name string, config *Config) (types.Descriptor, types.Dimensions, []types.Entry) {
	t.Helper()
	f, err := cursor.Open(filepath.Join("testdata", name), cursor.Options{BufferSize: 16})
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	p := New(f, config)
	require.NoError(t, p.ScanPreamble())
	desc, err := p.Descriptor()
	require.NoError(t, err)
	dims, err := p.Dimensions()
	require.NoError(t, err)

	var entries []types.Entry
	completed, err := p.ScanEntries(context.Background(), func(e types.Entry) bool {
		entries = append(entries, e)
		return true
	})
	require.NoError(t, err)
	require.True(t, completed)
	return desc, dims, entries
}

func render(entries []types.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = fmt.Sprintf("%d %d %s", e.Row, e.Col, e.Value)
	}
	return out
}

func TestFixtures(t *testing.T) {
	tests := []struct {
		file  string
		field types.Field
		dims  types.Dimensions
		check func(t *testing.T, entries []types.Entry)
	}{
		{"real_general.mtx", types.FieldReal, types.Dimensions{Rows: 5, Cols: 5, Lines: 8}, func(t *testing.T, entries []types.Entry) {
			assert.Equal(t, types.Entry{Row: 4, Col: 4, Value: types.Value{Field: types.FieldReal, Real: -280}}, entries[5])
		}},
		{"integer_symmetric.mtx", types.FieldInteger, types.Dimensions{Rows: 4, Cols: 4, Lines: 5}, func(t *testing.T, entries []types.Entry) {
			assert.Equal(t, int64(-1), entries[1].Value.Integer)
			assert.Equal(t, int64(math.MaxInt64), entries[4].Value.Integer)
		}},
		{"complex_hermitian.mtx", types.FieldComplex, types.Dimensions{Rows: 3, Cols: 3, Lines: 4}, func(t *testing.T, entries []types.Entry) {
			assert.Equal(t, complex(0.5, -0.25), entries[1].Value.Complex)
			assert.Equal(t, complex(-1e-3, 2), entries[2].Value.Complex)
		}},
		{"pattern_general.mtx", types.FieldPattern, types.Dimensions{Rows: 3, Cols: 4, Lines: 5}, func(t *testing.T, entries []types.Entry) {
			assert.Equal(t, uint64(4), entries[1].Col)
		}},
		{"array_real.mtx", types.FieldReal, types.Dimensions{Rows: 2, Cols: 3, Lines: 6}, func(t *testing.T, entries []types.Entry) {
			assert.Equal(t, []string{"1 1 1.5", "2 1 -2", "1 2 0", "2 2 3.25", "1 3 1e+10", "2 3 -7e-05"}, render(entries))
		}},
		{"vector_coordinate_integer.mtx", types.FieldInteger, types.Dimensions{Rows: 10, Cols: 1, Lines: 3}, func(t *testing.T, entries []types.Entry) {
			assert.Equal(t, []string{"2 1 -4", "7 1 0", "10 1 12"}, render(entries))
		}},
		{"vector_array_real.mtx", types.FieldReal, types.Dimensions{Rows: 4, Cols: 1, Lines: 4}, func(t *testing.T, entries []types.Entry) {
			assert.True(t, math.IsInf(entries[2].Value.Real, 1))
			assert.True(t, math.IsNaN(entries[3].Value.Real))
			assert.True(t, math.Signbit(entries[3].Value.Real))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			desc, dims, serial := scanFixture(t, tt.file, nil)
			assert.Equal(t, tt.field, desc.Field)
			assert.Equal(t, tt.dims, dims)
			require.Len(t, serial, int(dims.Lines))
			tt.check(t, serial)

			_, _, parallel := scanFixture(t, tt.file, &Config{Workers: 3, BlockSize: 8})
			assert.Equal(t, render(serial), render(parallel))
		})
	}
}
