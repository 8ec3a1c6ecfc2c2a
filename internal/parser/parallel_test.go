package parser

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatami-inc/eminem-sub000/internal/cursor"
	"github.com/tatami-inc/eminem-sub000/pkg/types"
)

// chunkReader hands out at most size bytes per Read.
type chunkReader struct {
	data []byte
	size int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := min(r.size, len(p), len(r.data))
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

// randomMatrix formats a random sparse real matrix, with comment and blank
// lines mixed into the body, and returns the entries it contains.
func randomMatrix(rng *rand.Rand, rows, cols uint64, n int) (string, []triple[float64]) {
	var b strings.Builder
	fmt.Fprintf(&b, "%%%%MatrixMarket matrix coordinate real general\n%% generated\n%d %d %d\n", rows, cols, n)

	want := make([]triple[float64], 0, n)
	for i := 0; i < n; i++ {
		r := uint64(rng.Int63n(int64(rows))) + 1
		c := uint64(rng.Int63n(int64(cols))) + 1
		v := rng.NormFloat64()
		switch rng.Intn(4) {
		case 0:
			v *= 1e-30
		case 1:
			v = float64(rng.Intn(1000))
		}

		if rng.Intn(20) == 0 {
			b.WriteString("% interleaved comment\n")
		}
		if rng.Intn(25) == 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d %d %s\n", r, c, strconv.FormatFloat(v, 'g', -1, 64))
		want = append(want, triple[float64]{r, c, v})
	}
	return b.String(), want
}

func TestScan_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		rows := uint64(rng.Intn(500) + 1)
		cols := uint64(rng.Intn(500) + 1)
		input, want := randomMatrix(rng, rows, cols, rng.Intn(300))

		got, completed, err := scanAll(t, input, nil, ScanReal[float64])
		require.NoError(t, err)
		assert.True(t, completed)
		if len(want) == 0 {
			assert.Empty(t, got)
			continue
		}
		assert.Equal(t, want, got)
	}
}

func TestScan_ThreadCountInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	input, want := randomMatrix(rng, 1000, 50, 2000)

	for _, workers := range []int{2, 3, 8} {
		for _, blockSize := range []int{1, 7, 64, 4096} {
			t.Run(fmt.Sprintf("workers=%d/block=%d", workers, blockSize), func(t *testing.T) {
				p := newTestParser(input, &Config{Workers: workers, BlockSize: blockSize})
				require.NoError(t, p.ScanPreamble())

				var got []triple[float64]
				completed, err := ScanReal(context.Background(), p, Always(func(row, col uint64, v float64) {
					got = append(got, triple[float64]{row, col, v})
				}))
				require.NoError(t, err)
				assert.True(t, completed)
				assert.Equal(t, want, got)

				stats := p.Stats()
				assert.Equal(t, uint64(len(want)), stats.Entries)
				assert.Greater(t, stats.Blocks, 0)
				body := input[strings.Index(input, " 2000\n")+len(" 2000\n"):]
				assert.Equal(t, int64(len(body)), stats.Bytes)
			})
		}
	}
}

func TestScan_ChunkSizeInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	input, want := randomMatrix(rng, 30, 30, 60)

	for size := 1; size <= 9; size++ {
		for _, workers := range []int{1, 4} {
			cur, err := cursor.NewReaderCursor(&chunkReader{data: []byte(input), size: size}, size)
			require.NoError(t, err)
			p := New(cur, &Config{Workers: workers, BlockSize: 32})
			require.NoError(t, p.ScanPreamble())

			var got []triple[float64]
			_, err = ScanReal(context.Background(), p, Always(func(row, col uint64, v float64) {
				got = append(got, triple[float64]{row, col, v})
			}))
			require.NoError(t, err, "chunk size %d, workers %d", size, workers)
			assert.Equal(t, want, got, "chunk size %d, workers %d", size, workers)
		}
	}
}

func TestScan_ParallelErrorsMatchSerial(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	valid, _ := randomMatrix(rng, 100, 100, 400)
	lines := strings.SplitAfter(valid, "\n")

	corrupt := func(at int, with string) string {
		out := append([]string{}, lines...)
		out[at] = with
		return strings.Join(out, "")
	}

	tests := []struct {
		name  string
		input string
		kind  types.ErrorKind
	}{
		{"bad token", corrupt(250, "5 5 oops\n"), types.KindConversion},
		{"range", corrupt(120, "101 1 1\n"), types.KindRange},
		{"grammar", corrupt(300, "5\n"), types.KindGrammar},
		{"surplus", valid + "1 1 1\n2 2 2\n", types.KindCountMismatch},
		{"surplus garbage", valid + "garbage\n", types.KindCountMismatch},
		{"missing", strings.Join(lines[:len(lines)-10], ""), types.KindCountMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serial, serialCalls, serialErr := scanCount(t, tt.input, &Config{Workers: 1})
			pe := requireKind(t, serialErr, tt.kind)
			assert.False(t, serial)

			for _, blockSize := range []int{1, 50, 1000} {
				completed, calls, err := scanCount(t, tt.input, &Config{Workers: 4, BlockSize: blockSize})
				got := requireKind(t, err, tt.kind)
				assert.Equal(t, pe.Line, got.Line, "block size %d", blockSize)
				assert.Equal(t, serialCalls, calls, "block size %d", blockSize)
				assert.False(t, completed)
			}
		})
	}
}

func scanCount(t *testing.T, input string, config *Config) (bool, int, error) {
	t.Helper()
	p := newTestParser(input, config)
	require.NoError(t, p.ScanPreamble())
	calls := 0
	completed, err := ScanReal(context.Background(), p, Always(func(uint64, uint64, float64) { calls++ }))
	return completed, calls, err
}

func TestScan_ParallelEarlyStop(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	input, want := randomMatrix(rng, 100, 100, 1000)

	p := newTestParser(input, &Config{Workers: 4, BlockSize: 32})
	require.NoError(t, p.ScanPreamble())

	var got []triple[float64]
	completed, err := ScanReal(context.Background(), p, func(row, col uint64, v float64) bool {
		got = append(got, triple[float64]{row, col, v})
		return len(got) < 3
	})
	require.NoError(t, err)
	assert.False(t, completed)
	assert.Equal(t, want[:3], got)
	assert.Equal(t, uint64(3), p.Stats().Entries)
}

func TestScan_ParallelArrayPositions(t *testing.T) {
	const rows, cols = 7, 9
	var b strings.Builder
	fmt.Fprintf(&b, "%%%%MatrixMarket matrix array integer general\n%d %d\n", rows, cols)
	for k := 1; k <= rows*cols; k++ {
		fmt.Fprintf(&b, "%d\n", k)
	}

	got, completed, err := scanAll(t, b.String(), &Config{Workers: 3, BlockSize: 5}, ScanInteger[int])
	require.NoError(t, err)
	assert.True(t, completed)
	require.Len(t, got, rows*cols)
	for i, e := range got {
		k := uint64(i + 1)
		assert.Equal(t, (k-1)%rows+1, e.Row)
		assert.Equal(t, (k-1)/rows+1, e.Col)
	}
}

func TestScan_ParallelFactory(t *testing.T) {
	var blocks atomic.Int32
	factory := func(data []byte) cursor.ByteCursor {
		blocks.Add(1)
		return cursor.NewBufferCursor(data)
	}

	got, _, err := scanAll(t, scenarioA, &Config{Workers: 2, BlockSize: 1, Factory: factory}, ScanInteger[int])
	require.NoError(t, err)
	assert.Equal(t, []triple[int]{{1, 1, 5}, {2, 2, 7}}, got)
	assert.Equal(t, int32(2), blocks.Load())
}
