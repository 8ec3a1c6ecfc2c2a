package parser

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/tatami-inc/eminem-sub000/internal/cursor"
)

func benchmarkInput(n int) []byte {
	rng := rand.New(rand.NewSource(1))
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%%%MatrixMarket matrix coordinate real general\n100000 100000 %d\n", n)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf, "%d %d %.17g\n", rng.Intn(100000)+1, rng.Intn(100000)+1, rng.NormFloat64())
	}
	return buf.Bytes()
}

func BenchmarkScanReal(b *testing.B) {
	data := benchmarkInput(200000)

	for _, workers := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				p := New(cursor.NewBufferCursor(data), &Config{Workers: workers, BlockSize: 256 << 10})
				if err := p.ScanPreamble(); err != nil {
					b.Fatal(err)
				}
				var sum float64
				if _, err := ScanReal(context.Background(), p, Always(func(_, _ uint64, v float64) { sum += v })); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkScanReal_Reader(b *testing.B) {
	data := benchmarkInput(200000)
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cur, err := cursor.NewReaderCursor(bytes.NewReader(data), 0)
		if err != nil {
			b.Fatal(err)
		}
		p := New(cur, nil)
		if err := p.ScanPreamble(); err != nil {
			b.Fatal(err)
		}
		if _, err := ScanReal(context.Background(), p, Always(func(uint64, uint64, float64) {})); err != nil {
			b.Fatal(err)
		}
	}
}
