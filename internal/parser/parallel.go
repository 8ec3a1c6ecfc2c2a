package parser

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tatami-inc/eminem-sub000/internal/cursor"
)

// parsedEntry is an entry captured by a worker, waiting to be delivered.
type parsedEntry[T any] struct {
	row, col uint64
	line     uint64
	value    T
}

// block is one newline-aligned chunk of the body. It is owned by the
// coordinator while filled and merged, and by one worker while parsed.
type block[T any] struct {
	seq     int
	line    uint64 // line number of the first byte
	data    []byte
	entries []parsedEntry[T]

	err     error  // first failure inside the block
	errLine uint64 // line of the data line that failed
}

// parse runs the line grammar over the whole block, stopping at the first
// error. Entries parsed before the error are kept.
func (b *block[T]) parse(g *lineGrammar[T], factory cursor.Factory) {
	b.entries = b.entries[:0]
	b.err = nil

	in := newInput(factory(b.data), b.line)
	for {
		in.skipLines()
		if !in.valid() {
			break
		}
		line := in.line
		row, col, value, err := g.parse(in)
		if err != nil {
			b.err, b.errLine = err, line
			return
		}
		b.entries = append(b.entries, parsedEntry[T]{row: row, col: col, line: line, value: value})
	}
	if in.err != nil {
		b.err, b.errLine = in.ioError(), in.line
	}
}

// flush replays a parsed block through the merger. It reports whether the scan
// should continue.
func (m *merger[T]) flush(b *block[T]) (bool, error) {
	for i := range b.entries {
		e := &b.entries[i]
		if err := m.check(e.line); err != nil {
			return false, err
		}
		if !m.deliver(e.row, e.col, e.value) {
			return false, nil
		}
	}
	if b.err != nil {
		// A serial scan would have rejected a surplus line before parsing it.
		if err := m.check(b.errLine); err != nil {
			return false, err
		}
		return false, b.err
	}
	return true, nil
}

// readBlock appends at least size bytes from the cursor to buf, extended to
// the next newline (or the end of input), and returns the extended buffer.
func readBlock(in *input, buf []byte, size int) []byte {
	for in.valid() {
		c := in.get()
		buf = append(buf, c)
		in.advance()
		if c == '\n' && len(buf) >= size {
			break
		}
	}
	return buf
}

// parallelScan splits the rest of the input into blocks, parses them on a
// fixed pool of workers and delivers the results strictly in block order.
type parallelScan[T any] struct {
	in      *input
	grammar *lineGrammar[T]
	merger  *merger[T]
	factory cursor.Factory

	workers   int
	blockSize int
	stats     *Stats

	free []*block[T]
}

func (s *parallelScan[T]) getBlock() *block[T] {
	if n := len(s.free); n > 0 {
		b := s.free[n-1]
		s.free = s.free[:n-1]
		b.data = b.data[:0]
		return b
	}
	return &block[T]{data: make([]byte, 0, s.blockSize+s.blockSize/8)}
}

func (s *parallelScan[T]) putBlock(b *block[T]) {
	s.free = append(s.free, b)
}

func (s *parallelScan[T]) run(ctx context.Context) (bool, error) {
	maxInflight := 2 * s.workers
	tasks := make(chan *block[T], maxInflight)
	results := make(chan *block[T], maxInflight)

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			for b := range tasks {
				if gctx.Err() == nil {
					b.parse(s.grammar, s.factory)
				}
				// Never blocks: at most maxInflight blocks exist.
				results <- b
			}
			return nil
		})
	}

	completed, err := s.coordinate(ctx, tasks, results, maxInflight)

	close(tasks)
	cancel()
	_ = g.Wait()
	return completed, err
}

func (s *parallelScan[T]) coordinate(ctx context.Context, tasks, results chan *block[T], maxInflight int) (bool, error) {
	pending := make(map[int]*block[T], maxInflight)
	nextSeq, next, inflight := 0, 0, 0
	eof := false

	for {
		if err := ctx.Err(); err != nil {
			return false, canceled(err, s.in.line)
		}

		for !eof && inflight < maxInflight {
			b := s.getBlock()
			b.seq = nextSeq
			b.line = s.in.line
			b.data = readBlock(s.in, b.data, s.blockSize)
			if s.in.err != nil {
				return false, s.in.ioError()
			}
			if len(b.data) == 0 {
				eof = true
				s.putBlock(b)
				break
			}
			s.stats.Blocks++
			s.stats.Bytes += int64(len(b.data))

			tasks <- b
			nextSeq++
			inflight++
		}

		if inflight == 0 {
			break
		}

		select {
		case b := <-results:
			pending[b.seq] = b
		case <-ctx.Done():
			return false, canceled(ctx.Err(), s.in.line)
		}

		for b, ok := pending[next]; ok; b, ok = pending[next] {
			delete(pending, next)
			next++
			inflight--

			cont, err := s.merger.flush(b)
			s.putBlock(b)
			if err != nil {
				return false, err
			}
			if !cont {
				return false, nil
			}
		}
	}

	if err := s.merger.finish(s.in.line); err != nil {
		return false, err
	}
	return true, nil
}

// scanParallel is the parallel counterpart of scanSerial.
func scanParallel[T any](ctx context.Context, p *Parser, g *lineGrammar[T], m *merger[T]) (bool, error) {
	s := &parallelScan[T]{
		in:        p.in,
		grammar:   g,
		merger:    m,
		factory:   p.config.Factory,
		workers:   p.config.Workers,
		blockSize: p.config.BlockSize,
		stats:     &p.stats,
	}
	return s.run(ctx)
}
