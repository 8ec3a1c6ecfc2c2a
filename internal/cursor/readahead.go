package cursor

import (
	"io"
	"sync"
)

type readAheadChunk struct {
	buf []byte
	n   int
	err error
}

// ReadAhead reads from a source on a background goroutine, keeping up to depth
// buffers filled ahead of the consumer. It lets decompression or disk reads
// overlap with parsing.
type ReadAhead struct {
	chunks chan readAheadChunk
	free   chan []byte
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	last []byte
	cur  []byte
	err  error
}

// NewReadAhead starts the background reader. bufferSize <= 0 selects 64 KiB;
// depth < 1 is raised to 1.
func NewReadAhead(r io.Reader, bufferSize, depth int) *ReadAhead {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if depth < 1 {
		depth = 1
	}

	ra := &ReadAhead{
		chunks: make(chan readAheadChunk, depth),
		free:   make(chan []byte, depth),
		done:   make(chan struct{}),
	}
	for i := 0; i < depth; i++ {
		ra.free <- make([]byte, bufferSize)
	}

	ra.wg.Add(1)
	go ra.fill(r)
	return ra
}

func (ra *ReadAhead) fill(r io.Reader) {
	defer ra.wg.Done()
	defer close(ra.chunks)

	for {
		var buf []byte
		select {
		case buf = <-ra.free:
		case <-ra.done:
			return
		}

		n, err := r.Read(buf)
		if n == 0 && err == nil {
			ra.free <- buf
			continue
		}

		select {
		case ra.chunks <- readAheadChunk{buf: buf, n: n, err: err}:
		case <-ra.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// Read implements io.Reader.
func (ra *ReadAhead) Read(p []byte) (int, error) {
	for len(ra.cur) == 0 {
		if ra.err != nil {
			return 0, ra.err
		}
		if ra.last != nil {
			ra.free <- ra.last[:cap(ra.last)]
			ra.last = nil
		}

		select {
		case c, ok := <-ra.chunks:
			if !ok {
				ra.err = io.ErrClosedPipe
				continue
			}
			ra.last = c.buf
			ra.cur = c.buf[:c.n]
			ra.err = c.err
		case <-ra.done:
			ra.err = io.ErrClosedPipe
		}
	}

	n := copy(p, ra.cur)
	ra.cur = ra.cur[n:]
	return n, nil
}

// Close stops the background goroutine and waits for it to exit.
func (ra *ReadAhead) Close() error {
	ra.once.Do(func() { close(ra.done) })
	ra.wg.Wait()
	return nil
}
