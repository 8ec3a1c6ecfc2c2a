package cursor

import (
	"io"
)

const defaultBufferSize = 64 << 10 // 64 KiB

// ByteCursor is a pull-based single-byte cursor.
//
// Get is only defined while Valid reports true. Advance moves to the next byte
// and reports whether one is available; once it returns false the cursor stays
// exhausted. A non-nil error from Advance means the source failed, in which
// case the cursor is also exhausted.
type ByteCursor interface {
	Get() byte
	Advance() (bool, error)
	Valid() bool
}

// Factory constructs a cursor over an in-memory byte range. The parallel
// parser uses it to build one cursor per block.
type Factory func(data []byte) ByteCursor

// DefaultFactory wraps the bytes in a BufferCursor.
func DefaultFactory(data []byte) ByteCursor {
	return NewBufferCursor(data)
}

// BufferCursor iterates over a byte slice it does not own.
type BufferCursor struct {
	data []byte
	pos  int
}

// NewBufferCursor returns a cursor positioned at the first byte of data.
func NewBufferCursor(data []byte) *BufferCursor {
	return &BufferCursor{data: data}
}

// Get returns the current byte.
func (c *BufferCursor) Get() byte {
	return c.data[c.pos]
}

// Advance moves to the next byte.
func (c *BufferCursor) Advance() (bool, error) {
	if c.pos < len(c.data) {
		c.pos++
	}
	return c.pos < len(c.data), nil
}

// Valid reports whether a current byte is available.
func (c *BufferCursor) Valid() bool {
	return c.pos < len(c.data)
}

// Offset returns the number of bytes consumed so far.
func (c *BufferCursor) Offset() int {
	return c.pos
}

// ReaderCursor pulls bytes from an io.Reader through a fixed-size buffer, so
// memory stays bounded no matter how large the source is.
type ReaderCursor struct {
	src io.Reader

	buf    []byte
	bufPos int
	bufLen int
	bufErr error

	valid    bool
	consumed int64
}

// NewReaderCursor creates a cursor over r and loads the first byte.
// bufferSize <= 0 selects a 64 KiB buffer. The returned error is non-nil only
// when the first read fails with something other than io.EOF.
func NewReaderCursor(r io.Reader, bufferSize int) (*ReaderCursor, error) {
	if r == nil {
		panic("cursor: reader source cannot be nil")
	}
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	c := &ReaderCursor{
		src: r,
		buf: make([]byte, bufferSize),
	}
	ok, err := c.refill()
	c.valid = ok
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the current byte.
func (c *ReaderCursor) Get() byte {
	return c.buf[c.bufPos]
}

// Valid reports whether a current byte is available.
func (c *ReaderCursor) Valid() bool {
	return c.valid
}

// Offset returns the number of bytes consumed so far.
func (c *ReaderCursor) Offset() int64 {
	return c.consumed
}

// Advance moves to the next byte, refilling the buffer from the source as needed.
func (c *ReaderCursor) Advance() (bool, error) {
	if !c.valid {
		return false, nil
	}
	c.consumed++
	c.bufPos++
	if c.bufPos < c.bufLen {
		return true, nil
	}

	ok, err := c.refill()
	c.valid = ok
	return ok, err
}

// refill pulls the next chunk from the source. An error delivered together
// with data is held back until that data has been consumed.
func (c *ReaderCursor) refill() (bool, error) {
	for {
		if c.bufErr != nil {
			err := c.bufErr
			c.bufErr = nil
			c.bufPos, c.bufLen = 0, 0
			if err == io.EOF {
				return false, nil
			}
			return false, err
		}

		n, err := c.src.Read(c.buf)
		c.bufErr = err
		if n > 0 {
			c.bufPos = 0
			c.bufLen = n
			return true, nil
		}
	}
}
