package cursor

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// drain collects every byte from the cursor.
func drain(c ByteCursor) ([]byte, error) {
	var out []byte
	for c.Valid() {
		out = append(out, c.Get())
		if _, err := c.Advance(); err != nil {
			return out, err
		}
	}
	return out, nil
}

// dataErrReader returns all of its data together with err in a single Read.
type dataErrReader struct {
	data []byte
	err  error
	done bool
}

func (r *dataErrReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, r.err
	}
	r.done = true
	n := copy(p, r.data)
	return n, r.err
}

func TestBufferCursor(t *testing.T) {
	c := NewBufferCursor([]byte("abc"))
	require.True(t, c.Valid())
	assert.Equal(t, byte('a'), c.Get())

	ok, err := c.Advance()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, byte('b'), c.Get())
	assert.Equal(t, 1, c.Offset())

	out, err := drain(c)
	require.NoError(t, err)
	assert.Equal(t, []byte("bc"), out)
	assert.False(t, c.Valid())

	// Advancing an exhausted cursor is a no-op.
	ok, err = c.Advance()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, c.Offset())
}

func TestBufferCursor_Empty(t *testing.T) {
	c := NewBufferCursor(nil)
	assert.False(t, c.Valid())

	c2, ok := DefaultFactory([]byte{}).(*BufferCursor)
	require.True(t, ok)
	assert.False(t, c2.Valid())
}

func TestReaderCursor(t *testing.T) {
	data := []byte("%%MatrixMarket matrix coordinate real general\n3 3 1\n1 1 2.5\n")

	tests := []struct {
		name       string
		reader     func() io.Reader
		bufferSize int
	}{
		{"default buffer", func() io.Reader { return bytes.NewReader(data) }, 0},
		{"one byte buffer", func() io.Reader { return bytes.NewReader(data) }, 1},
		{"one byte reader", func() io.Reader { return iotest.OneByteReader(bytes.NewReader(data)) }, 16},
		{"half reader", func() io.Reader { return iotest.HalfReader(bytes.NewReader(data)) }, 7},
		{"data with eof", func() io.Reader { return iotest.DataErrReader(bytes.NewReader(data)) }, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewReaderCursor(tt.reader(), tt.bufferSize)
			require.NoError(t, err)

			out, err := drain(c)
			require.NoError(t, err)
			assert.Equal(t, data, out)
			assert.Equal(t, int64(len(data)), c.Offset())
			assert.False(t, c.Valid())
		})
	}
}

func TestReaderCursor_Empty(t *testing.T) {
	c, err := NewReaderCursor(strings.NewReader(""), 0)
	require.NoError(t, err)
	assert.False(t, c.Valid())

	ok, err := c.Advance()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestReaderCursor_Errors(t *testing.T) {
	t.Run("first read fails", func(t *testing.T) {
		_, err := NewReaderCursor(iotest.ErrReader(errBoom), 0)
		assert.ErrorIs(t, err, errBoom)
	})

	t.Run("error after data", func(t *testing.T) {
		src := io.MultiReader(strings.NewReader("abc"), iotest.ErrReader(errBoom))
		c, err := NewReaderCursor(src, 2)
		require.NoError(t, err)

		out, err := drain(c)
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, []byte("abc"), out)
		assert.False(t, c.Valid())
	})

	t.Run("error delivered with data", func(t *testing.T) {
		c, err := NewReaderCursor(&dataErrReader{data: []byte("xyz"), err: errBoom}, 0)
		require.NoError(t, err)

		out, err := drain(c)
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, []byte("xyz"), out)
	})
}

func TestReaderCursor_NilReader(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = NewReaderCursor(nil, 0)
	})
}
