package cursor

import (
	"bufio"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"os"
)

// Compression identifies how a file on disk is encoded.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZlib Compression = "zlib"
)

// File is a ReaderCursor over a file on disk. Gzip and zlib streams are
// detected from their magic bytes and decompressed transparently.
type File struct {
	*ReaderCursor

	Compression Compression

	file    *os.File
	dec     io.Closer
	pending io.Closer
}

// Options controls how Open reads a file.
type Options struct {
	// BufferSize is the cursor's refill size. Default is 64 KiB.
	BufferSize int
	// ReadAhead, when > 0, reads that many buffers ahead on a background goroutine.
	ReadAhead int
}

// Open opens path for byte-wise parsing.
func Open(path string, opts Options) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	out := &File{file: f, Compression: CompressionNone}
	br := bufio.NewReader(f)

	var src io.Reader = br
	switch DetectCompression(br) {
	case CompressionGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
		}
		out.Compression = CompressionGzip
		out.dec = zr
		src = zr
	case CompressionZlib:
		zr, err := zlib.NewReader(br)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to open zlib stream %s: %w", path, err)
		}
		out.Compression = CompressionZlib
		out.dec = zr
		src = zr
	}

	if opts.ReadAhead > 0 {
		ra := NewReadAhead(src, opts.BufferSize, opts.ReadAhead)
		out.pending = ra
		src = ra
	}

	rc, err := NewReaderCursor(src, opts.BufferSize)
	if err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	out.ReaderCursor = rc
	return out, nil
}

// Close releases the decompressor, the read-ahead goroutine and the file.
func (f *File) Close() error {
	if f.pending != nil {
		_ = f.pending.Close()
	}
	if f.dec != nil {
		_ = f.dec.Close()
	}
	return f.file.Close()
}

// DetectCompression peeks at the first two bytes of br without consuming them.
func DetectCompression(br *bufio.Reader) Compression {
	magic, err := br.Peek(2)
	if err != nil || len(magic) < 2 {
		return CompressionNone
	}
	if magic[0] == 0x1f && magic[1] == 0x8b {
		return CompressionGzip
	}
	// RFC 1950: CM=8 in the low nibble and the header checksum divides by 31.
	if magic[0]&0x0f == 8 && (uint16(magic[0])<<8|uint16(magic[1]))%31 == 0 {
		return CompressionZlib
	}
	return CompressionNone
}

// NewGzipCursor decompresses a gzip stream from r.
func NewGzipCursor(r io.Reader, bufferSize int) (*ReaderCursor, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	return NewReaderCursor(zr, bufferSize)
}

// NewZlibCursor decompresses a zlib stream from r.
func NewZlibCursor(r io.Reader, bufferSize int) (*ReaderCursor, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open zlib stream: %w", err)
	}
	return NewReaderCursor(zr, bufferSize)
}
