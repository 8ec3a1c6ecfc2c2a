// Package cursor provides the byte sources consumed by the Matrix Market parser.
//
// The parser pulls one byte at a time through the ByteCursor interface:
//
//	for ok := cur.Valid(); ok; {
//	    b := cur.Get()
//	    ...
//	    ok, err = cur.Advance()
//	}
//
// # Sources
//
//   - BufferCursor walks an in-memory byte slice. DefaultFactory produces
//     these for the per-block cursors of the parallel parser.
//   - ReaderCursor pulls from any io.Reader through a fixed refill buffer.
//   - Open reads a file from disk, detecting gzip and zlib streams by their
//     magic bytes and decompressing them on the fly.
//   - ReadAhead moves the underlying reads onto a background goroutine so that
//     I/O and decompression overlap with parsing.
//
// Memory use is bounded by the refill buffer (and the read-ahead depth), never
// by the size of the input.
package cursor
