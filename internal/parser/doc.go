// Package parser reads Matrix Market (.mtx) streams from a cursor.ByteCursor.
//
// A Parser moves through a fixed lifecycle: the banner is scanned, then the
// size line, then the data body exactly once. Calling an operation out of
// order returns a types.KindUsage error.
//
// # Basic Usage
//
//	cur, err := cursor.NewReaderCursor(f, 64*1024)
//	if err != nil {
//	    return err
//	}
//	p := parser.New(cur, &parser.Config{Workers: 4})
//	if err := p.ScanPreamble(); err != nil {
//	    return err
//	}
//	_, err = parser.ScanReal(ctx, p, func(row, col uint64, v float64) bool {
//	    fmt.Println(row, col, v)
//	    return true
//	})
//
// The value type is chosen by the caller through the generic scans
// (ScanInteger, ScanReal, ScanComplex, ScanPattern) or from the banner with
// (*Parser).ScanEntries.
//
// # Parallel Scans
//
// With Config.Workers greater than one the body is cut into newline-aligned
// blocks that are parsed by a fixed pool of goroutines. Entries are still
// delivered to the callback in file order on the calling goroutine, and the
// error returned for a malformed file is the same one a serial scan returns.
//
// # Errors
//
// Every failure is a *types.ParseError carrying a kind and a 1-based line
// number. Entries delivered before a failure are not retracted.
package parser
