// Package types provides shared type definitions for the Matrix Market toolkit.
//
// This package defines the domain types used across the parser, the loader,
// storage and the MCP server: the banner descriptor, the size line dimensions,
// parsed entries and the parse error taxonomy.
//
// # Descriptor
//
// Descriptor is the parsed banner line. Every field is a string-backed enum
// whose value is the literal token found in the file:
//
//	d := types.Descriptor{
//	    Object:   types.ObjectMatrix,
//	    Format:   types.FormatCoordinate,
//	    Field:    types.FieldReal,
//	    Symmetry: types.SymmetryGeneral,
//	}
//	fmt.Println(d) // %%MatrixMarket matrix coordinate real general
//
// Vectors have no symmetry token; their Symmetry is always SymmetryGeneral.
//
// # Entries
//
// Entry is one data line after parsing. Row and Col are 1-based. Value is a
// field-tagged union used by the untyped scan path; the generic scanners in
// internal/parser deliver concrete Go numeric types instead.
//
// # Errors
//
// Every parse failure is a *ParseError carrying an ErrorKind and, where it
// applies, the 1-based line number. Kinds are matched with errors.Is against
// the sentinel errors:
//
//	if errors.Is(err, types.ErrCountMismatch) {
//	    log.Printf("truncated file: %v", err)
//	}
//
// Message text is diagnostic only; callers should branch on the kind.
package types
