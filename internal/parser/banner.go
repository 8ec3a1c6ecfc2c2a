package parser

import (
	"github.com/tatami-inc/eminem-sub000/pkg/types"
)

const bannerMagic = "MatrixMarket"

// scanBanner parses "%%MatrixMarket <object> <format> <field> [<symmetry>]" and
// leaves the cursor at the start of the following line.
func scanBanner(in *input) (types.Descriptor, error) {
	var desc types.Descriptor

	if !in.valid() {
		return desc, in.fail(types.KindGrammar, "failed to find banner; the file is empty")
	}
	if err := scanBannerMagic(in); err != nil {
		return desc, err
	}

	token, err := bannerToken(in, "object")
	if err != nil {
		return desc, err
	}
	switch {
	case token[0] == 'm' && string(token) == "matrix":
		desc.Object = types.ObjectMatrix
	case token[0] == 'v' && string(token) == "vector":
		desc.Object = types.ObjectVector
	default:
		return desc, in.fail(types.KindGrammar, "object field in the banner should be 'matrix' or 'vector', got %q", string(token))
	}

	token, err = bannerToken(in, "format")
	if err != nil {
		return desc, err
	}
	switch {
	case token[0] == 'c' && string(token) == "coordinate":
		desc.Format = types.FormatCoordinate
	case token[0] == 'a' && string(token) == "array":
		desc.Format = types.FormatArray
	default:
		return desc, in.fail(types.KindGrammar, "format field in the banner should be 'coordinate' or 'array', got %q", string(token))
	}

	token, err = bannerToken(in, "field")
	if err != nil {
		return desc, err
	}
	field, ok := parseField(token)
	if !ok {
		return desc, in.fail(types.KindGrammar,
			"field in the banner should be one of 'real', 'double', 'complex', 'integer' or 'pattern', got %q", string(token))
	}
	desc.Field = field
	if field == types.FieldPattern && desc.Format == types.FormatArray {
		return desc, in.fail(types.KindGrammar, "pattern field cannot be used with array format")
	}

	// Vectors stop at the field; whatever follows is ignored.
	desc.Symmetry = types.SymmetryGeneral
	if desc.Object == types.ObjectMatrix {
		token, err = bannerToken(in, "symmetry")
		if err != nil {
			return desc, err
		}
		symmetry, ok := parseSymmetry(token)
		if !ok {
			return desc, in.fail(types.KindGrammar,
				"symmetry in the banner should be one of 'general', 'symmetric', 'skew-symmetric' or 'hermitian', got %q", string(token))
		}
		desc.Symmetry = symmetry
	}

	skipRestOfLine(in)
	return desc, nil
}

// scanBannerMagic consumes "%%MatrixMarket" or "%MatrixMarket".
func scanBannerMagic(in *input) error {
	if in.get() != '%' {
		return in.fail(types.KindGrammar, "first line of the file should be the banner")
	}
	if !in.advance() {
		return in.fail(types.KindGrammar, "unexpected end of file in the banner")
	}
	if in.get() == '%' {
		if !in.advance() {
			return in.fail(types.KindGrammar, "unexpected end of file in the banner")
		}
	}

	for i := 0; i < len(bannerMagic); i++ {
		if in.get() != bannerMagic[i] {
			return in.fail(types.KindGrammar, "first line of the file should be the banner")
		}
		if !in.advance() {
			return in.fail(types.KindGrammar, "unexpected end of file before the object field in the banner")
		}
	}

	if c := in.get(); c != '\n' && !isBlank(c) {
		return in.fail(types.KindGrammar, "first line of the file should be the banner")
	}
	return nil
}

// bannerToken skips the blanks before the next banner field and reads it.
// The returned slice is only valid until the next token is read.
func bannerToken(in *input, name string) ([]byte, error) {
	if !in.skipBlanks() {
		return nil, in.fail(types.KindGrammar, "unexpected end of file before the %s field in the banner", name)
	}
	if in.get() == '\n' {
		return nil, in.fail(types.KindGrammar, "unexpected end of line before the %s field in the banner", name)
	}

	in.token = in.token[:0]
	for in.valid() {
		c := in.get()
		if c == '\n' || isBlank(c) {
			break
		}
		in.token = append(in.token, c)
		in.advance()
	}
	return in.token, nil
}

func parseField(token []byte) (types.Field, bool) {
	switch token[0] {
	case 'r':
		if string(token) == "real" {
			return types.FieldReal, true
		}
	case 'd':
		if string(token) == "double" {
			return types.FieldDouble, true
		}
	case 'c':
		if string(token) == "complex" {
			return types.FieldComplex, true
		}
	case 'i':
		if string(token) == "integer" {
			return types.FieldInteger, true
		}
	case 'p':
		if string(token) == "pattern" {
			return types.FieldPattern, true
		}
	}
	return "", false
}

func parseSymmetry(token []byte) (types.Symmetry, bool) {
	switch token[0] {
	case 'g':
		if string(token) == "general" {
			return types.SymmetryGeneral, true
		}
	case 'h':
		if string(token) == "hermitian" {
			return types.SymmetryHermitian, true
		}
	case 's':
		if len(token) < 2 {
			return "", false
		}
		switch token[1] {
		case 'y':
			if string(token) == "symmetric" {
				return types.SymmetrySymmetric, true
			}
		case 'k':
			if string(token) == "skew-symmetric" {
				return types.SymmetrySkewSymmetric, true
			}
		}
	}
	return "", false
}

// skipRestOfLine consumes everything up to and including the next newline.
func skipRestOfLine(in *input) {
	for in.valid() {
		c := in.get()
		in.advance()
		if c == '\n' {
			return
		}
	}
}
