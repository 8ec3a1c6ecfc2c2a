package types

import "fmt"

// Object is the first banner token: what kind of container the file holds.
type Object string

const (
	ObjectMatrix Object = "matrix"
	ObjectVector Object = "vector"
)

// Format is the storage layout of the data body.
type Format string

const (
	FormatCoordinate Format = "coordinate"
	FormatArray      Format = "array"
)

// Field is the type of the values stored in the data body.
type Field string

const (
	FieldReal    Field = "real"
	FieldDouble  Field = "double"
	FieldComplex Field = "complex"
	FieldInteger Field = "integer"
	FieldPattern Field = "pattern"
)

// Symmetry is the declared structural symmetry of a matrix. It is informational
// only; the parser never synthesizes the omitted half.
type Symmetry string

const (
	SymmetryGeneral       Symmetry = "general"
	SymmetrySymmetric     Symmetry = "symmetric"
	SymmetrySkewSymmetric Symmetry = "skew-symmetric"
	SymmetryHermitian     Symmetry = "hermitian"
)

// Descriptor is the parsed banner line
type Descriptor struct {
	Object   Object
	Format   Format
	Field    Field
	Symmetry Symmetry
}

// String renders the descriptor as the banner line that would produce it.
func (d Descriptor) String() string {
	if d.Object == ObjectVector {
		return fmt.Sprintf("%%%%MatrixMarket %s %s %s", d.Object, d.Format, d.Field)
	}
	return fmt.Sprintf("%%%%MatrixMarket %s %s %s %s", d.Object, d.Format, d.Field, d.Symmetry)
}

// IsCoordinate reports whether data lines carry explicit indices.
func (d Descriptor) IsCoordinate() bool {
	return d.Format == FormatCoordinate
}

// IsVector reports whether the object is a vector (a single column).
func (d Descriptor) IsVector() bool {
	return d.Object == ObjectVector
}

// IndexFields returns how many leading index fields every data line carries.
func (d Descriptor) IndexFields() int {
	switch {
	case d.Format == FormatArray:
		return 0
	case d.Object == ObjectVector:
		return 1
	default:
		return 2
	}
}

// Dimensions holds the values of the size line.
// For array files Lines is derived; for vectors Cols is always 1.
type Dimensions struct {
	Rows  uint64
	Cols  uint64
	Lines uint64
}
