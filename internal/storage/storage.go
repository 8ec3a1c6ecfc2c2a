package storage

import (
	"context"
	"math"
	"time"

	"github.com/tatami-inc/eminem-sub000/pkg/types"
)

// Storage defines the interface for persisting loaded matrices
type Storage interface {
	// Matrix operations
	UpsertMatrix(ctx context.Context, matrix *Matrix) error
	GetMatrix(ctx context.Context, path string) (*Matrix, error)
	GetMatrixByID(ctx context.Context, matrixID int64) (*Matrix, error)
	ListMatrices(ctx context.Context) ([]*Matrix, error)
	DeleteMatrix(ctx context.Context, matrixID int64) error

	// Entry operations
	InsertEntries(ctx context.Context, entries []Entry) error
	DeleteEntries(ctx context.Context, matrixID int64) error
	ListEntries(ctx context.Context, matrixID int64, filter *EntryFilter) ([]*Entry, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Matrix is a loaded Matrix Market file: its banner, size line and source.
// Rows, Cols and Lines are stored as the bit pattern of an int64, so the full
// uint64 range survives a round trip.
type Matrix struct {
	ID          int64
	Path        string
	ContentHash [32]byte
	Object      string
	Format      string
	Field       string
	Symmetry    string
	Rows        uint64
	Cols        uint64
	Lines       uint64
	EntryCount  int64
	SizeBytes   int64
	Compression string
	ModTime     time.Time
	ParseError  *string // Nullable
	LoadedAt    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Entry is one stored data line. Only the value column matching the matrix
// field is meaningful.
type Entry struct {
	MatrixID int64
	Seq      int64 // 0-based position in the file
	Row      uint64
	Col      uint64
	Real     float64
	Imag     float64
	Integer  int64
}

// EntryFilter narrows ListEntries. Zero values mean no constraint.
type EntryFilter struct {
	Row    uint64
	Col    uint64
	Limit  int
	Offset int
}

// Status contains statistics about the store
type Status struct {
	MatricesCount int
	FailedCount   int
	EntriesCount  int64
	SizeMB        float64
	LastLoadedAt  time.Time
	Health        HealthStatus
}

// HealthStatus represents the health of the store
type HealthStatus struct {
	DatabaseAccessible bool
	SchemaVersion      string
}

// Descriptor converts the stored banner to types.Descriptor
func (m *Matrix) Descriptor() types.Descriptor {
	return types.Descriptor{
		Object:   types.Object(m.Object),
		Format:   types.Format(m.Format),
		Field:    types.Field(m.Field),
		Symmetry: types.Symmetry(m.Symmetry),
	}
}

// Dimensions converts the stored size line to types.Dimensions
func (m *Matrix) Dimensions() types.Dimensions {
	return types.Dimensions{Rows: m.Rows, Cols: m.Cols, Lines: m.Lines}
}

// SetDescriptor copies a parsed banner into the record
func (m *Matrix) SetDescriptor(desc types.Descriptor) {
	m.Object = string(desc.Object)
	m.Format = string(desc.Format)
	m.Field = string(desc.Field)
	m.Symmetry = string(desc.Symmetry)
}

// SetDimensions copies a parsed size line into the record
func (m *Matrix) SetDimensions(dims types.Dimensions) {
	m.Rows, m.Cols, m.Lines = dims.Rows, dims.Cols, dims.Lines
}

// ToTypesEntry converts a stored Entry to types.Entry for the given field
func (e *Entry) ToTypesEntry(field types.Field) types.Entry {
	v := types.Value{Field: field}
	switch field {
	case types.FieldInteger:
		v.Integer = e.Integer
	case types.FieldComplex:
		v.Complex = complex(e.Real, e.Imag)
	case types.FieldPattern:
	default:
		v.Real = e.Real
	}
	return types.Entry{Row: e.Row, Col: e.Col, Value: v}
}

// FromTypesEntry converts types.Entry to a storage Entry
func FromTypesEntry(e types.Entry, matrixID, seq int64) Entry {
	out := Entry{MatrixID: matrixID, Seq: seq, Row: e.Row, Col: e.Col}
	switch e.Value.Field {
	case types.FieldInteger:
		out.Integer = e.Value.Integer
		out.Real = float64(e.Value.Integer)
	case types.FieldComplex:
		out.Real = real(e.Value.Complex)
		out.Imag = imag(e.Value.Complex)
	case types.FieldPattern:
		out.Real = 1
	default:
		out.Real = e.Value.Real
	}
	return out
}

// nullableFloat maps NaN to NULL, which is how SQLite stores it anyway.
func nullableFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
