package types

import "fmt"

// Value is a field-tagged data value, used where the caller does not know the
// field type at compile time. Only the member matching Field is meaningful.
type Value struct {
	Field   Field
	Integer int64
	Real    float64
	Complex complex128
}

// Float returns the value widened to a float64. Complex values return their
// real part and pattern values return 1.
func (v Value) Float() float64 {
	switch v.Field {
	case FieldInteger:
		return float64(v.Integer)
	case FieldComplex:
		return real(v.Complex)
	case FieldPattern:
		return 1
	default:
		return v.Real
	}
}

// String formats the value the way it would appear on a data line.
func (v Value) String() string {
	switch v.Field {
	case FieldInteger:
		return fmt.Sprintf("%d", v.Integer)
	case FieldComplex:
		return fmt.Sprintf("%g %g", real(v.Complex), imag(v.Complex))
	case FieldPattern:
		return ""
	default:
		return fmt.Sprintf("%g", v.Real)
	}
}

// Entry is one logical data line: a 1-based position and its value.
type Entry struct {
	Row   uint64
	Col   uint64
	Value Value
}
