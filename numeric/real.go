// Package numeric defines the arithmetic trait every decoder backend in
// turbosim is parameterised on: plain double-precision floats, log-domain
// reals, and (optionally) arbitrary-precision reals. Decoder code never
// touches float64 directly for state metrics - it is written generically
// against the Real constraint and monomorphised by the compiler per backend,
// the same way m17/transform.go constrains its signal-processing pipeline
// with golang.org/x/exp/constraints instead of hard-coding float32.
package numeric

// Real is implemented by every concrete numeric backend (Float64, LogReal,
// MPReal). T is the concrete backend type itself - an F-bounded constraint,
// so that bcjr.Decoder[T numeric.Real[T]] can be monomorphised without boxing every
// arithmetic op behind an interface call.
//
// All operations are value semantics: they return a new T rather than
// mutating the receiver, matching the "root vs non-root vectors" design
// note - decoder interiors never need aliasing or ownership transfer.
type Real[T any] interface {
	Add(T) T
	Mul(T) T
	Div(T) T
	Recip() T
	// Greater reports whether the receiver is strictly greater than other.
	Greater(other T) bool
	IsZero() bool
	// Float64 converts to the "dbl" secondary type used for posteriors.
	Float64() float64
	// FromFloat64 and FromInt construct a new value of the backend type.
	// The receiver is ignored; they exist on the interface so generic code
	// can manufacture constants without knowing the concrete type.
	FromFloat64(float64) T
	FromInt(int) T
}

// Zero returns the additive identity of backend T.
func Zero[T Real[T]]() T {
	var z T
	return z.FromFloat64(0)
}

// One returns the multiplicative identity of backend T.
func One[T Real[T]]() T {
	var z T
	return z.FromFloat64(1)
}

// RowMax returns the largest element of row, or the zero value if row is
// empty. Normalisation throughout the decoding core divides by this value
// rather than by the row sum, per the specification's canonical choice for
// dynamic-range control.
func RowMax[T Real[T]](row []T) T {
	if len(row) == 0 {
		var z T
		return z
	}
	max := row[0]
	for _, v := range row[1:] {
		if v.Greater(max) {
			max = v
		}
	}
	return max
}

// Normalize divides every element of row by RowMax(row) in place. A
// strictly-zero row max is a numeric underflow: the caller must check for
// it (see the bcjr and fba packages' ErrUnderflow) before calling Normalize,
// since dividing by zero here is a programmer error, not a recoverable one.
func Normalize[T Real[T]](row []T) {
	max := RowMax(row)
	if max.IsZero() {
		panic("numeric: Normalize called on an all-zero row")
	}
	inv := max.Recip()
	for i, v := range row {
		row[i] = v.Mul(inv)
	}
}
