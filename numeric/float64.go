package numeric

// Float64 is the "real" backend variant (§4.A): a plain IEEE double. It is
// the fastest backend and the right default when tau is small and
// normalisation is applied aggressively enough to keep values in range.
type Float64 float64

func (a Float64) Add(b Float64) Float64 { return a + b }
func (a Float64) Mul(b Float64) Float64 { return a * b }
func (a Float64) Div(b Float64) Float64 { return a / b }
func (a Float64) Recip() Float64        { return 1 / a }
func (a Float64) Greater(b Float64) bool { return a > b }
func (a Float64) IsZero() bool          { return a == 0 }
func (a Float64) Float64() float64      { return float64(a) }

func (Float64) FromFloat64(f float64) Float64 { return Float64(f) }
func (Float64) FromInt(n int) Float64          { return Float64(n) }
