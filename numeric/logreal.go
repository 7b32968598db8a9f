package numeric

import "math"

// logAddTableStep and logAddTableSize control the resolution and range of
// the tabulated Jacobian logarithm used by LogReal.Add. Differences beyond
// logAddTableMax contribute less than the table's resolution to the result,
// so they are treated as zero - the standard max-log correction-term cutoff
// used by logreal implementations in turbo-decoding literature.
const (
	logAddTableStep = 0.01
	logAddTableMax  = 20.0
	logAddTableSize = int(logAddTableMax/logAddTableStep) + 1
)

var logAddTable [logAddTableSize]float64

func init() {
	for i := range logAddTable {
		x := float64(i) * logAddTableStep
		logAddTable[i] = math.Log1p(math.Exp(-x))
	}
}

// logAdd returns log(exp(a)+exp(b)) via the Jacobian logarithm: max(a,b) +
// log1p(exp(-|a-b|)), with the correction term looked up from a precomputed
// table instead of calling math.Log1p/math.Exp on every addition.
func logAdd(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	hi, lo := a, b
	if lo > hi {
		hi, lo = lo, hi
	}
	d := hi - lo
	if d >= logAddTableMax {
		return hi
	}
	idx := int(d / logAddTableStep)
	return hi + logAddTable[idx]
}

// logSub returns log(exp(a)-exp(b)) for a >= b, via the complementary
// Jacobian logarithm max(a,b) + log1p(-exp(-|a-b|)).
func logSub(a, b float64) float64 {
	if math.IsInf(b, -1) {
		return a
	}
	d := a - b
	if d <= 0 {
		return math.Inf(-1)
	}
	if d >= logAddTableMax {
		return a
	}
	return a + math.Log1p(-math.Exp(-d))
}

// LogReal is the log-domain backend (§4.A): a sign plus a log-magnitude.
// Multiplication becomes addition in the log domain; addition uses the
// tabulated log-sum-exp above so long trellises never underflow a plain
// double's dynamic range.
type LogReal struct {
	neg bool
	log float64 // log(|v|); -Inf represents zero
}

func (a LogReal) Add(b LogReal) LogReal {
	if a.neg == b.neg {
		return LogReal{neg: a.neg, log: logAdd(a.log, b.log)}
	}
	// opposite signs: subtract magnitudes, keep the sign of the larger
	if a.log >= b.log {
		return LogReal{neg: a.neg, log: logSub(a.log, b.log)}
	}
	return LogReal{neg: b.neg, log: logSub(b.log, a.log)}
}

func (a LogReal) Mul(b LogReal) LogReal {
	return LogReal{neg: a.neg != b.neg, log: a.log + b.log}
}

func (a LogReal) Div(b LogReal) LogReal {
	return LogReal{neg: a.neg != b.neg, log: a.log - b.log}
}

func (a LogReal) Recip() LogReal {
	return LogReal{neg: a.neg, log: -a.log}
}

// Greater compares signed magnitudes without ever exponentiating the log
// value, so comparison stays safe across the whole dynamic range LogReal
// exists to cover.
func (a LogReal) Greater(b LogReal) bool {
	switch {
	case a.neg && !b.neg:
		return false
	case !a.neg && b.neg:
		return true
	case !a.neg && !b.neg:
		return a.log > b.log
	default: // both negative: larger magnitude is the smaller value
		return a.log < b.log
	}
}

func (a LogReal) IsZero() bool { return math.IsInf(a.log, -1) }

func (a LogReal) Float64() float64 {
	v := math.Exp(a.log)
	if a.neg {
		v = -v
	}
	return v
}

func (LogReal) FromFloat64(f float64) LogReal {
	if f == 0 {
		return LogReal{neg: false, log: math.Inf(-1)}
	}
	if f < 0 {
		return LogReal{neg: true, log: math.Log(-f)}
	}
	return LogReal{neg: false, log: math.Log(f)}
}

func (l LogReal) FromInt(n int) LogReal { return l.FromFloat64(float64(n)) }
