package numeric

import "math/big"

// mprealPrec is the working precision, in bits, for the MPReal backend.
const mprealPrec = 128

// MPReal is the optional arbitrary-precision backend (§4.A): a reference
// implementation used to sanity-check the other backends against rounding
// error, not required for production decoding.
type MPReal struct {
	v *big.Float
}

func mprealOf(v *big.Float) MPReal { return MPReal{v: v} }

func (a MPReal) ensure() *big.Float {
	if a.v == nil {
		return new(big.Float).SetPrec(mprealPrec)
	}
	return a.v
}

func (a MPReal) Add(b MPReal) MPReal {
	return mprealOf(new(big.Float).SetPrec(mprealPrec).Add(a.ensure(), b.ensure()))
}

func (a MPReal) Mul(b MPReal) MPReal {
	return mprealOf(new(big.Float).SetPrec(mprealPrec).Mul(a.ensure(), b.ensure()))
}

func (a MPReal) Div(b MPReal) MPReal {
	return mprealOf(new(big.Float).SetPrec(mprealPrec).Quo(a.ensure(), b.ensure()))
}

func (a MPReal) Recip() MPReal {
	one := new(big.Float).SetPrec(mprealPrec).SetInt64(1)
	return mprealOf(new(big.Float).SetPrec(mprealPrec).Quo(one, a.ensure()))
}

func (a MPReal) Greater(b MPReal) bool {
	return a.ensure().Cmp(b.ensure()) > 0
}

func (a MPReal) IsZero() bool {
	return a.v == nil || a.v.Sign() == 0
}

func (a MPReal) Float64() float64 {
	f, _ := a.ensure().Float64()
	return f
}

func (MPReal) FromFloat64(f float64) MPReal {
	return mprealOf(new(big.Float).SetPrec(mprealPrec).SetFloat64(f))
}

func (MPReal) FromInt(n int) MPReal {
	return mprealOf(new(big.Float).SetPrec(mprealPrec).SetInt64(int64(n)))
}
