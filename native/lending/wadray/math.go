// Package wadray implements the fixed-point arithmetic used by lending
// reserves. Amounts are wads (1e18), rates and indexes are rays (1e27) and
// percentages are expressed against a 1e4 factor. Every multiply and divide
// rounds half up by adding half of the divisor before truncating.
package wadray

import "math/big"

var (
	WAD             = MustBig("1000000000000000000")
	HalfWAD         = new(big.Int).Rsh(WAD, 1)
	RAY             = MustBig("1000000000000000000000000000")
	HalfRAY         = new(big.Int).Rsh(RAY, 1)
	RayWadRatio     = big.NewInt(1_000_000_000)
	HalfRayWadRatio = new(big.Int).Rsh(RayWadRatio, 1)

	PercentageFactor = big.NewInt(10_000)
	HalfPercentage   = big.NewInt(5_000)
)

// MustBig parses a base-10 integer constant and panics on malformed input.
func MustBig(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("wadray: invalid big integer constant " + value)
	}
	return v
}

// Zero returns a fresh zero value.
func Zero() *big.Int { return new(big.Int) }

// Clone returns a copy of x, treating nil as zero.
func Clone(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}

// RayMul returns (a*b + RAY/2) / RAY.
func RayMul(a, b *big.Int) *big.Int {
	return mulHalfUp(a, b, RAY, HalfRAY)
}

// RayDiv returns (a*RAY + b/2) / b.
func RayDiv(a, b *big.Int) *big.Int {
	return divHalfUp(a, b, RAY)
}

// WadMul returns (a*b + WAD/2) / WAD.
func WadMul(a, b *big.Int) *big.Int {
	return mulHalfUp(a, b, WAD, HalfWAD)
}

// WadDiv returns (a*WAD + b/2) / b.
func WadDiv(a, b *big.Int) *big.Int {
	return divHalfUp(a, b, WAD)
}

// WadToRay scales a wad up to a ray. The conversion is exact.
func WadToRay(x *big.Int) *big.Int {
	return new(big.Int).Mul(Clone(x), RayWadRatio)
}

// RayToWad scales a ray down to a wad, rounding half up.
func RayToWad(x *big.Int) *big.Int {
	out := new(big.Int).Add(Clone(x), HalfRayWadRatio)
	return out.Quo(out, RayWadRatio)
}

// PercentMul returns (x*p + 5000) / 10000 where p is in basis points.
func PercentMul(x, p *big.Int) *big.Int {
	return mulHalfUp(x, p, PercentageFactor, HalfPercentage)
}

// PercentDiv returns (x*10000 + p/2) / p where p is in basis points.
func PercentDiv(x, p *big.Int) *big.Int {
	return divHalfUp(x, p, PercentageFactor)
}

func mulHalfUp(a, b, unit, half *big.Int) *big.Int {
	product := new(big.Int).Mul(Clone(a), Clone(b))
	product.Add(product, half)
	return product.Quo(product, unit)
}

// divHalfUp panics when b is zero; callers short-circuit empty divisors.
func divHalfUp(a, b, unit *big.Int) *big.Int {
	if b == nil || b.Sign() == 0 {
		panic("wadray: division by zero")
	}
	numerator := new(big.Int).Mul(Clone(a), unit)
	numerator.Add(numerator, new(big.Int).Rsh(b, 1))
	return numerator.Quo(numerator, b)
}
