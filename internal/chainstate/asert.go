package chainstate

import "math/big"

// asertFixedPointShift is the number of fractional bits used while
// exponentiating by a non-integer number of halvings.
const asertFixedPointShift = 16

// polynomial coefficients for the cubic approximation of 2^(frac/65536) used
// by the aserti3-2d difficulty algorithm, frac in [0, 65536).
var (
	asertCoeffA = big.NewInt(195766423245049)
	asertCoeffB = big.NewInt(971821376)
	asertCoeffC = big.NewInt(5127)
)

// CalculateASERT computes next-block target bits using BCH's absolutely
// scheduled exponentially rising targets algorithm (aserti3-2d). The target
// is anchored to a single fixed block rather than re-derived from a sliding
// window, so drift from one bad timestamp never compounds.
//
// heightDiff is evalParentHeight - anchor.Height (must be >= 0, since the
// evaluated block's parent is never below the anchor); the +1 in the
// exponent accounts for the evaluated block itself. timeDiff is
// evalParentTime - anchor.AncestorTime.
// halfLife and targetSpacing are both in seconds.
func CalculateASERT(anchor ASERTAnchor, heightDiff int64, timeDiff int64, halfLife uint32, targetSpacing uint32) uint32 {
	anchorTarget := CompactToBig(anchor.Bits)
	if anchorTarget.Sign() <= 0 {
		return anchor.Bits
	}

	// exponent = ((timeDiff - (heightDiff+1)*targetSpacing) << shift) / halfLife
	numerator := timeDiff - (heightDiff+1)*int64(targetSpacing)
	exponent := new(big.Int).Lsh(big.NewInt(numerator), asertFixedPointShift)
	exponent.Quo(exponent, big.NewInt(int64(halfLife)))

	shifts := new(big.Int).Rsh(exponent, asertFixedPointShift)
	// Floor division: Rsh on a negative big.Int already floors toward
	// negative infinity, matching the reference algorithm's intent.
	frac := new(big.Int).Sub(exponent, new(big.Int).Lsh(shifts, asertFixedPointShift))

	target := applyASERTExponent(anchorTarget, shifts.Int64(), frac.Uint64())

	maxTarget := CompactToBig(0x1d00ffff) // permissive ceiling; callers clamp further via network-specific pow limit.
	if target.Cmp(maxTarget) > 0 {
		target = maxTarget
	}
	if target.Sign() <= 0 {
		target = big.NewInt(1)
	}
	return BigToCompact(target)
}

// applyASERTExponent multiplies target by 2^(shifts + frac/65536), frac in
// [0, 65536), via a cubic polynomial approximation of the fractional part.
func applyASERTExponent(target *big.Int, shifts int64, frac uint64) *big.Int {
	f := new(big.Int).SetUint64(frac)

	// factor = 65536 + (A*f + B*f^2 + C*f^3 + 2^47) >> 48, scaled by 2^16.
	f2 := new(big.Int).Mul(f, f)
	f3 := new(big.Int).Mul(f2, f)

	term := new(big.Int).Mul(asertCoeffA, f)
	term.Add(term, new(big.Int).Mul(asertCoeffB, f2))
	term.Add(term, new(big.Int).Mul(asertCoeffC, f3))
	term.Add(term, new(big.Int).Lsh(big.NewInt(1), 47))
	term.Rsh(term, 48)

	factor := new(big.Int).Add(big.NewInt(1<<asertFixedPointShift), term)

	result := new(big.Int).Mul(target, factor)
	result.Rsh(result, asertFixedPointShift)

	if shifts >= 0 {
		result.Lsh(result, uint(shifts))
	} else {
		result.Rsh(result, uint(-shifts))
	}
	return result
}
