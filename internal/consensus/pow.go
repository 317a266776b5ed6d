package consensus

import (
	"errors"
	"math/big"

	"github.com/k-nuth/blockchain-sub001/internal/chainstate"
	"github.com/k-nuth/blockchain-sub001/pkg/block"
)

// ErrInsufficientWork is returned when a header's hash does not meet the
// target its own Bits field encodes.
var ErrInsufficientWork = errors.New("hash does not meet difficulty target")

// ErrZeroTarget is returned for a header whose Bits decode to a zero or
// negative target, which can never be satisfied by any hash.
var ErrZeroTarget = errors.New("bits field decodes to a non-positive target")

// PoW checks a header's proof-of-work against its own Bits field. It does
// not decide what Bits *should* be at a given height — that projection
// comes from internal/chainstate's ASERT implementation and is compared
// against header.Bits by internal/validate before PoW ever runs.
type PoW struct{}

// VerifyHeader checks that the header hash, interpreted as a little-endian
// 256-bit integer, does not exceed the target its Bits field decodes to.
func (PoW) VerifyHeader(header *block.Header) error {
	target := chainstate.CompactToBig(header.Bits)
	if target.Sign() <= 0 {
		return ErrZeroTarget
	}
	hash := header.Hash()
	hashInt := new(big.Int).SetBytes(reverse(hash[:]))
	if hashInt.Cmp(target) > 0 {
		return ErrInsufficientWork
	}
	return nil
}

// reverse returns a byte-reversed copy of b, so that big.Int.SetBytes (which
// reads big-endian) sees the hash as a little-endian integer, the usual
// Bitcoin-derived "hash meets target" convention.
func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
