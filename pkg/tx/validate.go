package tx

import (
	"errors"
	"fmt"
	"math"

	"github.com/k-nuth/blockchain-sub001/config"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// Structural validation errors — context-free, checkable without chain state.
var (
	ErrNoInputs           = errors.New("transaction has no inputs")
	ErrNoOutputs          = errors.New("transaction has no outputs")
	ErrDuplicateInput     = errors.New("duplicate input")
	ErrOutputOverflow     = errors.New("output values overflow")
	ErrZeroOutput         = errors.New("output value is zero")
	ErrOutputTooLarge     = errors.New("output value exceeds max supply")
	ErrMissingUnlock      = errors.New("input missing unlocking script")
	ErrTooManyInputs      = errors.New("too many inputs")
	ErrTooManyOutputs     = errors.New("too many outputs")
	ErrScriptDataTooLarge = errors.New("script data too large")
	ErrBadCoinbaseShape   = errors.New("coinbase transaction has wrong shape")
)

// sigopsPerUnlockByte is the divisor used to turn an unlocking script's
// length into a worst-case legacy sigop count, the way EstimateSigops bounds
// sigops from serialized size alone rather than parsing opcodes (script
// interpretation is out of scope for this package).
const sigopsPerUnlockByte = 33 // size of a minimal sig-push + pubkey-push pair.

// Check performs the context-free phase of transaction validation: syntax,
// ranges, coinbase shape, and script element limits. It does not bound the
// transaction's sigops; EstimateSigops computes that count separately.
// It never touches chain state or the UTXO set.
func (t *Transaction) Check() error {
	if len(t.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(t.Outputs) == 0 {
		return ErrNoOutputs
	}
	if len(t.Inputs) > config.MaxTxInputs {
		return fmt.Errorf("%w: %d inputs, max %d", ErrTooManyInputs, len(t.Inputs), config.MaxTxInputs)
	}
	if len(t.Outputs) > config.MaxTxOutputs {
		return fmt.Errorf("%w: %d outputs, max %d", ErrTooManyOutputs, len(t.Outputs), config.MaxTxOutputs)
	}

	if t.IsCoinbase() {
		if len(t.Inputs) != 1 {
			return fmt.Errorf("%w: coinbase must have exactly one input, got %d", ErrBadCoinbaseShape, len(t.Inputs))
		}
	} else {
		for i, in := range t.Inputs {
			if in.PrevOut.IsZero() {
				return fmt.Errorf("input %d: %w: zero prevout outside coinbase position", i, ErrBadCoinbaseShape)
			}
		}
	}

	seen := make(map[types.Outpoint]bool, len(t.Inputs))
	for i, in := range t.Inputs {
		if seen[in.PrevOut] {
			return fmt.Errorf("input %d: %w", i, ErrDuplicateInput)
		}
		seen[in.PrevOut] = true
		if !in.PrevOut.IsZero() && len(in.UnlockingScript) == 0 {
			return fmt.Errorf("input %d: %w", i, ErrMissingUnlock)
		}
	}

	var totalOutput uint64
	for i, out := range t.Outputs {
		if out.Value == 0 {
			return fmt.Errorf("output %d: %w", i, ErrZeroOutput)
		}
		if out.Value > config.MaxOutputValue {
			return fmt.Errorf("output %d: %w", i, ErrOutputTooLarge)
		}
		if len(out.Script) > config.MaxScriptData {
			return fmt.Errorf("output %d: %w: %d bytes, max %d", i, ErrScriptDataTooLarge, len(out.Script), config.MaxScriptData)
		}
		if totalOutput > math.MaxUint64-out.Value {
			return fmt.Errorf("output %d: %w", i, ErrOutputOverflow)
		}
		totalOutput += out.Value
	}

	return nil
}

// EstimateSigops returns a worst-case legacy sigop count derived purely from
// unlocking-script sizes rather than from walking opcodes. Block accept
// sums it over a block's transactions; Check does not call it.
func (t *Transaction) EstimateSigops() int {
	count := 0
	for _, in := range t.Inputs {
		if in.PrevOut.IsZero() {
			continue
		}
		n := len(in.UnlockingScript) / sigopsPerUnlockByte
		if n == 0 {
			n = 1
		}
		count += n
	}
	return count
}
