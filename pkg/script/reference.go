package script

import (
	"errors"
	"fmt"

	"github.com/k-nuth/blockchain-sub001/pkg/crypto"
	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// ErrScriptVerifyFailed is returned by Reference when a script fails.
var ErrScriptVerifyFailed = errors.New("script verification failed")

// Reference returns a minimal VerifyFunc usable in tests and as a default
// wiring when no external interpreter is configured. It implements a single
// pay-to-pubkey-hash template — locking script is a 32-byte BLAKE3 digest of
// the spender's compressed public key, unlocking script is a 64-byte Schnorr
// signature followed by the 33-byte compressed public key — and reports one
// sigcheck per non-coinbase input, mirroring how a real interpreter would
// report BCH sigchecks after running the actual opcodes.
//
// prevScript resolves the locking script of the outpoint being spent; the
// populator already holds this for every input it has filled in, so callers
// typically close over the validation context's prevout cache.
func Reference(prevScript func(i int) ([]byte, bool)) VerifyFunc {
	return func(t *tx.Transaction, i int, _ types.RuleFlags) (int, error) {
		if i < 0 || i >= len(t.Inputs) {
			return 0, fmt.Errorf("input index %d out of range", i)
		}
		in := t.Inputs[i]
		if in.PrevOut.IsZero() {
			return 0, nil // coinbase: no script to check.
		}

		locking, ok := prevScript(i)
		if !ok {
			return 0, fmt.Errorf("input %d: %w: no locking script available", i, ErrScriptVerifyFailed)
		}
		if len(locking) != types.HashSize {
			return 0, fmt.Errorf("input %d: %w: unsupported locking script length %d", i, ErrScriptVerifyFailed, len(locking))
		}

		unlocking := in.UnlockingScript
		if len(unlocking) != 64+33 {
			return 0, fmt.Errorf("input %d: %w: unsupported unlocking script length %d", i, ErrScriptVerifyFailed, len(unlocking))
		}
		sig := unlocking[:64]
		pubKey := unlocking[64:]

		want := crypto.Hash(pubKey)
		var got types.Hash
		copy(got[:], locking)
		if want != got {
			return 0, fmt.Errorf("input %d: %w: pubkey does not hash to locking script", i, ErrScriptVerifyFailed)
		}

		sigHash := t.Hash()
		if !crypto.VerifySignature(sigHash[:], sig, pubKey) {
			return 0, fmt.Errorf("input %d: %w: bad signature", i, ErrScriptVerifyFailed)
		}

		return 1, nil
	}
}
