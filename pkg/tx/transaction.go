// Package tx defines transaction types and the validation steps that do not
// require chain context (see package validate for the contextual phases).
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"github.com/k-nuth/blockchain-sub001/pkg/crypto"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// Transaction represents a transaction as it appears on the wire: a set of
// inputs spending prior outputs, a set of new outputs, and a locktime.
// Scripts are opaque byte strings; interpreting them is the job of the
// external VerifyScript collaborator (see pkg/script), never this package.
type Transaction struct {
	Version  uint32   `json:"version"`
	Inputs   []Input  `json:"inputs"`
	Outputs  []Output `json:"outputs"`
	LockTime uint32   `json:"locktime"`
}

// Input references a UTXO being spent and carries the unlocking script that
// proves the right to spend it.
type Input struct {
	PrevOut         types.Outpoint `json:"prevout"`
	UnlockingScript []byte         `json:"unlocking_script"`
	Sequence        uint32         `json:"sequence"`
}

// inputJSON is the JSON representation of Input with a hex-encoded script.
type inputJSON struct {
	PrevOut         types.Outpoint `json:"prevout"`
	UnlockingScript string         `json:"unlocking_script"`
	Sequence        uint32         `json:"sequence"`
}

// MarshalJSON encodes the input with a hex-encoded unlocking script.
func (in Input) MarshalJSON() ([]byte, error) {
	return json.Marshal(inputJSON{
		PrevOut:         in.PrevOut,
		UnlockingScript: hex.EncodeToString(in.UnlockingScript),
		Sequence:        in.Sequence,
	})
}

// UnmarshalJSON decodes an input with a hex-encoded unlocking script.
func (in *Input) UnmarshalJSON(data []byte) error {
	var j inputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	in.PrevOut = j.PrevOut
	in.Sequence = j.Sequence
	if j.UnlockingScript != "" {
		b, err := hex.DecodeString(j.UnlockingScript)
		if err != nil {
			return fmt.Errorf("invalid unlocking script hex: %w", err)
		}
		in.UnlockingScript = b
	}
	return nil
}

// Output defines a new UTXO.
type Output = types.Output

// Hash computes the transaction id: BLAKE3 over the canonical signing bytes.
// Unlocking scripts of non-coinbase inputs are excluded so a transaction's
// id is stable across re-signing with the same prevouts and outputs.
func (t *Transaction) Hash() types.Hash {
	return crypto.Hash(t.SigningBytes())
}

// SigningBytes returns the canonical byte representation used for hashing.
// Format: version(4) | input_count(4) | [prevout(36) + sequence(4)]... |
// output_count(4) | [value(8) + script_len(4) + script]... | locktime(4).
// A coinbase input's unlocking script (arbitrary extra nonce/height data) is
// included so that distinct coinbase transactions hash differently.
func (t *Transaction) SigningBytes() []byte {
	var buf []byte

	buf = binary.LittleEndian.AppendUint32(buf, t.Version)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Inputs)))
	for _, in := range t.Inputs {
		buf = append(buf, in.PrevOut.TxID[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, in.PrevOut.Index)
		buf = binary.LittleEndian.AppendUint32(buf, in.Sequence)
		if in.PrevOut.IsZero() {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(in.UnlockingScript)))
			buf = append(buf, in.UnlockingScript...)
		}
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Outputs)))
	for _, out := range t.Outputs {
		buf = binary.LittleEndian.AppendUint64(buf, out.Value)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(out.Script)))
		buf = append(buf, out.Script...)
	}

	buf = binary.LittleEndian.AppendUint32(buf, t.LockTime)

	return buf
}

// Size returns the canonical serialized size in bytes, used for fee-rate and
// sigop-limit computations.
func (t *Transaction) Size() int {
	return len(t.SigningBytes())
}

// IsCoinbase reports whether this transaction has the single zero-outpoint
// input that marks a block's coinbase.
func (t *Transaction) IsCoinbase() bool {
	return len(t.Inputs) == 1 && t.Inputs[0].PrevOut.IsZero()
}

// TotalOutputValue returns the sum of all output values, erroring on
// overflow.
func (t *Transaction) TotalOutputValue() (uint64, error) {
	var total uint64
	for _, out := range t.Outputs {
		if total > math.MaxUint64-out.Value {
			return 0, fmt.Errorf("output value overflow")
		}
		total += out.Value
	}
	return total, nil
}
