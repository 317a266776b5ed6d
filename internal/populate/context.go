// Package populate attaches chain-context metadata — prevout lookups,
// duplicate-coinbase flags, mempool-membership flags — to a candidate
// block or transaction before internal/validate runs its contextual
// checks. It never mutates the block/transaction handle itself; every
// result lives on a side-channel Context discarded after the pass.
package populate

import (
	"github.com/k-nuth/blockchain-sub001/internal/chainstate"
	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// Prevout is the per-input record spec.md §3 attaches mutably to a
// transaction handle during a single validation pass.
type Prevout struct {
	Spent          bool
	Confirmed      bool
	Coinbase       bool
	Height         uint64
	MedianTimePast uint32
	Cache          *types.Output
	FromMempool    bool
}

// Context is the mutable validation-context side channel for one
// transaction during one validation pass. Never persisted; discarded once
// check/accept/connect complete.
type Context struct {
	State     *chainstate.ChainState
	Prevouts  []Prevout // parallel to Transaction.Inputs
	Duplicate bool
	Pooled    bool
	Current   bool
}

// NewContext allocates a Context sized to the transaction's input count.
func NewContext(transaction *tx.Transaction) *Context {
	return &Context{Prevouts: make([]Prevout, len(transaction.Inputs))}
}

// MissingPrevouts reports the input indices whose prevout was not found in
// any source (chain, branch, or mempool) and is not the coinbase sentinel.
func (c *Context) MissingPrevouts(transaction *tx.Transaction) []int {
	var missing []int
	for i, in := range transaction.Inputs {
		if in.PrevOut.IsZero() {
			continue
		}
		if c.Prevouts[i].Cache == nil {
			missing = append(missing, i)
		}
	}
	return missing
}
