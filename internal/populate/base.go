package populate

import (
	"errors"
	"fmt"

	"github.com/k-nuth/blockchain-sub001/internal/branch"
	"github.com/k-nuth/blockchain-sub001/internal/storage"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// Base implements the populate_prevout and populate_duplicate operations
// of spec.md §4.4's PopulateBase, shared by PopulateTx and PopulateBlock.
// It has no pooled-transaction lookup: nothing in this package sets
// Context.Pooled.
type Base struct {
	UTXO    UTXOSource
	Mempool MempoolUTXOSource // nil when populating outside of mempool context.
}

// Sources bundles the lookup layers available for one populate call beyond
// the persistent UTXO set: a branch's own produced-but-uncommitted outputs,
// and (during a reorg) outputs being restored by blocks being undone.
type Sources struct {
	BranchLayers []branch.UTXOLayer // nil when not populating inside a branch.
	ReorgSubset  ReorgSubset        // nil outside of a reorg.
	FromMempool  bool               // true: fall back to b.Mempool on a miss.
}

// PopulatePrevout fills the prevout record for a single input. It zero-
// fills the record and returns immediately for the coinbase sentinel
// outpoint; otherwise it tries, in order: the persistent UTXO set at or
// below branchHeight, the reorg subset, the branch-local UTXO, and finally
// (if enabled) the mempool UTXO. A result found only in the mempool is
// tagged FromMempool so accept-phase maturity rules can react to it.
func (b *Base) PopulatePrevout(branchHeight uint64, outpoint types.Outpoint, src Sources) (Prevout, error) {
	var p Prevout
	if outpoint.IsZero() {
		return p, nil
	}

	entry, err := b.UTXO.GetAtOrBelow(outpoint, branchHeight)
	switch {
	case err == nil:
		p.Confirmed = true
		p.Coinbase = entry.Coinbase
		p.Height = entry.Height
		p.MedianTimePast = entry.MedianTimePast
		out := entry.Output
		p.Cache = &out
		return p, nil
	case errors.Is(err, storage.ErrNotFound):
		// Fall through to the other lookup layers below.
	default:
		return p, fmt.Errorf("populate prevout: %w", err)
	}

	if src.ReorgSubset != nil {
		if out, ok := src.ReorgSubset[outpoint]; ok {
			p.Confirmed = true
			p.Cache = out
			return p, nil
		}
	}

	if src.BranchLayers != nil {
		if out, ok := branch.PopulatePrevout(src.BranchLayers, outpoint); ok {
			p.Confirmed = false // produced within the candidate branch, not yet committed.
			p.Cache = out
			return p, nil
		}
	}

	if src.FromMempool && b.Mempool != nil {
		if out, ok := b.Mempool.GetMempoolUTXO(outpoint); ok {
			p.Confirmed = false
			p.FromMempool = true
			p.Cache = out
			return p, nil
		}
	}

	// Not found anywhere: missing_previous_output, left to the caller to
	// surface via Context.MissingPrevouts.
	return p, nil
}

// PopulateDuplicate always reports false: BIP30 unspent-duplicate
// collisions are a ChainState-level concern gated by AllowCollisions, not
// something this populate layer decides unilaterally. See DESIGN.md's
// open-question resolution #1.
func (b *Base) PopulateDuplicate() bool {
	return false
}
