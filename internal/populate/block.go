package populate

import (
	"context"
	"errors"

	"github.com/k-nuth/blockchain-sub001/internal/branch"
	"github.com/k-nuth/blockchain-sub001/internal/chainstate"
	"github.com/k-nuth/blockchain-sub001/internal/dispatcher"
)

// ErrEmptyBranch is returned when PopulateBlock is asked to populate a
// branch with no blocks pushed onto it yet.
var ErrEmptyBranch = errors.New("populate: branch has no top block")

// inputRef locates one input within the flattened (tx, input) index space
// a block's non-coinbase transactions are fanned out over.
type inputRef struct {
	txIndex    int
	inputIndex int
}

// Block implements spec.md §4.4's PopulateBlock: populates every
// non-coinbase transaction in a branch's top block against the branch's
// own produced-but-uncommitted outputs, a reorg subset (if reorganizing),
// and the persistent UTXO set, fanning the combined input set of the
// whole block across the dispatcher's buckets rather than one bucket set
// per transaction — a block with many small transactions keeps every
// worker busy instead of serializing on the last, largest one.
type Block struct {
	Base *Base
}

// Populate returns one Context per transaction in br's top block, indexed
// the same as block.Transactions. reorgSubset is nil outside of a reorg.
func (p *Block) Populate(ctx context.Context, d *dispatcher.Dispatcher, br *branch.Branch, state *chainstate.ChainState, reorgSubset ReorgSubset) ([]*Context, error) {
	top := br.Top()
	if top == nil {
		return nil, ErrEmptyBranch
	}
	if state == nil {
		return nil, ErrNoChainState
	}

	transactions := top.Transactions
	contexts := make([]*Context, len(transactions))
	for i, t := range transactions {
		contexts[i] = NewContext(t)
		contexts[i].State = state
	}
	if len(transactions) == 0 {
		return contexts, nil
	}
	// transactions[0] is the coinbase: no prevouts to populate, but it
	// still carries State for the validate phase that follows.
	contexts[0].Current = true

	var refs []inputRef
	for ti := 1; ti < len(transactions); ti++ {
		for ii := range transactions[ti].Inputs {
			refs = append(refs, inputRef{txIndex: ti, inputIndex: ii})
		}
	}
	if len(refs) == 0 {
		return contexts, nil
	}

	layers := br.BuildUTXO()
	branchHeight := br.TopHeight()
	src := Sources{BranchLayers: layers, ReorgSubset: reorgSubset}

	err := d.Fan(ctx, func(ctx context.Context, bucket int) error {
		for _, idx := range d.Positions(bucket, len(refs)) {
			ref := refs[idx]
			input := transactions[ref.txIndex].Inputs[ref.inputIndex]
			prevout, err := p.Base.PopulatePrevout(branchHeight, input.PrevOut, src)
			if err != nil {
				return err
			}
			contexts[ref.txIndex].Prevouts[ref.inputIndex] = prevout
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contexts, nil
}
