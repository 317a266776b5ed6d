package branch

import "github.com/k-nuth/blockchain-sub001/pkg/types"

// UTXOLayer is a single block's worth of outputs produced within a branch,
// keyed by outpoint. BuildUTXO returns one layer per branch block, in the
// same low-to-high order as Blocks(), so lookups can search from the
// highest block downward (higher blocks override lower ones, matching
// spec.md 4.1's "branch_utxo (higher blocks override lower)" rule).
type UTXOLayer map[types.Outpoint]*types.Output

// BuildUTXO builds one UTXOLayer per block already in the branch. Called
// once per validation pass by PopulateBlock.
func (b *Branch) BuildUTXO() []UTXOLayer {
	layers := make([]UTXOLayer, len(b.blocks))
	for i, blk := range b.blocks {
		layer := make(UTXOLayer, len(blk.Transactions))
		for _, transaction := range blk.Transactions {
			txid := transaction.Hash()
			for idx := range transaction.Outputs {
				out := transaction.Outputs[idx]
				layer[types.Outpoint{TxID: txid, Index: uint32(idx)}] = &out
			}
		}
		layers[i] = layer
	}
	return layers
}

// PopulatePrevout searches a branch_utxo (as built by BuildUTXO) for the
// output the given outpoint references, walking from the highest block
// toward the lowest so a later block's spend of an earlier block's output
// is never mistaken for two independently-valid outputs.
func PopulatePrevout(layers []UTXOLayer, outpoint types.Outpoint) (*types.Output, bool) {
	for i := len(layers) - 1; i >= 0; i-- {
		if out, ok := layers[i][outpoint]; ok {
			return out, true
		}
	}
	return nil, false
}

// PopulateSpent reports whether any block in the branch spends the given
// outpoint as an input, searching from the lowest block upward (the order
// a spend could first occur in, following the branch's low-to-high layout).
func (b *Branch) PopulateSpent(outpoint types.Outpoint) bool {
	for _, blk := range b.blocks {
		for _, transaction := range blk.Transactions {
			for _, in := range transaction.Inputs {
				if in.PrevOut == outpoint {
					return true
				}
			}
		}
	}
	return false
}
