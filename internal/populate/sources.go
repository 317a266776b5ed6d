package populate

import (
	"github.com/k-nuth/blockchain-sub001/internal/branch"
	"github.com/k-nuth/blockchain-sub001/internal/chainstate"
	"github.com/k-nuth/blockchain-sub001/internal/utxo"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// UTXOSource is the fast UTXO-set path of FastChain (spec.md §6.1
// get_utxo). Implemented by *utxo.Store in production.
type UTXOSource interface {
	GetAtOrBelow(outpoint types.Outpoint, branchHeight uint64) (*utxo.Entry, error)
}

// MempoolUTXOSource exposes the subset of Mempool.utxo a populator needs to
// resolve a prevout that only exists in-flight, never yet confirmed.
type MempoolUTXOSource interface {
	GetMempoolUTXO(outpoint types.Outpoint) (*types.Output, bool)
}

// ChainStateSource supplies the ChainState a transaction or block is
// populated and validated against.
type ChainStateSource interface {
	ChainState(br *branch.Branch) (*chainstate.ChainState, error)
}

// ReorgSubset is the map FastChain.get_utxo_pool_from(from, to) returns: the
// outputs produced by blocks currently being undone during a reorg, needed
// because those outputs are not yet back in the persistent UTXO set nor are
// they branch-local.
type ReorgSubset map[types.Outpoint]*types.Output
