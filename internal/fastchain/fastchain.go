// Package fastchain names the contract spec.md §6.1 calls FastChain: the
// persistent-storage seam internal/organizer consumes, separating what an
// organizer needs from a chain from the concrete badger/memory-backed
// implementation in internal/chain. Declaring the interface here (rather
// than in internal/chain itself) lets internal/organizer and
// internal/safechain depend on the contract without pulling in
// internal/chain's storage/utxo/chainstate plumbing.
package fastchain

import (
	"math/big"

	"github.com/k-nuth/blockchain-sub001/internal/branch"
	"github.com/k-nuth/blockchain-sub001/internal/chainstate"
	"github.com/k-nuth/blockchain-sub001/internal/dispatcher"
	"github.com/k-nuth/blockchain-sub001/internal/populate"
	"github.com/k-nuth/blockchain-sub001/internal/utxo"
	"github.com/k-nuth/blockchain-sub001/pkg/block"
	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// Reader is the read-only half of FastChain: every accessor an organizer,
// populator, or validator needs to inspect persistent state without being
// able to mutate it.
type Reader interface {
	GetTransaction(hash types.Hash) (*tx.Transaction, error)
	GetTransactionPosition(hash types.Hash) (height uint64, blockHash types.Hash, ok bool)
	GetOutput(outpoint types.Outpoint, branchHeight uint64) (*utxo.Entry, error)
	GetAtOrBelow(outpoint types.Outpoint, branchHeight uint64) (*utxo.Entry, error)

	GetBlock(hash types.Hash) (*block.Block, error)
	GetBlockByHeight(height uint64) (*block.Block, error)
	GetBlockExists(hash types.Hash) bool
	GetBlockHash(height uint64) (types.Hash, error)
	GetHeightOfHash(hash types.Hash) (uint64, bool)

	Bits(height uint64) (uint32, error)
	Timestamp(height uint64) (uint32, error)
	Version(height uint64) (uint32, error)
	GetLastHeight() uint64
	GetHeader(height uint64) (*block.Header, error)
	GetHeaderAndABLAState(height uint64) (*block.Header, *chainstate.ChainState, error)
	GetHeaders(from, to uint64) ([]*block.Header, error)
	GetBranchWork(fromHeight, toHeight uint64) (*big.Int, error)

	GetUTXOPoolFrom(from, to uint64) (populate.ReorgSubset, error)

	ChainState(br *branch.Branch) (*chainstate.ChainState, error)
	IsStaleFast() bool
}

// Writer is the mutating half of FastChain, serialized by
// internal/organizer's chain mutex: never called concurrently, and never
// called from a populator.
type Writer interface {
	Insert(blk *block.Block, height uint64) error
	Push(transaction *tx.Transaction) error
	Reorganize(forkHeight uint64, incoming, outgoing []*block.Block, fan *dispatcher.Dispatcher) error
	PruneReorgAsync() error
}

// FastChain is the full contract internal/organizer depends on.
// *internal/chain.Chain is the reference implementation.
type FastChain interface {
	Reader
	Writer
}
