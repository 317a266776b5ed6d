package chain

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/k-nuth/blockchain-sub001/config"
	"github.com/k-nuth/blockchain-sub001/internal/branch"
	"github.com/k-nuth/blockchain-sub001/internal/chainstate"
	"github.com/k-nuth/blockchain-sub001/internal/populate"
	"github.com/k-nuth/blockchain-sub001/internal/storage"
	"github.com/k-nuth/blockchain-sub001/internal/utxo"
	"github.com/k-nuth/blockchain-sub001/pkg/block"
	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// Chain is the persistent side of FastChain (spec.md §6.1): block/header
// storage, the UTXO set, and the chain-state populator, serialized by a
// single mutex since all of its writers (insert/push/reorganize) are
// called only from internal/organizer's completion handlers, never from
// populators running concurrently with them.
type Chain struct {
	mu sync.Mutex

	state      State
	blocks     *BlockStore
	utxos      *utxo.Store
	populator  *chainstate.Populator
	settings   *config.Settings
	network    config.Network
	stateCache *lru.Cache[types.Hash, *chainstate.ChainState]
}

// tipStateCacheSize caps how many recent tips' projected ChainState stay
// cached. Keying by tip hash means stale entries for abandoned tips simply
// age out rather than needing explicit invalidation on Insert/Reorganize.
const tipStateCacheSize = 8

// New recovers (or initializes) a Chain from its backing storage. If the
// store has no tip yet, the caller must follow up with InitFromGenesis.
func New(db storage.DB, utxoSet *utxo.Store, settings *config.Settings, network config.Network) (*Chain, error) {
	if db == nil {
		return nil, fmt.Errorf("storage db is nil")
	}
	if utxoSet == nil {
		return nil, fmt.Errorf("utxo set is nil")
	}

	blocks := NewBlockStore(db)
	tipHash, height, supply, err := blocks.GetTip()
	if err != nil {
		return nil, fmt.Errorf("recover tip: %w", err)
	}
	cumWork := blocks.GetCumulativeWork()

	stateCache, err := lru.New[types.Hash, *chainstate.ChainState](tipStateCacheSize)
	if err != nil {
		return nil, fmt.Errorf("state cache: %w", err)
	}

	c := &Chain{
		state:      State{TipHash: tipHash, Height: height, Supply: supply, CumulativeWork: cumWork},
		blocks:     blocks,
		utxos:      utxoSet,
		settings:   settings,
		network:    network,
		stateCache: stateCache,
	}
	c.populator = chainstate.NewPopulator(c, settings, network)

	if _, found := blocks.GetReorgCheckpoint(); found {
		if err := c.RebuildUTXOs(); err != nil {
			return nil, fmt.Errorf("recover from interrupted reorg: %w", err)
		}
	}

	return c, nil
}

// InitFromGenesis seeds a fresh chain with the network's genesis block.
// Returns an error if the chain already has a tip.
func (c *Chain) InitFromGenesis() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.IsGenesis() {
		return fmt.Errorf("chain already initialized at height %d", c.state.Height)
	}

	if err := config.ValidateGenesis(c.network, c.settings); err != nil {
		return fmt.Errorf("invalid genesis: %w", err)
	}
	genesis := config.Genesis(c.network)

	if err := c.applyBlockLocked(genesis, 0); err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	if err := c.blocks.PutBlock(genesis, 0); err != nil {
		return fmt.Errorf("store genesis: %w", err)
	}

	supply, _ := genesis.Transactions[0].TotalOutputValue()
	hash := genesis.Hash()
	c.state.TipHash = hash
	c.state.Height = 0
	c.state.Supply = supply
	c.state.TipTimestamp = uint64(genesis.Header.Timestamp)

	return c.blocks.SetTip(hash, 0, supply)
}

// State returns a copy of the current chain state.
func (c *Chain) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// GetBlock retrieves a block by its hash.
func (c *Chain) GetBlock(hash types.Hash) (*block.Block, error) {
	return c.blocks.GetBlock(hash)
}

// GetBlockByHeight retrieves a block by its height.
func (c *Chain) GetBlockByHeight(height uint64) (*block.Block, error) {
	return c.blocks.GetBlockByHeight(height)
}

// GetTransaction looks up a confirmed transaction by hash via the tx index.
func (c *Chain) GetTransaction(hash types.Hash) (*tx.Transaction, error) {
	_, blockHash, err := c.blocks.GetTxLocation(hash)
	if err != nil {
		return nil, err
	}
	blk, err := c.blocks.GetBlock(blockHash)
	if err != nil {
		return nil, fmt.Errorf("load block for tx: %w", err)
	}
	for _, t := range blk.Transactions {
		if t.Hash() == hash {
			return t, nil
		}
	}
	return nil, fmt.Errorf("tx %s not found in block %s (index corrupt)", hash, blockHash)
}

// GetTransactionPosition implements FastChain.get_transaction_position.
func (c *Chain) GetTransactionPosition(hash types.Hash) (height uint64, blockHash types.Hash, ok bool) {
	h, bh, err := c.blocks.GetTxLocation(hash)
	if err != nil {
		return 0, types.Hash{}, false
	}
	return h, bh, true
}

// GetOutput implements FastChain.get_output: the full (Output, height,
// mtp, coinbase) tuple. It reads the same UTXO set as GetAtOrBelow.
func (c *Chain) GetOutput(outpoint types.Outpoint, branchHeight uint64) (*utxo.Entry, error) {
	return c.utxos.GetAtOrBelow(outpoint, branchHeight)
}

// GetAtOrBelow is FastChain's fast UTXO-set path, and also satisfies
// populate.UTXOSource.
func (c *Chain) GetAtOrBelow(outpoint types.Outpoint, branchHeight uint64) (*utxo.Entry, error) {
	return c.utxos.GetAtOrBelow(outpoint, branchHeight)
}

// GetBlockExists reports whether a block with the given hash is stored.
func (c *Chain) GetBlockExists(hash types.Hash) bool {
	ok, err := c.blocks.HasBlock(hash)
	return err == nil && ok
}

// GetBlockHash implements chainstate.HeaderReader's BlockHash.
func (c *Chain) GetBlockHash(height uint64) (types.Hash, error) {
	return c.blocks.GetHashByHeight(height)
}

// GetHeightOfHash returns the active-chain height of a block hash, used by
// the block organizer to resolve a branch's fork-parent height once it
// finds the branch's topmost pool-unknown ancestor.
func (c *Chain) GetHeightOfHash(hash types.Hash) (uint64, bool) {
	return c.blocks.GetHeightByHash(hash)
}

// BlockHash is an alias of GetBlockHash matching chainstate.HeaderReader's
// exact method name.
func (c *Chain) BlockHash(height uint64) (types.Hash, error) {
	return c.GetBlockHash(height)
}

// Bits implements chainstate.HeaderReader.
func (c *Chain) Bits(height uint64) (uint32, error) {
	blk, err := c.blocks.GetBlockByHeight(height)
	if err != nil {
		return 0, err
	}
	return blk.Header.Bits, nil
}

// Timestamp implements chainstate.HeaderReader.
func (c *Chain) Timestamp(height uint64) (uint32, error) {
	blk, err := c.blocks.GetBlockByHeight(height)
	if err != nil {
		return 0, err
	}
	return blk.Header.Timestamp, nil
}

// Version implements chainstate.HeaderReader.
func (c *Chain) Version(height uint64) (uint32, error) {
	blk, err := c.blocks.GetBlockByHeight(height)
	if err != nil {
		return 0, err
	}
	return blk.Header.Version, nil
}

// GetLastHeight returns the current tip height.
func (c *Chain) GetLastHeight() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Height
}

// LastHeight implements chainstate.HeaderReader's exact method name. A
// chain with no blocks yet has no valid "last height" to report.
func (c *Chain) LastHeight() (uint64, error) {
	c.mu.Lock()
	height := c.state.Height
	isGenesis := c.state.IsGenesis()
	c.mu.Unlock()
	if isGenesis {
		return 0, fmt.Errorf("chain has no blocks yet")
	}
	return height, nil
}

// GetHeader retrieves the header stored at a height.
func (c *Chain) GetHeader(height uint64) (*block.Header, error) {
	blk, err := c.blocks.GetBlockByHeight(height)
	if err != nil {
		return nil, err
	}
	return blk.Header, nil
}

// GetHeaderAndABLAState implements FastChain.get_header_and_abla_state: the
// header at height plus the Adaptive Blocksize Limit Algorithm bounds in
// effect. This core's ABLA bounds come straight from the network's static
// config (internal/chainstate's populator already projects them this way,
// not from a per-height rolling history), so the ABLA component returned
// here is the same regardless of which height is asked about.
func (c *Chain) GetHeaderAndABLAState(height uint64) (*block.Header, *chainstate.ChainState, error) {
	hdr, err := c.GetHeader(height)
	if err != nil {
		return nil, nil, err
	}
	state, err := c.ChainState(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("project abla state: %w", err)
	}
	return hdr, state, nil
}

// GetHeaders retrieves headers in [from, to], inclusive.
func (c *Chain) GetHeaders(from, to uint64) ([]*block.Header, error) {
	headers := make([]*block.Header, 0, to-from+1)
	for h := from; h <= to; h++ {
		hdr, err := c.GetHeader(h)
		if err != nil {
			return nil, fmt.Errorf("header at height %d: %w", h, err)
		}
		headers = append(headers, hdr)
	}
	return headers, nil
}

// blockWork returns a single header's proof-of-work contribution:
// 2^256 / (target+1), the standard Bitcoin-derived work metric.
func blockWork(bits uint32) *big.Int {
	target := chainstate.CompactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Lsh(big.NewInt(1), 256)
	denominator := new(big.Int).Add(target, big.NewInt(1))
	return numerator.Div(numerator, denominator)
}

// GetBranchWork sums the proof-of-work of blocks in (fromHeight, toHeight],
// the persistent-chain side of the "branch work vs. persistent work"
// comparison spec.md §4.7 step 7 describes.
func (c *Chain) GetBranchWork(fromHeight, toHeight uint64) (*big.Int, error) {
	total := big.NewInt(0)
	for h := fromHeight + 1; h <= toHeight; h++ {
		hdr, err := c.GetHeader(h)
		if err != nil {
			return nil, fmt.Errorf("header at height %d: %w", h, err)
		}
		total.Add(total, blockWork(hdr.Bits))
	}
	return total, nil
}

// GetUTXOPoolFrom builds the reorg subset spec.md calls
// get_utxo_pool_from(from, to): the outputs produced by blocks in (from,
// to] being undone, needed because those outputs are not yet back in the
// persistent UTXO set.
func (c *Chain) GetUTXOPoolFrom(from, to uint64) (populate.ReorgSubset, error) {
	subset := make(populate.ReorgSubset)
	for h := from + 1; h <= to; h++ {
		blk, err := c.blocks.GetBlockByHeight(h)
		if err != nil {
			return nil, fmt.Errorf("block at height %d: %w", h, err)
		}
		for _, t := range blk.Transactions {
			txid := t.Hash()
			for i := range t.Outputs {
				out := t.Outputs[i]
				subset[types.Outpoint{TxID: txid, Index: uint32(i)}] = &out
			}
		}
	}
	return subset, nil
}

// ChainState projects the ChainState for the block that would follow br's
// top (or the persistent tip, if br is nil). The persistent-tip projection
// is cached by tip hash: internal/organizer's TransactionOrganizer
// recomputes it once per submitted transaction, and re-running ASERT and
// the median-time-past scan for an unchanged tip on every call would be
// wasted work.
func (c *Chain) ChainState(br *branch.Branch) (*chainstate.ChainState, error) {
	if br != nil {
		return c.populator.Populate(br)
	}

	tip := c.State().TipHash
	if cached, ok := c.stateCache.Get(tip); ok {
		return cached, nil
	}
	state, err := c.populator.Populate(nil)
	if err != nil {
		return nil, err
	}
	c.stateCache.Add(tip, state)
	return state, nil
}

// IsStaleFast reports whether the tip is older than Settings.NotifyLimitHours.
func (c *Chain) IsStaleFast() bool {
	c.mu.Lock()
	ts := c.state.TipTimestamp
	c.mu.Unlock()
	if c.settings == nil || c.settings.NotifyLimitHours == 0 {
		return false
	}
	age := time.Since(time.Unix(int64(ts), 0))
	return age > time.Duration(c.settings.NotifyLimitHours)*time.Hour
}

// applyBlockLocked persists a block's UTXO effects: removes spent inputs,
// adds new outputs. Callers hold c.mu.
func (c *Chain) applyBlockLocked(blk *block.Block, height uint64) error {
	mtp := uint32(0)
	for _, t := range blk.Transactions {
		for _, in := range t.Inputs {
			if in.PrevOut.IsZero() {
				continue
			}
			if err := c.utxos.Delete(in.PrevOut); err != nil {
				return fmt.Errorf("spend %s: %w", in.PrevOut, err)
			}
		}
		txid := t.Hash()
		isCoinbaseTx := t.IsCoinbase()
		for i, out := range t.Outputs {
			entry := &utxo.Entry{
				Outpoint:       types.Outpoint{TxID: txid, Index: uint32(i)},
				Output:         out,
				Height:         height,
				MedianTimePast: mtp,
				Coinbase:       isCoinbaseTx,
			}
			if err := c.utxos.Put(entry); err != nil {
				return fmt.Errorf("produce %s: %w", entry.Outpoint, err)
			}
		}
	}
	return nil
}

// RebuildUTXOs clears the UTXO set and replays every block from genesis to
// the current tip, used to recover when a crash interrupted a reorg
// mid-flight (Reorganize leaves a PutReorgCheckpoint marker while
// disconnect/connect is in progress).
func (c *Chain) RebuildUTXOs() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.utxos.ClearAll(); err != nil {
		return fmt.Errorf("clear utxo set: %w", err)
	}

	var supply uint64
	for h := uint64(0); h <= c.state.Height; h++ {
		blk, err := c.blocks.GetBlockByHeight(h)
		if err != nil {
			return fmt.Errorf("load block at height %d: %w", h, err)
		}
		if err := c.applyBlockLocked(blk, h); err != nil {
			return fmt.Errorf("replay block at height %d: %w", h, err)
		}
		total, err := blk.Transactions[0].TotalOutputValue()
		if err != nil {
			return fmt.Errorf("coinbase value at height %d: %w", h, err)
		}
		supply += total
	}
	c.state.Supply = supply

	if err := c.blocks.SetTip(c.state.TipHash, c.state.Height, supply); err != nil {
		return fmt.Errorf("set tip after rebuild: %w", err)
	}
	return c.blocks.DeleteReorgCheckpoint()
}
