package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/k-nuth/blockchain-sub001/internal/dispatcher"
	"github.com/k-nuth/blockchain-sub001/internal/utxo"
	"github.com/k-nuth/blockchain-sub001/pkg/block"
	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// blockUndo is the per-block record FastChain.reorganize needs to disconnect
// a block later: every UTXO entry its transactions spent, since deleting an
// entry loses the information needed to put it back.
type blockUndo struct {
	Spent []utxo.Entry `json:"spent"`
}

// connectBlockLocked applies blk's UTXO effects (spend inputs, produce
// outputs) and returns the undo record needed to reverse it. Callers hold
// c.mu.
func (c *Chain) connectBlockLocked(blk *block.Block, height uint64) (*blockUndo, error) {
	undo := &blockUndo{}
	mtp := uint32(0)

	for _, t := range blk.Transactions {
		for _, in := range t.Inputs {
			if in.PrevOut.IsZero() {
				continue
			}
			spent, err := c.utxos.Get(in.PrevOut)
			if err != nil {
				return nil, fmt.Errorf("load spent entry %s: %w", in.PrevOut, err)
			}
			undo.Spent = append(undo.Spent, *spent)
			if err := c.utxos.Delete(in.PrevOut); err != nil {
				return nil, fmt.Errorf("spend %s: %w", in.PrevOut, err)
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
				return nil, fmt.Errorf("produce %s: %w", entry.Outpoint, err)
			}
		}
	}
	return undo, nil
}

// disconnectBlockLocked reverses connectBlockLocked's effects: removes the
// block's own outputs and restores every entry it spent. Callers hold c.mu.
func (c *Chain) disconnectBlockLocked(blk *block.Block, undo *blockUndo) error {
	for _, t := range blk.Transactions {
		txid := t.Hash()
		for i := range t.Outputs {
			if err := c.utxos.Delete(types.Outpoint{TxID: txid, Index: uint32(i)}); err != nil {
				return fmt.Errorf("remove produced %s:%d: %w", txid, i, err)
			}
		}
	}
	for i := range undo.Spent {
		entry := undo.Spent[i]
		if err := c.utxos.Put(&entry); err != nil {
			return fmt.Errorf("restore spent %s: %w", entry.Outpoint, err)
		}
	}
	return nil
}

// Insert implements FastChain.insert(block, height): a linear extension of
// the tip by exactly one block, no reorganization involved.
func (c *Chain) Insert(blk *block.Block, height uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if height != c.state.Height+1 {
		return fmt.Errorf("insert at height %d does not extend tip at height %d", height, c.state.Height)
	}
	if blk.Header.PrevHash != c.state.TipHash {
		return fmt.Errorf("insert's parent %s does not match tip %s", blk.Header.PrevHash, c.state.TipHash)
	}

	undo, err := c.connectBlockLocked(blk, height)
	if err != nil {
		return fmt.Errorf("connect block at height %d: %w", height, err)
	}
	if err := c.blocks.PutBlock(blk, height); err != nil {
		return fmt.Errorf("store block at height %d: %w", height, err)
	}
	undoData, err := json.Marshal(undo)
	if err != nil {
		return fmt.Errorf("marshal undo data: %w", err)
	}
	hash := blk.Hash()
	if err := c.blocks.PutUndo(hash, undoData); err != nil {
		return fmt.Errorf("store undo data: %w", err)
	}

	total, err := blk.Transactions[0].TotalOutputValue()
	if err != nil {
		return fmt.Errorf("coinbase value at height %d: %w", height, err)
	}
	c.state.TipHash = hash
	c.state.Height = height
	c.state.Supply += total
	c.state.TipTimestamp = uint64(blk.Header.Timestamp)
	c.state.CumulativeWork += blockWork(blk.Header.Bits).Uint64()

	if err := c.blocks.SetTip(hash, height, c.state.Supply); err != nil {
		return fmt.Errorf("set tip: %w", err)
	}
	c.blocks.SetCumulativeWork(c.state.CumulativeWork)
	return nil
}

// Push implements FastChain.push(tx): records that a transaction has been
// validated and is about to enter the mempool. This core persists nothing
// for an unconfirmed transaction (full persistence happens once it is
// mined, via Insert/Reorganize); Push exists purely as the seam the
// organizer's contract names, kept for interface symmetry with the other
// writers and as the natural place to add write-ahead durability later.
func (c *Chain) Push(transaction *tx.Transaction) error {
	return nil
}

// Reorganize implements FastChain.reorganize(fork_point, incoming,
// outgoing, dispatcher): disconnects outgoing (losing branch) blocks
// newest-first, then connects incoming (winning branch) blocks oldest-first.
// Both passes run sequentially; fan is used only by the supply recompute
// that follows them (see recomputeSupplyLocked). A PutReorgCheckpoint marker brackets the whole operation so a crash
// mid-flight is recoverable via RebuildUTXOs on the next startup.
func (c *Chain) Reorganize(forkHeight uint64, incoming, outgoing []*block.Block, fan *dispatcher.Dispatcher) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.blocks.PutReorgCheckpoint(forkHeight); err != nil {
		return fmt.Errorf("mark reorg checkpoint: %w", err)
	}

	// Outgoing is ordered oldest-first (as stored); disconnect newest-first
	// so each block's undo data is applied against the state it actually
	// produced.
	for i := len(outgoing) - 1; i >= 0; i-- {
		blk := outgoing[i]
		hash := blk.Hash()
		undoData, err := c.blocks.GetUndo(hash)
		if err != nil {
			return fmt.Errorf("load undo data for %s: %w", hash, err)
		}
		var undo blockUndo
		if err := json.Unmarshal(undoData, &undo); err != nil {
			return fmt.Errorf("unmarshal undo data for %s: %w", hash, err)
		}
		if err := c.disconnectBlockLocked(blk, &undo); err != nil {
			return fmt.Errorf("disconnect %s: %w", hash, err)
		}
		height := forkHeight + uint64(i) + 1
		if err := c.blocks.DeleteBlockIndexes(blk, height); err != nil {
			return fmt.Errorf("unindex %s: %w", hash, err)
		}
		if err := c.blocks.DeleteUndo(hash); err != nil {
			return fmt.Errorf("delete undo data for %s: %w", hash, err)
		}
	}

	height := forkHeight
	var totalWork big.Int
	for _, blk := range incoming {
		height++
		undo, err := c.connectBlockLocked(blk, height)
		if err != nil {
			return fmt.Errorf("connect %s at height %d: %w", blk.Hash(), height, err)
		}
		if err := c.blocks.PutBlock(blk, height); err != nil {
			return fmt.Errorf("store %s at height %d: %w", blk.Hash(), height, err)
		}
		undoData, err := json.Marshal(undo)
		if err != nil {
			return fmt.Errorf("marshal undo data for %s: %w", blk.Hash(), err)
		}
		if err := c.blocks.PutUndo(blk.Hash(), undoData); err != nil {
			return fmt.Errorf("store undo data for %s: %w", blk.Hash(), err)
		}
		totalWork.Add(&totalWork, blockWork(blk.Header.Bits))
	}

	newTip := c.state.TipHash
	newHeight := c.state.Height
	if len(incoming) > 0 {
		last := incoming[len(incoming)-1]
		newTip = last.Hash()
		newHeight = height
	} else if len(outgoing) > 0 {
		newHeight = forkHeight
		h, err := c.blocks.GetHashByHeight(forkHeight)
		if err != nil {
			return fmt.Errorf("resolve fork-point hash: %w", err)
		}
		newTip = h
	}

	supply, err := c.recomputeSupplyLocked(newHeight, fan)
	if err != nil {
		return fmt.Errorf("recompute supply after reorg: %w", err)
	}
	c.state.TipHash = newTip
	c.state.Height = newHeight
	c.state.Supply = supply
	if len(incoming) > 0 {
		c.state.TipTimestamp = uint64(incoming[len(incoming)-1].Header.Timestamp)
	}

	// Work delta: add the incoming branch's work, subtract the outgoing
	// branch's (both measured over the same (forkHeight, old/new tip] span).
	outgoingWork := big.NewInt(0)
	for _, blk := range outgoing {
		outgoingWork.Add(outgoingWork, blockWork(blk.Header.Bits))
	}
	delta := new(big.Int).Sub(&totalWork, outgoingWork)
	c.state.CumulativeWork = uint64(int64(c.state.CumulativeWork) + delta.Int64())

	if err := c.blocks.SetTip(newTip, newHeight, supply); err != nil {
		return fmt.Errorf("set tip after reorg: %w", err)
	}
	c.blocks.SetCumulativeWork(c.state.CumulativeWork)
	return c.blocks.DeleteReorgCheckpoint()
}

// recomputeSupplyLocked sums every coinbase reward from genesis through
// height. Called after a reorg since the winning branch's coinbase total
// can differ from the losing branch's. Callers hold c.mu. Each height's
// block load and coinbase-value read is independent of every other, so
// when fan is non-nil the scan is fanned out across its buckets rather
// than run as one sequential pass — the only part of Reorganize with
// enough independent, read-only work to make that worthwhile.
func (c *Chain) recomputeSupplyLocked(height uint64, fan *dispatcher.Dispatcher) (uint64, error) {
	n := int(height) + 1
	totals := make([]uint64, n)

	readOne := func(h int) error {
		blk, err := c.blocks.GetBlockByHeight(uint64(h))
		if err != nil {
			return fmt.Errorf("load block at height %d: %w", h, err)
		}
		total, err := blk.Transactions[0].TotalOutputValue()
		if err != nil {
			return fmt.Errorf("coinbase value at height %d: %w", h, err)
		}
		totals[h] = total
		return nil
	}

	if fan == nil {
		for h := 0; h < n; h++ {
			if err := readOne(h); err != nil {
				return 0, err
			}
		}
	} else {
		err := fan.Fan(context.Background(), func(ctx context.Context, bucket int) error {
			for _, h := range fan.Positions(bucket, n) {
				if err := readOne(h); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	var supply uint64
	for _, t := range totals {
		supply += t
	}
	return supply, nil
}

// PruneReorgAsync implements FastChain.prune_reorg_async: drops undo data
// for blocks deeper than Settings.ReorganizationLimit below the tip, since
// a reorg cannot reach further back than that. Runs synchronously on the
// caller's goroutine; callers wanting it off the hot path should launch it
// in its own goroutine, since nothing else in this core models deferred
// work with a distinct async primitive of its own.
func (c *Chain) PruneReorgAsync() error {
	c.mu.Lock()
	height := c.state.Height
	limit := uint64(0)
	if c.settings != nil {
		limit = c.settings.ReorganizationLimit
	}
	c.mu.Unlock()

	if limit == 0 || height <= limit {
		return nil
	}
	boundary := height - limit
	for h := uint64(0); h < boundary; h++ {
		blk, err := c.blocks.GetBlockByHeight(h)
		if err != nil {
			continue // already pruned, or never indexed by height this far back.
		}
		if err := c.blocks.DeleteUndo(blk.Hash()); err != nil {
			return fmt.Errorf("prune undo data at height %d: %w", h, err)
		}
	}
	return nil
}
