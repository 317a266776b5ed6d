package organizer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/k-nuth/blockchain-sub001/internal/blockpool"
	"github.com/k-nuth/blockchain-sub001/internal/branch"
	"github.com/k-nuth/blockchain-sub001/internal/chainstate"
	"github.com/k-nuth/blockchain-sub001/internal/consensus"
	"github.com/k-nuth/blockchain-sub001/internal/dispatcher"
	"github.com/k-nuth/blockchain-sub001/internal/fastchain"
	"github.com/k-nuth/blockchain-sub001/internal/log"
	"github.com/k-nuth/blockchain-sub001/internal/mempool"
	"github.com/k-nuth/blockchain-sub001/internal/metrics"
	"github.com/k-nuth/blockchain-sub001/internal/validate"
	"github.com/k-nuth/blockchain-sub001/pkg/block"
	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// BlockOrganizer runs spec.md §4.7's organize(block) pipeline: a context-free
// check, branch resolution against the pooled side-chains, the accept and
// connect validation phases, and — when the resulting branch outweighs the
// persistent chain from its fork point — a FastChain.Reorganize commit
// followed by pool and mempool reconciliation and subscriber notification.
type BlockOrganizer struct {
	Chain      fastchain.FastChain
	Pool       *blockpool.Pool
	Consensus  *consensus.Validator
	Validate   *validate.Block
	Dispatcher *dispatcher.Dispatcher
	Mempool    *mempool.Mempool
	Life       *Lifecycle
	Mutex      *ChainMutex
	Subs       *Subscribers
}

// Organize runs the full pipeline for one candidate block. The returned
// Code always communicates the outcome per spec.md §6.4's vocabulary; a
// non-nil error is only ever accompanied by a non-Success, non-terminal
// Code (ServiceStopped, NotFound, OperationFailed23, ValidationFailed,
// MissingPreviousOutput, TransactionSigchecksLimit) describing why.
// AlreadyPooled, Orphan, and InsufficientWork are not errors: the block was
// well-formed but nothing was committed.
func (o *BlockOrganizer) Organize(ctx context.Context, blk *block.Block) (code types.Code, err error) {
	requestID := uuid.New()
	logger := log.Organizer.With().Str("request_id", requestID.String()).Str("block_hash", blk.Hash().String()).Logger()
	defer func() {
		metrics.ObserveBlockOrganized(code)
		if err != nil {
			logger.Warn().Str("code", code.String()).Err(err).Msg("block organize failed")
		} else {
			logger.Debug().Str("code", code.String()).Msg("block organize finished")
		}
	}()

	if o.Life.Stopped() {
		return types.ServiceStopped, fmt.Errorf("block organizer stopped")
	}
	if err := o.Consensus.ValidateBlock(blk); err != nil {
		return types.ValidationFailed, err
	}

	o.Mutex.LockHigh()
	defer o.Mutex.Unlock()

	if o.Life.Stopped() {
		return types.ServiceStopped, fmt.Errorf("block organizer stopped")
	}

	br := o.Pool.GetPath(blk)
	if br.Len() == 0 {
		return types.AlreadyPooled, nil
	}

	root := br.Blocks()[0]
	forkHeight, ok := o.Chain.GetHeightOfHash(root.Header.PrevHash)
	if !ok {
		o.Pool.Add(blk, nil)
		metrics.SetBlockPoolSize(o.Pool.Len())
		return types.Orphan, nil
	}
	br.SetHeight(forkHeight)

	state, err := o.Chain.ChainState(br)
	if err != nil {
		return types.OperationFailed23, fmt.Errorf("populate branch chain state: %w", err)
	}

	if _, err := o.Validate.Accept(ctx, br, state, nil); err != nil {
		return validate.CodeOf(err), err
	}
	if err := o.Validate.Connect(ctx, br, state); err != nil {
		return validate.CodeOf(err), err
	}

	bWork := branchWork(br)
	lastHeight := o.Chain.GetLastHeight()
	chainWork, err := o.Chain.GetBranchWork(forkHeight, lastHeight)
	if err != nil {
		return types.OperationFailed23, fmt.Errorf("branch work from fork point: %w", err)
	}
	if bWork.Cmp(chainWork) <= 0 {
		parentHeight := forkHeight + uint64(br.Len()) - 1 // blk sits at forkHeight+Len.
		o.Pool.Add(blk, &parentHeight)
		metrics.SetBlockPoolSize(o.Pool.Len())
		return types.InsufficientWork, nil
	}

	incoming := br.Blocks()
	outgoing := make([]*block.Block, 0, lastHeight-forkHeight)
	for h := forkHeight + 1; h <= lastHeight; h++ {
		displaced, err := o.Chain.GetBlockByHeight(h)
		if err != nil {
			return types.OperationFailed23, fmt.Errorf("load displaced block at height %d: %w", h, err)
		}
		outgoing = append(outgoing, displaced)
	}

	if err := o.Chain.Reorganize(forkHeight, incoming, outgoing, o.Dispatcher); err != nil {
		return types.OperationFailed23, fmt.Errorf("reorganize: %w", err)
	}

	o.Pool.Remove(incoming)
	o.Pool.AddAll(outgoing)
	o.reconcileMempool(incoming, outgoing)
	o.Subs.notifyReorg(forkHeight, incoming, outgoing)

	metrics.ObserveReorganizationDepth(len(outgoing))
	metrics.SetBlockPoolSize(o.Pool.Len())
	if o.Mempool != nil {
		metrics.SetMempoolSize(o.Mempool.Count())
	}

	return types.Success, nil
}

// reconcileMempool implements spec.md §4.8's two removal rules: transactions
// newly confirmed by the winning branch are dropped from the pool outright;
// transactions displaced by the losing branch are offered back to the pool,
// where Mempool.Add silently rejects any that no longer resolve (already
// spent by the new chain, or now a double-spend).
func (o *BlockOrganizer) reconcileMempool(incoming, outgoing []*block.Block) {
	if o.Mempool == nil {
		return
	}
	for _, blk := range incoming {
		o.Mempool.RemoveConfirmed(blk.Transactions)
	}
	for _, blk := range outgoing {
		for _, t := range blk.Transactions {
			if t.IsCoinbase() {
				continue
			}
			fee, ok := o.transactionFee(t)
			if !ok {
				continue
			}
			_ = o.Mempool.Add(t, fee, t.EstimateSigops(), chainUTXOChecker{o.Chain})
		}
	}
}

// transactionFee recomputes a displaced transaction's fee against the
// persistent UTXO set as it stands right after the reorg, returning
// ok=false for an input whose prevout the new chain no longer has (already
// spent by a transaction on the winning branch, or never existed there).
func (o *BlockOrganizer) transactionFee(t *tx.Transaction) (uint64, bool) {
	var totalIn uint64
	lastHeight := o.Chain.GetLastHeight()
	for _, in := range t.Inputs {
		if in.PrevOut.IsZero() {
			continue
		}
		entry, err := o.Chain.GetOutput(in.PrevOut, lastHeight)
		if err != nil {
			return 0, false
		}
		totalIn += entry.Output.Value
	}
	totalOut, err := t.TotalOutputValue()
	if err != nil || totalOut > totalIn {
		return 0, false
	}
	return totalIn - totalOut, true
}

// chainUTXOChecker adapts fastchain.Reader's richer GetOutput to the narrow
// existence check mempool.Mempool.Add needs to classify a prevout it does
// not itself produce.
type chainUTXOChecker struct {
	chain fastchain.FastChain
}

func (c chainUTXOChecker) Has(outpoint types.Outpoint) (bool, error) {
	_, err := c.chain.GetOutput(outpoint, c.chain.GetLastHeight())
	if err != nil {
		return false, nil
	}
	return true, nil
}

// branchWork sums the proof-of-work committed by every header in a branch.
func branchWork(br *branch.Branch) *big.Int {
	total := big.NewInt(0)
	for _, blk := range br.Blocks() {
		total.Add(total, blockWork(blk.Header.Bits))
	}
	return total
}

// blockWork mirrors internal/chain's own unexported helper: the amount of
// work a single header's Bits field represents, 2^256/(target+1).
func blockWork(bits uint32) *big.Int {
	target := chainstate.CompactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Lsh(big.NewInt(1), 256)
	denominator := new(big.Int).Add(target, big.NewInt(1))
	return numerator.Div(numerator, denominator)
}
