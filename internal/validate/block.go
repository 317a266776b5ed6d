package validate

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/k-nuth/blockchain-sub001/config"
	"github.com/k-nuth/blockchain-sub001/internal/branch"
	"github.com/k-nuth/blockchain-sub001/internal/chainstate"
	"github.com/k-nuth/blockchain-sub001/internal/dispatcher"
	"github.com/k-nuth/blockchain-sub001/internal/populate"
	"github.com/k-nuth/blockchain-sub001/pkg/block"
	"github.com/k-nuth/blockchain-sub001/pkg/script"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// maxFutureBlockTime bounds how far ahead of "now" a block's timestamp may
// sit, the BCH/Bitcoin "adjusted time" ceiling.
const maxFutureBlockTime = 2 * time.Hour

// Block runs the contextual phases of block validation spec.md §4.6
// assigns to ValidateBlock: accept (header/coinbase/BIP30 rules plus
// sigop accounting) and connect (script verification across every input in
// the block).
type Block struct {
	Populator  *populate.Block
	Dispatcher *dispatcher.Dispatcher
	Settings   *config.Settings
	Verify     script.VerifyFunc
	Now        func() time.Time // overridable for tests; defaults to time.Now.
}

func (v *Block) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Accept runs spec.md §4.6's block.accept(branch): populates the top
// block's transactions, checks header rules against the branch's
// ChainState, coinbase height commitment (BIP34), BIP30 collision
// avoidance, and the legacy sigop bound.
func (v *Block) Accept(ctx context.Context, br *branch.Branch, state *chainstate.ChainState, reorgSubset populate.ReorgSubset) ([]*populate.Context, error) {
	if state == nil {
		return nil, coded(types.OperationFailed23, ErrBadTarget)
	}
	top := br.Top()
	if top == nil {
		return nil, coded(types.NotFound, populate.ErrEmptyBranch)
	}

	if top.Header.Bits != state.BitsNext {
		return nil, codedf(types.ValidationFailed, "%w: header=%#x want=%#x", ErrBadTarget, top.Header.Bits, state.BitsNext)
	}
	if top.Header.Timestamp <= state.MedianTimePast {
		return nil, coded(types.ValidationFailed, ErrTimestampTooOld)
	}
	if int64(top.Header.Timestamp) > v.now().Add(maxFutureBlockTime).Unix() {
		return nil, coded(types.ValidationFailed, ErrTimestampTooNew)
	}

	if state.ActivationInfo.BIP34Height > 0 && br.TopHeight() >= state.ActivationInfo.BIP34Height {
		if err := checkCoinbaseHeight(top, br.TopHeight()); err != nil {
			return nil, coded(types.ValidationFailed, err)
		}
	}

	if !v.allowCollisions() {
		if err := checkBIP30(top, state); err != nil {
			return nil, coded(types.ValidationFailed, err)
		}
	}

	contexts, err := v.Populator.Populate(ctx, v.Dispatcher, br, state, reorgSubset)
	if err != nil {
		return nil, codedf(types.NotFound, "populate block: %w", err)
	}
	for i := 1; i < len(contexts); i++ {
		if missing := contexts[i].MissingPrevouts(top.Transactions[i]); len(missing) > 0 {
			return contexts, codedf(types.MissingPreviousOutput, "tx %d: %w: input %d", i, ErrMissingPrevout, missing[0])
		}
	}

	sigops := 0
	for _, t := range top.Transactions {
		sigops += t.EstimateSigops()
	}
	if sigops > config.BlockSigcheckLimit(blockSize(top)) {
		return contexts, codedf(types.TransactionSigchecksLimit, "%w: %d sigops", ErrSigchecksExceeded, sigops)
	}

	return contexts, nil
}

func (v *Block) allowCollisions() bool {
	return v.Settings != nil && v.Settings.AllowCollisions
}

// Connect runs spec.md §4.6's block.connect(branch): fans script
// verification out across every input of every non-coinbase transaction in
// the branch top block, bucketed together rather than transaction by
// transaction so no bucket idles while another finishes a large tx.
func (v *Block) Connect(ctx context.Context, br *branch.Branch, state *chainstate.ChainState) error {
	top := br.Top()
	if top == nil {
		return coded(types.NotFound, populate.ErrEmptyBranch)
	}
	flags := types.RuleFlags(0)
	if state != nil {
		flags = state.EnabledForks
	}

	type ref struct {
		tx, in int
	}
	var refs []ref
	for ti := 1; ti < len(top.Transactions); ti++ {
		for ii := range top.Transactions[ti].Inputs {
			refs = append(refs, ref{ti, ii})
		}
	}
	if len(refs) == 0 {
		return nil
	}

	return v.Dispatcher.Fan(ctx, func(ctx context.Context, bucket int) error {
		for _, idx := range v.Dispatcher.Positions(bucket, len(refs)) {
			r := refs[idx]
			if _, err := v.Verify(top.Transactions[r.tx], r.in, flags); err != nil {
				return codedf(types.ValidationFailed, "tx %d input %d: %w", r.tx, r.in, err)
			}
		}
		return nil
	})
}

// checkCoinbaseHeight enforces BIP34: the coinbase's unlocking script must
// begin with the block height as a four-byte little-endian integer.
func checkCoinbaseHeight(blk *block.Block, height uint64) error {
	unlock := blk.Transactions[0].Inputs[0].UnlockingScript
	if len(unlock) < 4 {
		return ErrBadCoinbaseHeight
	}
	got := binary.LittleEndian.Uint32(unlock[:4])
	if uint64(got) != height {
		return ErrBadCoinbaseHeight
	}
	return nil
}

// checkBIP30 rejects a block whose coinbase or any other transaction
// duplicates a txid already recorded in the populator's unspent-duplicate
// collision set.
func checkBIP30(blk *block.Block, state *chainstate.ChainState) error {
	if len(state.HashesForCollisionCheck) == 0 {
		return nil
	}
	seen := make(map[types.Hash]struct{}, len(state.HashesForCollisionCheck))
	for _, h := range state.HashesForCollisionCheck {
		seen[h] = struct{}{}
	}
	for _, t := range blk.Transactions {
		if _, ok := seen[t.Hash()]; ok {
			return ErrBIP30Collision
		}
	}
	return nil
}

func blockSize(blk *block.Block) int {
	size := len(blk.Header.SigningBytes())
	for _, t := range blk.Transactions {
		size += len(t.SigningBytes())
	}
	return size
}
