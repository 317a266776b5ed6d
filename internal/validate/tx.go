package validate

import (
	"context"
	"fmt"

	"github.com/k-nuth/blockchain-sub001/config"
	"github.com/k-nuth/blockchain-sub001/internal/chainstate"
	"github.com/k-nuth/blockchain-sub001/internal/dispatcher"
	"github.com/k-nuth/blockchain-sub001/internal/populate"
	"github.com/k-nuth/blockchain-sub001/pkg/script"
	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// lockTimeThreshold is the boundary below which LockTime is a block height
// and at or above which it is a UNIX timestamp, matching the wire format
// every Bitcoin-derived chain uses.
const lockTimeThreshold = 500_000_000

// Transaction runs the contextual phases of transaction validation against
// a populated Context: accept (contextual rule checks) and connect (script
// verification). check() is pkg/tx.Transaction.Check, already context-free.
type Transaction struct {
	Populator  *populate.Tx
	Dispatcher *dispatcher.Dispatcher
	Settings   *config.Settings
	Verify     script.VerifyFunc
}

// Accept runs spec.md §4.5's tx.accept(): ensures validation state is set,
// populates prevouts, then checks lock-time finality, non-coinbase prevout
// presence, coinbase maturity, fee non-negativity, and output policy minima.
func (v *Transaction) Accept(ctx context.Context, transaction *tx.Transaction, branchHeight uint64, state *chainstate.ChainState, allowMempool bool) (*populate.Context, error) {
	vc, err := v.Populator.Populate(ctx, v.Dispatcher, transaction, branchHeight, state, allowMempool)
	if err != nil {
		if err == populate.ErrNoChainState {
			return nil, coded(types.OperationFailed23, err)
		}
		return nil, codedf(types.NotFound, "populate transaction: %w", err)
	}
	if vc.Duplicate {
		return vc, coded(types.UnspentDuplicate, ErrBIP30Collision)
	}

	if missing := vc.MissingPrevouts(transaction); len(missing) > 0 {
		return vc, codedf(types.MissingPreviousOutput, "%w: input %d", ErrMissingPrevout, missing[0])
	}

	if !isFinal(transaction, branchHeight, state.MedianTimePast) {
		return vc, coded(types.ValidationFailed, ErrNonFinal)
	}

	for i, in := range transaction.Inputs {
		if in.PrevOut.IsZero() {
			continue
		}
		p := vc.Prevouts[i]
		if p.Coinbase && branchHeight-p.Height < config.CoinbaseMaturity {
			return vc, codedf(types.ValidationFailed, "input %d: %w", i, ErrPrematureSpend)
		}
	}

	fee, err := transactionFee(transaction, vc)
	if err != nil {
		return vc, codedf(types.ValidationFailed, "%w: %v", ErrFeeNegative, err)
	}
	_ = fee // available for template/relay-fee policy callers; no minimum relay floor enforced here.

	if v.Settings != nil {
		for i, out := range transaction.Outputs {
			if out.Value < v.Settings.MinimumOutputSatoshis {
				return vc, codedf(types.ValidationFailed, "output %d: %w", i, ErrBelowDustLimit)
			}
		}
	}

	return vc, nil
}

// Connect runs spec.md §4.5's tx.connect(): fans script verification out
// across dispatcher buckets, summing sigchecks and failing the whole
// transaction on the first input that does not verify.
func (v *Transaction) Connect(ctx context.Context, transaction *tx.Transaction, state *chainstate.ChainState) error {
	sigchecks := make([]int, len(transaction.Inputs))
	flags := types.RuleFlags(0)
	if state != nil {
		flags = state.EnabledForks
	}

	err := v.Dispatcher.Fan(ctx, func(ctx context.Context, bucket int) error {
		for _, i := range v.Dispatcher.Positions(bucket, len(transaction.Inputs)) {
			if transaction.Inputs[i].PrevOut.IsZero() {
				continue
			}
			n, err := v.Verify(transaction, i, flags)
			if err != nil {
				return codedf(types.ValidationFailed, "input %d: %w", i, err)
			}
			sigchecks[i] = n
		}
		return nil
	})
	if err != nil {
		return err
	}

	total := 0
	for _, n := range sigchecks {
		total += n
	}
	if total > config.MaxTxSigchecks {
		return codedf(types.TransactionSigchecksLimit, "%w: %d sigchecks, max %d", ErrSigchecksExceeded, total, config.MaxTxSigchecks)
	}
	return nil
}

// isFinal reports whether a transaction's LockTime no longer restricts it
// from inclusion at height/mtp, following the classic rule: a LockTime of
// zero or every input sequence at the final-sequence value is always
// final; otherwise LockTime must already be in the past, interpreted as a
// height or a timestamp depending on which side of lockTimeThreshold it
// falls.
func isFinal(transaction *tx.Transaction, height uint64, medianTimePast uint32) bool {
	if transaction.LockTime == 0 {
		return true
	}
	allMaxSequence := true
	for _, in := range transaction.Inputs {
		if in.Sequence != 0xffffffff {
			allMaxSequence = false
			break
		}
	}
	if allMaxSequence {
		return true
	}
	if transaction.LockTime < lockTimeThreshold {
		return uint64(transaction.LockTime) < height
	}
	return transaction.LockTime < medianTimePast
}

// transactionFee returns sum(inputs) - sum(outputs), failing if any input's
// prevout value is unavailable (should not happen once MissingPrevouts has
// already been checked clean) or if outputs exceed inputs.
func transactionFee(transaction *tx.Transaction, vc *populate.Context) (uint64, error) {
	var totalIn uint64
	for i, in := range transaction.Inputs {
		if in.PrevOut.IsZero() {
			continue
		}
		cache := vc.Prevouts[i].Cache
		if cache == nil {
			return 0, fmt.Errorf("input %d: no prevout cached", i)
		}
		totalIn += cache.Value
	}
	totalOut, err := transaction.TotalOutputValue()
	if err != nil {
		return 0, err
	}
	if totalOut > totalIn {
		return 0, fmt.Errorf("outputs %d exceed inputs %d", totalOut, totalIn)
	}
	return totalIn - totalOut, nil
}
