package organizer

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/k-nuth/blockchain-sub001/internal/fastchain"
	"github.com/k-nuth/blockchain-sub001/internal/log"
	"github.com/k-nuth/blockchain-sub001/internal/mempool"
	"github.com/k-nuth/blockchain-sub001/internal/metrics"
	"github.com/k-nuth/blockchain-sub001/internal/populate"
	"github.com/k-nuth/blockchain-sub001/internal/validate"
	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// TransactionOrganizer runs spec.md §4.8's organize(tx) pipeline: check,
// accept (contextual rules against the persistent tip's ChainState), and
// connect (script verification), followed by FastChain.Push and
// Mempool.Add and a subscriber notification. It also accepts and files
// double-spend proofs, which are never fatal to anything already pooled.
type TransactionOrganizer struct {
	Chain    fastchain.FastChain
	Validate *validate.Transaction
	Mempool  *mempool.Mempool
	Life     *Lifecycle
	Mutex    *ChainMutex
	Subs     *Subscribers

	dsMu     sync.RWMutex
	dsProofs map[types.Outpoint]DoubleSpendProof
}

// Organize runs the full pipeline for one candidate transaction.
// allowMempool controls whether a prevout miss may resolve against the
// mempool's own UTXO set (relaying an unconfirmed chain of transactions);
// set false when validating a transaction that must stand on confirmed
// inputs alone.
func (o *TransactionOrganizer) Organize(ctx context.Context, transaction *tx.Transaction, allowMempool bool) (code types.Code, err error) {
	requestID := uuid.New()
	logger := log.Organizer.With().Str("request_id", requestID.String()).Str("tx_hash", transaction.Hash().String()).Logger()
	defer func() {
		metrics.ObserveTxOrganized(code)
		if err != nil {
			logger.Warn().Str("code", code.String()).Err(err).Msg("transaction organize failed")
		} else {
			logger.Debug().Str("code", code.String()).Msg("transaction organize finished")
		}
	}()

	if o.Life.Stopped() {
		return types.ServiceStopped, fmt.Errorf("transaction organizer stopped")
	}
	if err := transaction.Check(); err != nil {
		return types.ValidationFailed, err
	}

	o.Mutex.LockLow()
	defer o.Mutex.Unlock()

	if o.Life.Stopped() {
		return types.ServiceStopped, fmt.Errorf("transaction organizer stopped")
	}

	branchHeight := o.Chain.GetLastHeight()
	state, err := o.Chain.ChainState(nil)
	if err != nil {
		return types.OperationFailed23, fmt.Errorf("chain state: %w", err)
	}

	vc, err := o.Validate.Accept(ctx, transaction, branchHeight, state, allowMempool)
	if err != nil {
		return validate.CodeOf(err), err
	}
	if err := o.Validate.Connect(ctx, transaction, state); err != nil {
		return validate.CodeOf(err), err
	}

	if err := o.Chain.Push(transaction); err != nil {
		return types.OperationFailed23, fmt.Errorf("push: %w", err)
	}

	fee := transactionFee(transaction, vc)
	if err := o.Mempool.Add(transaction, fee, transaction.EstimateSigops(), chainUTXOChecker{o.Chain}); err != nil {
		return mempool.CodeOf(err), err
	}

	o.Subs.notifyTx(transaction)
	metrics.SetMempoolSize(o.Mempool.Count())
	return types.Success, nil
}

// OrganizeDoubleSpendProof files a double-spend proof under the outpoint it
// claims is being spent twice and fans it out to subscribers. Never fatal:
// spec.md §7 treats double-spend proofs as advisory, not a validation
// failure.
func (o *TransactionOrganizer) OrganizeDoubleSpendProof(proof DoubleSpendProof) {
	o.dsMu.Lock()
	if o.dsProofs == nil {
		o.dsProofs = make(map[types.Outpoint]DoubleSpendProof)
	}
	o.dsProofs[proof.Outpoint] = proof
	o.dsMu.Unlock()

	o.Subs.notifyDSProof(proof)
}

// FetchDoubleSpendProof returns the stored proof for an outpoint, if any.
func (o *TransactionOrganizer) FetchDoubleSpendProof(outpoint types.Outpoint) (DoubleSpendProof, bool) {
	o.dsMu.RLock()
	defer o.dsMu.RUnlock()
	proof, ok := o.dsProofs[outpoint]
	return proof, ok
}

// transactionFee sums input values minus output values using the prevout
// cache a completed Accept call already populated, mirroring
// internal/validate's own (unexported) fee helper: by the time Organize
// reaches here, Accept has already confirmed every prevout resolved and
// outputs do not exceed inputs, so both lookups below are infallible.
func transactionFee(transaction *tx.Transaction, vc *populate.Context) uint64 {
	var totalIn uint64
	for i, in := range transaction.Inputs {
		if in.PrevOut.IsZero() {
			continue
		}
		if cache := vc.Prevouts[i].Cache; cache != nil {
			totalIn += cache.Value
		}
	}
	totalOut, err := transaction.TotalOutputValue()
	if err != nil || totalOut > totalIn {
		return 0
	}
	return totalIn - totalOut
}
