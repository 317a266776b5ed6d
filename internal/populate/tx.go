package populate

import (
	"context"
	"errors"
	"fmt"

	"github.com/k-nuth/blockchain-sub001/internal/chainstate"
	"github.com/k-nuth/blockchain-sub001/internal/dispatcher"
	"github.com/k-nuth/blockchain-sub001/pkg/tx"
)

// ErrNoChainState is returned when the chain state needed to populate a
// transaction is unavailable — spec.md §6.4's operation_failed_23, a
// storage fault rather than a validation failure.
var ErrNoChainState = errors.New("populate: chain state unavailable")

// Tx implements spec.md §4.4's PopulateTx: attaches prevout and duplicate
// metadata to a loose transaction ahead of ValidateTransaction's
// accept/connect phases. It leaves Context.Pooled and Context.Current false.
type Tx struct {
	Base *Base
}

// Populate fills a new Context for transaction against branchHeight (the
// current persistent tip height for a loose tx, or a branch top height
// when validating a tx as part of a block). allowMempool controls whether
// a prevout miss may be resolved against the mempool UTXO (only meaningful
// when BCH mempool admission is enabled).
func (p *Tx) Populate(ctx context.Context, d *dispatcher.Dispatcher, transaction *tx.Transaction, branchHeight uint64, state *chainstate.ChainState, allowMempool bool) (*Context, error) {
	if state == nil {
		return nil, ErrNoChainState
	}
	vc := NewContext(transaction)
	vc.State = state
	vc.Duplicate = p.Base.PopulateDuplicate()

	err := d.Fan(ctx, func(ctx context.Context, bucket int) error {
		for _, i := range d.Positions(bucket, len(transaction.Inputs)) {
			prevout, err := p.Base.PopulatePrevout(branchHeight, transaction.Inputs[i].PrevOut, Sources{FromMempool: allowMempool})
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			vc.Prevouts[i] = prevout
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vc, nil
}
