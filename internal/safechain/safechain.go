// Package safechain implements spec.md §6.2's SafeChain: the validated,
// read-and-submit view of the chain that other subsystems (relay, wallet
// services, block-template builders) consume. It owns no validation logic
// of its own — it is a thin façade over internal/organizer's two
// organizers, internal/blockpool's inventory filter, and
// internal/mempool's template views.
package safechain

import (
	"context"

	"github.com/k-nuth/blockchain-sub001/config"
	"github.com/k-nuth/blockchain-sub001/internal/blockpool"
	"github.com/k-nuth/blockchain-sub001/internal/mempool"
	"github.com/k-nuth/blockchain-sub001/internal/organizer"
	"github.com/k-nuth/blockchain-sub001/pkg/block"
	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// SafeChain exposes the validated chain view described by spec.md §6.2.
type SafeChain struct {
	Blocks       *organizer.BlockOrganizer
	Transactions *organizer.TransactionOrganizer
	Pool         *blockpool.Pool
	Mempool      *mempool.Mempool
	Settings     *config.Settings
}

// New wires a SafeChain over an already-constructed organizer pair. Both
// organizers must share one internal/organizer.Lifecycle and
// internal/organizer.ChainMutex, as internal/organizer's doc comments
// require; New does not itself enforce this since it only holds
// references, not construct them.
func New(blocks *organizer.BlockOrganizer, transactions *organizer.TransactionOrganizer, pool *blockpool.Pool, mp *mempool.Mempool, settings *config.Settings) *SafeChain {
	return &SafeChain{
		Blocks:       blocks,
		Transactions: transactions,
		Pool:         pool,
		Mempool:      mp,
		Settings:     settings,
	}
}

// SubscribeReorganize registers a handler called on every committed
// reorganization or linear extension.
func (s *SafeChain) SubscribeReorganize(h organizer.ReorgHandler) {
	s.Blocks.Subs.SubscribeReorganize(h)
}

// SubscribeTx registers a handler called on every transaction admitted to
// the mempool.
func (s *SafeChain) SubscribeTx(h organizer.TxHandler) {
	s.Transactions.Subs.SubscribeTx(h)
}

// SubscribeDSProof registers a handler called on every filed double-spend
// proof.
func (s *SafeChain) SubscribeDSProof(h organizer.DSProofHandler) {
	s.Transactions.Subs.SubscribeDSProof(h)
}

// OrganizeBlock submits a candidate block for validation and, if it
// outweighs the persistent chain, commitment.
func (s *SafeChain) OrganizeBlock(ctx context.Context, blk *block.Block) (types.Code, error) {
	return s.Blocks.Organize(ctx, blk)
}

// OrganizeTx submits a candidate transaction for admission to the mempool.
func (s *SafeChain) OrganizeTx(ctx context.Context, transaction *tx.Transaction, allowMempool bool) (types.Code, error) {
	return s.Transactions.Organize(ctx, transaction, allowMempool)
}

// OrganizeDSProof files a double-spend proof and fans it out to subscribers.
// Never fails: spec.md §7 treats these as advisory.
func (s *SafeChain) OrganizeDSProof(proof organizer.DoubleSpendProof) {
	s.Transactions.OrganizeDoubleSpendProof(proof)
}

// FetchDSProof returns a previously filed proof for an outpoint, if any.
func (s *SafeChain) FetchDSProof(outpoint types.Outpoint) (organizer.DoubleSpendProof, bool) {
	return s.Transactions.FetchDoubleSpendProof(outpoint)
}

// FetchTemplate returns a block template's worth of mempool transactions,
// ordered and gated the way internal/mempool.Mempool.FetchTemplate builds
// one.
func (s *SafeChain) FetchTemplate(limits mempool.TemplateLimits) []*tx.Transaction {
	return s.Mempool.FetchTemplate(limits)
}

// FetchMempool returns up to maximum mempool transaction hashes, for
// inventory announcements.
func (s *SafeChain) FetchMempool(maximum int) []types.Hash {
	return s.Mempool.FetchMempool(maximum)
}

// Filter returns the subset of inventory hashes not already known to the
// block pool, so a caller only requests blocks actually worth fetching.
func (s *SafeChain) Filter(inventory []types.Hash) []types.Hash {
	return s.Pool.Filter(inventory)
}

// ChainSettings returns the configuration this chain was constructed with.
func (s *SafeChain) ChainSettings() *config.Settings {
	return s.Settings
}

// Stopped reports whether either organizer's shared lifecycle has been
// stopped.
func (s *SafeChain) Stopped() bool {
	return s.Blocks.Life.Stopped()
}

// Stop marks the shared lifecycle stopped, short-circuiting any further
// Organize calls on either organizer.
func (s *SafeChain) Stop() {
	s.Blocks.Life.Stop()
}
