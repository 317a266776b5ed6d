package mempool

import "github.com/k-nuth/blockchain-sub001/pkg/types"

// entry is the TransactionEntry node of the mempool DAG (spec §3): it
// stores only derived fields plus parent/child hash links, never a
// transaction copy — the owning Mempool keeps the actual transaction body
// in a separate map keyed by the same hash, bounding per-node memory.
type entry struct {
	hash        types.Hash
	size        uint32
	sigops      uint32
	fee         uint64
	outputCount int

	parents  map[types.Hash]struct{}
	children map[types.Hash]struct{}

	// descendant* are running totals over this node and every descendant,
	// maintained incrementally by Mempool.propagateToAncestors rather than
	// recomputed on each query.
	descendantFees   uint64
	descendantSize   uint32
	descendantSigops uint32

	marked bool // not set by any walk in this package; walks track visited nodes in local maps.
}

func newEntry(hash types.Hash, size, sigops uint32, fee uint64, outputCount int) *entry {
	return &entry{
		hash:             hash,
		size:             size,
		sigops:           sigops,
		fee:              fee,
		outputCount:      outputCount,
		parents:          make(map[types.Hash]struct{}),
		children:         make(map[types.Hash]struct{}),
		descendantFees:   fee,
		descendantSize:   size,
		descendantSigops: sigops,
	}
}

// isAnchor reports whether e has no mempool parents: every input resolves
// to a chain-confirmed UTXO, never to another pooled transaction.
func (e *entry) isAnchor() bool {
	return len(e.parents) == 0
}

// packageFeeRate is the descendant-inclusive fee rate (satoshis per byte)
// used for both eviction (worst package first) and template assembly
// (best package first).
func (e *entry) packageFeeRate() float64 {
	if e.descendantSize == 0 {
		return 0
	}
	return float64(e.descendantFees) / float64(e.descendantSize)
}
