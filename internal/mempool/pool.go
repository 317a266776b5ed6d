// Package mempool implements the unconfirmed-transaction DAG spec.md §3
// and §4.8 describe: TransactionEntry nodes linked by mempool-internal
// parent/child edges, a UTXO-of-mempool index for populate's mempool
// fallback path, and best/worst-package-feerate ordering for template
// assembly and eviction.
package mempool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// UTXOChecker is the narrow persistent-chain existence check Add uses to
// classify a prevout that is not itself produced by another pooled
// transaction: either a confirmed-and-unspent output, or missing (spent
// already, or never existed). internal/utxo.Store satisfies this directly.
type UTXOChecker interface {
	Has(outpoint types.Outpoint) (bool, error)
}

// Mempool is single-writer, multi-reader (spec.md §5): every mutating call
// takes the write lock; FetchMempool/FetchTemplate/GetMempoolUTXO take the
// read lock and may run concurrently with each other.
type Mempool struct {
	mu sync.RWMutex

	entries map[types.Hash]*entry
	txs     map[types.Hash]*tx.Transaction
	utxo    map[types.Outpoint]*types.Output // outputs produced in-pool, not yet spent in-pool
	spends  map[types.Outpoint]types.Hash    // outpoint -> the pooled tx spending it

	maxTemplateSize int
	sizeMultiplier  float64 // pool capacity = maxTemplateSize * sizeMultiplier
}

// New creates an empty mempool. maxTemplateSize and sizeMultiplier come
// from config.Settings.MempoolMaxTemplateSize / MempoolSizeMultiplier.
func New(maxTemplateSize int, sizeMultiplier float64) *Mempool {
	if maxTemplateSize <= 0 {
		maxTemplateSize = 1_000_000
	}
	if sizeMultiplier <= 0 {
		sizeMultiplier = 10
	}
	return &Mempool{
		entries:         make(map[types.Hash]*entry),
		txs:             make(map[types.Hash]*tx.Transaction),
		utxo:            make(map[types.Outpoint]*types.Output),
		spends:          make(map[types.Outpoint]types.Hash),
		maxTemplateSize: maxTemplateSize,
		sizeMultiplier:  sizeMultiplier,
	}
}

func (m *Mempool) capacityBytes() uint32 {
	return uint32(float64(m.maxTemplateSize) * m.sizeMultiplier)
}

func (m *Mempool) poolBytes() uint32 {
	var total uint32
	for _, e := range m.entries {
		total += e.size
	}
	return total
}

// Add runs the admission steps spec.md §4.8 assigns to Mempool.add. fee and
// sigops are computed by the caller's accept/connect pass (internal/
// validate), not recomputed here. chainUTXO may be nil when the caller has
// already resolved every non-mempool-parent input itself.
func (m *Mempool) Add(transaction *tx.Transaction, fee uint64, sigops int, chainUTXO UTXOChecker) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := transaction.Hash()
	if _, exists := m.txs[hash]; exists {
		return coded(types.DuplicatedTransaction, fmt.Errorf("tx %s already pooled", hash))
	}

	var parents []types.Hash
	for _, in := range transaction.Inputs {
		if in.PrevOut.IsZero() {
			continue
		}
		if spender, conflict := m.spends[in.PrevOut]; conflict {
			return codedf(types.DoubleSpendMempool, "input %s already spent by %s", in.PrevOut, spender)
		}
		if parentEntry, ok := m.entries[in.PrevOut.TxID]; ok {
			parents = append(parents, parentEntry.hash)
			continue
		}
		if _, produced := m.utxo[in.PrevOut]; produced {
			// Produced by a pooled tx with no entry yet only happens mid-Add;
			// not reachable here since entries and utxo are updated together.
			continue
		}
		if chainUTXO != nil {
			has, err := chainUTXO.Has(in.PrevOut)
			if err != nil {
				return fmt.Errorf("check chain utxo %s: %w", in.PrevOut, err)
			}
			if !has {
				return codedf(types.MissingPreviousOutput, "input %s not found in chain or mempool", in.PrevOut)
			}
		}
	}

	size := uint32(transaction.Size())
	newFeeRate := 0.0
	if size > 0 {
		newFeeRate = float64(fee) / float64(size)
	}
	if cap := m.capacityBytes(); m.poolBytes()+size > cap {
		worstHash, worstRate := m.worstPackage()
		if !worstHash.IsZero() && newFeeRate <= worstRate {
			return coded(types.LowBenefitTransaction, ErrLowBenefit)
		}
		if !worstHash.IsZero() {
			m.removeWithDescendantsLocked(worstHash)
		}
	}

	e := newEntry(hash, size, uint32(sigops), fee, len(transaction.Outputs))
	for _, p := range parents {
		e.parents[p] = struct{}{}
	}
	m.entries[hash] = e
	m.txs[hash] = transaction

	for _, p := range parents {
		m.entries[p].children[hash] = struct{}{}
		m.propagateToAncestors(p, int64(fee), int64(size), int64(sigops))
	}

	for _, in := range transaction.Inputs {
		if in.PrevOut.IsZero() {
			continue
		}
		m.spends[in.PrevOut] = hash
		delete(m.utxo, in.PrevOut) // a parent's pooled output is now spent, no longer a mempool UTXO.
	}
	for i, out := range transaction.Outputs {
		o := out
		m.utxo[types.Outpoint{TxID: hash, Index: uint32(i)}] = &o
	}

	return nil
}

// propagateToAncestors walks parent links from start upward, adjusting
// each ancestor's descendant aggregates by the given deltas.
func (m *Mempool) propagateToAncestors(start types.Hash, feeDelta, sizeDelta, sigopsDelta int64) {
	visited := make(map[types.Hash]bool)
	var walk func(types.Hash)
	walk = func(h types.Hash) {
		if visited[h] {
			return
		}
		visited[h] = true
		e, ok := m.entries[h]
		if !ok {
			return
		}
		e.descendantFees = uint64(int64(e.descendantFees) + feeDelta)
		e.descendantSize = uint32(int64(e.descendantSize) + sizeDelta)
		e.descendantSigops = uint32(int64(e.descendantSigops) + sigopsDelta)
		for p := range e.parents {
			walk(p)
		}
	}
	walk(start)
}

// worstPackage returns the pooled anchor with the lowest package feerate,
// the eviction candidate spec.md §4.8 step 4 names. Only anchors (no
// mempool parents) are evicted directly; removeWithDescendantsLocked
// takes its descendants with it.
func (m *Mempool) worstPackage() (types.Hash, float64) {
	var worst types.Hash
	worstRate := -1.0
	for h, e := range m.entries {
		if !e.isAnchor() {
			continue
		}
		rate := e.packageFeeRate()
		if worstRate < 0 || rate < worstRate {
			worstRate = rate
			worst = h
		}
	}
	if worstRate < 0 {
		return types.Hash{}, 0
	}
	return worst, worstRate
}

// removeWithDescendantsLocked removes hash and every descendant reachable
// from it, since a descendant's inputs would otherwise reference a
// transaction no longer in the pool or in the chain.
func (m *Mempool) removeWithDescendantsLocked(hash types.Hash) {
	e, ok := m.entries[hash]
	if !ok {
		return
	}
	for child := range e.children {
		m.removeWithDescendantsLocked(child)
	}
	m.removeOneLocked(hash)
}

// removeOneLocked detaches a single node from the graph: unlinks it from
// its parents (decrementing their descendant aggregates) and from any
// children still pooled, and drops its mempool-UTXO and conflict-index
// entries. The children themselves stay in the pool.
func (m *Mempool) removeOneLocked(hash types.Hash) {
	e, ok := m.entries[hash]
	if !ok {
		return
	}
	transaction := m.txs[hash]

	for p := range e.parents {
		if parentEntry, ok := m.entries[p]; ok {
			delete(parentEntry.children, hash)
			m.propagateToAncestors(p, -int64(e.fee), -int64(e.size), -int64(e.sigops))
		}
	}
	for c := range e.children {
		if childEntry, ok := m.entries[c]; ok {
			delete(childEntry.parents, hash)
		}
	}

	if transaction != nil {
		for _, in := range transaction.Inputs {
			if in.PrevOut.IsZero() {
				continue
			}
			if m.spends[in.PrevOut] == hash {
				delete(m.spends, in.PrevOut)
			}
		}
		for i := range transaction.Outputs {
			delete(m.utxo, types.Outpoint{TxID: hash, Index: uint32(i)})
		}
	}

	delete(m.entries, hash)
	delete(m.txs, hash)
}

// Remove evicts a single transaction and its descendants, e.g. a tx the
// block organizer displaced during a reorg and that is no longer valid
// against the new tip.
func (m *Mempool) Remove(hash types.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeWithDescendantsLocked(hash)
}

// RemoveConfirmed removes every transaction newly included in an accepted
// block. Unlike Remove, it does not take descendants down with it: a
// surviving child is simply unlinked from its now-confirmed parent and
// becomes an anchor (or keeps other still-pooled parents).
func (m *Mempool) RemoveConfirmed(transactions []*tx.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range transactions {
		hash := t.Hash()
		if _, ok := m.entries[hash]; !ok {
			continue
		}
		m.removeOneLocked(hash)
	}
}

// ReAdd re-admits a transaction displaced by a reorg (spec.md §4.8
// "Removal on reorganization"), running the same admission path as Add.
func (m *Mempool) ReAdd(transaction *tx.Transaction, fee uint64, sigops int, chainUTXO UTXOChecker) error {
	return m.Add(transaction, fee, sigops, chainUTXO)
}

// Has reports whether a transaction is currently pooled.
func (m *Mempool) Has(hash types.Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.txs[hash]
	return ok
}

// Get retrieves a pooled transaction by hash, or nil if absent.
func (m *Mempool) Get(hash types.Hash) *tx.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.txs[hash]
}

// Count returns the number of pooled transactions.
func (m *Mempool) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}

// GetMempoolUTXO implements populate.MempoolUTXOSource: the fallback path
// a populator consults for a prevout produced in-pool and not yet
// confirmed.
func (m *Mempool) GetMempoolUTXO(outpoint types.Outpoint) (*types.Output, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out, ok := m.utxo[outpoint]
	return out, ok
}

// FetchMempool returns up to maximum pooled transaction hashes, best
// package feerate first. maximum <= 0 means no limit.
func (m *Mempool) FetchMempool(maximum int) []types.Hash {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hashes := make([]types.Hash, 0, len(m.entries))
	for h := range m.entries {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool {
		return m.entries[hashes[i]].packageFeeRate() > m.entries[hashes[j]].packageFeeRate()
	})
	if maximum > 0 && maximum < len(hashes) {
		hashes = hashes[:maximum]
	}
	return hashes
}

// TemplateLimits bounds a single FetchTemplate call, taken from
// config.Settings.MempoolMaxTemplateSize and the network's per-block
// sigop cap.
type TemplateLimits struct {
	MaxSize   uint32
	MaxSigops uint32
}

// FetchTemplate assembles a candidate block body: entries walked in
// best-package-feerate order, each included only once every one of its
// mempool parents is already in the template (spec §4.8's ancestor-gated
// inclusion), stopping once either limit would be exceeded.
func (m *Mempool) FetchTemplate(limits TemplateLimits) []*tx.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ordered := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].packageFeeRate() != ordered[j].packageFeeRate() {
			return ordered[i].packageFeeRate() > ordered[j].packageFeeRate()
		}
		return ordered[i].hash.String() < ordered[j].hash.String()
	})

	included := make(map[types.Hash]bool, len(ordered))
	var size, sigops uint32
	var result []*tx.Transaction

	// A node can be ready-gated behind a lower-ranked parent (package feerate
	// reflects a node's own descendants, not its ancestors, so ordering by
	// it alone does not guarantee parents precede children). Re-scan the
	// remaining entries until a full pass adds nothing, rather than only
	// ever looking at each entry once.
	remaining := ordered
	for len(remaining) > 0 {
		next := remaining[:0:0]
		progressed := false
		for _, e := range remaining {
			ready := true
			for p := range e.parents {
				if !included[p] {
					ready = false
					break
				}
			}
			if !ready {
				next = append(next, e)
				continue
			}
			if (limits.MaxSize > 0 && size+e.size > limits.MaxSize) ||
				(limits.MaxSigops > 0 && sigops+e.sigops > limits.MaxSigops) {
				return result // the next entry would exceed a limit: the template is full.
			}
			included[e.hash] = true
			size += e.size
			sigops += e.sigops
			result = append(result, m.txs[e.hash])
			progressed = true
		}
		if !progressed {
			break
		}
		remaining = next
	}

	return result
}
