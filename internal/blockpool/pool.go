// Package blockpool holds side-branch tips that have not yet been attached
// to (or reorganized into) the persistent chain: orphans waiting on a
// missing parent, and competing forks below the current best-chain work.
package blockpool

import (
	"sync"

	"github.com/k-nuth/blockchain-sub001/internal/branch"
	"github.com/k-nuth/blockchain-sub001/pkg/block"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// unknownHeight marks an entry whose height could not be resolved yet
// because its parent is not (or not yet) in the pool.
const unknownHeight = ^uint64(0)

// entry is one pooled block plus the pool-local parent/child links needed
// to walk and prune without touching persistent storage.
type entry struct {
	hash       types.Hash
	block      *block.Block
	parentHash types.Hash
	children   map[types.Hash]struct{}
	height     uint64 // unknownHeight until a known-height ancestor resolves it.
}

// Pool indexes pooled blocks bidirectionally by hash and by height, bounded
// to MaximumDepth below the persistent chain's top height.
type Pool struct {
	mu      sync.RWMutex
	entries map[types.Hash]*entry

	// MaximumDepth bounds how far below the persistent tip a pooled block
	// may sit before Prune evicts it.
	MaximumDepth uint64
}

// New creates an empty pool with the given pruning depth.
func New(maximumDepth uint64) *Pool {
	return &Pool{
		entries:      make(map[types.Hash]*entry),
		MaximumDepth: maximumDepth,
	}
}

// Has reports whether a block with the given hash is already pooled.
func (p *Pool) Has(hash types.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.entries[hash]
	return ok
}

// Add inserts a block into the pool, idempotent on hash. If the block's
// parent is already pooled, the new entry's height is resolved immediately
// and propagated to any of its own pooled descendants; otherwise the entry
// is placed in the unknown-height bucket until a later Add resolves it.
// knownParentHeight, when non-nil, supplies the parent's height from
// persistent storage for a block whose parent is not itself pooled (the
// common case: a block attaching directly below a fork point).
func (p *Pool) Add(blk *block.Block, knownParentHeight *uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addLocked(blk, knownParentHeight)
}

func (p *Pool) addLocked(blk *block.Block, knownParentHeight *uint64) {
	hash := blk.Hash()
	if _, exists := p.entries[hash]; exists {
		return
	}

	parentHash := blk.Header.PrevHash
	height := unknownHeight
	if parent, ok := p.entries[parentHash]; ok && parent.height != unknownHeight {
		height = parent.height + 1
	} else if knownParentHeight != nil {
		height = *knownParentHeight + 1
	}

	e := &entry{
		hash:       hash,
		block:      blk,
		parentHash: parentHash,
		children:   make(map[types.Hash]struct{}),
		height:     height,
	}
	p.entries[hash] = e

	if parent, ok := p.entries[parentHash]; ok {
		parent.children[hash] = struct{}{}
	}
	for childHash, child := range p.entries {
		if child.parentHash == hash {
			e.children[childHash] = struct{}{}
		}
	}

	if height != unknownHeight {
		p.resolveDescendants(e)
	}
}

// resolveDescendants propagates a newly-known height down to pooled
// children whose height was previously unknown.
func (p *Pool) resolveDescendants(e *entry) {
	for childHash := range e.children {
		child, ok := p.entries[childHash]
		if !ok || child.height != unknownHeight {
			continue
		}
		child.height = e.height + 1
		p.resolveDescendants(child)
	}
}

// AddAll bulk-adds a root path, used to absorb the blocks displaced by a
// reorganization back into the pool as a now-losing side branch.
func (p *Pool) AddAll(blocks []*block.Block) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, blk := range blocks {
		p.addLocked(blk, nil)
	}
}

// Remove deletes an accepted path's entries from the pool (they now live in
// persistent storage) and re-roots any children they had that are not
// themselves part of the removed path.
func (p *Pool) Remove(blocks []*block.Block) {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := make(map[types.Hash]struct{}, len(blocks))
	for _, blk := range blocks {
		removed[blk.Hash()] = struct{}{}
	}

	for _, blk := range blocks {
		hash := blk.Hash()
		e, ok := p.entries[hash]
		if !ok {
			continue
		}
		if parent, ok := p.entries[e.parentHash]; ok {
			delete(parent.children, hash)
		}
		delete(p.entries, hash)
	}
}

// Prune evicts entries at height <= topHeight-MaximumDepth, transitively
// with their children: a block whose parent was pruned can never attach to
// the persistent chain, so it is unreachable regardless of its own height.
func (p *Pool) Prune(topHeight uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if topHeight < p.MaximumDepth {
		return
	}
	threshold := topHeight - p.MaximumDepth

	var toPrune []types.Hash
	for hash, e := range p.entries {
		if e.height != unknownHeight && e.height <= threshold {
			toPrune = append(toPrune, hash)
		}
	}
	for _, hash := range toPrune {
		p.pruneSubtree(hash)
	}
}

func (p *Pool) pruneSubtree(hash types.Hash) {
	e, ok := p.entries[hash]
	if !ok {
		return
	}
	children := make([]types.Hash, 0, len(e.children))
	for child := range e.children {
		children = append(children, child)
	}
	delete(p.entries, hash)
	for _, child := range children {
		p.pruneSubtree(child)
	}
}

// Filter removes hashes already present in the pool from a network
// inventory vector, suppressing re-requests for blocks already held.
func (p *Pool) Filter(inventory []types.Hash) []types.Hash {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]types.Hash, 0, len(inventory))
	for _, hash := range inventory {
		if _, ok := p.entries[hash]; !ok {
			out = append(out, hash)
		}
	}
	return out
}

// GetPath walks the parent chain of candidate through the pool and returns
// the resulting Branch, low height first, ending at candidate. Returns an
// empty branch if candidate's hash is already pooled (nothing to do: it is
// either a known orphan or a known side-branch tip already). The returned
// branch's Height is left at zero; the caller resolves the real fork-parent
// height once it finds candidate's topmost pool-unknown ancestor in
// persistent storage and calls Branch.SetHeight.
func (p *Pool) GetPath(candidate *block.Block) *branch.Branch {
	p.mu.RLock()
	defer p.mu.RUnlock()

	br := branch.New(0)
	if _, ok := p.entries[candidate.Hash()]; ok {
		return br
	}

	br.PushFront(candidate)
	cur := candidate
	for {
		parent, ok := p.entries[cur.Header.PrevHash]
		if !ok {
			break
		}
		if !br.PushFront(parent.block) {
			break
		}
		cur = parent.block
	}
	return br
}

// Len returns the number of pooled entries.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}
