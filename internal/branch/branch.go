// Package branch implements the ordered chain of candidate blocks hanging
// off a fork point, serving chain-context queries to the validator before
// any of those blocks are written to persistent storage.
package branch

import (
	"github.com/k-nuth/blockchain-sub001/pkg/block"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// Branch is an ordered low-to-high list of candidate blocks hanging off a
// fork point in the persistent chain. Height is the height of the fork
// parent, not of blocks[0]; blocks[0] sits at Height+1.
type Branch struct {
	height uint64
	blocks []*block.Block
}

// New creates an empty branch rooted at the given fork-parent height.
func New(height uint64) *Branch {
	return &Branch{height: height}
}

// PushFront prepends a block to the branch. The first push is accepted
// unconditionally; every later push must supply the parent of the current
// front (blk.Hash() == front.Header.PrevHash), which keeps the branch
// ordered low->high as callers walk a candidate's ancestry backward toward
// the fork point. Returns false (and leaves the branch unchanged) when the
// linkage does not hold, which ends the caller's walk.
func (b *Branch) PushFront(blk *block.Block) bool {
	if len(b.blocks) == 0 {
		b.blocks = []*block.Block{blk}
		return true
	}
	if blk.Hash() != b.blocks[0].Header.PrevHash {
		return false
	}
	b.blocks = append([]*block.Block{blk}, b.blocks...)
	return true
}

// Height returns the fork-parent height (the height of the block this
// branch hangs off, which is not itself part of the branch).
func (b *Branch) Height() uint64 {
	return b.height
}

// SetHeight fixes the fork-parent height once it has been resolved against
// the persistent chain (BlockOrganizer.set_branch_height in spec terms). A
// branch built purely by walking the block pool does not know this height
// until its caller looks up the fork-parent hash in persistent storage.
func (b *Branch) SetHeight(height uint64) {
	b.height = height
}

// TopHeight returns the height of the highest block in the branch.
func (b *Branch) TopHeight() uint64 {
	return b.height + uint64(len(b.blocks))
}

// Top returns the highest block in the branch, or nil if the branch is empty.
func (b *Branch) Top() *block.Block {
	if len(b.blocks) == 0 {
		return nil
	}
	return b.blocks[len(b.blocks)-1]
}

// Blocks returns the branch's blocks, low height first. The caller must not
// mutate the returned slice.
func (b *Branch) Blocks() []*block.Block {
	return b.blocks
}

// Len returns the number of blocks in the branch.
func (b *Branch) Len() int {
	return len(b.blocks)
}

// indexAt converts an absolute chain height into a branch-local index,
// reporting false when the height falls below the branch (the caller
// should fall back to the persistent chain).
func (b *Branch) indexAt(height uint64) (int, bool) {
	if height <= b.height || height > b.TopHeight() {
		return 0, false
	}
	return int(height-b.height) - 1, true
}

// Bits returns the header's Bits field at the given absolute height.
func (b *Branch) Bits(height uint64) (uint32, bool) {
	i, ok := b.indexAt(height)
	if !ok {
		return 0, false
	}
	return b.blocks[i].Header.Bits, true
}

// Version returns the header's Version field at the given absolute height.
func (b *Branch) Version(height uint64) (uint32, bool) {
	i, ok := b.indexAt(height)
	if !ok {
		return 0, false
	}
	return b.blocks[i].Header.Version, true
}

// Timestamp returns the header's Timestamp field at the given absolute height.
func (b *Branch) Timestamp(height uint64) (uint32, bool) {
	i, ok := b.indexAt(height)
	if !ok {
		return 0, false
	}
	return b.blocks[i].Header.Timestamp, true
}

// BlockHash returns the block hash at the given absolute height.
func (b *Branch) BlockHash(height uint64) (types.Hash, bool) {
	i, ok := b.indexAt(height)
	if !ok {
		return types.Hash{}, false
	}
	return b.blocks[i].Hash(), true
}
