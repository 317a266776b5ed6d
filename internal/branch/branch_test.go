package branch

import (
	"testing"

	"github.com/k-nuth/blockchain-sub001/pkg/block"
	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

func makeBlock(prev types.Hash, bits uint32, coinbaseExtra byte) *block.Block {
	coinbase := &tx.Transaction{
		Version: 1,
		Inputs: []tx.Input{
			{PrevOut: types.Outpoint{}, UnlockingScript: []byte{coinbaseExtra}, Sequence: 0xffffffff},
		},
		Outputs: []tx.Output{{Value: 100, Script: []byte{0x01}}},
	}
	root := block.ComputeMerkleRoot([]types.Hash{coinbase.Hash()})
	header := &block.Header{
		Version:    1,
		PrevHash:   prev,
		MerkleRoot: root,
		Timestamp:  1700000000,
		Bits:       bits,
		Nonce:      0,
	}
	return block.NewBlock(header, []*tx.Transaction{coinbase})
}

func TestBranch_PushFront_FirstBlockAlwaysAccepted(t *testing.T) {
	b := New(10)
	blk := makeBlock(types.Hash{0xAA}, 0x1d00ffff, 1)
	if !b.PushFront(blk) {
		t.Fatal("first PushFront should always be accepted")
	}
	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}
	if b.TopHeight() != 11 {
		t.Errorf("TopHeight() = %d, want 11", b.TopHeight())
	}
}

func TestBranch_PushFront_RejectsBrokenLinkage(t *testing.T) {
	b := New(10)
	top := makeBlock(types.Hash{0xAA}, 0x1d00ffff, 1)
	b.PushFront(top)

	unrelated := makeBlock(types.Hash{0xFF}, 0x1d00ffff, 2)
	if b.PushFront(unrelated) {
		t.Fatal("PushFront should reject a block that is not the front's parent")
	}
	if b.Len() != 1 {
		t.Errorf("Len() should remain 1 after rejected push, got %d", b.Len())
	}
}

func TestBranch_PushFront_AcceptsCorrectParent(t *testing.T) {
	b := New(10)
	top := makeBlock(types.Hash{0xAA}, 0x1d00ffff, 1)
	b.PushFront(top)

	parent := makeBlock(types.Hash{0xBB}, 0x1d00ffff, 2)
	// Make top's prev match parent's hash.
	top.Header.PrevHash = parent.Hash()

	if !b.PushFront(parent) {
		t.Fatal("PushFront should accept the front's actual parent")
	}
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}
	if b.Blocks()[0] != parent || b.Blocks()[1] != top {
		t.Error("blocks should be ordered low-to-high after push_front")
	}
}

func TestBranch_HeaderLookup_BelowBranchSignalsFalse(t *testing.T) {
	b := New(10)
	b.PushFront(makeBlock(types.Hash{0xAA}, 0x1d00ffff, 1))

	if _, ok := b.Bits(10); ok {
		t.Error("Bits at the fork-parent height should signal false (below branch)")
	}
	if _, ok := b.Bits(5); ok {
		t.Error("Bits well below the branch should signal false")
	}
	if _, ok := b.Bits(12); ok {
		t.Error("Bits above the branch top should signal false")
	}
}

func TestBranch_HeaderLookup_WithinBranch(t *testing.T) {
	b := New(10)
	blk := makeBlock(types.Hash{0xAA}, 0x1d00ffff, 1)
	b.PushFront(blk)

	bits, ok := b.Bits(11)
	if !ok || bits != 0x1d00ffff {
		t.Errorf("Bits(11) = (%08x, %v), want (0x1d00ffff, true)", bits, ok)
	}
	hash, ok := b.BlockHash(11)
	if !ok || hash != blk.Hash() {
		t.Error("BlockHash(11) should match the pushed block's hash")
	}
}

func TestBranch_BuildUTXO_FindsOutputOfLowerBlock(t *testing.T) {
	b := New(0)
	low := makeBlock(types.Hash{}, 0x1d00ffff, 1)
	high := makeBlock(low.Hash(), 0x1d00ffff, 2)
	b.PushFront(high)
	b.PushFront(low)

	layers := b.BuildUTXO()
	if len(layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(layers))
	}

	op := types.Outpoint{TxID: low.Transactions[0].Hash(), Index: 0}
	out, ok := PopulatePrevout(layers, op)
	if !ok {
		t.Fatal("expected to find output produced by the low block")
	}
	if out.Value != 100 {
		t.Errorf("Value = %d, want 100", out.Value)
	}
}

func TestBranch_PopulateSpent(t *testing.T) {
	b := New(0)
	spentOutpoint := types.Outpoint{TxID: types.Hash{0x01}, Index: 0}

	spender := &tx.Transaction{
		Version: 1,
		Inputs:  []tx.Input{{PrevOut: spentOutpoint, Sequence: 0xffffffff}},
		Outputs: []tx.Output{{Value: 50, Script: []byte{0x01}}},
	}
	coinbase := &tx.Transaction{
		Version: 1,
		Inputs:  []tx.Input{{PrevOut: types.Outpoint{}, UnlockingScript: []byte{9}, Sequence: 0xffffffff}},
		Outputs: []tx.Output{{Value: 100, Script: []byte{0x01}}},
	}
	root := block.ComputeMerkleRoot([]types.Hash{coinbase.Hash(), spender.Hash()})
	header := &block.Header{Version: 1, MerkleRoot: root, Timestamp: 1700000000, Bits: 0x1d00ffff}
	blk := block.NewBlock(header, []*tx.Transaction{coinbase, spender})
	b.PushFront(blk)

	if !b.PopulateSpent(spentOutpoint) {
		t.Error("PopulateSpent should find the spend inside the branch")
	}
	if b.PopulateSpent(types.Outpoint{TxID: types.Hash{0x99}, Index: 0}) {
		t.Error("PopulateSpent should not find an outpoint that is not spent")
	}
}
