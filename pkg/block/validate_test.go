package block

import (
	"bytes"
	"errors"
	"sort"
	"testing"

	"github.com/k-nuth/blockchain-sub001/config"
	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// testCoinbase returns a minimal coinbase transaction.
func testCoinbase() *tx.Transaction {
	return &tx.Transaction{
		Version: 1,
		Inputs:  []tx.Input{{PrevOut: types.Outpoint{}, UnlockingScript: []byte("height-1")}},
		Outputs: []tx.Output{{Value: 1000, Script: make([]byte, 20)}},
	}
}

// spendTx returns a minimal structurally-valid non-coinbase transaction
// spending the given outpoint.
func spendTx(prevOut types.Outpoint, value uint64) *tx.Transaction {
	return &tx.Transaction{
		Version: 1,
		Inputs:  []tx.Input{{PrevOut: prevOut, UnlockingScript: []byte("sig+pubkey")}},
		Outputs: []tx.Output{{Value: value, Script: make([]byte, 20)}},
	}
}

// validBlock creates a minimal valid block with correct merkle root.
func validBlock() *Block {
	coinbase := testCoinbase()
	txHashes := []types.Hash{coinbase.Hash()}
	merkleRoot := ComputeMerkleRoot(txHashes)

	header := &Header{
		Version:    CurrentVersion,
		PrevHash:   types.Hash{0xaa},
		MerkleRoot: merkleRoot,
		Timestamp:  1700000000,
		Bits:       0x1d00ffff,
	}

	return NewBlock(header, []*tx.Transaction{coinbase})
}

func TestBlock_Check_Valid(t *testing.T) {
	blk := validBlock()
	if err := blk.Check(); err != nil {
		t.Errorf("valid block should pass: %v", err)
	}
}

func TestBlock_Check_NilHeader(t *testing.T) {
	blk := &Block{Header: nil}
	err := blk.Check()
	if !errors.Is(err, ErrNilHeader) {
		t.Errorf("expected ErrNilHeader, got: %v", err)
	}
}

func TestBlock_Check_BadVersion(t *testing.T) {
	blk := validBlock()
	blk.Header.Version = 99
	err := blk.Check()
	if !errors.Is(err, ErrBadVersion) {
		t.Errorf("expected ErrBadVersion, got: %v", err)
	}
}

func TestBlock_Check_VersionZero(t *testing.T) {
	blk := validBlock()
	blk.Header.Version = 0
	err := blk.Check()
	if !errors.Is(err, ErrBadVersion) {
		t.Errorf("expected ErrBadVersion for version 0, got: %v", err)
	}
}

func TestBlock_Check_VersionCurrent(t *testing.T) {
	blk := validBlock()
	blk.Header.Version = CurrentVersion
	if err := blk.Check(); err != nil {
		t.Errorf("version %d should be valid: %v", CurrentVersion, err)
	}
}

func TestBlock_Check_VersionAboveMax(t *testing.T) {
	blk := validBlock()
	blk.Header.Version = MaxVersion + 1
	err := blk.Check()
	if !errors.Is(err, ErrBadVersion) {
		t.Errorf("expected ErrBadVersion for version %d, got: %v", MaxVersion+1, err)
	}
}

func TestBlock_Check_ZeroTimestamp(t *testing.T) {
	blk := validBlock()
	blk.Header.Timestamp = 0
	err := blk.Check()
	if !errors.Is(err, ErrZeroTimestamp) {
		t.Errorf("expected ErrZeroTimestamp, got: %v", err)
	}
}

func TestBlock_Check_NoTransactions(t *testing.T) {
	blk := &Block{
		Header: &Header{
			Version:   CurrentVersion,
			Timestamp: 1700000000,
		},
		Transactions: nil,
	}
	err := blk.Check()
	if !errors.Is(err, ErrNoTransactions) {
		t.Errorf("expected ErrNoTransactions, got: %v", err)
	}
}

func TestBlock_Check_BadMerkleRoot(t *testing.T) {
	blk := validBlock()
	blk.Header.MerkleRoot = types.Hash{0xde, 0xad}
	err := blk.Check()
	if !errors.Is(err, ErrBadMerkleRoot) {
		t.Errorf("expected ErrBadMerkleRoot, got: %v", err)
	}
}

func TestBlock_Check_InvalidTransaction(t *testing.T) {
	coinbase := testCoinbase()
	badTx := &tx.Transaction{
		Version: 1,
		Inputs:  []tx.Input{{PrevOut: types.Outpoint{TxID: types.Hash{0x01}, Index: 0}}},
		Outputs: []tx.Output{{Value: 1000, Script: make([]byte, 20)}},
	}

	txs := []*tx.Transaction{coinbase, badTx}
	hashes := []types.Hash{txs[0].Hash(), txs[1].Hash()}
	merkle := ComputeMerkleRoot(hashes)

	blk := NewBlock(&Header{
		Version:    CurrentVersion,
		MerkleRoot: merkle,
		Timestamp:  1700000000,
	}, txs)

	if err := blk.Check(); err == nil {
		t.Error("block with invalid tx should fail validation")
	}
}

func TestBlock_Check_MultipleTxs(t *testing.T) {
	coinbase := testCoinbase()
	tx1 := spendTx(types.Outpoint{TxID: types.Hash{0x01}, Index: 0}, 1000)
	tx2 := spendTx(types.Outpoint{TxID: types.Hash{0x02}, Index: 0}, 2000)

	userTxs := []*tx.Transaction{tx1, tx2}
	sortTxsByHash(userTxs)

	txs := append([]*tx.Transaction{coinbase}, userTxs...)

	hashes := make([]types.Hash, len(txs))
	for i, transaction := range txs {
		hashes[i] = transaction.Hash()
	}
	merkle := ComputeMerkleRoot(hashes)

	blk := NewBlock(&Header{
		Version:    CurrentVersion,
		MerkleRoot: merkle,
		Timestamp:  1700000000,
	}, txs)

	if err := blk.Check(); err != nil {
		t.Errorf("multi-tx block should validate: %v", err)
	}
}

func TestBlock_Check_NoCoinbase(t *testing.T) {
	transaction := spendTx(types.Outpoint{TxID: types.Hash{0x01}, Index: 0}, 1000)

	merkle := ComputeMerkleRoot([]types.Hash{transaction.Hash()})
	blk := NewBlock(&Header{
		Version:    CurrentVersion,
		MerkleRoot: merkle,
		Timestamp:  1700000000,
	}, []*tx.Transaction{transaction})

	err := blk.Check()
	if !errors.Is(err, ErrNoCoinbase) {
		t.Errorf("expected ErrNoCoinbase, got: %v", err)
	}
}

func TestBlock_Check_MultipleCoinbase(t *testing.T) {
	coinbase1 := testCoinbase()
	coinbase2 := &tx.Transaction{
		Inputs:  []tx.Input{{PrevOut: types.Outpoint{}, UnlockingScript: []byte("height-1-dup")}},
		Outputs: []tx.Output{{Value: 1000, Script: make([]byte, 20)}},
	}

	txs := []*tx.Transaction{coinbase1, coinbase2}
	hashes := []types.Hash{txs[0].Hash(), txs[1].Hash()}
	merkle := ComputeMerkleRoot(hashes)

	blk := NewBlock(&Header{
		Version:    CurrentVersion,
		MerkleRoot: merkle,
		Timestamp:  1700000000,
	}, txs)

	err := blk.Check()
	if !errors.Is(err, ErrMultipleCoinbase) {
		t.Errorf("expected ErrMultipleCoinbase, got: %v", err)
	}
}

func TestBlock_Check_BadTxOrder(t *testing.T) {
	coinbase := testCoinbase()
	tx1 := spendTx(types.Outpoint{TxID: types.Hash{0x01}, Index: 0}, 1000)
	tx2 := spendTx(types.Outpoint{TxID: types.Hash{0x02}, Index: 0}, 2000)

	userTxs := []*tx.Transaction{tx1, tx2}
	sortTxsByHash(userTxs)
	userTxs[0], userTxs[1] = userTxs[1], userTxs[0] // reverse = wrong order

	txs := append([]*tx.Transaction{coinbase}, userTxs...)

	hashes := make([]types.Hash, len(txs))
	for i, transaction := range txs {
		hashes[i] = transaction.Hash()
	}
	merkle := ComputeMerkleRoot(hashes)

	blk := NewBlock(&Header{
		Version:    CurrentVersion,
		MerkleRoot: merkle,
		Timestamp:  1700000000,
	}, txs)

	err := blk.Check()
	if !errors.Is(err, ErrBadTxOrder) {
		t.Errorf("expected ErrBadTxOrder, got: %v", err)
	}
}

// sortTxsByHash sorts transactions by hash ascending (canonical order).
func sortTxsByHash(txs []*tx.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		hi, hj := txs[i].Hash(), txs[j].Hash()
		return bytes.Compare(hi[:], hj[:]) < 0
	})
}

func TestHeader_Hash_Deterministic(t *testing.T) {
	h := &Header{
		Version:   1,
		PrevHash:  types.Hash{0x01},
		Timestamp: 1700000000,
		Bits:      0x1d00ffff,
	}

	h1 := h.Hash()
	h2 := h.Hash()
	if h1 != h2 {
		t.Error("Header.Hash() should be deterministic")
	}
	if h1.IsZero() {
		t.Error("Header.Hash() should not be zero")
	}
}

func TestHeader_Hash_ChangesWithNonce(t *testing.T) {
	h := &Header{Version: 1, PrevHash: types.Hash{0x01}, Timestamp: 1700000000}
	h1 := h.Hash()
	h.Nonce = 1
	h2 := h.Hash()
	if h1 == h2 {
		t.Error("Header.Hash() should change when nonce changes")
	}
}

func TestBlock_Check_TooManyTxs(t *testing.T) {
	coinbase := testCoinbase()

	txs := make([]*tx.Transaction, 0, config.MaxBlockTxs+1)
	txs = append(txs, coinbase)

	for i := 0; i < config.MaxBlockTxs; i++ {
		txs = append(txs, spendTx(types.Outpoint{TxID: types.Hash{byte(i >> 16), byte(i >> 8), byte(i)}, Index: uint32(i)}, 1000))
	}

	sortTxsByHash(txs[1:])

	hashes := make([]types.Hash, len(txs))
	for i, transaction := range txs {
		hashes[i] = transaction.Hash()
	}
	merkle := ComputeMerkleRoot(hashes)

	blk := NewBlock(&Header{
		Version:    CurrentVersion,
		MerkleRoot: merkle,
		Timestamp:  1700000000,
	}, txs)

	err := blk.Check()
	if !errors.Is(err, ErrTooManyTxs) {
		t.Errorf("expected ErrTooManyTxs, got: %v", err)
	}
}

func TestBlock_Check_BlockTooLarge(t *testing.T) {
	bigData := make([]byte, config.LegacyBlockSize)
	coinbase := &tx.Transaction{
		Version: 1,
		Inputs:  []tx.Input{{PrevOut: types.Outpoint{}, UnlockingScript: []byte("h")}},
		Outputs: []tx.Output{{Value: 1000, Script: bigData}},
	}

	hashes := []types.Hash{coinbase.Hash()}
	merkle := ComputeMerkleRoot(hashes)

	blk := NewBlock(&Header{
		Version:    CurrentVersion,
		MerkleRoot: merkle,
		Timestamp:  1700000000,
	}, []*tx.Transaction{coinbase})

	err := blk.Check()
	if !errors.Is(err, ErrBlockTooLarge) {
		t.Errorf("expected ErrBlockTooLarge, got: %v", err)
	}
}

func TestBlock_Hash(t *testing.T) {
	blk := validBlock()
	h := blk.Hash()
	if h.IsZero() {
		t.Error("Block.Hash() should not be zero")
	}

	blk2 := &Block{}
	if !blk2.Hash().IsZero() {
		t.Error("Block.Hash() with nil header should be zero")
	}
}
