package utxo

import (
	"testing"

	"github.com/k-nuth/blockchain-sub001/internal/storage"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

func TestCommitment_Empty(t *testing.T) {
	db := storage.NewMemory()
	store := NewStore(db)

	root, err := Commitment(store)
	if err != nil {
		t.Fatalf("Commitment: %v", err)
	}
	if !root.IsZero() {
		t.Error("empty store commitment should be zero hash")
	}
}

func TestCommitment_SingleEntry(t *testing.T) {
	db := storage.NewMemory()
	store := NewStore(db)

	store.Put(&Entry{
		Outpoint: types.Outpoint{TxID: types.Hash{0x01}, Index: 0},
		Output:   types.Output{Value: 1000, Script: make([]byte, 20)},
	})

	root, err := Commitment(store)
	if err != nil {
		t.Fatalf("Commitment: %v", err)
	}
	if root.IsZero() {
		t.Error("single entry commitment should not be zero")
	}
}

func TestCommitment_Deterministic(t *testing.T) {
	makeStore := func() *Store {
		db := storage.NewMemory()
		s := NewStore(db)
		s.Put(&Entry{
			Outpoint: types.Outpoint{TxID: types.Hash{0x01}, Index: 0},
			Output:   types.Output{Value: 1000, Script: make([]byte, 20)},
		})
		s.Put(&Entry{
			Outpoint: types.Outpoint{TxID: types.Hash{0x02}, Index: 1},
			Output:   types.Output{Value: 2000, Script: []byte{0xaa, 0xbb, 0xcc}},
		})
		return s
	}

	root1, _ := Commitment(makeStore())
	root2, _ := Commitment(makeStore())
	if root1 != root2 {
		t.Error("commitment should be deterministic")
	}
}

func TestCommitment_ChangesOnModification(t *testing.T) {
	db := storage.NewMemory()
	store := NewStore(db)

	store.Put(&Entry{
		Outpoint: types.Outpoint{TxID: types.Hash{0x01}, Index: 0},
		Output:   types.Output{Value: 1000, Script: make([]byte, 20)},
	})

	root1, _ := Commitment(store)

	store.Put(&Entry{
		Outpoint: types.Outpoint{TxID: types.Hash{0x02}, Index: 0},
		Output:   types.Output{Value: 2000, Script: make([]byte, 20)},
	})

	root2, _ := Commitment(store)

	if root1 == root2 {
		t.Error("commitment should change after adding an entry")
	}
}

func TestCommitment_ChangesOnDelete(t *testing.T) {
	db := storage.NewMemory()
	store := NewStore(db)

	op1 := types.Outpoint{TxID: types.Hash{0x01}, Index: 0}
	op2 := types.Outpoint{TxID: types.Hash{0x02}, Index: 0}

	store.Put(&Entry{Outpoint: op1, Output: types.Output{Value: 1000, Script: make([]byte, 20)}})
	store.Put(&Entry{Outpoint: op2, Output: types.Output{Value: 2000, Script: make([]byte, 20)}})

	root1, _ := Commitment(store)

	store.Delete(op2)

	root2, _ := Commitment(store)

	if root1 == root2 {
		t.Error("commitment should change after deleting an entry")
	}
}

func TestCommitment_OrderIndependent(t *testing.T) {
	e1 := &Entry{Outpoint: types.Outpoint{TxID: types.Hash{0x01}, Index: 0}, Output: types.Output{Value: 1000, Script: make([]byte, 20)}}
	e2 := &Entry{Outpoint: types.Outpoint{TxID: types.Hash{0x02}, Index: 0}, Output: types.Output{Value: 2000, Script: make([]byte, 20)}}

	db1 := storage.NewMemory()
	s1 := NewStore(db1)
	s1.Put(e1)
	s1.Put(e2)
	root1, _ := Commitment(s1)

	db2 := storage.NewMemory()
	s2 := NewStore(db2)
	s2.Put(e2)
	s2.Put(e1)
	root2, _ := Commitment(s2)

	if root1 != root2 {
		t.Error("commitment should be independent of insertion order")
	}
}

func TestForEach(t *testing.T) {
	db := storage.NewMemory()
	store := NewStore(db)

	store.Put(&Entry{Outpoint: types.Outpoint{TxID: types.Hash{0x01}, Index: 0}, Output: types.Output{Value: 1000, Script: make([]byte, 20)}})
	store.Put(&Entry{Outpoint: types.Outpoint{TxID: types.Hash{0x02}, Index: 0}, Output: types.Output{Value: 2000, Script: make([]byte, 20)}})

	var count int
	var total uint64
	err := store.ForEach(func(e *Entry) error {
		count++
		total += e.Output.Value
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if total != 3000 {
		t.Errorf("total = %d, want 3000", total)
	}
}

func TestHashEntry_Deterministic(t *testing.T) {
	e := &Entry{
		Outpoint: types.Outpoint{TxID: types.Hash{0x01}, Index: 0},
		Output:   types.Output{Value: 1000, Script: make([]byte, 20)},
	}
	h1 := hashEntry(e)
	h2 := hashEntry(e)
	if h1 != h2 {
		t.Error("hashEntry should be deterministic")
	}
	if h1.IsZero() {
		t.Error("hashEntry should not be zero")
	}
}

func TestHashEntry_DifferentValues(t *testing.T) {
	e1 := &Entry{Outpoint: types.Outpoint{TxID: types.Hash{0x01}, Index: 0}, Output: types.Output{Value: 1000}}
	e2 := &Entry{Outpoint: types.Outpoint{TxID: types.Hash{0x01}, Index: 0}, Output: types.Output{Value: 2000}}
	if hashEntry(e1) == hashEntry(e2) {
		t.Error("different values should produce different hashes")
	}
}

func TestHashEntry_DifferentCoinbaseFlag(t *testing.T) {
	e1 := &Entry{Outpoint: types.Outpoint{TxID: types.Hash{0x01}, Index: 0}, Output: types.Output{Value: 1000}, Coinbase: false}
	e2 := &Entry{Outpoint: types.Outpoint{TxID: types.Hash{0x01}, Index: 0}, Output: types.Output{Value: 1000}, Coinbase: true}
	if hashEntry(e1) == hashEntry(e2) {
		t.Error("differing coinbase flag should produce different hashes")
	}
}
