package mempool

import (
	"errors"
	"testing"

	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// alwaysPresent treats every outpoint as a confirmed, unspent chain UTXO.
type alwaysPresent struct{}

func (alwaysPresent) Has(types.Outpoint) (bool, error) { return true, nil }

// alwaysMissing treats every outpoint as absent from the chain.
type alwaysMissing struct{}

func (alwaysMissing) Has(types.Outpoint) (bool, error) { return false, nil }

func fundingTx(seed byte, value uint64) *tx.Transaction {
	return &tx.Transaction{
		Version: 1,
		Inputs: []tx.Input{{
			PrevOut:         types.Outpoint{TxID: types.Hash{seed}, Index: 0},
			UnlockingScript: []byte{seed},
		}},
		Outputs: []tx.Output{{Value: value, Script: []byte{0xAA}}},
	}
}

func spendingTx(parent *tx.Transaction, outputIndex uint32, value uint64, extra byte) *tx.Transaction {
	return &tx.Transaction{
		Version: 1,
		Inputs: []tx.Input{{
			PrevOut:         types.Outpoint{TxID: parent.Hash(), Index: outputIndex},
			UnlockingScript: []byte{extra},
		}},
		Outputs: []tx.Output{{Value: value, Script: []byte{0xBB}}},
	}
}

func TestMempool_Add_RejectsDuplicate(t *testing.T) {
	m := New(1_000_000, 10)
	transaction := fundingTx(1, 1000)

	if err := m.Add(transaction, 10, 2, alwaysPresent{}); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	err := m.Add(transaction, 10, 2, alwaysPresent{})
	if CodeOf(err) != types.DuplicatedTransaction {
		t.Fatalf("expected DuplicatedTransaction, got %v (%v)", CodeOf(err), err)
	}
}

func TestMempool_Add_RejectsMissingPrevout(t *testing.T) {
	m := New(1_000_000, 10)
	transaction := fundingTx(1, 1000)

	err := m.Add(transaction, 10, 2, alwaysMissing{})
	if CodeOf(err) != types.MissingPreviousOutput {
		t.Fatalf("expected MissingPreviousOutput, got %v (%v)", CodeOf(err), err)
	}
	if m.Has(transaction.Hash()) {
		t.Fatal("rejected transaction must not be pooled")
	}
}

func TestMempool_Add_RejectsDoubleSpendInPool(t *testing.T) {
	m := New(1_000_000, 10)
	parent := fundingTx(1, 1000)
	if err := m.Add(parent, 10, 2, alwaysPresent{}); err != nil {
		t.Fatalf("Add parent: %v", err)
	}

	childA := spendingTx(parent, 0, 500, 0x01)
	childB := spendingTx(parent, 0, 400, 0x02)

	if err := m.Add(childA, 5, 1, alwaysPresent{}); err != nil {
		t.Fatalf("Add childA: %v", err)
	}
	err := m.Add(childB, 5, 1, alwaysPresent{})
	if CodeOf(err) != types.DoubleSpendMempool {
		t.Fatalf("expected DoubleSpendMempool, got %v (%v)", CodeOf(err), err)
	}
}

func TestMempool_Add_LinksParentChildAndPropagatesAggregates(t *testing.T) {
	m := New(1_000_000, 10)
	parent := fundingTx(1, 1000)
	if err := m.Add(parent, 100, 2, alwaysPresent{}); err != nil {
		t.Fatalf("Add parent: %v", err)
	}
	child := spendingTx(parent, 0, 500, 0x01)
	if err := m.Add(child, 50, 1, alwaysPresent{}); err != nil {
		t.Fatalf("Add child: %v", err)
	}

	parentEntry := m.entries[parent.Hash()]
	if parentEntry.descendantFees != 150 {
		t.Fatalf("expected parent descendantFees 150 (100+50), got %d", parentEntry.descendantFees)
	}
	childEntry := m.entries[child.Hash()]
	if childEntry.isAnchor() {
		t.Fatal("child has a mempool parent, must not be an anchor")
	}
	if !parentEntry.isAnchor() {
		t.Fatal("parent has no mempool parents, must be an anchor")
	}
}

func TestMempool_GetMempoolUTXO(t *testing.T) {
	m := New(1_000_000, 10)
	parent := fundingTx(1, 1000)
	if err := m.Add(parent, 10, 2, alwaysPresent{}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	out, ok := m.GetMempoolUTXO(types.Outpoint{TxID: parent.Hash(), Index: 0})
	if !ok || out.Value != 1000 {
		t.Fatalf("expected mempool UTXO with value 1000, got %v ok=%v", out, ok)
	}

	child := spendingTx(parent, 0, 500, 0x01)
	if err := m.Add(child, 5, 1, alwaysPresent{}); err != nil {
		t.Fatalf("Add child: %v", err)
	}
	if _, ok := m.GetMempoolUTXO(types.Outpoint{TxID: parent.Hash(), Index: 0}); ok {
		t.Fatal("parent output spent in-pool must no longer be a mempool UTXO")
	}
	if out, ok := m.GetMempoolUTXO(types.Outpoint{TxID: child.Hash(), Index: 0}); !ok || out.Value != 500 {
		t.Fatalf("expected child's new output to be a mempool UTXO, got %v ok=%v", out, ok)
	}
}

func TestMempool_RemoveConfirmed_UnlinksSurvivingChild(t *testing.T) {
	m := New(1_000_000, 10)
	parent := fundingTx(1, 1000)
	child := spendingTx(parent, 0, 500, 0x01)
	if err := m.Add(parent, 100, 2, alwaysPresent{}); err != nil {
		t.Fatalf("Add parent: %v", err)
	}
	if err := m.Add(child, 50, 1, alwaysPresent{}); err != nil {
		t.Fatalf("Add child: %v", err)
	}

	m.RemoveConfirmed([]*tx.Transaction{parent})

	if m.Has(parent.Hash()) {
		t.Fatal("confirmed parent must be removed from the pool")
	}
	if !m.Has(child.Hash()) {
		t.Fatal("child must survive its parent's confirmation")
	}
	childEntry := m.entries[child.Hash()]
	if !childEntry.isAnchor() {
		t.Fatal("child must become an anchor once its only mempool parent confirms")
	}
}

func TestMempool_Remove_TakesDescendantsWithIt(t *testing.T) {
	m := New(1_000_000, 10)
	parent := fundingTx(1, 1000)
	child := spendingTx(parent, 0, 500, 0x01)
	if err := m.Add(parent, 100, 2, alwaysPresent{}); err != nil {
		t.Fatalf("Add parent: %v", err)
	}
	if err := m.Add(child, 50, 1, alwaysPresent{}); err != nil {
		t.Fatalf("Add child: %v", err)
	}

	m.Remove(parent.Hash())

	if m.Has(parent.Hash()) || m.Has(child.Hash()) {
		t.Fatal("removing a transaction must remove its descendants too")
	}
	if m.Count() != 0 {
		t.Fatalf("expected empty pool, got %d entries", m.Count())
	}
}

func TestMempool_Add_EvictsWorstPackageWhenOverCapacity(t *testing.T) {
	// Each funding tx's Size() is small but non-zero; force a tiny
	// capacity so the second add must evict the first.
	m := New(1, 1) // capacityBytes = 1

	low := fundingTx(1, 1000)
	if err := m.Add(low, 1, 1, alwaysPresent{}); err != nil {
		t.Fatalf("Add low: %v", err)
	}

	high := fundingTx(2, 1000)
	if err := m.Add(high, 10_000, 1, alwaysPresent{}); err != nil {
		t.Fatalf("Add high: %v", err)
	}

	if m.Has(low.Hash()) {
		t.Fatal("low-feerate anchor should have been evicted to make room")
	}
	if !m.Has(high.Hash()) {
		t.Fatal("high-feerate transaction should have been admitted")
	}
}

func TestMempool_Add_RejectsLowBenefitWhenNoRoom(t *testing.T) {
	m := New(1, 1) // capacityBytes = 1

	high := fundingTx(1, 1000)
	if err := m.Add(high, 10_000, 1, alwaysPresent{}); err != nil {
		t.Fatalf("Add high: %v", err)
	}

	low := fundingTx(2, 1000)
	err := m.Add(low, 1, 1, alwaysPresent{})
	if CodeOf(err) != types.LowBenefitTransaction {
		t.Fatalf("expected LowBenefitTransaction, got %v (%v)", CodeOf(err), err)
	}
}

func TestMempool_FetchTemplate_OrdersByPackageFeeRateAndGatesOnParents(t *testing.T) {
	m := New(1_000_000, 10)
	parent := fundingTx(1, 1000)
	child := spendingTx(parent, 0, 500, 0x01)
	unrelated := fundingTx(2, 2000)

	if err := m.Add(parent, 10, 1, alwaysPresent{}); err != nil {
		t.Fatalf("Add parent: %v", err)
	}
	if err := m.Add(child, 10_000, 1, alwaysPresent{}); err != nil {
		t.Fatalf("Add child: %v", err)
	}
	if err := m.Add(unrelated, 1, 1, alwaysPresent{}); err != nil {
		t.Fatalf("Add unrelated: %v", err)
	}

	template := m.FetchTemplate(TemplateLimits{})
	if len(template) != 3 {
		t.Fatalf("expected all 3 transactions in an unbounded template, got %d", len(template))
	}

	parentIdx, childIdx := -1, -1
	for i, t := range template {
		switch t.Hash() {
		case parent.Hash():
			parentIdx = i
		case child.Hash():
			childIdx = i
		}
	}
	if parentIdx < 0 || childIdx < 0 || parentIdx >= childIdx {
		t.Fatalf("parent must precede its child in the template: parentIdx=%d childIdx=%d", parentIdx, childIdx)
	}
}

func TestMempool_FetchTemplate_StopsAtSizeLimit(t *testing.T) {
	m := New(1_000_000, 10)
	a := fundingTx(1, 1000)
	b := fundingTx(2, 1000)
	if err := m.Add(a, 100, 1, alwaysPresent{}); err != nil {
		t.Fatalf("Add a: %v", err)
	}
	if err := m.Add(b, 100, 1, alwaysPresent{}); err != nil {
		t.Fatalf("Add b: %v", err)
	}

	size := uint32(a.Size())
	template := m.FetchTemplate(TemplateLimits{MaxSize: size})
	if len(template) != 1 {
		t.Fatalf("expected exactly one transaction within a single-tx size budget, got %d", len(template))
	}
}

func TestCodeOf_DefaultsToValidationFailedForForeignError(t *testing.T) {
	if CodeOf(errors.New("boom")) != types.ValidationFailed {
		t.Fatal("an error this package did not produce should default to ValidationFailed")
	}
}
