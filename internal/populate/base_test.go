package populate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/k-nuth/blockchain-sub001/internal/storage"
	"github.com/k-nuth/blockchain-sub001/internal/utxo"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

type fakeUTXOSource struct {
	entries map[types.Outpoint]*utxo.Entry
	faulty  bool
}

func (f *fakeUTXOSource) GetAtOrBelow(outpoint types.Outpoint, branchHeight uint64) (*utxo.Entry, error) {
	if f.faulty {
		return nil, fmt.Errorf("disk gone: %w", errors.New("io error"))
	}
	e, ok := f.entries[outpoint]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if e.Height > branchHeight {
		return nil, fmt.Errorf("above branch height")
	}
	return e, nil
}

type fakeMempoolSource struct {
	outputs map[types.Outpoint]*types.Output
}

func (f *fakeMempoolSource) GetMempoolUTXO(outpoint types.Outpoint) (*types.Output, bool) {
	out, ok := f.outputs[outpoint]
	return out, ok
}

func TestBase_PopulatePrevout_CoinbaseSentinelShortCircuits(t *testing.T) {
	b := &Base{UTXO: &fakeUTXOSource{entries: map[types.Outpoint]*utxo.Entry{}}}
	p, err := b.PopulatePrevout(10, types.Outpoint{}, Sources{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Cache != nil || p.Confirmed {
		t.Fatalf("expected zero prevout for coinbase sentinel, got %+v", p)
	}
}

func TestBase_PopulatePrevout_FoundInPersistentUTXOSet(t *testing.T) {
	op := types.Outpoint{TxID: types.Hash{1}, Index: 0}
	out := types.Output{Value: 5000, Script: []byte{0x51}}
	src := &fakeUTXOSource{entries: map[types.Outpoint]*utxo.Entry{
		op: {Outpoint: op, Output: out, Height: 3, Coinbase: true},
	}}
	b := &Base{UTXO: src}

	p, err := b.PopulatePrevout(10, op, Sources{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Confirmed || !p.Coinbase || p.Cache == nil || p.Cache.Value != 5000 {
		t.Fatalf("unexpected prevout: %+v", p)
	}
}

func TestBase_PopulatePrevout_StorageFaultPropagates(t *testing.T) {
	b := &Base{UTXO: &fakeUTXOSource{faulty: true}}
	op := types.Outpoint{TxID: types.Hash{1}, Index: 0}

	_, err := b.PopulatePrevout(10, op, Sources{})
	if err == nil {
		t.Fatal("expected a storage-fault error")
	}
}

func TestBase_PopulatePrevout_FallsBackToReorgSubset(t *testing.T) {
	op := types.Outpoint{TxID: types.Hash{2}, Index: 1}
	out := &types.Output{Value: 900}
	b := &Base{UTXO: &fakeUTXOSource{entries: map[types.Outpoint]*utxo.Entry{}}}

	p, err := b.PopulatePrevout(10, op, Sources{ReorgSubset: ReorgSubset{op: out}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Confirmed || p.Cache != out {
		t.Fatalf("expected reorg-subset hit, got %+v", p)
	}
}

func TestBase_PopulatePrevout_FallsBackToMempool(t *testing.T) {
	op := types.Outpoint{TxID: types.Hash{3}, Index: 0}
	out := &types.Output{Value: 42}
	b := &Base{
		UTXO:    &fakeUTXOSource{entries: map[types.Outpoint]*utxo.Entry{}},
		Mempool: &fakeMempoolSource{outputs: map[types.Outpoint]*types.Output{op: out}},
	}

	p, err := b.PopulatePrevout(10, op, Sources{FromMempool: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Confirmed || !p.FromMempool || p.Cache != out {
		t.Fatalf("expected mempool hit, got %+v", p)
	}
}

func TestBase_PopulatePrevout_MissingEverywhereLeavesZeroCache(t *testing.T) {
	op := types.Outpoint{TxID: types.Hash{4}, Index: 0}
	b := &Base{UTXO: &fakeUTXOSource{entries: map[types.Outpoint]*utxo.Entry{}}}

	p, err := b.PopulatePrevout(10, op, Sources{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Cache != nil {
		t.Fatalf("expected a nil cache to signal missing_previous_output, got %+v", p)
	}
}
