package populate

import (
	"context"
	"testing"

	"github.com/k-nuth/blockchain-sub001/internal/branch"
	"github.com/k-nuth/blockchain-sub001/internal/chainstate"
	"github.com/k-nuth/blockchain-sub001/internal/dispatcher"
	"github.com/k-nuth/blockchain-sub001/internal/utxo"
	"github.com/k-nuth/blockchain-sub001/pkg/block"
	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

func makeBranchBlock(prev types.Hash, transactions []*tx.Transaction) *block.Block {
	return block.NewBlock(&block.Header{PrevHash: prev}, transactions)
}

func TestPopulateBlock_Populate_ResolvesPersistentPrevout(t *testing.T) {
	coinbase := &tx.Transaction{Inputs: []tx.Input{{}}, Outputs: []types.Output{{Value: 5000000000}}}
	topParentOp := types.Outpoint{TxID: types.Hash{7}, Index: 0}
	confirmedOutput := types.Output{Value: 777}
	spender := &tx.Transaction{
		Inputs:  []tx.Input{{PrevOut: topParentOp}},
		Outputs: []types.Output{{Value: 770}},
	}
	blk := makeBranchBlock(types.Hash{}, []*tx.Transaction{coinbase, spender})

	br := branch.New(5)
	if !br.PushFront(blk) {
		t.Fatal("expected first push to be accepted")
	}

	src := &fakeUTXOSource{entries: map[types.Outpoint]*utxo.Entry{
		topParentOp: {Outpoint: topParentOp, Output: confirmedOutput, Height: 3},
	}}
	p := &Block{Base: &Base{UTXO: src}}
	d := dispatcher.New(2)

	contexts, err := p.Populate(context.Background(), d, br, &chainstate.ChainState{Height: 6}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contexts) != 2 {
		t.Fatalf("expected 2 contexts, got %d", len(contexts))
	}
	if !contexts[0].Current {
		t.Fatal("expected coinbase context marked Current")
	}
	if contexts[1].Prevouts[0].Cache == nil || contexts[1].Prevouts[0].Cache.Value != 777 {
		t.Fatalf("unexpected spender prevout: %+v", contexts[1].Prevouts[0])
	}
}

func TestPopulateBlock_Populate_EmptyBranchErrors(t *testing.T) {
	p := &Block{Base: &Base{UTXO: &fakeUTXOSource{entries: map[types.Outpoint]*utxo.Entry{}}}}
	d := dispatcher.New(2)

	_, err := p.Populate(context.Background(), d, branch.New(0), &chainstate.ChainState{}, nil)
	if err != ErrEmptyBranch {
		t.Fatalf("expected ErrEmptyBranch, got %v", err)
	}
}

func TestPopulateBlock_Populate_UsesReorgSubsetWhenProvided(t *testing.T) {
	coinbase := &tx.Transaction{Inputs: []tx.Input{{}}, Outputs: []types.Output{{Value: 5000000000}}}
	op := types.Outpoint{TxID: types.Hash{8}, Index: 0}
	reorgOutput := &types.Output{Value: 55}
	spender := &tx.Transaction{Inputs: []tx.Input{{PrevOut: op}}, Outputs: []types.Output{{Value: 50}}}
	blk := makeBranchBlock(types.Hash{}, []*tx.Transaction{coinbase, spender})

	br := branch.New(0)
	br.PushFront(blk)

	p := &Block{Base: &Base{UTXO: &fakeUTXOSource{entries: map[types.Outpoint]*utxo.Entry{}}}}
	d := dispatcher.New(3)

	contexts, err := p.Populate(context.Background(), d, br, &chainstate.ChainState{}, ReorgSubset{op: reorgOutput})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contexts[1].Prevouts[0].Cache != reorgOutput {
		t.Fatalf("expected reorg subset output, got %+v", contexts[1].Prevouts[0])
	}
}
