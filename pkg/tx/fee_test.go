package tx

import (
	"testing"

	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

func TestEstimateTxFee(t *testing.T) {
	tests := []struct {
		name       string
		numInputs  int
		numOutputs int
		feeRate    uint64
	}{
		{"zero rate", 1, 2, 0},
		{"simple 1-in 2-out", 1, 2, 10},
		{"2-in 2-out", 2, 2, 10},
		{"consolidate 10-in 1-out", 10, 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const overhead = 16
			const perInput = 40
			const perOutput = 44
			want := uint64(overhead+perInput*tt.numInputs+perOutput*tt.numOutputs) * tt.feeRate
			got := EstimateTxFee(tt.numInputs, tt.numOutputs, tt.feeRate)
			if got != want {
				t.Errorf("EstimateTxFee(%d, %d, %d) = %d, want %d",
					tt.numInputs, tt.numOutputs, tt.feeRate, got, want)
			}
		})
	}
}

func TestEstimateTxFee_ZeroRate(t *testing.T) {
	if got := EstimateTxFee(3, 3, 0); got != 0 {
		t.Errorf("zero rate should yield zero fee, got %d", got)
	}
}

func TestRequiredFee(t *testing.T) {
	transaction := &Transaction{
		Version: 1,
		Inputs: []Input{
			{PrevOut: types.Outpoint{TxID: types.Hash{0x01}, Index: 0}, UnlockingScript: []byte{0xAA}},
		},
		Outputs: []Output{{Value: 100, Script: []byte("x")}},
	}
	got := RequiredFee(transaction, 5)
	want := uint64(transaction.Size()) * 5
	if got != want {
		t.Errorf("RequiredFee = %d, want %d", got, want)
	}
}
