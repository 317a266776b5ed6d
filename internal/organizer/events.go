package organizer

import (
	"log"
	"sync"

	"github.com/k-nuth/blockchain-sub001/pkg/block"
	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// ReorgHandler is called once per committed reorganization (or linear
// extension, modeled as forkHeight == old tip height with no outgoing
// blocks), in commit order. A non-success reorganize is never reported
// through this handler; attach failures are reported only to the block's
// submitter.
type ReorgHandler func(forkHeight uint64, incoming, outgoing []*block.Block)

// TxHandler is called once per transaction admitted to the mempool.
type TxHandler func(transaction *tx.Transaction)

// DoubleSpendProof is the payload TransactionOrganizer.OrganizeDoubleSpendProof
// stores and fans out; this core does not itself construct or verify proof
// contents, only files them under their claimed outpoint.
type DoubleSpendProof struct {
	Outpoint types.Outpoint
	Data     []byte
}

// DSProofHandler is called once per stored double-spend proof.
type DSProofHandler func(proof DoubleSpendProof)

// Subscribers fans committed events out to registered handlers, synchronously
// and in registration order. A handler is run under panic recovery so one
// misbehaving subscriber cannot take down the organizer mid-notification.
type Subscribers struct {
	mu      sync.Mutex
	reorg   []ReorgHandler
	tx      []TxHandler
	dsProof []DSProofHandler
}

func (s *Subscribers) SubscribeReorganize(h ReorgHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reorg = append(s.reorg, h)
}

func (s *Subscribers) SubscribeTx(h TxHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tx = append(s.tx, h)
}

func (s *Subscribers) SubscribeDSProof(h DSProofHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dsProof = append(s.dsProof, h)
}

func (s *Subscribers) notifyReorg(forkHeight uint64, incoming, outgoing []*block.Block) {
	s.mu.Lock()
	handlers := append([]ReorgHandler(nil), s.reorg...)
	s.mu.Unlock()
	for _, h := range handlers {
		safeCall(func() { h(forkHeight, incoming, outgoing) })
	}
}

func (s *Subscribers) notifyTx(transaction *tx.Transaction) {
	s.mu.Lock()
	handlers := append([]TxHandler(nil), s.tx...)
	s.mu.Unlock()
	for _, h := range handlers {
		safeCall(func() { h(transaction) })
	}
}

func (s *Subscribers) notifyDSProof(proof DoubleSpendProof) {
	s.mu.Lock()
	handlers := append([]DSProofHandler(nil), s.dsProof...)
	s.mu.Unlock()
	for _, h := range handlers {
		safeCall(func() { h(proof) })
	}
}

func safeCall(f func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("organizer: subscriber panicked: %v", r)
		}
	}()
	f()
}
