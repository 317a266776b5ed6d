package mempool

import (
	"fmt"

	"github.com/k-nuth/blockchain-sub001/pkg/tx"
)

// DefaultMaxTxSize is the maximum pooled transaction size in signing bytes.
// Lower than any consensus limit: a policy knob a node operator can tighten
// independently of what the network itself allows.
const DefaultMaxTxSize = 100_000

// Policy holds mempool-specific acceptance rules, distinct from the
// consensus rules tx.Transaction.Check already enforces.
type Policy struct {
	MaxTxSize int // Maximum transaction size in signing bytes.
}

// DefaultPolicy returns a policy with sensible defaults.
func DefaultPolicy() *Policy {
	return &Policy{MaxTxSize: DefaultMaxTxSize}
}

// Check validates a transaction against policy rules only. Input/output
// count and script-size limits are consensus rules already enforced by
// transaction.Check before a tx ever reaches the pool; re-checking them
// here would just duplicate that pass.
func (p *Policy) Check(transaction *tx.Transaction) error {
	size := len(transaction.SigningBytes())
	if p.MaxTxSize > 0 && size > p.MaxTxSize {
		return fmt.Errorf("transaction too large: %d bytes, max %d", size, p.MaxTxSize)
	}
	return nil
}
