// Package script defines the boundary between the validating core and script
// interpretation. Interpretation itself — opcode evaluation, the full BCH
// script VM — is an external collaborator; this package only names the
// contract the core calls through and ships a minimal reference
// implementation so the core is independently testable.
package script

import (
	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// VerifyFunc checks that input i of transaction t satisfies its locking
// script under the given rule flags. On BCH it additionally reports the
// number of signature checks the script performed, which the caller sums
// against max_tx_sigchecks. The function must be safe for concurrent calls
// with distinct (t, i) pairs — ValidateTransaction.connect and
// ValidateBlock.connect fan this out across input buckets.
type VerifyFunc func(t *tx.Transaction, i int, flags types.RuleFlags) (sigchecks int, err error)

// Locker is what PopulateBase needs from a locking script when it resolves a
// prevout: just the raw bytes, passed through opaquely.
type Locker = []byte
