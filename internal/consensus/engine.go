// Package consensus holds the header-level proof-of-work check: the one
// consensus rule that stands apart from internal/validate's transaction-
// and UTXO-aware checks because it only ever looks at a header's own bytes.
package consensus

import "github.com/k-nuth/blockchain-sub001/pkg/block"

// Engine verifies a header satisfies its own proof-of-work claim. What
// Bits *should* be at a given height is internal/chainstate's concern;
// Engine only checks the header is internally consistent with it.
type Engine interface {
	VerifyHeader(header *block.Header) error
}
