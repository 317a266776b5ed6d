package consensus

import (
	"fmt"

	"github.com/k-nuth/blockchain-sub001/pkg/block"
)

// Validator runs a block's context-free checks (pkg/block.Check) and its
// proof-of-work check together, the pairing internal/validate's Accept
// phase runs before it ever looks at the UTXO set.
type Validator struct {
	engine Engine
}

// NewValidator creates a block validator with the given consensus engine.
func NewValidator(engine Engine) *Validator {
	return &Validator{engine: engine}
}

// ValidateBlock checks a block against both structural and proof-of-work rules.
func (v *Validator) ValidateBlock(blk *block.Block) error {
	if err := blk.Check(); err != nil {
		return fmt.Errorf("block structure: %w", err)
	}
	if err := v.engine.VerifyHeader(blk.Header); err != nil {
		return fmt.Errorf("consensus: %w", err)
	}
	return nil
}
