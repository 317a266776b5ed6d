package chain

import "github.com/k-nuth/blockchain-sub001/internal/fastchain"

// Compile-time assertion that Chain implements the FastChain contract
// internal/organizer and internal/safechain depend on.
var _ fastchain.FastChain = (*Chain)(nil)
