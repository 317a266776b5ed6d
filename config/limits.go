package config

// Protocol-level size limits. These are consensus constants, not
// per-node settings — every node must agree on them, so unlike Settings
// they are not in the network preset tables.
const (
	MaxTxInputs     = 100_000
	MaxTxOutputs    = 100_000
	MaxScriptData   = 10_000
	MaxBlockTxs     = 2_000_000
	LegacyBlockSize = 32 * 1024 * 1024 // pre-ABLA ceiling, still the mainnet/testnet/testnet4/chipnet default.
	MaxOutputValue  = 21_000_000 * 1_0000_0000

	// MaxTxSigchecks bounds the signature checks one transaction's inputs may
	// perform, independent of block-level budget.
	MaxTxSigchecks = 3_000

	// BytesPerSigcheck derives a block's sigcheck budget from its size:
	// floor(block_size / BytesPerSigcheck), the post-2020 BCH rule that
	// replaced the old fixed 20,000-sigop block ceiling.
	BytesPerSigcheck = 141
)

// BlockSigcheckLimit returns the sigcheck budget for a block of the given
// serialized size.
func BlockSigcheckLimit(blockSize int) int {
	return blockSize / BytesPerSigcheck
}
