package config

import "fmt"

// ValidateNode checks the per-node runtime config for obvious operator mistakes.
func ValidateNode(n *Node) error {
	if n == nil {
		return fmt.Errorf("node config is nil")
	}
	switch n.Network {
	case Mainnet, Testnet, Testnet4, Regtest, Scalenet, Chipnet:
	default:
		return fmt.Errorf("network must be one of mainnet/testnet/testnet4/regtest/scalenet/chipnet, got %q", n.Network)
	}
	if n.DataDir == "" {
		return fmt.Errorf("datadir must not be empty")
	}
	return nil
}

// Validate checks consensus Settings for internal consistency. A node
// with inconsistent settings must refuse to start rather than silently
// diverge from the rest of the network.
func Validate(s *Settings) error {
	if s == nil {
		return fmt.Errorf("settings is nil")
	}
	if s.Cores < 0 {
		return fmt.Errorf("cores must be >= 0")
	}
	if s.MempoolSizeMultiplier <= 0 {
		return fmt.Errorf("mempool_size_multiplier must be > 0")
	}
	if s.MempoolMaxTemplateSize <= 0 {
		return fmt.Errorf("mempool_max_template_size must be > 0")
	}
	if s.Rules.ASERTHalfLife == 0 {
		return fmt.Errorf("asert_half_life must be > 0")
	}
	if s.Rules.DefaultConsensusBlockSize == 0 {
		return fmt.Errorf("default_consensus_block_size must be > 0")
	}
	if s.Rules.ABLAConfig.Enabled {
		if s.Rules.ABLAConfig.FloorBytes == 0 || s.Rules.ABLAConfig.CeilingBytes < s.Rules.ABLAConfig.FloorBytes {
			return fmt.Errorf("abla.ceiling_bytes must be >= abla.floor_bytes > 0")
		}
	}
	if s.Rules.Leibniz && s.Rules.LeibnizActivationTime == 0 {
		return fmt.Errorf("leibniz is enabled but leibniz_activation_time is unset")
	}
	if s.Rules.Cantor && s.Rules.CantorActivationTime == 0 {
		return fmt.Errorf("cantor is enabled but cantor_activation_time is unset")
	}
	seen := make(map[uint64]bool, len(s.Checkpoints))
	for _, cp := range s.Checkpoints {
		if seen[cp.Height] {
			return fmt.Errorf("duplicate checkpoint at height %d", cp.Height)
		}
		seen[cp.Height] = true
	}
	return nil
}
