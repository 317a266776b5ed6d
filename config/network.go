package config

// TargetBlockTimeSeconds returns the DAA's target block spacing. Every
// supported network targets the same 10-minute spacing; the knob exists so
// a future network preset (or a test harness) can diverge without touching
// the ASERT call sites.
func (n Network) TargetBlockTimeSeconds() uint32 {
	return 600
}

// Preset returns the Settings baseline for a recognized network. Per-node
// overrides should start from this and mutate individual fields rather
// than constructing a Settings from zero value, since EasyBlocks,
// Retarget, ASERTHalfLife, DefaultConsensusBlockSize, and ABLAConfig
// differ materially between networks. No preset sets Checkpoints: every
// preset's checkpoint list is empty.
func Preset(network Network) Settings {
	switch network {
	case Mainnet:
		return mainnetSettings()
	case Testnet:
		return testnetSettings()
	case Testnet4:
		return testnet4Settings()
	case Regtest:
		return regtestSettings()
	case Scalenet:
		return scalenetSettings()
	case Chipnet:
		return chipnetSettings()
	default:
		return mainnetSettings()
	}
}

func baseRules() RuleToggles {
	return RuleToggles{
		BIP16: true, BIP30: true, BIP34: true, BIP65: true, BIP66: true,
		BIP68: true, BIP90: true, BIP112: true, BIP113: true,
		BCHUAHF: true, DAACW144: true, Pythagoras: true, Euclid: true,
		Pisano: true, Mersenne: true, Fermat: true, Euler: true, Gauss: true,
		Descartes: true, Lobachevski: true, Galois: true, Leibniz: true, Cantor: true,
		LeibnizActivationTime:     1700049600, // 2023-11-15 12:00 UTC median time past.
		CantorActivationTime:      1715774400, // 2024-05-15 12:00 UTC median time past.
		ASERTHalfLife:             172800, // 2 days, the mainnet BCH DAA half-life.
		DefaultConsensusBlockSize: 32 * 1024 * 1024,
		ABLAConfig: ABLAConfig{
			Enabled:      true,
			FloorBytes:   32 * 1024 * 1024,
			CeilingBytes: 2048 * 1024 * 1024,
			ControlDecay: 144,
		},
	}
}

func mainnetSettings() Settings {
	return Settings{
		Cores:                  0,
		ByteFeeSatoshis:        1,
		SigopFeeSatoshis:       100,
		MinimumOutputSatoshis:  546,
		NotifyLimitHours:       24,
		ReorganizationLimit:    10,
		FixCheckpoints:         true,
		AllowCollisions:        false,
		EasyBlocks:             false,
		Retarget:               true,
		Rules:                  baseRules(),
		MempoolMaxTemplateSize: 32 * 1024 * 1024,
		MempoolSizeMultiplier:  10,
	}
}

func testnetSettings() Settings {
	s := mainnetSettings()
	s.Rules.ASERTHalfLife = 3600
	s.FixCheckpoints = false
	return s
}

func testnet4Settings() Settings {
	s := testnetSettings()
	return s
}

func regtestSettings() Settings {
	s := mainnetSettings()
	s.EasyBlocks = true
	s.Retarget = false
	s.FixCheckpoints = false
	s.Rules.DefaultConsensusBlockSize = 512 * 1024 * 1024
	s.Rules.ABLAConfig.Enabled = false
	return s
}

func scalenetSettings() Settings {
	s := mainnetSettings()
	s.Rules.DefaultConsensusBlockSize = 256 * 1024 * 1024
	s.Rules.ABLAConfig.CeilingBytes = 256 * 1024 * 1024 * 1024
	return s
}

func chipnetSettings() Settings {
	s := testnetSettings()
	return s
}
