package config

// Checkpoint pins a known-good block at a given height. Validate rejects
// two checkpoints at the same height, and ValidateGenesis compares a
// height-0 checkpoint with the network's genesis hash; no validation step
// is skipped for blocks at or below a checkpoint.
type Checkpoint struct {
	Height uint64
	Hash   [32]byte
}

// Settings holds the consensus-relevant configuration every node on a
// network must agree on: worker sizing, policy fee floors, rule-activation
// toggles, and mempool template limits. Unlike Node, changing one of these
// fields changes what blocks and transactions this instance accepts.
type Settings struct {
	// Worker sizing and scheduling.
	Cores    int  `conf:"cores"`    // worker count; 0 = all available.
	Priority bool `conf:"priority"` // true = run as the block-organizer priority class.

	// Policy (non-consensus but chain-wide defaults).
	ByteFeeSatoshis       uint64 `conf:"byte_fee_satoshis"`
	SigopFeeSatoshis      uint64 `conf:"sigop_fee_satoshis"`
	MinimumOutputSatoshis uint64 `conf:"minimum_output_satoshis"`
	NotifyLimitHours      uint32 `conf:"notify_limit_hours"`
	ReorganizationLimit   uint64 `conf:"reorganization_limit"`

	Checkpoints     []Checkpoint `conf:"checkpoints"`
	FixCheckpoints  bool         `conf:"fix_checkpoints"`
	AllowCollisions bool         `conf:"allow_collisions"`
	EasyBlocks      bool         `conf:"easy_blocks"`
	Retarget        bool         `conf:"retarget"`

	Rules RuleToggles

	MempoolMaxTemplateSize int     `conf:"mempool_max_template_size"`
	MempoolSizeMultiplier  float64 `conf:"mempool_size_multiplier"`
}

// RuleToggles holds the per-fork enable switches that feed
// RuleFlags.Has checks during ChainState population. Each bool mirrors
// one bit of pkg/types.RuleFlags.
type RuleToggles struct {
	BIP16  bool `conf:"bip16"`
	BIP30  bool `conf:"bip30"`
	BIP34  bool `conf:"bip34"`
	BIP65  bool `conf:"bip65"`
	BIP66  bool `conf:"bip66"`
	BIP68  bool `conf:"bip68"`
	BIP90  bool `conf:"bip90"`
	BIP112 bool `conf:"bip112"`
	BIP113 bool `conf:"bip113"`

	BCHUAHF      bool `conf:"bch_uahf"`
	DAACW144     bool `conf:"daa_cw144"`
	Pythagoras   bool `conf:"pythagoras"`
	Euclid       bool `conf:"euclid"`
	Pisano       bool `conf:"pisano"`
	Mersenne     bool `conf:"mersenne"`
	Fermat       bool `conf:"fermat"`
	Euler        bool `conf:"euler"`
	Gauss        bool `conf:"gauss"`
	Descartes    bool `conf:"descartes"`
	Lobachevski  bool `conf:"lobachevski"`
	Galois       bool `conf:"galois"`
	Leibniz      bool `conf:"leibniz"`
	Cantor       bool `conf:"cantor"`

	LeibnizActivationTime uint32 `conf:"leibniz_activation_time"`
	CantorActivationTime  uint32 `conf:"cantor_activation_time"`

	ASERTHalfLife              uint32 `conf:"asert_half_life"`
	DefaultConsensusBlockSize  uint64 `conf:"default_consensus_block_size"`
	ABLAConfig                 ABLAConfig
}

// ABLAConfig parametrizes the Adaptive Blocksize Limit Algorithm: the
// block-size ceiling grows or shrinks with recent usage between the
// configured floor and ceiling, at a rate bounded by the control decay
// constant.
type ABLAConfig struct {
	Enabled      bool   `conf:"abla.enabled"`
	FloorBytes   uint64 `conf:"abla.floor_bytes"`
	CeilingBytes uint64 `conf:"abla.ceiling_bytes"`
	ControlDecay uint32 `conf:"abla.control_decay"`
}
