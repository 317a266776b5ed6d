// Package chainstate projects the consensus parameters the next block must
// satisfy: enabled rule flags, the difficulty target, version, median-time-
// past, and the BIP30 collision-check window. It never writes to storage;
// it only reads headers through HeaderReader and an optional branch overlay.
package chainstate

import "github.com/k-nuth/blockchain-sub001/pkg/types"

// ASERTAnchor fixes the BCH DAA reference point: the designated anchor
// block's height, its parent's timestamp, and its own target bits. Target
// computation for any later height is relative to this anchor, not to the
// immediately preceding retarget window.
type ASERTAnchor struct {
	Height       uint64
	AncestorTime uint32
	Bits         uint32
}

// ActivationInfo records, for the rules that key off either a height or an
// MTP threshold, whether that rule is live for the block being populated.
type ActivationInfo struct {
	BIP34Height uint64 // coinbase must encode height at/after this height.
	BIP65Height uint64
	BIP66Height uint64

	LeibnizActive bool // ABLA adaptive block-size limit.
	CantorActive  bool // multiple-variant CTOR ordering.
}

// ChainState is an immutable projection of the consensus parameters
// applicable to the next block after a chain tip or branch top. Cloning an
// instance with the same parameters is cheap since every field is a value
// or an already-immutable slice.
type ChainState struct {
	Height       uint64
	EnabledForks types.RuleFlags

	BitsNext    uint32
	VersionNext uint32

	MedianTimePast uint32

	// TimestampSequence holds the last (up to) 11 block timestamps below
	// this height, oldest first, used to recompute MedianTimePast without
	// re-reading storage.
	TimestampSequence []uint32

	// HashesForCollisionCheck is the set of still-live transaction ids a
	// BIP30 check must compare a new coinbase-or-tx id against.
	HashesForCollisionCheck []types.Hash

	ActivationInfo ActivationInfo

	ABLAFloorBytes   uint64
	ABLACeilingBytes uint64
	ABLAEnabled      bool

	ASERTAnchor ASERTAnchor
}

// Has reports whether the given rule flags are all enabled in this state.
func (s *ChainState) Has(mask types.RuleFlags) bool {
	return s.EnabledForks.Has(mask)
}
