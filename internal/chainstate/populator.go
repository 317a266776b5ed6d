package chainstate

import (
	"fmt"

	"github.com/k-nuth/blockchain-sub001/config"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// HeaderReader is the read-only header subset of FastChain that the
// populator needs: enough to walk backward from the persistent tip without
// depending on the rest of the storage surface.
type HeaderReader interface {
	LastHeight() (uint64, error)
	BlockHash(height uint64) (types.Hash, error)
	Bits(height uint64) (uint32, error)
	Timestamp(height uint64) (uint32, error)
	Version(height uint64) (uint32, error)
}

// BranchOverlay lets the populator see headers that exist only in a
// candidate branch, not yet in persistent storage. A nil overlay means
// "populate for the block after the persistent tip".
type BranchOverlay interface {
	TopHeight() uint64
	Bits(height uint64) (uint32, bool)
	Timestamp(height uint64) (uint32, bool)
	Version(height uint64) (uint32, bool)
	BlockHash(height uint64) (types.Hash, bool)
}

// Populator projects a ChainState for the block that would follow the
// persistent tip, or the top of a branch when one is supplied.
type Populator struct {
	Reader   HeaderReader
	Settings *config.Settings
	Network  config.Network
}

// NewPopulator constructs a Populator over the given header source and
// consensus settings.
func NewPopulator(reader HeaderReader, settings *config.Settings, network config.Network) *Populator {
	return &Populator{Reader: reader, Settings: settings, Network: network}
}

// bitsAt/timestampAt/versionAt/hashAt consult the branch overlay first (for
// heights above the persistent tip), then fall back to the reader.
func (p *Populator) bitsAt(branch BranchOverlay, height uint64) (uint32, error) {
	if branch != nil {
		if b, ok := branch.Bits(height); ok {
			return b, nil
		}
	}
	return p.Reader.Bits(height)
}

func (p *Populator) timestampAt(branch BranchOverlay, height uint64) (uint32, error) {
	if branch != nil {
		if ts, ok := branch.Timestamp(height); ok {
			return ts, nil
		}
	}
	return p.Reader.Timestamp(height)
}

func (p *Populator) versionAt(branch BranchOverlay, height uint64) (uint32, error) {
	if branch != nil {
		if v, ok := branch.Version(height); ok {
			return v, nil
		}
	}
	return p.Reader.Version(height)
}

// topHeight resolves the height of the current top (branch top, or
// persistent tip when branch is nil).
func (p *Populator) topHeight(branch BranchOverlay) (uint64, error) {
	if branch != nil {
		return branch.TopHeight(), nil
	}
	return p.Reader.LastHeight()
}

// Populate projects the ChainState for the block immediately following the
// given top. Contract: returns an error (a storage fault, per spec) if any
// required header is missing, never a partially populated state.
func (p *Populator) Populate(branch BranchOverlay) (*ChainState, error) {
	top, err := p.topHeight(branch)
	if err != nil {
		return nil, fmt.Errorf("chainstate: resolve top height: %w", err)
	}
	nextHeight := top + 1

	mtp, timestamps, err := p.medianTimePast(branch, top)
	if err != nil {
		return nil, fmt.Errorf("chainstate: median time past: %w", err)
	}

	version, err := p.versionAt(branch, top)
	if err != nil {
		return nil, fmt.Errorf("chainstate: version at top: %w", err)
	}

	bitsNext, anchor, err := p.projectBits(branch, top)
	if err != nil {
		return nil, fmt.Errorf("chainstate: project bits: %w", err)
	}

	hashes, err := p.collisionCheckSet(branch, top)
	if err != nil {
		return nil, fmt.Errorf("chainstate: collision check set: %w", err)
	}

	return &ChainState{
		Height:                  nextHeight,
		EnabledForks:            p.enabledForks(nextHeight, mtp),
		BitsNext:                bitsNext,
		VersionNext:             version,
		MedianTimePast:          mtp,
		TimestampSequence:       timestamps,
		HashesForCollisionCheck: hashes,
		ActivationInfo:          p.activationInfo(nextHeight, mtp),
		ABLAFloorBytes:          p.Settings.Rules.ABLAConfig.FloorBytes,
		ABLACeilingBytes:        p.Settings.Rules.ABLAConfig.CeilingBytes,
		ABLAEnabled:             p.Settings.Rules.ABLAConfig.Enabled,
		ASERTAnchor:             anchor,
	}, nil
}

// medianTimePast gathers up to the last 11 timestamps at or below top and
// returns their median plus the raw sequence (oldest first).
func (p *Populator) medianTimePast(branch BranchOverlay, top uint64) (uint32, []uint32, error) {
	var seq []uint32
	for i := 0; i < mtpWindow; i++ {
		if uint64(i) > top {
			break
		}
		height := top - uint64(i)
		ts, err := p.timestampAt(branch, height)
		if err != nil {
			return 0, nil, err
		}
		seq = append([]uint32{ts}, seq...)
	}
	return MedianTimePast(seq), seq, nil
}

// projectBits computes BitsNext via ASERT anchored at the network's fixed
// anchor block, unless EasyBlocks is set (regtest-style always-minimum-
// difficulty mode).
func (p *Populator) projectBits(branch BranchOverlay, top uint64) (uint32, ASERTAnchor, error) {
	if p.Settings.EasyBlocks {
		return easyBlockBits, ASERTAnchor{}, nil
	}

	anchor := p.asertAnchor()

	evalParentTime, err := p.timestampAt(branch, top)
	if err != nil {
		return 0, anchor, err
	}

	heightDiff := int64(top) - int64(anchor.Height)
	timeDiff := int64(evalParentTime) - int64(anchor.AncestorTime)

	targetSpacing := p.Network.TargetBlockTimeSeconds()
	halfLife := p.Settings.Rules.ASERTHalfLife

	bits := CalculateASERT(anchor, heightDiff, timeDiff, halfLife, targetSpacing)
	return bits, anchor, nil
}

// easyBlockBits is the permissive target used when EasyBlocks is set (the
// regtest preset): the target is just under 2^255, so about half of all
// header hashes meet it and a block needs only a few nonce attempts.
const easyBlockBits uint32 = 0x207fffff

// asertAnchor reports the network's fixed DAA anchor. Real deployments pin
// this to the historical November-2020 activation block; this core treats
// the genesis block as its own anchor, since every supported network's
// preset already encodes its intended starting difficulty in genesis.Bits.
func (p *Populator) asertAnchor() ASERTAnchor {
	genesis := config.Genesis(p.Network)
	return ASERTAnchor{
		Height:       0,
		AncestorTime: genesis.Header.Timestamp,
		Bits:         genesis.Header.Bits,
	}
}

// collisionCheckSet returns the recent block hashes a BIP30 duplicate-
// coinbase-id check must compare against. Bounded to the coinbase maturity
// window, since only still-immature coinbases can collide.
func (p *Populator) collisionCheckSet(branch BranchOverlay, top uint64) ([]types.Hash, error) {
	if !p.Settings.Rules.BIP30 {
		return nil, nil
	}
	var hashes []types.Hash
	window := config.CoinbaseMaturity
	for i := uint64(0); i < window && i <= top; i++ {
		height := top - i
		h, err := p.hashAt(branch, height)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}

func (p *Populator) hashAt(branch BranchOverlay, height uint64) (types.Hash, error) {
	if branch != nil {
		if h, ok := branch.BlockHash(height); ok {
			return h, nil
		}
	}
	return p.Reader.BlockHash(height)
}

// enabledForks ORs every rule toggle that applies at nextHeight/nextMTP
// into a single flag set.
func (p *Populator) enabledForks(nextHeight uint64, mtp uint32) types.RuleFlags {
	r := p.Settings.Rules
	var f types.RuleFlags

	setIf := func(on bool, bit types.RuleFlags) {
		if on {
			f |= bit
		}
	}
	setIf(r.BIP16, types.BIP16)
	setIf(r.BIP30, types.BIP30)
	setIf(r.BIP34, types.BIP34)
	setIf(r.BIP65, types.BIP65)
	setIf(r.BIP66, types.BIP66)
	setIf(r.BIP68, types.BIP68)
	setIf(r.BIP90, types.BIP90)
	setIf(r.BIP112, types.BIP112)
	setIf(r.BIP113, types.BIP113)

	setIf(r.BCHUAHF, types.UAHF)
	setIf(r.DAACW144, types.DAACW144)
	setIf(r.Pythagoras, types.Pythagoras)
	setIf(r.Euclid, types.Euclid)
	setIf(r.Pisano, types.Pisano)
	setIf(r.Mersenne, types.Mersenne)
	setIf(r.Fermat, types.Fermat)
	setIf(r.Euler, types.Euler)
	setIf(r.Gauss, types.Gauss)
	setIf(r.Descartes, types.Descartes)
	setIf(r.Lobachevski, types.Lobachevski)
	setIf(r.Galois, types.Galois)

	// Leibniz/Cantor key off an MTP threshold rather than a static bool,
	// matching how every prior BCH hard fork actually activated.
	setIf(r.Leibniz && mtp >= r.LeibnizActivationTime, types.Leibniz)
	setIf(r.Cantor && mtp >= r.CantorActivationTime, types.Cantor)

	return f
}

// activationInfo resolves the height/MTP gated rules PopulateBlock and
// ValidateBlock consult directly (BIP34 coinbase-height encoding, BIP65/66
// script rules, and ABLA/CTOR liveness).
func (p *Populator) activationInfo(nextHeight uint64, mtp uint32) ActivationInfo {
	r := p.Settings.Rules
	info := ActivationInfo{
		LeibnizActive: r.Leibniz && mtp >= r.LeibnizActivationTime,
		CantorActive:  r.Cantor && mtp >= r.CantorActivationTime,
	}
	if r.BIP34 {
		info.BIP34Height = 0
	} else {
		info.BIP34Height = ^uint64(0)
	}
	if r.BIP65 {
		info.BIP65Height = 0
	} else {
		info.BIP65Height = ^uint64(0)
	}
	if r.BIP66 {
		info.BIP66Height = 0
	} else {
		info.BIP66Height = ^uint64(0)
	}
	return info
}
