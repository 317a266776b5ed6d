package config

import "testing"

func TestGenesis_AllNetworksHaveSingleCoinbase(t *testing.T) {
	for _, n := range []Network{Mainnet, Testnet, Testnet4, Regtest, Scalenet, Chipnet} {
		g := Genesis(n)
		if len(g.Transactions) != 1 {
			t.Fatalf("%s: expected exactly one transaction, got %d", n, len(g.Transactions))
		}
		if !g.Transactions[0].IsCoinbase() {
			t.Fatalf("%s: genesis transaction must be a coinbase", n)
		}
	}
}

func TestGenesis_MerkleRootMatchesCoinbase(t *testing.T) {
	for _, n := range []Network{Mainnet, Testnet, Regtest} {
		g := Genesis(n)
		if g.Header.MerkleRoot != g.Transactions[0].Hash() {
			t.Errorf("%s: single-tx merkle root should equal the coinbase hash", n)
		}
	}
}

func TestGenesis_DistinctAcrossNetworks(t *testing.T) {
	mainnet := Genesis(Mainnet).Header.Hash()
	testnet := Genesis(Testnet).Header.Hash()
	regtest := Genesis(Regtest).Header.Hash()
	if mainnet == testnet || mainnet == regtest || testnet == regtest {
		t.Error("genesis hashes should differ across networks")
	}
}

func TestValidateGenesis_NoCheckpoint(t *testing.T) {
	s := Preset(Regtest)
	s.Checkpoints = nil
	if err := ValidateGenesis(Regtest, &s); err != nil {
		t.Errorf("genesis with no checkpoints should validate: %v", err)
	}
}

func TestValidateGenesis_MatchingCheckpoint(t *testing.T) {
	s := Preset(Mainnet)
	s.Checkpoints = []Checkpoint{{Height: 0, Hash: Genesis(Mainnet).Header.Hash()}}
	if err := ValidateGenesis(Mainnet, &s); err != nil {
		t.Errorf("genesis matching its own height-0 checkpoint should validate: %v", err)
	}
}

func TestValidateGenesis_MismatchedCheckpoint(t *testing.T) {
	s := Preset(Mainnet)
	s.Checkpoints = []Checkpoint{{Height: 0, Hash: [32]byte{0xff}}}
	if err := ValidateGenesis(Mainnet, &s); err == nil {
		t.Error("genesis with a mismatched height-0 checkpoint should fail validation")
	}
}
