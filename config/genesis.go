package config

import (
	"fmt"

	"github.com/k-nuth/blockchain-sub001/pkg/block"
	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

// Denomination constants. 1 BCH = 10^8 satoshis. All on-chain values are
// in satoshis.
const (
	Decimals     = 8
	Coin         = 100_000_000
	InitialSubsidy = 50 * Coin
	// HalvingInterval is the number of blocks between subsidy halvings.
	HalvingInterval uint64 = 210_000
)

// CoinbaseMaturity is the number of blocks a coinbase output must wait
// before it can be spent.
const CoinbaseMaturity uint64 = 100

// Genesis returns the hardcoded genesis block for the given network. The
// genesis block is never itself run through the organizer: its hash is
// the root of the chain's Branch tree and Populate treats height 0 as
// implicitly accepted.
func Genesis(network Network) *block.Block {
	switch network {
	case Testnet:
		return testnetGenesis()
	case Testnet4:
		return testnet4Genesis()
	case Regtest:
		return regtestGenesis()
	case Scalenet:
		return scalenetGenesis()
	case Chipnet:
		return chipnetGenesis()
	default:
		return mainnetGenesis()
	}
}

func genesisCoinbase(extraData string) *tx.Transaction {
	return &tx.Transaction{
		Version: 1,
		Inputs: []tx.Input{
			{
				PrevOut:         types.Outpoint{},
				UnlockingScript: []byte(extraData),
				Sequence:        0xffffffff,
			},
		},
		Outputs: []tx.Output{
			{
				Value:  InitialSubsidy,
				Script: []byte{0x6a}, // OP_RETURN-style unspendable output; genesis coins are not intended to circulate.
			},
		},
		LockTime: 0,
	}
}

func genesisBlock(version uint32, timestamp, bits, nonce uint32, extraData string) *block.Block {
	coinbase := genesisCoinbase(extraData)
	txs := []*tx.Transaction{coinbase}
	root := block.ComputeMerkleRoot([]types.Hash{coinbase.Hash()})
	header := &block.Header{
		Version:    version,
		PrevHash:   types.Hash{},
		MerkleRoot: root,
		Timestamp:  timestamp,
		Bits:       bits,
		Nonce:      nonce,
	}
	return block.NewBlock(header, txs)
}

func mainnetGenesis() *block.Block {
	return genesisBlock(1, 1231006505, 0x1d00ffff, 2083236893, "validating core mainnet genesis")
}

func testnetGenesis() *block.Block {
	return genesisBlock(1, 1296688602, 0x1d00ffff, 414098458, "validating core testnet genesis")
}

func testnet4Genesis() *block.Block {
	return genesisBlock(1, 1597811185, 0x1d00ffff, 114152193, "validating core testnet4 genesis")
}

func regtestGenesis() *block.Block {
	return genesisBlock(1, 1296688602, 0x207fffff, 2, "validating core regtest genesis")
}

func scalenetGenesis() *block.Block {
	return genesisBlock(1, 1598282840, 0x1d00ffff, 42, "validating core scalenet genesis")
}

func chipnetGenesis() *block.Block {
	return genesisBlock(1, 1605441600, 0x1d00ffff, 1697444, "validating core chipnet genesis")
}

// ValidateGenesis checks that a network's hardcoded genesis block is
// internally consistent: single coinbase, merkle root matches, and its
// hash matches the known checkpoint at height 0 if one is configured.
func ValidateGenesis(network Network, settings *Settings) error {
	g := Genesis(network)
	if len(g.Transactions) != 1 || !g.Transactions[0].IsCoinbase() {
		return fmt.Errorf("genesis block for %s must contain exactly one coinbase transaction", network)
	}
	wantRoot := block.ComputeMerkleRoot([]types.Hash{g.Transactions[0].Hash()})
	if wantRoot != g.Header.MerkleRoot {
		return fmt.Errorf("genesis block for %s has a merkle root mismatch", network)
	}
	hash := g.Header.Hash()
	for _, cp := range settings.Checkpoints {
		if cp.Height == 0 && cp.Hash != hash {
			return fmt.Errorf("genesis block for %s does not match configured height-0 checkpoint", network)
		}
	}
	return nil
}
