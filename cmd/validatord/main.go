// validatord wires FastChain, the block/transaction organizers, and
// SafeChain together against a persistent store, then runs until it
// receives SIGINT or SIGTERM, when it stops the organizers and exits. It
// serves no network
// protocol of its own: validatord is the collaborator a relay, wallet
// service, or miner embeds, not a node in its own right.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/k-nuth/blockchain-sub001/config"
	"github.com/k-nuth/blockchain-sub001/internal/blockpool"
	"github.com/k-nuth/blockchain-sub001/internal/chain"
	"github.com/k-nuth/blockchain-sub001/internal/consensus"
	"github.com/k-nuth/blockchain-sub001/internal/dispatcher"
	vlog "github.com/k-nuth/blockchain-sub001/internal/log"
	"github.com/k-nuth/blockchain-sub001/internal/mempool"
	"github.com/k-nuth/blockchain-sub001/internal/organizer"
	"github.com/k-nuth/blockchain-sub001/internal/populate"
	"github.com/k-nuth/blockchain-sub001/internal/safechain"
	"github.com/k-nuth/blockchain-sub001/internal/storage"
	"github.com/k-nuth/blockchain-sub001/internal/utxo"
	"github.com/k-nuth/blockchain-sub001/internal/validate"
	"github.com/k-nuth/blockchain-sub001/pkg/script"
	"github.com/k-nuth/blockchain-sub001/pkg/tx"
	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

func main() {
	node, settings, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := vlog.Init(node.Log.Level, node.Log.JSON, node.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger := vlog.WithComponent("validatord")

	db, err := storage.NewBadger(node.ChainDataDir())
	if err != nil {
		logger.Fatal().Err(err).Str("path", node.ChainDataDir()).Msg("failed to open database")
	}
	defer db.Close()

	utxoStore := utxo.NewStore(db)

	c, err := chain.New(db, utxoStore, settings, node.Network)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create chain")
	}
	if c.State().IsGenesis() {
		if err := c.InitFromGenesis(); err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize from genesis")
		}
		logger.Info().Msg("chain initialized from genesis")
	} else {
		state := c.State()
		logger.Info().Uint64("height", state.Height).Str("tip", state.TipHash.String()).Msg("chain resumed from database")
	}

	pool := blockpool.New(settings.ReorganizationLimit)
	mp := mempool.New(settings.MempoolMaxTemplateSize, settings.MempoolSizeMultiplier)
	fan := dispatcher.New(settings.Cores)

	verify := verifyFunc(utxoStore)

	blockValidate := &validate.Block{
		Populator:  &populate.Block{Base: &populate.Base{UTXO: utxoStore}},
		Dispatcher: fan,
		Settings:   settings,
		Verify:     verify,
	}
	txValidate := &validate.Transaction{
		Populator:  &populate.Tx{Base: &populate.Base{UTXO: utxoStore, Mempool: mp}},
		Dispatcher: fan,
		Settings:   settings,
		Verify:     verify,
	}

	life := organizer.NewLifecycle()
	mutex := organizer.NewChainMutex()
	subs := &organizer.Subscribers{}

	blocks := &organizer.BlockOrganizer{
		Chain:      c,
		Pool:       pool,
		Consensus:  consensus.NewValidator(consensus.PoW{}),
		Validate:   blockValidate,
		Dispatcher: fan,
		Mempool:    mp,
		Life:       life,
		Mutex:      mutex,
		Subs:       subs,
	}
	transactions := &organizer.TransactionOrganizer{
		Chain:    c,
		Validate: txValidate,
		Mempool:  mp,
		Life:     life,
		Mutex:    mutex,
		Subs:     subs,
	}

	sc := safechain.New(blocks, transactions, pool, mp, settings)

	logger.Info().Uint64("height", c.State().Height).Msg("validatord ready")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	sc.Stop()
	logger.Info().Msg("validatord stopped")
}

// verifyFunc adapts pkg/script.Reference (a single-template verifier closed
// over a prevScript lookup) to script.VerifyFunc's fixed (t, i, flags)
// signature by resolving each input's locking script from the shared UTXO
// store at call time.
func verifyFunc(utxoStore *utxo.Store) func(t *tx.Transaction, i int, flags types.RuleFlags) (int, error) {
	return func(t *tx.Transaction, i int, flags types.RuleFlags) (int, error) {
		prevScript := func(idx int) ([]byte, bool) {
			entry, err := utxoStore.GetAtOrBelow(t.Inputs[idx].PrevOut, ^uint64(0))
			if err != nil {
				return nil, false
			}
			return entry.Output.Script, true
		}
		return script.Reference(prevScript)(t, i, flags)
	}
}
