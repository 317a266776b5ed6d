// Package config handles node configuration: the consensus-relevant
// Settings that every node on a network must agree on, the network
// presets that seed them, and the directory layout a node runs from.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Network identifies which of the recognized network presets a node is
// running against.
type Network string

const (
	Mainnet  Network = "mainnet"
	Testnet  Network = "testnet"
	Testnet4 Network = "testnet4"
	Regtest  Network = "regtest"
	Scalenet Network = "scalenet"
	Chipnet  Network = "chipnet"
)

// Node holds the non-consensus, per-node runtime configuration: where it
// keeps its data and how it logs, as opposed to Settings (consensus rules
// and policy knobs every node on the network must agree on).
type Node struct {
	Network Network `conf:"network"`
	DataDir string  `conf:"datadir"`
	Log     LogConfig
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.bchvalidator
//	macOS:   ~/Library/Application Support/BCHValidator
//	Windows: %APPDATA%\BCHValidator
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bchvalidator"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "BCHValidator")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "BCHValidator")
		}
		return filepath.Join(home, "AppData", "Roaming", "BCHValidator")
	default:
		return filepath.Join(home, ".bchvalidator")
	}
}

// ChainDataDir returns the network-specific data directory.
func (n *Node) ChainDataDir() string {
	return filepath.Join(n.DataDir, string(n.Network))
}

// BlocksDir returns the block storage directory.
func (n *Node) BlocksDir() string {
	return filepath.Join(n.ChainDataDir(), "blocks")
}

// UTXODir returns the UTXO database directory.
func (n *Node) UTXODir() string {
	return filepath.Join(n.ChainDataDir(), "utxo")
}

// LogsDir returns the logs directory.
func (n *Node) LogsDir() string {
	return filepath.Join(n.DataDir, "logs")
}

// ConfigFile returns the settings file path.
func (n *Node) ConfigFile() string {
	return filepath.Join(n.DataDir, "validator.conf")
}
