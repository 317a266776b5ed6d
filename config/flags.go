package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// Worker sizing / scheduling overrides (Settings).
	Cores    int
	Priority bool

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetPriority bool
	SetLogJSON  bool
}

// ParseFlags parses command-line flags.
func ParseFlags() *Flags {
	f := &Flags{}
	fs := flag.NewFlagSet("bchvalidator", flag.ContinueOnError)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network: mainnet, testnet, testnet4, regtest, scalenet, chipnet")
	testnet := fs.Bool("testnet", false, "Use testnet (shorthand for --network=testnet)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Worker sizing
	fs.IntVar(&f.Cores, "cores", 0, "Worker core count (0 = all available)")
	fs.BoolVar(&f.Priority, "priority", false, "Run as the block-organizer priority class")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	fs.Usage = func() {
		printUsage()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if *testnet {
		f.Network = "testnet"
	}
	f.SetPriority = isFlagSet(fs, "priority")
	f.SetLogJSON = isFlagSet(fs, "log-json")

	f.Args = fs.Args()

	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			fmt.Fprintf(os.Stderr, "Error: flag %q was not parsed (positional argument stopped parsing)\n", arg)
			os.Exit(1)
		}
	}

	return f
}

// ApplyFlagsNode applies command-line flags to a Node struct.
func ApplyFlagsNode(n *Node, f *Flags) {
	if f.Network != "" {
		n.Network = Network(f.Network)
	}
	if f.DataDir != "" {
		n.DataDir = f.DataDir
	}
	if f.LogLevel != "" {
		n.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		n.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		n.Log.JSON = f.LogJSON
	}
}

// ApplyFlagsSettings applies command-line flags to a Settings struct.
// Only worker-sizing knobs are overridable from the command line; rule
// toggles and policy floors come solely from the network preset and the
// config file, since those must match across the network to avoid a
// chain split and should not be casually flipped at invocation time.
func ApplyFlagsSettings(s *Settings, f *Flags) {
	if f.Cores != 0 {
		s.Cores = f.Cores
	}
	if f.SetPriority {
		s.Priority = f.Priority
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printUsage() {
	usage := `bchvalidator - Bitcoin Cash full-node validating core

Usage:
  bchvalidator [options]
  bchvalidator --help

Commands:
  --help, -h      Show this help message
  --version, -v   Show version information

Core Options:
  --network       Network: mainnet (default), testnet, testnet4, regtest, scalenet, chipnet
  --testnet       Shorthand for --network=testnet
  --datadir       Data directory (default: ~/.bchvalidator)
  --config, -c    Config file path (default: <datadir>/validator.conf)

Worker Options:
  --cores         Worker core count (0 = all available)
  --priority      Run as the block-organizer priority class

Logging Options:
  --log-level     Log level: debug, info, warn, error (default: info)
  --log-file      Log file path (default: stdout)
  --log-json      Output logs as JSON

Examples:
  # Start mainnet node
  bchvalidator

  # Start testnet node
  bchvalidator --network=testnet

  # Start with custom data directory
  bchvalidator --datadir=/path/to/data

Note:
  Consensus-relevant settings (rule activation, fee floors, mempool
  limits) come from the network preset and the config file. They are
  not exposed as command-line flags because changing them in isolation
  can split the node off from consensus with the rest of the network.
`
	fmt.Print(usage)
}

// Load loads configuration with the following precedence:
// 1. Network preset (Settings) and defaults (Node)
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags (Node and worker-sizing Settings only)
func Load() (*Node, *Settings, *Flags, error) {
	flags := ParseFlags()

	if flags.Help {
		printUsage()
		os.Exit(0)
	}
	if flags.Version {
		fmt.Println("bchvalidator version 0.1.0")
		os.Exit(0)
	}

	network := Mainnet
	if strings.ToLower(flags.Network) != "" {
		network = Network(strings.ToLower(flags.Network))
	}

	node := DefaultNode(network)
	settings := Preset(network)

	if flags.DataDir != "" {
		node.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(node); err != nil {
		return nil, nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = node.ConfigFile()
	}

	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config file: %w", err)
	}

	if err := ApplyFileNode(node, fileValues); err != nil {
		return nil, nil, nil, fmt.Errorf("applying config file to node: %w", err)
	}
	if err := ApplyFileSettings(&settings, fileValues); err != nil {
		return nil, nil, nil, fmt.Errorf("applying config file to settings: %w", err)
	}

	ApplyFlagsNode(node, flags)
	ApplyFlagsSettings(&settings, flags)

	if err := ValidateNode(node); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid node config: %w", err)
	}
	if err := Validate(&settings); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid settings: %w", err)
	}

	return node, &settings, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Idempotent, safe to call on every
// startup.
func EnsureDataDirs(n *Node) error {
	dirs := []string{
		n.DataDir,
		n.ChainDataDir(),
		n.BlocksDir(),
		n.UTXODir(),
		n.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := n.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, n.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
