// Package utxo manages the unspent-output set, the fast path behind
// FastChain's get_utxo lookup.
package utxo

import "github.com/k-nuth/blockchain-sub001/pkg/types"

// Entry is an unspent output together with the chain-context metadata a
// spending transaction needs to evaluate lock-time and coinbase-maturity
// rules without walking back through the block it came from.
type Entry struct {
	Outpoint       types.Outpoint `json:"outpoint"`
	Output         types.Output   `json:"output"`
	Height         uint64         `json:"height"`
	MedianTimePast uint32         `json:"median_time_past"`
	Coinbase       bool           `json:"coinbase"`
}

// Set is the interface for UTXO storage.
type Set interface {
	Get(outpoint types.Outpoint) (*Entry, error)
	Put(entry *Entry) error
	Delete(outpoint types.Outpoint) error
	Has(outpoint types.Outpoint) (bool, error)
}
