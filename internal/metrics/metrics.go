// Package metrics exposes Prometheus instrumentation for the parts of the
// validating core that run continuously and whose behavior an operator
// needs to watch over time: block/transaction organization outcomes,
// mempool and block-pool occupancy, and reorganization depth.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/k-nuth/blockchain-sub001/pkg/types"
)

var (
	blocksOrganized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "validating_core",
		Subsystem: "organizer",
		Name:      "blocks_organized_total",
		Help:      "Candidate blocks run through BlockOrganizer.Organize, by outcome code.",
	}, []string{"code"})

	txsOrganized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "validating_core",
		Subsystem: "organizer",
		Name:      "transactions_organized_total",
		Help:      "Candidate transactions run through TransactionOrganizer.Organize, by outcome code.",
	}, []string{"code"})

	reorgDepth = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "validating_core",
		Subsystem: "organizer",
		Name:      "reorganization_depth_blocks",
		Help:      "Number of blocks disconnected from the persistent tip by a committed reorganization.",
		Buckets:   []float64{0, 1, 2, 3, 5, 10, 25, 50, 100},
	})

	mempoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "validating_core",
		Subsystem: "mempool",
		Name:      "transactions",
		Help:      "Current number of transactions held in the mempool.",
	})

	blockPoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "validating_core",
		Subsystem: "blockpool",
		Name:      "blocks",
		Help:      "Current number of blocks held in the orphan/side-branch pool.",
	})
)

// ObserveBlockOrganized records one BlockOrganizer.Organize outcome.
func ObserveBlockOrganized(code types.Code) {
	blocksOrganized.WithLabelValues(code.String()).Inc()
}

// ObserveTxOrganized records one TransactionOrganizer.Organize outcome.
func ObserveTxOrganized(code types.Code) {
	txsOrganized.WithLabelValues(code.String()).Inc()
}

// ObserveReorganizationDepth records how many blocks a committed
// reorganization disconnected from the prior tip. Call with 0 for a linear
// extension (no blocks disconnected).
func ObserveReorganizationDepth(depth int) {
	reorgDepth.Observe(float64(depth))
}

// SetMempoolSize reports the mempool's current transaction count.
func SetMempoolSize(n int) {
	mempoolSize.Set(float64(n))
}

// SetBlockPoolSize reports the block pool's current block count.
func SetBlockPoolSize(n int) {
	blockPoolSize.Set(float64(n))
}
