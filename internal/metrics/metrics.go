// Package metrics exposes Prometheus counters for ledger activity.
// The registry is served by the HTTP API under /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var AssetsCreated = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "cardswap_assets_created_total",
	Help: "Number of assets created",
})

var Transfers = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "cardswap_transfers_total",
	Help: "Number of asset transfers, including escrow moves",
})

var SwapsCreated = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "cardswap_swaps_created_total",
	Help: "Number of swaps proposed",
})

var SwapsExecuted = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "cardswap_swaps_executed_total",
	Help: "Number of swaps executed",
})

var SwapsCancelled = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "cardswap_swaps_cancelled_total",
	Help: "Number of swaps cancelled",
})

var FactsAppended = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "cardswap_facts_appended_total",
	Help: "Number of facts appended to the log",
})

// Registry holds all CardSwap collectors.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(AssetsCreated)
	Registry.MustRegister(Transfers)
	Registry.MustRegister(SwapsCreated)
	Registry.MustRegister(SwapsExecuted)
	Registry.MustRegister(SwapsCancelled)
	Registry.MustRegister(FactsAppended)
}
