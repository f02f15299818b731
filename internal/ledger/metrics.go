package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	journalTransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletd",
			Subsystem: "ledger",
			Name:      "journal_transactions_total",
			Help:      "Total number of committed journal transactions",
		},
		[]string{"operation_scope", "asset"},
	)

	idempotentReplaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletd",
			Subsystem: "ledger",
			Name:      "idempotent_replays_total",
			Help:      "Total number of write requests answered from the journal",
		},
		[]string{"operation_scope"},
	)
)
