package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DepositAttempts counts submitted deposit attempts by provider family.
	DepositAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "topup_deposit_attempts_total",
		Help: "Number of deposit attempts submitted, by provider family.",
	}, []string{"family"})

	// DepositOutcomes counts resolved deposit attempts by family and outcome.
	// Outcome is "redirect", "widget" or an order error kind.
	DepositOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "topup_deposit_outcomes_total",
		Help: "Number of resolved deposit attempts, by provider family and outcome.",
	}, []string{"family", "outcome"})

	// WalletOperations counts wallet provisioning operations by asset and result.
	WalletOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "topup_wallet_operations_total",
		Help: "Number of wallet provisioning operations, by asset and result.",
	}, []string{"asset", "result"})
)
