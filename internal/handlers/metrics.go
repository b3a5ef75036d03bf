package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CustomerOperationsTotal counts REST customer operations.
// Labels:
//   - operation: create, get, update or delete
//   - outcome: ok, invalid, conflict, not_found or error
var CustomerOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "codescribe",
		Subsystem: "http",
		Name:      "customer_operations_total",
		Help:      "Total number of customer operations served over HTTP.",
	},
	[]string{"operation", "outcome"},
)
