package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MarketplaceMetrics counts order, status and ledger activity.
type MarketplaceMetrics struct {
	ordersCreated *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	ledgerEntries *prometheus.CounterVec
}

// NewMarketplaceMetrics registers the marketplace counters on reg. A nil reg yields no-op metrics.
func NewMarketplaceMetrics(reg prometheus.Registerer) *MarketplaceMetrics {
	if reg == nil {
		return &MarketplaceMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders committed, by payment method.",
	}, []string{"payment_method"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_status_transitions_total",
		Help:      "Applied status transitions, by target status and scope (order or shipment).",
	}, []string{"status", "scope"})
	ledgerEntries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wallet_ledger_entries_total",
		Help:      "Ledger entries appended, by transaction type.",
	}, []string{"type"})
	reg.MustRegister(ordersCreated, transitions, ledgerEntries)
	return &MarketplaceMetrics{
		ordersCreated: ordersCreated,
		transitions:   transitions,
		ledgerEntries: ledgerEntries,
	}
}

func (m *MarketplaceMetrics) IncOrderCreated(paymentMethod string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

func (m *MarketplaceMetrics) IncStatusTransition(status, scope string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status), normalizeLabel(scope)).Inc()
}

// AddLedgerEntries increments the ledger counter for txType by n.
func (m *MarketplaceMetrics) AddLedgerEntries(txType string, n int) {
	if m == nil || m.ledgerEntries == nil || n <= 0 {
		return
	}
	m.ledgerEntries.WithLabelValues(normalizeLabel(txType)).Add(float64(n))
}
