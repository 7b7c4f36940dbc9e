package billingmetrics

import (
	"context"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	billdomain "github.com/smallbiznis/medicore/internal/bill/domain"
)

var paymentStatuses = []billdomain.PaymentStatus{
	billdomain.PaymentStatusPending,
	billdomain.PaymentStatusPartial,
	billdomain.PaymentStatusPaid,
}

// SummarySource reports bill aggregates per payment status.
type SummarySource interface {
	Summary(ctx context.Context) ([]billdomain.StatusSummary, error)
}

// Collector holds the billing gauges. The gauges are snapshots refreshed
// from the bill store, not counters.
type Collector struct {
	registry    *prometheus.Registry
	bills       *prometheus.GaugeVec
	amount      *prometheus.GaugeVec
	memoryBytes prometheus.Gauge
}

func NewCollector(registry *prometheus.Registry) *Collector {
	c := &Collector{
		registry: registry,
		bills: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "medicore_bills",
			Help: "Number of stored bills by payment status.",
		}, []string{"payment_status"}),
		amount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "medicore_bill_amount",
			Help: "Sum of bill totals by payment status.",
		}, []string{"payment_status"}),
		memoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "medicore_process_memory_bytes",
			Help: "Memory obtained from the OS by the process.",
		}),
	}
	registry.MustRegister(c.bills, c.amount, c.memoryBytes)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Refresh reloads the gauges from source. Statuses with no bills read 0.
func (c *Collector) Refresh(ctx context.Context, source SummarySource) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	c.memoryBytes.Set(float64(m.Sys))

	if source == nil {
		return nil
	}
	rows, err := source.Summary(ctx)
	if err != nil {
		return err
	}

	byStatus := make(map[billdomain.PaymentStatus]billdomain.StatusSummary, len(rows))
	for _, row := range rows {
		byStatus[row.PaymentStatus] = row
	}
	for _, status := range paymentStatuses {
		row := byStatus[status]
		c.bills.WithLabelValues(string(status)).Set(float64(row.Count))
		c.amount.WithLabelValues(string(status)).Set(row.Amount)
	}
	return nil
}
