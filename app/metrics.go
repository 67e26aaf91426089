package app

import (
	"strconv"

	"github.com/calehh/guild-app/tx"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts executed transactions. Collectors work unregistered, so an
// app built without a registry records into nowhere.
type Metrics struct {
	txTotal   *prometheus.CounterVec
	blockTxs  prometheus.Histogram
	height    prometheus.Gauge
	proposals prometheus.Counter
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		txTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guild_tx_total",
			Help: "Total number of delivered transactions by type and result code",
		}, []string{"type", "code"}),
		blockTxs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "guild_block_txs",
			Help:    "Number of transactions per finalized block",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "guild_height",
			Help: "Height of the last finalized block",
		}),
		proposals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guild_proposals_submitted_total",
			Help: "Total number of proposals accepted by the ledger",
		}),
	}
	if registry != nil {
		registry.MustRegister(m.txTotal, m.blockTxs, m.height, m.proposals)
	}
	return m
}

func (m *Metrics) observeTx(tp tx.GuildTxType, code uint32) {
	m.txTotal.WithLabelValues(tp.String(), strconv.FormatUint(uint64(code), 10)).Inc()
	if tp == tx.GuildTxTypePropose && code == 0 {
		m.proposals.Inc()
	}
}

func (m *Metrics) observeBlock(height int64, txs int) {
	m.height.Set(float64(height))
	m.blockTxs.Observe(float64(txs))
}
