// Package metrics instruments the custodian service. It implements
// lender.Recorder over a prometheus instrument set, so settlement
// activity lands on a scrape endpoint without the core knowing.
package metrics

import (
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"

	"github.com/basisfi/flashlend/lender"
	"github.com/basisfi/flashlend/token"
)

// CustodianMetrics is the instrument set for one custodian.
type CustodianMetrics struct {
	Settlements       prometheus.Counter
	SettlementVolume  prometheus.Counter
	FeesCollected     prometheus.Counter
	SettlementDepth   prometheus.Gauge
	SettlementLatency prometheus.Histogram
	ReserveLevel      prometheus.Gauge
	ReserveOps        *prometheus.CounterVec
	Faults            *prometheus.CounterVec
	FaultsTotal       prometheus.Counter
}

// NewCustodianMetrics registers the instrument set with reg, or the
// default registerer when reg is nil.
func NewCustodianMetrics(namespace string, reg prometheus.Registerer) *CustodianMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &CustodianMetrics{
		Settlements: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Total number of settled flash loans",
		}),
		SettlementVolume: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_volume_wei",
			Help:      "Total principal disbursed and recovered, in wei",
		}),
		FeesCollected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fees_collected_wei",
			Help:      "Total fees collected, in wei",
		}),
		SettlementDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "settlement_depth",
			Help:      "Nesting level of the most recent settlement",
		}),
		SettlementLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settlement_latency_seconds",
			Help:      "Wall time of settlement rounds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		ReserveLevel: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reserves_wei",
			Help:      "Ledger reserves after the most recent operation",
		}),
		ReserveOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reserve_operations_total",
			Help:      "Funding and sweep operations by kind",
		}, []string{"op"}),
		Faults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faults_total",
			Help:      "Aborted operations by operation and fault kind",
		}, []string{"op", "kind"}),
		FaultsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faults_all_total",
			Help:      "Total number of aborted operations",
		}),
	}
}

// SuccessRate reads settled vs aborted operations back from the live
// counters. Returns 1 before any activity.
func (m *CustodianMetrics) SuccessRate() float64 {
	var settled, faulted dto.Metric
	if err := m.Settlements.Write(&settled); err != nil {
		return 0
	}
	if err := m.FaultsTotal.Write(&faulted); err != nil {
		return 0
	}
	total := settled.Counter.GetValue() + faulted.Counter.GetValue()
	if total == 0 {
		return 1
	}
	return settled.Counter.GetValue() / total
}

// ObserveRound records the wall time of one settlement round.
func (m *CustodianMetrics) ObserveRound(start time.Time) {
	m.SettlementLatency.Observe(time.Since(start).Seconds())
}

// Recorder feeds lender records into the instrument set.
type Recorder struct {
	metrics *CustodianMetrics
	logger  *zap.Logger
}

// NewRecorder wraps an instrument set as a lender.Recorder.
func NewRecorder(m *CustodianMetrics, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{metrics: m, logger: logger}
}

// RecordSettlement implements lender.Recorder.
func (r *Recorder) RecordSettlement(s lender.Settlement) {
	r.metrics.Settlements.Inc()
	r.metrics.SettlementVolume.Add(weiToFloat(s.Amount))
	r.metrics.FeesCollected.Add(weiToFloat(s.Fee))
	r.metrics.SettlementDepth.Set(float64(s.Depth))
}

// RecordReserveChange implements lender.Recorder.
func (r *Recorder) RecordReserveChange(rc lender.ReserveChange) {
	r.metrics.ReserveOps.WithLabelValues(string(rc.Op)).Inc()
	if rc.Reserves != nil {
		r.metrics.ReserveLevel.Set(weiToFloat(rc.Reserves))
	}
}

// RecordFault implements lender.Recorder.
func (r *Recorder) RecordFault(op lender.Op, err error) {
	r.metrics.Faults.WithLabelValues(string(op), faultKind(err)).Inc()
	r.metrics.FaultsTotal.Inc()
}

// faultKind maps a fault to its taxonomy label.
func faultKind(err error) string {
	switch {
	case errors.Is(err, lender.ErrUnsupportedAsset):
		return "unsupported_asset"
	case errors.Is(err, lender.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, lender.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, lender.ErrCallbackFailed):
		return "callback_failed"
	case errors.Is(err, lender.ErrInsufficientRepayment):
		return "insufficient_repayment"
	case errors.Is(err, token.ErrNotAContract):
		return "not_a_contract"
	case errors.Is(err, token.ErrAssetCallFailed):
		return "asset_call_failed"
	case errors.Is(err, token.ErrTransferFailed):
		return "transfer_failed"
	default:
		return "other"
	}
}

// Serve exposes the gatherer on addr until the server fails. Run it on
// its own goroutine.
func Serve(addr string, gatherer prometheus.Gatherer, logger *zap.Logger) error {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	logger.Info("metrics endpoint up", zap.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}

func weiToFloat(x *big.Int) float64 {
	if x == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}
