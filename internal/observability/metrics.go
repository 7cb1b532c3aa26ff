// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Transaction metrics
	TransactionsSubmitted *prometheus.CounterVec
	TransactionsFailed    *prometheus.CounterVec
	AirdropsRequested     prometheus.Counter
	AirdropLamports       prometheus.Counter

	// Answer metrics
	AnswersDecoded      *prometheus.CounterVec
	AnswerDecodeErrors  *prometheus.CounterVec
	LastAnswerPrice     *prometheus.GaugeVec
	LastAnswerTimestamp *prometheus.GaugeVec

	// Websocket metrics
	WSNotifications  prometheus.Counter
	WSReconnects     prometheus.Counter
	WSMessageLatency prometheus.Histogram

	// Database metrics
	SnapshotsStored *prometheus.CounterVec
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "solana_oracle"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls by method",
		}, []string{"method"}),

		TransactionsSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "submitted_total",
			Help:      "Total number of transactions submitted by kind",
		}, []string{"kind"}),
		TransactionsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "failed_total",
			Help:      "Total number of transactions that failed or expired by kind",
		}, []string{"kind"}),
		AirdropsRequested: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "airdrops_total",
			Help:      "Total number of confirmed airdrops to the fee payer",
		}),
		AirdropLamports: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "airdrop_lamports_total",
			Help:      "Total lamports received via confirmed airdrops",
		}),

		AnswersDecoded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "decoded_total",
			Help:      "Total number of answer records decoded by schema",
		}, []string{"schema"}),
		AnswerDecodeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "decode_errors_total",
			Help:      "Total number of malformed answer records by schema",
		}, []string{"schema"}),
		LastAnswerPrice: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "last_price",
			Help:      "Last decoded answer price, scaled by its decimal",
		}, []string{"address"}),
		LastAnswerTimestamp: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "last_update_timestamp",
			Help:      "Unix timestamp carried by the last decoded answer",
		}, []string{"address"}),

		WSNotifications: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_notifications_total",
			Help:      "Total number of account notifications received",
		}),
		WSReconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_reconnects_total",
			Help:      "Total number of websocket reconnections",
		}),
		WSMessageLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		SnapshotsStored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "snapshots_stored_total",
			Help:      "Total number of answer snapshots stored by backend",
		}, []string{"database"}),
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordTransaction records a submitted transaction and whether it landed.
func RecordTransaction(kind string, err error) {
	DefaultMetrics.TransactionsSubmitted.WithLabelValues(kind).Inc()
	if err != nil {
		DefaultMetrics.TransactionsFailed.WithLabelValues(kind).Inc()
	}
}

// RecordAirdrop records a confirmed airdrop.
func RecordAirdrop(lamports uint64) {
	DefaultMetrics.AirdropsRequested.Inc()
	DefaultMetrics.AirdropLamports.Add(float64(lamports))
}

// RecordAnswerDecoded records a decoded answer for address.
func RecordAnswerDecoded(schema, address string, price float64, unixTime int64) {
	DefaultMetrics.AnswersDecoded.WithLabelValues(schema).Inc()
	DefaultMetrics.LastAnswerPrice.WithLabelValues(address).Set(price)
	DefaultMetrics.LastAnswerTimestamp.WithLabelValues(address).Set(float64(unixTime))
}

// RecordAnswerDecodeError records a malformed answer record.
func RecordAnswerDecodeError(schema string) {
	DefaultMetrics.AnswerDecodeErrors.WithLabelValues(schema).Inc()
}

// RecordWSNotification records an account notification and its handling time.
func RecordWSNotification(seconds float64) {
	DefaultMetrics.WSNotifications.Inc()
	DefaultMetrics.WSMessageLatency.Observe(seconds)
}

// RecordWSReconnect records a websocket reconnection.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// RecordSnapshotStored records a persisted snapshot.
func RecordSnapshotStored(database string) {
	DefaultMetrics.SnapshotsStored.WithLabelValues(database).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
