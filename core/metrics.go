package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics wraps the Prometheus collectors the ledger engine and lifecycle
// state machine update as they run, grounded on the teacher's
// HealthLogger/Metrics split in core/system_health_logging.go: a private
// registry owned by the component, gauges/counters/histograms registered
// once at construction, and plain Set/Inc/Observe calls at the call sites
// that changed. The observe* methods are nil-safe so callers that never wire
// metrics (unit tests, the CLI's validate-chain path) do not need a no-op
// implementation; Registry needs a non-nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	blocksMined         *prometheus.CounterVec
	miningAttempts      *prometheus.HistogramVec
	commandDuration     *prometheus.HistogramVec
	commandErrors       *prometheus.CounterVec
	signatureRejections *prometheus.CounterVec
}

// NewMetrics builds a fresh registry and registers every collector,
// mirroring prometheus.NewRegistry()+MustRegister(...) in
// system_health_logging.go rather than the global default registry, so
// multiple Chains/Lifecycles in the same process (as in tests) never
// collide on collector names.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		blocksMined: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omrledger_blocks_mined_total",
			Help: "Total number of ledger blocks mined, by block type.",
		}, []string{"block_type"}),
		miningAttempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "omrledger_mining_attempts",
			Help:    "Nonce attempts consumed mining a block, by block type.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"block_type"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "omrledger_lifecycle_command_duration_seconds",
			Help:    "Wall-clock duration of a lifecycle command, by command name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		commandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omrledger_lifecycle_command_errors_total",
			Help: "Lifecycle commands that returned an error, by command name and error kind.",
		}, []string{"command", "kind"}),
		signatureRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omrledger_signature_rejections_total",
			Help: "Signature submissions rejected, by signer type.",
		}, []string{"signer_type"}),
	}
	reg.MustRegister(m.blocksMined, m.miningAttempts, m.commandDuration, m.commandErrors, m.signatureRejections)
	return m
}

// Registry exposes the underlying registry so the HTTP layer can mount
// promhttp.HandlerFor(m.Registry(), ...) without core importing net/http.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// observeBlockMined records a successfully mined block's nonce count (spec
// §9 Design Note "Metrics": "counters/histograms for blocks mined, mining
// attempts"). attempts is the block's final Nonce plus one, since mining
// starts trying nonce 0.
func (m *Metrics) observeBlockMined(blockType BlockType, attempts uint64) {
	if m == nil {
		return
	}
	label := string(blockType)
	m.blocksMined.WithLabelValues(label).Inc()
	m.miningAttempts.WithLabelValues(label).Observe(float64(attempts))
}

// observeCommand records a lifecycle command's latency and, if it failed,
// its error kind.
func (m *Metrics) observeCommand(command string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.commandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
	if err != nil {
		kind, ok := KindOf(err)
		if !ok {
			kind = "unknown"
		}
		m.commandErrors.WithLabelValues(command, string(kind)).Inc()
	}
}

// observeSignatureRejection records a signer submission that Add() refused
// (a signer type outside the required set, an unauthorized key, or a
// signer type that already has an approved signature).
func (m *Metrics) observeSignatureRejection(signerType SignerType) {
	if m == nil {
		return
	}
	m.signatureRejections.WithLabelValues(string(signerType)).Inc()
}
