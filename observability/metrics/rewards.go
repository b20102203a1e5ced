package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type RewardMetrics struct {
	processed  *prometheus.CounterVec
	rejected   *prometheus.CounterVec
	faults     *prometheus.CounterVec
	amountsSum *prometheus.CounterVec
	claims     prometheus.Counter
}

var (
	rewardsOnce     sync.Once
	rewardsRegistry *RewardMetrics
)

// Rewards returns the process-wide reward engine metrics registry.
func Rewards() *RewardMetrics {
	rewardsOnce.Do(func() {
		rewardsRegistry = &RewardMetrics{
			processed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "poke_rewards_processed_total",
				Help: "Count of successfully rewarded game events by game.",
			}, []string{"game"}),
			rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "poke_rewards_rejected_total",
				Help: "Count of policy rejections by game and reason.",
			}, []string{"game", "reason"}),
			faults: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "poke_rewards_faults_total",
				Help: "Count of event processing faults by kind.",
			}, []string{"kind"}),
			amountsSum: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "poke_rewards_amount_smallest_units_total",
				Help: "Sum of rewarded amounts in smallest units by game.",
			}, []string{"game"}),
			claims: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "poke_rewards_claims_total",
				Help: "Count of claim operations.",
			}),
		}
		prometheus.MustRegister(
			rewardsRegistry.processed,
			rewardsRegistry.rejected,
			rewardsRegistry.faults,
			rewardsRegistry.amountsSum,
			rewardsRegistry.claims,
		)
	})
	return rewardsRegistry
}

func normalize(label string) string {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

func (m *RewardMetrics) ObserveProcessed(game string, amount uint64) {
	if m == nil {
		return
	}
	m.processed.WithLabelValues(normalize(game)).Inc()
	m.amountsSum.WithLabelValues(normalize(game)).Add(float64(amount))
}

func (m *RewardMetrics) ObserveRejected(game, reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(normalize(game), normalize(reason)).Inc()
}

func (m *RewardMetrics) ObserveFault(kind string) {
	if m == nil {
		return
	}
	m.faults.WithLabelValues(normalize(kind)).Inc()
}

func (m *RewardMetrics) ObserveClaim() {
	if m == nil {
		return
	}
	m.claims.Inc()
}
