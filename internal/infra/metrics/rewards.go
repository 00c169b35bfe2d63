package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		rewardsTotal,
		rewardPointsTotal,
		upgradesTotal,
		duplicateRewardsTotal,
	)
}

var (
	rewardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_rewards_total",
			Help: "Referral reward transactions by outcome (granted/skipped/duplicate/failed).",
		},
		[]string{"outcome"},
	)

	rewardPointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_points_total",
			Help: "Sum of points moved by reward transactions, in minor units, by currency and kind.",
		},
		[]string{"currency", "kind"}, // kind: credit|unfreeze
	)

	upgradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ambassador_upgrades_total",
			Help: "Successful tier upgrades by target rank.",
		},
		[]string{"rank"},
	)

	duplicateRewardsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duplicate_reward_invocations_total",
			Help: "Reward invocations rejected by the (order, kind) uniqueness marker.",
		},
	)
)

func IncReward(outcome string) {
	rewardsTotal.WithLabelValues(norm(outcome)).Inc()
}

func AddRewardPoints(currency, kind string, amount int64) {
	rewardPointsTotal.WithLabelValues(norm(currency), norm(kind)).Add(float64(amount))
}

func IncUpgrade(rank string) {
	upgradesTotal.WithLabelValues(norm(rank)).Inc()
}

func IncDuplicateReward() { duplicateRewardsTotal.Inc() }
