package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RewardsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "afnews_rewards_granted_total",
		Help: "Reward credits applied to activity balances, by reward type.",
	}, []string{"type"})

	ReferralBonuses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "afnews_referral_bonuses_total",
		Help: "Referral bonuses credited to referrers.",
	})

	WithdrawalsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "afnews_withdrawals_submitted_total",
		Help: "Withdrawal requests accepted, by balance source.",
	}, []string{"source"})

	WithdrawalsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "afnews_withdrawals_resolved_total",
		Help: "Withdrawal requests resolved by an administrator, by decision.",
	}, []string{"decision"})
)
