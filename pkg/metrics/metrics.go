package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TeamsCreated counts successfully created teams.
	TeamsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teamup_teams_created_total",
			Help: "Total number of teams created",
		},
	)

	// JoinAttempts counts invite redemptions by outcome
	// (success|team_full|already_in_team|not_found|error).
	JoinAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamup_join_attempts_total",
			Help: "Total number of team join attempts",
		},
		[]string{"result"},
	)

	// InviteRotations counts invite code rotations.
	InviteRotations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teamup_invite_rotations_total",
			Help: "Total number of invite code rotations",
		},
	)

	// TeamsDeleted counts teams torn down after their last member left.
	TeamsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teamup_teams_deleted_total",
			Help: "Total number of teams deleted after losing their last member",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teamup_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
