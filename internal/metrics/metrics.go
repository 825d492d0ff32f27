package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelMethod  = "method"
	LabelPath    = "path"
	LabelStatus  = "status"
	LabelOutcome = "outcome"
	LabelSource  = "source"
	LabelTarget  = "target"
	LabelType    = "type"
)

// outcome 取值
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeInvalid = "invalid"
)

var httpLatencyBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcadepress_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arcadepress_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: httpLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)
)

// Business Metrics
var (
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcadepress_logins_total",
			Help: "GitHub sign-in attempts by outcome",
		},
		[]string{LabelOutcome},
	)

	ProfileSyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcadepress_profile_syncs_total",
			Help: "Profile syncs against the identity provider by outcome",
		},
		[]string{LabelOutcome},
	)

	GameIngestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcadepress_game_ingestions_total",
			Help: "Game submissions by source kind and outcome",
		},
		[]string{LabelSource, LabelOutcome},
	)

	ReactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcadepress_reactions_total",
			Help: "Reactions recorded by target and type",
		},
		[]string{LabelTarget, LabelType},
	)
)
