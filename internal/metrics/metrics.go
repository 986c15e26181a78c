package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationsTotal counts engine calls by provider and outcome.
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bananalab_generations_total",
			Help: "Total number of generation calls",
		},
		[]string{"provider", "outcome"},
	)

	// GenerationDuration tracks engine call latency per operation mode.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bananalab_generation_duration_seconds",
			Help:    "Generation call latency in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"provider", "operation"},
	)

	// GenerationCost accumulates estimated spend in USD.
	GenerationCost = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bananalab_generation_cost_dollars_total",
			Help: "Cumulative estimated generation cost in USD",
		},
	)

	// BatchItemsTotal counts orchestrated work items by phase and outcome.
	BatchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bananalab_batch_items_total",
			Help: "Total number of batch work items processed",
		},
		[]string{"phase", "outcome"},
	)

	// BatchRetriesTotal counts outer-retry attempts by phase.
	BatchRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bananalab_batch_retries_total",
			Help: "Total number of outer retry attempts",
		},
		[]string{"phase"},
	)
)
