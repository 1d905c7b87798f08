package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ExperimentDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "format_experiment_duration_seconds",
			Help:    "End-to-end experiment duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"data_format"},
	)

	ExperimentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "format_experiment_total",
			Help: "Total number of experiment runs",
		},
		[]string{"data_format", "status"},
	)

	TokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "format_experiment_tokens_used",
			Help: "Total model tokens consumed by experiments",
		},
		[]string{"model", "type"},
	)

	ComparisonTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "format_comparison_total",
			Help: "Total number of comparison runs",
		},
		[]string{"mode"},
	)

	AnalyticalQueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "format_analytical_query_total",
			Help: "Total ad hoc SQL queries executed",
		},
		[]string{"status"},
	)
)

func Init() {
	prometheus.MustRegister(ExperimentDuration)
	prometheus.MustRegister(ExperimentTotal)
	prometheus.MustRegister(TokensUsed)
	prometheus.MustRegister(ComparisonTotal)
	prometheus.MustRegister(AnalyticalQueryTotal)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
