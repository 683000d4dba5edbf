package planner

import "github.com/prometheus/client_golang/prometheus"

// Prometheus planner metrics.
var (
	plansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ponplan_plans_total",
			Help: "Topology plans computed, by PON type and shape.",
		},
		[]string{"pon_type", "shape"},
	)
	validationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ponplan_validations_total",
			Help: "Topology validations run, by outcome.",
		},
		[]string{"result"},
	)
	capacityWarningsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ponplan_capacity_warnings_total",
			Help: "Devices attached to a parent that has no free port left.",
		},
	)
)

func init() {
	prometheus.MustRegister(plansTotal)
	prometheus.MustRegister(validationsTotal)
	prometheus.MustRegister(capacityWarningsTotal)
}

func observeValidation(res bool) {
	if res {
		validationsTotal.WithLabelValues("valid").Inc()
		return
	}
	validationsTotal.WithLabelValues("invalid").Inc()
}
