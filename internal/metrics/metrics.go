package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application counters on a private registry so tests can
// build as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	ProjectMutations    *prometheus.CounterVec
	AuditAppendFailures prometheus.Counter
	AccessDenied        *prometheus.CounterVec
	RateLimited         prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ProjectMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "projecthub_project_mutations_total",
			Help: "Applied project mutations by action",
		}, []string{"action"}),
		AuditAppendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "projecthub_audit_append_failures_total",
			Help: "Audit entries lost after a successful project write",
		}),
		AccessDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "projecthub_access_denied_total",
			Help: "Requests rejected by the access policy, by operation",
		}, []string{"operation"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "projecthub_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncMutation(action string) {
	m.ProjectMutations.WithLabelValues(action).Inc()
}

func (m *Metrics) IncAuditFailure() {
	m.AuditAppendFailures.Inc()
}

func (m *Metrics) IncDenied(operation string) {
	m.AccessDenied.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncRateLimited() {
	m.RateLimited.Inc()
}
