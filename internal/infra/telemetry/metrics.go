package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vegedex"

// DomainMetrics counts security-relevant outcomes. All methods are safe on a nil receiver.
type DomainMetrics struct {
	loginAttempts *prometheus.CounterVec
	auditEvents   *prometheus.CounterVec
	auditFailures *prometheus.CounterVec
	imageUploads  *prometheus.CounterVec
}

// NewDomainMetrics registers the collectors on reg; nil means the default registerer.
// Call it once per registry.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &DomainMetrics{
		loginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts partitioned by outcome.",
		}, []string{"outcome"}),
		auditEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "events_total",
			Help:      "Audit entries recorded partitioned by action.",
		}, []string{"action"}),
		auditFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "sink_failures_total",
			Help:      "Audit writes that failed partitioned by sink.",
		}, []string{"sink"}),
		imageUploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plants",
			Name:      "image_uploads_total",
			Help:      "Plant image uploads partitioned by result.",
		}, []string{"result"}),
	}
}

// ObserveLogin counts one login attempt.
func (m *DomainMetrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(outcome).Inc()
}

// ObserveAudit counts one recorded audit action.
func (m *DomainMetrics) ObserveAudit(action string) {
	if m == nil {
		return
	}
	m.auditEvents.WithLabelValues(action).Inc()
}

// ObserveAuditFailure counts one failed audit write.
func (m *DomainMetrics) ObserveAuditFailure(sink string) {
	if m == nil {
		return
	}
	m.auditFailures.WithLabelValues(sink).Inc()
}

// ObserveImageUpload counts one image upload attempt.
func (m *DomainMetrics) ObserveImageUpload(result string) {
	if m == nil {
		return
	}
	m.imageUploads.WithLabelValues(result).Inc()
}
