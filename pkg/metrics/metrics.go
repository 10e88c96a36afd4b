package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los contadores de negocio del ciclo de vida de tenants y facturación.
// Usa un registry propio para que los tests puedan crear instancias independientes.
type Metrics struct {
	registry *prometheus.Registry

	TenantRegistrations *prometheus.CounterVec
	Invitations         *prometheus.CounterVec
	WebhookEvents       *prometheus.CounterVec
	Compensations       *prometheus.CounterVec
}

// New crea y registra las métricas bajo el namespace indicado.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		TenantRegistrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenant_registrations_total",
			Help:      "Registros de organizaciones por resultado",
		}, []string{"result"}),
		Invitations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invitations_total",
			Help:      "Invitaciones emitidas o aceptadas por resultado",
		}, []string{"operation", "result"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "billing_webhook_events_total",
			Help:      "Eventos de facturación recibidos por tipo y resultado",
		}, []string{"event_name", "result"}),
		Compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_compensations_total",
			Help:      "Pasos compensados tras un fallo, por resultado de la compensación",
		}, []string{"step", "result"}),
	}
	reg.MustRegister(
		m.TenantRegistrations,
		m.Invitations,
		m.WebhookEvents,
		m.Compensations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler expone el registry en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry devuelve el registry interno.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
