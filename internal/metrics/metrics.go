package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// GatewayRequestsTotal conta chamadas ao backend por operação e resultado.
	GatewayRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "svca",
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Total de chamadas ao backend REST, por operação e resultado.",
	}, []string{"operation", "result"})

	// GatewayRequestDurationSeconds mede a latência das chamadas ao backend.
	GatewayRequestDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "svca",
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Latência das chamadas ao backend REST.",
		Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
	}, []string{"operation"})

	// GeocodeRequestsTotal conta consultas ao Nominatim por resultado.
	GeocodeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "svca",
		Subsystem: "geocode",
		Name:      "requests_total",
		Help:      "Total de consultas de geocodificação, por resultado.",
	}, []string{"result"})

	// GuardDecisionsTotal conta decisões do navegador por estado final.
	GuardDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "svca",
		Subsystem: "guard",
		Name:      "decisions_total",
		Help:      "Decisões de navegação por estado final.",
	}, []string{"state"})

	// ForcedLogoutsTotal conta sessões encerradas por rejeição do backend.
	ForcedLogoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "svca",
		Subsystem: "session",
		Name:      "forced_logouts_total",
		Help:      "Sessões encerradas localmente após 401/403 do backend.",
	})
)

// Register registra os coletores no registry padrão uma única vez.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			GatewayRequestsTotal,
			GatewayRequestDurationSeconds,
			GeocodeRequestsTotal,
			GuardDecisionsTotal,
			ForcedLogoutsTotal,
		)
	})
}
