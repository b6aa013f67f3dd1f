package physics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics Prometheus-метрики физического шага
type Metrics struct {
	tickDuration     prometheus.Histogram
	collisions       *prometheus.CounterVec
	callbackFailures *prometheus.CounterVec
	activeEntities   prometheus.Gauge
	indexedObjects   prometheus.Gauge
}

// NewMetrics создаёт метрики и регистрирует их в reg.
// При reg == nil метрики работают, но нигде не публикуются (удобно для тестов).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sim",
			Subsystem: "physics",
			Name:      "tick_duration_seconds",
			Help:      "Длительность одного физического шага.",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033},
		}),
		collisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sim",
			Subsystem: "physics",
			Name:      "collisions_total",
			Help:      "Обнаруженные столкновения по парам групп.",
		}, []string{"self", "other"}),
		callbackFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sim",
			Subsystem: "physics",
			Name:      "callback_failures_total",
			Help:      "Ошибки и паники в обработчиках групп столкновений.",
		}, []string{"group"}),
		activeEntities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sim",
			Subsystem: "physics",
			Name:      "active_entities",
			Help:      "Количество активных сущностей после шага.",
		}),
		indexedObjects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sim",
			Subsystem: "physics",
			Name:      "indexed_objects",
			Help:      "Количество объектов в пространственной сетке.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.tickDuration, m.collisions, m.callbackFailures, m.activeEntities, m.indexedObjects)
	}
	return m
}
