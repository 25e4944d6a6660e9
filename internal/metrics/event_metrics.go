package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EventMetrics содержит метрики доставки доменных событий обработчикам.
type EventMetrics struct {
	// Счётчики по типу события
	notified        *prometheus.CounterVec
	handlerFailures *prometheus.CounterVec
	unhandled       *prometheus.CounterVec

	// Время полного fan-out одного события
	notifyDuration *prometheus.HistogramVec

	// Текущее число подписок
	registeredHandlers prometheus.Gauge
}

// NewEventMetrics создаёт метрики в DefaultRegisterer.
func NewEventMetrics() *EventMetrics {
	return NewEventMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewEventMetricsWithRegisterer создаёт метрики в заданном реестре (удобно для тестов).
func NewEventMetricsWithRegisterer(registerer prometheus.Registerer) *EventMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &EventMetrics{
		notified: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shop_events_notified_total",
			Help: "Total number of domain events dispatched to at least one handler",
		}, []string{"event_type"}),
		handlerFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shop_event_handler_failures_total",
			Help: "Total number of event handler invocations that returned an error or panicked",
		}, []string{"event_type"}),
		unhandled: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shop_events_unhandled_total",
			Help: "Total number of domain events without registered handlers",
		}, []string{"event_type"}),
		notifyDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "shop_event_notify_duration_seconds",
			Help:    "Duration of synchronous fan-out of a single event in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"event_type"}),
		registeredHandlers: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "shop_event_registered_handlers",
			Help: "Number of handlers currently registered in the dispatcher",
		}),
	}
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordNotified фиксирует доставку события и длительность fan-out.
func (m *EventMetrics) RecordNotified(eventType string, duration time.Duration) {
	m.notified.WithLabelValues(eventType).Inc()
	m.notifyDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

// RecordHandlerFailure увеличивает счётчик упавших обработчиков.
func (m *EventMetrics) RecordHandlerFailure(eventType string) {
	m.handlerFailures.WithLabelValues(eventType).Inc()
}

// RecordUnhandled фиксирует событие, для которого нет подписчиков.
func (m *EventMetrics) RecordUnhandled(eventType string) {
	m.unhandled.WithLabelValues(eventType).Inc()
}

// SetRegisteredHandlers выставляет текущее число подписок.
func (m *EventMetrics) SetRegisteredHandlers(count int) {
	m.registeredHandlers.Set(float64(count))
}
