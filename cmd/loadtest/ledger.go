package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/event"
)

// scenarioMethod - псевдометод, под которым учитывается сценарий целиком.
const scenarioMethod = "scenario"

// outcomeClass - класс исхода вызова сервиса.
type outcomeClass string

const (
	classOK           outcomeClass = "ok"
	classNotFound     outcomeClass = "not_found"
	classConflict     outcomeClass = "already_exists"
	classInvalid      outcomeClass = "invalid"
	classNotifyFailed outcomeClass = "notify_failed"
	classError        outcomeClass = "error"
)

// classify сводит ошибку сервиса к классу исхода.
// Ошибка уведомления важнее причины внутри неё: сущность уже сохранена.
func classify(err error) outcomeClass {
	var notifyErr *event.NotifyError
	switch {
	case err == nil:
		return classOK
	case errors.As(err, &notifyErr):
		return classNotifyFailed
	case domain.IsNotFound(err):
		return classNotFound
	case domain.IsAlreadyExists(err):
		return classConflict
	case errors.Is(err, domain.ErrItemsRequired),
		errors.Is(err, domain.ErrItemQtyInvalid),
		errors.Is(err, domain.ErrItemPriceInvalid),
		errors.Is(err, domain.ErrNameRequired),
		errors.Is(err, domain.ErrRewardPointsInvalid),
		errors.Is(err, domain.ErrAddressRequired):
		return classInvalid
	default:
		return classError
	}
}

// classStats - итог одного класса исходов метода. Квантили приблизительные.
type classStats struct {
	Count  int64   `json:"count"`
	MeanMs float64 `json:"mean_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// methodReport раскладывает вызовы метода по классам исходов.
type methodReport map[outcomeClass]classStats

func (m methodReport) calls() int64 {
	var total int64
	for _, stats := range m {
		total += stats.Count
	}
	return total
}

func (m methodReport) failed() int64 {
	return m.calls() - m[classOK].Count
}

type report struct {
	Mode       loadMode                `json:"mode"`
	Target     string                  `json:"target"`
	StartedAt  time.Time               `json:"started_at"`
	Elapsed    float64                 `json:"elapsed_seconds"`
	Scenarios  int64                   `json:"scenarios"`
	Failed     int64                   `json:"failed"`
	Throughput float64                 `json:"scenarios_per_second"`
	Methods    map[string]methodReport `json:"methods"`
}

// ledger копит длительности вызовов в summary с метками method и outcome
// на собственном реестре, чтобы не смешиваться с метриками приложения.
type ledger struct {
	registry  *prometheus.Registry
	durations *prometheus.SummaryVec
}

func newLedger() *ledger {
	durations := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace:  "shop_loadtest",
		Name:       "call_duration_seconds",
		Help:       "Service call latency during a load run by method and outcome class.",
		Objectives: map[float64]float64{0.5: 0.05, 0.95: 0.01, 0.99: 0.001},
		MaxAge:     time.Hour,
	}, []string{"method", "outcome"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(durations)
	return &ledger{registry: registry, durations: durations}
}

func (l *ledger) observe(method string, took time.Duration, err error) outcomeClass {
	class := classify(err)
	l.durations.WithLabelValues(method, string(class)).Observe(took.Seconds())
	return class
}

// methods собирает накопленное из реестра.
func (l *ledger) methods() (map[string]methodReport, error) {
	families, err := l.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather load metrics: %w", err)
	}

	result := make(map[string]methodReport)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			method, class := labelsOf(metric)
			if result[method] == nil {
				result[method] = make(methodReport)
			}
			result[method][class] = statsOf(metric.GetSummary())
		}
	}
	return result, nil
}

func labelsOf(metric *dto.Metric) (string, outcomeClass) {
	var method string
	var class outcomeClass
	for _, pair := range metric.GetLabel() {
		switch pair.GetName() {
		case "method":
			method = pair.GetValue()
		case "outcome":
			class = outcomeClass(pair.GetValue())
		}
	}
	return method, class
}

func statsOf(summary *dto.Summary) classStats {
	stats := classStats{Count: int64(summary.GetSampleCount())}
	if stats.Count > 0 {
		stats.MeanMs = summary.GetSampleSum() / float64(stats.Count) * 1000
	}
	for _, q := range summary.GetQuantile() {
		ms := q.GetValue() * 1000
		if math.IsNaN(ms) {
			continue
		}
		switch q.GetQuantile() {
		case 0.5:
			stats.P50Ms = ms
		case 0.95:
			stats.P95Ms = ms
		case 0.99:
			stats.P99Ms = ms
		}
	}
	return stats
}

func (l *ledger) report(cfg config, started time.Time, elapsed time.Duration) (report, error) {
	methods, err := l.methods()
	if err != nil {
		return report{}, err
	}

	scenarios := methods[scenarioMethod]
	result := report{
		Mode:      cfg.mode,
		Target:    cfg.target(),
		StartedAt: started.UTC(),
		Elapsed:   elapsed.Seconds(),
		Scenarios: scenarios.calls(),
		Failed:    scenarios.failed(),
		Methods:   methods,
	}
	if elapsed > 0 {
		result.Throughput = float64(result.Scenarios) / elapsed.Seconds()
	}
	return result, nil
}

// renderReport печатает сводку и таблицу метод/исход.
func renderReport(w io.Writer, r report) error {
	if _, err := fmt.Fprintf(w, "mode=%s target=%s scenarios=%d failed=%d elapsed=%.2fs rate=%.2f/s\n",
		r.Mode, r.Target, r.Scenarios, r.Failed, r.Elapsed, r.Throughput); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "METHOD\tOUTCOME\tCOUNT\tMEAN_MS\tP50_MS\tP95_MS\tP99_MS")
	for _, method := range slices.Sorted(maps.Keys(r.Methods)) {
		classes := r.Methods[method]
		for _, class := range slices.Sorted(maps.Keys(classes)) {
			s := classes[class]
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n",
				method, class, s.Count, s.MeanMs, s.P50Ms, s.P95Ms, s.P99Ms)
		}
	}
	return tw.Flush()
}
