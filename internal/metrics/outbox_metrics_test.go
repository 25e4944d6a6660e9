package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOutboxMetrics_RecordPublish(t *testing.T) {
	m := NewOutboxMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordPublish(OutboxResultSent)
	m.RecordPublish(OutboxResultSent)
	m.RecordPublish(OutboxResultRetry)

	if got := testutil.ToFloat64(m.publishAttempts.WithLabelValues(OutboxResultSent)); got != 2 {
		t.Fatalf("expected 2 sent attempts, got %v", got)
	}
	if got := testutil.ToFloat64(m.publishAttempts.WithLabelValues(OutboxResultRetry)); got != 1 {
		t.Fatalf("expected 1 retry attempt, got %v", got)
	}
}

func TestOutboxMetrics_SetBacklog(t *testing.T) {
	m := NewOutboxMetricsWithRegisterer(prometheus.NewRegistry())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		pending     int
		oldest      time.Time
		wantPending float64
		wantAge     float64
	}{
		{name: "empty backlog", pending: 0, oldest: now.Add(-time.Minute), wantPending: 0, wantAge: 0},
		{name: "pending without timestamp", pending: 3, wantPending: 3, wantAge: 0},
		{name: "pending records", pending: 2, oldest: now.Add(-90 * time.Second), wantPending: 2, wantAge: 90},
		{name: "clock skew", pending: 1, oldest: now.Add(time.Minute), wantPending: 1, wantAge: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.SetBacklog(tt.pending, tt.oldest, now)
			if got := testutil.ToFloat64(m.pendingRecords); got != tt.wantPending {
				t.Fatalf("pending: expected %v, got %v", tt.wantPending, got)
			}
			if got := testutil.ToFloat64(m.oldestPendingAge); got != tt.wantAge {
				t.Fatalf("age: expected %v, got %v", tt.wantAge, got)
			}
		})
	}
}
