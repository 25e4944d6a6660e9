package memory

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

func TestOutboxRepository_EnqueueAndPull(t *testing.T) {
	repo := NewOutboxRepository()

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "order.placed",
		Payload:       []byte(`{"order_id":"order-1"}`),
	}

	saved, err := repo.Enqueue(msg)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected generated id")
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending message, got %d", len(pending))
	}
	if pending[0].ID != saved.ID {
		t.Fatalf("expected same message id, got %s", pending[0].ID)
	}
}

func TestOutboxRepository_PullPendingKeepsOrderAndLimit(t *testing.T) {
	repo := NewOutboxRepository()
	for _, id := range []string{"c", "a", "b"} {
		if _, err := repo.Enqueue(domain.OutboxMessage{ID: id}); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	pending, err := repo.PullPending(2)
	if err != nil {
		t.Fatalf("pull pending failed: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "c" || pending[1].ID != "a" {
		t.Fatalf("unexpected pending order: %+v", pending)
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 3 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestOutboxRepository_MarkSentAndFailed(t *testing.T) {
	repo := NewOutboxRepository()

	saved, err := repo.Enqueue(domain.OutboxMessage{AggregateType: "order"})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if err := repo.MarkSent(saved.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}
	if got := repo.AllPending(); len(got) != 0 {
		t.Fatalf("expected no pending messages, got %d", len(got))
	}

	if err := repo.MarkFailed(saved.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	if err := repo.MarkFailed("missing"); err == nil {
		t.Fatal("expected error for missing record")
	}

	stats, _ := repo.Stats()
	if stats.PendingCount != 0 || !stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats for empty backlog: %+v", stats)
	}
}

func TestOutboxRepository_DeleteProcessed(t *testing.T) {
	repo := NewOutboxRepository()

	sent, _ := repo.Enqueue(domain.OutboxMessage{ID: "sent"})
	failed, _ := repo.Enqueue(domain.OutboxMessage{ID: "failed"})
	if _, err := repo.Enqueue(domain.OutboxMessage{ID: "pending"}); err != nil {
		t.Fatalf("enqueue pending: %v", err)
	}
	if err := repo.MarkSent(sent.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repo.MarkFailed(failed.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	deleted, err := repo.DeleteProcessed(time.Now().UTC().Add(-time.Hour), 10)
	if err != nil || deleted != 0 {
		t.Fatalf("expected nothing older than an hour, got %d (%v)", deleted, err)
	}

	cutoff := time.Now().UTC().Add(time.Second)
	deleted, err = repo.DeleteProcessed(cutoff, 1)
	if err != nil || deleted != 1 {
		t.Fatalf("expected one deleted record, got %d (%v)", deleted, err)
	}
	deleted, err = repo.DeleteProcessed(cutoff, 10)
	if err != nil || deleted != 1 {
		t.Fatalf("expected second deleted record, got %d (%v)", deleted, err)
	}

	if got := repo.AllPending(); len(got) != 1 || got[0].ID != "pending" {
		t.Fatalf("pending record must survive cleanup: %+v", got)
	}
	if deleted, _ := repo.DeleteProcessed(cutoff, 0); deleted != 0 {
		t.Fatalf("zero limit must not delete, got %d", deleted)
	}
}
