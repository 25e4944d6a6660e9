package kafka

import (
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

func TestOutboxPublisher_Publish(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	payload := `{"event_type":"order.placed","aggregate_id":"order-123"}`
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		value, _ := msg.Value.Encode()
		if string(value) != payload {
			return errors.New("payload must be passed through unchanged")
		}
		key, _ := msg.Key.Encode()
		if string(key) != "order-123" {
			return errors.New("aggregate id must be the partition key")
		}
		found := map[string]string{}
		for _, h := range msg.Headers {
			found[string(h.Key)] = string(h.Value)
		}
		if found[HeaderEventType] != "order.placed" || found[HeaderAggregateType] != "order" || found[HeaderOutboxID] != "outbox-1" {
			return errors.New("missing outbox headers")
		}
		return nil
	})

	publisher := NewOutboxPublisher(NewProducerFromSync(mockProducer), "")
	if publisher.topic != TopicDomainEvents {
		t.Fatalf("expected default topic, got %s", publisher.topic)
	}

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: "order",
		AggregateID:   "order-123",
		EventType:     "order.placed",
		Payload:       []byte(payload),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_KeyFallsBackToMessageID(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, _ := msg.Key.Encode()
		if string(key) != "outbox-9" {
			return errors.New("expected message id as key")
		}
		return nil
	})

	publisher := NewOutboxPublisher(NewProducerFromSync(mockProducer), "custom.topic")
	if err := publisher.Publish(domain.OutboxMessage{ID: "outbox-9", Payload: []byte(`{}`)}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishProducerError(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewOutboxPublisher(NewProducerFromSync(mockProducer), TopicDomainEvents)
	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-2",
		AggregateType: "customer",
		AggregateID:   "customer-1",
		EventType:     "customer.created",
		Payload:       []byte(`{}`),
	})
	if err == nil {
		t.Fatal("expected publish error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishNilProducer(t *testing.T) {
	t.Parallel()

	publisher := NewOutboxPublisher(nil, TopicDomainEvents)
	if err := publisher.Publish(domain.OutboxMessage{ID: "outbox-3"}); !errors.Is(err, errPublisherNotInitialized) {
		t.Fatalf("expected errPublisherNotInitialized, got %v", err)
	}
}
