package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/messaging/kafka"
)

// initKafkaProducer создаёт Kafka producer, если брокеры заданы.
// Возвращает nil, nil для пустого списка брокеров.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// initRelayConsumer создаёт consumer group, который передаёт события из topic в notifier.
func initRelayConsumer(cfg Config, notifier kafka.Notifier, dlq *kafka.Producer, logger *log.Entry) (*kafka.Consumer, error) {
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.KafkaBrokers,
		GroupID: cfg.KafkaConsumerGroup,
		Topics:  []string{cfg.KafkaTopic},
		DLQ:     dlq,
	}, kafka.EventRelay(notifier))
	if err != nil {
		return nil, err
	}

	logger.WithFields(log.Fields{
		"group": cfg.KafkaConsumerGroup,
		"topic": cfg.KafkaTopic,
	}).Info("kafka relay consumer initialized")
	return consumer, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
