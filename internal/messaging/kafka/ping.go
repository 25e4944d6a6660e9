package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

const pingTimeout = 2 * time.Second

var errNoBrokers = errors.New("kafka brokers are not configured")

// PingBrokers проверяет, что хотя бы один broker отдаёт метаданные кластера.
func PingBrokers(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return errNoBrokers
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	config := sarama.NewConfig()
	config.Net.DialTimeout = pingTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left > 0 && left < pingTimeout {
			config.Net.DialTimeout = left
		}
	}
	config.Metadata.Retry.Max = 0
	config.Metadata.Full = false

	client, err := sarama.NewClient(brokers, config)
	if err != nil {
		return fmt.Errorf("connect kafka brokers: %w", err)
	}
	return client.Close()
}
