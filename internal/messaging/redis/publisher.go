package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/event"
)

const (
	// DefaultChannel - канал pub/sub для доменных событий.
	DefaultChannel = "shop.events"

	publishTimeout = 2 * time.Second
)

var errClientNotInitialized = errors.New("redis client is not initialized")

// Publisher рассылает JSON-конверты событий в канал Redis pub/sub.
// Реализует event.Handler и регистрируется в диспетчере как обычный подписчик.
type Publisher struct {
	client  *goredis.Client
	channel string
	logger  *log.Entry
}

// NewClient создаёт клиент Redis для адреса host:port.
func NewClient(addr string) *goredis.Client {
	return goredis.NewClient(&goredis.Options{Addr: addr})
}

// NewPublisher создаёт паблишер поверх готового клиента.
func NewPublisher(client *goredis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{
		client:  client,
		channel: channel,
		logger:  log.WithField("component", "redis-publisher"),
	}
}

// Name используется диспетчером в логах.
func (p *Publisher) Name() string { return "redis-publisher" }

// Handle публикует событие; число получивших подписчиков только логируется.
func (p *Publisher) Handle(e event.Event) error {
	if p == nil || p.client == nil {
		return errClientNotInitialized
	}

	payload, err := event.Marshal(e)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("redis publish %s: %w", e.Type(), err)
	}

	p.logger.WithFields(log.Fields{
		"channel":    p.channel,
		"event_type": e.Type(),
		"receivers":  receivers,
	}).Debug("event published to redis")
	return nil
}

// Ping проверяет доступность Redis.
func (p *Publisher) Ping(ctx context.Context) error {
	if p == nil || p.client == nil {
		return errClientNotInitialized
	}
	return p.client.Ping(ctx).Err()
}

// Close закрывает клиент.
func (p *Publisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

var _ event.Handler = (*Publisher)(nil)
