package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/event"
	"github.com/vladislavdragonenkov/shop/internal/event/handler"
)

// registerNotificationHandlers подписывает обработчики-уведомления:
// журнал смены адреса, два журнала регистрации клиента и письмо о новом товаре.
func registerNotificationHandlers(d *event.Dispatcher, cfg Config, logger *log.Entry) {
	d.Register(event.TypeCustomerAddressChanged, handler.NewAddressChangedLogger(logger.WithField("handler", "address-changed")))
	d.Register(event.TypeCustomerCreated, handler.NewCustomerCreatedLogger("first", logger.WithField("handler", "customer-created")))
	d.Register(event.TypeCustomerCreated, handler.NewCustomerCreatedLogger("second", logger.WithField("handler", "customer-created")))
	d.Register(event.TypeProductCreated, handler.NewProductCreatedMailer(cfg.NotifyEmail, logger.WithField("handler", "product-mailer")))
}

// registerForAllTypes подписывает h на каждый известный тип события.
func registerForAllTypes(d *event.Dispatcher, h event.Handler) {
	for _, t := range event.Types() {
		d.Register(t, h)
	}
}

// registerOutbox сохраняет каждое событие в outbox для публикации в Kafka.
func registerOutbox(d *event.Dispatcher, repo domain.OutboxRepository) {
	registerForAllTypes(d, handler.NewOutboxWriter(repo))
}
