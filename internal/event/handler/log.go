package handler

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/event"
)

// AddressChangedLogger пишет в лог смену адреса клиента.
type AddressChangedLogger struct {
	logger *log.Entry
}

// NewAddressChangedLogger создаёт обработчик customer.address_changed.
func NewAddressChangedLogger(logger *log.Entry) *AddressChangedLogger {
	if logger == nil {
		logger = log.WithField("component", "address-changed-logger")
	}
	return &AddressChangedLogger{logger: logger}
}

func (h *AddressChangedLogger) Name() string { return "address-changed-logger" }

func (h *AddressChangedLogger) Handle(e event.Event) error {
	data, ok := e.Payload().(event.AddressChangedData)
	if !ok {
		return unexpectedPayload(h.Name(), e)
	}
	h.logger.WithFields(log.Fields{
		"customer_id": data.ID,
		"event_type":  e.Type(),
	}).Infof("customer address: %s, %s changed to: %s", data.ID, data.Name, data.Address)
	return nil
}

// CustomerCreatedLogger пишет в лог регистрацию клиента.
// Несколько экземпляров с разными метками подписываются на одно событие.
type CustomerCreatedLogger struct {
	label  string
	logger *log.Entry
}

// NewCustomerCreatedLogger создаёт обработчик customer.created с меткой label.
func NewCustomerCreatedLogger(label string, logger *log.Entry) *CustomerCreatedLogger {
	if logger == nil {
		logger = log.WithField("component", "customer-created-logger")
	}
	return &CustomerCreatedLogger{label: label, logger: logger}
}

func (h *CustomerCreatedLogger) Name() string { return "customer-created-logger-" + h.label }

func (h *CustomerCreatedLogger) Handle(e event.Event) error {
	data, ok := e.Payload().(event.CustomerCreatedData)
	if !ok {
		return unexpectedPayload(h.Name(), e)
	}
	h.logger.WithField("customer_id", data.ID).
		Infof("this is the %s log of event: %s", h.label, e.Type())
	return nil
}

// ProductCreatedMailer уведомляет о новом товаре.
// Отправка письма заменена записью в лог: почтового транспорта в сервисе нет.
type ProductCreatedMailer struct {
	recipient string
	logger    *log.Entry
}

// NewProductCreatedMailer создаёт обработчик product.created.
func NewProductCreatedMailer(recipient string, logger *log.Entry) *ProductCreatedMailer {
	if logger == nil {
		logger = log.WithField("component", "product-created-mailer")
	}
	return &ProductCreatedMailer{recipient: recipient, logger: logger}
}

func (h *ProductCreatedMailer) Name() string { return "product-created-mailer" }

func (h *ProductCreatedMailer) Handle(e event.Event) error {
	data, ok := e.Payload().(event.ProductCreatedData)
	if !ok {
		return unexpectedPayload(h.Name(), e)
	}
	h.logger.WithFields(log.Fields{
		"product_id": data.ID,
		"recipient":  h.recipient,
	}).Infof("sending email to %s: product %q created", h.recipient, data.Name)
	return nil
}

func unexpectedPayload(handler string, e event.Event) error {
	return fmt.Errorf("%s: unexpected payload %T for %s", handler, e.Payload(), e.Type())
}
