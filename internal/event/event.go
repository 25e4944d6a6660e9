package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type - явный дискриминант доменного события.
type Type string

const (
	TypeCustomerCreated        Type = "customer.created"
	TypeCustomerAddressChanged Type = "customer.address_changed"
	TypeProductCreated         Type = "product.created"
	TypeOrderPlaced            Type = "order.placed"
)

// Types возвращает все известные типы событий в фиксированном порядке.
func Types() []Type {
	return []Type{TypeCustomerCreated, TypeCustomerAddressChanged, TypeProductCreated, TypeOrderPlaced}
}

// Valid проверяет, что тип относится к известным событиям.
func (t Type) Valid() bool {
	switch t {
	case TypeCustomerCreated, TypeCustomerAddressChanged, TypeProductCreated, TypeOrderPlaced:
		return true
	default:
		return false
	}
}

// AggregateType возвращает тип агрегата, к которому относится событие.
func (t Type) AggregateType() string {
	switch t {
	case TypeCustomerCreated, TypeCustomerAddressChanged:
		return "customer"
	case TypeProductCreated:
		return "product"
	case TypeOrderPlaced:
		return "order"
	default:
		return "unknown"
	}
}

// Event - неизменяемая запись о произошедшем в домене.
type Event interface {
	Type() Type
	AggregateID() string
	OccurredAt() time.Time
	Payload() any
}

// Record - типизированное событие с полезной нагрузкой T.
type Record[T any] struct {
	kind        Type
	aggregateID string
	occurredAt  time.Time
	data        T
}

func (r Record[T]) Type() Type            { return r.kind }
func (r Record[T]) AggregateID() string   { return r.aggregateID }
func (r Record[T]) OccurredAt() time.Time { return r.occurredAt }
func (r Record[T]) Payload() any          { return r.data }

// Data возвращает полезную нагрузку без приведения типов.
func (r Record[T]) Data() T { return r.data }

var now = func() time.Time { return time.Now().UTC() }

func newRecord[T any](kind Type, aggregateID string, data T) Record[T] {
	return Record[T]{
		kind:        kind,
		aggregateID: aggregateID,
		occurredAt:  now(),
		data:        data,
	}
}

// Address - адрес в полезной нагрузке событий клиента.
type Address struct {
	Street string `json:"street"`
	Number int    `json:"number"`
	Zip    string `json:"zip"`
	City   string `json:"city"`
}

func (a Address) String() string {
	return fmt.Sprintf("%s, %d, %s %s", a.Street, a.Number, a.Zip, a.City)
}

// CustomerCreatedData - нагрузка события регистрации клиента.
type CustomerCreatedData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AddressChangedData - нагрузка события смены адреса.
type AddressChangedData struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address Address `json:"address"`
}

// ProductCreatedData - нагрузка события создания товара.
type ProductCreatedData struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceMinor int64  `json:"price_minor"`
}

// OrderPlacedItem - позиция в событии оформления заказа.
type OrderPlacedItem struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Quantity   int32  `json:"quantity"`
	PriceMinor int64  `json:"price_minor"`
}

// OrderPlacedData - нагрузка события оформления заказа.
type OrderPlacedData struct {
	OrderID    string            `json:"order_id"`
	CustomerID string            `json:"customer_id"`
	TotalMinor int64             `json:"total_minor"`
	Items      []OrderPlacedItem `json:"items"`
}

// NewCustomerCreated создаёт событие регистрации клиента.
func NewCustomerCreated(data CustomerCreatedData) Record[CustomerCreatedData] {
	return newRecord(TypeCustomerCreated, data.ID, data)
}

// NewCustomerAddressChanged создаёт событие смены адреса клиента.
func NewCustomerAddressChanged(data AddressChangedData) Record[AddressChangedData] {
	return newRecord(TypeCustomerAddressChanged, data.ID, data)
}

// NewProductCreated создаёт событие появления товара в каталоге.
func NewProductCreated(data ProductCreatedData) Record[ProductCreatedData] {
	return newRecord(TypeProductCreated, data.ID, data)
}

// NewOrderPlaced создаёт событие оформления заказа.
func NewOrderPlaced(data OrderPlacedData) Record[OrderPlacedData] {
	return newRecord(TypeOrderPlaced, data.OrderID, data)
}

// Envelope - сериализованное представление события для брокеров и outbox.
type Envelope struct {
	EventType   Type            `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

// Marshal сериализует событие в JSON-конверт.
func Marshal(e Event) ([]byte, error) {
	if e == nil {
		return nil, ErrNilEvent
	}
	payload, err := json.Marshal(e.Payload())
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", e.Type(), err)
	}
	return json.Marshal(Envelope{
		EventType:   e.Type(),
		AggregateID: e.AggregateID(),
		OccurredAt:  e.OccurredAt(),
		Payload:     payload,
	})
}

// Unmarshal восстанавливает типизированное событие из JSON-конверта.
func Unmarshal(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	switch env.EventType {
	case TypeCustomerCreated:
		return decode[CustomerCreatedData](env)
	case TypeCustomerAddressChanged:
		return decode[AddressChangedData](env)
	case TypeProductCreated:
		return decode[ProductCreatedData](env)
	case TypeOrderPlaced:
		return decode[OrderPlacedData](env)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.EventType)
	}
}

func decode[T any](env Envelope) (Event, error) {
	var data T
	if err := json.Unmarshal(env.Payload, &data); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return Record[T]{
		kind:        env.EventType,
		aggregateID: env.AggregateID,
		occurredAt:  env.OccurredAt,
		data:        data,
	}, nil
}
