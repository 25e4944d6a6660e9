package checkout

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// OrderService оформляет заказы и начисляет бонусные баллы.
type OrderService struct {
	orders    domain.OrderRepository
	customers domain.CustomerRepository
	notifier  Notifier
	logger    *log.Entry
	newID     func() string
}

// NewOrderService конструирует сервис с зависимостями.
func NewOrderService(
	orders domain.OrderRepository,
	customers domain.CustomerRepository,
	notifier Notifier,
	logger *log.Entry,
) *OrderService {
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}
	return &OrderService{
		orders:    orders,
		customers: customers,
		notifier:  notifier,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// PlaceOrder создаёт заказ для клиента, начисляет половину суммы в баллах
// и публикует order.placed. Позиции без id получают uuid.
//
// Баллы сохраняются до заказа; если заказ записать не удалось, начисление
// откатывается. Заказ с суммой меньше двух минорных единиц баллов не даёт.
//
// Ошибка уведомления возвращается вместе с уже сохранённым заказом.
func (s *OrderService) PlaceOrder(customerID string, items []domain.OrderItem) (domain.Order, error) {
	if len(items) == 0 {
		return domain.Order{}, domain.ErrItemsRequired
	}

	customer, err := s.customers.Find(customerID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("load customer %s: %w", customerID, err)
	}

	prepared := make([]domain.OrderItem, len(items))
	copy(prepared, items)
	for i := range prepared {
		if prepared[i].ID == "" {
			prepared[i].ID = s.newID()
		}
	}

	order, err := domain.NewOrder(s.newID(), customer.ID, prepared)
	if err != nil {
		return domain.Order{}, err
	}
	credited := order.Total() / 2
	previous := customer.Clone()
	if credited > 0 {
		if err := customer.AddRewardPoints(credited); err != nil {
			return domain.Order{}, err
		}
		if err := s.customers.Update(customer); err != nil {
			return domain.Order{}, fmt.Errorf("update customer reward points: %w", err)
		}
	}

	if err := s.orders.Create(order); err != nil {
		err = fmt.Errorf("create order: %w", err)
		if credited > 0 {
			if restoreErr := s.customers.Update(previous); restoreErr != nil {
				s.logger.WithError(restoreErr).WithField("customer_id", customer.ID).
					Error("failed to revert reward points after order create failure")
				err = errors.Join(err, fmt.Errorf("revert reward points: %w", restoreErr))
			}
		}
		return domain.Order{}, err
	}

	logger := s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": customer.ID,
		"total_minor": order.Total(),
	})
	logger.Info("order placed")

	if err := s.notifier.Notify(orderPlaced(order)); err != nil {
		logger.WithError(err).Warn("order placed notification failed")
		return order, err
	}
	return order, nil
}

// Total возвращает сумму всех заказов в минорных единицах.
func (s *OrderService) Total(orders []domain.Order) int64 {
	var total int64
	for _, o := range orders {
		total += o.Total()
	}
	return total
}
