package memory

import (
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// orderRepositoryInMemory - простая in-memory реализация OrderRepository.
// Позиции хранятся вместе с заказом, поэтому Update атомарно заменяет
// набор позиций: новые добавляются, отсутствующие удаляются.
// ID позиции глобален: позицию, принадлежащую другому заказу, забрать нельзя.
type orderRepositoryInMemory struct {
	mu        sync.Mutex
	table     *table[domain.Order]
	itemOwner map[string]string
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		table:     newTable(domain.Order.Clone, domain.ErrOrderNotFound, domain.ErrOrderAlreadyExists),
		itemOwner: make(map[string]string),
	}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepositoryInMemory) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.table.get(order.ID); err == nil {
		return domain.ErrOrderAlreadyExists
	}
	if err := r.checkOwnership(order); err != nil {
		return err
	}
	if err := r.table.insert(order.ID, order); err != nil {
		return err
	}
	r.claimItems(order)
	return nil
}

// Update заменяет заказ и его позиции.
func (r *orderRepositoryInMemory) Update(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, err := r.table.get(order.ID)
	if err != nil {
		return err
	}
	if err := r.checkOwnership(order); err != nil {
		return err
	}
	if err := r.table.replace(order.ID, order); err != nil {
		return err
	}
	for _, item := range previous.Items {
		delete(r.itemOwner, item.ID)
	}
	r.claimItems(order)
	return nil
}

func (r *orderRepositoryInMemory) checkOwnership(order domain.Order) error {
	for _, item := range order.Items {
		if owner, ok := r.itemOwner[item.ID]; ok && owner != order.ID {
			return fmt.Errorf("order item %s: %w", item.ID, domain.ErrItemConflict)
		}
	}
	return nil
}

func (r *orderRepositoryInMemory) claimItems(order domain.Order) {
	for _, item := range order.Items {
		r.itemOwner[item.ID] = order.ID
	}
}

// Find возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Find(id string) (domain.Order, error) {
	return r.table.get(id)
}

// FindAll возвращает все заказы в порядке создания.
func (r *orderRepositoryInMemory) FindAll() ([]domain.Order, error) {
	return r.table.all(), nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
