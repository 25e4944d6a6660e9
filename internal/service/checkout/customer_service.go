package checkout

import (
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/event"
)

// CustomerService регистрирует клиентов и меняет их адреса.
type CustomerService struct {
	customers domain.CustomerRepository
	notifier  Notifier
	logger    *log.Entry
}

// NewCustomerService создаёт сервис клиентов поверх репозитория и диспетчера событий.
func NewCustomerService(customers domain.CustomerRepository, notifier Notifier, logger *log.Entry) *CustomerService {
	if logger == nil {
		logger = log.WithField("component", "customer-service")
	}
	return &CustomerService{customers: customers, notifier: notifier, logger: logger}
}

// Register сохраняет клиента и публикует customer.created.
// Пустой id заменяется на uuid; адрес необязателен.
func (s *CustomerService) Register(id, name string, address *domain.Address) (domain.Customer, error) {
	if id == "" {
		id = uuid.NewString()
	}

	customer, err := domain.NewCustomer(id, name)
	if err != nil {
		return domain.Customer{}, err
	}
	if address != nil {
		if err := customer.ChangeAddress(*address); err != nil {
			return domain.Customer{}, err
		}
	}

	if err := s.customers.Create(customer); err != nil {
		return domain.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	s.logger.WithField("customer_id", customer.ID).Info("customer registered")

	err = s.notifier.Notify(event.NewCustomerCreated(event.CustomerCreatedData{
		ID:   customer.ID,
		Name: customer.Name,
	}))
	return customer, err
}

// ChangeAddress меняет адрес клиента и публикует customer.address_changed.
func (s *CustomerService) ChangeAddress(id string, address domain.Address) (domain.Customer, error) {
	customer, err := s.customers.Find(id)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("load customer %s: %w", id, err)
	}
	if err := customer.ChangeAddress(address); err != nil {
		return domain.Customer{}, err
	}
	if err := s.customers.Update(customer); err != nil {
		return domain.Customer{}, fmt.Errorf("update customer: %w", err)
	}

	err = s.notifier.Notify(event.NewCustomerAddressChanged(event.AddressChangedData{
		ID:      customer.ID,
		Name:    customer.Name,
		Address: eventAddress(address),
	}))
	return customer, err
}

// Activate включает клиента; требует заданного адреса.
func (s *CustomerService) Activate(id string) (domain.Customer, error) {
	customer, err := s.customers.Find(id)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("load customer %s: %w", id, err)
	}
	if err := customer.Activate(); err != nil {
		return domain.Customer{}, err
	}
	if err := s.customers.Update(customer); err != nil {
		return domain.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	return customer, nil
}

// Find возвращает клиента по id.
func (s *CustomerService) Find(id string) (domain.Customer, error) {
	customer, err := s.customers.Find(id)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("load customer %s: %w", id, err)
	}
	return customer, nil
}
