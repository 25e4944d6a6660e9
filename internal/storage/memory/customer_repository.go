package memory

import (
	"github.com/vladislavdragonenkov/shop/internal/domain"
)

type customerRepositoryInMemory struct {
	table *table[domain.Customer]
}

// NewCustomerRepository возвращает in-memory репозиторий клиентов.
func NewCustomerRepository() domain.CustomerRepository {
	return &customerRepositoryInMemory{
		table: newTable(domain.Customer.Clone, domain.ErrCustomerNotFound, domain.ErrCustomerAlreadyExists),
	}
}

func (r *customerRepositoryInMemory) Create(customer domain.Customer) error {
	return r.table.insert(customer.ID, customer)
}

func (r *customerRepositoryInMemory) Update(customer domain.Customer) error {
	return r.table.replace(customer.ID, customer)
}

func (r *customerRepositoryInMemory) Find(id string) (domain.Customer, error) {
	return r.table.get(id)
}

func (r *customerRepositoryInMemory) FindAll() ([]domain.Customer, error) {
	return r.table.all(), nil
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
