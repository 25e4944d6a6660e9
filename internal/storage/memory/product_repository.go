package memory

import (
	"github.com/vladislavdragonenkov/shop/internal/domain"
)

type productRepositoryInMemory struct {
	table *table[domain.Product]
}

// NewProductRepository возвращает in-memory репозиторий товаров.
func NewProductRepository() domain.ProductRepository {
	return &productRepositoryInMemory{
		table: newTable[domain.Product](nil, domain.ErrProductNotFound, domain.ErrProductAlreadyExists),
	}
}

func (r *productRepositoryInMemory) Create(product domain.Product) error {
	return r.table.insert(product.ID, product)
}

func (r *productRepositoryInMemory) Update(product domain.Product) error {
	return r.table.replace(product.ID, product)
}

func (r *productRepositoryInMemory) Find(id string) (domain.Product, error) {
	return r.table.get(id)
}

func (r *productRepositoryInMemory) FindAll() ([]domain.Product, error) {
	return r.table.all(), nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
