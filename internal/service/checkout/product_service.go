package checkout

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/event"
)

// ProductService ведёт каталог товаров.
type ProductService struct {
	products domain.ProductRepository
	notifier Notifier
	logger   *log.Entry
}

// NewProductService создаёт сервис каталога.
func NewProductService(products domain.ProductRepository, notifier Notifier, logger *log.Entry) *ProductService {
	if logger == nil {
		logger = log.WithField("component", "product-service")
	}
	return &ProductService{products: products, notifier: notifier, logger: logger}
}

// Create сохраняет товар с новым uuid и публикует product.created.
func (s *ProductService) Create(name string, priceMinor int64) (domain.Product, error) {
	product, err := domain.NewProduct(uuid.NewString(), name, priceMinor)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.products.Create(product); err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.logger.WithField("product_id", product.ID).Info("product created")

	err = s.notifier.Notify(event.NewProductCreated(event.ProductCreatedData{
		ID:         product.ID,
		Name:       product.Name,
		PriceMinor: product.PriceMinor,
	}))
	return product, err
}

// IncreasePrices поднимает цены товаров на percent процентов с округлением
// до минорной единицы и сохраняет результат. Первая ошибка прерывает обработку.
func (s *ProductService) IncreasePrices(productIDs []string, percent float64) ([]domain.Product, error) {
	updated := make([]domain.Product, 0, len(productIDs))
	for _, id := range productIDs {
		product, err := s.products.Find(id)
		if err != nil {
			return updated, fmt.Errorf("load product %s: %w", id, err)
		}
		price := product.PriceMinor + int64(math.Round(float64(product.PriceMinor)*percent/100))
		if err := product.ChangePrice(price); err != nil {
			return updated, fmt.Errorf("product %s: %w", id, err)
		}
		if err := s.products.Update(product); err != nil {
			return updated, fmt.Errorf("update product %s: %w", id, err)
		}
		updated = append(updated, product)
	}
	return updated, nil
}
