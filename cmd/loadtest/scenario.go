package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vladislavdragonenkov/shop/internal/app"
	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/event"
)

const priceIncreasePercent = 10

// seedCatalog заполняет каталог до старта. Сбой уведомления товар не отменяет.
func seedCatalog(shop *app.App, cfg config) ([]domain.Product, error) {
	catalog := make([]domain.Product, 0, cfg.products)
	for i := range cfg.products {
		product, err := shop.Products.Create(fmt.Sprintf("%s-product-%d", cfg.customerTag, i), cfg.priceMinor)
		var notifyErr *event.NotifyError
		if err != nil && !errors.As(err, &notifyErr) {
			return nil, fmt.Errorf("seed product %d: %w", i, err)
		}
		catalog = append(catalog, product)
	}
	return catalog, nil
}

// drive раздаёт номера сценариев воркерам, пока не исчерпан счёт
// или не истекло время. Возвращает число запущенных сценариев.
func drive(ctx context.Context, cfg config, scenario func(index int) error) int64 {
	if cfg.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.duration)
		defer cancel()
	}

	limit := int64(-1)
	if cfg.duration <= 0 || cfg.totalSet {
		limit = int64(cfg.total)
	}

	var next, started atomic.Int64
	var wg sync.WaitGroup
	for range cfg.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				index := next.Add(1) - 1
				if limit >= 0 && index >= limit {
					return
				}
				started.Add(1)
				_ = scenario(int(index))
			}
		}()
	}
	wg.Wait()
	return started.Load()
}

// runner выполняет сценарии одного прогона на сервисах приложения.
type runner struct {
	shop    *app.App
	catalog []domain.Product
	cfg     config
	runID   string
	ledger  *ledger
}

func (r *runner) step(method string, call func() error) error {
	start := time.Now()
	err := call()
	r.ledger.observe(method, time.Since(start), err)
	return err
}

func (r *runner) run(index int) error {
	return r.step(scenarioMethod, func() error {
		name := fmt.Sprintf("%s-%s-%d", r.cfg.customerTag, r.runID, index)
		switch r.cfg.mode {
		case modeCatalog:
			return r.restock(name)
		case modeOnboard:
			return r.onboardAndOrder(name, index)
		default:
			return r.registerAndOrder(name, index)
		}
	})
}

// restock заводит товар и сразу поднимает на него цену.
func (r *runner) restock(name string) error {
	var product domain.Product
	if err := r.step("CreateProduct", func() (err error) {
		product, err = r.shop.Products.Create(name, r.cfg.priceMinor)
		return err
	}); err != nil {
		return err
	}
	return r.step("IncreasePrices", func() error {
		_, err := r.shop.Products.IncreasePrices([]string{product.ID}, priceIncreasePercent)
		return err
	})
}

func (r *runner) register(customerID string) error {
	return r.step("RegisterCustomer", func() error {
		_, err := r.shop.Customers.Register(customerID, "Load Customer "+customerID, nil)
		return err
	})
}

func (r *runner) registerAndOrder(customerID string, index int) error {
	if err := r.register(customerID); err != nil {
		return err
	}
	return r.order(customerID, index)
}

// onboardAndOrder проводит клиента через адрес и активацию перед заказом.
func (r *runner) onboardAndOrder(customerID string, index int) error {
	if err := r.register(customerID); err != nil {
		return err
	}

	address := domain.Address{Street: "Load Street", Number: index%100 + 1, Zip: "10001", City: "Loadville"}
	if err := r.step("ChangeAddress", func() error {
		_, err := r.shop.Customers.ChangeAddress(customerID, address)
		return err
	}); err != nil {
		return err
	}
	if err := r.step("Activate", func() error {
		_, err := r.shop.Customers.Activate(customerID)
		return err
	}); err != nil {
		return err
	}
	return r.order(customerID, index)
}

func (r *runner) order(customerID string, index int) error {
	product := r.catalog[index%len(r.catalog)]
	return r.step("PlaceOrder", func() error {
		_, err := r.shop.Orders.PlaceOrder(customerID, []domain.OrderItem{{
			Name:       product.Name,
			ProductID:  product.ID,
			PriceMinor: product.PriceMinor,
			Quantity:   int32(r.cfg.quantity),
		}})
		return err
	})
}
