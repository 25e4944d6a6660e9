package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/shop/internal/app"
	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/event"
)

// CheckoutLifecycleTestSuite прогоняет полный сценарий магазина через собранное приложение.
type CheckoutLifecycleTestSuite struct {
	suite.Suite
	cfg  app.Config
	shop *app.App
	hook *logtest.Hook
}

func (suite *CheckoutLifecycleTestSuite) SetupSuite() {
	suite.hook = logtest.NewGlobal()
}

func (suite *CheckoutLifecycleTestSuite) SetupTest() {
	log.SetLevel(log.InfoLevel)
	suite.hook.Reset()

	shop, err := app.New(context.Background(), suite.cfg)
	suite.Require().NoError(err)
	suite.shop = shop
}

func (suite *CheckoutLifecycleTestSuite) TearDownTest() {
	suite.Require().NoError(suite.shop.Close())
}

func (suite *CheckoutLifecycleTestSuite) messages() []string {
	entries := suite.hook.AllEntries()
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Message)
	}
	return out
}

func (suite *CheckoutLifecycleTestSuite) containsMessage(substr string) bool {
	for _, msg := range suite.messages() {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func (suite *CheckoutLifecycleTestSuite) TestOnboardingAndOrder() {
	customerID := "it-" + uuid.NewString()

	// 1. Регистрация без адреса
	customer, err := suite.shop.Customers.Register(customerID, "Ada Lovelace", nil)
	suite.Require().NoError(err)
	suite.False(customer.Active)
	suite.True(suite.containsMessage("this is the first log of event: customer.created"))
	suite.True(suite.containsMessage("this is the second log of event: customer.created"))

	// 2. Активация без адреса запрещена
	_, err = suite.shop.Customers.Activate(customerID)
	suite.Require().ErrorIs(err, domain.ErrAddressRequired)

	// 3. Смена адреса и активация
	_, err = suite.shop.Customers.ChangeAddress(customerID, domain.Address{
		Street: "Baker Street", Number: 221, Zip: "NW1", City: "London",
	})
	suite.Require().NoError(err)
	suite.True(suite.containsMessage("changed to: Baker Street, 221, NW1 London"))

	customer, err = suite.shop.Customers.Activate(customerID)
	suite.Require().NoError(err)
	suite.True(customer.Active)

	// 4. Каталог
	laptop, err := suite.shop.Products.Create("Laptop", 199900)
	suite.Require().NoError(err)
	mouse, err := suite.shop.Products.Create("Mouse", 2500)
	suite.Require().NoError(err)
	suite.True(suite.containsMessage(fmt.Sprintf("sending email to %s: product %q created", suite.cfg.NotifyEmail, "Laptop")))

	// 5. Заказ начисляет половину суммы в баллах
	order, err := suite.shop.Orders.PlaceOrder(customerID, []domain.OrderItem{
		{Name: laptop.Name, ProductID: laptop.ID, PriceMinor: laptop.PriceMinor, Quantity: 1},
		{Name: mouse.Name, ProductID: mouse.ID, PriceMinor: mouse.PriceMinor, Quantity: 2},
	})
	suite.Require().NoError(err)
	suite.Equal(int64(204900), order.Total())
	suite.Len(order.Items, 2)
	for _, item := range order.Items {
		suite.NotEmpty(item.ID)
	}

	stored, err := suite.shop.Customers.Find(customerID)
	suite.Require().NoError(err)
	suite.Equal(int64(102450), stored.RewardPoints)
	suite.Require().NotNil(stored.Address)
	suite.Equal("London", stored.Address.City)
}

func (suite *CheckoutLifecycleTestSuite) TestOrderForUnknownCustomer() {
	product, err := suite.shop.Products.Create("Cable", 500)
	suite.Require().NoError(err)

	_, err = suite.shop.Orders.PlaceOrder("missing-"+uuid.NewString(), []domain.OrderItem{
		{Name: product.Name, ProductID: product.ID, PriceMinor: product.PriceMinor, Quantity: 1},
	})
	suite.Require().Error(err)
	suite.True(domain.IsNotFound(err))
}

func (suite *CheckoutLifecycleTestSuite) TestIncreasePrices() {
	first, err := suite.shop.Products.Create("Desk", 10000)
	suite.Require().NoError(err)
	second, err := suite.shop.Products.Create("Chair", 4999)
	suite.Require().NoError(err)

	updated, err := suite.shop.Products.IncreasePrices([]string{first.ID, second.ID}, 10)
	suite.Require().NoError(err)
	suite.Require().Len(updated, 2)
	suite.Equal(int64(11000), updated[0].PriceMinor)
	suite.Equal(int64(5499), updated[1].PriceMinor)

	updated, err = suite.shop.Products.IncreasePrices([]string{first.ID, "missing-" + uuid.NewString()}, 10)
	suite.Require().Error(err)
	suite.True(domain.IsNotFound(err))
	suite.Require().Len(updated, 1)
	suite.Equal(int64(12100), updated[0].PriceMinor)
}

type unavailableHandler struct{}

func (h *unavailableHandler) Name() string { return "unavailable" }

func (h *unavailableHandler) Handle(event.Event) error {
	return errors.New("downstream unavailable")
}

func (suite *CheckoutLifecycleTestSuite) TestHandlerFailureKeepsPersistedOrder() {
	customer, err := suite.shop.Customers.Register("", "Grace", nil)
	suite.Require().NoError(err)
	book, err := suite.shop.Products.Create("Book", 1500)
	suite.Require().NoError(err)
	items := []domain.OrderItem{
		{Name: book.Name, ProductID: book.ID, PriceMinor: book.PriceMinor, Quantity: 2},
	}

	failing := &unavailableHandler{}
	suite.shop.Dispatcher().Register(event.TypeOrderPlaced, failing)

	order, err := suite.shop.Orders.PlaceOrder(customer.ID, items)
	var notifyErr *event.NotifyError
	suite.Require().ErrorAs(err, &notifyErr)
	suite.Equal(event.TypeOrderPlaced, notifyErr.EventType)
	suite.Require().Len(notifyErr.Failures, 1)
	suite.Equal("unavailable", notifyErr.Failures[0].Handler)
	suite.NotEmpty(order.ID, "order is returned together with the notification failure")

	stored, err := suite.shop.Customers.Find(customer.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1500), stored.RewardPoints)

	suite.shop.Dispatcher().Unregister(event.TypeOrderPlaced, failing)
	_, err = suite.shop.Orders.PlaceOrder(customer.ID, items)
	suite.Require().NoError(err)
}

func (suite *CheckoutLifecycleTestSuite) TestConcurrentOrders() {
	product, err := suite.shop.Products.Create("Sticker", 200)
	suite.Require().NoError(err)

	const customers = 20
	var wg sync.WaitGroup
	errCh := make(chan error, customers)
	for i := 0; i < customers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			customer, err := suite.shop.Customers.Register("", fmt.Sprintf("Buyer %d", i), nil)
			if err != nil {
				errCh <- err
				return
			}
			_, err = suite.shop.Orders.PlaceOrder(customer.ID, []domain.OrderItem{
				{Name: product.Name, ProductID: product.ID, PriceMinor: product.PriceMinor, Quantity: int32(i + 1)},
			})
			errCh <- err
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		suite.NoError(err)
	}
}

func TestCheckoutLifecycleMemory(t *testing.T) {
	suite.Run(t, &CheckoutLifecycleTestSuite{cfg: app.DefaultConfig()})
}

func TestCheckoutLifecyclePostgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("SHOP_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("SHOP_POSTGRES_TEST_DSN is not set")
	}

	cfg := app.DefaultConfig()
	cfg.StorageDriver = app.StorageDriverPostgres
	cfg.PostgresDSN = dsn
	require.True(t, cfg.PostgresAutoMigrate)

	suite.Run(t, &CheckoutLifecycleTestSuite{cfg: cfg})
}
