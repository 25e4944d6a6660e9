package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// helper для создания базового заказа с двумя позициями.
func makeOrder() domain.Order {
	return domain.Order{
		ID:         "order-1",
		CustomerID: "customer-1",
		Items: []domain.OrderItem{
			{ID: "item-1", Name: "Item 1", PriceMinor: 100, ProductID: "product-1", Quantity: 2},
			{ID: "item-2", Name: "Item 2", PriceMinor: 250, ProductID: "product-2", Quantity: 1},
		},
	}
}

func TestOrderTotal(t *testing.T) {
	order := makeOrder()
	if got := order.Total(); got != 450 {
		t.Fatalf("expected total 450, got %d", got)
	}

	order.Items[0].Quantity = 3
	if got := order.Total(); got != 550 {
		t.Fatalf("total must follow items, got %d", got)
	}
}

func TestNewOrder_Ok(t *testing.T) {
	base := makeOrder()
	order, err := domain.NewOrder(base.ID, base.CustomerID, base.Items)
	require.NoError(t, err)
	require.Equal(t, base.Items, order.Items)

	// Срез позиций копируется, внешняя мутация не влияет на заказ.
	base.Items[0].Name = "mutated"
	require.Equal(t, "Item 1", order.Items[0].Name)
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
		want error
	}{
		{name: "no id", mut: func(o *domain.Order) { o.ID = "" }, want: domain.ErrIDRequired},
		{name: "no customer", mut: func(o *domain.Order) { o.CustomerID = "" }, want: domain.ErrCustomerRequired},
		{name: "no items", mut: func(o *domain.Order) { o.Items = nil }, want: domain.ErrItemsRequired},
		{name: "qty invalid", mut: func(o *domain.Order) { o.Items[0].Quantity = 0 }, want: domain.ErrItemQtyInvalid},
		{name: "price invalid", mut: func(o *domain.Order) { o.Items[0].PriceMinor = -5 }, want: domain.ErrItemPriceInvalid},
		{name: "no product", mut: func(o *domain.Order) { o.Items[1].ProductID = "" }, want: domain.ErrItemProductRequired},
		{name: "duplicate item", mut: func(o *domain.Order) { o.Items[1].ID = "item-1" }, want: domain.ErrItemDuplicate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)

			_, err := domain.NewOrder(order.ID, order.CustomerID, order.Items)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestOrderAddAndRemoveItem(t *testing.T) {
	order := makeOrder()

	require.NoError(t, order.AddItem(domain.OrderItem{ID: "item-3", Name: "Item 3", PriceMinor: 10, ProductID: "p3", Quantity: 1}))
	require.Equal(t, []string{"item-1", "item-2", "item-3"}, order.ItemIDs())
	require.ErrorIs(t, order.AddItem(domain.OrderItem{ID: "item-3", Name: "dup", PriceMinor: 1, ProductID: "p", Quantity: 1}), domain.ErrItemDuplicate)
	require.ErrorIs(t, order.AddItem(domain.OrderItem{ID: "item-4"}), domain.ErrNameRequired)

	clone := order.Clone()
	require.NoError(t, order.RemoveItem("item-2"))
	require.Equal(t, []string{"item-1", "item-3"}, order.ItemIDs())
	require.Equal(t, []string{"item-1", "item-2", "item-3"}, clone.ItemIDs(), "clone must not share items")

	require.ErrorIs(t, order.RemoveItem("missing"), domain.ErrItemNotFound)
	require.NoError(t, order.RemoveItem("item-1"))
	require.ErrorIs(t, order.RemoveItem("item-3"), domain.ErrItemsRequired)
}
