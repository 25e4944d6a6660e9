package checkout

import (
	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/event"
)

// Notifier доставляет доменные события подписчикам.
type Notifier interface {
	Notify(e event.Event) error
}

func eventAddress(a domain.Address) event.Address {
	return event.Address{Street: a.Street, Number: a.Number, Zip: a.Zip, City: a.City}
}

func orderPlaced(o domain.Order) event.Event {
	items := make([]event.OrderPlacedItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, event.OrderPlacedItem{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			PriceMinor: item.PriceMinor,
		})
	}
	return event.NewOrderPlaced(event.OrderPlacedData{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		TotalMinor: o.Total(),
		Items:      items,
	})
}
