package domain

import "errors"

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID позиции стабилен между обновлениями заказа.
	ID   string
	Name string
	// PriceMinor - цена за единицу в минимальных денежных единицах (например, центы).
	PriceMinor int64
	ProductID  string
	Quantity   int32
}

// Total возвращает стоимость позиции: цена × количество.
func (i OrderItem) Total() int64 {
	return i.PriceMinor * int64(i.Quantity)
}

// Validate проверяет инварианты позиции.
func (i OrderItem) Validate() []error {
	var errs []error
	if i.ID == "" {
		errs = append(errs, ErrIDRequired)
	}
	if i.Name == "" {
		errs = append(errs, ErrNameRequired)
	}
	if i.ProductID == "" {
		errs = append(errs, ErrItemProductRequired)
	}
	if i.Quantity <= 0 {
		errs = append(errs, ErrItemQtyInvalid)
	}
	if i.PriceMinor < 0 {
		errs = append(errs, ErrItemPriceInvalid)
	}
	return errs
}

// Order агрегирует заказ клиента и его позиции.
// Итоговая сумма не хранится в сущности и всегда пересчитывается по позициям.
type Order struct {
	ID         string
	CustomerID string
	Items      []OrderItem
}

// NewOrder создаёт заказ и проверяет его инварианты.
func NewOrder(id, customerID string, items []OrderItem) (Order, error) {
	order := Order{
		ID:         id,
		CustomerID: customerID,
		Items:      append([]OrderItem(nil), items...),
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return Order{}, errors.Join(errs...)
	}
	return order, nil
}

// Total возвращает сумму заказа по всем позициям.
func (o Order) Total() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Total()
	}
	return total
}

// ItemIDs возвращает идентификаторы позиций в порядке их следования.
func (o Order) ItemIDs() []string {
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error
	if o.ID == "" {
		errs = append(errs, ErrIDRequired)
	}
	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}

	seen := make(map[string]struct{}, len(o.Items))
	for _, item := range o.Items {
		errs = append(errs, item.Validate()...)
		if _, dup := seen[item.ID]; dup && item.ID != "" {
			errs = append(errs, ErrItemDuplicate)
		}
		seen[item.ID] = struct{}{}
	}
	return errs
}

// AddItem добавляет позицию в конец заказа.
func (o *Order) AddItem(item OrderItem) error {
	if errs := item.Validate(); len(errs) > 0 {
		return errors.Join(errs...)
	}
	for _, existing := range o.Items {
		if existing.ID == item.ID {
			return ErrItemDuplicate
		}
	}
	o.Items = append(o.Items, item)
	return nil
}

// RemoveItem удаляет позицию по ID. Последнюю позицию удалить нельзя.
func (o *Order) RemoveItem(itemID string) error {
	for idx, item := range o.Items {
		if item.ID != itemID {
			continue
		}
		if len(o.Items) == 1 {
			return ErrItemsRequired
		}
		o.Items = append(o.Items[:idx:idx], o.Items[idx+1:]...)
		return nil
	}
	return ErrItemNotFound
}

// Clone возвращает копию заказа с независимым срезом позиций.
func (o Order) Clone() Order {
	o.Items = append([]OrderItem(nil), o.Items...)
	return o
}
