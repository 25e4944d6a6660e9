package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора сущности.
	ErrIDRequired = errors.New("id is required")
	// Ошибка отсутствующего имени (клиента, товара, позиции).
	ErrNameRequired = errors.New("name is required")
	// Ошибка отсутствующего идентификатора клиента в заказе.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка отсутствующего идентификатора товара в позиции.
	ErrItemProductRequired = errors.New("item product_id is required")
	// Ошибка повторяющегося идентификатора позиции внутри заказа.
	ErrItemDuplicate = errors.New("item id must be unique within order")
	// ErrItemConflict - позиция с таким ID уже принадлежит другому заказу.
	ErrItemConflict = errors.New("order item id is already used by another order")
	// ErrItemNotFound возвращается при удалении несуществующей позиции.
	ErrItemNotFound = errors.New("order item not found")

	// Ошибки адреса клиента.
	ErrStreetRequired = errors.New("street is required")
	ErrNumberInvalid  = errors.New("address number must be greater than zero")
	ErrZipRequired    = errors.New("zip is required")
	ErrCityRequired   = errors.New("city is required")
	// ErrAddressRequired - клиента нельзя активировать без адреса.
	ErrAddressRequired = errors.New("address is mandatory to activate a customer")
	// ErrRewardPointsInvalid - начислять можно только положительное число баллов.
	ErrRewardPointsInvalid = errors.New("reward points must be greater than zero")

	// ErrProductPriceInvalid - цена товара не может быть отрицательной.
	ErrProductPriceInvalid = errors.New("product price must be non-negative")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists - заказ с таким ID уже сохранён.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrCustomerNotFound возвращается, если клиент не найден в репозитории.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrCustomerAlreadyExists - клиент с таким ID уже сохранён.
	ErrCustomerAlreadyExists = errors.New("customer already exists")
	// ErrProductNotFound возвращается, если товар не найден в репозитории.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductAlreadyExists - товар с таким ID уже сохранён.
	ErrProductAlreadyExists = errors.New("product already exists")
	// ErrReferenceViolation - хранилище отклонило запись из-за внешнего ключа.
	ErrReferenceViolation = errors.New("referenced entity does not exist")

	// ErrOutboxPublish - ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsNotFound проверяет, что ошибка означает отсутствие сущности в хранилище.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrProductNotFound)
}

// IsAlreadyExists проверяет, что ошибка означает конфликт идентификаторов при создании.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrOrderAlreadyExists) ||
		errors.Is(err, ErrCustomerAlreadyExists) ||
		errors.Is(err, ErrProductAlreadyExists) ||
		errors.Is(err, ErrItemConflict)
}
