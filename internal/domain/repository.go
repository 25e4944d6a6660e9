package domain

// Repository описывает узкий порт хранилища для одного типа сущностей.
type Repository[T any] interface {
	// Create сохраняет новую сущность. Возвращает ErrXxxAlreadyExists, если ID занят.
	Create(entity T) error
	// Update применяет изменения к существующей сущности, не меняя её ID.
	Update(entity T) error
	// Find возвращает сущность по ID или ErrXxxNotFound.
	Find(id string) (T, error)
	// FindAll возвращает все сохранённые сущности; пустое хранилище даёт пустой срез.
	FindAll() ([]T, error)
}

// OrderRepository хранит заказы вместе с позициями.
type OrderRepository interface {
	Repository[Order]
}

// CustomerRepository хранит клиентов.
type CustomerRepository interface {
	Repository[Customer]
}

// ProductRepository хранит товары каталога.
type ProductRepository interface {
	Repository[Product]
}
