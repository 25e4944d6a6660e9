package event

import "fmt"

// Handler - подписчик на доменные события.
type Handler interface {
	Handle(e Event) error
}

// HandlerFunc позволяет использовать функцию как Handler.
// Функции несравнимы, поэтому такую подписку нельзя снять через Unregister.
type HandlerFunc func(e Event) error

func (f HandlerFunc) Handle(e Event) error { return f(e) }

// Named - необязательный интерфейс для человекочитаемого имени обработчика в логах.
type Named interface {
	Name() string
}

func handlerName(h Handler) string {
	if n, ok := h.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}
