package event

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNilEvent возвращается при попытке отправить пустое событие.
	ErrNilEvent = errors.New("event is nil")
	// ErrUnknownType - тип события не поддерживается.
	ErrUnknownType = errors.New("unknown event type")
	// ErrHandlerPanic оборачивает панику внутри обработчика.
	ErrHandlerPanic = errors.New("event handler panicked")
)

// HandlerFailure описывает ошибку одного обработчика.
type HandlerFailure struct {
	// Position - индекс обработчика в порядке регистрации.
	Position int
	Handler  string
	Err      error
}

// NotifyError агрегирует ошибки всех упавших обработчиков одного события.
type NotifyError struct {
	EventType Type
	Failures  []HandlerFailure
}

func (e *NotifyError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("#%d %s: %v", f.Position, f.Handler, f.Err))
	}
	return fmt.Sprintf("notify %s: %d handler(s) failed: %s", e.EventType, len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap отдаёт исходные ошибки для errors.Is / errors.As.
func (e *NotifyError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
