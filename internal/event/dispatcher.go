package event

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/metrics"
)

// Dispatcher хранит подписки по типам событий и синхронно рассылает события.
// Обработчики вызываются в порядке регистрации; ошибка или паника одного
// обработчика не прерывает вызов остальных.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	logger   *log.Entry
	metrics  *metrics.EventMetrics
}

// Option настраивает Dispatcher.
type Option func(*Dispatcher)

// WithLogger задаёт logger диспетчера.
func WithLogger(logger *log.Entry) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics включает запись Prometheus-метрик.
func WithMetrics(m *metrics.EventMetrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher создаёт пустой диспетчер.
func NewDispatcher(options ...Option) *Dispatcher {
	d := &Dispatcher{handlers: make(map[Type][]Handler)}
	for _, option := range options {
		option(d)
	}
	if d.logger == nil {
		d.logger = log.WithField("component", "event-dispatcher")
	}
	return d
}

// Register добавляет обработчик в конец списка для типа t.
// Повторная регистрация того же экземпляра игнорируется.
func (d *Dispatcher) Register(t Type, h Handler) {
	if h == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.handlers[t] {
		if sameHandler(existing, h) {
			d.logger.WithFields(log.Fields{
				"event_type": t,
				"handler":    handlerName(h),
			}).Debug("handler already registered, skipping")
			return
		}
	}
	d.handlers[t] = append(d.handlers[t], h)
	d.refreshGauge()
}

// Unregister удаляет первое вхождение обработчика для типа t.
func (d *Dispatcher) Unregister(t Type, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := d.handlers[t]
	for idx, existing := range list {
		if !sameHandler(existing, h) {
			continue
		}
		list = append(list[:idx:idx], list[idx+1:]...)
		if len(list) == 0 {
			delete(d.handlers, t)
		} else {
			d.handlers[t] = list
		}
		d.refreshGauge()
		return
	}
}

// UnregisterAll очищает реестр целиком.
func (d *Dispatcher) UnregisterAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers = make(map[Type][]Handler)
	d.refreshGauge()
}

// Handlers возвращает копию списка обработчиков для типа t.
func (d *Dispatcher) Handlers(t Type) []Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return append([]Handler(nil), d.handlers[t]...)
}

// Notify вызывает все обработчики типа события в порядке регистрации.
// Если обработчиков нет, ничего не происходит. Ошибки обработчиков
// собираются в *NotifyError.
func (d *Dispatcher) Notify(e Event) error {
	if e == nil {
		return ErrNilEvent
	}

	handlers := d.Handlers(e.Type())
	if len(handlers) == 0 {
		if d.metrics != nil {
			d.metrics.RecordUnhandled(string(e.Type()))
		}
		return nil
	}

	start := time.Now()
	var failures []HandlerFailure
	for idx, h := range handlers {
		if err := invoke(h, e); err != nil {
			name := handlerName(h)
			d.logger.WithError(err).WithFields(log.Fields{
				"event_type":   e.Type(),
				"aggregate_id": e.AggregateID(),
				"handler":      name,
			}).Warn("event handler failed")
			if d.metrics != nil {
				d.metrics.RecordHandlerFailure(string(e.Type()))
			}
			failures = append(failures, HandlerFailure{Position: idx, Handler: name, Err: err})
		}
	}
	if d.metrics != nil {
		d.metrics.RecordNotified(string(e.Type()), time.Since(start))
	}

	if len(failures) > 0 {
		return &NotifyError{EventType: e.Type(), Failures: failures}
	}
	return nil
}

func invoke(h Handler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h.Handle(e)
}

// refreshGauge вызывается под d.mu.
func (d *Dispatcher) refreshGauge() {
	if d.metrics == nil {
		return
	}
	total := 0
	for _, list := range d.handlers {
		total += len(list)
	}
	d.metrics.SetRegisteredHandlers(total)
}

// sameHandler сравнивает обработчики по идентичности; несравнимые значения
// (функции, структуры со срезами) никогда не считаются равными.
func sameHandler(a, b Handler) (same bool) {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
