package event_test

import (
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shop/internal/event"
	"github.com/vladislavdragonenkov/shop/internal/metrics"
)

type recordingHandler struct {
	name  string
	calls *[]string
	err   error
}

func (h *recordingHandler) Handle(event.Event) error {
	*h.calls = append(*h.calls, h.name)
	return h.err
}

func (h *recordingHandler) Name() string { return h.name }

type panickingHandler struct{}

func (panickingHandler) Handle(event.Event) error { panic("boom") }

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("component", "test")
}

func newDispatcher() *event.Dispatcher {
	return event.NewDispatcher(event.WithLogger(quietLogger()))
}

func addressChanged() event.Event {
	return event.NewCustomerAddressChanged(event.AddressChangedData{
		ID:   "123",
		Name: "Teste",
		Address: event.Address{
			Street: "teste",
			Number: 0,
			Zip:    "49000000",
			City:   "Teste",
		},
	})
}

func TestDispatcher_RegisterStoresHandlerInOrder(t *testing.T) {
	d := newDispatcher()
	var calls []string
	first := &recordingHandler{name: "first", calls: &calls}
	second := &recordingHandler{name: "second", calls: &calls}

	d.Register(event.TypeCustomerAddressChanged, first)
	d.Register(event.TypeCustomerAddressChanged, second)

	handlers := d.Handlers(event.TypeCustomerAddressChanged)
	require.Len(t, handlers, 2)
	assert.Same(t, first, handlers[0])
	assert.Same(t, second, handlers[1])
	assert.Empty(t, d.Handlers(event.TypeProductCreated))
}

func TestDispatcher_NotifyCallsHandlersInRegistrationOrder(t *testing.T) {
	d := newDispatcher()
	var calls []string
	for _, name := range []string{"a", "b", "c", "d"} {
		d.Register(event.TypeCustomerAddressChanged, &recordingHandler{name: name, calls: &calls})
	}
	d.Register(event.TypeProductCreated, &recordingHandler{name: "other", calls: &calls})

	require.NoError(t, d.Notify(addressChanged()))
	assert.Equal(t, []string{"a", "b", "c", "d"}, calls)
}

func TestDispatcher_DuplicateRegistrationIsNoop(t *testing.T) {
	d := newDispatcher()
	var calls []string
	h := &recordingHandler{name: "h", calls: &calls}

	d.Register(event.TypeCustomerCreated, h)
	d.Register(event.TypeCustomerCreated, h)
	d.Register(event.TypeCustomerCreated, nil)

	require.Len(t, d.Handlers(event.TypeCustomerCreated), 1)
	require.NoError(t, d.Notify(event.NewCustomerCreated(event.CustomerCreatedData{ID: "c1", Name: "John"})))
	assert.Equal(t, []string{"h"}, calls)
}

func TestDispatcher_Unregister(t *testing.T) {
	d := newDispatcher()
	var calls []string
	first := &recordingHandler{name: "first", calls: &calls}
	second := &recordingHandler{name: "second", calls: &calls}
	absent := &recordingHandler{name: "absent", calls: &calls}

	d.Register(event.TypeCustomerAddressChanged, first)
	d.Register(event.TypeCustomerAddressChanged, second)

	d.Unregister(event.TypeCustomerAddressChanged, absent)
	d.Unregister(event.TypeProductCreated, first)
	require.Len(t, d.Handlers(event.TypeCustomerAddressChanged), 2)

	d.Unregister(event.TypeCustomerAddressChanged, first)
	require.NoError(t, d.Notify(addressChanged()))
	assert.Equal(t, []string{"second"}, calls)

	d.Unregister(event.TypeCustomerAddressChanged, second)
	assert.Empty(t, d.Handlers(event.TypeCustomerAddressChanged))
}

func TestDispatcher_UnregisterAll(t *testing.T) {
	d := newDispatcher()
	var calls []string
	d.Register(event.TypeCustomerAddressChanged, &recordingHandler{name: "a", calls: &calls})
	d.Register(event.TypeProductCreated, &recordingHandler{name: "b", calls: &calls})

	d.UnregisterAll()

	require.NoError(t, d.Notify(addressChanged()))
	require.NoError(t, d.Notify(event.NewProductCreated(event.ProductCreatedData{ID: "p1", Name: "P", PriceMinor: 10})))
	assert.Empty(t, calls)
}

func TestDispatcher_NotifyWithoutHandlersIsSilent(t *testing.T) {
	d := newDispatcher()
	require.NoError(t, d.Notify(addressChanged()))
}

func TestDispatcher_NotifyNilEvent(t *testing.T) {
	d := newDispatcher()
	require.ErrorIs(t, d.Notify(nil), event.ErrNilEvent)
}

func TestDispatcher_FailingHandlersAreIsolated(t *testing.T) {
	d := newDispatcher()
	var calls []string
	errFirst := errors.New("first failed")

	d.Register(event.TypeCustomerAddressChanged, &recordingHandler{name: "first", calls: &calls, err: errFirst})
	d.Register(event.TypeCustomerAddressChanged, panickingHandler{})
	d.Register(event.TypeCustomerAddressChanged, &recordingHandler{name: "last", calls: &calls})

	err := d.Notify(addressChanged())
	require.Error(t, err)
	assert.Equal(t, []string{"first", "last"}, calls, "remaining handlers must still run")

	var notifyErr *event.NotifyError
	require.ErrorAs(t, err, &notifyErr)
	assert.Equal(t, event.TypeCustomerAddressChanged, notifyErr.EventType)
	require.Len(t, notifyErr.Failures, 2)
	assert.Equal(t, 0, notifyErr.Failures[0].Position)
	assert.Equal(t, "first", notifyErr.Failures[0].Handler)
	assert.Equal(t, 1, notifyErr.Failures[1].Position)

	assert.ErrorIs(t, err, errFirst)
	assert.ErrorIs(t, err, event.ErrHandlerPanic)
	assert.Contains(t, err.Error(), "2 handler(s) failed")
}

func TestDispatcher_HandlerFunc(t *testing.T) {
	d := newDispatcher()
	var got event.Event
	fn := event.HandlerFunc(func(e event.Event) error {
		got = e
		return nil
	})

	d.Register(event.TypeOrderPlaced, fn)
	// Функции несравнимы: повторная регистрация добавляет вторую подписку,
	// а Unregister ничего не снимает.
	d.Register(event.TypeOrderPlaced, fn)
	d.Unregister(event.TypeOrderPlaced, fn)
	require.Len(t, d.Handlers(event.TypeOrderPlaced), 2)

	placed := event.NewOrderPlaced(event.OrderPlacedData{OrderID: "o1", CustomerID: "c1", TotalMinor: 100})
	require.NoError(t, d.Notify(placed))
	assert.Equal(t, "o1", got.AggregateID())
}

func TestDispatcher_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewEventMetricsWithRegisterer(reg)
	d := event.NewDispatcher(event.WithLogger(quietLogger()), event.WithMetrics(m))

	var calls []string
	d.Register(event.TypeCustomerAddressChanged, &recordingHandler{name: "ok", calls: &calls})
	d.Register(event.TypeCustomerAddressChanged, &recordingHandler{name: "bad", calls: &calls, err: errors.New("x")})

	_ = d.Notify(addressChanged())
	_ = d.Notify(event.NewProductCreated(event.ProductCreatedData{ID: "p1"}))

	assert.Equal(t, 1, testutil.CollectAndCount(reg, "shop_events_notified_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "shop_event_handler_failures_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "shop_events_unhandled_total"))
}
