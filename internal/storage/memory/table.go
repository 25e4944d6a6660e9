package memory

import "sync"

// table - потокобезопасная in-memory таблица, хранящая копии сущностей
// в порядке вставки.
type table[T any] struct {
	mu       sync.RWMutex
	rows     map[string]T
	order    []string
	clone    func(T) T
	notFound error
	exists   error
}

func newTable[T any](clone func(T) T, notFound, exists error) *table[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &table[T]{
		rows:     make(map[string]T),
		clone:    clone,
		notFound: notFound,
		exists:   exists,
	}
}

func (t *table[T]) insert(id string, row T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[id]; ok {
		return t.exists
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	t.rows[id] = t.clone(row)
	t.order = append(t.order, id)
	return nil
}

func (t *table[T]) replace(id string, row T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[id]; !ok {
		return t.notFound
	}
	t.rows[id] = t.clone(row)
	return nil
}

func (t *table[T]) get(id string) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	row, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, t.notFound
	}
	return t.clone(row), nil
}

func (t *table[T]) all() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]T, 0, len(t.order))
	for _, id := range t.order {
		result = append(result, t.clone(t.rows[id]))
	}
	return result
}
