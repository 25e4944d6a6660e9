package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Create записывает заказ и все его позиции одной транзакцией.
func (r *orderRepository) Create(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, customer_id, total_minor, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
		`, order.ID, order.CustomerID, order.Total(), now); err != nil {
			return classifyWriteError("insert order", err, domain.ErrOrderAlreadyExists)
		}

		for pos, item := range order.Items {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (id, order_id, product_id, name, price_minor, quantity, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, item.ID, order.ID, item.ProductID, item.Name, item.PriceMinor, item.Quantity, pos); err != nil {
				return classifyWriteError("insert order item", err, domain.ErrItemConflict)
			}
		}
		return nil
	})
}

// Update выполняет три фазы в одной транзакции:
// обновление полей заказа, upsert текущих позиций и удаление исчезнувших.
func (r *orderRepository) Update(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET customer_id = $1,
			    total_minor = $2,
			    updated_at = $3
			WHERE id = $4
		`, order.CustomerID, order.Total(), time.Now().UTC(), order.ID)
		if err != nil {
			return classifyWriteError("update order", err, domain.ErrOrderAlreadyExists)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return domain.ErrOrderNotFound
		}

		existing, err := itemIDsTx(ctx, tx, order.ID)
		if err != nil {
			return err
		}

		current := make(map[string]struct{}, len(order.Items))
		for pos, item := range order.Items {
			current[item.ID] = struct{}{}
			res, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (id, order_id, product_id, name, price_minor, quantity, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (id) DO UPDATE
				SET product_id = EXCLUDED.product_id,
				    name = EXCLUDED.name,
				    price_minor = EXCLUDED.price_minor,
				    quantity = EXCLUDED.quantity,
				    position = EXCLUDED.position
				WHERE order_items.order_id = EXCLUDED.order_id
			`, item.ID, order.ID, item.ProductID, item.Name, item.PriceMinor, item.Quantity, pos)
			if err != nil {
				return classifyWriteError("upsert order item", err, domain.ErrItemConflict)
			}
			// 0 строк: позиция с этим ID принадлежит другому заказу.
			upserted, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			if upserted == 0 {
				return fmt.Errorf("order item %s: %w", item.ID, domain.ErrItemConflict)
			}
		}

		stale := make([]string, 0)
		for _, id := range existing {
			if _, keep := current[id]; !keep {
				stale = append(stale, id)
			}
		}
		if len(stale) == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM order_items WHERE order_id = $1 AND id = ANY($2)
		`, order.ID, stale); err != nil {
			return fmt.Errorf("delete stale order items: %w", err)
		}
		return nil
	})
}

// Find возвращает заказ с позициями или ErrOrderNotFound.
func (r *orderRepository) Find(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var order domain.Order
	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id FROM orders WHERE id = $1
	`, id).Scan(&order.ID, &order.CustomerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := r.loadItems(ctx, []string{order.ID})
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items[order.ID]

	return order, nil
}

// FindAll возвращает все заказы вместе с позициями.
func (r *orderRepository) FindAll() ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, customer_id FROM orders ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.CustomerID); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return orders, nil
}

// loadItems загружает позиции сразу для нескольких заказов одним запросом.
func (r *orderRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, id, name, price_minor, product_id, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position, id
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ID, &item.Name, &item.PriceMinor, &item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		result[orderID] = append(result[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return result, nil
}

func itemIDsTx(ctx context.Context, tx *sql.Tx, orderID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM order_items WHERE order_id = $1 FOR UPDATE
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select existing order items: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan existing order item: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing order items: %w", err)
	}
	return ids, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
