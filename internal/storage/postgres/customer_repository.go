package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository создаёт PostgreSQL-реализацию CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{db: store.DB()}
}

const customerColumns = `id, name, street, number, zip, city, active, reward_points`

// addressColumns раскладывает необязательный адрес по nullable-колонкам.
func addressColumns(addr *domain.Address) (street, zip, city sql.NullString, number sql.NullInt64) {
	if addr == nil {
		return
	}
	street = sql.NullString{String: addr.Street, Valid: true}
	number = sql.NullInt64{Int64: int64(addr.Number), Valid: true}
	zip = sql.NullString{String: addr.Zip, Valid: true}
	city = sql.NullString{String: addr.City, Valid: true}
	return
}

func (r *customerRepository) Create(customer domain.Customer) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	street, zip, city, number := addressColumns(customer.Address)
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customers (`+customerColumns+`, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`, customer.ID, customer.Name, street, number, zip, city, customer.Active, customer.RewardPoints, now)
	if err != nil {
		return classifyWriteError("insert customer", err, domain.ErrCustomerAlreadyExists)
	}
	return nil
}

func (r *customerRepository) Update(customer domain.Customer) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	street, zip, city, number := addressColumns(customer.Address)
	res, err := r.db.ExecContext(ctx, `
		UPDATE customers
		SET name = $2,
		    street = $3,
		    number = $4,
		    zip = $5,
		    city = $6,
		    active = $7,
		    reward_points = $8,
		    updated_at = $9
		WHERE id = $1
	`, customer.ID, customer.Name, street, number, zip, city, customer.Active, customer.RewardPoints, time.Now().UTC())
	if err != nil {
		return classifyWriteError("update customer", err, domain.ErrCustomerAlreadyExists)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (r *customerRepository) Find(id string) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	customer, err := scanCustomer(r.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+` FROM customers WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, fmt.Errorf("select customer: %w", err)
	}
	return customer, nil
}

func (r *customerRepository) FindAll() ([]domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+customerColumns+` FROM customers ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer row: %w", err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer rows: %w", err)
	}
	return customers, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var (
		customer         domain.Customer
		street, zip, cty sql.NullString
		number           sql.NullInt64
	)
	if err := row.Scan(&customer.ID, &customer.Name, &street, &number, &zip, &cty, &customer.Active, &customer.RewardPoints); err != nil {
		return domain.Customer{}, err
	}
	if street.Valid {
		customer.Address = &domain.Address{
			Street: street.String,
			Number: int(number.Int64),
			Zip:    zip.String,
			City:   cty.String,
		}
	}
	return customer, nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
