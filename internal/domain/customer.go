package domain

import (
	"errors"
	"fmt"
)

// Address - адрес клиента (value object).
type Address struct {
	Street string
	Number int
	Zip    string
	City   string
}

// Validate проверяет, что все поля адреса заполнены.
func (a Address) Validate() []error {
	var errs []error
	if a.Street == "" {
		errs = append(errs, ErrStreetRequired)
	}
	if a.Number <= 0 {
		errs = append(errs, ErrNumberInvalid)
	}
	if a.Zip == "" {
		errs = append(errs, ErrZipRequired)
	}
	if a.City == "" {
		errs = append(errs, ErrCityRequired)
	}
	return errs
}

func (a Address) String() string {
	return fmt.Sprintf("%s, %d, %s %s", a.Street, a.Number, a.Zip, a.City)
}

// Customer описывает клиента магазина.
type Customer struct {
	ID           string
	Name         string
	Address      *Address
	Active       bool
	RewardPoints int64
}

// NewCustomer создаёт неактивного клиента без адреса.
func NewCustomer(id, name string) (Customer, error) {
	c := Customer{ID: id, Name: name}
	if errs := c.Validate(); len(errs) > 0 {
		return Customer{}, errors.Join(errs...)
	}
	return c, nil
}

// Validate проверяет обязательные поля клиента.
func (c *Customer) Validate() []error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, ErrIDRequired)
	}
	if c.Name == "" {
		errs = append(errs, ErrNameRequired)
	}
	if c.Address != nil {
		errs = append(errs, c.Address.Validate()...)
	}
	return errs
}

// ChangeName меняет имя клиента.
func (c *Customer) ChangeName(name string) error {
	if name == "" {
		return ErrNameRequired
	}
	c.Name = name
	return nil
}

// ChangeAddress заменяет адрес клиента.
func (c *Customer) ChangeAddress(address Address) error {
	if errs := address.Validate(); len(errs) > 0 {
		return errors.Join(errs...)
	}
	c.Address = &address
	return nil
}

// Activate активирует клиента; адрес обязателен.
func (c *Customer) Activate() error {
	if c.Address == nil {
		return ErrAddressRequired
	}
	c.Active = true
	return nil
}

// Deactivate снимает признак активности.
func (c *Customer) Deactivate() {
	c.Active = false
}

// AddRewardPoints начисляет клиенту баллы лояльности.
func (c *Customer) AddRewardPoints(points int64) error {
	if points <= 0 {
		return ErrRewardPointsInvalid
	}
	c.RewardPoints += points
	return nil
}

// Clone возвращает копию клиента, не разделяющую адрес с оригиналом.
func (c Customer) Clone() Customer {
	if c.Address != nil {
		addr := *c.Address
		c.Address = &addr
	}
	return c
}
