package domain

import "errors"

// Product - товар каталога.
type Product struct {
	ID         string
	Name       string
	PriceMinor int64
}

// NewProduct создаёт товар и проверяет инварианты.
func NewProduct(id, name string, priceMinor int64) (Product, error) {
	p := Product{ID: id, Name: name, PriceMinor: priceMinor}
	if errs := p.Validate(); len(errs) > 0 {
		return Product{}, errors.Join(errs...)
	}
	return p, nil
}

// Validate проверяет поля товара.
func (p *Product) Validate() []error {
	var errs []error
	if p.ID == "" {
		errs = append(errs, ErrIDRequired)
	}
	if p.Name == "" {
		errs = append(errs, ErrNameRequired)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrProductPriceInvalid)
	}
	return errs
}

// ChangeName меняет название товара.
func (p *Product) ChangeName(name string) error {
	if name == "" {
		return ErrNameRequired
	}
	p.Name = name
	return nil
}

// ChangePrice меняет цену товара.
func (p *Product) ChangePrice(priceMinor int64) error {
	if priceMinor < 0 {
		return ErrProductPriceInvalid
	}
	p.PriceMinor = priceMinor
	return nil
}
