package domain

import (
	"strings"
	"time"
)

// Product is the item being brought to market, owned 1:1 by its originating
// task.
type Product struct {
	ID          string
	Title       string
	Description string
	Vendor      string
	OrderNumber string
	SKU         string
	Price       string
	Category    string
	Images      []string
	Metadata    map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProductInput struct {
	ID          string
	Title       string
	Description string
	Vendor      string
	OrderNumber string
	SKU         string
	Price       string
	Category    string
	Images      []string
	Metadata    map[string]string
}

// NewProduct constructs a new product record.
func NewProduct(in ProductInput, now time.Time) (Product, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	in.Vendor = strings.TrimSpace(in.Vendor)

	if in.ID == "" {
		return Product{}, ErrInvalidID
	}
	if in.Title == "" {
		return Product{}, ErrInvalidTitle
	}
	if in.Vendor == "" {
		return Product{}, ErrInvalidVendor
	}

	return Product{
		ID:          in.ID,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Vendor:      in.Vendor,
		OrderNumber: strings.TrimSpace(in.OrderNumber),
		SKU:         strings.TrimSpace(in.SKU),
		Price:       strings.TrimSpace(in.Price),
		Category:    strings.TrimSpace(in.Category),
		Images:      in.Images,
		Metadata:    in.Metadata,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// UpdateDetails edits the mutable product fields.
func (p *Product) UpdateDetails(title, description, price, category string, now time.Time) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	p.Title = title
	p.Description = strings.TrimSpace(description)
	p.Price = strings.TrimSpace(price)
	p.Category = strings.TrimSpace(category)
	p.UpdatedAt = now.UTC()
	return nil
}
