package catalog

import "strings"

// ProductForm carries the add/edit product form fields.
type ProductForm struct {
	Name         string  `validate:"required"`
	SKU          string  `validate:"required"`
	Slug         string  `validate:"required,lowercase"`
	Brand        string  `validate:"omitempty"`
	Category     string  `validate:"omitempty"`
	Description  string  `validate:"omitempty"`
	MRP          float64 `validate:"omitempty,gte=0"`
	SellingPrice float64 `validate:"required,gt=0"`
	Stock        int     `validate:"gte=0"`
	Image        string  `validate:"omitempty,url"`
	Tags         string  `validate:"omitempty"`
	ShowOnHome   bool
	IsActive     bool
}

// ToProduct converts the form into a domain product.
func (f ProductForm) ToProduct() Product {
	return Product{
		SKU:          strings.TrimSpace(f.SKU),
		Slug:         strings.TrimSpace(f.Slug),
		Name:         strings.TrimSpace(f.Name),
		Description:  strings.TrimSpace(f.Description),
		Brand:        strings.TrimSpace(f.Brand),
		Category:     strings.TrimSpace(f.Category),
		MRP:          f.MRP,
		SellingPrice: f.SellingPrice,
		Stock:        f.Stock,
		Image:        strings.TrimSpace(f.Image),
		Tags:         splitTags(f.Tags),
		ShowOnHome:   f.ShowOnHome,
		IsActive:     f.IsActive,
	}
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
