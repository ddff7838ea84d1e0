package store

// Category groups products. Products reference it by id only; the
// reference is never enforced, an orphaned category_id is tolerated.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Brand       string  `json:"brand"`
	CategoryID  int     `json:"category_id"`
}

// Sale records a sold quantity of a product. Date is kept as a
// normalized YYYY-MM-DD string, exactly as it is persisted.
type Sale struct {
	ID         int     `json:"id"`
	ProductID  int     `json:"product_id"`
	Quantity   int     `json:"quantity"`
	TotalPrice float64 `json:"total_price"`
	Date       string  `json:"date"`
}

// Stats is the dashboard aggregate over the sales collection.
type Stats struct {
	TotalSalesCount int     `json:"total_sales_count"`
	TotalRevenue    float64 `json:"total_revenue"`
}

// Patch types carry partial updates. A nil field leaves the stored
// value untouched. SalePatch deliberately has no product id field:
// a sale can never be reassigned to a different product through an
// update, so the protected field is not representable here.

type CategoryPatch struct {
	Name *string `json:"name"`
}

type ProductPatch struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Brand       *string  `json:"brand"`
	CategoryID  *int     `json:"category_id"`
}

type SalePatch struct {
	Quantity   *int     `json:"quantity"`
	TotalPrice *float64 `json:"total_price"`
	Date       *string  `json:"date"`
}

func (p CategoryPatch) applyTo(c Category) Category {
	if p.Name != nil {
		c.Name = *p.Name
	}
	return c
}

func (p ProductPatch) applyTo(pr Product) Product {
	if p.Name != nil {
		pr.Name = *p.Name
	}
	if p.Description != nil {
		pr.Description = *p.Description
	}
	if p.Price != nil {
		pr.Price = *p.Price
	}
	if p.Brand != nil {
		pr.Brand = *p.Brand
	}
	if p.CategoryID != nil {
		pr.CategoryID = *p.CategoryID
	}
	return pr
}

func (p SalePatch) applyTo(s Sale) Sale {
	if p.Quantity != nil {
		s.Quantity = *p.Quantity
	}
	if p.TotalPrice != nil {
		s.TotalPrice = *p.TotalPrice
	}
	if p.Date != nil {
		s.Date = *p.Date
	}
	return s
}
