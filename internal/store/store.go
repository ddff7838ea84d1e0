package store

import (
	"context"
	"errors"
)

// ErrProductNotFound is returned by CreateSale when the referenced
// product does not exist. The check runs before any mutation.
var ErrProductNotFound = errors.New("product not found")

// Store owns the three collections and their durable representation.
// Create methods assign the next free id (max existing + 1, or 1 on an
// empty collection) and persist before returning. Bulk methods follow
// the skip-if-exists policy: records whose id is already stored are
// silently dropped, the rest are appended in arrival order, and the
// number actually inserted is returned. Update methods report a missing
// id through the bool result with no mutation and no persistence.
type Store interface {
	Ping(ctx context.Context) error

	ListCategories(ctx context.Context) ([]Category, error)
	ListProducts(ctx context.Context) ([]Product, error)
	ListSales(ctx context.Context) ([]Sale, error)

	CreateCategory(ctx context.Context, c Category) (Category, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	CreateSale(ctx context.Context, s Sale) (Sale, error)

	BulkAddCategories(ctx context.Context, batch []Category) (int, error)
	BulkAddProducts(ctx context.Context, batch []Product) (int, error)
	BulkAddSales(ctx context.Context, batch []Sale) (int, error)

	UpdateCategory(ctx context.Context, id int, patch CategoryPatch) (Category, bool, error)
	UpdateProduct(ctx context.Context, id int, patch ProductPatch) (Product, bool, error)
	UpdateSale(ctx context.Context, id int, patch SalePatch) (Sale, bool, error)

	DeleteProduct(ctx context.Context, id int) error

	DashboardStats(ctx context.Context) (Stats, error)
}
