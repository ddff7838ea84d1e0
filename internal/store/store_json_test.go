package store_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"go.uber.org/zap"

	"SmartMart/internal/store"
)

func newStore(t *testing.T) (*store.JSONStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	return store.NewJSONStore(path, zap.NewNop()), path
}

func mustCreateProduct(t *testing.T, s *store.JSONStore, name string, price float64) store.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), store.Product{Name: name, Price: price, CategoryID: 1})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func TestJSONStore_InitCreatesDefaultDocument(t *testing.T) {
	s, path := newStore(t)

	cats, err := s.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(cats) != 0 {
		t.Fatalf("expected empty categories, got %d", len(cats))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("default document not persisted: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("persisted document is not valid json: %v", err)
	}
	for _, key := range []string{"categories", "products", "sales"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("document missing %q", key)
		}
	}
}

func TestJSONStore_InitRecoversFromCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := store.NewJSONStore(path, zap.NewNop())

	products, err := s.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("expected empty products after recovery, got %d", len(products))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(raw) {
		t.Fatalf("corrupt file was not rewritten: %q", raw)
	}
}

func TestJSONStore_CreateAssignsSequentialIDs(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	c1, err := s.CreateCategory(ctx, store.Category{Name: "Eletrônicos"})
	if err != nil {
		t.Fatal(err)
	}
	c2, err := s.CreateCategory(ctx, store.Category{Name: "Livros"})
	if err != nil {
		t.Fatal(err)
	}
	if c1.ID != 1 || c2.ID != 2 {
		t.Fatalf("expected ids 1,2 got %d,%d", c1.ID, c2.ID)
	}

	// Ids continue from the highest existing value, never reusing gaps.
	if _, err := s.BulkAddProducts(ctx, []store.Product{{ID: 10, Name: "TV"}}); err != nil {
		t.Fatal(err)
	}
	p := mustCreateProduct(t, s, "Radio", 50)
	if p.ID != 11 {
		t.Fatalf("expected id 11 after max id 10, got %d", p.ID)
	}
}

func TestJSONStore_CreateSaleRequiresExistingProduct(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.CreateSale(ctx, store.Sale{ProductID: 42, Quantity: 1, TotalPrice: 10, Date: "2024-01-01"})
	if err != store.ErrProductNotFound {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	sales, err := s.ListSales(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sales) != 0 {
		t.Fatalf("rejected sale must not mutate the collection, got %d sales", len(sales))
	}
}

func TestJSONStore_BulkInsertSkipsExistingIDs(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	batch := []store.Product{
		{ID: 1, Name: "TV", Price: 1000},
		{ID: 2, Name: "Radio", Price: 100},
		{ID: 3, Name: "Phone", Price: 500},
	}

	n, err := s.BulkAddProducts(ctx, batch)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("first import: expected 3 inserted, got %d", n)
	}

	// Replaying the same batch is a silent no-op per record.
	n, err = s.BulkAddProducts(ctx, batch)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("replay: expected 0 inserted, got %d", n)
	}

	products, err := s.ListProducts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(products))
	}
	for i, want := range []string{"TV", "Radio", "Phone"} {
		if products[i].Name != want {
			t.Errorf("arrival order not preserved at %d: got %q want %q", i, products[i].Name, want)
		}
	}
}

func TestJSONStore_BulkInsertPartialOverlap(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	mustCreateProduct(t, s, "TV", 1000) // id 1

	n, err := s.BulkAddProducts(ctx, []store.Product{
		{ID: 1, Name: "Clone"},
		{ID: 2, Name: "Radio"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 inserted, got %d", n)
	}

	products, _ := s.ListProducts(ctx)
	if products[0].Name != "TV" {
		t.Fatalf("existing record must win over bulk duplicate, got %q", products[0].Name)
	}
}

func TestJSONStore_UpdateSalePreservesProductID(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	mustCreateProduct(t, s, "TV", 1000)
	sale, err := s.CreateSale(ctx, store.Sale{ProductID: 1, Quantity: 2, TotalPrice: 2000, Date: "2024-01-01"})
	if err != nil {
		t.Fatal(err)
	}

	qty := 5
	total := 5000.0
	updated, found, err := s.UpdateSale(ctx, sale.ID, store.SalePatch{Quantity: &qty, TotalPrice: &total})
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("sale not found")
	}
	if updated.ProductID != 1 {
		t.Fatalf("product_id must be preserved, got %d", updated.ProductID)
	}
	if updated.Quantity != 5 || updated.TotalPrice != 5000 {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if updated.Date != "2024-01-01" {
		t.Fatalf("unpatched field changed: %q", updated.Date)
	}
}

func TestJSONStore_UpdateMissingIsNoOp(t *testing.T) {
	s, path := newStore(t)
	ctx := context.Background()

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	name := "Ghost"
	if _, found, err := s.UpdateProduct(ctx, 99, store.ProductPatch{Name: &name}); err != nil || found {
		t.Fatalf("expected not-found, got found=%v err=%v", found, err)
	}
	if _, found, err := s.UpdateCategory(ctx, 99, store.CategoryPatch{Name: &name}); err != nil || found {
		t.Fatalf("expected not-found, got found=%v err=%v", found, err)
	}
	if _, found, err := s.UpdateSale(ctx, 99, store.SalePatch{}); err != nil || found {
		t.Fatalf("expected not-found, got found=%v err=%v", found, err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatal("no-match update must not persist")
	}
}

func TestJSONStore_DeleteProductIdempotentNoCascade(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	mustCreateProduct(t, s, "TV", 1000)
	if _, err := s.CreateSale(ctx, store.Sale{ProductID: 1, Quantity: 1, TotalPrice: 1000, Date: "2024-01-01"}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteProduct(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteProduct(ctx, 1); err != nil {
		t.Fatalf("second delete must be a no-op, got %v", err)
	}

	products, _ := s.ListProducts(ctx)
	if len(products) != 0 {
		t.Fatalf("expected 0 products, got %d", len(products))
	}

	// Orphaned sale references are tolerated.
	sales, _ := s.ListSales(ctx)
	if len(sales) != 1 || sales[0].ProductID != 1 {
		t.Fatalf("delete must not cascade to sales: %+v", sales)
	}
}

func TestJSONStore_DashboardStats(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	st, err := s.DashboardStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalSalesCount != 0 || st.TotalRevenue != 0 {
		t.Fatalf("empty store stats: %+v", st)
	}

	mustCreateProduct(t, s, "TV", 1000)
	for _, total := range []float64{10.0, 15.5} {
		if _, err := s.CreateSale(ctx, store.Sale{ProductID: 1, Quantity: 1, TotalPrice: total, Date: "2024-01-01"}); err != nil {
			t.Fatal(err)
		}
	}

	st, err = s.DashboardStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalSalesCount != 2 || st.TotalRevenue != 25.5 {
		t.Fatalf("expected {2, 25.5}, got %+v", st)
	}
}

func TestJSONStore_ReloadRoundTrip(t *testing.T) {
	s, path := newStore(t)
	ctx := context.Background()

	if _, err := s.CreateCategory(ctx, store.Category{Name: "Eletrônicos"}); err != nil {
		t.Fatal(err)
	}
	mustCreateProduct(t, s, "TV", 999.9)
	mustCreateProduct(t, s, "Radio", 50)
	if _, err := s.CreateSale(ctx, store.Sale{ProductID: 1, Quantity: 2, TotalPrice: 1999.8, Date: "2024-01-01"}); err != nil {
		t.Fatal(err)
	}

	wantCats, _ := s.ListCategories(ctx)
	wantProducts, _ := s.ListProducts(ctx)
	wantSales, _ := s.ListSales(ctx)

	// Simulated restart: a fresh store over the same file.
	reloaded := store.NewJSONStore(path, zap.NewNop())

	gotCats, _ := reloaded.ListCategories(ctx)
	gotProducts, _ := reloaded.ListProducts(ctx)
	gotSales, _ := reloaded.ListSales(ctx)

	if !reflect.DeepEqual(wantCats, gotCats) {
		t.Errorf("categories round trip: got %+v want %+v", gotCats, wantCats)
	}
	if !reflect.DeepEqual(wantProducts, gotProducts) {
		t.Errorf("products round trip: got %+v want %+v", gotProducts, wantProducts)
	}
	if !reflect.DeepEqual(wantSales, gotSales) {
		t.Errorf("sales round trip: got %+v want %+v", gotSales, wantSales)
	}
}

func TestJSONStore_ConcurrentCreatesKeepIDsUnique(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, _ = s.CreateProduct(ctx, store.Product{Name: "P", Price: 1})
		}()
	}
	wg.Wait()

	products, err := s.ListProducts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != workers {
		t.Fatalf("expected %d products, got %d", workers, len(products))
	}

	seen := make(map[int]struct{}, workers)
	for _, p := range products {
		if _, dup := seen[p.ID]; dup {
			t.Fatalf("duplicate id %d", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
}

// A directory sitting at the data path makes every read and every
// rename fail, regardless of the uid the tests run under.
func brokenStorePath(t *testing.T) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}
	sentinel := filepath.Join(path, "keep")
	if err := os.WriteFile(sentinel, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, sentinel
}

func TestJSONStore_LoadErrorFallsBackWithoutRewrite(t *testing.T) {
	path, sentinel := brokenStorePath(t)

	s := store.NewJSONStore(path, zap.NewNop())

	products, err := s.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("expected empty store, got %d products", len(products))
	}

	// The unreadable path must not have been written over.
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		t.Fatalf("data path was replaced: %v %v", fi, err)
	}
	if _, err := os.Stat(sentinel); err != nil {
		t.Fatalf("existing content was disturbed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("load wrote a temp file: %v", err)
	}
}

func TestJSONStore_SaveFailureKeepsMemoryState(t *testing.T) {
	path, sentinel := brokenStorePath(t)
	s := store.NewJSONStore(path, zap.NewNop())
	ctx := context.Background()

	p, err := s.CreateProduct(ctx, store.Product{Name: "TV", Price: 100, CategoryID: 1})
	if err != nil {
		t.Fatalf("create product despite failing save: %v", err)
	}
	if p.ID != 1 {
		t.Fatalf("product id = %d, want 1", p.ID)
	}

	sale, err := s.CreateSale(ctx, store.Sale{ProductID: p.ID, Quantity: 1, TotalPrice: 100, Date: "2024-01-01"})
	if err != nil {
		t.Fatalf("create sale despite failing save: %v", err)
	}
	if sale.ID != 1 {
		t.Fatalf("sale id = %d, want 1", sale.ID)
	}

	products, err := s.ListProducts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 || products[0].Name != "TV" {
		t.Fatalf("in-memory products = %+v", products)
	}

	stats, err := s.DashboardStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalSalesCount != 1 || stats.TotalRevenue != 100 {
		t.Fatalf("stats = %+v", stats)
	}

	// Disk stays as it was before the failed saves.
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		t.Fatalf("data path was replaced: %v %v", fi, err)
	}
	if _, err := os.Stat(sentinel); err != nil {
		t.Fatalf("existing content was disturbed: %v", err)
	}
}
