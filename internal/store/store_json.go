package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// document is the on-disk shape: one flat JSON file holding exactly the
// three collections.
type document struct {
	Categories []Category `json:"categories"`
	Products   []Product  `json:"products"`
	Sales      []Sale     `json:"sales"`
}

func emptyDocument() document {
	return document{
		Categories: []Category{},
		Products:   []Product{},
		Sales:      []Sale{},
	}
}

// JSONStore keeps the collections in memory and rewrites the whole
// backing document after every mutation. A single mutex serializes the
// full read-modify-write sequence of each operation, so concurrent
// mutations cannot lose each other's writes.
//
// Load and save failures are logged, never returned: the store always
// ends construction in a usable state, and a failed save leaves the
// in-memory state authoritative until the next successful write.
type JSONStore struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
	doc  document
}

func NewJSONStore(path string, log *zap.Logger) *JSONStore {
	s := &JSONStore{path: path, log: log}
	s.load()
	return s
}

func (s *JSONStore) load() {
	raw, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.doc = emptyDocument()
		s.persist()
		return
	case err != nil:
		// Unexpected I/O failure: serve from the in-memory default
		// without forcing a write over whatever is on disk.
		s.log.Error("load data file", zap.String("path", s.path), zap.Error(err))
		s.doc = emptyDocument()
		return
	}

	if len(raw) == 0 {
		s.doc = emptyDocument()
		s.persist()
		return
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.log.Error("parse data file, resetting to defaults",
			zap.String("path", s.path), zap.Error(err))
		s.doc = emptyDocument()
		s.persist()
		return
	}

	// Absent keys decode to nil; keep the three-array invariant.
	if doc.Categories == nil {
		doc.Categories = []Category{}
	}
	if doc.Products == nil {
		doc.Products = []Product{}
	}
	if doc.Sales == nil {
		doc.Sales = []Sale{}
	}
	s.doc = doc
}

// persist rewrites the entire document. The write goes to a temp file
// first and is renamed into place, so a crash mid-write leaves the
// previous document intact. Callers must hold s.mu.
func (s *JSONStore) persist() {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.log.Error("create data dir", zap.String("path", s.path), zap.Error(err))
		return
	}

	buf, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		s.log.Error("encode data file", zap.Error(err))
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		s.log.Error("write data file", zap.String("path", tmp), zap.Error(err))
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.log.Error("replace data file", zap.String("path", s.path), zap.Error(err))
	}
}

func (s *JSONStore) Ping(ctx context.Context) error { return nil }

func (s *JSONStore) ListCategories(ctx context.Context) ([]Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Category, len(s.doc.Categories))
	copy(out, s.doc.Categories)
	return out, nil
}

func (s *JSONStore) ListProducts(ctx context.Context) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Product, len(s.doc.Products))
	copy(out, s.doc.Products)
	return out, nil
}

func (s *JSONStore) ListSales(ctx context.Context) ([]Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Sale, len(s.doc.Sales))
	copy(out, s.doc.Sales)
	return out, nil
}

func (s *JSONStore) CreateCategory(ctx context.Context, c Category) (Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = nextCategoryID(s.doc.Categories)
	s.doc.Categories = append(s.doc.Categories, c)
	s.persist()
	return c, nil
}

func (s *JSONStore) CreateProduct(ctx context.Context, p Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = nextProductID(s.doc.Products)
	s.doc.Products = append(s.doc.Products, p)
	s.persist()
	return p, nil
}

func (s *JSONStore) CreateSale(ctx context.Context, sale Sale) (Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !productExists(s.doc.Products, sale.ProductID) {
		return Sale{}, ErrProductNotFound
	}

	sale.ID = nextSaleID(s.doc.Sales)
	s.doc.Sales = append(s.doc.Sales, sale)
	s.persist()
	return sale, nil
}

func (s *JSONStore) BulkAddCategories(ctx context.Context, batch []Category) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int]struct{}, len(s.doc.Categories))
	for _, c := range s.doc.Categories {
		seen[c.ID] = struct{}{}
	}

	inserted := 0
	for _, c := range batch {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		s.doc.Categories = append(s.doc.Categories, c)
		inserted++
	}
	if inserted > 0 {
		s.persist()
	}
	return inserted, nil
}

func (s *JSONStore) BulkAddProducts(ctx context.Context, batch []Product) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int]struct{}, len(s.doc.Products))
	for _, p := range s.doc.Products {
		seen[p.ID] = struct{}{}
	}

	inserted := 0
	for _, p := range batch {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		s.doc.Products = append(s.doc.Products, p)
		inserted++
	}
	if inserted > 0 {
		s.persist()
	}
	return inserted, nil
}

// BulkAddSales does not cross-check product ids: imported sales may
// reference products that arrive in a later upload, or never arrive.
func (s *JSONStore) BulkAddSales(ctx context.Context, batch []Sale) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int]struct{}, len(s.doc.Sales))
	for _, sale := range s.doc.Sales {
		seen[sale.ID] = struct{}{}
	}

	inserted := 0
	for _, sale := range batch {
		if _, dup := seen[sale.ID]; dup {
			continue
		}
		seen[sale.ID] = struct{}{}
		s.doc.Sales = append(s.doc.Sales, sale)
		inserted++
	}
	if inserted > 0 {
		s.persist()
	}
	return inserted, nil
}

func (s *JSONStore) UpdateCategory(ctx context.Context, id int, patch CategoryPatch) (Category, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.doc.Categories {
		if c.ID != id {
			continue
		}
		s.doc.Categories[i] = patch.applyTo(c)
		s.persist()
		return s.doc.Categories[i], true, nil
	}
	return Category{}, false, nil
}

func (s *JSONStore) UpdateProduct(ctx context.Context, id int, patch ProductPatch) (Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.doc.Products {
		if p.ID != id {
			continue
		}
		s.doc.Products[i] = patch.applyTo(p)
		s.persist()
		return s.doc.Products[i], true, nil
	}
	return Product{}, false, nil
}

func (s *JSONStore) UpdateSale(ctx context.Context, id int, patch SalePatch) (Sale, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sale := range s.doc.Sales {
		if sale.ID != id {
			continue
		}
		s.doc.Sales[i] = patch.applyTo(sale)
		s.persist()
		return s.doc.Sales[i], true, nil
	}
	return Sale{}, false, nil
}

// DeleteProduct removes the matching product. A missing id is a no-op,
// and sales referencing the product are left in place.
func (s *JSONStore) DeleteProduct(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.doc.Products[:0]
	removed := false
	for _, p := range s.doc.Products {
		if p.ID == id {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	s.doc.Products = kept

	if removed {
		s.persist()
	}
	return nil
}

func (s *JSONStore) DashboardStats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{TotalSalesCount: len(s.doc.Sales)}
	for _, sale := range s.doc.Sales {
		st.TotalRevenue += sale.TotalPrice
	}
	return st, nil
}

func nextCategoryID(cs []Category) int {
	max := 0
	for _, c := range cs {
		if c.ID > max {
			max = c.ID
		}
	}
	return max + 1
}

func nextProductID(ps []Product) int {
	max := 0
	for _, p := range ps {
		if p.ID > max {
			max = p.ID
		}
	}
	return max + 1
}

func nextSaleID(ss []Sale) int {
	max := 0
	for _, s := range ss {
		if s.ID > max {
			max = s.ID
		}
	}
	return max + 1
}

func productExists(ps []Product, id int) bool {
	for _, p := range ps {
		if p.ID == id {
			return true
		}
	}
	return false
}
