package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"SmartMart/internal/auth"
	"SmartMart/internal/store"
	"SmartMart/pkg/kit"
)

const (
	maxBodyBytes = 1 << 20
	dateLayout   = "2006-01-02"
)

type Server struct {
	Store   store.Store
	Log     *zap.Logger
	Backend string

	// Admin and JWT enable the auth gate on mutating routes when both
	// are set; left nil, every route is open.
	Admin    *auth.Admin
	JWT      *auth.TokenMaker
	TokenTTL time.Duration

	UploadLimiter *kit.IPRateLimiter

	validate *validator.Validate
}

func (s *Server) Routes() http.Handler {
	if s.validate == nil {
		s.validate = validator.New(validator.WithRequiredStructEnabled())
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.Store.Ping(ctx); err != nil {
			if s.Log != nil {
				s.Log.Warn("readyz failed", zap.Error(err))
			}
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/", s.root)

	r.Get("/categories", s.listCategories)
	r.Get("/products", s.listProducts)
	r.Get("/sales", s.listSales)
	r.Get("/dashboard/stats", s.dashboardStats)

	r.Get("/reports/export.xlsx", s.exportXLSX)
	r.Get("/reports/export-products.csv", s.exportProductsCSV)
	r.Get("/reports/export-sales.csv", s.exportSalesCSV)
	r.Get("/postman/collection", s.postmanCollection)

	if s.authEnabled() {
		r.Post("/auth/login", s.login)
	}

	r.Group(func(pr chi.Router) {
		if s.authEnabled() {
			pr.Use(auth.RequireToken(s.JWT))
		}

		pr.Post("/categories", s.createCategory)
		pr.Put("/categories/{id}", s.updateCategory)

		pr.Post("/products", s.createProduct)
		pr.Put("/products/{id}", s.updateProduct)
		pr.Delete("/products/{id}", s.deleteProduct)

		pr.Post("/sales", s.createSale)
		pr.Put("/sales/{id}", s.updateSale)

		pr.Group(func(ur chi.Router) {
			if s.UploadLimiter != nil {
				ur.Use(s.UploadLimiter.Middleware)
			}
			ur.Post("/upload/csv/{fileType}", s.uploadCSV)
		})
	})

	return r
}

func (s *Server) authEnabled() bool { return s.Admin != nil && s.JWT != nil }

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "online",
		"service": "smartmart",
		"storage": s.Backend,
	})
}

// --- auth ---

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResp struct {
	AccessToken string `json:"access_token"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.Admin.Verify(req.Username, req.Password); err != nil {
		kit.WriteError(w, r, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	tok, err := s.JWT.New(s.Admin.User(), "admin", s.TokenTTL)
	if err != nil {
		s.logError("token issue", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, loginResp{AccessToken: tok})
}

// --- categories ---

type categoryCreateReq struct {
	Name string `json:"name" validate:"required,max=255"`
}

type categoryUpdateReq struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=255"`
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.Store.ListCategories(r.Context())
	if err != nil {
		s.logError("list categories", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, cats)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryCreateReq
	if !s.decode(w, r, &req) {
		return
	}

	c, err := s.Store.CreateCategory(r.Context(), store.Category{Name: req.Name})
	if err != nil {
		s.logError("create category", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, c)
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.urlID(w, r)
	if !ok {
		return
	}

	var req categoryUpdateReq
	if !s.decode(w, r, &req) {
		return
	}

	c, found, err := s.Store.UpdateCategory(r.Context(), id, store.CategoryPatch{Name: req.Name})
	if err != nil {
		s.logError("update category", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "category not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, c)
}

// --- products ---

type productCreateReq struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	Brand       string  `json:"brand"`
	CategoryID  int     `json:"category_id" validate:"gte=0"`
}

type productUpdateReq struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Brand       *string  `json:"brand"`
	CategoryID  *int     `json:"category_id" validate:"omitempty,gte=0"`
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.Store.ListProducts(r.Context())
	if err != nil {
		s.logError("list products", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productCreateReq
	if !s.decode(w, r, &req) {
		return
	}

	p, err := s.Store.CreateProduct(r.Context(), store.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Brand:       req.Brand,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		s.logError("create product", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.urlID(w, r)
	if !ok {
		return
	}

	var req productUpdateReq
	if !s.decode(w, r, &req) {
		return
	}

	p, found, err := s.Store.UpdateProduct(r.Context(), id, store.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Brand:       req.Brand,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		s.logError("update product", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "product not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.urlID(w, r)
	if !ok {
		return
	}

	if err := s.Store.DeleteProduct(r.Context(), id); err != nil {
		s.logError("delete product", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteMessage(w, http.StatusOK, "product deleted")
}

// --- sales ---

type saleCreateReq struct {
	ProductID  int     `json:"product_id" validate:"required,gt=0"`
	Quantity   int     `json:"quantity" validate:"required,gt=0"`
	TotalPrice float64 `json:"total_price" validate:"gte=0"`
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
}

// saleUpdateReq accepts a product_id so existing clients that resend
// the full record keep working, but the value never reaches the store:
// a sale cannot be moved to another product.
type saleUpdateReq struct {
	ProductID  *int     `json:"product_id"`
	Quantity   *int     `json:"quantity" validate:"omitempty,gt=0"`
	TotalPrice *float64 `json:"total_price" validate:"omitempty,gte=0"`
	Date       *string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (s *Server) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.Store.ListSales(r.Context())
	if err != nil {
		s.logError("list sales", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, sales)
}

func (s *Server) createSale(w http.ResponseWriter, r *http.Request) {
	var req saleCreateReq
	if !s.decode(w, r, &req) {
		return
	}

	sale, err := s.Store.CreateSale(r.Context(), store.Sale{
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		TotalPrice: req.TotalPrice,
		Date:       req.Date,
	})
	if errors.Is(err, store.ErrProductNotFound) {
		kit.WriteError(w, r, http.StatusBadRequest, "product not found", map[string]any{"product_id": req.ProductID})
		return
	}
	if err != nil {
		s.logError("create sale", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, sale)
}

func (s *Server) updateSale(w http.ResponseWriter, r *http.Request) {
	id, ok := s.urlID(w, r)
	if !ok {
		return
	}

	var req saleUpdateReq
	if !s.decode(w, r, &req) {
		return
	}

	sale, found, err := s.Store.UpdateSale(r.Context(), id, store.SalePatch{
		Quantity:   req.Quantity,
		TotalPrice: req.TotalPrice,
		Date:       req.Date,
	})
	if err != nil {
		s.logError("update sale", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "sale not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, sale)
}

func (s *Server) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Store.DashboardStats(r.Context())
	if err != nil {
		s.logError("dashboard stats", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, stats)
}

// --- helpers ---

// decode reads a strict JSON body into dst and runs validation. On
// failure the error response is already written and false is returned.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": "extra data after json object"})
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "validation failed", map[string]any{"cause": err.Error()})
		return false
	}
	return true
}

func (s *Server) urlID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "bad id", map[string]any{"id": raw})
		return 0, false
	}
	return id, true
}

func (s *Server) logError(msg string, err error) {
	if s.Log != nil {
		s.Log.Error(msg, zap.Error(err))
	}
}
