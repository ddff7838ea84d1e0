package api

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"SmartMart/internal/store"
	"SmartMart/pkg/kit"
)

const maxUploadBytes = 10 << 20

// Layouts accepted for sale dates in uploaded files. Everything is
// normalized to YYYY-MM-DD; rows whose date matches none of these are
// skipped, not rejected.
var saleDateLayouts = []string{
	dateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02/01/2006",
}

type importResp struct {
	Message  string `json:"message"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
	ImportID string `json:"import_id"`
}

func (s *Server) uploadCSV(w http.ResponseWriter, r *http.Request) {
	fileType := chi.URLParam(r, "fileType")

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			kit.WriteError(w, r, http.StatusRequestEntityTooLarge, "file too large", map[string]any{"limit_bytes": tooBig.Limit})
			return
		}
		kit.WriteError(w, r, http.StatusBadRequest, "file required", map[string]any{"cause": err.Error()})
		return
	}
	defer func() { _ = file.Close() }()

	table, err := readCSV(file)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid or corrupted file", nil)
		return
	}

	var (
		inserted int
		skipped  int
		label    string
	)
	switch fileType {
	case "categories":
		batch, bad := parseCategoryRows(table)
		inserted, err = s.Store.BulkAddCategories(r.Context(), batch)
		skipped, label = bad, "categories"
	case "products":
		batch, bad := parseProductRows(table)
		inserted, err = s.Store.BulkAddProducts(r.Context(), batch)
		skipped, label = bad, "products"
	case "sales":
		batch, bad := parseSaleRows(table)
		inserted, err = s.Store.BulkAddSales(r.Context(), batch)
		skipped, label = bad, "sales"
	default:
		kit.WriteError(w, r, http.StatusBadRequest, "invalid type, use: categories, products, sales", nil)
		return
	}
	if err != nil {
		s.logError("bulk import", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, importResp{
		Message:  label + " import finished",
		Inserted: inserted,
		Skipped:  skipped,
		ImportID: uuid.NewString(),
	})
}

// csvTable is a headered CSV file: column name → index plus the data rows.
type csvTable struct {
	idx  map[string]int
	rows [][]string
}

func (t csvTable) field(row []string, name string) (string, bool) {
	i, ok := t.idx[name]
	if !ok || i >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[i]), true
}

func (t csvTable) intField(row []string, name string) (int, bool) {
	raw, ok := t.field(row, name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (t csvTable) floatField(row []string, name string) (float64, bool) {
	raw, ok := t.field(row, name)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func readCSV(r io.Reader) (csvTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return csvTable{}, err
	}

	t := csvTable{idx: make(map[string]int, len(header))}
	for i, name := range header {
		t.idx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return csvTable{}, err
		}
		t.rows = append(t.rows, row)
	}
}

// Row parsers coerce each row into a typed record. A row missing a
// required column or failing coercion is skipped individually; one bad
// row never aborts the batch.

func parseCategoryRows(t csvTable) ([]store.Category, int) {
	out := make([]store.Category, 0, len(t.rows))
	skipped := 0
	for _, row := range t.rows {
		id, okID := t.intField(row, "id")
		name, okName := t.field(row, "name")
		if !okID || !okName || name == "" {
			skipped++
			continue
		}
		out = append(out, store.Category{ID: id, Name: name})
	}
	return out, skipped
}

func parseProductRows(t csvTable) ([]store.Product, int) {
	out := make([]store.Product, 0, len(t.rows))
	skipped := 0
	for _, row := range t.rows {
		id, okID := t.intField(row, "id")
		name, okName := t.field(row, "name")
		price, okPrice := t.floatField(row, "price")
		catID, okCat := t.intField(row, "category_id")
		if !okID || !okName || name == "" || !okPrice || !okCat {
			skipped++
			continue
		}

		desc, _ := t.field(row, "description")
		brand, _ := t.field(row, "brand")
		out = append(out, store.Product{
			ID:          id,
			Name:        name,
			Description: desc,
			Price:       price,
			Brand:       brand,
			CategoryID:  catID,
		})
	}
	return out, skipped
}

func parseSaleRows(t csvTable) ([]store.Sale, int) {
	out := make([]store.Sale, 0, len(t.rows))
	skipped := 0
	for _, row := range t.rows {
		id, okID := t.intField(row, "id")
		productID, okProduct := t.intField(row, "product_id")
		qty, okQty := t.intField(row, "quantity")
		total, okTotal := t.floatField(row, "total_price")
		rawDate, okDate := t.field(row, "date")
		if !okID || !okProduct || !okQty || !okTotal || !okDate {
			skipped++
			continue
		}

		date, ok := normalizeSaleDate(rawDate)
		if !ok {
			skipped++
			continue
		}

		out = append(out, store.Sale{
			ID:         id,
			ProductID:  productID,
			Quantity:   qty,
			TotalPrice: total,
			Date:       date,
		})
	}
	return out, skipped
}

func normalizeSaleDate(raw string) (string, bool) {
	for _, layout := range saleDateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d.Format(dateLayout), true
		}
	}
	return "", false
}
