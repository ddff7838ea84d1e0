package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func TestExportProductsCSV(t *testing.T) {
	ts := newTS(t)

	doJSON(t, http.MethodPost, ts.URL+"/products", map[string]any{
		"name": "TV", "description": "Smart, 55 inch", "price": 1000.5, "brand": "Acme", "category_id": 1,
	}, nil, 201)

	resp, raw := get(t, ts.URL+"/reports/export-products.csv")
	if resp.StatusCode != 200 {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type %q", ct)
	}

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if lines[0] != "id,name,description,price,category_id,brand" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if len(lines) != 2 || !strings.Contains(lines[1], "TV") {
		t.Fatalf("unexpected rows: %q", lines)
	}
	// The comma inside the description must be quoted, not split.
	if !strings.Contains(lines[1], `"Smart, 55 inch"`) {
		t.Fatalf("description not quoted: %q", lines[1])
	}
}

func TestExportSalesCSV(t *testing.T) {
	ts := newTS(t)

	doJSON(t, http.MethodPost, ts.URL+"/products", map[string]any{"name": "TV", "price": 1000, "category_id": 1}, nil, 201)
	doJSON(t, http.MethodPost, ts.URL+"/sales", map[string]any{
		"product_id": 1, "quantity": 2, "total_price": 2000, "date": "2024-01-01",
	}, nil, 201)

	resp, raw := get(t, ts.URL+"/reports/export-sales.csv")
	if resp.StatusCode != 200 {
		t.Fatalf("status %d", resp.StatusCode)
	}

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if lines[0] != "id,product_id,quantity,total_price,date" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if len(lines) != 2 || lines[1] != "1,1,2,2000,2024-01-01" {
		t.Fatalf("unexpected rows: %q", lines)
	}
}

func TestExportXLSX(t *testing.T) {
	ts := newTS(t)

	doJSON(t, http.MethodPost, ts.URL+"/categories", map[string]any{"name": "Eletrônicos"}, nil, 201)
	doJSON(t, http.MethodPost, ts.URL+"/products", map[string]any{"name": "TV", "price": 1000, "category_id": 1}, nil, 201)
	doJSON(t, http.MethodPost, ts.URL+"/sales", map[string]any{
		"product_id": 1, "quantity": 1, "total_price": 1000, "date": "2024-01-01",
	}, nil, 201)

	resp, raw := get(t, ts.URL+"/reports/export.xlsx")
	if resp.StatusCode != 200 {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("content type %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "smartmart-report.xlsx") {
		t.Fatalf("content disposition %q", cd)
	}
	// XLSX is a zip container.
	if len(raw) < 4 || !bytes.HasPrefix(raw, []byte("PK")) {
		t.Fatalf("body is not a zip archive (%d bytes)", len(raw))
	}
}

func TestPostmanCollection(t *testing.T) {
	ts := newTS(t)

	resp, raw := get(t, ts.URL+"/postman/collection")
	if resp.StatusCode != 200 {
		t.Fatalf("status %d", resp.StatusCode)
	}

	var col struct {
		Info struct {
			Name string `json:"name"`
		} `json:"info"`
		Item []json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(raw, &col); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if col.Info.Name != "SmartMart Solutions API" {
		t.Fatalf("unexpected collection name %q", col.Info.Name)
	}
	if len(col.Item) == 0 {
		t.Fatal("empty collection")
	}
}
