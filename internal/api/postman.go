package api

import (
	"net/http"

	"SmartMart/pkg/kit"
)

// postmanCollection serves a ready-to-import Postman collection
// describing the public API surface.
func (s *Server) postmanCollection(w http.ResponseWriter, r *http.Request) {
	item := func(name, method, url string, body string) map[string]any {
		req := map[string]any{"method": method, "url": url}
		if body != "" {
			req["header"] = []map[string]string{{"key": "Content-Type", "value": "application/json"}}
			req["body"] = map[string]any{"mode": "raw", "raw": body}
		}
		return map[string]any{"name": name, "request": req}
	}

	collection := map[string]any{
		"info": map[string]any{
			"name":        "SmartMart Solutions API",
			"schema":      "https://schema.getpostman.com/json/collection/v2.1.0/collection.json",
			"_postman_id": "smartmart-collection",
		},
		"variable": []map[string]string{{"key": "baseUrl", "value": "http://localhost:8000"}},
		"item": []map[string]any{
			item("List Products", http.MethodGet, "{{baseUrl}}/products", ""),
			item("Create Product", http.MethodPost, "{{baseUrl}}/products",
				"{\n  \"name\": \"Example\",\n  \"price\": 100.0,\n  \"category_id\": 1\n}"),
			item("Delete Product", http.MethodDelete, "{{baseUrl}}/products/1", ""),
			item("List Categories", http.MethodGet, "{{baseUrl}}/categories", ""),
			item("Create Category", http.MethodPost, "{{baseUrl}}/categories",
				"{\n  \"name\": \"TVs\"\n}"),
			item("List Sales", http.MethodGet, "{{baseUrl}}/sales", ""),
			item("Create Sale", http.MethodPost, "{{baseUrl}}/sales",
				"{\n  \"product_id\": 1,\n  \"quantity\": 1,\n  \"total_price\": 100.0,\n  \"date\": \"2024-01-01\"\n}"),
			item("Dashboard Stats", http.MethodGet, "{{baseUrl}}/dashboard/stats", ""),
			item("Upload CSV - Products", http.MethodPost, "{{baseUrl}}/upload/csv/products", ""),
			item("Upload CSV - Categories", http.MethodPost, "{{baseUrl}}/upload/csv/categories", ""),
			item("Upload CSV - Sales", http.MethodPost, "{{baseUrl}}/upload/csv/sales", ""),
			item("Export XLSX", http.MethodGet, "{{baseUrl}}/reports/export.xlsx", ""),
		},
	}

	w.Header().Set("Content-Disposition", `attachment; filename=SmartMart.postman_collection.json`)
	kit.WriteJSON(w, http.StatusOK, collection)
}
