package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"SmartMart/internal/store"
	"SmartMart/pkg/kit"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	headerColor     = "1F4E78"
	currencyFormat  = "R$ #,##0.00"
)

func (s *Server) exportXLSX(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fail := func(err error) {
		s.logError("export xlsx", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}

	categories, err := s.Store.ListCategories(ctx)
	if err != nil {
		fail(err)
		return
	}
	products, err := s.Store.ListProducts(ctx)
	if err != nil {
		fail(err)
		return
	}
	sales, err := s.Store.ListSales(ctx)
	if err != nil {
		fail(err)
		return
	}
	stats, err := s.Store.DashboardStats(ctx)
	if err != nil {
		fail(err)
		return
	}

	s.writeWorkbook(w, categories, products, sales, stats)
}

func (s *Server) writeWorkbook(w http.ResponseWriter,
	categories []store.Category, products []store.Product, sales []store.Sale, stats store.Stats) {

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	st := newSheetStyles(f)

	_ = f.SetSheetName("Sheet1", "Summary")
	writeSummarySheet(f, st, stats, len(products), len(categories))

	writeProductsSheet(f, st, products)
	writeCategoriesSheet(f, st, categories)
	writeSalesSheet(f, st, sales)

	w.Header().Set("Content-Disposition", `attachment; filename=smartmart-report.xlsx`)
	w.Header().Set("Content-Type", xlsxContentType)
	if err := f.Write(w); err != nil {
		s.logError("write xlsx", err)
	}
}

type sheetStyles struct {
	title    int
	section  int
	header   int
	cell     int
	center   int
	bold     int
	currency int
}

func newSheetStyles(f *excelize.File) sheetStyles {
	border := []excelize.Border{
		{Type: "left", Style: 1},
		{Type: "right", Style: 1},
		{Type: "top", Style: 1},
		{Type: "bottom", Style: 1},
	}
	currency := currencyFormat

	title, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: headerColor},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	section, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12, Color: headerColor},
	})
	header, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerColor}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    border,
	})
	cell, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true},
		Border:    border,
	})
	center, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	bold, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Border: border,
	})
	currencyStyle, _ := f.NewStyle(&excelize.Style{
		CustomNumFmt: &currency,
		Alignment:    &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:       border,
	})

	return sheetStyles{
		title:    title,
		section:  section,
		header:   header,
		cell:     cell,
		center:   center,
		bold:     bold,
		currency: currencyStyle,
	}
}

func writeSummarySheet(f *excelize.File, st sheetStyles, stats store.Stats, productCount, categoryCount int) {
	const sheet = "Summary"

	_ = f.SetCellValue(sheet, "A1", "SMARTMART SOLUTIONS REPORT")
	_ = f.MergeCell(sheet, "A1", "D1")
	_ = f.SetCellStyle(sheet, "A1", "A1", st.title)

	_ = f.SetCellValue(sheet, "A3", "Report date:")
	_ = f.SetCellValue(sheet, "B3", time.Now().Format("02/01/2006 15:04"))

	_ = f.SetCellValue(sheet, "A5", "EXECUTIVE SUMMARY")
	_ = f.MergeCell(sheet, "A5", "B5")
	_ = f.SetCellStyle(sheet, "A5", "A5", st.section)

	summary := []struct {
		label string
		value any
	}{
		{"Total sales", stats.TotalSalesCount},
		{"Total revenue", fmt.Sprintf("R$ %.2f", stats.TotalRevenue)},
		{"Registered products", productCount},
		{"Active categories", categoryCount},
	}
	for i, item := range summary {
		row := 6 + i
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), item.label)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), item.value)
		_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), st.bold)
		_ = f.SetCellStyle(sheet, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), st.cell)
	}

	_ = f.SetColWidth(sheet, "A", "B", 25)
}

func writeProductsSheet(f *excelize.File, st sheetStyles, products []store.Product) {
	const sheet = "Products"
	_, _ = f.NewSheet(sheet)

	writeHeaderRow(f, st, sheet, []string{"ID", "Name", "Description", "Price", "Brand", "Category ID"})

	for i, p := range products {
		row := i + 2
		setRow(f, sheet, row, []any{p.ID, p.Name, p.Description, p.Price, p.Brand, p.CategoryID})
		styleRow(f, sheet, row, 6, st.cell)

		// Price column gets the currency format.
		cell, _ := excelize.CoordinatesToCellName(4, row)
		_ = f.SetCellStyle(sheet, cell, cell, st.currency)
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "B", 25)
	_ = f.SetColWidth(sheet, "C", "C", 30)
	_ = f.SetColWidth(sheet, "D", "F", 12)
}

func writeCategoriesSheet(f *excelize.File, st sheetStyles, categories []store.Category) {
	const sheet = "Categories"
	_, _ = f.NewSheet(sheet)

	writeHeaderRow(f, st, sheet, []string{"ID", "Name"})

	for i, c := range categories {
		row := i + 2
		setRow(f, sheet, row, []any{c.ID, c.Name})
		styleRow(f, sheet, row, 2, st.cell)
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "B", 25)
}

func writeSalesSheet(f *excelize.File, st sheetStyles, sales []store.Sale) {
	const sheet = "Sales"
	_, _ = f.NewSheet(sheet)

	writeHeaderRow(f, st, sheet, []string{"ID", "Product ID", "Quantity", "Total (R$)", "Date"})

	for i, sl := range sales {
		row := i + 2
		setRow(f, sheet, row, []any{sl.ID, sl.ProductID, sl.Quantity, sl.TotalPrice, sl.Date})
		styleRow(f, sheet, row, 5, st.center)

		cell, _ := excelize.CoordinatesToCellName(4, row)
		_ = f.SetCellStyle(sheet, cell, cell, st.currency)
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "C", 12)
	_ = f.SetColWidth(sheet, "D", "E", 15)
}

func writeHeaderRow(f *excelize.File, st sheetStyles, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
		_ = f.SetCellStyle(sheet, cell, cell, st.header)
	}
}

func setRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func styleRow(f *excelize.File, sheet string, row, cols, styleID int) {
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(cols, row)
	_ = f.SetCellStyle(sheet, first, last, styleID)
}

func (s *Server) exportProductsCSV(w http.ResponseWriter, r *http.Request) {
	products, err := s.Store.ListProducts(r.Context())
	if err != nil {
		s.logError("export products csv", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename=products.csv`)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "name", "description", "price", "category_id", "brand"})
	for _, p := range products {
		_ = cw.Write([]string{
			strconv.Itoa(p.ID),
			p.Name,
			p.Description,
			strconv.FormatFloat(p.Price, 'f', -1, 64),
			strconv.Itoa(p.CategoryID),
			p.Brand,
		})
	}
	cw.Flush()
}

func (s *Server) exportSalesCSV(w http.ResponseWriter, r *http.Request) {
	sales, err := s.Store.ListSales(r.Context())
	if err != nil {
		s.logError("export sales csv", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename=sales.csv`)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "product_id", "quantity", "total_price", "date"})
	for _, sl := range sales {
		_ = cw.Write([]string{
			strconv.Itoa(sl.ID),
			strconv.Itoa(sl.ProductID),
			strconv.Itoa(sl.Quantity),
			strconv.FormatFloat(sl.TotalPrice, 'f', -1, 64),
			sl.Date,
		})
	}
	cw.Flush()
}
