package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"pdv/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var headerAliases = map[string]string{
	"name":         "name",
	"product":      "name",
	"product name": "name",
	"nome":         "name",
	"produto":      "name",
	"descricao":    "name",
	"descrição":    "name",
	"price":        "price",
	"sell price":   "price",
	"preco":        "price",
	"preço":        "price",
	"preco venda":  "price",
	"preço venda":  "price",
	"valor":        "price",
	"stock":        "stock",
	"quantity":     "stock",
	"qty":          "stock",
	"estoque":      "stock",
	"quantidade":   "stock",
	"code":         "code",
	"barcode":      "code",
	"codigo":       "code",
	"código":       "code",
	"cod":          "code",
	"cost":         "cost_price",
	"cost price":   "cost_price",
	"custo":        "cost_price",
	"preco custo":  "cost_price",
	"preço custo":  "cost_price",
	"preco compra": "cost_price",
	"preço compra": "cost_price",
}

// ParseCatalogRows reads catalog rows from the first sheet of an xlsx file,
// or from a csv file when fileName says so. Name and price columns are
// required; stock, code and cost are optional and stay nil when blank.
func ParseCatalogRows(fileName string, reader io.Reader) ([]domain.CatalogImportRow, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}

	var rows [][]string
	switch strings.ToLower(strings.TrimSpace(filepath.Ext(fileName))) {
	case ".csv":
		rows, err = parseCSVRows(data)
	default:
		rows, err = parseExcelRows(data)
	}
	if err != nil {
		return nil, err
	}
	return parseCatalogTable(rows)
}

func parseCatalogTable(rows [][]string) ([]domain.CatalogImportRow, error) {
	colMap := mapColumns(rows[0])
	if _, ok := colMap["name"]; !ok {
		return nil, fmt.Errorf("missing required column: name")
	}
	if _, ok := colMap["price"]; !ok {
		return nil, fmt.Errorf("missing required column: price")
	}

	result := make([]domain.CatalogImportRow, 0, len(rows)-1)
	for index := 1; index < len(rows); index++ {
		cells := rows[index]
		name := strings.TrimSpace(readCell(cells, colMap["name"]))
		if name == "" {
			continue
		}

		price, err := parseMoney(readCell(cells, colMap["price"]))
		if err != nil {
			return nil, fmt.Errorf("row %d invalid price: %w", index+1, err)
		}

		row := domain.CatalogImportRow{Name: name, Price: price}

		if raw := strings.TrimSpace(readOptionalCell(cells, colMap, "stock")); raw != "" {
			stock, err := parseInt(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d invalid stock: %w", index+1, err)
			}
			if stock < 0 {
				return nil, fmt.Errorf("row %d invalid stock: cannot be negative", index+1)
			}
			row.Stock = &stock
		}

		if raw := strings.TrimSpace(readOptionalCell(cells, colMap, "cost_price")); raw != "" {
			cost, err := parseMoney(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d invalid cost: %w", index+1, err)
			}
			row.CostPrice = &cost
		}

		if code := strings.TrimSpace(readOptionalCell(cells, colMap, "code")); code != "" {
			row.Code = &code
		}

		result = append(result, row)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("file has no valid data rows")
	}
	return result, nil
}

func parseCSVRows(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if first, _, _ := bytes.Cut(data, []byte("\n")); bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		reader.Comma = ';'
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv file is empty")
	}
	return rows, nil
}

func parseExcelRows(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open excel file: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("excel file is empty")
	}
	return rows, nil
}

func mapColumns(header []string) map[string]int {
	mapped := make(map[string]int)
	for idx, col := range header {
		normalized := normalizeHeader(col)
		if normalized == "" {
			continue
		}
		canonical, ok := headerAliases[normalized]
		if !ok {
			continue
		}
		if _, exists := mapped[canonical]; !exists {
			mapped[canonical] = idx
		}
	}
	return mapped
}

func normalizeHeader(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "\ufeff")
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", " ")
	value = strings.Join(strings.Fields(value), " ")
	return strings.ReplaceAll(value, " de ", " ")
}

func readCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func readOptionalCell(cells []string, colMap map[string]int, key string) string {
	idx, ok := colMap[key]
	if !ok {
		return ""
	}
	return readCell(cells, idx)
}

func parseInt(raw string) (int, error) {
	value := normalizeNumericValue(raw)
	if value == "" {
		return 0, fmt.Errorf("value is empty")
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if !parsed.Equal(parsed.Truncate(0)) {
		return 0, fmt.Errorf("must be an integer")
	}
	return int(parsed.IntPart()), nil
}

// parseMoney accepts "12.50", "12,50" and "1.234,56", with an optional R$
// prefix, rounded to cents.
func parseMoney(raw string) (decimal.Decimal, error) {
	value := normalizeNumericValue(raw)
	if value == "" {
		return decimal.Zero, fmt.Errorf("value is empty")
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number")
	}
	if parsed.IsNegative() {
		return decimal.Zero, fmt.Errorf("cannot be negative")
	}
	return parsed.Round(2), nil
}

func normalizeNumericValue(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "\ufeff")
	value = strings.TrimPrefix(value, "R$")
	value = strings.ReplaceAll(value, " ", "")
	comma := strings.LastIndex(value, ",")
	dot := strings.LastIndex(value, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		value = strings.ReplaceAll(value, ".", "")
		value = strings.Replace(value, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		value = strings.ReplaceAll(value, ",", "")
	case comma >= 0:
		value = strings.Replace(value, ",", ".", 1)
	}
	return strings.TrimSpace(value)
}
