package excel

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseCatalogRows_Excel(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"Código", "Nome", "Preço de venda", "Estoque", "Custo"},
		{"789", "Arroz 5kg", "25,90", "12", "18.00"},
		{"", "Sacola", "0.10", "", ""},
		{"", "", "", "", ""},
		{"", "Feijão", "R$ 1.234,50", "3", ""},
	})

	rows, err := ParseCatalogRows("catalogo.xlsx", buf)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Arroz 5kg", rows[0].Name)
	assert.True(t, decimal.RequireFromString("25.90").Equal(rows[0].Price))
	require.NotNil(t, rows[0].Stock)
	assert.Equal(t, 12, *rows[0].Stock)
	require.NotNil(t, rows[0].Code)
	assert.Equal(t, "789", *rows[0].Code)
	require.NotNil(t, rows[0].CostPrice)
	assert.True(t, decimal.RequireFromString("18").Equal(*rows[0].CostPrice))

	assert.Nil(t, rows[1].Stock)
	assert.Nil(t, rows[1].Code)
	assert.Nil(t, rows[1].CostPrice)

	assert.True(t, decimal.RequireFromString("1234.50").Equal(rows[2].Price))
}

func TestParseCatalogRows_CSV(t *testing.T) {
	body := "name;price;stock\nCafé;12,00;4\n"

	rows, err := ParseCatalogRows("catalog.csv", strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Café", rows[0].Name)
	assert.True(t, decimal.RequireFromString("12").Equal(rows[0].Price))
	assert.Equal(t, 4, *rows[0].Stock)
}

func TestParseCatalogRows_Errors(t *testing.T) {
	cases := map[string]string{
		"missing price column": "name,stock\nA,1\n",
		"negative stock":       "name,price,stock\nA,1.00,-2\n",
		"fractional stock":     "name,price,stock\nA,1.00,1.5\n",
		"negative price":       "name,price\nA,-1\n",
		"bad price":            "name,price\nA,abc\n",
		"no data rows":         "name,price\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalogRows("catalog.csv", strings.NewReader(body))
			assert.Error(t, err)
		})
	}

	_, err := ParseCatalogRows("catalog.xlsx", strings.NewReader(""))
	assert.Error(t, err)
	_, err = ParseCatalogRows("catalog.xlsx", strings.NewReader("not a zip"))
	assert.Error(t, err)
}

func TestNormalizeNumericValue(t *testing.T) {
	cases := map[string]string{
		"12.50":     "12.50",
		"12,50":     "12.50",
		"1.234,56":  "1234.56",
		"1,234.56":  "1234.56",
		" R$ 7,00 ": "7.00",
		"\ufeff3":   "3",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeNumericValue(in), in)
	}
}
