package ingestion

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/deanwagman/peregrine/internal/domain"
)

func newTestReader(t *testing.T) *Reader {
	t.Helper()
	reader, err := NewReader(nil)
	require.NoError(t, err)
	return reader
}

func propertyValue(t *testing.T, entity domain.Entity, slug string) domain.Value {
	t.Helper()
	property, ok := entity.Property(slug)
	require.True(t, ok, "expected property %q", slug)
	return property.Value
}

func TestReadCSVInfersColumnTypes(t *testing.T) {
	t.Parallel()
	reader := newTestReader(t)

	data := `color,year,stolen,price
red,2008,1,100.5
blue,2010,0,99
`
	batch, err := reader.Read(context.Background(), "bikes.csv", strings.NewReader(data), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Total)
	require.Len(t, batch.Entities, 2)
	assert.Empty(t, batch.Rejected)

	first := batch.Entities[0]
	assert.Equal(t, "bikes", first.Model, "model defaults to the file name")
	assert.Equal(t, domain.Text("red"), propertyValue(t, first, "color"))
	assert.Equal(t, domain.Integer(2008), propertyValue(t, first, "year"))
	assert.Equal(t, domain.Boolean(true), propertyValue(t, first, "stolen"))
	assert.Equal(t, domain.Float(100.5), propertyValue(t, first, "price"))

	assert.Equal(t, domain.Boolean(false), propertyValue(t, batch.Entities[1], "stolen"))
	assert.Equal(t, domain.Float(99), propertyValue(t, batch.Entities[1], "price"))
}

func TestReadCSVKeepsWholeNumbersBeyondInt64AsFloat(t *testing.T) {
	t.Parallel()
	reader := newTestReader(t)

	batch, err := reader.Read(context.Background(), "sizes.csv", strings.NewReader("size\n1e30\n3\n"), Options{})
	require.NoError(t, err)
	require.Len(t, batch.Entities, 2)
	assert.Empty(t, batch.Rejected)

	assert.Equal(t, domain.Float(1e30), propertyValue(t, batch.Entities[0], "size"))
	assert.Equal(t, domain.Float(3), propertyValue(t, batch.Entities[1], "size"))
}

func TestReadCSVReplacesInvalidUTF8(t *testing.T) {
	t.Parallel()
	reader := newTestReader(t)

	batch, err := reader.Read(context.Background(), "marks.csv", strings.NewReader("mark\n\xff\n�\n"), Options{})
	require.NoError(t, err)
	require.Len(t, batch.Entities, 2)

	first := propertyValue(t, batch.Entities[0], "mark")
	second := propertyValue(t, batch.Entities[1], "mark")
	assert.Equal(t, "�", first.Any())
	assert.Equal(t, second.Key(), first.Key())
}

func TestReadCSVSkipsEmptyCellsAndHonoursModel(t *testing.T) {
	t.Parallel()
	reader := newTestReader(t)

	data := "\xEF\xBB\xBFcolor,size\n\nred,\n,large\n"
	batch, err := reader.Read(context.Background(), "whatever.csv", strings.NewReader(data), Options{Model: "bike"})
	require.NoError(t, err)
	require.Len(t, batch.Entities, 2)

	assert.Equal(t, "bike", batch.Entities[0].Model)
	_, ok := batch.Entities[0].Property("size")
	assert.False(t, ok, "empty size cell is omitted")
	_, ok = batch.Entities[1].Property("color")
	assert.False(t, ok, "empty color cell is omitted")
}

func TestReadXLSX(t *testing.T) {
	t.Parallel()
	reader := newTestReader(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Frame Color", "Year"},
		{"red", 2008},
		{"green", 2012},
	}
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, value))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	batch, err := reader.Read(context.Background(), "Stolen Bikes.xlsx", &buf, Options{})
	require.NoError(t, err)
	require.Len(t, batch.Entities, 2)

	entity := batch.Entities[1]
	assert.Equal(t, "stolen_bikes", entity.Model)
	assert.Equal(t, domain.Text("green"), propertyValue(t, entity, "Frame_Color"))
	assert.Equal(t, domain.Integer(2012), propertyValue(t, entity, "Year"))
}

func TestReadJSONNormalizesDeclaredBooleans(t *testing.T) {
	t.Parallel()
	reader := newTestReader(t)

	data := `[
  {"model": "bike", "properties": [
    {"slug": "stolen", "type": "BOOLEAN", "value": 1},
    {"slug": "year", "type": "INTEGER", "value": "2008"},
    {"slug": "color", "value": "red"}
  ]},
  {"model": "bike", "properties": {"color": "blue", "year": 2010, "stolen": false}}
]`
	batch, err := reader.Read(context.Background(), "bikes.json", strings.NewReader(data), Options{})
	require.NoError(t, err)
	require.Len(t, batch.Entities, 2)
	assert.Empty(t, batch.Rejected)

	stolen, _ := batch.Entities[0].Property("stolen")
	assert.Equal(t, domain.PropertyTypeBoolean, stolen.Type)
	assert.Equal(t, domain.Boolean(true), stolen.Value)
	assert.Equal(t, domain.Integer(2008), propertyValue(t, batch.Entities[0], "year"))

	second := batch.Entities[1]
	slugs := make([]string, 0, len(second.Properties))
	for _, property := range second.Properties {
		slugs = append(slugs, property.Slug)
	}
	assert.Equal(t, []string{"color", "year", "stolen"}, slugs, "document order is kept")
}

func TestReadJSONRejectsInvalidEntities(t *testing.T) {
	t.Parallel()
	reader := newTestReader(t)

	data := `[
  {"model": "", "properties": []},
  {"model": "bike", "properties": [{"slug": "a", "value": 1}, {"slug": "a", "value": 2}]},
  {"model": "bike", "properties": [{"slug": "stolen", "type": "BOOLEAN", "value": 7}]},
  {"model": "bike", "properties": [{"slug": "x", "type": "DATE", "value": "2020"}]},
  {"model": "bike", "properties": [{"slug": "tags", "value": ["a"]}]},
  {"model": "bike", "properties": [{"slug": "color", "value": "red"}]}
]`
	batch, err := reader.Read(context.Background(), "bikes.json", strings.NewReader(data), Options{})
	require.NoError(t, err)
	assert.Equal(t, 6, batch.Total)
	assert.Len(t, batch.Entities, 1)
	require.Len(t, batch.Rejected, 5)

	for i, rejection := range batch.Rejected {
		assert.Equal(t, i+1, rejection.Row, "rejection %d", i)
		assert.NotEmpty(t, rejection.Reason, "rejection %d", i)
	}
	assert.Contains(t, batch.Rejected[1].Reason, "duplicate")
}

func TestReadYAMLWithPath(t *testing.T) {
	t.Parallel()
	reader := newTestReader(t)

	data := `
meta:
  source: registry
data:
  items:
    - model: bike
      properties:
        - slug: year
          value: 2008
        - slug: label
          value: "2008"
`
	batch, err := reader.Read(context.Background(), "export.yaml", strings.NewReader(data), Options{Path: "data.items"})
	require.NoError(t, err)
	require.Len(t, batch.Entities, 1)

	assert.Equal(t, domain.Integer(2008), propertyValue(t, batch.Entities[0], "year"))
	assert.Equal(t, domain.Text("2008"), propertyValue(t, batch.Entities[0], "label"), "quoted label stays text")
}

func TestReadErrors(t *testing.T) {
	t.Parallel()
	reader := newTestReader(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		file   string
		data   string
		opts   Options
		target error
	}{
		{name: "unknown extension", file: "bikes.txt", data: "x", target: ErrUnsupportedFormat},
		{name: "malformed json", file: "bikes.json", data: "{not json", target: ErrInvalidDocument},
		{name: "scalar document", file: "bikes.json", data: `"scalar"`, target: ErrInvalidDocument},
		{name: "missing path", file: "bikes.json", data: `{"a": []}`, opts: Options{Path: "b"}, target: ErrInvalidDocument},
		{name: "empty input", file: "bikes.csv", data: "   \n", target: ErrInvalidDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reader.Read(ctx, tt.file, strings.NewReader(tt.data), tt.opts)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := reader.Read(cancelled, "bikes.json", strings.NewReader("[]"), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadFile(t *testing.T) {
	t.Parallel()
	reader := newTestReader(t)

	path := filepath.Join(t.TempDir(), "entities.yml")
	require.NoError(t, os.WriteFile(path, []byte("- model: bike\n  properties: {color: red}\n"), 0o600))

	batch, err := reader.ReadFile(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, batch.Entities, 1)
	assert.Equal(t, "bike", batch.Entities[0].Model)

	_, err = reader.ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.json"), Options{})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]Format{"": "", "JSON": FormatJSON, "yml": FormatYAML, "csv": FormatCSV, "xlsx": FormatXLSX} {
		got, err := ParseFormat(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadTracksSourceRows(t *testing.T) {
	t.Parallel()
	reader := newTestReader(t)

	batch, err := reader.Read(context.Background(), "bikes.csv", strings.NewReader("stolen\n\n1\nmaybe\n0\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, batch.Rows, "rows are source line numbers, blank lines included")
	assert.Len(t, batch.Entities, len(batch.Rows))
}
