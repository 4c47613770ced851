package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/xuri/excelize/v2"

	"github.com/deanwagman/peregrine/internal/domain"
)

// Output formats for aggregation results.
const (
	outputJSON   = "json"
	outputPretty = "pretty"
	outputTable  = "table"
	outputCSV    = "csv"
	outputXLSX   = "xlsx"
)

func checkOutput(format, path string) error {
	switch strings.ToLower(format) {
	case "", outputJSON, outputPretty, outputTable, outputCSV:
		return nil
	case outputXLSX:
		if path == "" {
			return errXLSXToTerminal
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// renderResult encodes result in the requested format. Rendering happens
// fully in memory so a failure never leaves partial output behind.
func renderResult(result domain.Result, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "", outputJSON:
		data, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to encode result: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	case outputPretty:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode result: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	case outputTable:
		if err := writeTable(&buf, []string{"Property", "Value", "Count"}, resultRows(result)); err != nil {
			return nil, err
		}
	case outputCSV:
		if err := writeCSV(&buf, result); err != nil {
			return nil, err
		}
	case outputXLSX:
		if err := writeXLSX(&buf, result); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return buf.Bytes(), nil
}

func sortedSlugs(result domain.Result) []string {
	slugs := make([]string, 0, len(result))
	for slug := range result {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

func resultRows(result domain.Result) [][]string {
	var rows [][]string
	for _, slug := range sortedSlugs(result) {
		for _, bucket := range result[slug] {
			rows = append(rows, []string{slug, bucket.Value.String(), strconv.Itoa(bucket.Count)})
		}
	}
	return rows
}

func writeTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	headerCells := make([]any, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	table.Header(headerCells...)
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("failed to build table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, result domain.Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"property", "value", "count"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := writer.WriteAll(resultRows(result)); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// writeXLSX writes one sheet per property with value and count columns.
// Numbers stay numeric cells.
func writeXLSX(w io.Writer, result domain.Result) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	defaultSheet := f.GetSheetName(0)
	used := map[string]int{strings.ToLower(defaultSheet): 1}
	for _, slug := range sortedSlugs(result) {
		sheet := sheetName(slug, used)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet for %s: %w", slug, err)
		}
		if err := setRow(f, sheet, 1, []any{"value", "count"}); err != nil {
			return err
		}
		for i, bucket := range result[slug] {
			if err := setRow(f, sheet, i+2, []any{bucket.Value.Display(), bucket.Count}); err != nil {
				return err
			}
		}
	}

	if len(result) > 0 {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("failed to remove default sheet: %w", err)
		}
		f.SetActiveSheet(0)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to resolve cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}

var sheetNameReplacer = strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")

// sheetName makes slug a valid, unique worksheet name (31 characters max).
func sheetName(slug string, used map[string]int) string {
	name := sheetNameReplacer.Replace(slug)
	if name == "" {
		name = "property"
	}
	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}
	base := name
	for used[strings.ToLower(name)] > 0 {
		used[strings.ToLower(base)]++
		suffix := "_" + strconv.Itoa(used[strings.ToLower(base)])
		runes := []rune(base)
		if len(runes)+len(suffix) > 31 {
			runes = runes[:31-len(suffix)]
		}
		name = string(runes) + suffix
	}
	used[strings.ToLower(name)]++
	return name
}

// emit writes data to path, or to w when path is empty.
func emit(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
