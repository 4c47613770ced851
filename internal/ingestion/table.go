package ingestion

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/deanwagman/peregrine/internal/domain"
)

type tableData struct {
	headers    []string
	rows       [][]string
	rowNumbers []int
}

// readTable turns every data row of a CSV or XLSX sheet into one entity of
// model. Column types are profiled across the whole sheet so that a column of
// 0/1 cells becomes BOOLEAN rather than INTEGER.
func (r *Reader) readTable(format Format, payload []byte, model string) (Batch, error) {
	if model == "" {
		return Batch{}, fmt.Errorf("%w: model is required for tabular input", ErrInvalidDocument)
	}

	var (
		records [][]string
		lines   []int
		err     error
	)
	switch format {
	case FormatCSV:
		records, lines, err = parseCSV(payload)
	case FormatXLSX:
		records, err = parseExcel(payload)
		lines = sequentialLines(len(records))
	default:
		return Batch{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return Batch{}, err
	}

	table, err := normalizeTable(records, lines)
	if err != nil {
		return Batch{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	types := make([]domain.PropertyType, len(table.headers))
	for idx := range table.headers {
		types[idx] = profileColumn(idx, table.rows)
	}

	batch := Batch{Total: len(table.rows)}
	for rowIdx, row := range table.rows {
		properties := make([]domain.Property, 0, len(table.headers))
		var rowErr error
		for colIdx, header := range table.headers {
			raw := strings.TrimSpace(row[colIdx])
			if raw == "" {
				continue
			}
			value, err := domain.Text(raw).Coerce(types[colIdx])
			if err != nil {
				rowErr = fmt.Errorf("column %q: %w", header, err)
				break
			}
			properties = append(properties, domain.Property{Slug: header, Type: types[colIdx], Value: value})
		}
		if rowErr != nil {
			batch.Rejected = append(batch.Rejected, Rejection{
				Row:    table.rowNumbers[rowIdx],
				Model:  model,
				Reason: rowErr.Error(),
			})
			continue
		}
		batch.Entities = append(batch.Entities, domain.NewEntity(model, properties))
		batch.Rows = append(batch.Rows, table.rowNumbers[rowIdx])
	}
	return batch, nil
}

// parseCSV returns the records together with the source line each one starts
// on; the csv reader silently drops blank lines.
func parseCSV(payload []byte) ([][]string, []int, error) {
	csvReader := csv.NewReader(bytes.NewReader(payload))
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	var (
		records [][]string
		lines   []int
	)
	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := csvReader.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)
	}
	return records, lines, nil
}

func sequentialLines(n int) []int {
	lines := make([]int, n)
	for i := range lines {
		lines[i] = i + 1
	}
	return lines
}

func parseExcel(payload []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return rows, nil
}

// normalizeTable picks the first non-empty row as the header and pads every
// data row to the header width. lines[i] is the 1-based source line of
// records[i] so rejections can point at the offending line.
func normalizeTable(records [][]string, lines []int) (tableData, error) {
	if len(records) == 0 {
		return tableData{}, errors.New("no rows found in file")
	}

	var (
		headerRow  []string
		dataRows   [][]string
		rowNumbers []int
	)
	for idx, row := range records {
		if len(cleanRow(row)) == 0 {
			continue
		}
		if headerRow == nil {
			headerRow = row
			continue
		}
		dataRows = append(dataRows, row)
		rowNumbers = append(rowNumbers, lines[idx])
	}

	if headerRow == nil {
		return tableData{}, errors.New("header row could not be detected")
	}

	headers := sanitizeHeaders(headerRow)
	for i := range dataRows {
		dataRows[i] = padRow(dataRows[i], len(headers))
	}

	return tableData{
		headers:    headers,
		rows:       dataRows,
		rowNumbers: rowNumbers,
	}, nil
}

func cleanRow(row []string) []string {
	var cleaned []string
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			cleaned = append(cleaned, cell)
		}
	}
	return cleaned
}

func sanitizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int)

	for idx, value := range raw {
		name := strings.TrimSpace(value)
		name = strings.ReplaceAll(name, " ", "_")
		name = strings.ReplaceAll(name, ".", "_")
		name = strings.ReplaceAll(name, "-", "_")
		name = strings.Trim(name, "_")
		if name == "" {
			name = fmt.Sprintf("column_%d", idx+1)
		}

		base := name
		count := seen[base]
		if count > 0 {
			name = fmt.Sprintf("%s_%d", base, count+1)
		}
		seen[base] = count + 1

		headers[idx] = name
	}

	return headers
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}

func profileColumn(col int, rows [][]string) domain.PropertyType {
	isBool := true
	isInt := true
	isFloat := true
	hasValue := false

	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[col])
		if value == "" {
			continue
		}
		hasValue = true

		if !looksLikeBool(value) {
			isBool = false
		}
		if !looksLikeInt(value) {
			isInt = false
		}
		if !looksLikeFloat(value) {
			isFloat = false
		}
	}

	switch {
	case isBool && hasValue:
		return domain.PropertyTypeBoolean
	case isInt && hasValue:
		return domain.PropertyTypeInteger
	case isFloat && hasValue:
		return domain.PropertyTypeFloat
	default:
		return domain.PropertyTypeString
	}
}

func looksLikeBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "false", "1", "0", "yes", "no":
		return true
	}
	return false
}

func looksLikeInt(value string) bool {
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return true
	}
	// Allow float representations that can be losslessly converted to int.
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		_, ok := domain.WholeInt(f)
		return ok
	}
	return false
}

func looksLikeFloat(value string) bool {
	_, err := strconv.ParseFloat(value, 64)
	return err == nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = slugPattern.ReplaceAllString(value, "_")
	return strings.Trim(value, "_")
}
