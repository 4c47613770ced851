package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/deanwagman/peregrine/internal/domain"
)

var (
	// ErrUnsupportedFormat is returned when an input file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrInvalidDocument is returned when an entity document does not have the
	// expected shape.
	ErrInvalidDocument = errors.New("invalid entity document")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// Format identifies an input encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat resolves a format name; the empty name is allowed and means
// "detect from the file extension".
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, raw)
	}
}

// Options controls how an input is decoded.
type Options struct {
	// Format overrides extension based detection.
	Format Format
	// Model names the entities produced from tabular input. Defaults to the
	// slugified file name.
	Model string
	// Path selects the entity array inside a larger JSON or YAML document
	// using gjson syntax, e.g. "data.items".
	Path string
}

// Rejection describes one entity that could not be ingested.
type Rejection struct {
	Row    int    `json:"row"`
	Model  string `json:"model,omitempty"`
	Reason string `json:"reason"`
}

// Batch is the outcome of reading one input.
type Batch struct {
	Entities []domain.Entity
	// Rows holds the source row of each accepted entity.
	Rows     []int
	Rejected []Rejection
	Total    int
}

// Reader turns entity files into domain entities.
type Reader struct {
	logger    *zap.SugaredLogger
	validator *documentValidator
}

// NewReader creates a reader. A nil logger discards log output.
func NewReader(logger *zap.SugaredLogger) (*Reader, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	validator, err := newDocumentValidator()
	if err != nil {
		return nil, err
	}
	return &Reader{logger: logger, validator: validator}, nil
}

// ReadFile reads entities from a file on disk.
func (r *Reader) ReadFile(ctx context.Context, path string, opts Options) (Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return Batch{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return r.Read(ctx, filepath.Base(path), f, opts)
}

// Read decodes entities from data. name is used for format detection and as
// the default model for tabular input.
func (r *Reader) Read(ctx context.Context, name string, data io.Reader, opts Options) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	if data == nil {
		return Batch{}, errors.New("data reader is required")
	}

	format := opts.Format
	if format == "" {
		detected, err := detectFormat(name)
		if err != nil {
			return Batch{}, err
		}
		format = detected
	}

	payload, err := io.ReadAll(data)
	if err != nil {
		return Batch{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	payload = bytes.TrimPrefix(payload, byteOrderMark)
	if len(bytes.TrimSpace(payload)) == 0 {
		return Batch{}, fmt.Errorf("%w: %s is empty", ErrInvalidDocument, name)
	}

	var batch Batch
	switch format {
	case FormatJSON, FormatYAML:
		batch, err = r.readDocument(format, payload, opts)
	case FormatCSV, FormatXLSX:
		model := strings.TrimSpace(opts.Model)
		if model == "" {
			model = slugify(strings.TrimSuffix(name, filepath.Ext(name)))
		}
		batch, err = r.readTable(format, payload, model)
	default:
		return Batch{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return Batch{}, err
	}

	for _, rejection := range batch.Rejected {
		r.logger.Warnw("Skipping entity",
			"source", name,
			"row", rejection.Row,
			"model", rejection.Model,
			"reason", rejection.Reason)
	}
	r.logger.Debugw("Read entities",
		"source", name,
		"format", format,
		"total", batch.Total,
		"accepted", len(batch.Entities),
		"rejected", len(batch.Rejected))

	return batch, nil
}

func detectFormat(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
