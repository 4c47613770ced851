package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/deanwagman/peregrine/internal/db"
	"github.com/deanwagman/peregrine/internal/domain"
)

// seqColumn keeps insertion order so ties in aggregation stay stable.
const seqColumn = "__peregrine_seq"

type column struct {
	name         string
	propertyType domain.PropertyType
}

type modelCatalog struct {
	table   string
	columns map[string]column
	order   []string
}

// entityRepository implements EntityStore on top of database/sql so the same
// code serves sqlite and postgres.
type entityRepository struct {
	conn   *db.Connection
	logger *zap.SugaredLogger
}

// NewEntityRepository creates a new entity repository
func NewEntityRepository(conn *db.Connection, logger *zap.SugaredLogger) EntityStore {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &entityRepository{conn: conn, logger: logger}
}

// Physical names never derive from model or slug text: sqlite folds identifier
// case, so "Vehicle" and "vehicle" would share a table.
func tableName(n int) string {
	return fmt.Sprintf("entity_%d", n)
}

func columnName(n int) string {
	return fmt.Sprintf("c%d", n)
}

// Save stores entities in a single transaction. Entities whose properties
// conflict with the recorded slug types are rejected individually.
func (r *entityRepository) Save(ctx context.Context, entities []domain.Entity) (SaveResult, error) {
	var result SaveResult
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		catalogs := make(map[string]*modelCatalog)
		for idx, entity := range entities {
			catalog, ok := catalogs[entity.Model]
			if !ok {
				loaded, err := r.ensureModel(ctx, tx, entity.Model)
				if err != nil {
					return err
				}
				catalog = loaded
				catalogs[entity.Model] = catalog
			}

			values, err := r.prepareRow(ctx, tx, entity, catalog)
			if err != nil {
				if errors.Is(err, ErrTypeConflict) {
					result.Rejected = append(result.Rejected, EntityRejection{Index: idx, Model: entity.Model, Reason: err.Error()})
					continue
				}
				return err
			}
			if err := r.insertRow(ctx, tx, catalog, values); err != nil {
				return err
			}
			result.Saved++
		}
		return nil
	})
	if err != nil {
		return SaveResult{}, fmt.Errorf("failed to save entities: %w", err)
	}

	for _, rejection := range result.Rejected {
		r.logger.Warnw("Entity not stored", "index", rejection.Index, "model", rejection.Model, "reason", rejection.Reason)
	}
	return result, nil
}

// ensureModel loads the catalog for model, registering the model and creating
// its table the first time it is seen.
func (r *entityRepository) ensureModel(ctx context.Context, tx *sql.Tx, model string) (*modelCatalog, error) {
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("model is required")
	}

	catalog, err := r.loadCatalog(ctx, tx, model)
	if err != nil {
		return nil, err
	}
	if catalog != nil {
		return catalog, nil
	}

	dialect := r.conn.Dialect
	table, err := r.nextTableName(ctx, tx)
	if err != nil {
		return nil, err
	}
	seqDef := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if dialect == db.PostgresDialect {
		seqDef = "BIGSERIAL PRIMARY KEY"
	}

	// No catalog row owns table, so anything under that name is a leftover
	// from "migrate down".
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+db.QuoteIdent(table)); err != nil {
		return nil, fmt.Errorf("failed to drop stale table for %s: %w", model, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s %s)", db.QuoteIdent(table), db.QuoteIdent(seqColumn), seqDef)); err != nil {
		return nil, fmt.Errorf("failed to create table for %s: %w", model, err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO model_catalog (model, table_name) VALUES (%s, %s)", dialect.Placeholder(1), dialect.Placeholder(2)),
		model, table,
	); err != nil {
		return nil, fmt.Errorf("failed to register model %s: %w", model, err)
	}

	r.logger.Debugw("Registered model", "model", model, "table", table)
	return &modelCatalog{table: table, columns: map[string]column{}}, nil
}

// nextTableName returns the first entity_<n> not owned by a catalog row.
func (r *entityRepository) nextTableName(ctx context.Context, tx *sql.Tx) (string, error) {
	rows, err := tx.QueryContext(ctx, "SELECT table_name FROM model_catalog")
	if err != nil {
		return "", fmt.Errorf("failed to list model tables: %w", err)
	}
	defer rows.Close()

	owned := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", fmt.Errorf("failed to scan model table: %w", err)
		}
		owned[strings.ToLower(name)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to iterate model tables: %w", err)
	}

	for n := len(owned) + 1; ; n++ {
		if _, taken := owned[tableName(n)]; !taken {
			return tableName(n), nil
		}
	}
}

// prepareRow maps an entity's properties onto catalog columns, adding columns
// for slugs the model has not carried before.
func (r *entityRepository) prepareRow(ctx context.Context, tx *sql.Tx, entity domain.Entity, catalog *modelCatalog) (map[string]domain.Value, error) {
	values := make(map[string]domain.Value, len(entity.Properties))
	var added []domain.Property

	for _, property := range entity.Properties {
		if property.Value.IsNull() {
			continue
		}
		propertyType := property.Type
		if propertyType == "" {
			propertyType = domain.TypeOf(property.Value)
		}

		existing, ok := catalog.columns[property.Slug]
		if !ok {
			value, err := property.Value.Coerce(propertyType)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrTypeConflict, property.Slug, err)
			}
			added = append(added, domain.Property{Slug: property.Slug, Type: propertyType, Value: value})
			continue
		}
		if !typesCompatible(existing.propertyType, propertyType) {
			return nil, fmt.Errorf("%w: %q is %s, got %s", ErrTypeConflict, property.Slug, existing.propertyType, propertyType)
		}
		value, err := property.Value.Coerce(existing.propertyType)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrTypeConflict, property.Slug, err)
		}
		values[existing.name] = value
	}

	for _, property := range added {
		col, err := r.addColumn(ctx, tx, entity.Model, catalog, property.Slug, property.Type)
		if err != nil {
			return nil, err
		}
		values[col.name] = property.Value
	}
	return values, nil
}

func typesCompatible(existing, incoming domain.PropertyType) bool {
	if existing == incoming {
		return true
	}
	// Integers widen into float columns.
	return existing == domain.PropertyTypeFloat && incoming == domain.PropertyTypeInteger
}

func (r *entityRepository) addColumn(ctx context.Context, tx *sql.Tx, model string, catalog *modelCatalog, slug string, propertyType domain.PropertyType) (column, error) {
	sqlType, err := r.columnType(propertyType)
	if err != nil {
		return column{}, err
	}
	n := len(catalog.columns) + 1
	for catalog.hasColumn(columnName(n)) {
		n++
	}
	col := column{name: columnName(n), propertyType: propertyType}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
		db.QuoteIdent(catalog.table), db.QuoteIdent(col.name), sqlType)); err != nil {
		return column{}, fmt.Errorf("failed to add column %s to %s: %w", slug, catalog.table, err)
	}

	dialect := r.conn.Dialect
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO property_catalog (model, slug, column_name, type) VALUES (%s, %s, %s, %s)",
			dialect.Placeholder(1), dialect.Placeholder(2), dialect.Placeholder(3), dialect.Placeholder(4)),
		model, slug, col.name, string(propertyType),
	); err != nil {
		return column{}, fmt.Errorf("failed to record property %s.%s: %w", model, slug, err)
	}

	catalog.columns[slug] = col
	catalog.order = append(catalog.order, slug)
	return col, nil
}

func (c *modelCatalog) hasColumn(name string) bool {
	for _, col := range c.columns {
		if strings.EqualFold(col.name, name) {
			return true
		}
	}
	return false
}

func (r *entityRepository) columnType(propertyType domain.PropertyType) (string, error) {
	postgres := r.conn.Dialect == db.PostgresDialect
	switch propertyType {
	case domain.PropertyTypeString:
		return "TEXT", nil
	case domain.PropertyTypeInteger:
		if postgres {
			return "BIGINT", nil
		}
		return "INTEGER", nil
	case domain.PropertyTypeFloat:
		if postgres {
			return "DOUBLE PRECISION", nil
		}
		return "REAL", nil
	case domain.PropertyTypeBoolean:
		// sqlite keeps booleans as 0/1 integers.
		return "BOOLEAN", nil
	default:
		return "", fmt.Errorf("unknown property type %q", propertyType)
	}
}

func (r *entityRepository) insertRow(ctx context.Context, tx *sql.Tx, catalog *modelCatalog, values map[string]domain.Value) error {
	table := db.QuoteIdent(catalog.table)
	if len(values) == 0 {
		if _, err := tx.ExecContext(ctx, "INSERT INTO "+table+" DEFAULT VALUES"); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", catalog.table, err)
		}
		return nil
	}

	columns := make([]string, 0, len(values))
	placeholders := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for _, slug := range catalog.order {
		col := catalog.columns[slug]
		value, ok := values[col.name]
		if !ok {
			continue
		}
		columns = append(columns, db.QuoteIdent(col.name))
		args = append(args, value.Any())
		placeholders = append(placeholders, r.conn.Dialect.Placeholder(len(args)))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", catalog.table, err)
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// loadCatalog returns nil, nil for a model that was never stored.
func (r *entityRepository) loadCatalog(ctx context.Context, q queryer, model string) (*modelCatalog, error) {
	dialect := r.conn.Dialect

	var table string
	err := q.QueryRowContext(ctx,
		"SELECT table_name FROM model_catalog WHERE model = "+dialect.Placeholder(1), model,
	).Scan(&table)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", model, err)
	}

	rows, err := q.QueryContext(ctx,
		"SELECT slug, column_name, type FROM property_catalog WHERE model = "+dialect.Placeholder(1)+" ORDER BY slug",
		model,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load properties of %s: %w", model, err)
	}
	defer rows.Close()

	catalog := &modelCatalog{table: table, columns: map[string]column{}}
	for rows.Next() {
		var slug, name, propertyType string
		if err := rows.Scan(&slug, &name, &propertyType); err != nil {
			return nil, fmt.Errorf("failed to scan property of %s: %w", model, err)
		}
		catalog.columns[slug] = column{name: name, propertyType: domain.PropertyType(propertyType)}
		catalog.order = append(catalog.order, slug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate properties of %s: %w", model, err)
	}
	return catalog, nil
}

// Models lists every stored model in name order.
func (r *entityRepository) Models(ctx context.Context) ([]string, error) {
	rows, err := r.conn.DB.QueryContext(ctx, "SELECT model FROM model_catalog ORDER BY model")
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	models := []string{}
	for rows.Next() {
		var model string
		if err := rows.Scan(&model); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		models = append(models, model)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate models: %w", err)
	}
	return models, nil
}

// Query returns the records of model that satisfy filter. Filtering happens in
// SQL; an unknown model, an unknown filter slug or a slug whose values cannot
// match the column type produce no records. Column values are converted back
// to their catalog type, so booleans held as 0/1 surface as booleans.
func (r *entityRepository) Query(ctx context.Context, model string, filter domain.FilterMap) ([]domain.Record, error) {
	catalog, err := r.loadCatalog(ctx, r.conn.DB, model)
	if err != nil {
		return nil, err
	}
	if catalog == nil {
		r.logger.Debugw("Unknown model", "model", model)
		return []domain.Record{}, nil
	}

	dialect := r.conn.Dialect
	var (
		conditions []string
		args       []any
	)
	for _, slug := range filter.Keys() {
		col, ok := catalog.columns[slug]
		if !ok {
			r.logger.Debugw("Filter on property the model does not carry", "model", model, "property", slug)
			return []domain.Record{}, nil
		}
		seen := make(map[string]struct{})
		var placeholders []string
		for _, candidate := range filter[slug] {
			value, ok := candidate.ForColumn(col.propertyType)
			if !ok {
				continue
			}
			if _, dup := seen[value.Key()]; dup {
				continue
			}
			seen[value.Key()] = struct{}{}
			args = append(args, value.Any())
			placeholders = append(placeholders, dialect.Placeholder(len(args)))
		}
		if len(placeholders) == 0 {
			return []domain.Record{}, nil
		}
		conditions = append(conditions, fmt.Sprintf("%s IN (%s)", db.QuoteIdent(col.name), strings.Join(placeholders, ", ")))
	}

	selected := make([]string, 0, len(catalog.order))
	for _, slug := range catalog.order {
		selected = append(selected, db.QuoteIdent(catalog.columns[slug].name))
	}
	if len(selected) == 0 {
		selected = append(selected, db.QuoteIdent(seqColumn))
	}

	var query strings.Builder
	fmt.Fprintf(&query, "SELECT %s FROM %s", strings.Join(selected, ", "), db.QuoteIdent(catalog.table))
	if len(conditions) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(conditions, " AND "))
	}
	query.WriteString(" ORDER BY " + db.QuoteIdent(seqColumn))

	rows, err := r.conn.DB.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", model, err)
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		raw := make([]any, len(selected))
		dest := make([]any, len(selected))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", model, err)
		}

		record := make(domain.Record, len(catalog.order))
		for i, slug := range catalog.order {
			value, err := normalizeColumn(raw[i], catalog.columns[slug].propertyType)
			if err != nil {
				return nil, fmt.Errorf("failed to decode %s.%s: %w", model, slug, err)
			}
			if value.IsNull() {
				continue
			}
			record[slug] = value
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", model, err)
	}

	r.logger.Debugw("Queried model", "model", model, "records", len(records))
	return records, nil
}

func normalizeColumn(raw any, propertyType domain.PropertyType) (domain.Value, error) {
	value, err := domain.ValueOf(raw)
	if err != nil {
		return domain.Value{}, err
	}
	return value.Coerce(propertyType)
}
