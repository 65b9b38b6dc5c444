// internal/schema/inspector.go
package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/formbridge/formbridge-backend/config"
	"github.com/formbridge/formbridge-backend/internal/cache"
	"github.com/formbridge/formbridge-backend/internal/core"
	"github.com/formbridge/formbridge-backend/internal/domain"
	"github.com/formbridge/formbridge-backend/internal/logger"
)

// Specific errors for schema inspection
var (
	ErrSchemaNotFound          = errors.New("schema not found for the given table or view")
	ErrPrimaryKeyNotFound      = errors.New("no primary key column could be resolved")
	ErrViewLineageUnresolvable = errors.New("view lineage could not be resolved")
	customLog                  = logger.NewLogger()
)

// ColumnInfo is one catalog column of a table or view.
type ColumnInfo struct {
	Name            string `json:"name"`
	DeclaredType    string `json:"declared_type"`
	OrdinalPosition int    `json:"ordinal_position"`
}

// PKInfo is the resolved primary key of a table or view.
type PKInfo struct {
	ColumnName   string
	DeclaredType string
}

// Inspector queries live catalog metadata for caller-named tables and views.
type Inspector struct {
	db           *sql.DB
	cfg          *config.Config
	lineageCache *cache.Cache
}

func NewInspector(db *sql.DB, cfg *config.Config) *Inspector {
	return &Inspector{
		db:           db,
		cfg:          cfg,
		lineageCache: cache.New(cfg.LineageCacheTTL),
	}
}

// matchesQueryType applies the view-name prefix convention: view-only mode
// requires the prefix, table-only mode forbids it, All accepts either.
func (ins *Inspector) matchesQueryType(name string, queryType domain.SchemaQueryType) bool {
	isView := strings.HasPrefix(strings.ToUpper(name), ins.cfg.ViewNamePrefix)
	switch queryType {
	case domain.QueryOnlyView:
		return isView
	case domain.QueryOnlyTable:
		return !isView
	default:
		return true
	}
}

// ListColumns returns the ordered catalog columns of a table or view, filtered
// by the schema query type's naming convention. An empty result yields
// ErrSchemaNotFound.
func (ins *Inspector) ListColumns(ctx context.Context, name string, queryType domain.SchemaQueryType) ([]ColumnInfo, error) {
	if !core.IsValidIdentifier(name) {
		return nil, fmt.Errorf("%w: invalid name %q", ErrSchemaNotFound, name)
	}
	if !ins.matchesQueryType(name, queryType) {
		return nil, fmt.Errorf("%w: %q does not match query type %s", ErrSchemaNotFound, name, queryType)
	}

	columns, err := ins.pragmaColumns(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, name)
	}
	return columns, nil
}

// ResolvePrimaryKey scans catalog columns in ordinal order and returns the
// first whose name contains a configured primary-key fragment. Heuristic by
// design: views carry no key metadata in the catalog.
func (ins *Inspector) ResolvePrimaryKey(ctx context.Context, name string) (*PKInfo, error) {
	if !core.IsValidIdentifier(name) {
		return nil, fmt.Errorf("%w: invalid name %q", ErrSchemaNotFound, name)
	}
	columns, err := ins.pragmaColumns(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, name)
	}
	for _, col := range columns {
		upperName := strings.ToUpper(col.Name)
		for _, fragment := range ins.cfg.PKNameFragments {
			if strings.Contains(upperName, fragment) {
				return &PKInfo{ColumnName: col.Name, DeclaredType: col.DeclaredType}, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPrimaryKeyNotFound, name)
}

// IsIdentityColumn reports whether the column is the server-generated key of
// the table (the catalog's single INTEGER primary key).
func (ins *Inspector) IsIdentityColumn(ctx context.Context, table, column string) (bool, error) {
	if !core.IsValidIdentifier(table) {
		return false, fmt.Errorf("%w: invalid name %q", ErrSchemaNotFound, table)
	}

	pragmaSQL := fmt.Sprintf("PRAGMA table_info(%s);", table)
	rows, err := ins.db.QueryContext(ctx, pragmaSQL)
	if err != nil {
		return false, fmt.Errorf("failed to retrieve schema for %s: %w", table, err)
	}
	defer rows.Close()

	pkCount := 0
	isIdentity := false
	found := false
	for rows.Next() {
		var cid, notnull, pk int
		var name, sqlType string
		var dfltValue sql.NullString
		if err := rows.Scan(&cid, &name, &sqlType, &notnull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("failed to parse schema for %s: %w", table, err)
		}
		found = true
		if pk > 0 {
			pkCount++
		}
		if strings.EqualFold(name, column) {
			isIdentity = pk == 1 && strings.EqualFold(strings.TrimSpace(sqlType), "INTEGER")
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("failed to read schema for %s: %w", table, err)
	}
	if !found {
		return false, fmt.Errorf("%w: %s", ErrSchemaNotFound, table)
	}
	// Composite keys are never server-generated.
	return isIdentity && pkCount == 1, nil
}

// ViewColumnLineage resolves which base table each displayed column of the
// view originates from, caching the result for the configured TTL.
func (ins *Inspector) ViewColumnLineage(ctx context.Context, viewName string) (Lineage, error) {
	if !core.IsValidIdentifier(viewName) {
		return nil, fmt.Errorf("%w: invalid view name %q", ErrViewLineageUnresolvable, viewName)
	}

	if cached, ok := ins.lineageCache.Lookup(strings.ToLower(viewName)); ok {
		return cached.(Lineage), nil
	}

	var definition sql.NullString
	lookupSQL := `SELECT sql FROM sqlite_master WHERE type = 'view' AND name = ? COLLATE NOCASE LIMIT 1`
	err := ins.db.QueryRowContext(ctx, lookupSQL, viewName).Scan(&definition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: view %s has no stored definition", ErrViewLineageUnresolvable, viewName)
	}
	if err != nil {
		return nil, fmt.Errorf("database error reading view definition for %s: %w", viewName, err)
	}
	if !definition.Valid || strings.TrimSpace(definition.String) == "" {
		return nil, fmt.Errorf("%w: view %s has no stored definition", ErrViewLineageUnresolvable, viewName)
	}

	lineage, err := ParseViewLineage(definition.String)
	if err != nil {
		customLog.Warnf("Schema: Failed to parse definition of view '%s': %v", viewName, err)
		return nil, err
	}

	ins.lineageCache.Store(strings.ToLower(viewName), lineage)
	return lineage, nil
}

// InvalidateLineage drops the cached lineage for a view. Must be called
// synchronously whenever a form's view binding changes.
func (ins *Inspector) InvalidateLineage(viewName string) {
	ins.lineageCache.Invalidate(strings.ToLower(viewName))
}

// pragmaColumns reads the catalog columns of a pre-validated name.
func (ins *Inspector) pragmaColumns(ctx context.Context, name string) ([]ColumnInfo, error) {
	pragmaSQL := fmt.Sprintf("PRAGMA table_info(%s);", name) // name is pre-validated
	rows, err := ins.db.QueryContext(ctx, pragmaSQL)
	if err != nil {
		customLog.Warnf("Schema: Failed PRAGMA for '%s': %v", name, err)
		return nil, fmt.Errorf("failed to retrieve schema for %s: %w", name, err)
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var cid, notnull, pk int
		var colName, sqlType string
		var dfltValue sql.NullString
		if err := rows.Scan(&cid, &colName, &sqlType, &notnull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to parse schema for %s: %w", name, err)
		}
		columns = append(columns, ColumnInfo{
			Name:            colName,
			DeclaredType:    sqlType,
			OrdinalPosition: cid + 1,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read schema for %s: %w", name, err)
	}
	return columns, nil
}
