// internal/schema/lineage.go
package schema

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/parser"
	"github.com/pingcap/tidb/parser/ast"
	_ "github.com/pingcap/tidb/parser/test_driver" // Value-expression driver registration
)

// LineageEntry maps one displayed view column back to the physical table it
// was selected from. Entries preserve SELECT-list order.
type LineageEntry struct {
	Column      string
	SourceTable string
}

// Lineage is the per-column source-table mapping of a view.
type Lineage []LineageEntry

// SourceOf returns the source table of a displayed column (case-insensitive).
func (l Lineage) SourceOf(column string) (string, bool) {
	for _, e := range l {
		if strings.EqualFold(e.Column, column) {
			return e.SourceTable, true
		}
	}
	return "", false
}

// ParseViewLineage parses a stored view definition and resolves, for every
// qualified column reference in the outermost SELECT list, the base table the
// column originates from. Two passes: first collect every FROM/JOIN table
// reference with its alias anywhere in the tree, then walk only the outermost
// SELECT list resolving alias.column references against that map. Unqualified
// and wildcard columns have no resolvable source and are omitted.
func ParseViewLineage(sqlText string) (Lineage, error) {
	p := parser.New()
	stmtNodes, _, err := p.Parse(sqlText, "", "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrViewLineageUnresolvable, err)
	}
	if len(stmtNodes) == 0 {
		return nil, fmt.Errorf("%w: empty definition", ErrViewLineageUnresolvable)
	}

	sel := outermostSelect(stmtNodes[0])
	if sel == nil {
		return nil, fmt.Errorf("%w: definition is not a SELECT", ErrViewLineageUnresolvable)
	}

	collector := &tableAliasCollector{aliases: make(map[string]string)}
	stmtNodes[0].Accept(collector)

	var lineage Lineage
	if sel.Fields == nil {
		return lineage, nil
	}
	for _, field := range sel.Fields.Fields {
		if field.WildCard != nil {
			continue
		}
		colExpr, ok := field.Expr.(*ast.ColumnNameExpr)
		if !ok {
			continue
		}
		qualifier := colExpr.Name.Table.L
		if qualifier == "" {
			continue
		}
		source, ok := collector.aliases[qualifier]
		if !ok {
			continue
		}
		column := field.AsName.O
		if column == "" {
			column = colExpr.Name.Name.O
		}
		lineage = append(lineage, LineageEntry{Column: column, SourceTable: source})
	}
	return lineage, nil
}

// outermostSelect unwraps CREATE VIEW ... AS SELECT or returns a bare SELECT.
// Nested sub-selects are intentionally not descended into.
func outermostSelect(stmt ast.StmtNode) *ast.SelectStmt {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		return s
	case *ast.CreateViewStmt:
		if sel, ok := s.Select.(*ast.SelectStmt); ok {
			return sel
		}
	}
	return nil
}

// tableAliasCollector gathers alias -> table bindings from every table source
// in the statement.
type tableAliasCollector struct {
	aliases map[string]string
}

func (c *tableAliasCollector) Enter(n ast.Node) (ast.Node, bool) {
	if ts, ok := n.(*ast.TableSource); ok {
		if tn, ok := ts.Source.(*ast.TableName); ok {
			alias := ts.AsName.L
			if alias == "" {
				alias = tn.Name.L
			}
			c.aliases[alias] = tn.Name.O
		}
	}
	return n, false
}

func (c *tableAliasCollector) Leave(n ast.Node) (ast.Node, bool) {
	return n, true
}
