// Package sqlquery translates query descriptors into SQL for the SQLite repositories
package sqlquery

import (
	"fmt"
	"strings"

	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/repos"
)

var sqlOperators = map[query.Op]string{
	query.OpEq:  "=",
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

// Table describes an SQL table the descriptors are run against
type Table struct {
	// Name of the table
	Name string
	// The filterable fields
	Schema repos.Schema
	// Columns holding the latitude and longitude of a record - empty if the table has no location
	LatColumn, LonColumn string
}

// builder collects the clauses and arguments of a single statement
type builder struct {
	table        *Table
	whereClauses []string
	args         []interface{}
}

func (b *builder) addArg(value interface{}) string {
	b.args = append(b.args, value)
	return "?"
}

func (b *builder) addWhere(clause string) {
	b.whereClauses = append(b.whereClauses, clause)
}

func (b *builder) addCondition(c query.Condition) error {
	f, ok := b.table.Schema.Lookup(c.Field)
	if !ok {
		// Unknown fields cannot match anything
		b.addWhere("1 = 0")
		return nil
	}
	values, err := b.table.Schema.CoerceCondition(f, c)
	if err != nil {
		return err
	}
	column := quoteIdent(f.Column)
	if f.Kind == repos.KindList {
		// Lists are stored as JSON arrays
		if c.Op != query.OpEq && c.Op != query.OpIn {
			b.addWhere(fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE value %s %s)",
				column, sqlOperators[c.Op], b.addArg(values[0])))
			return nil
		}
		b.addWhere(fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE value IN (%s))",
			column, b.argList(values)))
		return nil
	}
	if c.Op == query.OpIn {
		if len(values) == 0 {
			b.addWhere("1 = 0")
			return nil
		}
		b.addWhere(fmt.Sprintf("%s IN (%s)", column, b.argList(values)))
		return nil
	}
	b.addWhere(fmt.Sprintf("%s %s %s", column, sqlOperators[c.Op], b.addArg(values[0])))
	return nil
}

func (b *builder) argList(values []interface{}) string {
	placeholders := make([]string, 0, len(values))
	for _, v := range values {
		placeholders = append(placeholders, b.addArg(v))
	}
	return strings.Join(placeholders, ", ")
}

func (b *builder) addGeo(g *query.GeoFilter) {
	if g == nil || b.table.LatColumn == "" {
		return
	}
	lat, lon := quoteIdent(b.table.LatColumn), quoteIdent(b.table.LonColumn)
	// Records without location never match. CASE keeps the function from being called with NULL values.
	b.addWhere(fmt.Sprintf("(CASE WHEN %s IS NULL OR %s IS NULL THEN 0 ELSE %s(%s, %s, %s, %s) <= %s END) = 1",
		lat, lon,
		AngularDistanceFunc, b.addArg(g.Center.Lat), b.addArg(g.Center.Lon), lat, lon,
		b.addArg(g.Radius),
	))
}

func (b *builder) where() string {
	if len(b.whereClauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.whereClauses, " AND ")
}

func (t *Table) filter(d *query.Descriptor) (*builder, error) {
	b := &builder{table: t}
	for _, c := range d.Filters {
		if err := b.addCondition(c); err != nil {
			return nil, err
		}
	}
	b.addGeo(d.Geo)
	return b, nil
}

// Count returns the statement counting all records matching the descriptor's filters
func (t *Table) Count(d *query.Descriptor) (string, []interface{}, error) {
	b, err := t.filter(d)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quoteIdent(t.Name), b.where()), b.args, nil
}

// Select returns the statement selecting the given columns of the requested page of matching records
func (t *Table) Select(columns string, d *query.Descriptor) (string, []interface{}, error) {
	b, err := t.filter(d)
	if err != nil {
		return "", nil, err
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s%s%s", columns, quoteIdent(t.Name), b.where(), t.orderBy(d.Sort))
	if d.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %s OFFSET %s", b.addArg(d.Limit), b.addArg(d.Skip))
	}
	return stmt, b.args, nil
}

// orderBy builds the ORDER BY clause - unknown sort fields are ignored. The ID is always used as last sort key to
// keep the paging stable.
func (t *Table) orderBy(keys []query.SortKey) string {
	var parts []string
	for _, k := range keys {
		f, ok := t.Schema.Lookup(k.Field)
		if !ok || f.Kind == repos.KindList {
			continue
		}
		dir := "ASC"
		if k.Descending {
			dir = "DESC"
		}
		parts = append(parts, quoteIdent(f.Column)+" "+dir)
	}
	parts = append(parts, quoteIdent("id")+" ASC")
	return " ORDER BY " + strings.Join(parts, ", ")
}

// quoteIdent quotes an SQL identifier. Identifiers only ever come from the schemas.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
