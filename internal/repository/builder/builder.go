// Package builder assembles PostgreSQL statements. Conditions are written
// with "?" markers which Build numbers as $1, $2, ... in argument order.
package builder

import (
	"fmt"
	"strings"
)

type statement int

const (
	stmtSelect statement = iota + 1
	stmtInsert
	stmtDelete
)

type clause struct {
	sql  string
	args []interface{}
}

// SQLBuilder collects the parts of one statement.
type SQLBuilder struct {
	stmt    statement
	table   string
	columns []string
	rows    [][]interface{}
	where   []clause
	anyOf   []clause

	conflictTarget string
	conflictUpdate []string

	orderBy   []string
	limit     int
	offset    int
	returning []string
}

func NewSQLBuilder() *SQLBuilder {
	return &SQLBuilder{}
}

func (b *SQLBuilder) Select(cols ...string) *SQLBuilder {
	b.stmt = stmtSelect
	b.columns = cols
	return b
}

func (b *SQLBuilder) From(table string) *SQLBuilder {
	b.table = table
	return b
}

// Insert starts an INSERT; call Values once per row.
func (b *SQLBuilder) Insert(table string, cols ...string) *SQLBuilder {
	b.stmt = stmtInsert
	b.table = table
	b.columns = cols
	return b
}

func (b *SQLBuilder) Values(vals ...interface{}) *SQLBuilder {
	b.rows = append(b.rows, vals)
	return b
}

// OnConflict turns the insert into an upsert: on a clash on target the
// listed columns take the proposed values.
func (b *SQLBuilder) OnConflict(target string, update ...string) *SQLBuilder {
	b.conflictTarget = target
	b.conflictUpdate = update
	return b
}

func (b *SQLBuilder) Delete(table string) *SQLBuilder {
	b.stmt = stmtDelete
	b.table = table
	return b
}

// Where adds a condition; conditions are joined with AND.
func (b *SQLBuilder) Where(condition string, args ...interface{}) *SQLBuilder {
	b.where = append(b.where, clause{sql: condition, args: args})
	return b
}

// Or adds a condition to a parenthesised OR group that is ANDed with the
// Where conditions.
func (b *SQLBuilder) Or(condition string, args ...interface{}) *SQLBuilder {
	b.anyOf = append(b.anyOf, clause{sql: condition, args: args})
	return b
}

// WhereIn adds "col IN (...)". An empty list matches nothing.
func (b *SQLBuilder) WhereIn(col string, values ...interface{}) *SQLBuilder {
	if len(values) == 0 {
		return b.Where("FALSE")
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	return b.Where(col+" IN ("+marks+")", values...)
}

func (b *SQLBuilder) OrderBy(order string) *SQLBuilder {
	b.orderBy = append(b.orderBy, order)
	return b
}

func (b *SQLBuilder) Limit(limit int) *SQLBuilder {
	b.limit = limit
	return b
}

func (b *SQLBuilder) Offset(offset int) *SQLBuilder {
	b.offset = offset
	return b
}

func (b *SQLBuilder) Returning(cols ...string) *SQLBuilder {
	b.returning = cols
	return b
}

// numberer rewrites "?" markers and gathers their arguments.
type numberer struct {
	next int
	args []interface{}
}

func (n *numberer) rewrite(c clause) string {
	parts := strings.Split(c.sql, "?")
	var sb strings.Builder
	for i, p := range parts {
		sb.WriteString(p)
		if i < len(parts)-1 {
			n.next++
			fmt.Fprintf(&sb, "$%d", n.next)
		}
	}
	n.args = append(n.args, c.args...)
	return sb.String()
}

func (n *numberer) placeholders(vals []interface{}) string {
	marks := make([]string, len(vals))
	for i := range vals {
		n.next++
		marks[i] = fmt.Sprintf("$%d", n.next)
	}
	n.args = append(n.args, vals...)
	return "(" + strings.Join(marks, ", ") + ")"
}

// Build renders the statement and its arguments.
func (b *SQLBuilder) Build() (string, []interface{}) {
	var sb strings.Builder
	n := &numberer{}

	switch b.stmt {
	case stmtSelect:
		fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(b.columns, ", "), b.table)
	case stmtInsert:
		fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", b.table, strings.Join(b.columns, ", "))
		groups := make([]string, len(b.rows))
		for i, row := range b.rows {
			groups[i] = n.placeholders(row)
		}
		sb.WriteString(strings.Join(groups, ", "))
		if b.conflictTarget != "" {
			fmt.Fprintf(&sb, " ON CONFLICT (%s)", b.conflictTarget)
			if len(b.conflictUpdate) == 0 {
				sb.WriteString(" DO NOTHING")
			} else {
				sets := make([]string, len(b.conflictUpdate))
				for i, col := range b.conflictUpdate {
					sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
				}
				sb.WriteString(" DO UPDATE SET " + strings.Join(sets, ", "))
			}
		}
	case stmtDelete:
		fmt.Fprintf(&sb, "DELETE FROM %s", b.table)
	}

	var conds []string
	for _, c := range b.where {
		conds = append(conds, n.rewrite(c))
	}
	if len(b.anyOf) > 0 {
		alts := make([]string, len(b.anyOf))
		for i, c := range b.anyOf {
			alts[i] = n.rewrite(c)
		}
		if len(alts) == 1 && len(conds) == 0 {
			conds = append(conds, alts[0])
		} else {
			conds = append(conds, "("+strings.Join(alts, " OR ")+")")
		}
	}
	if len(conds) > 0 && b.stmt != stmtInsert {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY " + strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", b.limit)
	}
	if b.offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", b.offset)
	}
	if len(b.returning) > 0 {
		sb.WriteString(" RETURNING " + strings.Join(b.returning, ", "))
	}
	return sb.String(), n.args
}

// BuildSafe is Build plus consistency checks: insert rows must match the
// column list and every placeholder needs exactly one argument.
func (b *SQLBuilder) BuildSafe() (string, []interface{}, error) {
	if b.table == "" {
		return "", nil, fmt.Errorf("no table")
	}
	if b.stmt == stmtInsert {
		if len(b.rows) == 0 {
			return "", nil, fmt.Errorf("insert into %s has no rows", b.table)
		}
		for i, row := range b.rows {
			if len(row) != len(b.columns) {
				return "", nil, fmt.Errorf("row %d has %d values for %d columns", i+1, len(row), len(b.columns))
			}
		}
	}
	for _, c := range append(append([]clause{}, b.where...), b.anyOf...) {
		if marks := strings.Count(c.sql, "?"); marks != len(c.args) {
			return "", nil, fmt.Errorf("condition %q has %d placeholders and %d arguments", c.sql, marks, len(c.args))
		}
	}
	sql, args := b.Build()
	return sql, args, nil
}
