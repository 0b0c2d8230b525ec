package binding

import (
	"context"
	"sort"
	"strings"

	"github.com/locvowork/vacation_reports/internal/logger"
	"github.com/locvowork/vacation_reports/internal/rules"
)

// Column anchors one table field: data rows start right below HeaderRow.
type Column struct {
	Field     string
	Sheet     string
	Col       int
	HeaderRow int
}

// ColumnMapping is keyed by field name with the prefix removed.
type ColumnMapping map[string]Column

// BuildColumnMapping collects the Header rules whose field starts with
// prefix. An empty prefix takes every Header rule.
func BuildColumnMapping(ctx context.Context, doc Document, rs *rules.RuleSet, resolver *rules.Resolver, prefix, defaultSheet string) ColumnMapping {
	m := ColumnMapping{}
	for _, r := range rs.Headers() {
		if !strings.HasPrefix(r.Field, prefix) {
			continue
		}
		loc, err := Locate(doc, resolver, r.Target, defaultSheet)
		if err != nil {
			logger.WarnLog(ctx, "skip header rule %s -> %s: %v", r.Field, r.Target, err)
			continue
		}
		field := strings.TrimPrefix(r.Field, prefix)
		m[field] = Column{Field: field, Sheet: loc.Sheet, Col: loc.Col, HeaderRow: loc.Row}
	}
	return m
}

// Sheets lists the worksheets the mapping touches, sorted.
func (m ColumnMapping) Sheets() []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range m {
		if !seen[c.Sheet] {
			seen[c.Sheet] = true
			out = append(out, c.Sheet)
		}
	}
	sort.Strings(out)
	return out
}

// Bounds returns the column span and header row span of one sheet.
func (m ColumnMapping) Bounds(sheet string) (minCol, maxCol, minHeader, maxHeader int) {
	first := true
	for _, c := range m {
		if c.Sheet != sheet {
			continue
		}
		if first {
			minCol, maxCol, minHeader, maxHeader = c.Col, c.Col, c.HeaderRow, c.HeaderRow
			first = false
			continue
		}
		minCol = min(minCol, c.Col)
		maxCol = max(maxCol, c.Col)
		minHeader = min(minHeader, c.HeaderRow)
		maxHeader = max(maxHeader, c.HeaderRow)
	}
	return
}

// Fields returns the mapped field names ordered by sheet and column.
func (m ColumnMapping) Fields() []string {
	out := make([]string, 0, len(m))
	for f := range m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := m[out[i]], m[out[j]]
		if a.Sheet != b.Sheet {
			return a.Sheet < b.Sheet
		}
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		return a.Field < b.Field
	})
	return out
}
