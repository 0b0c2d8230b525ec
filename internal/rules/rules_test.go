package rules

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/locvowork/vacation_reports/pkg/workbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, rows [][]string, withRulesSheet bool) string {
	t.Helper()
	doc, err := workbook.New("Report")
	require.NoError(t, err)
	defer doc.Close()

	if withRulesSheet {
		require.NoError(t, doc.AddSheet(DefaultSheet))
		require.NoError(t, doc.Set(DefaultSheet, "A1", "target"))
		require.NoError(t, doc.Set(DefaultSheet, "B1", "field"))
		require.NoError(t, doc.Set(DefaultSheet, "C1", "class"))
		for i, r := range rows {
			for j, v := range r {
				require.NoError(t, doc.Set(DefaultSheet, workbook.CellName(j+1, i+2), v))
			}
		}
	}
	path := filepath.Join(t.TempDir(), "template.xlsx")
	require.NoError(t, doc.SaveAs(path))
	return path
}

func TestParseClass(t *testing.T) {
	tests := []struct {
		in   string
		want Class
		ok   bool
	}{
		{"value", ClassValue, true},
		{" HEADER ", ClassHeader, true},
		{"Read", ClassRead, true},
		{"formula", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseClass(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCatalogLoad(t *testing.T) {
	path := writeTemplate(t, [][]string{
		{"=Report!B10", "full_name", "value"},
		{"=Report!B11", "tab_number", "Value"},
		{"=Report!B10", "position", "value"}, // last write wins
		{"=Report!A5", "report_employee_name", "header"},
		{"=Report!C3", "total", "read"},
		{"=Report!C4", "ignored", "formula"},
		{"", "blank_target", "value"},
		{"=Report!C5", "", "value"},
	}, true)

	cat := NewCatalog("")
	rs, err := cat.Load(context.Background(), path)
	require.NoError(t, err)

	values := rs.Values()
	require.Len(t, values, 2)
	assert.Equal(t, Rule{Class: ClassValue, Target: "=Report!B10", Field: "position"}, values[0])
	assert.Equal(t, "tab_number", values[1].Field)
	assert.Equal(t, 1, rs.Count(ClassHeader))
	assert.Equal(t, 1, rs.Count(ClassRead))
	assert.Equal(t, 4, rs.Len())

	target, ok := rs.TargetFor(ClassRead, "total")
	assert.True(t, ok)
	assert.Equal(t, "=Report!C3", target)

	assert.True(t, cat.Cached(path))
	again, err := cat.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Same(t, rs, again)

	cat.Clear()
	assert.False(t, cat.Cached(path))
}

func TestCatalogLoadErrors(t *testing.T) {
	t.Run("missing sheet", func(t *testing.T) {
		path := writeTemplate(t, nil, false)
		_, err := NewCatalog("").Load(context.Background(), path)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingRuleSheet))

		var rerr *Error
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, KindMissingRuleSheet, rerr.Kind)
		assert.Equal(t, path, rerr.Path)
	})

	t.Run("empty rule set", func(t *testing.T) {
		path := writeTemplate(t, [][]string{{"=Report!A1", "x", "bogus"}}, true)
		_, err := NewCatalog("").Load(context.Background(), path)
		assert.True(t, errors.Is(err, ErrEmptyRuleSet))
	})

	t.Run("unreadable file", func(t *testing.T) {
		_, err := NewCatalog("").Load(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"))
		var rerr *Error
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, KindUnreadable, rerr.Kind)
	})
}

func TestResolver(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    Target
		wantErr bool
	}{
		{"sheet qualified", "=Report!B10", Target{Formula: true, Sheet: "Report", Address: "B10"}, false},
		{"quoted sheet", "='Отчет по блоку'!$C$3", Target{Formula: true, Sheet: "Отчет по блоку", Address: "$C$3"}, false},
		{"formula without sheet", "=B2", Target{Formula: true, Address: "B2"}, false},
		{"plain cell", " A1 ", Target{Address: "A1"}, false},
		{"defined name", "employee_name", Target{Address: "employee_name"}, false},
		{"bare equals", "=", Target{Address: "="}, true},
		{"sheet without address", "=Report!", Target{Address: "Report!"}, true},
		{"blank", "  ", Target{}, true},
	}
	r := NewResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.expr)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedTarget)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	n := r.Len()
	_, _ = r.Resolve("=Report!B10")
	assert.Equal(t, n, r.Len(), "repeated expressions are served from the cache")
	r.Clear()
	assert.Equal(t, 0, r.Len())
}
