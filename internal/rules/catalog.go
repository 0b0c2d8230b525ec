// Package rules reads the binding rules a template declares on its reserved
// worksheet and resolves their target expressions.
package rules

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/locvowork/vacation_reports/internal/logger"
	"github.com/locvowork/vacation_reports/pkg/workbook"
)

// DefaultSheet is the reserved worksheet name.
const DefaultSheet = "rules"

// Rule binds a target expression to a logical field.
type Rule struct {
	Class  Class
	Target string
	Field  string
}

// RuleSet holds the rules of one template grouped by class. It is never
// modified after load.
type RuleSet struct {
	byClass map[Class]map[string]string
}

func newRuleSet() *RuleSet {
	return &RuleSet{byClass: map[Class]map[string]string{
		ClassValue:  {},
		ClassHeader: {},
		ClassRead:   {},
	}}
}

// Rules returns the rules of a class sorted by target.
func (rs *RuleSet) Rules(c Class) []Rule {
	m := rs.byClass[c]
	out := make([]Rule, 0, len(m))
	for target, field := range m {
		out = append(out, Rule{Class: c, Target: target, Field: field})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

func (rs *RuleSet) Values() []Rule  { return rs.Rules(ClassValue) }
func (rs *RuleSet) Headers() []Rule { return rs.Rules(ClassHeader) }
func (rs *RuleSet) Reads() []Rule   { return rs.Rules(ClassRead) }

// Count returns the number of rules of a class.
func (rs *RuleSet) Count(c Class) int { return len(rs.byClass[c]) }

// Len is the total number of rules.
func (rs *RuleSet) Len() int {
	n := 0
	for _, m := range rs.byClass {
		n += len(m)
	}
	return n
}

// TargetFor returns the target of the first rule of class c bound to field.
func (rs *RuleSet) TargetFor(c Class, field string) (string, bool) {
	for _, r := range rs.Rules(c) {
		if r.Field == field {
			return r.Target, true
		}
	}
	return "", false
}

// Parse builds a RuleSet from the reserved worksheet of an open document.
// Row 1 is the caption row.
func Parse(doc *workbook.Document, sheet string) (*RuleSet, error) {
	if sheet == "" {
		sheet = DefaultSheet
	}
	if !doc.HasSheet(sheet) {
		return nil, &Error{Kind: KindMissingRuleSheet, Path: doc.Path(), Sheet: sheet}
	}
	rows, err := doc.Rows(sheet)
	if err != nil {
		return nil, &Error{Kind: KindUnreadable, Path: doc.Path(), Sheet: sheet, Err: err}
	}

	rs := newRuleSet()
	for i, row := range rows {
		if i == 0 || len(row) < 3 {
			continue
		}
		target := strings.TrimSpace(row[0])
		field := strings.TrimSpace(row[1])
		if target == "" || field == "" {
			continue
		}
		class, ok := ParseClass(row[2])
		if !ok {
			continue
		}
		rs.byClass[class][target] = field
	}
	if rs.Len() == 0 {
		return nil, &Error{Kind: KindEmptyRuleSet, Path: doc.Path(), Sheet: sheet}
	}
	return rs, nil
}

// Catalog caches rule sets by template path for the duration of one run.
type Catalog struct {
	sheet    string
	resolver *Resolver

	mu   sync.Mutex
	sets map[string]*RuleSet
}

func NewCatalog(sheet string) *Catalog {
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &Catalog{sheet: sheet, resolver: NewResolver(), sets: make(map[string]*RuleSet)}
}

func (c *Catalog) Sheet() string       { return c.sheet }
func (c *Catalog) Resolver() *Resolver { return c.resolver }

// Load returns the rule set of the template at path, reading it on first use.
func (c *Catalog) Load(ctx context.Context, path string) (*RuleSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rs, ok := c.sets[path]; ok {
		return rs, nil
	}

	doc, err := workbook.Open(path)
	if err != nil {
		return nil, &Error{Kind: KindUnreadable, Path: path, Sheet: c.sheet, Err: err}
	}
	defer doc.Close()

	rs, err := Parse(doc, c.sheet)
	if err != nil {
		var rerr *Error
		if errors.As(err, &rerr) {
			rerr.Path = path
		}
		return nil, err
	}
	logger.DebugLog(ctx, "loaded %d rules from %s (value=%d header=%d read=%d)",
		rs.Len(), path, rs.Count(ClassValue), rs.Count(ClassHeader), rs.Count(ClassRead))
	c.sets[path] = rs
	return rs, nil
}

// Cached reports whether path has been loaded.
func (c *Catalog) Cached(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sets[path]
	return ok
}

// Clear drops every cached rule set and resolved expression.
func (c *Catalog) Clear() {
	c.mu.Lock()
	c.sets = make(map[string]*RuleSet)
	c.mu.Unlock()
	c.resolver.Clear()
}
