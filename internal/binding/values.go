package binding

import (
	"context"
	"strings"

	"github.com/locvowork/vacation_reports/internal/cellvalue"
	"github.com/locvowork/vacation_reports/internal/logger"
	"github.com/locvowork/vacation_reports/internal/rules"
)

type ApplyResult struct {
	Written int
	// Skipped counts rules whose field is absent from the data.
	Skipped int
	Failed  int
	Errors  []error
}

// ApplyValues writes every Value rule whose field is present in data.
// A failing rule is logged and counted; it never stops the others.
func ApplyValues(ctx context.Context, doc Document, rs *rules.RuleSet, resolver *rules.Resolver, data map[string]interface{}, defaultSheet string) ApplyResult {
	var res ApplyResult
	for _, r := range rs.Values() {
		value, ok := data[r.Field]
		if !ok {
			res.Skipped++
			continue
		}
		loc, err := Locate(doc, resolver, r.Target, defaultSheet)
		if err == nil {
			err = doc.Set(loc.Sheet, loc.Cell, cellvalue.Coerce(value))
		}
		if err != nil {
			logger.WarnLog(ctx, "value rule %s -> %s failed: %v", r.Field, r.Target, err)
			res.Failed++
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Written++
	}
	return res
}

// ReadValues reads the cells behind the given rules, keyed by field. Rules
// that do not resolve are left out.
func ReadValues(ctx context.Context, doc Document, rs []rules.Rule, resolver *rules.Resolver, defaultSheet string) map[string]string {
	out := make(map[string]string, len(rs))
	for _, r := range rs {
		loc, err := Locate(doc, resolver, r.Target, defaultSheet)
		if err != nil {
			logger.DebugLog(ctx, "read rule %s -> %s: %v", r.Field, r.Target, err)
			continue
		}
		v, err := doc.Get(loc.Sheet, loc.Cell)
		if err != nil {
			logger.DebugLog(ctx, "read %s!%s: %v", loc.Sheet, loc.Cell, err)
			continue
		}
		out[r.Field] = strings.TrimSpace(v)
	}
	return out
}
