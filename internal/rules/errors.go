package rules

import (
	"errors"
	"fmt"
)

var (
	ErrMissingRuleSheet = errors.New("template has no rules sheet")
	ErrEmptyRuleSet     = errors.New("rules sheet has no valid rules")
	ErrMalformedTarget  = errors.New("malformed target expression")
)

// Kind classifies a rule loading failure.
type Kind int

const (
	KindMissingRuleSheet Kind = iota + 1
	KindEmptyRuleSet
	KindUnreadable
)

// Error is returned by Catalog.Load. It is fatal for any batch that needs
// the template.
type Error struct {
	Kind  Kind
	Path  string
	Sheet string
	Err   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMissingRuleSheet:
		return fmt.Sprintf("rules: %s: sheet %q not found", e.Path, e.Sheet)
	case KindEmptyRuleSet:
		return fmt.Sprintf("rules: %s: sheet %q has no valid rules", e.Path, e.Sheet)
	default:
		return fmt.Sprintf("rules: %s: %v", e.Path, e.Err)
	}
}

func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindMissingRuleSheet:
		return ErrMissingRuleSheet
	case KindEmptyRuleSet:
		return ErrEmptyRuleSet
	default:
		return e.Err
	}
}
