package rules

import (
	"fmt"
	"strings"
	"sync"
)

// Target is a parsed rule target expression.
type Target struct {
	Formula bool
	// Sheet is empty when the expression names no worksheet.
	Sheet string
	// Address is a cell, a range or a defined name.
	Address string
}

type resolved struct {
	target Target
	err    error
}

// Resolver parses target expressions and remembers the results, since the
// same expression recurs on every row of a batch.
type Resolver struct {
	mu    sync.RWMutex
	cache map[string]resolved
}

func NewResolver() *Resolver {
	return &Resolver{cache: make(map[string]resolved)}
}

// Resolve parses expr. On malformed input it returns ErrMalformedTarget
// together with a best-effort literal Target.
func (r *Resolver) Resolve(expr string) (Target, error) {
	r.mu.RLock()
	res, ok := r.cache[expr]
	r.mu.RUnlock()
	if ok {
		return res.target, res.err
	}

	t, err := parseTarget(expr)
	r.mu.Lock()
	r.cache[expr] = resolved{target: t, err: err}
	r.mu.Unlock()
	return t, err
}

// Len is the number of cached expressions.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *Resolver) Clear() {
	r.mu.Lock()
	r.cache = make(map[string]resolved)
	r.mu.Unlock()
}

func parseTarget(expr string) (Target, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return Target{}, fmt.Errorf("%w: empty expression", ErrMalformedTarget)
	}
	if !strings.HasPrefix(s, "=") {
		return Target{Address: s}, nil
	}

	body := strings.TrimSpace(s[1:])
	if body == "" {
		return Target{Address: s}, fmt.Errorf("%w: %q has no address", ErrMalformedTarget, expr)
	}
	t := Target{Formula: true, Address: body}
	if i := strings.Index(body, "!"); i >= 0 {
		t.Sheet = strings.Trim(strings.TrimSpace(body[:i]), `'"`)
		t.Address = strings.TrimSpace(body[i+1:])
		if t.Address == "" {
			return Target{Address: body}, fmt.Errorf("%w: %q has no address", ErrMalformedTarget, expr)
		}
	}
	return t, nil
}
