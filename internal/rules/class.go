package rules

import "strings"

// Class is the kind of binding a rule declares.
type Class int

const (
	ClassValue Class = iota + 1
	ClassHeader
	ClassRead
)

func (c Class) String() string {
	switch c {
	case ClassValue:
		return "value"
	case ClassHeader:
		return "header"
	case ClassRead:
		return "read"
	default:
		return "unknown"
	}
}

// ParseClass accepts the class column of the rules sheet, case-insensitively.
func ParseClass(s string) (Class, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "value":
		return ClassValue, true
	case "header":
		return ClassHeader, true
	case "read":
		return ClassRead, true
	}
	return 0, false
}
