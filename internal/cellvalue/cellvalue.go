// Package cellvalue normalizes scalar input before it is written to a cell.
package cellvalue

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var spaceReplacer = strings.NewReplacer(
	" ", "",
	"\u00a0", "",
	"\u202f", "",
	"\t", "",
)

// Coerce turns raw input into an int, a float64 or trimmed text. Numeric
// kinds pass through untouched; text such as "1 234,5" becomes 1234.5.
func Coerce(raw interface{}) interface{} {
	switch v := raw.(type) {
	case nil:
		return ""
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	case time.Time:
		return v
	case string:
		return coerceText(v)
	case fmt.Stringer:
		return coerceText(v.String())
	default:
		return coerceText(fmt.Sprint(v))
	}
}

func coerceText(s string) interface{} {
	trimmed := strings.TrimSpace(strings.Trim(s, "\u00a0\u202f"))
	if trimmed == "" {
		return ""
	}
	candidate := strings.ReplaceAll(spaceReplacer.Replace(trimmed), ",", ".")
	f, err := strconv.ParseFloat(candidate, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return trimmed
	}
	// ParseFloat accepts "Inf", "0x1p4" and similar; only plain decimals count.
	if strings.ContainsAny(candidate, "xXpPnN") {
		return trimmed
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int(f)
	}
	return f
}

// Text renders a value the way it reads back from a cell.
func Text(v interface{}) string {
	switch t := Coerce(v).(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		return t.Format("02.01.2006")
	default:
		return fmt.Sprint(t)
	}
}

// Int parses a cell text as a whole number, accepting "12.0" and "12,0".
func Int(s string) (int, bool) {
	switch v := Coerce(s).(type) {
	case int:
		return v, true
	case float64:
		return int(math.Round(v)), true
	}
	return 0, false
}
