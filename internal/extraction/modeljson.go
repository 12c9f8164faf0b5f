package extraction

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// cleanModelJSON strips Markdown fences and any prose around the outermost
// JSON object or array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	first, last := "{", "}"
	if obj, arr := strings.Index(s, "{"), strings.Index(s, "["); arr != -1 && (obj == -1 || arr < obj) {
		first, last = "[", "]"
	}
	if start := strings.Index(s, first); start != -1 {
		if end := strings.LastIndex(s, last); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

func getStringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

var amountCleaner = strings.NewReplacer("₹", "", "Rs.", "", "Rs", "", "INR", "", ",", "", " ", "")

// getDecimalField accepts JSON numbers and numeric strings with currency
// markers or grouping commas.
func getDecimalField(m map[string]any, key string) (decimal.Decimal, error) {
	switch v := m[key].(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case string:
		d, err := decimal.NewFromString(amountCleaner.Replace(strings.TrimSpace(v)))
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q: %w", key, err)
		}
		return d, nil
	case nil:
		return decimal.Zero, fmt.Errorf("missing field %q", key)
	default:
		return decimal.Zero, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}
