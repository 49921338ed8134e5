package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/skosovsky/plantool/domain"
)

const opParseRatio = "parse_ratio"

// ParseRatio converts 30, "30", or "30 %" into an integer percentage in [0, 100].
func ParseRatio(v any) (int, error) {
	var n int64
	switch x := v.(type) {
	case nil:
		return 0, domain.ParseError(opParseRatio, "value is required")
	case int:
		n = int64(x)
	case int64:
		n = x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return 0, domain.ParseError(opParseRatio, "ratio must be a whole number, got %v", x)
		}
		if x < 0 || x > 100 {
			return 0, domain.RangeError(opParseRatio, "ratio must be between 0 and 100, got %v", x)
		}
		n = int64(x)
	case json.Number:
		return parseRatioText(x.String())
	case string:
		return parseRatioText(x)
	default:
		return 0, domain.ParseError(opParseRatio, "unsupported value type %T", v)
	}
	return checkRatio(n)
}

func parseRatioText(raw string) (int, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimSpace(strings.TrimSuffix(text, "%"))
	if text == "" {
		return 0, domain.ParseError(opParseRatio, "empty ratio %q", raw)
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, domain.ParseError(opParseRatio, "malformed ratio %q", raw)
	}
	return checkRatio(n)
}

func checkRatio(n int64) (int, error) {
	if n < 0 || n > 100 {
		return 0, domain.RangeError(opParseRatio, "ratio must be between 0 and 100, got %d", n)
	}
	return int(n), nil
}
