// Package normalize turns free-form user input (Korean magnitude text, percentages,
// district nicknames) into canonical values.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/skosovsky/plantool/domain"
)

const opParseAmount = "parse_amount"

type magnitude struct {
	marker string
	value  int64
}

// magnitudes are scanned in this order; 천만 must precede 만 and 천.
var magnitudes = []magnitude{
	{"억", 100_000_000},
	{"천만", 10_000_000},
	{"만", 10_000},
	{"천", 1_000},
}

// digitUnits compose the numeric prefix of a marker, e.g. "3천5백" in "3천5백만".
var digitUnits = []magnitude{
	{"천", 1_000},
	{"백", 100},
	{"십", 10},
}

// loneThousandScale applies when the whole input is "<n>천" or "천" without a trailing 원:
// the amount is read in 천원 units. "5천원" spells out the unit and stays 5,000.
const loneThousandScale = 1_000_000

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// ParseAmount converts a numeric value or Korean magnitude text ("3억 5천만", "120,000원")
// into a MonetaryAmount. Numbers are truncated to whole won.
func ParseAmount(v any) (domain.MonetaryAmount, error) {
	switch x := v.(type) {
	case nil:
		return 0, domain.ParseError(opParseAmount, "value is required")
	case domain.MonetaryAmount:
		return fromInt(int64(x))
	case int:
		return fromInt(int64(x))
	case int32:
		return fromInt(int64(x))
	case int64:
		return fromInt(x)
	case float32:
		return fromFloat(float64(x))
	case float64:
		return fromFloat(x)
	case json.Number:
		return parseAmountText(x.String())
	case string:
		return parseAmountText(x)
	default:
		return 0, domain.ParseError(opParseAmount, "unsupported value type %T", v)
	}
}

func fromInt(n int64) (domain.MonetaryAmount, error) {
	if n < 0 {
		return 0, domain.RangeError(opParseAmount, "amount must not be negative, got %d", n)
	}
	return domain.MonetaryAmount(n), nil
}

func fromFloat(f float64) (domain.MonetaryAmount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, domain.ParseError(opParseAmount, "amount is not a finite number")
	}
	if f < 0 {
		return 0, domain.RangeError(opParseAmount, "amount must not be negative, got %v", f)
	}
	if f >= math.MaxInt64 {
		return 0, domain.RangeError(opParseAmount, "amount %v is too large", f)
	}
	return domain.MonetaryAmount(int64(f)), nil
}

func parseAmountText(raw string) (domain.MonetaryAmount, error) {
	text, won := cleanAmountText(raw)
	if text == "" {
		return 0, domain.ParseError(opParseAmount, "empty amount %q", raw)
	}
	if strings.HasPrefix(text, "-") {
		return 0, domain.RangeError(opParseAmount, "amount must not be negative, got %q", raw)
	}
	if isDecimal(text) {
		d, err := decimal.NewFromString(text)
		if err != nil {
			return 0, domain.ParseError(opParseAmount, "malformed number %q", raw)
		}
		return toAmount(d, raw)
	}
	if prefix, ok := strings.CutSuffix(text, "천"); ok && !won && (prefix == "" || isDecimal(prefix)) {
		d := decimal.NewFromInt(1)
		if prefix != "" {
			d, _ = decimal.NewFromString(prefix)
		}
		return toAmount(d.Mul(decimal.NewFromInt(loneThousandScale)), raw)
	}

	total := decimal.Zero
	rest := text
	for _, m := range magnitudes {
		idx := strings.Index(rest, m.marker)
		if idx < 0 {
			continue
		}
		n, err := parseMarkerPrefix(rest[:idx])
		if err != nil {
			return 0, domain.ParseError(opParseAmount, "malformed amount %q: %v", raw, err)
		}
		total = total.Add(n.Mul(decimal.NewFromInt(m.value)))
		rest = rest[idx+len(m.marker):]
	}
	if rest != "" {
		if !isDigits(rest) {
			return 0, domain.ParseError(opParseAmount, "unexpected text %q in amount %q", rest, raw)
		}
		n, _ := decimal.NewFromString(rest)
		total = total.Add(n)
	}
	return toAmount(total, raw)
}

// parseMarkerPrefix reads the multiplier in front of a magnitude marker. An empty prefix means 1.
func parseMarkerPrefix(prefix string) (decimal.Decimal, error) {
	if prefix == "" {
		return decimal.NewFromInt(1), nil
	}
	if isDecimal(prefix) {
		return decimal.NewFromString(prefix)
	}
	total := decimal.Zero
	rest := prefix
	for _, u := range digitUnits {
		idx := strings.Index(rest, u.marker)
		if idx < 0 {
			continue
		}
		head := rest[:idx]
		n := int64(1)
		if head != "" {
			if !isDigits(head) {
				return decimal.Zero, fmt.Errorf("unexpected %q before %s", head, u.marker)
			}
			n, _ = strconv.ParseInt(head, 10, 64)
		}
		total = total.Add(decimal.NewFromInt(n * u.value))
		rest = rest[idx+len(u.marker):]
	}
	if rest != "" {
		if !isDigits(rest) {
			return decimal.Zero, fmt.Errorf("unexpected %q", rest)
		}
		n, _ := strconv.ParseInt(rest, 10, 64)
		total = total.Add(decimal.NewFromInt(n))
	}
	if total.IsZero() {
		return decimal.Zero, fmt.Errorf("no digits in %q", prefix)
	}
	return total, nil
}

func toAmount(d decimal.Decimal, raw string) (domain.MonetaryAmount, error) {
	if d.IsNegative() {
		return 0, domain.RangeError(opParseAmount, "amount must not be negative, got %q", raw)
	}
	if d.GreaterThan(maxAmount) {
		return 0, domain.RangeError(opParseAmount, "amount %q is too large", raw)
	}
	return domain.MonetaryAmount(d.IntPart()), nil
}

// cleanAmountText strips separators and the currency marks; won reports a trailing 원.
func cleanAmountText(s string) (text string, won bool) {
	s = strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(s, "₩")
	s, won = strings.CutSuffix(s, "원")
	return s, won
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isDecimal accepts "12", "1.5"; rejects signs, exponents and bare dots.
func isDecimal(s string) bool {
	whole, frac, found := strings.Cut(s, ".")
	if !found {
		return isDigits(whole)
	}
	return isDigits(whole) && isDigits(frac)
}

// FormatAmount renders n in the canonical Korean form accepted by ParseAmount:
// "3억 5000만", "1만 5천", "4500". Amounts below 10,000 are plain digits.
func FormatAmount(n domain.MonetaryAmount) string {
	v := int64(n)
	if v < 10_000 {
		return strconv.FormatInt(v, 10)
	}
	eok := v / 100_000_000
	man := v % 100_000_000 / 10_000
	rest := v % 10_000

	var parts []string
	if eok > 0 {
		parts = append(parts, strconv.FormatInt(eok, 10)+"억")
	}
	if man > 0 {
		parts = append(parts, strconv.FormatInt(man, 10)+"만")
	}
	switch {
	case rest >= 1_000 && rest%1_000 == 0:
		parts = append(parts, strconv.FormatInt(rest/1_000, 10)+"천")
	case rest >= 1_000:
		parts = append(parts, strconv.FormatInt(rest/1_000, 10)+"천"+strconv.FormatInt(rest%1_000, 10))
	case rest > 0:
		parts = append(parts, strconv.FormatInt(rest, 10))
	}
	return strings.Join(parts, " ")
}
