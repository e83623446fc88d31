package venue

import (
	"log/slog"
	"sort"
	"strings"
)

// DefaultQuoteCurrencies is the fallback quote-currency set used by
// ExtractBaseQuote when the caller doesn't supply a configured set (spec
// §6, §9 open question: the config input is exposed but no values beyond
// this default are prescribed).
var DefaultQuoteCurrencies = []string{"USDT", "USDC", "BUSD", "DAI", "TUSD", "USDD"}

// Normalize strips "-", "/", and spaces and uppercases, producing the
// canonical cross-boundary symbol form. normalize(normalize(s)) == normalize(s)
// for every string s.
func Normalize(symbol string) string {
	s := strings.TrimSpace(symbol)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, " ", "")
	return strings.ToUpper(s)
}

// ToHyphenated renders a symbol as BASE-QUOTE, falling back to the unified
// form if base/quote extraction fails (e.g. no recognized quote suffix).
func ToHyphenated(symbol string, quoteCurrencies []string) string {
	base, quote := ExtractBaseQuote(symbol, quoteCurrencies)
	if base == "" || quote == "" {
		return Normalize(symbol)
	}
	return base + "-" + quote
}

// ToSlashed renders a symbol as BASE/QUOTE, with the same fallback as
// ToHyphenated.
func ToSlashed(symbol string, quoteCurrencies []string) string {
	base, quote := ExtractBaseQuote(symbol, quoteCurrencies)
	if base == "" || quote == "" {
		return Normalize(symbol)
	}
	return base + "/" + quote
}

// ExtractBaseQuote splits a symbol into (base, quote). It recognizes "-"
// and "/" separators first; failing that, it falls back to longest-suffix
// matching against quoteCurrencies (nil/empty uses DefaultQuoteCurrencies).
func ExtractBaseQuote(symbol string, quoteCurrencies []string) (base, quote string) {
	if symbol == "" {
		return "", ""
	}
	s := strings.ToUpper(strings.TrimSpace(symbol))

	if strings.Contains(s, "-") {
		parts := strings.Split(s, "-")
		if len(parts) == 2 {
			return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		}
	}
	if strings.Contains(s, "/") {
		parts := strings.Split(s, "/")
		if len(parts) == 2 {
			return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		}
	}

	quotes := quoteCurrencies
	if len(quotes) == 0 {
		quotes = DefaultQuoteCurrencies
	}
	sorted := append([]string(nil), quotes...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	for _, q := range sorted {
		if strings.HasSuffix(s, q) {
			b := s[:len(s)-len(q)]
			if b != "" {
				return b, q
			}
		}
	}

	return s, ""
}

// CheckSymbolMismatch logs a warning (and reports false) if the two legs'
// symbols don't resolve to the same base/quote instrument once each is
// split via ExtractBaseQuote against quoteCurrencies (nil uses
// DefaultQuoteCurrencies). This is warning-only by design (spec §9): entry
// proceeds regardless of the result.
func CheckSymbolMismatch(logger *slog.Logger, expected, actual string, quoteCurrencies []string) bool {
	expBase, expQuote := ExtractBaseQuote(expected, quoteCurrencies)
	actBase, actQuote := ExtractBaseQuote(actual, quoteCurrencies)
	if expBase != actBase || expQuote != actQuote {
		if logger != nil {
			logger.Warn("symbol mismatch between legs",
				"expected", expected, "expected_base", expBase, "expected_quote", expQuote,
				"actual", actual, "actual_base", actBase, "actual_quote", actQuote,
			)
		}
		return false
	}
	return true
}
