// Package normalize holds the pure string helpers the translation pipeline
// is built on: value coercion, accent-insensitive folding, label keyification
// and id extraction. Every function is a pure function of its input.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	idRe    = regexp.MustCompile(`\d+`)
	wordRe  = regexp.MustCompile(`[^a-z0-9]+`)
	foldTfm = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// ToString coerces an arbitrary JSON-decoded value to a string. nil becomes
// the empty string; floats that carry integral values render without a
// fractional part (JSON numbers decode as float64).
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Fold strips diacritics, lowercases and trims the input so that lookups
// match regardless of accents or casing ("Jhonny López" → "jhonny lopez").
func Fold(s string) string {
	out, _, err := transform.String(foldTfm, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(strings.ToLower(out))
}

// Keyify converts a field label into the pretty output key:
// "URL carpeta del Cliente" → "Url_Carpeta_Del_Cliente". Idempotent.
func Keyify(label string) string {
	s := wordRe.ReplaceAllString(Fold(label), " ")
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, "_")
}

// SplitIDs splits a comma-separated list, trimming whitespace and dropping
// empty entries.
func SplitIDs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IDsInText returns every run of digits embedded in free text, in order.
func IDsInText(text string) []string {
	return idRe.FindAllString(text, -1)
}

// IsNumeric reports whether s is a non-empty string of decimal digits.
func IsNumeric(s string) bool {
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
