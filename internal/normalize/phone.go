package normalize

import (
	"regexp"
	"strings"
)

// Ecuador mobile numbers: optional +593/593 country code, optional leading
// zero, nine digits. Candidates are whitespace-compacted before matching so
// formatted input ("+593 98 765 4321") still resolves.
var phoneRe = regexp.MustCompile(`(?:\+?593)?0?\d{9}`)

var ccRe = regexp.MustCompile(`^\+?5930?`)

// CleanPhone extracts the first Ecuador phone number from a comma-separated
// list of raw candidates and normalizes it to the local 0XXXXXXXXX form.
// Returns the empty string when no candidate matches. Idempotent on
// already-clean input.
func CleanPhone(raw string) string {
	var match string
	for _, part := range strings.Split(raw, ",") {
		compact := strings.Join(strings.Fields(part), "")
		if m := phoneRe.FindString(compact); m != "" {
			match = m
			break
		}
	}
	if match == "" {
		return ""
	}
	cleaned := ccRe.ReplaceAllString(match, "0")
	cleaned = "0" + strings.TrimLeft(cleaned, "0")
	if len(cleaned) > 10 {
		cleaned = cleaned[:10]
	}
	return cleaned
}

// PrepareName normalizes a full name for the downstream tool. Underscore-
// joined input is treated as FIRST_LAST and rendered "LAST FIRST" uppercase
// with a two-letter initialism; anything else is treated as a company name
// (uppercased, order preserved, initialism "NC").
func PrepareName(full string) (normalized, short string) {
	short = "NC"
	full = strings.TrimSpace(full)
	if full == "" {
		return "", short
	}
	if !strings.Contains(full, "_") {
		return strings.ToUpper(full), short
	}
	parts := strings.Fields(strings.ReplaceAll(full, "_", " "))
	if len(parts) == 0 {
		return "", short
	}
	first := parts[0]
	last := ""
	if len(parts) > 1 {
		last = parts[len(parts)-1]
	}
	normalized = strings.ToUpper(strings.TrimSpace(last + " " + first))
	if first != "" && last != "" {
		fr := []rune(first)
		lr := []rune(last)
		short = strings.ToUpper(string(lr[0]) + string(fr[0]))
	}
	return normalized, short
}
