package toolset

import (
	"strings"
	"unicode"
)

// DeriveToolName builds the callable name for a webhook integration
// from its display name and id. "CRM Sync" with id "i1" becomes
// "crmSync_i1".
//
// The display name is camel-cased and the id suffix keeps two
// integrations with the same display name apart. The console derives
// the name once when the integration is created and persists it, so a
// later rename never changes what the agent calls.
func DeriveToolName(displayName, id string) string {
	base := camelCase(displayName)
	if base == "" {
		base = "webhook"
	}
	suffix := sanitizeID(id)
	if suffix == "" {
		return base
	}
	return base + "_" + suffix
}

// camelCase lowercases the first word and capitalizes the rest,
// dropping everything that is not a letter or digit.
func camelCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return ""
	}

	var b strings.Builder
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		if i > 0 {
			runes[0] = unicode.ToUpper(runes[0])
		}
		b.WriteString(string(runes))
	}
	return b.String()
}

// sanitizeID keeps only letters and digits so the suffix is safe in a
// function name regardless of the id format.
func sanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
