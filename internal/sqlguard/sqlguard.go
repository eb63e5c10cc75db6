package sqlguard

import (
	"fmt"
	"strings"
)

// sqlLeadingKeywords mark the line where SQL capture begins inside a
// free-text completion.
var sqlLeadingKeywords = []string{"SELECT", "WITH", "INSERT", "UPDATE", "DELETE", "CREATE"}

// forbiddenKeywords are rejected by substring match before execution. This
// is a coarse read-only policy, not a parser: a column named CREATED_DATE
// trips it on the CREATE substring. Known limitation, kept as-is.
var forbiddenKeywords = []string{"DROP", "DELETE", "TRUNCATE", "ALTER", "CREATE", "INSERT", "UPDATE"}

// ValidationResult reports whether a statement passed the read-only policy
// and which keyword blocked it otherwise.
type ValidationResult struct {
	Allowed bool
	Keyword string
	Message string
}

// Extract pulls the SQL statement out of a free-text completion. Capture
// begins at the first line whose trimmed, upper-cased form starts with a
// SQL keyword; comment lines are skipped; capture stops at the first line
// ending in a semicolon. Returns "" when no SQL is found.
func Extract(response string) string {
	var captured []string
	capturing := false

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)

		if !capturing {
			idx := leadingKeywordIndex(trimmed)
			if idx == -1 {
				continue
			}
			// Discard any prose prefix before the keyword.
			trimmed = trimmed[idx:]
			capturing = true
		}

		if strings.HasPrefix(trimmed, "--") || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "/*") {
			continue
		}

		captured = append(captured, trimmed)

		if strings.HasSuffix(trimmed, ";") {
			break
		}
	}

	if len(captured) == 0 {
		return ""
	}

	sql := strings.Join(captured, "\n")
	sql = strings.TrimSuffix(sql, ";")
	return strings.TrimSpace(sql)
}

// leadingKeywordIndex returns the position of the earliest SQL keyword in
// the line, or -1 when none is present.
func leadingKeywordIndex(line string) int {
	upper := strings.ToUpper(line)
	best := -1
	for _, keyword := range sqlLeadingKeywords {
		if idx := strings.Index(upper, keyword); idx != -1 && (best == -1 || idx < best) {
			best = idx
		}
	}
	return best
}

// Validate applies the forbidden-keyword policy to a SQL statement.
func Validate(sql string) ValidationResult {
	upper := strings.ToUpper(sql)

	for _, keyword := range forbiddenKeywords {
		if strings.Contains(upper, keyword) {
			return ValidationResult{
				Allowed: false,
				Keyword: keyword,
				Message: fmt.Sprintf("query rejected: contains forbidden keyword %s", keyword),
			}
		}
	}

	return ValidationResult{Allowed: true}
}
