package metadata

import "strings"

// ExtractKeyValues collects "Key: Value" and "Key = Value" lines. A colon takes
// precedence over an equals sign, and later duplicates overwrite earlier ones.
func ExtractKeyValues(text string) map[string]string {
	pairs := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		sep := ""
		switch {
		case strings.Contains(line, ":"):
			sep = ":"
		case strings.Contains(line, "="):
			sep = "="
		default:
			continue
		}
		key, value, _ := strings.Cut(line, sep)
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key != "" && value != "" {
			pairs[key] = value
		}
	}
	if len(pairs) == 0 {
		return nil
	}
	return pairs
}
