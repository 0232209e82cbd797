package textutil

import "strings"

// unsafeFileChars are removed from generated filenames.
var unsafeFileChars = strings.NewReplacer(
	"<", "",
	">", "",
	":", "",
	"\"", "",
	"|", "",
	"?", "",
	"*", "",
)

// StripUnsafe removes the characters <>:"|?* from name.
func StripUnsafe(name string) string {
	return unsafeFileChars.Replace(name)
}

// RemoveSpaces drops every whitespace rune from value.
func RemoveSpaces(value string) string {
	return strings.Join(strings.Fields(value), "")
}

// JoinSpaces collapses whitespace runs in value into sep.
func JoinSpaces(value, sep string) string {
	return strings.Join(strings.Fields(value), sep)
}

// FolderToken converts a display name into a path segment: whitespace becomes
// underscores and path separators are removed. Returns "unknown" for empty input.
func FolderToken(value string) string {
	value = strings.NewReplacer("/", "", "\\", "").Replace(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, " ", "_")
	value = StripUnsafe(value)
	if value == "" {
		return "unknown"
	}
	return value
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-' || r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
