package session

import "strings"

// A session key has the exact form "{channel}:{chat_id}" where the channel
// itself is "{type}:{id}". Colons are reserved; when a key is used as a
// filesystem path component every colon is replaced with "_".

// ParseKey splits a session key at the first colon into its channel and
// chat ID parts, the inverse of how UnsanitizeKey restores a key.
func ParseKey(key string) (channel, chatID string) {
	channel, chatID, _ = strings.Cut(key, ":")
	return channel, chatID
}

// SanitizeKey converts a session key to a filesystem-safe name by
// replacing every ":" with "_". Path separators and traversal components
// are stripped defensively.
func SanitizeKey(key string) string {
	key = strings.ReplaceAll(key, "\x00", "")
	key = strings.ReplaceAll(key, "..", "")
	key = strings.ReplaceAll(key, "/", "")
	key = strings.ReplaceAll(key, "\\", "")
	return strings.ReplaceAll(key, ":", "_")
}

// UnsanitizeKey reverses SanitizeKey for keys with exactly one colon:
// the first "_" becomes ":". Keys whose channel contains colons cannot be
// recovered unambiguously; callers that need the original key must carry
// it alongside the sanitized form.
func UnsanitizeKey(name string) string {
	return strings.Replace(name, "_", ":", 1)
}
