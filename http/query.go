package http

import "strings"

// ParseQuery decodes an application/x-www-form-urlencoded string. The last
// value of a repeated key wins. Entries with an empty key or with control
// characters after decoding are dropped.
func ParseQuery(raw string) map[string]string {
	values := make(map[string]string)

	for len(raw) > 0 {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")
		key = unescape(key, true)
		value = unescape(value, true)

		if key == "" || hasControl(key) || hasControl(value) {
			continue
		}

		values[key] = value
	}

	return values
}

func rawQuery(target string) string {
	_, query, _ := strings.Cut(target, "?")
	if i := strings.IndexByte(query, '#'); i >= 0 {
		query = query[:i]
	}
	return query
}
