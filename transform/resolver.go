package transform

import (
	"io"

	"github.com/tidwall/gjson"
)

// MapResolver resolves keys from a fixed table.
func MapResolver(values map[string]string) Resolver {
	return func(key string, w io.Writer) bool {
		value, found := values[key]
		if !found {
			return false
		}
		_, err := io.WriteString(w, value)
		return err == nil
	}
}

// JSONResolver treats keys as gjson paths into doc, so {{user.name}} or
// {{items.#}} read straight from a JSON document.
func JSONResolver(doc []byte) Resolver {
	return func(key string, w io.Writer) bool {
		result := gjson.GetBytes(doc, key)
		if !result.Exists() {
			return false
		}
		_, err := io.WriteString(w, result.String())
		return err == nil
	}
}

// Chain asks each resolver in turn and stops at the first that answers.
// Resolvers that decline must not have written to w.
func Chain(resolvers ...Resolver) Resolver {
	return func(key string, w io.Writer) bool {
		for _, resolver := range resolvers {
			if resolver != nil && resolver(key, w) {
				return true
			}
		}
		return false
	}
}
