// Package urlkey derives stable object keys from signed blob URLs.
package urlkey

import "strings"

const marker = ".com/"

// Extract returns the object key embedded in a blob URL: the segment after
// the first ".com/" up to but excluding the query string. A URL with no
// ".com/" boundary, or with nothing between the boundary and the query
// string, is returned unchanged, so bare keys pass through untouched.
//
// Signed URLs for the same blob differ only in their query parameters, which
// makes Extract stable across re-signing.
func Extract(url string) string {
	_, after, found := strings.Cut(url, marker)
	if !found {
		return url
	}

	key := after
	if i := strings.IndexByte(after, '?'); i >= 0 {
		key = after[:i]
	}
	if key == "" {
		return url
	}

	return key
}

// ExtractAll maps Extract over a slice of URLs, preserving order.
func ExtractAll(urls []string) []string {
	keys := make([]string, len(urls))
	for i, url := range urls {
		keys[i] = Extract(url)
	}
	return keys
}
