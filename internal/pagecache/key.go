package pagecache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

const keyPrefix = "page."

// Key derives the cache key for a request. HEAD shares GET's key.
// Only the escaped path contributes; callers must not cache requests
// carrying a query string.
func Key(r *http.Request) string {
	method := r.Method
	if method == http.MethodHead {
		method = http.MethodGet
	}
	sum := sha256.Sum256([]byte(method + " " + r.URL.EscapedPath()))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// cacheable reports whether a request's response may be stored or served
// from the cache.
func cacheable(r *http.Request) bool {
	return (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.RawQuery == ""
}
