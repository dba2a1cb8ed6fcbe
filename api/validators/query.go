package validators

import (
	"net/http"
	"strconv"
)

// QueryLimit parses the limit query parameter, falling back when absent or
// out of range.
func QueryLimit(r *http.Request, fallback, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 || value > max {
		return fallback
	}
	return value
}
