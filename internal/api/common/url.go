package common

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// TopicParam extracts and decodes a topic name from the route. Topic names
// must be non-empty and free of whitespace and slashes.
func TopicParam(r *http.Request, paramName string) (string, error) {
	decoded, err := url.PathUnescape(chi.URLParam(r, paramName))
	if err != nil {
		return "", fmt.Errorf("invalid URL encoding in %s", paramName)
	}

	if strings.TrimSpace(decoded) == "" {
		return "", fmt.Errorf("%s cannot be empty", paramName)
	}
	if strings.ContainsAny(decoded, " \t\n\r/") {
		return "", fmt.Errorf("%s cannot contain whitespace or slashes", paramName)
	}
	return decoded, nil
}

// ReasonParam returns the "reason" query parameter, or fallback when absent
func ReasonParam(r *http.Request, fallback string) string {
	if reason := strings.TrimSpace(r.URL.Query().Get("reason")); reason != "" {
		return reason
	}
	return fallback
}

// DurationParam parses an optional duration query parameter. Absent values
// yield zero.
func DurationParam(r *http.Request, name string) (time.Duration, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter: must be a duration such as 250ms", name)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s parameter: must not be negative", name)
	}
	return d, nil
}
