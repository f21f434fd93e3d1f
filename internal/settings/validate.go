package settings

import (
	"fmt"
	"net/url"
	"strings"
)

// Value blobs arrive as decoded JSON, so numbers are float64 and everything
// else needs the same defensive coercion; these helpers keep the category
// validators flat.

func stringField(value map[string]any, field string) (string, bool) {
	v, ok := value[field].(string)
	return v, ok
}

func boolField(value map[string]any, field string) (bool, bool) {
	v, ok := value[field].(bool)
	return v, ok
}

func intField(value map[string]any, field string) (int, bool) {
	switch v := value[field].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

func stringSliceField(value map[string]any, field string) ([]string, bool) {
	switch v := value[field].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func requireString(errs *[]string, value map[string]any, field string) string {
	s, ok := stringField(value, field)
	if !ok || strings.TrimSpace(s) == "" {
		*errs = append(*errs, field+" is required")
		return ""
	}
	return s
}

func requireOneOf(errs *[]string, value map[string]any, field string, allowed ...string) string {
	s := requireString(errs, value, field)
	if s == "" {
		return ""
	}
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	*errs = append(*errs, fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
	return ""
}

func requireIntRange(errs *[]string, value map[string]any, field string, min, max int) int {
	n, ok := intField(value, field)
	if !ok {
		*errs = append(*errs, field+" must be an integer")
		return 0
	}
	if n < min || n > max {
		*errs = append(*errs, fmt.Sprintf("%s must be between %d and %d", field, min, max))
	}
	return n
}

func checkHTTPURL(errs *[]string, value map[string]any, field string, required bool) {
	s, ok := stringField(value, field)
	if !ok || s == "" {
		if required {
			*errs = append(*errs, field+" is required")
		}
		return
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		*errs = append(*errs, field+" must be a valid http(s) URL")
	}
}

func checkEmail(errs *[]string, value map[string]any, field string, required bool) {
	s, ok := stringField(value, field)
	if !ok || s == "" {
		if required {
			*errs = append(*errs, field+" is required")
		}
		return
	}
	at := strings.Index(s, "@")
	if len(s) < 3 || at <= 0 || at == len(s)-1 || !strings.Contains(s[at:], ".") {
		*errs = append(*errs, field+" must be a valid email address")
	}
}

func checkHexColor(errs *[]string, value map[string]any, field string) {
	s, ok := stringField(value, field)
	if !ok || s == "" {
		return
	}
	if len(s) != 7 || s[0] != '#' {
		*errs = append(*errs, field+" must be a #rrggbb color")
		return
	}
	for _, r := range s[1:] {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') && (r < 'A' || r > 'F') {
			*errs = append(*errs, field+" must be a #rrggbb color")
			return
		}
	}
}
