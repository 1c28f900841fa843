package analyzer

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

func normalizeBaseURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}

// ValidateBaseURL checks the configured analysis service URL. When
// allowedHosts is empty any host is accepted.
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	baseURL = normalizeBaseURL(baseURL)
	if baseURL == "" {
		return errors.New("H8LESS_API_URL is required")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid H8LESS_API_URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("invalid H8LESS_API_URL %q: absolute URL with host is required", baseURL)
	}
	if u.User != nil {
		return fmt.Errorf("invalid H8LESS_API_URL %q: userinfo is not allowed", baseURL)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("invalid H8LESS_API_URL %q: query and fragment are not allowed", baseURL)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("invalid H8LESS_API_URL %q: host is required", baseURL)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("invalid H8LESS_API_URL %q: http or https is required", baseURL)
	}

	allowed := normalizeAllowedHosts(allowedHosts)
	if len(allowed) == 0 {
		return nil
	}
	if _, ok := allowed[host]; !ok {
		return fmt.Errorf("invalid H8LESS_API_URL %q: host %q is not in H8LESS_ALLOWED_HOSTS", baseURL, host)
	}
	return nil
}

func normalizeAllowedHosts(allowedHosts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(allowedHosts))
	for _, h := range allowedHosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		v = strings.Trim(v, "/")
		if v == "" {
			continue
		}
		if i := strings.Index(v, ":"); i >= 0 {
			v = v[:i]
		}
		out[v] = struct{}{}
	}
	return out
}

// SplitHosts parses a comma separated host list as found in the environment.
func SplitHosts(s string) []string {
	var out []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
