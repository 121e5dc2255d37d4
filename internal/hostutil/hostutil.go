// Package hostutil normalizes and vets the API base URL. Bearer tokens are
// only ever sent over TLS, except to the local machine.
package hostutil

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Normalize turns a bare host into a URL and drops any trailing slash.
// Loopback hosts get http://, everything else https://.
func Normalize(host string) string {
	host = strings.TrimSuffix(strings.TrimSpace(host), "/")
	if host == "" || strings.Contains(host, "://") {
		return host
	}
	if IsLocalhost(host) {
		return "http://" + host
	}
	return "https://" + host
}

// IsLocalhost reports whether host, with or without a port, names the
// local machine: localhost, a .localhost name, 127.0.0.0/8 or ::1.
func IsLocalhost(host string) bool {
	name := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		name = h
	}
	name = strings.Trim(name, "[]")
	if name == "localhost" || strings.HasSuffix(name, ".localhost") {
		return true
	}
	ip := net.ParseIP(name)
	return ip != nil && ip.IsLoopback()
}

// CheckBaseURL returns an error unless raw is an absolute https URL, or an
// http URL pointing at the local machine.
func CheckBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL, got %q", raw)
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if IsLocalhost(u.Host) {
			return nil
		}
		return fmt.Errorf("base_url %q must use https", raw)
	default:
		return fmt.Errorf("base_url must be an http(s) URL, got %q", raw)
	}
}
