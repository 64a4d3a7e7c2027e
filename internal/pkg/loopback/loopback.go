// Package loopback recognizes local development origins that must never produce analytics.
package loopback

import (
	"net/url"
	"regexp"
	"strings"
)

var localHostPattern = regexp.MustCompile(`^localhost$|^127(\.[0-9]+){0,2}\.[0-9]+$|^\[?::1?\]?$`)

// IsLocalHost reports whether hostname names the local machine.
func IsLocalHost(hostname string) bool {
	return localHostPattern.MatchString(strings.ToLower(hostname))
}

// IsLocalURL reports whether u points at the local machine or a file.
func IsLocalURL(u *url.URL) bool {
	if u == nil {
		return false
	}
	if strings.EqualFold(u.Scheme, "file") {
		return true
	}
	return IsLocalHost(u.Hostname())
}

// IsLocalHref parses href and applies IsLocalURL. Unparseable hrefs are not local.
func IsLocalHref(href string) bool {
	if href == "" {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return IsLocalURL(u)
}
