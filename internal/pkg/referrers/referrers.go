// Package referrers normalizes referrer URLs into hostnames and display labels.
package referrers

import (
	"net/url"
	"strings"
)

// Well-known sources, keyed by hostname without "www."
var knownSources = map[string]string{
	"google.com":           "Google",
	"google.co.uk":         "Google",
	"google.de":            "Google",
	"google.fr":            "Google",
	"google.ca":            "Google",
	"bing.com":             "Bing",
	"duckduckgo.com":       "DuckDuckGo",
	"search.yahoo.com":     "Yahoo",
	"yandex.ru":            "Yandex",
	"ecosia.org":           "Ecosia",
	"kagi.com":             "Kagi",
	"x.com":                "X/Twitter",
	"twitter.com":          "X/Twitter",
	"t.co":                 "X/Twitter",
	"facebook.com":         "Facebook",
	"instagram.com":        "Instagram",
	"linkedin.com":         "LinkedIn",
	"lnkd.in":              "LinkedIn",
	"reddit.com":           "Reddit",
	"youtube.com":          "YouTube",
	"youtu.be":             "YouTube",
	"bsky.app":             "Bluesky",
	"threads.net":          "Threads",
	"news.ycombinator.com": "Hacker News",
	"lobste.rs":            "Lobsters",
	"producthunt.com":      "Product Hunt",
	"indiehackers.com":     "Indie Hackers",
	"dev.to":               "DEV Community",
	"medium.com":           "Medium",
	"substack.com":         "Substack",
	"github.com":           "GitHub",
	"gitlab.com":           "GitLab",
	"stackoverflow.com":    "Stack Overflow",
	"mail.google.com":      "Gmail",
	"outlook.live.com":     "Outlook",
	"bit.ly":               "Bitly",
}

// Hostname extracts the lowercase hostname of rawURL without a leading "www.".
// It returns "" for empty or unparseable input and for URLs without a host.
func Hostname(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return StripWWW(strings.ToLower(u.Hostname()))
}

// StripWWW removes a single leading "www." label.
func StripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}

// FriendlyName returns a human-friendly name for a referrer hostname.
// Unknown hostnames are returned without "www." and with the first letter capitalized.
func FriendlyName(hostname string) string {
	hostname = StripWWW(strings.ToLower(hostname))
	if hostname == "" {
		return ""
	}

	if name, ok := knownSources[hostname]; ok {
		return name
	}

	// Subdomain of a known source, e.g. m.facebook.com. The longest suffix wins.
	for rest := hostname; ; {
		dot := strings.IndexByte(rest, '.')
		if dot < 0 {
			break
		}
		rest = rest[dot+1:]
		if name, ok := knownSources[rest]; ok {
			return name
		}
	}

	return strings.ToUpper(hostname[:1]) + hostname[1:]
}
