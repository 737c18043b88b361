package parse

import (
	"net"
	"net/url"
	"strings"
)

// NormalizeURL standardizes a URL for dedup and storage.
// It lowercases the scheme and host, removes default ports (80 for http, 443
// for https), removes trailing slashes from paths (unless root "/"), ensures
// an empty path becomes "/", and removes fragments. Query strings are kept:
// for a general site crawl, distinct queries are distinct pages.
// Does not modify the input *url.URL
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	// Work on a copy
	normalized := *u

	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)

	// Remove default ports
	host, port, err := net.SplitHostPort(normalized.Host)
	if err == nil { // Host included a port
		if (normalized.Scheme == "http" && port == "80") ||
			(normalized.Scheme == "https" && port == "443") {
			normalized.Host = host
		}
	}

	if normalized.Path == "" {
		normalized.Path = "/"
	} else if len(normalized.Path) > 1 && strings.HasSuffix(normalized.Path, "/") {
		normalized.Path = normalized.Path[:len(normalized.Path)-1]
	}

	normalized.Fragment = ""
	normalized.RawFragment = ""

	return normalized.String()
}

// ParseAndNormalize parses a URL string using the stricter url.ParseRequestURI
// (requiring a scheme) and then normalizes it with NormalizeURL.
// Returns the normalized string, the parsed URL object, and any parse error
func ParseAndNormalize(urlStr string) (string, *url.URL, error) {
	parsed, err := url.ParseRequestURI(urlStr)
	if err != nil {
		return "", nil, err
	}
	return NormalizeURL(parsed), parsed, nil
}

// Resolve resolves a possibly-relative href against a base URL and returns
// the absolute URL plus its normalized form. Non-http(s) schemes are rejected.
func Resolve(base *url.URL, href string) (absolute string, normalized string, ok bool) {
	if base == nil || href == "" {
		return "", "", false
	}
	linkURL, err := base.Parse(href)
	if err != nil {
		return "", "", false
	}
	if linkURL.Scheme != "http" && linkURL.Scheme != "https" {
		return "", "", false
	}
	return linkURL.String(), NormalizeURL(linkURL), true
}
