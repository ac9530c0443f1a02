package textutil

import (
	"net/url"
	"strings"
)

// NormalizeURL resolves href against base the way a browser would for listing links.
// Absolute http(s) links pass through, protocol-relative links get https, and bare
// relative paths are treated as rooted at the base host.
func NormalizeURL(href, base string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "http"):
		return href
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return join(base, href)
	default:
		return join(base, "/"+href)
	}
}

func join(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return strings.TrimRight(base, "/") + ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return strings.TrimRight(base, "/") + ref
	}
	return b.ResolveReference(r).String()
}

// QueryValue returns the named query parameter of raw, or "" when absent or unparsable.
func QueryValue(raw, key string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get(key)
}

// HostMatches reports whether raw points at domain or one of its subdomains.
func HostMatches(raw, domain string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}
