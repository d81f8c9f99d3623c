package parser

import (
	"net/url"
	"sort"
	"strings"
)

// ValidateURL normalizes raw against domain. It returns false for relative URLs,
// non-network schemes and hosts that are not exactly domain (subdomains included).
// A normalized URL has the https scheme, a lower-cased host without a default
// port, a path ending in "/" and its original query string. Normalizing an already normalized URL is a no-op.
func ValidateURL(raw, domain string) (string, bool) {
	raw = strings.TrimSpace(raw)
	domain = strings.ToLower(strings.TrimSpace(domain))
	if raw == "" || domain == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Opaque != "" {
		return "", false
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", false
	}

	if u.Host == "" || strings.ToLower(u.Hostname()) != domain {
		return "", false
	}

	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)
	if port := u.Port(); port == "80" || port == "443" {
		u.Host = strings.TrimSuffix(u.Host, ":"+port)
	}
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
		if u.RawPath != "" {
			u.RawPath += "/"
		}
	}

	return u.String(), true
}

// Deduplicate keeps the first occurrence of every URL, preserving input order
func Deduplicate(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	unique := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}
	return unique
}

// NormalizeURLs validates every candidate against domain, drops anything a
// filter excludes, deduplicates and returns the survivors sorted.
func NormalizeURLs(candidates []string, domain string, filters ...Filter) []string {
	normalized := make([]string, 0, len(candidates))
	for _, raw := range candidates {
		clean, ok := ValidateURL(raw, domain)
		if !ok {
			continue
		}

		parsed, err := url.Parse(clean)
		if err != nil || shouldExclude(parsed, filters) {
			continue
		}
		normalized = append(normalized, clean)
	}

	unique := Deduplicate(normalized)
	sort.Strings(unique)
	return unique
}

func shouldExclude(u *url.URL, filters []Filter) bool {
	for _, filter := range filters {
		if filter.ShouldExclude(u) {
			return true
		}
	}
	return false
}
