package parser

import (
	"net/url"
	"strings"
)

// DefaultExcludePaths lists path fragments never submitted for indexing
var DefaultExcludePaths = []string{"/thank-you/"}

// PathFilter excludes URLs whose path contains any of the configured fragments
type PathFilter struct {
	excludePaths []string
	name         string
}

func NewPathFilter(name string, excludePaths []string) *PathFilter {
	return &PathFilter{
		name:         name,
		excludePaths: excludePaths,
	}
}

func (f *PathFilter) ShouldExclude(u *url.URL) bool {
	path := strings.ToLower(u.Path)
	for _, excludePath := range f.excludePaths {
		if excludePath == "" {
			continue
		}
		if strings.Contains(path, strings.ToLower(excludePath)) {
			return true
		}
	}
	return false
}

func (f *PathFilter) Name() string {
	return f.name
}
