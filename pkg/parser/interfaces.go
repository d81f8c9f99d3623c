package parser

import (
	"context"
	"io"
	"net/url"
)

// Filter decides whether a normalized URL is dropped from the submission list
type Filter interface {
	ShouldExclude(url *url.URL) bool
	Name() string
}

// DownloadClient fetches remote sitemap content
type DownloadClient interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
