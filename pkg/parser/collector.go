package parser

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"indexnow-go/pkg/logger"
	"indexnow-go/pkg/utils"
)

// Collector turns a sitemap into the sorted, unique list of submittable URLs for one domain
type Collector struct {
	httpClient DownloadClient
	log        *logger.Logger
}

// NewCollector creates a collector whose remote sitemaps are fetched with a download timeout
func NewCollector(downloadTimeout time.Duration) *Collector {
	return &Collector{
		httpClient: NewHTTPClient(downloadTimeout),
		log:        logger.GetLogger().WithField("component", "url_collector"),
	}
}

// SetHTTPClient allows injection of different HTTP client implementations
func (c *Collector) SetHTTPClient(client DownloadClient) {
	c.httpClient = client
}

// CollectURLs reads a local sitemap and returns the normalized URLs for domain.
// A nil excludePaths applies DefaultExcludePaths.
func CollectURLs(domain, sitemapPath string, excludePaths []string) ([]string, error) {
	return NewCollector(0).Collect(context.Background(), domain, sitemapPath, excludePaths)
}

// Collect is CollectURLs with a context; sitemapPath may be a file path or an http(s) URL
func (c *Collector) Collect(ctx context.Context, domain, sitemapPath string, excludePaths []string) ([]string, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, utils.NewConfigError("domain is required")
	}
	if strings.TrimSpace(sitemapPath) == "" {
		return nil, utils.NewConfigError("sitemap path is required")
	}
	if excludePaths == nil {
		excludePaths = DefaultExcludePaths
	}

	raw, err := c.readSitemap(ctx, sitemapPath)
	if err != nil {
		return nil, err
	}

	locs := ExtractLocs(DecodeSitemap(raw))
	urls := NormalizeURLs(locs, domain, NewPathFilter("exclude_paths", excludePaths))

	c.log.WithFields(map[string]interface{}{
		"sitemap":   sitemapPath,
		"locations": len(locs),
		"accepted":  len(urls),
		"dropped":   len(locs) - len(urls),
	}).Info("Collected sitemap URLs")

	return urls, nil
}

func (c *Collector) readSitemap(ctx context.Context, sitemapPath string) ([]byte, error) {
	lower := strings.ToLower(sitemapPath)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		data, err := os.ReadFile(sitemapPath)
		if err != nil {
			return nil, utils.NewIOError(err, "failed to read sitemap %s", sitemapPath)
		}
		return data, nil
	}

	content, err := c.httpClient.Download(ctx, sitemapPath)
	if err != nil {
		return nil, utils.NewIOError(err, "failed to download sitemap %s", sitemapPath)
	}
	defer content.Close()

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, utils.NewIOError(err, "failed to read sitemap content")
	}
	return data, nil
}

// ReadURLFile loads an operator-supplied URL list: one URL per line, blank
// lines and lines starting with # are ignored. Entries go through the same
// normalization, exclusion and deduplication as sitemap locations.
func ReadURLFile(path, domain string, excludePaths []string) ([]string, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, utils.NewConfigError("domain is required")
	}
	if excludePaths == nil {
		excludePaths = DefaultExcludePaths
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, utils.NewIOError(err, "failed to open URL file %s", path)
	}
	defer file.Close()

	var candidates []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		candidates = append(candidates, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, utils.NewIOError(err, "failed to read URL file %s", path)
	}

	return NormalizeURLs(candidates, domain, NewPathFilter("exclude_paths", excludePaths)), nil
}
