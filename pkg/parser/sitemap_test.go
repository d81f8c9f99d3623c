package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/encoding/charmap"
)

func TestExtractLocs(t *testing.T) {
	content := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/</loc></url>
  <url><loc>
      https://example.com/about/
  </loc><lastmod>2024-01-01</lastmod></url>
  <url><LOC>https://example.com/upper/</LOC></url>
  <url><loc><![CDATA[https://example.com/cdata/]]></loc></url>
  <url><loc>https://example.com/search/?a=1&amp;b=2</loc></url>
  <url><loc></loc></url>
  <broken <url><loc>https://example.com/broken/</loc>
</urlset>`

	assert.Equal(t, []string{
		"https://example.com/",
		"https://example.com/about/",
		"https://example.com/upper/",
		"https://example.com/cdata/",
		"https://example.com/search/?a=1&b=2",
		"https://example.com/broken/",
	}, ExtractLocs(content))
}

func TestExtractLocs_IgnoresTagsSharingThePrefix(t *testing.T) {
	content := `<urlset>
  <url><location>hq</location><loc>https://example.com/a/</loc></url>
  <url><locale>en</locale><loc lang="en">https://example.com/b/</loc></url>
</urlset>`

	locs := ExtractLocs(content)
	assert.Equal(t, []string{"https://example.com/a/", "https://example.com/b/"}, locs)
	assert.Equal(t, locs, NormalizeURLs(locs, "example.com"))
}

func TestExtractLocs_Empty(t *testing.T) {
	assert.Empty(t, ExtractLocs(""))
	assert.Empty(t, ExtractLocs("<urlset></urlset>"))
	assert.Empty(t, ExtractLocs("not xml at all"))
}

func TestDecodeSitemap_Latin1(t *testing.T) {
	source := `<?xml version="1.0" encoding="ISO-8859-1"?><urlset><url><loc>https://example.com/café/</loc></url></urlset>`
	raw, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(source))
	assert.NoError(t, err)

	locs := ExtractLocs(DecodeSitemap(raw))
	assert.Equal(t, []string{"https://example.com/café/"}, locs)
}

func TestDecodeSitemap_UTF8BOM(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`<urlset><url><loc>https://example.com/</loc></url></urlset>`)...)
	assert.Equal(t, []string{"https://example.com/"}, ExtractLocs(DecodeSitemap(raw)))
}

func TestDecodeSitemap_PlainUTF8(t *testing.T) {
	raw := []byte(`<loc>https://example.com/naïve/</loc>`)
	assert.Equal(t, string(raw), DecodeSitemap(raw))
}
