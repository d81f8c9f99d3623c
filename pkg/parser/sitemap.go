package parser

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// locPattern is lax: attributes, line breaks and broken markup around <loc> are ignored.
	// The tag name is anchored so <location> or <locale> never open a match.
	locPattern      = regexp.MustCompile(`(?is)<loc(?:\s[^>]*)?>(.*?)</loc\s*>`)
	encodingPattern = regexp.MustCompile(`encoding=["']([^"']+)["']`)
	cdataPattern    = regexp.MustCompile(`(?s)^<!\[CDATA\[(.*)\]\]>$`)

	xmlEntities = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
)

// ExtractLocs returns the trimmed text of every <loc> element, in document order.
// It is not a validating parser; anything outside <loc> is ignored.
func ExtractLocs(content string) []string {
	matches := locPattern.FindAllStringSubmatch(content, -1)
	locs := make([]string, 0, len(matches))

	for _, match := range matches {
		text := strings.TrimSpace(match[1])
		if m := cdataPattern.FindStringSubmatch(text); m != nil {
			text = strings.TrimSpace(m[1])
		} else {
			text = xmlEntities.Replace(text)
		}
		if text != "" {
			locs = append(locs, text)
		}
	}
	return locs
}

// DecodeSitemap converts raw sitemap bytes to a UTF-8 string, honoring a BOM
// or the XML declaration's encoding attribute
func DecodeSitemap(raw []byte) string {
	enc := detectEncoding(raw)
	if enc == nil {
		return strings.ToValidUTF8(string(raw), "")
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), enc.NewDecoder()))
	if err != nil {
		return strings.ToValidUTF8(string(raw), "")
	}
	return string(decoded)
}

// detectEncoding returns nil when the content is already plain UTF-8
func detectEncoding(raw []byte) encoding.Encoding {
	switch {
	case bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}):
		return unicode.UTF8BOM
	case bytes.HasPrefix(raw, []byte{0xFF, 0xFE}):
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
	case bytes.HasPrefix(raw, []byte{0xFE, 0xFF}):
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
	}

	head := raw
	if len(head) > 512 {
		head = head[:512]
	}
	if m := encodingPattern.FindSubmatch(head); m != nil {
		switch strings.ToLower(string(m[1])) {
		case "iso-8859-1", "latin1":
			return charmap.ISO8859_1
		case "iso-8859-15", "latin9":
			return charmap.ISO8859_15
		case "windows-1252", "cp1252":
			return charmap.Windows1252
		case "windows-1251", "cp1251":
			return charmap.Windows1251
		}
	}

	if utf8.Valid(raw) {
		return nil
	}
	return charmap.ISO8859_1
}
