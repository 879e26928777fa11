// Package parser turns raw recipe page HTML into a structured ParsedRecipe.
// It prefers embedded schema.org Recipe JSON-LD and falls back to microdata
// and heuristic selectors.
package parser

import (
	"regexp"
	"strings"
)

var (
	reScript   = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	reStyle    = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	reComment  = regexp.MustCompile(`(?s)<!--.*?-->`)
	reNoscript = regexp.MustCompile(`(?is)<noscript\b[^>]*>.*?</noscript>`)
	reSpaces   = regexp.MustCompile(`[ \t]+`)
	reBlank    = regexp.MustCompile(`\n{3,}`)
)

// CleanHTML strips non-content markup (scripts, styles, comments) and
// normalizes whitespace while leaving the document structure intact for the
// parser. JSON-LD script blocks are preserved because they carry the recipe
// data.
func CleanHTML(content string) string {
	if content == "" {
		return ""
	}

	// Normalize line endings first so the regexes see a single convention.
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	content = protectJSONLD(content, func(s string) string {
		s = reScript.ReplaceAllString(s, "")
		s = reStyle.ReplaceAllString(s, "")
		s = reNoscript.ReplaceAllString(s, "")
		return s
	})
	content = reComment.ReplaceAllString(content, "")
	content = reSpaces.ReplaceAllString(content, " ")
	content = reBlank.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}

var reJSONLD = regexp.MustCompile(`(?is)<script\b[^>]*type\s*=\s*["']application/ld\+json["'][^>]*>.*?</script>`)

// protectJSONLD applies strip to content while keeping ld+json blocks
// untouched. The blocks are swapped out for placeholders and restored after.
func protectJSONLD(content string, strip func(string) string) string {
	blocks := reJSONLD.FindAllString(content, -1)
	if len(blocks) == 0 {
		return strip(content)
	}
	const placeholder = "\x00jsonld\x00"
	content = reJSONLD.ReplaceAllString(content, placeholder)
	content = strip(content)
	for _, b := range blocks {
		content = strings.Replace(content, placeholder, b, 1)
	}
	return content
}

// CollapseText normalizes a text fragment extracted from HTML: inner
// whitespace runs become single spaces and surrounding space is trimmed.
func CollapseText(s string) string {
	return strings.TrimSpace(regexp.MustCompile(`\s+`).ReplaceAllString(s, " "))
}
