package curseforge

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// DefaultCDNBase is the direct content location for CurseForge files.
const DefaultCDNBase = "https://edge.forgecdn.net/files"

// landingPage matches project file pages with a seven digit file id. The id
// must end the path segment; longer ids belong to a different CDN layout.
var landingPage = regexp.MustCompile(
	`^https://www\.curseforge\.com/minecraft/mc-mods/[^/]+/(?:files|download)/(?P<id>\d{7})(?:[/?#]|$)`,
)

// Resolver maps landing-page URLs to CDN URLs.
//
// Resolver has no mutable state and is safe for concurrent use.
type Resolver struct {
	cdnBase string
}

// NewResolver creates a Resolver. An empty cdnBase selects DefaultCDNBase.
func NewResolver(cdnBase string) *Resolver {
	if cdnBase == "" {
		cdnBase = DefaultCDNBase
	}
	return &Resolver{cdnBase: strings.TrimRight(cdnBase, "/")}
}

// Match reports whether rawURL is a landing page and returns its file id.
func (r *Resolver) Match(rawURL string) (string, bool) {
	m := landingPage.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[landingPage.SubexpIndex("id")], true
}

// Resolve returns the URL to download filename from.
//
// Only the last path segment of filename is used. Non-matching URLs,
// including URLs that were already resolved, are returned unchanged.
//
// Example:
//
//	r.Resolve("https://www.curseforge.com/minecraft/mc-mods/jei/download/1234567", "mods/jei.jar")
//	// "https://edge.forgecdn.net/files/1234/567/jei.jar"
func (r *Resolver) Resolve(rawURL, filename string) string {
	id, ok := r.Match(rawURL)
	if !ok {
		return rawURL
	}

	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" {
		return rawURL
	}

	return r.cdnBase + "/" + id[:4] + "/" + id[4:] + "/" + url.PathEscape(base)
}
