// Package normalize turns raw signal attributes into the comparison keys the
// trackers index on. All functions are pure and total: empty or malformed
// input degrades to an empty (or unchanged) result, never an error.
package normalize

import (
	"net/url"
	"strings"
	"unicode"
)

// Tracking/attribution query parameters stripped during URL normalization.
// utm_* is handled as a prefix match.
var trackingQueryKeys = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
	"ref":     {},
	"ref_src": {},
}

// URL strips known tracking parameters, trims a single trailing slash and
// lowercases scheme and host. Malformed input is returned unchanged.
func URL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return raw
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	q := parsed.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") {
			q.Del(key)
			continue
		}
		if _, ok := trackingQueryKeys[lower]; ok {
			q.Del(key)
		}
	}
	if len(q) > 0 {
		parsed.RawQuery = q.Encode()
	} else {
		parsed.RawQuery = ""
	}

	if strings.HasSuffix(parsed.Path, "/") && parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String()
}

// CleanURL is the stronger reduction used for URL identity keys and the
// URL-already-processed guard: query and fragment are dropped entirely and
// the whole string is lowercased. Malformed input falls back to a lowercased
// trim of the raw string so the guard still has something stable to match on.
func CleanURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.ToLower(trimmed)
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""
	cleaned := strings.ToLower(parsed.String())
	if strings.HasSuffix(cleaned, "/") && !strings.HasSuffix(cleaned, "://") {
		cleaned = strings.TrimSuffix(cleaned, "/")
	}
	return cleaned
}

// Title lowercases, drops every non-alphanumeric non-space rune, collapses
// whitespace runs to a single space and trims.
func Title(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(lowered))
	lastSpace := false
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// CompositeKey is the primary identity for analysis/publish tracking:
// lower(source) + ":" + lower(normalized link) + ":" + space-stripped
// normalized title. Missing fields contribute empty segments, so the key is
// always well-defined.
func CompositeKey(source, link, title string) string {
	normalizedLink := strings.ToLower(URL(link))
	strippedTitle := strings.ReplaceAll(Title(title), " ", "")
	return strings.ToLower(strings.TrimSpace(source)) + ":" + normalizedLink + ":" + strippedTitle
}

// IdentityKeys returns the fixed ordered key set the collection tracker
// records for one signal. The scheme deliberately over-matches: any single
// key collision marks two signals as the same ingested item, because
// re-ingesting costs nothing while re-publishing is user-visible spam. That
// means distinct releases sharing only a title (and both lacking links) are
// suppressed as duplicates; this is an accepted tradeoff, not a defect.
//
// Keys, in order:
//  1. url:<exact link>            (when a link is present)
//  2. nurl:<cleaned link>         (query/fragment stripped, when present)
//  3. title:<normalized title>    (only when the signal has no link)
//  4. st:<source>:<normalized title>
func IdentityKeys(source, link, title string) []string {
	keys := make([]string, 0, 4)

	trimmedLink := strings.TrimSpace(link)
	if trimmedLink != "" {
		keys = append(keys, "url:"+strings.ToLower(trimmedLink))
		if cleaned := CleanURL(trimmedLink); cleaned != "" {
			keys = append(keys, "nurl:"+cleaned)
		}
	}

	normalizedTitle := Title(title)
	if trimmedLink == "" && normalizedTitle != "" {
		keys = append(keys, "title:"+normalizedTitle)
	}

	keys = append(keys, "st:"+strings.ToLower(strings.TrimSpace(source))+":"+normalizedTitle)
	return keys
}
