package artpub

import (
	"net/url"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Length limits for generated names.
const (
	MaxTitleLength    = 200
	MaxSlugLength     = 60
	MaxFilenameLength = 100
)

// DefaultSlug is used when a title has no characters usable in a slug.
const DefaultSlug = "chapter"

// CleanText strips characters that are not allowed in XML documents and
// collapses runs of whitespace into single spaces.
func CleanText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return ' '
		}
		if unicode.IsControl(r) || r == 0xFFFE || r == 0xFFFF {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// SanitizeTitle returns a single-line title without control characters,
// capped at MaxTitleLength runes.
func SanitizeTitle(s string) string {
	return truncate(CleanText(s), MaxTitleLength)
}

// Slugify returns a lowercase ASCII slug for use in container file names.
// Accents are folded ("Café" becomes "cafe"); every other run of
// characters outside [a-z0-9] becomes a single hyphen.
// Returns DefaultSlug when nothing usable remains.
func Slugify(s string) string {
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}

	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			hyphen = false
			continue
		}
		if !hyphen && b.Len() > 0 {
			b.WriteByte('-')
			hyphen = true
		}
	}

	slug := strings.Trim(truncate(b.String(), MaxSlugLength), "-")
	if slug == "" {
		return DefaultSlug
	}
	return slug
}

// SafeFilename removes characters that are disallowed in file names on
// common filesystems (<>:"/\|?* and control characters), collapses
// whitespace and trims leading and trailing dots and spaces.
// Returns an empty string when nothing usable remains.
func SafeFilename(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) {
			return -1
		}
		return r
	}, s)
	s = strings.Trim(CleanText(s), " .")
	return strings.Trim(truncate(s, MaxFilenameLength), " .")
}

// TitleFromURL derives a placeholder title from a page URL: the last path
// segment with separators turned into spaces, else the host name.
func TitleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "Untitled"
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if last := segments[len(segments)-1]; last != "" {
		if unescaped, err := url.PathUnescape(last); err == nil {
			last = unescaped
		}
		if ext := path.Ext(last); len(ext) > 1 && len(ext) <= 5 {
			last = strings.TrimSuffix(last, ext)
		}
		last = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(last)
		if title := SanitizeTitle(last); title != "" {
			return title
		}
	}

	if host := u.Hostname(); host != "" {
		return host
	}
	return "Untitled"
}

// truncate caps s at n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
