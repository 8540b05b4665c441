package permission

import (
	"net/url"
	"regexp"
	"strings"
)

// wildcard replaces each {param} placeholder: one path segment of
// unreserved URL characters (alphanumerics including CJK, and _-.~). It
// excludes the path separator, so a placeholder never matches across a /
// boundary.
const wildcard = `[0-9A-Za-z\x{4e00}-\x{9fff}_\-.~]+`

var placeholderPattern = regexp.MustCompile(`\{[^}]*\}`)

// Matcher tests concrete request paths against a compiled URL template.
// Matching is anchored at both ends and applies to the path component only.
type Matcher struct {
	template string
	pattern  *regexp.Regexp
}

// CompileTemplate compiles a template such as /role/{role_id}/api. Literal
// text is matched verbatim; each placeholder becomes a single-segment
// wildcard. Textually different templates compile independently even when
// they denote the same matcher surface.
func CompileTemplate(template string) (*Matcher, error) {
	var b strings.Builder
	b.WriteString("^")

	last := 0
	for _, loc := range placeholderPattern.FindAllStringIndex(template, -1) {
		b.WriteString(regexp.QuoteMeta(template[last:loc[0]]))
		b.WriteString(wildcard)
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(template[last:]))
	b.WriteString("$")

	pattern, err := regexp.Compile(b.String())
	if err != nil {
		return nil, err
	}
	return &Matcher{template: template, pattern: pattern}, nil
}

// Template returns the source template.
func (m *Matcher) Template() string { return m.template }

// Match reports whether the path component of rawURL matches the template.
// Query strings and fragments are stripped before comparison; an unparsable
// URL never matches.
func (m *Matcher) Match(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return m.pattern.MatchString(parsed.Path)
}
