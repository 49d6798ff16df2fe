package sitename

import (
	"regexp"
	"strings"
)

// DefaultSuffix is the tenant domain every provisioned site lives under.
// Override per environment with SITE_DOMAIN_SUFFIX.
const DefaultSuffix = ".purpledove.net"

var (
	tldPattern   = regexp.MustCompile(`(\.[a-z]{2,})+$`)
	labelPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Normalize turns a user-supplied site name into the canonical tenant
// hostname: lower-cased, whitespace removed, any trailing TLD-style suffix
// (".com", ".co.uk") stripped, and the target suffix appended. The result is
// the permanent correlation key between transactions and site snapshots, so
// this transform must stay deterministic; changing it strands historical
// rows.
func Normalize(raw, suffix string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = whitespace.ReplaceAllString(name, "")

	if strings.HasSuffix(name, suffix) {
		return name
	}

	base := tldPattern.ReplaceAllString(name, "")
	if base == "" {
		base = name
	}

	return base + suffix
}

// Validate reports whether a normalized site name is acceptable: non-empty,
// 3..63 characters, a well-formed leading label, and exactly the expected
// domain suffix.
func Validate(name, suffix string) bool {
	if name == "" {
		return false
	}
	if len(name) < 3 || len(name) > 63 {
		return false
	}

	label, rest, found := strings.Cut(name, ".")
	if !found {
		return false
	}
	if !labelPattern.MatchString(label) {
		return false
	}

	return "."+rest == suffix
}
