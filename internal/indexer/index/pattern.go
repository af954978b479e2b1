package index

import (
	"regexp"
	"strings"
)

// Wildcard is the query marker for an open token end.
const Wildcard = "*"

// Pattern is a query term: a literal base with optionally open ends.
type Pattern struct {
	Raw      string
	Base     string
	Leading  bool
	Trailing bool

	re *regexp.Regexp
}

// ParsePattern strips a single leading and/or trailing wildcard from term.
func ParsePattern(term string) Pattern {
	p := Pattern{Raw: term, Base: term}
	if strings.HasPrefix(p.Base, Wildcard) {
		p.Leading = true
		p.Base = p.Base[len(Wildcard):]
	}
	if strings.HasSuffix(p.Base, Wildcard) {
		p.Trailing = true
		p.Base = p.Base[:len(p.Base)-len(Wildcard)]
	}
	if p.IsWildcard() {
		expr := regexp.QuoteMeta(p.Base)
		if p.Leading {
			expr = ".*" + expr
		}
		if p.Trailing {
			expr += ".*"
		}
		p.re = regexp.MustCompile("^" + expr + "$")
	}
	return p
}

// IsWildcard reports whether either end of the pattern is open.
func (p Pattern) IsWildcard() bool {
	return p.Leading || p.Trailing
}

// Match reports whether token satisfies the pattern.
func (p Pattern) Match(token string) bool {
	if p.re == nil {
		return token == p.Base
	}
	return p.re.MatchString(token)
}
