package templating

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultRegexCacheSize bounds the number of compiled variable regexes kept
// by a RegexCache.
const DefaultRegexCacheSize = 256

var regexLiteral = regexp.MustCompile(`^/(.*?)/(g?i?m?y?)$`)

// VariableRegex is a compiled variable regex. Patterns follow JavaScript
// syntax and semantics.
type VariableRegex struct {
	source string
	re     *regexp2.Regexp

	// firstGroup names the leftmost capturing group when it is named.
	firstGroup string
}

// String returns the pattern the regex was compiled from.
func (r *VariableRegex) String() string {
	if r == nil {
		return ""
	}
	return r.source
}

// Exec runs the regex against value. When the pattern declares a capture
// group, capture holds the text of the group whose opening parenthesis comes
// first, named or not.
func (r *VariableRegex) Exec(value string) (matched bool, capture string, hasGroup bool, err error) {
	m, err := r.re.FindStringMatch(value)
	if err != nil {
		return false, "", false, err
	}
	if m == nil {
		return false, "", false, nil
	}
	if m.GroupCount() < 2 {
		return true, "", false, nil
	}
	var group *regexp2.Group
	if r.firstGroup != "" {
		group = m.GroupByName(r.firstGroup)
	} else {
		group = m.GroupByNumber(1)
	}
	if group == nil || len(group.Captures) == 0 {
		return true, "", true, nil
	}
	return true, group.String(), true, nil
}

// CompileVariableRegex compiles a variable regex. A pattern starting with a
// slash is parsed as /source/flags; anything else is anchored at both ends.
func CompileVariableRegex(pattern string, timeout time.Duration) (*VariableRegex, error) {
	source, options, err := parseRegexLiteral(pattern)
	if err != nil {
		return nil, &RegexError{Pattern: pattern, Err: err}
	}
	re, err := regexp2.Compile(source, options)
	if err != nil {
		return nil, &RegexError{Pattern: pattern, Err: err}
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	return &VariableRegex{source: pattern, re: re, firstGroup: leadingGroupName(source)}, nil
}

// leadingGroupName returns the name of the leftmost capturing group in
// source, or "" when that group is unnamed or there is none. Unnamed groups
// are numbered before named ones, so an unnamed leftmost group is group 1.
func leadingGroupName(source string) string {
	inClass := false
	for i := 0; i < len(source); i++ {
		switch c := source[i]; {
		case c == '\\':
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case c == '(':
			rest := source[i+1:]
			if !strings.HasPrefix(rest, "?") {
				return ""
			}
			if strings.HasPrefix(rest, "?<") && !strings.HasPrefix(rest, "?<=") && !strings.HasPrefix(rest, "?<!") {
				if end := strings.IndexByte(rest, '>'); end > 2 {
					return rest[2:end]
				}
			}
			if strings.HasPrefix(rest, "?'") {
				if end := strings.IndexByte(rest[2:], '\''); end > 0 {
					return rest[2 : 2+end]
				}
			}
		}
	}
	return ""
}

func parseRegexLiteral(pattern string) (string, regexp2.RegexOptions, error) {
	options := regexp2.RegexOptions(regexp2.ECMAScript)
	if !strings.HasPrefix(pattern, "/") {
		return "^" + pattern + "$", options, nil
	}
	match := regexLiteral.FindStringSubmatch(pattern)
	if match == nil {
		return "", 0, fmt.Errorf("'%s' is not a valid regular expression", pattern)
	}
	for _, flag := range match[2] {
		switch flag {
		case 'i':
			options |= regexp2.IgnoreCase
		case 'm':
			options |= regexp2.Multiline
		}
	}
	return match[1], options, nil
}

// RegexCache memoizes compiled variable regexes keyed by pattern.
type RegexCache struct {
	cache   *lru.Cache[string, *VariableRegex]
	timeout time.Duration
}

// NewRegexCache constructs a cache holding up to size compiled patterns.
func NewRegexCache(size int, timeout time.Duration) (*RegexCache, error) {
	if size <= 0 {
		size = DefaultRegexCacheSize
	}
	cache, err := lru.New[string, *VariableRegex](size)
	if err != nil {
		return nil, fmt.Errorf("templating: regex cache: %w", err)
	}
	return &RegexCache{cache: cache, timeout: timeout}, nil
}

// Compile returns the cached regex for pattern, compiling it on a miss.
// Compile failures are not cached.
func (c *RegexCache) Compile(pattern string) (*VariableRegex, error) {
	if c == nil || c.cache == nil {
		return CompileVariableRegex(pattern, 0)
	}
	if re, ok := c.cache.Get(pattern); ok {
		return re, nil
	}
	re, err := CompileVariableRegex(pattern, c.timeout)
	if err != nil {
		return nil, err
	}
	c.cache.Add(pattern, re)
	return re, nil
}

// Len reports the number of cached patterns.
func (c *RegexCache) Len() int {
	if c == nil || c.cache == nil {
		return 0
	}
	return c.cache.Len()
}
