package templating

import (
	"regexp"
	"strings"
)

// Interpolation formats understood by Interpolate.
const (
	FormatRaw   = "raw"
	FormatRegex = "regex"
	FormatPipe  = "pipe"
	FormatCSV   = "csv"
	FormatGlob  = "glob"
)

// variableReference matches $name, [[name]], [[name:fmt]], ${name},
// ${name.path} and ${name:fmt}.
var variableReference = regexp.MustCompile(`\$(\w+)|\[\[([\s\S]+?)(?::(\w+))?\]\]|\$\{(\w+)(?:\.([^:^\}]+))?(?::(\w+))?\}`)

var regexSpecial = regexp.MustCompile(`[\\^$*+?.()|[\]{}/]`)

// Interpolate replaces variable references in target with the current
// values held in state, formatted with format unless the reference names
// its own format. Unknown references are left as written, and so are
// references reached again while expanding a custom all value.
func Interpolate(state State, target, format string) string {
	return interpolate(state, target, format, nil)
}

func interpolate(state State, target, format string, expanding map[string]bool) string {
	if target == "" {
		return target
	}
	return variableReference.ReplaceAllStringFunc(target, func(match string) string {
		groups := variableReference.FindStringSubmatch(match)
		name := firstNonEmpty(groups[1], groups[2], groups[4])
		fmtName := firstNonEmpty(groups[3], groups[6], format)

		variable, ok := state.byName[name]
		if !ok || expanding[name] {
			return match
		}
		current := variable.Common().Current
		if current.Value == AllVariableValue {
			if provider, ok := variable.(AllValueProvider); ok && provider.CustomAllValue() != "" {
				nested := make(map[string]bool, len(expanding)+1)
				for key := range expanding {
					nested[key] = true
				}
				nested[name] = true
				return interpolate(state, provider.CustomAllValue(), "", nested)
			}
			return formatValues(allValues(variable), fmtName)
		}
		return formatValues([]string{current.Value}, fmtName)
	})
}

// ContainsVariable reports whether any of the given strings references the
// variable called name.
func ContainsVariable(name string, targets ...string) bool {
	if name == "" {
		return false
	}
	for _, target := range targets {
		for _, groups := range variableReference.FindAllStringSubmatch(target, -1) {
			if firstNonEmpty(groups[1], groups[2], groups[4]) == name {
				return true
			}
		}
	}
	return false
}

// RegexEscape escapes characters that carry meaning in a regex.
func RegexEscape(value string) string {
	return regexSpecial.ReplaceAllString(value, `\$0`)
}

func allValues(variable VariableModel) []string {
	options := variable.Common().Options
	values := make([]string, 0, len(options))
	for i := 1; i < len(options); i++ {
		values = append(values, options[i].Value)
	}
	return values
}

func formatValues(values []string, format string) string {
	switch format {
	case FormatRegex:
		escaped := make([]string, len(values))
		for i, value := range values {
			escaped[i] = RegexEscape(value)
		}
		if len(escaped) == 1 {
			return escaped[0]
		}
		return "(" + strings.Join(escaped, "|") + ")"
	case FormatPipe:
		return strings.Join(values, "|")
	case FormatCSV:
		return strings.Join(values, ",")
	case FormatRaw:
		return strings.Join(values, ",")
	default:
		if len(values) == 1 {
			return values[0]
		}
		return "{" + strings.Join(values, ",") + "}"
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
