package templating

import (
	"cmp"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// MetricFindValue is one raw candidate record produced by a datasource.
// Text and Value hold strings, numbers or nil; nil means absent.
type MetricFindValue struct {
	Text  any `json:"text,omitempty"`
	Value any `json:"value,omitempty"`
}

// ResolveConfig carries the variable settings the options resolver reads.
type ResolveConfig struct {
	// Variable names the variable being resolved; used in fault messages.
	Variable string
	// Regex is the raw, uninterpolated variable regex.
	Regex      string
	Sort       VariableSort
	IncludeAll bool
	// State supplies current values for regex interpolation.
	State State
	// Regexes memoizes compiled patterns. Optional.
	Regexes *RegexCache
}

var firstNumber = regexp.MustCompile(`(\d+)`)

// ResolveOptions turns raw records into the ordered, deduplicated option list
// of a query variable, including the "All" and "None" sentinels. The result
// is never empty.
func ResolveOptions(records []MetricFindValue, cfg ResolveConfig) ([]VariableOption, error) {
	options, err := MetricNamesToOptions(records, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.IncludeAll {
		options = slices.Insert(options, 0, VariableOption{Text: AllVariableText, Value: AllVariableValue})
	}
	if len(options) == 0 {
		options = append(options, VariableOption{Text: NoneVariableText, Value: NoneVariableValue, IsNone: true})
	}
	return options, nil
}

// MetricNamesToOptions applies the regex filter, deduplication and sort to
// raw records without adding sentinel options.
func MetricNamesToOptions(records []MetricFindValue, cfg ResolveConfig) ([]VariableOption, error) {
	var re *VariableRegex
	if cfg.Regex != "" {
		pattern := Interpolate(cfg.State, cfg.Regex, FormatRegex)
		compiled, err := cfg.Regexes.Compile(pattern)
		if err != nil {
			return nil, wrapRegexError(cfg.Variable, pattern, err)
		}
		re = compiled
	}

	options := make([]VariableOption, 0, len(records))
	for _, record := range records {
		text, value := record.Text, record.Value
		if text == nil {
			text = record.Value
		}
		if value == nil {
			value = record.Text
		}
		textString, valueString := stringify(text), stringify(value)

		if re != nil {
			matched, capture, hasGroup, err := re.Exec(valueString)
			if err != nil {
				return nil, wrapRegexError(cfg.Variable, re.String(), err)
			}
			if !matched {
				continue
			}
			if hasGroup {
				textString, valueString = capture, capture
			}
		}
		options = append(options, VariableOption{Text: textString, Value: valueString})
	}

	return SortOptions(uniqueByValue(options), cfg.Sort), nil
}

// SortOptions orders options by sort. The input slice is not modified.
func SortOptions(options []VariableOption, sort VariableSort) []VariableOption {
	if sort == SortDisabled {
		return options
	}
	out := slices.Clone(options)
	switch (sort + 1) / 2 {
	case 1:
		slices.SortStableFunc(out, func(a, b VariableOption) int {
			return strings.Compare(a.Text, b.Text)
		})
	case 2:
		slices.SortStableFunc(out, func(a, b VariableOption) int {
			return cmp.Compare(numericalKey(a.Text), numericalKey(b.Text))
		})
	case 3:
		slices.SortStableFunc(out, func(a, b VariableOption) int {
			return strings.Compare(strings.ToLower(a.Text), strings.ToLower(b.Text))
		})
	}
	if sort%2 == 0 {
		slices.Reverse(out)
	}
	return out
}

// ResolveTags maps raw tag records to unselected tags, keeping order and
// duplicates.
func ResolveTags(records []MetricFindValue) []VariableTag {
	tags := make([]VariableTag, 0, len(records))
	for _, record := range records {
		tags = append(tags, VariableTag{Text: stringify(record.Text)})
	}
	return tags
}

func numericalKey(text string) float64 {
	match := firstNumber.FindString(text)
	if match == "" {
		return -1
	}
	n, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return -1
	}
	return n
}

func uniqueByValue(options []VariableOption) []VariableOption {
	seen := make(map[string]struct{}, len(options))
	out := options[:0]
	for _, option := range options {
		if _, ok := seen[option.Value]; ok {
			continue
		}
		seen[option.Value] = struct{}{}
		out = append(out, option)
	}
	return out
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
