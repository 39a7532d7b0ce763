package datasource

import (
	"fmt"
	"maps"
	"slices"

	templating "github.com/goliatone/go-templating"
)

// ToMetricFindValues converts an evaluation or HTTP result into candidate
// records:
//
//	[]any of scalars       one record per item, the item is the value
//	[]any of objects       "text" and "value" keys of each object
//	[]string               one record per item
//	map[string]any         one record per key, in sorted key order
//	scalar                 a single record
//	nil                    no records
func ToMetricFindValues(result any) ([]templating.MetricFindValue, error) {
	switch v := result.(type) {
	case nil:
		return nil, nil
	case []templating.MetricFindValue:
		return slices.Clone(v), nil
	case []string:
		out := make([]templating.MetricFindValue, 0, len(v))
		for _, item := range v {
			out = append(out, templating.MetricFindValue{Value: item})
		}
		return out, nil
	case []any:
		out := make([]templating.MetricFindValue, 0, len(v))
		for i, item := range v {
			record, err := toRecord(item)
			if err != nil {
				return nil, fmt.Errorf("datasource: result item %d: %w", i, err)
			}
			out = append(out, record)
		}
		return out, nil
	case map[string]any:
		keys := slices.Sorted(maps.Keys(v))
		out := make([]templating.MetricFindValue, 0, len(keys))
		for _, key := range keys {
			out = append(out, templating.MetricFindValue{Value: key})
		}
		return out, nil
	default:
		record, err := toRecord(v)
		if err != nil {
			return nil, fmt.Errorf("datasource: result: %w", err)
		}
		return []templating.MetricFindValue{record}, nil
	}
}

func toRecord(item any) (templating.MetricFindValue, error) {
	switch v := item.(type) {
	case map[string]any:
		record := templating.MetricFindValue{Text: v["text"], Value: v["value"]}
		if record.Text == nil && record.Value == nil {
			return record, fmt.Errorf("object has neither text nor value")
		}
		return record, nil
	case []any:
		return templating.MetricFindValue{}, fmt.Errorf("nested lists are not supported")
	default:
		return templating.MetricFindValue{Value: v}, nil
	}
}
