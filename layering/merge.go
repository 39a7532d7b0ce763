// Package layering merges JSON shaped documents, such as variable save
// models, over one another.
package layering

// MergeLayers composes documents ordered from strongest to weakest. Keys of
// stronger documents win; nested objects are merged key by key while arrays
// and scalars are replaced wholesale. A nil value in a stronger document
// does not mask the weaker value. Inputs are never modified.
func MergeLayers(layers ...map[string]any) map[string]any {
	merged := map[string]any{}
	for i := len(layers) - 1; i >= 0; i-- {
		merged = mergeInto(merged, layers[i])
	}
	return merged
}

func mergeInto(weak, strong map[string]any) map[string]any {
	for key, value := range strong {
		if value == nil {
			if _, ok := weak[key]; ok {
				continue
			}
			weak[key] = nil
			continue
		}
		strongMap, strongIsMap := value.(map[string]any)
		weakMap, weakIsMap := weak[key].(map[string]any)
		if strongIsMap && weakIsMap {
			weak[key] = mergeInto(weakMap, strongMap)
			continue
		}
		weak[key] = Clone(value)
	}
	return weak
}

// Clone deep copies maps and slices of a decoded document. Other values are
// returned as is.
func Clone(value any) any {
	switch v := value.(type) {
	case map[string]any:
		if v == nil {
			return v
		}
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = Clone(item)
		}
		return out
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Clone(item)
		}
		return out
	default:
		return value
	}
}
