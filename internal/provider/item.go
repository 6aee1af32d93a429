package provider

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/FranksOps/furrow/internal/keyword"
	"github.com/FranksOps/furrow/pkg/httpclient"
)

// section returns the list stored under key. present is false when the key
// is absent; a present key holding something other than a list is an error.
func section(resp httpclient.Response, key string) (items []any, present bool, err error) {
	raw, ok := resp[key]
	if !ok || raw == nil {
		return nil, false, nil
	}
	items, ok = raw.([]any)
	if !ok {
		return nil, true, fmt.Errorf("section %q is %T, not a list", key, raw)
	}
	return items, true, nil
}

// itemFields holds the JSON keys an API uses for each record field.
// Empty optional keys are never read.
type itemFields struct {
	text       string
	volume     string
	difficulty string
	cpc        string
}

// parseItem maps one response element to a Record. A missing text field is
// recorded as an empty keyword; wrongly typed fields make the item malformed.
func parseItem(seed string, raw any, f itemFields, t keyword.Type, source string) (keyword.Record, error) {
	item, ok := raw.(map[string]any)
	if !ok {
		return keyword.Record{}, fmt.Errorf("item is %T, not an object", raw)
	}

	text := ""
	if v, ok := item[f.text]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return keyword.Record{}, fmt.Errorf("field %q is %T, not a string", f.text, v)
		}
		text = s
	}

	volume := 0
	if f.volume != "" {
		if v, ok := item[f.volume]; ok && v != nil {
			n, err := toFloat(v)
			if err != nil {
				return keyword.Record{}, fmt.Errorf("field %q: %w", f.volume, err)
			}
			volume = int(math.Round(n))
		}
	}

	var opts []keyword.Option
	if f.difficulty != "" {
		if v, ok := item[f.difficulty]; ok && v != nil {
			n, err := toFloat(v)
			if err != nil {
				return keyword.Record{}, fmt.Errorf("field %q: %w", f.difficulty, err)
			}
			opts = append(opts, keyword.WithDifficulty(int(math.Round(n))))
		}
	}
	if f.cpc != "" {
		if v, ok := item[f.cpc]; ok && v != nil {
			n, err := toFloat(unwrapMoney(v))
			if err != nil {
				return keyword.Record{}, fmt.Errorf("field %q: %w", f.cpc, err)
			}
			opts = append(opts, keyword.WithCPC(n))
		}
	}

	return keyword.NewRecord(seed, text, volume, t, source, opts...)
}

// unwrapMoney accepts {"currency":"$","value":"2.50"} as well as a bare value.
func unwrapMoney(v any) any {
	if m, ok := v.(map[string]any); ok {
		if inner, ok := m["value"]; ok {
			return inner
		}
	}
	return v
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(n, "$")), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not numeric", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%T is not numeric", v)
	}
}
