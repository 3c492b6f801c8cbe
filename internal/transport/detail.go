// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package transport

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FlattenDetail turns the backend error envelope {"detail": ...} into one
// readable line. detail may be a string, a list of {msg, loc} items or an
// arbitrary object. Returns "" when body carries no detail.
func FlattenDetail(body any) string {
	m, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	d, ok := m["detail"]
	if !ok {
		if s, ok := m["message"].(string); ok {
			return strings.TrimSpace(s)
		}
		return ""
	}
	return flatten(d)
}

func flatten(d any) string {
	switch v := d.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := flattenItem(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		if _, ok := v["msg"].(string); ok {
			return flattenItem(v)
		}
		if s, ok := v["message"].(string); ok {
			return strings.TrimSpace(s)
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, flatten(v[k])))
		}
		return strings.Join(parts, "; ")
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

// flattenItem renders one validation item, prefixing the field location
// when present: {"loc":["body","intent"],"msg":"field required"} becomes
// "intent: field required".
func flattenItem(item any) string {
	m, ok := item.(map[string]any)
	if !ok {
		return flatten(item)
	}
	msg, ok := m["msg"].(string)
	if !ok {
		return flatten(m)
	}
	if loc := location(m["loc"]); loc != "" {
		return loc + ": " + msg
	}
	return msg
}

func location(v any) string {
	parts, ok := v.([]any)
	if !ok {
		return ""
	}
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		s := fmt.Sprint(p)
		if i == 0 && s == "body" && len(parts) > 1 {
			continue
		}
		out = append(out, s)
	}
	return strings.Join(out, ".")
}
