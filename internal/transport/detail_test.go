// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenDetail(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{"not an object", "oops", ""},
		{"no detail", map[string]any{"error": "x"}, ""},
		{"message fallback", map[string]any{"message": " rate limited "}, "rate limited"},
		{"string", map[string]any{"detail": "Invalid project key"}, "Invalid project key"},
		{
			"list of items",
			map[string]any{"detail": []any{
				map[string]any{"loc": []any{"body", "intent"}, "msg": "field required"},
				map[string]any{"msg": "too long"},
			}},
			"intent: field required; too long",
		},
		{"list of strings", map[string]any{"detail": []any{"a", "b"}}, "a; b"},
		{
			"object",
			map[string]any{"detail": map[string]any{"reason": "quota", "limit": 100.0}},
			"limit: 100; reason: quota",
		},
		{"object with msg", map[string]any{"detail": map[string]any{"msg": "nope"}}, "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlattenDetail(tt.body))
		})
	}
}
