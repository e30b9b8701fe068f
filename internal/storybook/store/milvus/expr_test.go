package milvus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/storybook-rag/internal/storybook/store"
)

func TestExpr(t *testing.T) {
	tests := []struct {
		name   string
		filter store.Filter
		want   string
	}{
		{"空过滤", store.Filter{}, `id != ""`},
		{
			"Must",
			store.Filter{Must: []store.Match{{Field: store.FieldType, Value: store.TypeSummary}}},
			`(payload["type"] == "summary" or json_contains(payload["type"], "summary"))`,
		},
		{
			"Should",
			store.Filter{Should: []store.Match{{Field: store.FieldKeywords, Value: "a"}, {Field: store.FieldSummary, Value: `say "hi"`}}},
			`((payload["keywords"] == "a" or json_contains(payload["keywords"], "a")) or ` +
				`(payload["summary"] == "say \"hi\"" or json_contains(payload["summary"], "say \"hi\"")))`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expr(tt.filter))
		})
	}
}

func TestCollectionName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"短横线", "story-1a2b3c4", "story_1a2b3c4"},
		{"数字开头", "7dwarfs-abc1234", "_7dwarfs_abc1234"},
		{"合法名称", "tale_x", "tale_x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CollectionName(tt.in))
		})
	}
}
