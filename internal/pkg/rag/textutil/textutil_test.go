package textutil_test

import (
	"testing"

	"github.com/kart-io/storybook-rag/internal/pkg/rag/textutil"
	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{
			name:     "相同向量",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{1.0, 0.0, 0.0},
			expected: 1.0,
		},
		{
			name:     "正交向量",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{0.0, 1.0, 0.0},
			expected: 0.0,
		},
		{
			name:     "相反向量",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{-1.0, 0.0, 0.0},
			expected: -1.0,
		},
		{
			name:     "空向量",
			a:        []float32{},
			b:        []float32{},
			expected: 0.0,
		},
		{
			name:     "长度不匹配",
			a:        []float32{1.0, 2.0},
			b:        []float32{1.0},
			expected: 0.0,
		},
		{
			name:     "零向量",
			a:        []float32{0, 0},
			b:        []float32{1, 1},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := textutil.CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.expected, result, 0.0001)
		})
	}
}

func TestNormalize(t *testing.T) {
	v := textutil.Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 0.0001)
	assert.InDelta(t, 0.8, v[1], 0.0001)

	zero := []float32{0, 0}
	assert.Equal(t, zero, textutil.Normalize(zero))
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"短字符串", "abc", 10, "abc"},
		{"英文截断", "abcdef", 3, "abc"},
		{"乌尔都语按字符截断", "ایک دن", 3, "ایک"},
		{"零长度", "abc", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, textutil.TruncateString(tt.input, tt.maxLen))
		})
	}
}

func TestContainsAny(t *testing.T) {
	terms := []string{"خلاصہ", "main idea", "summary"}

	assert.True(t, textutil.ContainsAny("کہانی کا خلاصہ بتائیں", terms))
	assert.True(t, textutil.ContainsAny("What is the Main Idea?", terms))
	assert.True(t, textutil.ContainsAny("give me a SUMMARY", terms))
	assert.False(t, textutil.ContainsAny("بادشاہ کون تھا؟", terms))
	assert.False(t, textutil.ContainsAny("anything", []string{""}))
}

func TestSplitKeywords(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"英文逗号", "شہزادی, بادشاہ ,جنگل", []string{"شہزادی", "بادشاہ", "جنگل"}},
		{"乌尔都语逗号", "شہزادی، بادشاہ", []string{"شہزادی", "بادشاہ"}},
		{"空项被丢弃", " , ,time,, tale ", []string{"time", "tale"}},
		{"空输入", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, textutil.SplitKeywords(tt.input))
		})
	}
}

func TestCleanMarkdown(t *testing.T) {
	input := "جواب یہ ہے:\n\n- پہلی **اہم** بات\n2. دوسری *نئی* بات\n\n\nآخر _ختم_"
	expected := "جواب یہ ہے:\nپہلی اہم بات\nدوسری نئی بات\nآخر ختم"
	assert.Equal(t, expected, textutil.CleanMarkdown(input))
}
