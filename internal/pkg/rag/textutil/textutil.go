// Package textutil 提供 RAG 相关的文本处理工具函数。
package textutil

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// CosineSimilarity 计算两个向量的余弦相似度。
// 返回值范围为 [-1, 1]，长度不一致或零向量返回 0。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize 将向量缩放为单位长度，零向量原样返回。
func Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// TruncateString 截断字符串到指定的最大 Unicode 字符数。
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// ContainsAny 判断 s 是否包含任意一个词，拉丁字母不区分大小写。
func ContainsAny(s string, terms []string) bool {
	lower := strings.ToLower(s)
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(s, term) || strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// SplitKeywords 按英文或乌尔都语逗号拆分关键词，去除空白与空项。
func SplitKeywords(s string) []string {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return r == ',' || r == '،' || r == '\n'
	})
	result := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			result = append(result, f)
		}
	}
	return result
}

var (
	bulletRegex   = regexp.MustCompile(`(?m)^\s*[-*+]\s*`)
	numberedRegex = regexp.MustCompile(`(?m)^\s*\d+\.\s*`)
	boldRegex     = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRegex   = regexp.MustCompile(`\*(.*?)\*`)
	underRegex    = regexp.MustCompile(`_(.*?)_`)
	blankRegex    = regexp.MustCompile(`\n{2,}`)
)

// CleanMarkdown 去除回答中的列表标记、加粗与斜体，并合并多余空行。
func CleanMarkdown(text string) string {
	text = bulletRegex.ReplaceAllString(text, "")
	text = numberedRegex.ReplaceAllString(text, "")
	text = boldRegex.ReplaceAllString(text, "$1")
	text = italicRegex.ReplaceAllString(text, "$1")
	text = underRegex.ReplaceAllString(text, "$1")
	text = blankRegex.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
