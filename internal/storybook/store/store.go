// Package store 定义故事书检索使用的向量存储抽象及其实现。
//
// 每次上传对应一个集合（collection）。点的 payload 由分块元数据加上
// page_content 组成，过滤只支持精确匹配：标量值相等即命中，列表值中
// 任一元素相等即命中。
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// PayloadPageContent 存放分块正文的 payload 键。
const PayloadPageContent = "page_content"

// 分块元数据键。
const (
	FieldSourcePDF  = "source_pdf"
	FieldSummary    = "summary"
	FieldKeywords   = "keywords"
	FieldChunkIndex = "chunk_index"
	FieldType       = "type"
)

// TypeSummary 合成摘要分块的 type 取值。
const TypeSummary = "summary"

// ErrCollectionNotFound 集合不存在。
var ErrCollectionNotFound = errors.New("collection not found")

// Point 待写入的向量点。
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Candidate 检索返回的点。Scroll 返回的候选 Score 为 0。
type Candidate struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// Text 返回候选的正文。
func (c Candidate) Text() string {
	return PageContent(c.Payload)
}

// Metadata 返回去掉正文后的元数据副本。
func (c Candidate) Metadata() map[string]any {
	meta := make(map[string]any, len(c.Payload))
	for k, v := range c.Payload {
		if k != PayloadPageContent {
			meta[k] = v
		}
	}
	return meta
}

// Match 精确匹配条件。
type Match struct {
	Field string
	Value string
}

// Filter 由 Must（全部满足）与 Should（至少满足一个）组成。
type Filter struct {
	Must   []Match
	Should []Match
}

// Matches 判断 payload 是否满足过滤条件。
func (f Filter) Matches(payload map[string]any) bool {
	for _, m := range f.Must {
		if !matchValue(payload[m.Field], m.Value) {
			return false
		}
	}
	if len(f.Should) == 0 {
		return true
	}
	for _, m := range f.Should {
		if matchValue(payload[m.Field], m.Value) {
			return true
		}
	}
	return false
}

func matchValue(v any, want string) bool {
	switch val := v.(type) {
	case string:
		return val == want
	case []string:
		for _, s := range val {
			if s == want {
				return true
			}
		}
	case []any:
		for _, s := range val {
			if matchValue(s, want) {
				return true
			}
		}
	case int:
		return strconv.Itoa(val) == want
	case int64:
		return strconv.FormatInt(val, 10) == want
	case bool:
		return strconv.FormatBool(val) == want
	}
	return false
}

// VectorStore 向量存储接口。
type VectorStore interface {
	// HasCollection 判断集合是否存在。
	HasCollection(ctx context.Context, name string) (bool, error)

	// EnsureCollection 以余弦距离创建集合，已存在时不做任何事。
	EnsureCollection(ctx context.Context, name string, dim int) error

	// EnsureFieldIndex 为 payload 字段创建精确匹配索引。
	EnsureFieldIndex(ctx context.Context, name, field string) error

	// Upsert 写入点，成功返回时点已可检索。
	Upsert(ctx context.Context, name string, points []Point) error

	// Search 返回与 vector 最相近的 k 个点，按相似度降序。
	Search(ctx context.Context, name string, vector []float32, k int) ([]Candidate, error)

	// Scroll 返回满足过滤条件的至多 limit 个点。
	Scroll(ctx context.Context, name string, filter Filter, limit int) ([]Candidate, error)

	// Close 释放连接。
	Close() error
}

// PageContent 从 payload 中取出正文。
func PageContent(payload map[string]any) string {
	if s, ok := payload[PayloadPageContent].(string); ok {
		return s
	}
	return ""
}

// Kind 向量存储后端类型。
type Kind string

const (
	KindQdrant Kind = "qdrant"
	KindMilvus Kind = "milvus"
	KindMemory Kind = "memory"
)

// ParseKind 解析后端类型。
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindQdrant, KindMilvus, KindMemory:
		return k, nil
	}
	return "", fmt.Errorf("unknown vector store %q", s)
}

// QdrantConfig Qdrant 连接配置。
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}
