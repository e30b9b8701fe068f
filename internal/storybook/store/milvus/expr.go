// Package milvus implements the vector store on Milvus.
//
// The client-backed store is only compiled with the "milvus" build tag. The
// Milvus and Qdrant gRPC clients register conflicting protobuf files, so a
// binary links at most one of them. Without the tag New reports a
// configuration error.
package milvus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kart-io/storybook-rag/internal/storybook/store"
)

// Column names of the collection schema created by pkg/component/milvus.
const (
	fieldID      = "id"
	fieldPayload = "payload"
)

// CollectionName 将集合名映射为 Milvus 合法名称：
// 只保留字母、数字与下划线，数字开头时加前缀 "_"。
func CollectionName(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Expr 将过滤条件翻译为 Milvus 布尔表达式。
// 每个匹配同时覆盖标量相等与数组包含两种情况。
func Expr(f store.Filter) string {
	clauses := make([]string, 0, len(f.Must)+1)
	for _, m := range f.Must {
		clauses = append(clauses, matchExpr(m))
	}
	if len(f.Should) > 0 {
		should := make([]string, 0, len(f.Should))
		for _, m := range f.Should {
			should = append(should, matchExpr(m))
		}
		clauses = append(clauses, "("+strings.Join(should, " or ")+")")
	}
	if len(clauses) == 0 {
		return fieldID + ` != ""`
	}
	return strings.Join(clauses, " and ")
}

func matchExpr(m store.Match) string {
	path := fmt.Sprintf("%s[%s]", fieldPayload, strconv.Quote(m.Field))
	value := strconv.Quote(m.Value)
	return fmt.Sprintf("(%s == %s or json_contains(%s, %s))", path, value, path, value)
}
