// Package checkpoint 持久化每个会话线程的对话状态（消息窗口与滚动摘要）。
//
// 三种实现共享同一语义：Load 在线程不存在时返回 found=false，
// Save 覆盖整个状态。返回的状态都是副本，调用方可以自由修改。
package checkpoint

import (
	"fmt"
	"strings"

	"github.com/kart-io/storybook-rag/internal/storybook/model"
)

// Kind 检查点后端类型。
type Kind string

const (
	KindRedis  Kind = "redis"
	KindMongo  Kind = "mongodb"
	KindMemory Kind = "memory"
)

// ParseKind 解析后端类型。
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindRedis, KindMongo, KindMemory:
		return k, nil
	case "mongo":
		return KindMongo, nil
	default:
		return "", fmt.Errorf("unknown checkpoint backend %q", s)
	}
}

func validate(state *model.ThreadState) error {
	if state == nil {
		return fmt.Errorf("checkpoint state is nil")
	}
	if state.ThreadID == "" {
		return fmt.Errorf("checkpoint thread id is empty")
	}
	return nil
}
