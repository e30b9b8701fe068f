package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/storybook-rag/internal/storybook/metrics"
	"github.com/kart-io/storybook-rag/internal/storybook/model"
	"github.com/kart-io/storybook-rag/pkg/errors"
	"github.com/kart-io/storybook-rag/pkg/llm"
)

const (
	// DefaultWindow 保留的最近消息数。
	DefaultWindow = 7
	// DefaultKeepForSummary 摘要时不纳入的尾部消息数。
	DefaultKeepForSummary = 10
)

// ConversationConfig 对话记忆配置。
type ConversationConfig struct {
	Window         int
	KeepForSummary int
	SummaryPrompt  string
}

// DefaultConversationConfig 返回默认配置。
func DefaultConversationConfig() *ConversationConfig {
	return &ConversationConfig{
		Window:         DefaultWindow,
		KeepForSummary: DefaultKeepForSummary,
		SummaryPrompt:  HistorySummaryPrompt,
	}
}

// ConversationManager 维护滚动摘要与最近消息窗口。
type ConversationManager struct {
	chat    llm.ChatProvider
	metrics *metrics.Metrics
	config  *ConversationConfig
}

// NewConversationManager 创建对话记忆管理器。
func NewConversationManager(chat llm.ChatProvider, m *metrics.Metrics, cfg *ConversationConfig) *ConversationManager {
	if cfg == nil {
		cfg = DefaultConversationConfig()
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.KeepForSummary < 0 {
		cfg.KeepForSummary = DefaultKeepForSummary
	}
	if cfg.SummaryPrompt == "" {
		cfg.SummaryPrompt = HistorySummaryPrompt
	}
	return &ConversationManager{chat: chat, metrics: m, config: cfg}
}

// Window 返回窗口大小。
func (c *ConversationManager) Window() int { return c.config.Window }

// Append 追加消息，超过窗口时刷新摘要并截断到最近的 Window 条。
// 返回新的状态，state 本身不会被修改。
func (c *ConversationManager) Append(ctx context.Context, state *model.ThreadState, msg model.Message) (*model.ThreadState, error) {
	next := state.Clone()
	next.Messages = append(next.Messages, msg)

	if len(next.Messages) <= c.config.Window {
		return next, nil
	}

	var old []model.Message
	if cut := len(next.Messages) - c.config.KeepForSummary; cut > 0 {
		old = next.Messages[:cut]
	}
	prompt := render(c.config.SummaryPrompt, map[string]string{
		"history": Transcript(old),
		"summary": next.Summary,
	})

	start := time.Now()
	summary, err := c.chat.Generate(ctx, prompt, "")
	c.metrics.RecordLLMCall("history_summary", time.Since(start), err)
	if err != nil {
		return nil, errors.ErrGenerationFailed.WithCause(fmt.Errorf("summarize history: %w", err))
	}

	next.Summary = strings.TrimSpace(summary)
	next.Messages = append([]model.Message(nil), next.Messages[len(next.Messages)-c.config.Window:]...)
	return next, nil
}

// Transcript 按 "User: ..." / "Assistant: ..." 逐行渲染消息。
func Transcript(messages []model.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		role := "User"
		if m.Role == model.RoleAssistant {
			role = "Assistant"
		}
		lines = append(lines, role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// RecentTranscript 渲染最后 n 条消息。
func RecentTranscript(messages []model.Message, n int) string {
	if n >= 0 && len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	return Transcript(messages)
}
