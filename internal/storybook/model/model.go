// Package model 定义故事书问答服务在各层之间传递的数据结构。
package model

import "time"

// Role 消息角色。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 对话中的一条消息。
type Message struct {
	Role    Role   `json:"role" bson:"role"`
	Content string `json:"content" bson:"content"`
}

// UserMessage 构造用户消息。
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage 构造助手消息。
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ThreadState 一个会话线程的检查点状态。
type ThreadState struct {
	ThreadID string    `json:"thread_id" bson:"_id"`
	Messages []Message `json:"messages" bson:"messages"`
	Summary  string    `json:"summary" bson:"summary"`
}

// NewThreadState 创建空状态。
func NewThreadState(threadID string) *ThreadState {
	return &ThreadState{ThreadID: threadID, Messages: []Message{}}
}

// Clone 深拷贝状态。
func (s *ThreadState) Clone() *ThreadState {
	if s == nil {
		return nil
	}
	msgs := make([]Message, len(s.Messages))
	copy(msgs, s.Messages)
	return &ThreadState{ThreadID: s.ThreadID, Messages: msgs, Summary: s.Summary}
}

// LastUserIndex 返回最后一条用户消息的下标，没有时返回 -1。
func (s *ThreadState) LastUserIndex() int {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// Session 聊天会话。隐藏的会话不会被物理删除。
type Session struct {
	SessionID      string    `json:"session_id" bson:"session_id"`
	UserEmail      string    `json:"user_email" bson:"user_email"`
	Title          string    `json:"title" bson:"title"`
	CollectionName string    `json:"collection_name" bson:"collection_name"`
	FirstMessage   string    `json:"first_message" bson:"first_message"`
	Visible        bool      `json:"visible" bson:"visible"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}
