package biz

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/storybook-rag/internal/storybook/model"
	"github.com/kart-io/storybook-rag/pkg/errors"
)

// turns 生成 n 条交替的用户/助手消息。
func turns(n int) []model.Message {
	out := make([]model.Message, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = model.UserMessage(fmt.Sprintf("q%d", i))
		} else {
			out[i] = model.AssistantMessage(fmt.Sprintf("a%d", i))
		}
	}
	return out
}

func TestConversationAppendWindow(t *testing.T) {
	tests := []struct {
		name           string
		prior          int
		wantLen        int
		wantSummarized bool
		wantHistory    string
	}{
		{"空状态", 0, 1, false, ""},
		{"未超过窗口", 6, 7, false, ""},
		{"刚超过窗口", 7, 7, true, ""},
		{"超过保留数", 11, 7, true, "User: q0\nAssistant: a1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := newScriptedChat(storyReply)
			cm := NewConversationManager(chat, nil, nil)
			state := &model.ThreadState{ThreadID: "t", Messages: turns(tt.prior), Summary: "old"}

			next, err := cm.Append(context.Background(), state, model.UserMessage("new"))
			require.NoError(t, err)

			assert.Len(t, next.Messages, tt.wantLen)
			assert.Equal(t, "new", next.Messages[len(next.Messages)-1].Content)
			assert.Len(t, state.Messages, tt.prior, "input state is not mutated")

			calls := chat.calls()
			if !tt.wantSummarized {
				assert.Empty(t, calls)
				assert.Equal(t, "old", next.Summary)
				return
			}
			require.Len(t, calls, 1)
			assert.Equal(t, "Summarize the following conversation history:\n"+tt.wantHistory+"\nPrevious summary (if any): old", calls[0])
			assert.Equal(t, "rolling summary", next.Summary)
		})
	}
}

func TestConversationSummaryFailure(t *testing.T) {
	cm := NewConversationManager(newScriptedChat(func(string) (string, error) {
		return "", fmt.Errorf("timeout")
	}), nil, nil)
	state := &model.ThreadState{ThreadID: "t", Messages: turns(8), Summary: "old"}

	next, err := cm.Append(context.Background(), state, model.UserMessage("new"))
	require.Error(t, err)
	assert.Nil(t, next)
	assert.True(t, errors.Is(err, errors.ErrGenerationFailed))
	assert.Len(t, state.Messages, 8)
	assert.Equal(t, "old", state.Summary)
}

func TestTranscript(t *testing.T) {
	msgs := turns(4)
	assert.Equal(t, "User: q0\nAssistant: a1\nUser: q2\nAssistant: a3", Transcript(msgs))
	assert.Equal(t, "User: q2\nAssistant: a3", RecentTranscript(msgs, 2))
	assert.Equal(t, Transcript(msgs), RecentTranscript(msgs, 7))
	assert.Empty(t, Transcript(nil))
}
