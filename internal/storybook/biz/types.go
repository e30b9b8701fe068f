package biz

import (
	"context"
	"time"

	"github.com/kart-io/storybook-rag/internal/storybook/model"
)

// Provenance 候选来源。
type Provenance string

const (
	ProvenanceSummary Provenance = "summary"
	ProvenanceFilter  Provenance = "filter"
	ProvenanceVector  Provenance = "vector"
)

// Candidate 检索候选。
type Candidate struct {
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata"`
	Provenance Provenance     `json:"provenance"`
	Score      float64        `json:"score"`
}

// SignalResult 单个检索信号的结果。Degraded 表示该信号失败但检索继续。
type SignalResult struct {
	Signal     Provenance
	Candidates []Candidate
	Skipped    bool
	Degraded   bool
	Err        error
}

// Retrieval 混合检索结果。
type Retrieval struct {
	Candidates []Candidate
	Signals    []SignalResult
}

// Degraded 报告是否有信号降级。
func (r *Retrieval) Degraded() bool {
	for _, s := range r.Signals {
		if s.Degraded {
			return true
		}
	}
	return false
}

// Signal 返回指定信号的结果。
func (r *Retrieval) Signal(p Provenance) (SignalResult, bool) {
	for _, s := range r.Signals {
		if s.Signal == p {
			return s, true
		}
	}
	return SignalResult{}, false
}

// CheckpointStore 保存每个线程的对话状态。
type CheckpointStore interface {
	// Load 读取状态，不存在时 found 为 false。
	Load(ctx context.Context, threadID string) (state *model.ThreadState, found bool, err error)
	// Save 覆盖保存状态。
	Save(ctx context.Context, state *model.ThreadState) error
}

// SessionRepository 会话持久化。
type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	// Get 只返回属于 user 且可见的会话。
	Get(ctx context.Context, id, user string) (*model.Session, error)
	// Touch 更新 updated_at。
	Touch(ctx context.Context, id, user string, at time.Time) error
	List(ctx context.Context, user string, limit int) ([]*model.Session, error)
	// Hide 将会话标记为不可见，没有匹配时返回 ErrSessionNotFound。
	Hide(ctx context.Context, id, user string) error
}
