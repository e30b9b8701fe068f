package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/storybook-rag/internal/pkg/rag/reranker"
	"github.com/kart-io/storybook-rag/internal/storybook/metrics"
	"github.com/kart-io/storybook-rag/internal/storybook/model"
	"github.com/kart-io/storybook-rag/pkg/errors"
	"github.com/kart-io/storybook-rag/pkg/llm"
)

// Outcome 单回合的结束方式。
type Outcome string

const (
	OutcomeAnswered   Outcome = "answered"
	OutcomeNoQuestion Outcome = "no_question"
	OutcomeStale      Outcome = "stale"
	OutcomeNoContext  Outcome = "no_context"
)

// Step 状态机节点。
type Step string

const (
	StepAwaitInput Step = "AWAIT_INPUT"
	StepRetrieve   Step = "RETRIEVE"
	StepRerank     Step = "RERANK"
	StepCompose    Step = "COMPOSE"
	StepGenerate   Step = "GENERATE"
	StepDone       Step = "DONE"
)

// Retriever 检索接口，HybridRetriever 实现该接口。
type Retriever interface {
	Retrieve(ctx context.Context, query, collection string, k int) (*Retrieval, error)
}

// Reranker 重排接口，返回输入下标与分数。
type Reranker interface {
	Rerank(ctx context.Context, query string, texts []string, topN int) ([]reranker.Ranked, error)
}

// WorkflowConfig 问答流程配置。
type WorkflowConfig struct {
	TopK       int
	TopN       int
	Window     int
	QATemplate string
}

// DefaultWorkflowConfig 返回默认配置。
func DefaultWorkflowConfig() *WorkflowConfig {
	return &WorkflowConfig{
		TopK:       DefaultTopK,
		TopN:       reranker.DefaultTopN,
		Window:     DefaultWindow,
		QATemplate: QATemplate,
	}
}

// WorkflowDeps 问答流程依赖。
type WorkflowDeps struct {
	Retriever Retriever
	Reranker  Reranker
	Chat      llm.ChatProvider
	Metrics   *metrics.Metrics
	Config    *WorkflowConfig
}

// Workflow 绑定到单个集合的问答状态机。
type Workflow struct {
	collection string
	deps       WorkflowDeps
	config     *WorkflowConfig
}

// RunResult 一次执行的完整结果。
type RunResult struct {
	State     *model.ThreadState
	Outcome   Outcome
	Trace     []Step
	Retrieval *Retrieval
	Context   []Candidate
}

// NewWorkflow 为 collection 创建问答流程。
func NewWorkflow(collection string, deps WorkflowDeps) *Workflow {
	cfg := deps.Config
	if cfg == nil {
		cfg = DefaultWorkflowConfig()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.TopN <= 0 {
		cfg.TopN = reranker.DefaultTopN
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.QATemplate == "" {
		cfg.QATemplate = QATemplate
	}
	return &Workflow{collection: collection, deps: deps, config: cfg}
}

// Run 执行一个回合，返回新状态与结束方式。
func (w *Workflow) Run(ctx context.Context, state *model.ThreadState) (*model.ThreadState, Outcome, error) {
	res, err := w.Execute(ctx, state)
	if err != nil {
		return state, "", err
	}
	return res.State, res.Outcome, nil
}

// Execute 执行一个回合并记录状态迁移。
//
// 成功回答、无问题与无上下文三种结束方式各追加恰好一条助手消息；
// 最后一条消息不是用户消息时状态原样返回。出错时输入状态不变。
func (w *Workflow) Execute(ctx context.Context, state *model.ThreadState) (*RunResult, error) {
	res := &RunResult{State: state, Trace: []Step{StepAwaitInput}}

	idx := state.LastUserIndex()
	if idx < 0 {
		res.State = appendAssistant(state, ReplyNoQuestion)
		res.Outcome = OutcomeNoQuestion
		res.Trace = append(res.Trace, StepDone)
		return res, nil
	}
	if idx != len(state.Messages)-1 {
		res.Outcome = OutcomeStale
		res.Trace = append(res.Trace, StepDone)
		return res, nil
	}
	question := state.Messages[idx].Content

	res.Trace = append(res.Trace, StepRetrieve)
	retrieval, err := w.deps.Retriever.Retrieve(ctx, question, w.collection, w.config.TopK)
	if err != nil {
		return nil, err
	}
	res.Retrieval = retrieval
	if len(retrieval.Candidates) == 0 {
		res.State = appendAssistant(state, ReplyNoContext)
		res.Outcome = OutcomeNoContext
		res.Trace = append(res.Trace, StepDone)
		return res, nil
	}

	res.Trace = append(res.Trace, StepRerank)
	res.Context = w.rerank(ctx, question, retrieval.Candidates)

	res.Trace = append(res.Trace, StepCompose)
	prompt := w.Compose(state, question, res.Context)

	res.Trace = append(res.Trace, StepGenerate)
	start := time.Now()
	answer, err := w.deps.Chat.Generate(ctx, prompt, "")
	w.deps.Metrics.RecordLLMCall("answer", time.Since(start), err)
	if err != nil {
		return nil, errors.ErrGenerationFailed.WithCause(fmt.Errorf("generate answer: %w", err))
	}

	res.State = appendAssistant(state, strings.TrimSpace(answer))
	res.Outcome = OutcomeAnswered
	res.Trace = append(res.Trace, StepDone)
	return res, nil
}

// rerank 选出前 TopN 个候选。重排失败时按检索顺序截断。
func (w *Workflow) rerank(ctx context.Context, question string, candidates []Candidate) []Candidate {
	topN := min(w.config.TopN, len(candidates))
	if w.deps.Reranker == nil {
		return candidates[:topN]
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	ranked, err := w.deps.Reranker.Rerank(ctx, question, texts, w.config.TopN)
	if err != nil {
		logger.Warnw("rerank failed, keeping retrieval order",
			"collection", w.collection,
			"error", err.Error(),
		)
		return candidates[:topN]
	}

	out := make([]Candidate, 0, len(ranked))
	for _, r := range ranked {
		c := candidates[r.Index]
		c.Score = r.Score
		out = append(out, c)
	}
	return out
}

// Compose 组装问答提示。
func (w *Workflow) Compose(state *model.ThreadState, question string, contextDocs []Candidate) string {
	texts := make([]string, len(contextDocs))
	for i, c := range contextDocs {
		texts[i] = c.Text
	}
	return render(w.config.QATemplate, map[string]string{
		"history_summary": state.Summary,
		"recent_history":  RecentTranscript(state.Messages, w.config.Window),
		"context":         strings.Join(texts, "\n\n"),
		"question":        question,
	})
}

func appendAssistant(state *model.ThreadState, content string) *model.ThreadState {
	next := state.Clone()
	next.Messages = append(next.Messages, model.AssistantMessage(content))
	return next
}
