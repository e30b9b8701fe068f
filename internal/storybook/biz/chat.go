package biz

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kart-io/logger"
	"github.com/oklog/ulid/v2"

	"github.com/kart-io/storybook-rag/internal/pkg/rag/textutil"
	"github.com/kart-io/storybook-rag/internal/storybook/metrics"
	"github.com/kart-io/storybook-rag/internal/storybook/model"
	"github.com/kart-io/storybook-rag/pkg/errors"
)

// DefaultSessionListLimit 会话列表的最大条数。
const DefaultSessionListLimit = 100

// ChatRequest 聊天请求。
type ChatRequest struct {
	UserEmail      string
	Query          string
	SessionID      string
	CollectionName string
}

// ChatResponse 聊天响应。
type ChatResponse struct {
	Answer     string  `json:"answer"`
	ResponseID string  `json:"response_id"`
	SessionID  string  `json:"session_id"`
	Outcome    Outcome `json:"-"`
}

// ChatService 处理聊天回合与会话管理。
type ChatService struct {
	sessions     SessionRepository
	checkpoints  CheckpointStore
	conversation *ConversationManager
	deps         WorkflowDeps
	metrics      *metrics.Metrics

	locks   *keyedMutex
	uploads sync.Map
	now     func() time.Time
}

// NewChatService 创建聊天服务。deps 用于为每个回合构建 Workflow。
func NewChatService(sessions SessionRepository, checkpoints CheckpointStore, conversation *ConversationManager, deps WorkflowDeps, m *metrics.Metrics) *ChatService {
	return &ChatService{
		sessions:     sessions,
		checkpoints:  checkpoints,
		conversation: conversation,
		deps:         deps,
		metrics:      m,
		locks:        newKeyedMutex(),
		now:          time.Now,
	}
}

// RememberUpload 记录用户最近一次上传的集合，聊天请求未指定集合时使用。
func (s *ChatService) RememberUpload(user, collection string) {
	s.uploads.Store(user, collection)
}

// CurrentCollection 返回用户最近一次上传的集合。
func (s *ChatService) CurrentCollection(user string) (string, bool) {
	v, ok := s.uploads.Load(user)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Chat 执行一个聊天回合。
//
// 生成失败时检查点保持回合开始前的内容；新会话在首个回合中创建。
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.ErrInvalidRequest.WithMessage("query is required")
	}

	collection, err := s.resolveCollection(ctx, req)
	if err != nil {
		return nil, err
	}

	sessionID, err := s.openSession(ctx, req, collection)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	history, found, err := s.checkpoints.Load(ctx, sessionID)
	if err != nil {
		return nil, errors.ErrCheckpointFailed.WithCause(err)
	}
	if !found {
		history = model.NewThreadState(sessionID)
	}

	question := model.UserMessage(req.Query)
	window, err := s.conversation.Append(ctx, history, question)
	if err != nil {
		s.metrics.RecordQuery("error")
		return nil, err
	}

	res, err := NewWorkflow(collection, s.deps).Execute(ctx, window)
	if err != nil {
		s.metrics.RecordQuery("error")
		logger.Errorw("chat turn failed", "session_id", sessionID, "collection", collection, "error", err.Error())
		return nil, err
	}
	s.metrics.RecordQuery(string(res.Outcome))

	if res.Outcome == OutcomeStale {
		return nil, errors.ErrInvalidRequest.WithMessage("last message is not a user message")
	}
	if err := s.checkpoints.Save(ctx, persistedState(history, question, window, res.State)); err != nil {
		return nil, errors.ErrCheckpointFailed.WithCause(err)
	}

	last := res.State.Messages[len(res.State.Messages)-1]
	logger.Infow("chat turn finished",
		"session_id", sessionID,
		"collection", collection,
		"outcome", res.Outcome,
		"trace", res.Trace,
	)

	return &ChatResponse{
		Answer:     textutil.CleanMarkdown(last.Content),
		ResponseID: ulid.Make().String(),
		SessionID:  sessionID,
		Outcome:    res.Outcome,
	}, nil
}

// persistedState 在完整历史后追加本回合的问题与工作流新增的消息，并带上刷新后的摘要。
// 工作流只看到截断后的窗口，检查点始终保存完整消息列表。
func persistedState(history *model.ThreadState, question model.Message, window, done *model.ThreadState) *model.ThreadState {
	next := history.Clone()
	next.Messages = append(next.Messages, question)
	if len(done.Messages) > len(window.Messages) {
		next.Messages = append(next.Messages, done.Messages[len(window.Messages):]...)
	}
	next.Summary = done.Summary
	return next
}

// resolveCollection 依次使用会话绑定的集合、请求指定的集合与最近一次上传。
func (s *ChatService) resolveCollection(ctx context.Context, req ChatRequest) (string, error) {
	if req.SessionID != "" {
		sess, err := s.sessions.Get(ctx, req.SessionID, req.UserEmail)
		if err != nil {
			return "", err
		}
		if sess.CollectionName != "" {
			return sess.CollectionName, nil
		}
	}
	if req.CollectionName != "" {
		return req.CollectionName, nil
	}
	if c, ok := s.CurrentCollection(req.UserEmail); ok {
		return c, nil
	}
	return "", errors.ErrNoDocument
}

func (s *ChatService) openSession(ctx context.Context, req ChatRequest, collection string) (string, error) {
	now := s.now().UTC()
	if req.SessionID != "" {
		if err := s.sessions.Touch(ctx, req.SessionID, req.UserEmail, now); err != nil {
			return "", err
		}
		return req.SessionID, nil
	}

	sess := &model.Session{
		SessionID:      uuid.NewString(),
		UserEmail:      req.UserEmail,
		Title:          BaseName(collection) + " chat",
		CollectionName: collection,
		FirstMessage:   req.Query,
		Visible:        true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return "", err
	}
	logger.Infow("session created", "session_id", sess.SessionID, "user", req.UserEmail, "collection", collection)
	return sess.SessionID, nil
}

// ListSessions 返回用户可见的会话，按更新时间倒序。
func (s *ChatService) ListSessions(ctx context.Context, user string) ([]*model.Session, error) {
	return s.sessions.List(ctx, user, DefaultSessionListLimit)
}

// GetSession 返回用户可见的会话。
func (s *ChatService) GetSession(ctx context.Context, id, user string) (*model.Session, error) {
	return s.sessions.Get(ctx, id, user)
}

// HideSession 隐藏会话。
func (s *ChatService) HideSession(ctx context.Context, id, user string) error {
	return s.sessions.Hide(ctx, id, user)
}

// Messages 返回会话的检查点消息。会话不存在或不可见时返回空列表。
func (s *ChatService) Messages(ctx context.Context, id, user string) ([]model.Message, error) {
	if _, err := s.sessions.Get(ctx, id, user); err != nil {
		if errors.Is(err, errors.ErrSessionNotFound) {
			return []model.Message{}, nil
		}
		return nil, err
	}

	state, found, err := s.checkpoints.Load(ctx, id)
	if err != nil {
		return nil, errors.ErrCheckpointFailed.WithCause(err)
	}
	if !found {
		return []model.Message{}, nil
	}
	return state.Messages, nil
}

// keyedMutex 按键串行化，键在无人持有时回收。
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock 获取 key 的锁并返回释放函数。
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
