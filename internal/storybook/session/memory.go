package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kart-io/storybook-rag/internal/storybook/model"
	"github.com/kart-io/storybook-rag/pkg/errors"
)

// MemoryRepository 进程内会话仓库。
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
}

// NewMemoryRepository 创建内存仓库。
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*model.Session)}
}

// Create 保存新会话。
func (r *MemoryRepository) Create(ctx context.Context, s *model.Session) error {
	if s == nil || s.SessionID == "" {
		return errors.ErrInvalidRequest.WithMessage("session id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.SessionID]; ok {
		return errors.ErrInvalidRequest.WithMessagef("session %s already exists", s.SessionID)
	}
	cp := *s
	r.sessions[s.SessionID] = &cp
	return nil
}

// Get 返回属于 user 的可见会话。
func (r *MemoryRepository) Get(ctx context.Context, id, user string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || s.UserEmail != user || !s.Visible {
		return nil, errors.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

// Touch 更新 updated_at。
func (r *MemoryRepository) Touch(ctx context.Context, id, user string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.UserEmail != user {
		return errors.ErrSessionNotFound
	}
	s.UpdatedAt = at
	return nil
}

// List 返回可见会话，按 updated_at 倒序。
func (r *MemoryRepository) List(ctx context.Context, user string, limit int) ([]*model.Session, error) {
	r.mu.RLock()
	out := make([]*model.Session, 0)
	for _, s := range r.sessions {
		if s.UserEmail == user && s.Visible {
			cp := *s
			out = append(out, &cp)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Hide 隐藏会话。已隐藏或不存在时返回 ErrSessionNotFound。
func (r *MemoryRepository) Hide(ctx context.Context, id, user string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.UserEmail != user || !s.Visible {
		return errors.ErrSessionNotFound
	}
	s.Visible = false
	return nil
}
