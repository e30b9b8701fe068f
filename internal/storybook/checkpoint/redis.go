package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/storybook-rag/internal/storybook/model"
	"github.com/kart-io/storybook-rag/pkg/utils/json"
)

// DefaultRedisPrefix 默认键前缀。
const DefaultRedisPrefix = "storybook:checkpoint:"

// RedisConfig Redis 检查点配置。
type RedisConfig struct {
	// Prefix 键前缀。
	Prefix string
	// TTL 过期时间，0 表示不过期。每次保存都会刷新。
	TTL time.Duration
}

// RedisStore 基于 Redis 的检查点存储，状态以 JSON 保存在单个键中。
type RedisStore struct {
	client goredis.UniversalClient
	config RedisConfig
}

// checkpointData Redis 中保存的结构。
type checkpointData struct {
	State     *model.ThreadState `json:"state"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// NewRedisStore 使用已建立的客户端创建存储。
func NewRedisStore(client goredis.UniversalClient, cfg RedisConfig) *RedisStore {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, config: cfg}
}

// Load 读取状态。
func (s *RedisStore) Load(ctx context.Context, threadID string) (*model.ThreadState, bool, error) {
	raw, err := s.client.Get(ctx, s.key(threadID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load checkpoint %s: %w", threadID, err)
	}

	var data checkpointData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, false, fmt.Errorf("decode checkpoint %s: %w", threadID, err)
	}
	if data.State == nil {
		return nil, false, nil
	}
	if data.State.Messages == nil {
		data.State.Messages = []model.Message{}
	}
	return data.State, true, nil
}

// Save 保存状态并刷新 TTL。
func (s *RedisStore) Save(ctx context.Context, state *model.ThreadState) error {
	if err := validate(state); err != nil {
		return err
	}
	raw, err := json.Marshal(&checkpointData{State: state, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode checkpoint %s: %w", state.ThreadID, err)
	}
	if err := s.client.Set(ctx, s.key(state.ThreadID), raw, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", state.ThreadID, err)
	}
	return nil
}

func (s *RedisStore) key(threadID string) string {
	return s.config.Prefix + threadID
}
