package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kart-io/storybook-rag/internal/storybook/model"
)

// DefaultMongoCollection 默认集合名。
const DefaultMongoCollection = "checkpoints"

// MongoStore 基于 MongoDB 的检查点存储，每个线程一个文档，_id 为线程 ID。
type MongoStore struct {
	coll *mongo.Collection
}

type mongoCheckpoint struct {
	ThreadID  string          `bson:"_id"`
	Messages  []model.Message `bson:"messages"`
	Summary   string          `bson:"summary"`
	UpdatedAt time.Time       `bson:"updated_at"`
}

// NewMongoStore 创建存储。
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// Load 读取状态。
func (s *MongoStore) Load(ctx context.Context, threadID string) (*model.ThreadState, bool, error) {
	var doc mongoCheckpoint
	err := s.coll.FindOne(ctx, bson.M{"_id": threadID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load checkpoint %s: %w", threadID, err)
	}
	return fromMongo(&doc), true, nil
}

// Save 以 upsert 方式覆盖状态。
func (s *MongoStore) Save(ctx context.Context, state *model.ThreadState) error {
	if err := validate(state); err != nil {
		return err
	}
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": state.ThreadID},
		toMongo(state, time.Now().UTC()),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", state.ThreadID, err)
	}
	return nil
}

func toMongo(state *model.ThreadState, at time.Time) *mongoCheckpoint {
	msgs := state.Messages
	if msgs == nil {
		msgs = []model.Message{}
	}
	return &mongoCheckpoint{
		ThreadID:  state.ThreadID,
		Messages:  msgs,
		Summary:   state.Summary,
		UpdatedAt: at,
	}
}

func fromMongo(doc *mongoCheckpoint) *model.ThreadState {
	msgs := doc.Messages
	if msgs == nil {
		msgs = []model.Message{}
	}
	return &model.ThreadState{ThreadID: doc.ThreadID, Messages: msgs, Summary: doc.Summary}
}
