package session

import (
	"context"
	stderrors "errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kart-io/storybook-rag/internal/storybook/model"
	"github.com/kart-io/storybook-rag/pkg/errors"
)

// MongoRepository 基于 MongoDB 的会话仓库。
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository 创建仓库。
func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

// EnsureIndexes 创建查询所需的索引。
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_email", Value: 1}, {Key: "visible", Value: 1}, {Key: "updated_at", Value: -1}}},
	})
	if err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	return nil
}

// Create 插入会话。
func (r *MongoRepository) Create(ctx context.Context, s *model.Session) error {
	if _, err := r.coll.InsertOne(ctx, s); err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	return nil
}

// Get 返回属于 user 的可见会话。
func (r *MongoRepository) Get(ctx context.Context, id, user string) (*model.Session, error) {
	var s model.Session
	err := r.coll.FindOne(ctx, visibleFilter(id, user)).Decode(&s)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return &s, nil
}

// Touch 更新 updated_at。
func (r *MongoRepository) Touch(ctx context.Context, id, user string, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"session_id": id, "user_email": user},
		bson.M{"$set": bson.M{"updated_at": at}},
	)
	if err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	if res.MatchedCount == 0 {
		return errors.ErrSessionNotFound
	}
	return nil
}

// List 返回可见会话，按 updated_at 倒序。
func (r *MongoRepository) List(ctx context.Context, user string, limit int) ([]*model.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, bson.M{"user_email": user, "visible": true}, opts)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	defer cur.Close(ctx)

	out := make([]*model.Session, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return out, nil
}

// Hide 将会话标记为不可见。没有文档被修改时返回 ErrSessionNotFound。
func (r *MongoRepository) Hide(ctx context.Context, id, user string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"session_id": id, "user_email": user},
		bson.M{"$set": bson.M{"visible": false}},
	)
	if err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	if res.ModifiedCount == 0 {
		return errors.ErrSessionNotFound
	}
	return nil
}

func visibleFilter(id, user string) bson.M {
	return bson.M{"session_id": id, "user_email": user, "visible": true}
}
