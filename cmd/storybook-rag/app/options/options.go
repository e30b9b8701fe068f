// Package options contains flags and options for initializing the storybook server.
package options

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	storybook "github.com/kart-io/storybook-rag/internal/storybook"
	"github.com/kart-io/storybook-rag/internal/storybook/checkpoint"
	"github.com/kart-io/storybook-rag/internal/storybook/store"
	cliflag "github.com/kart-io/storybook-rag/pkg/app/cliflag"
	apperrors "github.com/kart-io/storybook-rag/pkg/errors"
	genericoptions "github.com/kart-io/storybook-rag/pkg/options"
	httpopts "github.com/kart-io/storybook-rag/pkg/options/http"
	llmopts "github.com/kart-io/storybook-rag/pkg/options/llm"
	logopts "github.com/kart-io/storybook-rag/pkg/options/logger"
	milvusopts "github.com/kart-io/storybook-rag/pkg/options/milvus"
	mongoopts "github.com/kart-io/storybook-rag/pkg/options/mongodb"
	qdrantopts "github.com/kart-io/storybook-rag/pkg/options/qdrant"
	ragopts "github.com/kart-io/storybook-rag/pkg/options/rag"
	redisopts "github.com/kart-io/storybook-rag/pkg/options/redis"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// QdrantOptions contains Qdrant configuration, used when rag.vector-store is qdrant.
	QdrantOptions *qdrantopts.Options `json:"qdrant" mapstructure:"qdrant"`

	// MilvusOptions contains Milvus configuration, used when rag.vector-store is milvus.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// RedisOptions contains Redis configuration, used when rag.checkpoint is redis.
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`

	// MongoOptions contains MongoDB configuration for sessions and mongodb checkpoints.
	MongoOptions *mongoopts.Options `json:"mongodb" mapstructure:"mongodb"`

	// EmbeddingOptions contains the document embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// RerankEmbeddingOptions contains the reranking embedding provider configuration.
	RerankEmbeddingOptions *llmopts.ProviderOptions `json:"rerank-embedding" mapstructure:"rerank-embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// RAGOptions contains pipeline configuration.
	RAGOptions *ragopts.Options `json:"rag" mapstructure:"rag"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:            httpopts.NewOptions(),
		LogOptions:             logopts.NewOptions(),
		QdrantOptions:          qdrantopts.NewOptions(),
		MilvusOptions:          milvusopts.NewOptions(),
		RedisOptions:           redisopts.NewOptions(),
		MongoOptions:           mongoopts.NewOptions(),
		EmbeddingOptions:       llmopts.NewEmbeddingOptions(),
		RerankEmbeddingOptions: llmopts.NewRerankEmbeddingOptions(),
		ChatOptions:            llmopts.NewChatOptions(),
		RAGOptions:             ragopts.NewOptions(),
		ShutdownTimeout:        30 * time.Second,
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.QdrantOptions.AddFlags(fss.FlagSet("qdrant"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.RedisOptions.AddFlags(fss.FlagSet("redis"))
	o.MongoOptions.AddFlags(fss.FlagSet("mongodb"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"))
	o.RerankEmbeddingOptions.AddFlags(fss.FlagSet("rerank-embedding"))
	o.ChatOptions.AddFlags(fss.FlagSet("chat"))
	o.RAGOptions.AddFlags(fss.FlagSet("rag"))

	// misc flags
	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.QdrantOptions.Complete(); err != nil {
		return fmt.Errorf("qdrant: %w", err)
	}
	if err := o.RedisOptions.Complete(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if err := o.MongoOptions.Complete(); err != nil {
		return fmt.Errorf("mongodb: %w", err)
	}
	for _, p := range []*llmopts.ProviderOptions{o.EmbeddingOptions, o.RerankEmbeddingOptions, o.ChatOptions} {
		if err := p.Complete(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
// Backend options are only checked for the backends that are selected.
func (o *ServerOptions) Validate() error {
	errs := genericoptions.ValidateAll(
		o.HTTPOptions,
		o.LogOptions,
		o.EmbeddingOptions,
		o.RerankEmbeddingOptions,
		o.ChatOptions,
		o.RAGOptions,
	)

	switch kind, err := store.ParseKind(o.RAGOptions.VectorStore); {
	case err != nil:
		errs = append(errs, err)
	case kind == store.KindQdrant:
		errs = append(errs, o.QdrantOptions.Validate()...)
	case kind == store.KindMilvus:
		errs = append(errs, o.MilvusOptions.Validate()...)
	}

	kind, err := checkpoint.ParseKind(o.RAGOptions.Checkpoint)
	switch {
	case err != nil:
		errs = append(errs, err)
	case kind == checkpoint.KindRedis:
		errs = append(errs, o.RedisOptions.Validate()...)
	}
	if kind == checkpoint.KindMongo || o.RAGOptions.Sessions == "mongodb" {
		errs = append(errs, o.MongoOptions.Validate()...)
	}

	if o.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown-timeout must be positive"))
	}

	if agg := utilerrors.NewAggregate(errs); agg != nil {
		return apperrors.ErrConfiguration.WithCause(agg)
	}
	return nil
}

// Config builds a storybook.Config based on ServerOptions.
func (o *ServerOptions) Config() (*storybook.Config, error) {
	return &storybook.Config{
		HTTPOptions:            o.HTTPOptions,
		LogOptions:             o.LogOptions,
		QdrantOptions:          o.QdrantOptions,
		MilvusOptions:          o.MilvusOptions,
		RedisOptions:           o.RedisOptions,
		MongoOptions:           o.MongoOptions,
		EmbeddingOptions:       o.EmbeddingOptions,
		RerankEmbeddingOptions: o.RerankEmbeddingOptions,
		ChatOptions:            o.ChatOptions,
		RAGOptions:             o.RAGOptions,
		ShutdownTimeout:        o.ShutdownTimeout,
	}, nil
}
