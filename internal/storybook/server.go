// Package storybook wires the storybook QA service together.
package storybook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kart-io/storybook-rag/internal/pkg/rag/reranker"
	"github.com/kart-io/storybook-rag/internal/storybook/biz"
	"github.com/kart-io/storybook-rag/internal/storybook/checkpoint"
	"github.com/kart-io/storybook-rag/internal/storybook/handler"
	"github.com/kart-io/storybook-rag/internal/storybook/metrics"
	"github.com/kart-io/storybook-rag/internal/storybook/router"
	"github.com/kart-io/storybook-rag/internal/storybook/session"
	"github.com/kart-io/storybook-rag/internal/storybook/store"
	"github.com/kart-io/storybook-rag/internal/storybook/store/milvus"
	"github.com/kart-io/storybook-rag/pkg/component/mongodb"
	"github.com/kart-io/storybook-rag/pkg/component/redis"
	apperrors "github.com/kart-io/storybook-rag/pkg/errors"
	"github.com/kart-io/storybook-rag/pkg/infra/app"
	"github.com/kart-io/storybook-rag/pkg/infra/pool"
	"github.com/kart-io/storybook-rag/pkg/llm"
	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/storybook-rag/pkg/llm/local"
	_ "github.com/kart-io/storybook-rag/pkg/llm/openai"
	"github.com/kart-io/storybook-rag/pkg/llm/resilience"
	"github.com/kart-io/storybook-rag/pkg/middleware"
	httpopts "github.com/kart-io/storybook-rag/pkg/options/http"
	llmopts "github.com/kart-io/storybook-rag/pkg/options/llm"
	logopts "github.com/kart-io/storybook-rag/pkg/options/logger"
	milvusopts "github.com/kart-io/storybook-rag/pkg/options/milvus"
	mongoopts "github.com/kart-io/storybook-rag/pkg/options/mongodb"
	qdrantopts "github.com/kart-io/storybook-rag/pkg/options/qdrant"
	ragopts "github.com/kart-io/storybook-rag/pkg/options/rag"
	redisopts "github.com/kart-io/storybook-rag/pkg/options/redis"
)

// Name is the name of the application.
const Name = "storybook-rag"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions            *httpopts.Options
	LogOptions             *logopts.Options
	QdrantOptions          *qdrantopts.Options
	MilvusOptions          *milvusopts.Options
	RedisOptions           *redisopts.Options
	MongoOptions           *mongoopts.Options
	EmbeddingOptions       *llmopts.ProviderOptions
	RerankEmbeddingOptions *llmopts.ProviderOptions
	ChatOptions            *llmopts.ProviderOptions
	RAGOptions             *ragopts.Options
	ShutdownTimeout        time.Duration
}

// Server represents the storybook server.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	closers         []func()
}

// NewServer initializes and returns a new Server instance.
// On failure every dependency opened so far is closed again.
func (cfg *Config) NewServer(ctx context.Context) (srv *Server, err error) {
	s := &Server{shutdownTimeout: cfg.ShutdownTimeout}
	defer func() {
		if err != nil {
			s.close()
		}
	}()

	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting storybook service...")

	// 2. 初始化指标
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// 3. 初始化 LLM 供应商
	embedder, err := newEmbedder(cfg.EmbeddingOptions)
	if err != nil {
		return nil, err
	}
	rerankEmbedder, err := newEmbedder(cfg.RerankEmbeddingOptions)
	if err != nil {
		return nil, err
	}
	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, apperrors.ErrConfiguration.WithCause(fmt.Errorf("chat provider: %w", err))
	}
	chat := resilience.WrapChat(chatProvider, cfg.ChatOptions.RetryConfig(), resilience.DefaultCircuitBreakerConfig())
	logger.Infow("LLM providers initialized",
		"embedding", cfg.EmbeddingOptions.Provider,
		"rerank_embedding", cfg.RerankEmbeddingOptions.Provider,
		"chat", cfg.ChatOptions.Provider,
		"chat_model", cfg.ChatOptions.Model,
	)

	var pingers []handler.Pinger

	// 4. 初始化向量存储
	vectorStore, err := cfg.newVectorStore(ctx)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() { _ = vectorStore.Close() })
	if p, ok := vectorStore.(handler.Pinger); ok {
		pingers = append(pingers, p)
	}
	logger.Infow("Vector store initialized", "backend", cfg.RAGOptions.VectorStore)

	// 5. 按需连接 MongoDB（会话与检查点共用）
	checkpointKind, err := checkpoint.ParseKind(cfg.RAGOptions.Checkpoint)
	if err != nil {
		return nil, apperrors.ErrConfiguration.WithCause(err)
	}
	var mongoClient *mongodb.Client
	if checkpointKind == checkpoint.KindMongo || cfg.RAGOptions.Sessions == "mongodb" {
		mongoClient, err = mongodb.New(ctx, cfg.MongoOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mongodb: %w", err)
		}
		s.closers = append(s.closers, func() { _ = mongoClient.Close() })
		pingers = append(pingers, mongoClient)
		logger.Infow("MongoDB client initialized", "database", cfg.MongoOptions.Database)
	}

	// 6. 初始化检查点存储
	var checkpoints biz.CheckpointStore
	switch checkpointKind {
	case checkpoint.KindRedis:
		redisClient, err := redis.New(ctx, cfg.RedisOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		s.closers = append(s.closers, func() { _ = redisClient.Close() })
		pingers = append(pingers, redisClient)
		checkpoints = checkpoint.NewRedisStore(redisClient.Raw(), checkpoint.RedisConfig{
			Prefix: cfg.RAGOptions.CheckpointPrefix,
			TTL:    cfg.RAGOptions.CheckpointTTL,
		})
	case checkpoint.KindMongo:
		checkpoints = checkpoint.NewMongoStore(mongoClient.Collection(checkpoint.DefaultMongoCollection))
	default:
		logger.Warn("Using in-memory checkpoints, conversations are lost on restart")
		checkpoints = checkpoint.NewMemoryStore()
	}
	logger.Infow("Checkpoint store initialized", "backend", checkpointKind)

	// 7. 初始化会话存储
	var sessions biz.SessionRepository
	if mongoClient != nil && cfg.RAGOptions.Sessions == "mongodb" {
		repo := session.NewMongoRepository(mongoClient.Collection(session.DefaultCollection))
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to create session indexes: %w", err)
		}
		sessions = repo
	} else {
		sessions = session.NewMemoryRepository()
	}
	logger.Infow("Session repository initialized", "backend", cfg.RAGOptions.Sessions)

	// 8. 初始化嵌入协程池
	embedPool, err := pool.NewPool("storybook-embed", &pool.Config{
		Capacity:       cfg.RAGOptions.PoolCapacity,
		ExpiryDuration: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding pool: %w", err)
	}
	s.closers = append(s.closers, embedPool.Release)

	// 9. 初始化 Biz 层
	rag := cfg.RAGOptions
	indexer := biz.NewIndexer(vectorStore, embedder, embedPool, &biz.IndexerConfig{
		Dimensions:  dimensions(cfg.EmbeddingOptions),
		BatchSize:   rag.EmbedBatchSize,
		IndexFields: biz.DefaultIndexFields,
	})
	ingestCfg := biz.DefaultIngestConfig()
	ingestCfg.ChunkSize = rag.ChunkSize
	ingestCfg.ChunkOverlap = rag.ChunkOverlap
	ingestor := biz.NewIngestor(vectorStore, indexer, chat, m, ingestCfg)

	retriever := biz.NewHybridRetriever(vectorStore, embedder, m, &biz.RetrieverConfig{
		TopK:         rag.TopK,
		TriggerTerms: rag.TriggerTerms,
	})
	convCfg := biz.DefaultConversationConfig()
	convCfg.Window = rag.Window
	convCfg.KeepForSummary = rag.KeepForSummary
	conversation := biz.NewConversationManager(chat, m, convCfg)

	workflowCfg := biz.DefaultWorkflowConfig()
	workflowCfg.TopK = rag.TopK
	workflowCfg.TopN = rag.TopN
	workflowCfg.Window = rag.Window
	if rag.QATemplate != "" {
		workflowCfg.QATemplate = rag.QATemplate
	}
	chatService := biz.NewChatService(sessions, checkpoints, conversation, biz.WorkflowDeps{
		Retriever: retriever,
		Reranker:  reranker.New(rerankEmbedder),
		Chat:      chat,
		Metrics:   m,
		Config:    workflowCfg,
	}, m)
	logger.Infow("Storybook service initialized",
		"chunk_size", rag.ChunkSize,
		"top_k", rag.TopK,
		"top_n", rag.TopN,
		"window", rag.Window,
	)

	// 10. 初始化 Handler 层与路由
	gin.SetMode(cfg.HTTPOptions.Mode)
	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(middleware.DefaultLoggerConfig),
		middleware.Metrics(m),
		middleware.Recovery(),
	)
	router.Register(engine,
		handler.NewStorybookHandler(ingestor, chatService),
		handler.NewHealthHandler(3*time.Second, pingers...),
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	)

	// 11. 初始化 HTTP 服务器
	s.httpServer = cfg.HTTPOptions.NewServer(engine)

	logger.Infow("Storybook service is ready", "addr", cfg.HTTPOptions.Addr)
	return s, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.close()

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down storybook service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}
	logger.Info("Storybook service stopped")
	return nil
}

// close releases dependencies in reverse order of creation.
func (s *Server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
	_ = logger.Flush()
}

func (cfg *Config) newVectorStore(ctx context.Context) (store.VectorStore, error) {
	kind, err := store.ParseKind(cfg.RAGOptions.VectorStore)
	if err != nil {
		return nil, apperrors.ErrConfiguration.WithCause(err)
	}

	switch kind {
	case store.KindQdrant:
		vs, err := store.NewQdrantStore(store.QdrantConfig{
			Host:   cfg.QdrantOptions.Host,
			Port:   cfg.QdrantOptions.Port,
			APIKey: cfg.QdrantOptions.APIKey,
			UseTLS: cfg.QdrantOptions.UseTLS,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize qdrant: %w", err)
		}
		return vs, nil
	case store.KindMilvus:
		vs, err := milvus.New(ctx, cfg.MilvusOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize milvus: %w", err)
		}
		return vs, nil
	default:
		logger.Warn("Using in-memory vector store, documents are lost on restart")
		return store.NewMemoryStore(), nil
	}
}

func newEmbedder(opts *llmopts.ProviderOptions) (llm.EmbeddingProvider, error) {
	p, err := llm.NewEmbeddingProvider(opts.Provider, opts.ToConfigMap())
	if err != nil {
		return nil, apperrors.ErrConfiguration.WithCause(fmt.Errorf("embedding provider %s: %w", opts.Provider, err))
	}
	return resilience.WrapEmbedding(p, opts.RetryConfig(), resilience.DefaultCircuitBreakerConfig()), nil
}

func dimensions(opts *llmopts.ProviderOptions) int {
	if opts.Dimensions > 0 {
		return opts.Dimensions
	}
	return biz.DefaultDimensions
}
