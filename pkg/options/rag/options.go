// Package rag provides storybook QA pipeline configuration options.
package rag

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/storybook-rag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains ingestion, retrieval and conversation configuration.
type Options struct {
	// ChunkSize is the maximum chunk length in runes.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the number of runes shared by consecutive chunks.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// EmbedBatchSize is the number of chunks embedded per provider call.
	EmbedBatchSize int `json:"embed-batch-size" mapstructure:"embed-batch-size"`

	// TopK is the number of results per retrieval signal.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// TopN is the number of documents kept after reranking.
	TopN int `json:"top-n" mapstructure:"top-n"`

	// Window is the number of prior messages sent with a question.
	Window int `json:"window" mapstructure:"window"`

	// KeepForSummary is the number of recent messages excluded from the rolling summary.
	KeepForSummary int `json:"keep-for-summary" mapstructure:"keep-for-summary"`

	// TriggerTerms route a query to the summary signal.
	TriggerTerms []string `json:"trigger-terms" mapstructure:"trigger-terms"`

	// QATemplate overrides the answer prompt. It must contain {context}, {history} and {question}.
	QATemplate string `json:"qa-template" mapstructure:"qa-template"`

	// VectorStore selects the vector backend: qdrant, milvus or memory.
	VectorStore string `json:"vector-store" mapstructure:"vector-store"`

	// Checkpoint selects the conversation backend: redis, mongodb or memory.
	Checkpoint string `json:"checkpoint" mapstructure:"checkpoint"`

	// CheckpointPrefix is the Redis key prefix of checkpoints.
	CheckpointPrefix string `json:"checkpoint-prefix" mapstructure:"checkpoint-prefix"`

	// CheckpointTTL expires idle Redis checkpoints. Zero keeps them forever.
	CheckpointTTL time.Duration `json:"checkpoint-ttl" mapstructure:"checkpoint-ttl"`

	// Sessions selects the session backend: mongodb or memory.
	Sessions string `json:"sessions" mapstructure:"sessions"`

	// PoolCapacity bounds concurrent embedding batches during ingestion.
	PoolCapacity int `json:"pool-capacity" mapstructure:"pool-capacity"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:        1000,
		ChunkOverlap:     200,
		EmbedBatchSize:   16,
		TopK:             5,
		TopN:             3,
		Window:           7,
		KeepForSummary:   10,
		TriggerTerms:     []string{"خلاصہ", "مرکزی خیال", "theme", "summary", "main idea", "موضوع"},
		VectorStore:      "qdrant",
		Checkpoint:       "redis",
		CheckpointPrefix: "storybook:checkpoint:",
		Sessions:         "mongodb",
		PoolCapacity:     4,
	}
}

// AddFlags adds flags for RAG options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "rag."

	fs.IntVar(&o.ChunkSize, p+"chunk-size", o.ChunkSize, "Maximum chunk length in characters.")
	fs.IntVar(&o.ChunkOverlap, p+"chunk-overlap", o.ChunkOverlap, "Overlap between consecutive chunks in characters.")
	fs.IntVar(&o.EmbedBatchSize, p+"embed-batch-size", o.EmbedBatchSize, "Chunks embedded per provider call.")
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Results per retrieval signal.")
	fs.IntVar(&o.TopN, p+"top-n", o.TopN, "Documents kept after reranking.")
	fs.IntVar(&o.Window, p+"window", o.Window, "Prior messages sent with each question.")
	fs.IntVar(&o.KeepForSummary, p+"keep-for-summary", o.KeepForSummary, "Recent messages left out of the rolling summary.")
	fs.StringSliceVar(&o.TriggerTerms, p+"trigger-terms", o.TriggerTerms, "Query terms that select the summary signal.")
	fs.StringVar(&o.QATemplate, p+"qa-template", o.QATemplate, "Answer prompt override with {context}, {history} and {question} placeholders.")
	fs.StringVar(&o.VectorStore, p+"vector-store", o.VectorStore, "Vector store backend (qdrant, milvus, memory).")
	fs.StringVar(&o.Checkpoint, p+"checkpoint", o.Checkpoint, "Checkpoint backend (redis, mongodb, memory).")
	fs.StringVar(&o.CheckpointPrefix, p+"checkpoint-prefix", o.CheckpointPrefix, "Redis key prefix for checkpoints.")
	fs.DurationVar(&o.CheckpointTTL, p+"checkpoint-ttl", o.CheckpointTTL, "Expiry of idle Redis checkpoints, 0 to keep forever.")
	fs.StringVar(&o.Sessions, p+"sessions", o.Sessions, "Session backend (mongodb, memory).")
	fs.IntVar(&o.PoolCapacity, p+"pool-capacity", o.PoolCapacity, "Concurrent embedding batches during ingestion.")
}

// Validate validates the RAG options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.chunk-overlap must be in [0, chunk-size)"))
	}
	if o.EmbedBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.embed-batch-size must be positive"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("rag.top-k must be positive"))
	}
	if o.TopN <= 0 {
		errs = append(errs, fmt.Errorf("rag.top-n must be positive"))
	}
	if o.Window < 0 {
		errs = append(errs, fmt.Errorf("rag.window must not be negative"))
	}
	if o.KeepForSummary <= 0 {
		errs = append(errs, fmt.Errorf("rag.keep-for-summary must be positive"))
	}
	if o.CheckpointTTL < 0 {
		errs = append(errs, fmt.Errorf("rag.checkpoint-ttl must not be negative"))
	}
	switch o.Sessions {
	case "mongodb", "memory":
	default:
		errs = append(errs, fmt.Errorf("rag.sessions must be mongodb or memory, got %q", o.Sessions))
	}
	if o.PoolCapacity <= 0 {
		errs = append(errs, fmt.Errorf("rag.pool-capacity must be positive"))
	}
	return errs
}
