package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/storybook-rag/internal/storybook/store"
	"github.com/kart-io/storybook-rag/pkg/errors"
)

func TestMergeDedupeAndTruncate(t *testing.T) {
	long := func(suffix string) string {
		s := ""
		for i := 0; i < 120; i++ {
			s += "x"
		}
		return s + suffix
	}

	summary := []Candidate{{Text: "summary", Provenance: ProvenanceSummary}}
	filter := []Candidate{
		{Text: long("a"), Provenance: ProvenanceFilter},
		{Text: "summary", Provenance: ProvenanceFilter},
	}
	vector := []Candidate{
		{Text: long("b"), Provenance: ProvenanceVector},
		{Text: "v1", Provenance: ProvenanceVector},
		{Text: "v2", Provenance: ProvenanceVector},
	}

	got := Merge(5, summary, filter, vector)
	require.Len(t, got, 4)
	assert.Equal(t, ProvenanceSummary, got[0].Provenance)
	assert.Equal(t, ProvenanceFilter, got[1].Provenance, "same 100-rune prefix keeps the first occurrence")
	assert.Equal(t, "v1", got[2].Text)
	assert.Equal(t, "v2", got[3].Text)

	assert.Len(t, Merge(2, summary, filter, vector), 2)
	assert.Empty(t, Merge(3))
}

func TestRetrieveMissingCollection(t *testing.T) {
	tests := []struct {
		name  string
		store store.VectorStore
	}{
		{"集合不存在", store.NewMemoryStore()},
		{"存在性检查失败", &flakyStore{MemoryStore: store.NewMemoryStore(), failHas: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.store, newScriptedChat(storyReply))
			res, err := f.retriever.Retrieve(context.Background(), "tale", "missing-xyz", 5)
			require.NoError(t, err)
			assert.NotNil(t, res.Candidates)
			assert.Empty(t, res.Candidates)
		})
	}
}

func TestRetrieveLengthBound(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), newScriptedChat(storyReply))
	texts := []string{"ایک", "دو", "تین", "چار", "پانچ", "چھ", "سات"}
	require.NoError(t, f.indexer.Index(context.Background(), "c", texts, metas(len(texts))))

	for _, k := range []int{1, 3, 5} {
		res, err := f.retriever.Retrieve(context.Background(), "tale", "c", k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(res.Candidates), k)

		seen := map[string]bool{}
		for _, c := range res.Candidates {
			assert.False(t, seen[c.Text], "duplicate %q", c.Text)
			seen[c.Text] = true
		}
	}
}

func TestRetrieveSummaryTrigger(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), newScriptedChat(storyReply))
	collection := f.ingestTale(t)

	tests := []struct {
		name        string
		query       string
		wantSkipped bool
	}{
		{"乌尔都语触发词", "اس کہانی کا خلاصہ کیا ہے؟", false},
		{"英文触发词大小写", "What is the Main Idea?", false},
		{"无触发词", "شہزادی کون تھی؟", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.retriever.Retrieve(context.Background(), tt.query, collection, 5)
			require.NoError(t, err)

			sig, ok := res.Signal(ProvenanceSummary)
			require.True(t, ok)
			assert.Equal(t, tt.wantSkipped, sig.Skipped)
			if !tt.wantSkipped {
				require.NotEmpty(t, res.Candidates)
				assert.Equal(t, ProvenanceSummary, res.Candidates[0].Provenance)
				assert.Equal(t, "A short tale.", res.Candidates[0].Text)
				assert.Equal(t, store.TypeSummary, res.Candidates[0].Metadata[store.FieldType])
				assert.NotContains(t, res.Candidates[0].Metadata, store.PayloadPageContent)
			}
		})
	}
}

func TestRetrieveDegradedSignals(t *testing.T) {
	vs := &flakyStore{MemoryStore: store.NewMemoryStore()}
	f := newFixture(t, vs, newScriptedChat(storyReply))
	collection := f.ingestTale(t)
	vs.failScroll = true

	res, err := f.retriever.Retrieve(context.Background(), "summary of tale", collection, 5)
	require.NoError(t, err)
	assert.True(t, res.Degraded())

	for _, p := range []Provenance{ProvenanceSummary, ProvenanceFilter} {
		sig, ok := res.Signal(p)
		require.True(t, ok)
		assert.True(t, sig.Degraded)
		assert.Error(t, sig.Err)
	}

	require.NotEmpty(t, res.Candidates)
	for _, c := range res.Candidates {
		assert.Equal(t, ProvenanceVector, c.Provenance)
	}
}

func TestRetrieveVectorFailurePropagates(t *testing.T) {
	vs := &flakyStore{MemoryStore: store.NewMemoryStore()}
	f := newFixture(t, vs, newScriptedChat(storyReply))
	collection := f.ingestTale(t)
	vs.failSearch = true

	_, err := f.retriever.Retrieve(context.Background(), "tale", collection, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRetrievalFailed))
}

// 场景 A：关键词命中的分块先于纯向量结果。
func TestScenarioKeywordBeforeVector(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), newScriptedChat(storyReply))
	collection := f.ingestTale(t)

	res, err := f.retriever.Retrieve(context.Background(), "tale", collection, 5)
	require.NoError(t, err)
	require.NotEmpty(t, res.Candidates)
	assert.False(t, res.Degraded())

	first := res.Candidates[0]
	assert.Contains(t, []Provenance{ProvenanceSummary, ProvenanceFilter}, first.Provenance)

	sawVector := false
	for _, c := range res.Candidates {
		if c.Provenance == ProvenanceVector {
			sawVector = true
			continue
		}
		assert.False(t, sawVector, "non-vector candidate %q after a vector match", c.Text)
	}

	texts := make([]string, len(res.Candidates))
	for i, c := range res.Candidates {
		texts[i] = c.Text
	}
	assert.ElementsMatch(t, []string{"Once upon a time...", "A short tale."}, texts)
}
