package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shawnsang/auto-openspg-schema/internal/config"
	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
)

func newTestExtractor(client *MockLLMClient) *Extractor {
	cfg := config.Default()
	cfg.Extraction.Prompt = "types:\n%s\ntext:\n%s"
	cfg.Chunking.Size = 40
	cfg.Chunking.Overlap = 5
	return NewExtractor(client, cfg, nil)
}

// TestExtractCandidates ensures that the model answer, including chatter and
// markdown around the JSON, is decoded into candidates in order.
func TestExtractCandidates(t *testing.T) {
	mockLLM := &MockLLMClient{
		Response: "Here are the entities:\n```json\n" + `[
			{"name": "主梁", "description": "承重构件", "category": "设备和组件", "properties": {"跨度": "主跨长度", "材料": "钢"}},
			{"name": "GB 50017", "entity_type": "Works"},
			{"name": "张工"}
		]` + "\n```",
	}
	extractor := newTestExtractor(mockLLM)

	candidates, err := extractor.ExtractCandidates(context.Background(), "主梁采用钢结构。")
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	assert.Equal(t, "主梁", candidates[0].Name)
	assert.Equal(t, "设备和组件", candidates[0].Category)
	require.Len(t, candidates[0].Properties, 2)
	assert.Equal(t, "跨度", candidates[0].Properties[0].Name)
	assert.Equal(t, "材料", candidates[0].Properties[1].Name)

	assert.Equal(t, "Works", candidates[1].EntityType)
	assert.Empty(t, candidates[1].Category)

	// Neither type nor category: falls back to Others
	assert.Equal(t, "Others", candidates[2].Category)

	// The prompt carries the category list and the text
	require.Len(t, mockLLM.Prompts, 1)
	assert.Contains(t, mockLLM.Prompts[0], "1. 工程概念和术语")
	assert.Contains(t, mockLLM.Prompts[0], "主梁采用钢结构。")
}

func TestExtractCandidatesLineFallback(t *testing.T) {
	mockLLM := &MockLLMClient{Response: `I could not produce JSON, sorry.
name: 水泵
description: 提升水位的设备
category: 设备和组件

"name": "管道",
"description": "输送介质",
description: later lines overwrite`}
	extractor := newTestExtractor(mockLLM)

	candidates, err := extractor.ExtractCandidates(context.Background(), "text")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, model.Candidate{Name: "水泵", Description: "提升水位的设备", Category: "设备和组件"}, candidates[0])
	assert.Equal(t, "管道", candidates[1].Name)
	assert.Equal(t, "later lines overwrite", candidates[1].Description)
	assert.Equal(t, "Others", candidates[1].Category)
}

func TestExtractCandidatesTruncates(t *testing.T) {
	mockLLM := &MockLLMClient{Response: `[{"name":"a"},{"name":"b"},{"name":"c"}]`}
	extractor := newTestExtractor(mockLLM)
	extractor.Config.MaxEntitiesPerChunk = 2

	candidates, err := extractor.ExtractCandidates(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestExtractCandidatesLLMError(t *testing.T) {
	extractor := newTestExtractor(&MockLLMClient{Err: errors.New("quota exceeded")})
	_, err := extractor.ExtractCandidates(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestExtractDocumentKeepsChunkOrder(t *testing.T) {
	keywords := func(text string) []string {
		var found []string
		for _, word := range []string{"alpha", "bravo", "charlie"} {
			if strings.Contains(text, word) {
				found = append(found, word)
			}
		}
		return found
	}

	var calls atomic.Int32
	mockLLM := &MockLLMClient{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			calls.Add(1)
			text := prompt[strings.Index(prompt, "text:\n")+len("text:\n"):]
			var parts []string
			for _, word := range keywords(text) {
				parts = append(parts, fmt.Sprintf(`{"name": %q, "entity_type": "Concept"}`, word))
			}
			return "[" + strings.Join(parts, ",") + "]", nil
		},
	}
	extractor := newTestExtractor(mockLLM)
	extractor.Concurrency = 3

	content := "alpha one two three four five six.\nbravo one two three four five six.\ncharlie one two three four five six."
	chunks := SplitText(content, extractor.Chunking.Size, extractor.Chunking.Overlap)
	require.Greater(t, len(chunks), 1)

	// Candidates come back in chunk order whatever order the workers finish in.
	var want []string
	for _, c := range chunks {
		want = append(want, keywords(c.Text)...)
	}

	res, err := extractor.ExtractDocument(context.Background(), content)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), res.Chunks)
	assert.Equal(t, int32(res.Chunks), calls.Load())
	assert.Zero(t, res.FailedChunks)

	var got []string
	for _, c := range res.Candidates {
		got = append(got, c.Name)
	}
	assert.Equal(t, want, got)
	assert.Subset(t, got, []string{"alpha", "bravo", "charlie"})
}

func TestExtractDocumentSkipsFailedChunks(t *testing.T) {
	mockLLM := &MockLLMClient{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			if strings.Contains(prompt, "bravo") {
				return "", errors.New("model overloaded")
			}
			return `[{"name": "ok", "entity_type": "Concept"}]`, nil
		},
	}
	extractor := newTestExtractor(mockLLM)

	content := "alpha one two three four five six.\nbravo one two three four five six.\ncharlie one two three four five six."
	res, err := extractor.ExtractDocument(context.Background(), content)
	require.NoError(t, err)
	assert.Positive(t, res.FailedChunks)
	assert.Len(t, res.Candidates, res.Chunks-res.FailedChunks)
}

func TestExtractDocumentAllChunksFail(t *testing.T) {
	extractor := newTestExtractor(&MockLLMClient{Err: errors.New("offline")})
	_, err := extractor.ExtractDocument(context.Background(), "some text")
	assert.ErrorIs(t, err, ErrAllChunksFailed)

	res, err := extractor.ExtractDocument(context.Background(), "   ")
	require.NoError(t, err)
	assert.Zero(t, res.Chunks)
}

func TestSplitText(t *testing.T) {
	assert.Nil(t, SplitText("  \n ", 10, 2))
	assert.Equal(t, []Chunk{{Index: 0, Text: "short"}}, SplitText(" short ", 10, 2))

	text := strings.Repeat("这是一个句子。", 10) // 70 runes
	chunks := SplitText(text, 21, 5)
	require.Greater(t, len(chunks), 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.LessOrEqual(t, len([]rune(c.Text)), 21)
	}
	// Chunks end on a sentence boundary when one is available
	assert.True(t, strings.HasSuffix(chunks[0].Text, "。"))
	// Consecutive chunks overlap
	assert.True(t, strings.HasPrefix(chunks[1].Text, "一个句子。"), chunks[1].Text)
}

func TestSplitTextWithoutSeparators(t *testing.T) {
	text := strings.Repeat("x", 25)
	chunks := SplitText(text, 10, 0)
	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("x", 10), chunks[0].Text)
	assert.Equal(t, strings.Repeat("x", 5), chunks[2].Text)
}
