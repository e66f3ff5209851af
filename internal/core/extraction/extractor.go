package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/shawnsang/auto-openspg-schema/internal/config"
	"github.com/shawnsang/auto-openspg-schema/internal/core/common"
	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
	"github.com/shawnsang/auto-openspg-schema/internal/core/normalize"
	"github.com/shawnsang/auto-openspg-schema/internal/llm"
)

// ErrAllChunksFailed is returned when no chunk of a document could be
// extracted.
var ErrAllChunksFailed = errors.New("extraction failed for every chunk")

type Extractor struct {
	LLM         llm.LLMClient
	Config      config.ExtractionConfig
	Chunking    config.ChunkingConfig
	Concurrency int
	Logger      *slog.Logger
}

func NewExtractor(llmClient llm.LLMClient, cfg *config.Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Extractor{
		LLM:         llmClient,
		Config:      cfg.Extraction,
		Chunking:    cfg.Chunking,
		Concurrency: cfg.Concurrency.Chunks,
		Logger:      logger,
	}
}

// ExtractCandidates asks the model for the entities mentioned in text.
// JSON answers are decoded leniently; when the answer has no JSON at all the
// "name: / description: / category:" line format is tried instead.
func (e *Extractor) ExtractCandidates(ctx context.Context, text string) ([]model.Candidate, error) {
	prompt := e.Config.Prompt
	if prompt == "" {
		prompt = config.DefaultExtractionPrompt
	}
	prompt = fmt.Sprintf(prompt, categoryList(), text)

	response, err := e.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate entities: %w", err)
	}

	var candidates []model.Candidate
	if r, err := common.FindJSON(response); err == nil {
		candidates, err = model.CandidatesFromResult(r)
		if err != nil {
			return nil, fmt.Errorf("failed to extract entities: %w", err)
		}
	} else {
		candidates = parseLines(response)
		e.Logger.Debug("no JSON in model response, parsed as lines", "entities", len(candidates))
	}

	for i := range candidates {
		if strings.TrimSpace(candidates[i].EntityType) == "" && strings.TrimSpace(candidates[i].Category) == "" {
			candidates[i].Category = string(model.Others)
		}
	}
	if limit := e.Config.MaxEntitiesPerChunk; limit > 0 && len(candidates) > limit {
		e.Logger.Debug("truncating chunk entities", "found", len(candidates), "max", limit)
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// DocumentResult is the outcome of extracting one document.
type DocumentResult struct {
	Candidates   []model.Candidate
	Chunks       int
	FailedChunks int
}

// ExtractDocument splits content into chunks and extracts them concurrently.
// Candidates come back in chunk order. A failing chunk is logged and skipped
// unless every chunk fails.
func (e *Extractor) ExtractDocument(ctx context.Context, content string) (*DocumentResult, error) {
	chunks := SplitText(content, e.Chunking.Size, e.Chunking.Overlap)
	res := &DocumentResult{Chunks: len(chunks)}
	if len(chunks) == 0 {
		return res, nil
	}

	results := make([][]model.Candidate, len(chunks))
	errs := make([]error, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	if e.Concurrency > 0 {
		g.SetLimit(e.Concurrency)
	}
	for i, ch := range chunks {
		i, ch := i, ch
		g.Go(func() error {
			candidates, err := e.ExtractCandidates(gctx, ch.Text)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				errs[i] = err
				e.Logger.Warn("chunk extraction failed", "chunk", ch.Index, "error", err)
				return nil
			}
			results[i] = candidates
			e.Logger.Debug("chunk extracted", "chunk", ch.Index, "entities", len(candidates))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to extract document: %w", err)
	}

	var lastErr error
	for i := range chunks {
		if errs[i] != nil {
			res.FailedChunks++
			lastErr = errs[i]
			continue
		}
		res.Candidates = append(res.Candidates, results[i]...)
	}
	if res.FailedChunks == len(chunks) {
		return nil, fmt.Errorf("%w: %w", ErrAllChunksFailed, lastErr)
	}
	return res, nil
}

func categoryList() string {
	var b strings.Builder
	for i, c := range normalize.Categories() {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	return strings.TrimRight(b.String(), "\n")
}

// parseLines reads entities written as "name: x" lines, each followed by
// optional description and category lines.
func parseLines(text string) []model.Candidate {
	var out []model.Candidate
	var cur *model.Candidate
	for _, line := range strings.Split(text, "\n") {
		key, val, ok := lineField(line)
		if !ok {
			continue
		}
		switch key {
		case "name":
			if cur != nil && cur.Name != "" {
				out = append(out, *cur)
			}
			cur = &model.Candidate{Name: val}
		case "description":
			if cur != nil {
				cur.Description = val
			}
		case "category":
			if cur != nil {
				cur.Category = val
			}
		}
	}
	if cur != nil && cur.Name != "" {
		out = append(out, *cur)
	}
	return out
}

func lineField(line string) (key, val string, ok bool) {
	k, v, found := strings.Cut(strings.TrimSpace(line), ":")
	if !found {
		return "", "", false
	}
	key = strings.ToLower(strings.Trim(strings.TrimSpace(k), `"-* `))
	switch key {
	case "name", "description", "category":
	default:
		return "", "", false
	}
	v = strings.TrimSuffix(strings.TrimSpace(v), ",")
	return key, strings.Trim(strings.TrimSpace(v), `"`), true
}
