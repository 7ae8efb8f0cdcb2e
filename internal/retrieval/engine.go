// Package retrieval runs two-stage retrieval over child chunks: a wide similarity search,
// widened by keyword-bias patterns, followed by re-ranking.
package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/rerank"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

type biasPattern struct {
	name   string
	domain string
	re     *regexp.Regexp
}

// Engine retrieves re-ranked chunk candidates for a query. It holds no per-request state.
type Engine struct {
	store     storage.Store
	embedder  embedding.Embedder
	vectors   vector.Index
	keywords  keyword.ChunkIndex
	reranker  rerank.Reranker
	cfg       config.RetrievalConfig
	timeout   time.Duration
	onFailure string
	bias      []biasPattern
	logger    *zap.Logger
}

// Result is the output of one retrieval.
type Result struct {
	// Candidates are ordered by rerank score descending, then raw distance ascending.
	Candidates []*models.RetrievalCandidate
	// Degraded is set when re-ranking failed and candidates are in similarity order.
	Degraded bool
	InitialK int
	// BiasedHits counts candidates that entered through a keyword-bias pattern.
	BiasedHits int
}

// NewEngine creates a retrieval engine. keywords may be nil, which disables the bias pass.
func NewEngine(
	store storage.Store,
	embedder embedding.Embedder,
	vectors vector.Index,
	keywords keyword.ChunkIndex,
	reranker rerank.Reranker,
	cfg config.RetrievalConfig,
	rerankCfg config.RerankConfig,
	opts ...Option,
) (*Engine, error) {
	e := &Engine{
		store:     store,
		embedder:  embedder,
		vectors:   vectors,
		keywords:  keywords,
		reranker:  reranker,
		cfg:       cfg,
		timeout:   rerankCfg.Timeout,
		onFailure: rerankCfg.OnFailure,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, p := range cfg.KeywordBias {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid keyword bias pattern %q: %w", p.Name, err)
		}
		e.bias = append(e.bias, biasPattern{name: p.Name, domain: p.Domain, re: re})
	}
	return e, nil
}

// Retrieve returns re-ranked candidates for query. topK <= 0 uses the configured default.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int) (*Result, error) {
	if topK <= 0 {
		topK = e.cfg.TopK
	}
	initialK := e.cfg.EffectiveInitialK(topK)
	start := time.Now()

	qvec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding failed: %w", models.ErrRetrievalUnavailable, err)
	}

	var (
		generic []*vector.Result
		biased  []*vector.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results, err := e.vectors.Search(gctx, qvec, initialK)
		if err != nil {
			return fmt.Errorf("%w: vector search failed: %w", models.ErrRetrievalUnavailable, err)
		}
		generic = results
		return nil
	})
	g.Go(func() error {
		biased = e.biasPass(gctx, query, qvec)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pool, biasedSet := mergePools(biased, generic, initialK)
	candidates, err := e.hydrate(ctx, pool, biasedSet)
	if err != nil {
		return nil, err
	}

	res := &Result{InitialK: initialK}
	for _, c := range candidates {
		if c.Biased {
			res.BiasedHits++
		}
	}
	if len(candidates) > 0 {
		if err := e.rerank(ctx, query, candidates); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if e.onFailure == config.RerankFail {
				return nil, fmt.Errorf("%w: %w", models.ErrRerankUnavailable, err)
			}
			e.logger.Warn("Rerank failed, using similarity order", zap.Error(err))
			SortBySimilarity(candidates)
			res.Degraded = true
		} else {
			SortByRerank(candidates)
		}
	}
	res.Candidates = candidates

	e.logger.Debug("Retrieval completed",
		zap.Int("initial_k", initialK),
		zap.Int("candidates", len(candidates)),
		zap.Int("biased", res.BiasedHits),
		zap.Bool("degraded", res.Degraded),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// biasPass collects chunks from the target domain of every pattern the query matches.
// Failures only drop the widening; the generic pool is unaffected.
func (e *Engine) biasPass(ctx context.Context, query string, qvec []float32) []*vector.Result {
	if e.keywords == nil || len(e.bias) == 0 {
		return nil
	}
	var ids []string
	seen := make(map[string]bool)
	for _, p := range e.bias {
		if !p.re.MatchString(query) {
			continue
		}
		hits, err := e.keywords.Search(ctx, query, p.domain, e.cfg.KeywordLimit)
		if err != nil {
			e.logger.Warn("Keyword bias search failed", zap.String("pattern", p.name), zap.Error(err))
			continue
		}
		for _, h := range hits {
			if !seen[h.ID] {
				seen[h.ID] = true
				ids = append(ids, h.ID)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}
	dists, err := e.vectors.Distances(ctx, qvec, ids)
	if err != nil {
		e.logger.Warn("Keyword bias distances failed", zap.Error(err))
		return nil
	}
	out := make([]*vector.Result, 0, len(ids))
	for _, id := range ids {
		if d, ok := dists[id]; ok {
			out = append(out, &vector.Result{ID: id, Distance: d})
		}
	}
	return out
}

// mergePools puts biased hits ahead of the generic pool, keeps the first occurrence of each
// chunk id and caps the result at width.
func mergePools(biased, generic []*vector.Result, width int) ([]*vector.Result, map[string]bool) {
	merged := make([]*vector.Result, 0, width)
	seen := make(map[string]bool, width)
	biasedSet := make(map[string]bool, len(biased))
	add := func(r *vector.Result, fromBias bool) {
		if len(merged) >= width || seen[r.ID] {
			return
		}
		seen[r.ID] = true
		if fromBias {
			biasedSet[r.ID] = true
		}
		merged = append(merged, r)
	}
	for _, r := range biased {
		add(r, true)
	}
	for _, r := range generic {
		add(r, false)
	}
	return merged, biasedSet
}

// hydrate loads chunk records for pool. Ids missing from the store are dropped and logged.
func (e *Engine) hydrate(ctx context.Context, pool []*vector.Result, biasedSet map[string]bool) ([]*models.RetrievalCandidate, error) {
	if len(pool) == 0 {
		return nil, nil
	}
	ids := make([]string, len(pool))
	for i, r := range pool {
		ids[i] = r.ID
	}
	chunks, err := e.store.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk lookup failed: %w", models.ErrRetrievalUnavailable, err)
	}
	out := make([]*models.RetrievalCandidate, 0, len(pool))
	for _, r := range pool {
		c, ok := chunks[r.ID]
		if !ok {
			e.logger.Warn("Indexed chunk missing from store", zap.String("chunk_id", r.ID))
			continue
		}
		c.RawDistance = r.Distance
		out = append(out, &models.RetrievalCandidate{
			Chunk:       c,
			RawDistance: r.Distance,
			Biased:      biasedSet[r.ID],
		})
	}
	return out, nil
}

func (e *Engine) rerank(ctx context.Context, query string, candidates []*models.RetrievalCandidate) error {
	if e.reranker == nil {
		return fmt.Errorf("no reranker configured")
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = c.Chunk.Text
	}
	scores, err := e.reranker.Score(ctx, query, passages)
	if err != nil {
		return err
	}
	if len(scores) != len(candidates) {
		return fmt.Errorf("reranker returned %d scores for %d passages", len(scores), len(candidates))
	}
	for i, s := range scores {
		candidates[i].RerankScore = s
	}
	return nil
}

// SortByRerank orders by rerank score descending, ties by raw distance ascending.
func SortByRerank(c []*models.RetrievalCandidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].RerankScore != c[j].RerankScore {
			return c[i].RerankScore > c[j].RerankScore
		}
		return c[i].RawDistance < c[j].RawDistance
	})
}

// SortBySimilarity orders by raw distance ascending.
func SortBySimilarity(c []*models.RetrievalCandidate) {
	sort.SliceStable(c, func(i, j int) bool { return c[i].RawDistance < c[j].RawDistance })
}
