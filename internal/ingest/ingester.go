// Package ingest turns source files into parent documents and child chunks, and keeps the
// document store, vector index and keyword index in step.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// ErrNoText is returned when a source has no text after cleaning.
var ErrNoText = errors.New("no text to ingest")

const (
	metaKeyParentIndex = "parent_index"
	metaKeySourceMtime = "source_mtime"
	metaKeySourceSize  = "source_size"
)

// Report summarizes a batch ingestion.
type Report struct {
	Files   int `json:"files"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Parents int `json:"parents"`
	Chunks  int `json:"chunks"`
}

// Ingester writes documents into the stores. Writes are serialized.
type Ingester struct {
	store      storage.Store
	embedder   embedding.Embedder
	vectors    vector.Index
	keywords   keyword.ChunkIndex
	extractor  *extract.Extractor
	parents    *Splitter
	children   *Splitter
	classifier *Classifier
	extensions []string
	vectorPath string
	mu         sync.Mutex
	logger     *zap.Logger
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Ingester) {
		i.logger = utils.OrNop(logger)
	}
}

// WithVectorPath sets where Flush persists the vector index.
func WithVectorPath(path string) Option {
	return func(i *Ingester) {
		i.vectorPath = path
	}
}

// New creates an Ingester. keywords may be nil.
func New(
	store storage.Store,
	embedder embedding.Embedder,
	vectors vector.Index,
	keywords keyword.ChunkIndex,
	extractor *extract.Extractor,
	cfg config.IngestConfig,
	opts ...Option,
) *Ingester {
	if extractor == nil {
		extractor = extract.NewExtractor(extract.WithMaxBytes(cfg.MaxFileBytes))
	}
	i := &Ingester{
		store:      store,
		embedder:   embedder,
		vectors:    vectors,
		keywords:   keywords,
		extractor:  extractor,
		parents:    NewSplitter(cfg.ParentChunkSize, cfg.ParentChunkOverlap),
		children:   NewSplitter(cfg.ChildChunkSize, cfg.ChildChunkOverlap),
		classifier: NewClassifier(cfg.DomainRules, cfg.DefaultDomain),
		extensions: cfg.Extensions,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IngestText stores in as one or more parent documents and returns their ids. An existing
// source is replaced. Parent ids are derived from the source when there is one.
func (i *Ingester) IngestText(ctx context.Context, in *models.ParentInput) ([]string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ingestLocked(ctx, in)
}

func (i *Ingester) ingestLocked(ctx context.Context, in *models.ParentInput) ([]string, error) {
	content := Clean(in.Content)
	if content == "" {
		return nil, ErrNoText
	}
	domain := in.Domain
	if domain == "" {
		domain = i.classifier.Domain(in.Source)
	}
	source := in.Source
	if source == "" {
		source = "unknown"
	}

	var (
		docs   []*models.ParentDocument
		chunks [][]*models.ChildChunk
		texts  []string
	)
	now := time.Now().UTC()
	for n, text := range i.parents.Split(content) {
		id := i.parentID(in, n)
		meta := make(map[string]interface{}, len(in.Metadata)+1)
		for k, v := range in.Metadata {
			meta[k] = v
		}
		meta[metaKeyParentIndex] = n
		docs = append(docs, &models.ParentDocument{
			ID:        id,
			Source:    source,
			Kind:      in.Kind,
			Domain:    domain,
			Content:   text,
			Metadata:  meta,
			CreatedAt: now,
		})

		pieces := i.children.Split(text)
		if len(pieces) == 0 {
			pieces = []string{text}
		}
		var cs []*models.ChildChunk
		for j, piece := range pieces {
			cs = append(cs, &models.ChildChunk{
				ID:         fileid.ChunkID(id, j),
				ParentID:   id,
				Text:       piece,
				Domain:     domain,
				ChunkIndex: j,
			})
			texts = append(texts, piece)
		}
		chunks = append(chunks, cs)
	}

	vecs, err := i.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	// The previous version of the source stays searchable until the new one is embedded.
	if in.Source != "" {
		if err := i.deleteLocked(ctx, in.Source); err != nil {
			return nil, err
		}
	}

	ids := make([]string, 0, len(docs))
	var (
		chunkIDs  []string
		allChunks []*models.ChildChunk
	)
	for n, doc := range docs {
		if err := i.store.PutParent(ctx, doc, chunks[n]); err != nil {
			return nil, fmt.Errorf("failed to store parent: %w", err)
		}
		ids = append(ids, doc.ID)
		for _, c := range chunks[n] {
			chunkIDs = append(chunkIDs, c.ID)
			allChunks = append(allChunks, c)
		}
	}
	if err := i.vectors.Add(ctx, chunkIDs, vecs); err != nil {
		return nil, fmt.Errorf("failed to index vectors: %w", err)
	}
	if i.keywords != nil {
		if err := i.keywords.Index(ctx, allChunks); err != nil {
			return nil, fmt.Errorf("failed to index keywords: %w", err)
		}
	}
	i.logger.Debug("Ingested source",
		zap.String("source", source),
		zap.String("domain", domain),
		zap.Int("parents", len(docs)),
		zap.Int("chunks", len(allChunks)))
	return ids, nil
}

func (i *Ingester) parentID(in *models.ParentInput, n int) string {
	switch {
	case in.ID != "" && n == 0:
		return in.ID
	case in.ID != "":
		return fileid.ChunkID(in.ID, n)
	case in.Source != "":
		return fileid.ParentID(in.Source, n)
	default:
		return fileid.NewParentID()
	}
}

// IngestFile extracts and ingests the file at path. It reports false without error when the
// file is unchanged since its last ingestion.
func (i *Ingester) IngestFile(ctx context.Context, path string) (bool, error) {
	abs := fileid.SourceKey(path)
	ext := strings.ToLower(filepath.Ext(abs))
	if len(i.extensions) > 0 && !extensionAllowed(ext, i.extensions) {
		return false, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return false, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("not a regular file: %s", abs)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.unchanged(ctx, abs, info) {
		i.logger.Debug("Skipping unchanged file", zap.String("path", abs))
		return false, nil
	}
	text, err := i.extractor.Extract(abs)
	if err != nil {
		return false, fmt.Errorf("extract content: %w", err)
	}
	_, err = i.ingestLocked(ctx, &models.ParentInput{
		Source:  abs,
		Kind:    strings.TrimPrefix(ext, "."),
		Content: text,
		Metadata: map[string]interface{}{
			metaKeySourceMtime: strconv.FormatInt(info.ModTime().UnixNano(), 10),
			metaKeySourceSize:  strconv.FormatInt(info.Size(), 10),
		},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// unchanged reports whether the first parent of source was stored with the file's current
// mtime and size.
func (i *Ingester) unchanged(ctx context.Context, source string, info os.FileInfo) bool {
	doc, err := i.store.GetParent(ctx, fileid.ParentID(source, 0))
	if err != nil || doc.Metadata == nil {
		return false
	}
	// Stored as strings; UnixNano exceeds float64 precision.
	return doc.Metadata[metaKeySourceMtime] == strconv.FormatInt(info.ModTime().UnixNano(), 10) &&
		doc.Metadata[metaKeySourceSize] == strconv.FormatInt(info.Size(), 10)
}

// IngestPaths ingests files and walks directories recursively. Failures are logged and
// counted; only context cancellation stops the batch.
func (i *Ingester) IngestPaths(ctx context.Context, paths []string) (*Report, error) {
	report := &Report{}
	ingest := func(path string) {
		before := i.chunkCount(ctx)
		ok, err := i.IngestFile(ctx, path)
		switch {
		case err != nil:
			report.Failed++
			i.logger.Warn("Failed to ingest file", zap.String("path", path), zap.Error(err))
		case !ok:
			report.Skipped++
		default:
			report.Files++
			report.Parents += i.parentCount(ctx, path)
			report.Chunks += int(i.chunkCount(ctx) - before)
		}
	}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		info, err := os.Stat(p)
		if err != nil {
			report.Failed++
			i.logger.Warn("Failed to stat path", zap.String("path", p), zap.Error(err))
			continue
		}
		if !info.IsDir() {
			ingest(p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				i.logger.Warn("Failed to walk path", zap.String("path", path), zap.Error(walkErr))
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if len(i.extensions) > 0 && !extensionAllowed(filepath.Ext(path), i.extensions) {
				return nil
			}
			ingest(path)
			return nil
		})
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

func (i *Ingester) chunkCount(ctx context.Context) int64 {
	n, _ := i.store.CountChunks(ctx)
	return n
}

func (i *Ingester) parentCount(ctx context.Context, path string) int {
	abs := fileid.SourceKey(path)
	n := 0
	for {
		if _, err := i.store.GetParent(ctx, fileid.ParentID(abs, n)); err != nil {
			return n
		}
		n++
	}
}

// DeleteSource removes every parent, chunk, vector and keyword entry of source.
func (i *Ingester) DeleteSource(ctx context.Context, source string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.deleteLocked(ctx, source)
}

func (i *Ingester) deleteLocked(ctx context.Context, source string) error {
	chunkIDs, err := i.store.DeleteBySource(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	if len(chunkIDs) == 0 {
		return nil
	}
	if err := i.vectors.Remove(ctx, chunkIDs); err != nil {
		return fmt.Errorf("failed to delete from vector index: %w", err)
	}
	if i.keywords != nil {
		if err := i.keywords.Delete(ctx, chunkIDs); err != nil {
			return fmt.Errorf("failed to delete from keyword index: %w", err)
		}
	}
	i.logger.Debug("Deleted source", zap.String("source", source), zap.Int("chunks", len(chunkIDs)))
	return nil
}

// Flush persists the vector index when a vector path is configured.
func (i *Ingester) Flush() error {
	if i.vectorPath == "" {
		return nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.vectors.Save(i.vectorPath); err != nil {
		return fmt.Errorf("failed to save vector index: %w", err)
	}
	return nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
