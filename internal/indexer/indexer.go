package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/ragfuse/internal/digest"
	"github.com/hyperjump/ragfuse/internal/embedding"
	"github.com/hyperjump/ragfuse/internal/models"
	"github.com/hyperjump/ragfuse/internal/storage"
	"github.com/hyperjump/ragfuse/internal/vector"
	"go.uber.org/zap"
)

const (
	defaultBatchSize = 32
	defaultTopK      = 4
	defaultKeep      = 3
)

// Indexer embeds chunks into vector indexes. Built indexes are cached by corpus key in memory
// and, when a store is set, persisted as snapshots so a restart does not re-embed.
type Indexer struct {
	embedder  embedding.Embedder
	metric    vector.Metric
	store     storage.Storage
	batchSize int
	topK      int
	keep      int
	timeout   time.Duration
	logger    *zap.Logger

	mu     sync.Mutex
	cache  map[string]*Handle
	recent []string // cache keys, oldest first
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for build events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithStore persists built indexes as snapshots in s and reloads them by corpus key.
func WithStore(s storage.Storage) IndexerOption {
	return func(idx *Indexer) { idx.store = s }
}

// WithBatchSize sets how many chunks are embedded per provider call.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// WithTopK sets the number of neighbors returned when a query passes k <= 0.
func WithTopK(k int) IndexerOption {
	return func(idx *Indexer) {
		if k > 0 {
			idx.topK = k
		}
	}
}

// WithKeep bounds the number of indexes kept in memory and snapshots kept in the store.
func WithKeep(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.keep = n
		}
	}
}

// WithEmbedTimeout bounds the time spent embedding one build.
func WithEmbedTimeout(d time.Duration) IndexerOption {
	return func(idx *Indexer) { idx.timeout = d }
}

// NewIndexer creates an indexer that embeds with embedder and ranks by metric.
func NewIndexer(embedder embedding.Embedder, metric vector.Metric, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		embedder:  embedder,
		metric:    metric,
		batchSize: defaultBatchSize,
		topK:      defaultTopK,
		keep:      defaultKeep,
		logger:    zap.NewNop(),
		cache:     make(map[string]*Handle),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Key returns the corpus key chunks would be indexed under.
func (idx *Indexer) Key(chunks []models.Chunk) string {
	return digest.CorpusKey(idx.embedder.ID(), string(idx.metric), chunks)
}

// Build returns an index over chunks. An index for the same corpus key is reused from memory or
// from a stored snapshot without calling the embedder; cached reports that case. Any embedding
// failure returns an EmbeddingError and no handle.
func (idx *Indexer) Build(ctx context.Context, chunks []models.Chunk) (*Handle, bool, error) {
	if len(chunks) == 0 {
		return nil, false, models.NewDomainError(models.CodeNoCorpus, "nothing to index")
	}
	key := idx.Key(chunks)

	if h := idx.lookup(key); h != nil {
		idx.logger.Debug("index cache hit", zap.String("key", key))
		return h, true, nil
	}
	if h := idx.loadSnapshot(ctx, key); h != nil {
		idx.remember(h)
		return h, true, nil
	}

	embedCtx := ctx
	if idx.timeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, idx.timeout)
		defer cancel()
	}
	start := time.Now()
	vectors, err := idx.embedAll(embedCtx, chunks)
	if err != nil {
		return nil, false, models.EmbeddingError(fmt.Sprintf("failed to embed %d chunks", len(chunks)), err)
	}
	h, err := idx.newHandle(key, chunks, vectors, idx.embedder.Dimensions())
	if err != nil {
		return nil, false, models.EmbeddingError("embedder returned unusable vectors", err)
	}
	idx.logger.Info("index built",
		zap.String("key", key),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)))

	idx.saveSnapshot(ctx, key, chunks, vectors)
	idx.remember(h)
	return h, false, nil
}

func (idx *Indexer) embedAll(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += idx.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + idx.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = chunks[start+i].Text
		}
		batch, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("batch at chunk %d: %w", start, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("batch at chunk %d: got %d vectors for %d texts", start, len(batch), len(texts))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (idx *Indexer) newHandle(key string, chunks []models.Chunk, vectors [][]float32, dims int) (*Handle, error) {
	vi, err := vector.NewMemoryIndex(dims, idx.metric)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(chunks))
	byID := make(map[string]models.Chunk, len(chunks))
	for i := range chunks {
		ids[i] = chunks[i].ID()
		byID[ids[i]] = chunks[i]
	}
	if err := vi.Add(context.Background(), ids, vectors); err != nil {
		return nil, err
	}
	ordered := make([]models.Chunk, len(chunks))
	copy(ordered, chunks)
	return &Handle{
		key:      key,
		index:    vi,
		chunks:   ordered,
		byID:     byID,
		embedder: idx.embedder,
		topK:     idx.topK,
		builtAt:  time.Now(),
	}, nil
}

func (idx *Indexer) loadSnapshot(ctx context.Context, key string) *Handle {
	if idx.store == nil {
		return nil
	}
	snap, err := idx.store.LoadSnapshot(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			idx.logger.Warn("snapshot load failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	if snap.Dimensions != idx.embedder.Dimensions() {
		idx.logger.Warn("snapshot dimension mismatch, rebuilding",
			zap.String("key", key), zap.Int("snapshot", snap.Dimensions), zap.Int("embedder", idx.embedder.Dimensions()))
		return nil
	}
	h, err := idx.newHandle(key, snap.Chunks, snap.Vectors, snap.Dimensions)
	if err != nil {
		idx.logger.Warn("snapshot unusable, rebuilding", zap.String("key", key), zap.Error(err))
		return nil
	}
	idx.logger.Info("index restored from snapshot", zap.String("key", key), zap.Int("chunks", len(snap.Chunks)))
	return h
}

func (idx *Indexer) saveSnapshot(ctx context.Context, key string, chunks []models.Chunk, vectors [][]float32) {
	if idx.store == nil {
		return
	}
	snap := &storage.Snapshot{
		Key:        key,
		EmbedderID: idx.embedder.ID(),
		Metric:     string(idx.metric),
		Dimensions: idx.embedder.Dimensions(),
		Chunks:     chunks,
		Vectors:    vectors,
	}
	if err := idx.store.SaveSnapshot(ctx, snap); err != nil {
		idx.logger.Warn("snapshot save failed", zap.String("key", key), zap.Error(err))
		return
	}
	if n, err := idx.store.PruneSnapshots(ctx, idx.keep); err != nil {
		idx.logger.Warn("snapshot prune failed", zap.Error(err))
	} else if n > 0 {
		idx.logger.Debug("snapshots pruned", zap.Int("removed", n))
	}
}

func (idx *Indexer) lookup(key string) *Handle {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	h, ok := idx.cache[key]
	if !ok {
		return nil
	}
	idx.touch(key)
	return h
}

func (idx *Indexer) remember(h *Handle) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.cache[h.key]; ok {
		idx.touch(h.key)
		return
	}
	idx.cache[h.key] = h
	idx.recent = append(idx.recent, h.key)
	for len(idx.recent) > idx.keep {
		oldest := idx.recent[0]
		idx.recent = idx.recent[1:]
		delete(idx.cache, oldest)
	}
}

// touch moves key to the most-recent end. Callers hold mu.
func (idx *Indexer) touch(key string) {
	for i, k := range idx.recent {
		if k == key {
			idx.recent = append(append(idx.recent[:i:i], idx.recent[i+1:]...), key)
			return
		}
	}
}

// Cached returns the number of indexes held in memory.
func (idx *Indexer) Cached() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.cache)
}

// Handle is an immutable, queryable index over one corpus. It is safe for concurrent use.
type Handle struct {
	key      string
	index    vector.VectorIndex
	chunks   []models.Chunk
	byID     map[string]models.Chunk
	embedder embedding.Embedder
	topK     int
	builtAt  time.Time
}

// Query embeds text and returns up to k chunks ordered by ascending distance. k <= 0 uses the
// configured default. Equal distances keep corpus order.
func (h *Handle) Query(ctx context.Context, text string, k int) ([]models.Hit, error) {
	if k <= 0 {
		k = h.topK
	}
	vec, err := h.embedder.Embed(ctx, text)
	if err != nil {
		return nil, models.EmbeddingError("failed to embed query", err)
	}
	results, err := h.index.Search(ctx, vec, k)
	if err != nil {
		return nil, models.EmbeddingError("vector search failed", err)
	}
	hits := make([]models.Hit, 0, len(results))
	for _, r := range results {
		c, ok := h.byID[r.ID]
		if !ok {
			continue
		}
		hits = append(hits, models.Hit{Chunk: c, Distance: r.Distance})
	}
	return hits, nil
}

// Key returns the corpus key the handle was built for.
func (h *Handle) Key() string { return h.key }

// Size returns the number of indexed chunks.
func (h *Handle) Size() int { return len(h.chunks) }

// BuiltAt returns when the handle was created.
func (h *Handle) BuiltAt() time.Time { return h.builtAt }

// Chunks returns a copy of the indexed chunks in corpus order.
func (h *Handle) Chunks() []models.Chunk {
	out := make([]models.Chunk, len(h.chunks))
	copy(out, h.chunks)
	return out
}
