// Package pipeline sequences ingestion, indexing, retrieval, fusion and generation for one
// session corpus.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/ragfuse/internal/config"
	"github.com/hyperjump/ragfuse/internal/digest"
	"github.com/hyperjump/ragfuse/internal/embedding"
	"github.com/hyperjump/ragfuse/internal/extract"
	"github.com/hyperjump/ragfuse/internal/fusion"
	"github.com/hyperjump/ragfuse/internal/generation"
	"github.com/hyperjump/ragfuse/internal/indexer"
	"github.com/hyperjump/ragfuse/internal/models"
	"github.com/hyperjump/ragfuse/internal/source"
	"github.com/hyperjump/ragfuse/internal/storage"
	"github.com/hyperjump/ragfuse/internal/telemetry"
	"github.com/hyperjump/ragfuse/internal/vector"
	"go.uber.org/zap"
)

// ErrDocumentNotFound is returned by Remove for a filename that is not in the corpus.
var ErrDocumentNotFound = errors.New("document not found")

const (
	defaultSourceTimeout     = 15 * time.Second
	defaultGenerationTimeout = 60 * time.Second
)

// Options are the collaborators and parameters of an Orchestrator. Embedder and Generator are
// required; a nil adapter is replaced by one that reports its source unavailable.
type Options struct {
	Embedder     embedding.Embedder
	Encyclopedia source.Adapter
	WebSearch    source.Adapter
	Generator    generation.Generator

	Metric       vector.Metric
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	// ContextChars caps the corpus text handed to generation; 0 disables the cap.
	ContextChars int
	BatchSize    int

	EmbedTimeout      time.Duration
	SourceTimeout     time.Duration
	SourceRetries     int
	GenerationTimeout time.Duration
}

// OptionsFromConfig fills the numeric parameters of Options from cfg. Collaborators are left
// for the caller.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	metric, err := vector.ParseMetric(cfg.Index.Metric)
	if err != nil {
		return Options{}, models.ConfigError("%v", err)
	}
	return Options{
		Metric:            metric,
		ChunkSize:         cfg.Index.ChunkSize,
		ChunkOverlap:      cfg.Index.ChunkOverlap,
		TopK:              cfg.Index.TopK,
		ContextChars:      cfg.Index.ContextChars,
		BatchSize:         cfg.Embedding.BatchSize,
		EmbedTimeout:      cfg.Embedding.Timeout,
		SourceTimeout:     cfg.Sources.Timeout,
		SourceRetries:     cfg.Sources.Retries,
		GenerationTimeout: cfg.Generation.Timeout,
	}, nil
}

// Option configures optional Orchestrator behavior.
type Option func(*Orchestrator)

// WithLogger sets the logger for pipeline events.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithStore persists documents and index snapshots in s.
func WithStore(s storage.Storage) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithKeepSnapshots bounds the number of cached indexes and stored snapshots.
func WithKeepSnapshots(n int) Option {
	return func(o *Orchestrator) { o.keep = n }
}

// WithUploadDir saves every ingested upload under dir.
func WithUploadDir(dir string) Option {
	return func(o *Orchestrator) { o.uploadDir = dir }
}

// WithExtractor sets the text extractor used to load uploads.
func WithExtractor(e *extract.Extractor) Option {
	return func(o *Orchestrator) { o.extractor = e }
}

// WithDiskUsagePaths sets the files and directories whose size Status reports.
func WithDiskUsagePaths(paths ...string) Option {
	return func(o *Orchestrator) { o.diskPaths = paths }
}

// Orchestrator owns the session corpus and its index. Builds are exclusive: Ingest, Remove and
// Restore hold the build lock, and Ask takes the current index only once no build is running.
// Index handles are immutable, so questions already past that gate keep querying the handle
// they took.
type Orchestrator struct {
	opts      Options
	chunker   *indexer.Chunker
	loader    *indexer.Loader
	indexer   *indexer.Indexer
	extractor *extract.Extractor
	store     storage.Storage
	logger    *zap.Logger
	uploadDir string
	diskPaths []string
	keep      int

	build sync.RWMutex

	mu      sync.Mutex
	state   models.State
	docs    map[string]*models.Document
	handle  *indexer.Handle
	lastErr error
}

// NewOrchestrator validates opts and wires the pipeline. Invalid chunking parameters and missing
// collaborators are reported as ConfigError before any work begins.
func NewOrchestrator(opts Options, extra ...Option) (*Orchestrator, error) {
	if opts.Embedder == nil {
		return nil, models.ConfigError("an embedder is required")
	}
	if opts.Generator == nil {
		return nil, models.ConfigError("a generator is required")
	}
	if opts.TopK < 0 {
		return nil, models.ConfigError("top_k must not be negative, got %d", opts.TopK)
	}
	if opts.ContextChars < 0 {
		return nil, models.ConfigError("context_chars must not be negative, got %d", opts.ContextChars)
	}
	if opts.SourceRetries < 0 {
		return nil, models.ConfigError("source retries must not be negative, got %d", opts.SourceRetries)
	}
	chunker, err := indexer.NewChunker(opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if opts.Metric == "" {
		opts.Metric = vector.MetricCosine
	}
	if opts.TopK == 0 {
		opts.TopK = config.DefaultTopK
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = defaultSourceTimeout
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = defaultGenerationTimeout
	}
	if opts.Encyclopedia == nil {
		opts.Encyclopedia = source.NewDisabled(models.SourceEncyclopedia, "no encyclopedia adapter configured")
	}
	if opts.WebSearch == nil {
		opts.WebSearch = source.NewDisabled(models.SourceWebSearch, "no web search adapter configured")
	}

	o := &Orchestrator{
		opts:    opts,
		chunker: chunker,
		logger:  zap.NewNop(),
		state:   models.StateIdle,
		docs:    make(map[string]*models.Document),
	}
	for _, opt := range extra {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	o.loader = indexer.NewLoader(o.extractor)

	idxOpts := []indexer.IndexerOption{
		indexer.WithLogger(o.logger),
		indexer.WithBatchSize(opts.BatchSize),
		indexer.WithTopK(opts.TopK),
		indexer.WithKeep(o.keep),
		indexer.WithEmbedTimeout(opts.EmbedTimeout),
	}
	if o.store != nil {
		idxOpts = append(idxOpts, indexer.WithStore(o.store))
	}
	o.indexer = indexer.NewIndexer(opts.Embedder, opts.Metric, idxOpts...)
	return o, nil
}

// Ingest loads inputs, merges them into the corpus (a document with the same filename is
// replaced) and rebuilds the index. Unreadable or text-less files are skipped and listed in the
// report. With no inputs Ingest does nothing. On failure the orchestrator enters Failed and
// keeps the previous corpus and index.
func (o *Orchestrator) Ingest(ctx context.Context, inputs []*models.DocumentInput) (*models.IngestReport, error) {
	if len(inputs) == 0 {
		return &models.IngestReport{Documents: []string{}}, nil
	}

	o.build.Lock()
	defer o.build.Unlock()
	o.setState(models.StateIngesting)
	telemetry.AddBreadcrumb(ctx, "pipeline", fmt.Sprintf("ingesting %d files", len(inputs)))

	report := &models.IngestReport{Documents: []string{}}
	merged := o.snapshotDocs()
	var added []*models.Document
	for _, in := range inputs {
		if in == nil {
			continue
		}
		doc, err := o.loader.Load(in)
		if err != nil {
			o.logger.Warn("skipping unreadable upload", zap.String("filename", in.Filename), zap.Error(err))
			report.Skipped = append(report.Skipped, in.Filename)
			continue
		}
		if len(doc.Pages) == 0 {
			o.logger.Warn("skipping upload with no text", zap.String("filename", doc.Filename))
			report.Skipped = append(report.Skipped, doc.Filename)
			continue
		}
		report.Documents = append(report.Documents, doc.Filename)
		if prev, ok := merged[doc.ID]; ok && prev.ContentHash == doc.ContentHash {
			o.logger.Debug("upload unchanged", zap.String("filename", doc.Filename))
			continue
		}
		o.saveUpload(doc.Filename, in.Content)
		merged[doc.ID] = doc
		added = append(added, doc)
	}
	if len(report.Documents) == 0 {
		err := models.NewDomainError(models.CodeInvalidInput,
			fmt.Sprintf("none of the %d uploaded files contained readable text", len(inputs)))
		return nil, o.fail(ctx, err)
	}

	h, cached, err := o.buildIndex(ctx, merged)
	if err != nil {
		return nil, o.fail(ctx, err)
	}
	o.commit(merged, h)
	o.persist(ctx, added)

	report.Chunks = h.Size()
	report.IndexKey = h.Key()
	report.Cached = cached
	o.logger.Info("corpus indexed",
		zap.Strings("documents", report.Documents),
		zap.Strings("skipped", report.Skipped),
		zap.Int("chunks", report.Chunks),
		zap.Bool("cached", cached))
	return report, nil
}

// Remove drops the document with filename from the corpus and rebuilds the index. Removing the
// last document returns the orchestrator to Idle.
func (o *Orchestrator) Remove(ctx context.Context, filename string) error {
	id := digest.DocumentID(filename)

	o.build.Lock()
	defer o.build.Unlock()

	merged := o.snapshotDocs()
	doc, ok := merged[id]
	if !ok {
		return fmt.Errorf("%s: %w", filename, ErrDocumentNotFound)
	}
	delete(merged, id)
	o.setState(models.StateIngesting)

	if len(merged) == 0 {
		o.commit(merged, nil)
	} else {
		h, _, err := o.buildIndex(ctx, merged)
		if err != nil {
			return o.fail(ctx, err)
		}
		o.commit(merged, h)
	}

	if o.store != nil {
		if err := o.store.DeleteDocument(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			o.logger.Warn("failed to delete stored document", zap.String("filename", doc.Filename), zap.Error(err))
		}
	}
	if o.uploadDir != "" {
		if err := os.Remove(filepath.Join(o.uploadDir, doc.Filename)); err != nil && !os.IsNotExist(err) {
			o.logger.Warn("failed to delete upload", zap.String("filename", doc.Filename), zap.Error(err))
		}
	}
	o.logger.Info("document removed", zap.String("filename", doc.Filename), zap.Int("remaining", len(merged)))
	return nil
}

// Restore reloads the documents persisted by a previous session and rebuilds the index, which
// normally comes from a stored snapshot without embedding. Without a store, or with nothing
// stored, Restore does nothing.
func (o *Orchestrator) Restore(ctx context.Context) (*models.IngestReport, error) {
	report := &models.IngestReport{Documents: []string{}}
	if o.store == nil {
		return report, nil
	}
	docs, err := o.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored documents: %w", err)
	}
	if len(docs) == 0 {
		return report, nil
	}

	o.build.Lock()
	defer o.build.Unlock()
	o.setState(models.StateIngesting)

	merged := make(map[string]*models.Document, len(docs))
	for _, d := range docs {
		merged[d.ID] = d
		report.Documents = append(report.Documents, d.Filename)
	}
	h, cached, err := o.buildIndex(ctx, merged)
	if err != nil {
		return nil, o.fail(ctx, err)
	}
	o.commit(merged, h)

	report.Chunks = h.Size()
	report.IndexKey = h.Key()
	report.Cached = cached
	o.logger.Info("corpus restored", zap.Int("documents", len(docs)), zap.Int("chunks", h.Size()), zap.Bool("cached", cached))
	return report, nil
}

// Ask answers question from the corpus and both external sources. Without an index it returns a
// NO_CORPUS error and never starts retrieval. Source failures only degrade their slot. A
// generation failure returns the answer (with its fused context) together with a
// GenerationError; the orchestrator stays ready for the next question.
func (o *Orchestrator) Ask(ctx context.Context, question string) (*models.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, models.NewDomainError(models.CodeInvalidInput, "question is empty")
	}

	o.build.RLock()
	o.mu.Lock()
	h := o.handle
	o.mu.Unlock()
	o.build.RUnlock()
	if h == nil {
		return nil, models.NewDomainError(models.CodeNoCorpus, "no corpus available, upload documents first")
	}

	start := time.Now()
	answer := &models.Answer{ID: uuid.NewString(), Question: question}
	ctx, span := telemetry.StartSpan(ctx, "pipeline.ask", "ask")
	span.SetTag("answer_id", answer.ID)

	stage(answer, models.StateRetrieving)
	corpus, enc, web := o.retrieveAll(ctx, h, question)

	fc := fusion.Fuse(corpus, enc, web, question)
	answer.Context = fc
	stage(answer, models.StateFused)
	for _, src := range fc.Unavailable() {
		o.logger.Warn("source unavailable", zap.String("answer_id", answer.ID), zap.String("source", string(src)))
	}

	genCtx, cancel := context.WithTimeout(ctx, o.opts.GenerationTimeout)
	text, err := generation.Answer(genCtx, o.opts.Generator, fc)
	cancel()
	answer.Elapsed = time.Since(start).Milliseconds()
	if err != nil {
		if models.ErrorCode(err) != models.CodeGeneration {
			err = models.GenerationError("generation failed", err)
		}
		stage(answer, models.StateFailed)
		answer.Error = err.Error()
		o.logger.Error("generation failed", zap.String("answer_id", answer.ID), zap.Error(err))
		telemetry.CaptureError(ctx, err, map[string]string{"stage": "generation"})
		span.End(err)
		return answer, err
	}

	answer.Text = text
	stage(answer, models.StateDelivered)
	o.logger.Info("answer delivered",
		zap.String("answer_id", answer.ID),
		zap.Int("passages", len(fc.Corpus.Passages)),
		zap.Int64("elapsed_ms", answer.Elapsed))
	span.End(nil)
	return answer, nil
}

// Status returns a point-in-time view of the orchestrator.
func (o *Orchestrator) Status() *models.Status {
	o.mu.Lock()
	st := &models.Status{
		State:        o.state,
		Documents:    make([]string, 0, len(o.docs)),
		Embedder:     o.opts.Embedder.ID(),
		Metric:       string(o.opts.Metric),
		ChunkSize:    o.chunker.Size(),
		ChunkOverlap: o.chunker.Overlap(),
		TopK:         o.opts.TopK,
	}
	for _, d := range o.docs {
		st.Documents = append(st.Documents, d.Filename)
	}
	if o.handle != nil {
		st.Chunks = o.handle.Size()
		st.IndexKey = o.handle.Key()
	}
	if o.lastErr != nil {
		st.LastError = o.lastErr.Error()
	}
	o.mu.Unlock()

	sort.Strings(st.Documents)
	if len(o.diskPaths) > 0 {
		if n, err := storage.DiskUsageBytes(o.diskPaths...); err == nil {
			st.DiskUsageBytes = n
		}
	}
	return st
}

// State returns the lifecycle state.
func (o *Orchestrator) State() models.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// buildIndex chunks docs in filename order and builds their index.
func (o *Orchestrator) buildIndex(ctx context.Context, docs map[string]*models.Document) (*indexer.Handle, bool, error) {
	ordered := make([]*models.Document, 0, len(docs))
	for _, d := range docs {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Filename != ordered[j].Filename {
			return ordered[i].Filename < ordered[j].Filename
		}
		return ordered[i].ID < ordered[j].ID
	})
	var chunks []models.Chunk
	for _, d := range ordered {
		chunks = append(chunks, o.chunker.Chunk(d)...)
	}
	if len(chunks) == 0 {
		return nil, false, models.NewDomainError(models.CodeNoCorpus, "documents contain no text to index")
	}
	return o.indexer.Build(ctx, chunks)
}

func (o *Orchestrator) snapshotDocs() map[string]*models.Document {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]*models.Document, len(o.docs))
	for id, d := range o.docs {
		out[id] = d
	}
	return out
}

func (o *Orchestrator) commit(docs map[string]*models.Document, h *indexer.Handle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.docs = docs
	o.handle = h
	o.lastErr = nil
	if h == nil {
		o.state = models.StateIdle
	} else {
		o.state = models.StateIndexed
	}
}

func (o *Orchestrator) fail(ctx context.Context, err error) error {
	o.mu.Lock()
	o.state = models.StateFailed
	o.lastErr = err
	o.mu.Unlock()
	o.logger.Error("ingestion failed", zap.Error(err))
	telemetry.CaptureError(ctx, err, map[string]string{"stage": "ingest"})
	return err
}

func (o *Orchestrator) setState(s models.State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = s
}

func (o *Orchestrator) persist(ctx context.Context, docs []*models.Document) {
	if o.store == nil {
		return
	}
	for _, d := range docs {
		if err := o.store.SaveDocument(ctx, d); err != nil {
			o.logger.Warn("failed to persist document", zap.String("filename", d.Filename), zap.Error(err))
		}
	}
}

func (o *Orchestrator) saveUpload(filename string, content []byte) {
	if o.uploadDir == "" {
		return
	}
	if err := os.MkdirAll(o.uploadDir, 0755); err != nil {
		o.logger.Warn("failed to create upload directory", zap.String("dir", o.uploadDir), zap.Error(err))
		return
	}
	path := filepath.Join(o.uploadDir, filepath.Base(filename))
	if err := os.WriteFile(path, content, 0644); err != nil {
		o.logger.Warn("failed to save upload", zap.String("path", path), zap.Error(err))
	}
}

func stage(a *models.Answer, s models.State) {
	a.Trace = append(a.Trace, models.Stage{State: s, At: time.Now()})
}
