package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/examvault/internal/contenthash"
	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/cloo-solutions/examvault/internal/telemetry"
)

// Outcome is the result category of a single pipeline operation.
type Outcome string

const (
	OutcomeIngested  Outcome = "ingested"
	OutcomeUpdated   Outcome = "updated"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeFailed    Outcome = "failed"
)

// IngestInput is one file handed to the pipeline.
type IngestInput struct {
	Content          []byte
	Filename         string
	Title            string
	RemoteFileID     string
	RemoteChecksum   string
	RemoteModifiedAt *time.Time
	FileKey          string
	Metadata         domain.DocumentMetadata
}

// IngestResult reports what happened to one file. Err is set only when
// Outcome is OutcomeFailed.
type IngestResult struct {
	DocumentID string
	Outcome    Outcome
	ChunkCount int
	Err        error
}

func failedResult(documentID string, err error) IngestResult {
	return IngestResult{DocumentID: documentID, Outcome: OutcomeFailed, Err: err}
}

// PipelineDeps wires the pipeline's collaborators. Blobs and Classifier may be nil.
type PipelineDeps struct {
	Documents  DocumentRepository
	Tx         TxRunner
	Parser     Parser
	Chunker    Chunker
	Embedder   Embedder
	Blobs      BlobStore
	Classifier ChunkClassifier
	UUIDGen    UUIDGenerator
	Retry      RetryConfig
	Now        func() time.Time
}

// Pipeline turns raw file content into a completed document with embedded chunks.
type Pipeline struct {
	docs       DocumentRepository
	tx         TxRunner
	parser     Parser
	chunker    Chunker
	embedder   Embedder
	blobs      BlobStore
	classifier ChunkClassifier
	uuidGen    UUIDGenerator
	retry      RetryConfig
	now        func() time.Time
}

func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		docs:       deps.Documents,
		tx:         deps.Tx,
		parser:     deps.Parser,
		chunker:    deps.Chunker,
		embedder:   deps.Embedder,
		blobs:      deps.Blobs,
		classifier: deps.Classifier,
		uuidGen:    deps.UUIDGen,
		retry:      deps.Retry,
		now:        deps.Now,
	}
	if p.uuidGen == nil {
		p.uuidGen = &DefaultUUIDGenerator{}
	}
	if p.retry.MaxAttempts == 0 {
		p.retry = DefaultRetryConfig()
	}
	if p.now == nil {
		p.now = func() time.Time { return time.Now().UTC() }
	}
	return p
}

// Ingest stores a new document unless an active document already has the same content.
func (p *Pipeline) Ingest(ctx context.Context, in IngestInput) IngestResult {
	ctx, span := telemetry.StartSpan(ctx, "Pipeline.Ingest", telemetry.SpanAttributes{
		RemoteFileID: in.RemoteFileID,
		Operation:    "ingest",
	})
	defer span.End()

	hash := contenthash.Sum(in.Content)

	existing, err := p.findActive(ctx, hash)
	if err != nil {
		span.SetError(err)
		return failedResult("", err)
	}
	if existing != nil {
		return IngestResult{DocumentID: existing.ID, Outcome: OutcomeDuplicate, ChunkCount: existing.ChunkCount}
	}

	doc := domain.NewDocument(p.uuidGen.NewString(), in.Filename, hash, p.now())
	applyInput(doc, in)
	doc.FileKey = p.putBlob(ctx, in.FileKey, in.Content)

	if err := p.docs.Create(ctx, doc); err != nil {
		if errors.Is(err, domain.ErrDuplicateContent) {
			// A concurrent ingest of the same bytes won the insert.
			if twin, ferr := p.findActive(ctx, hash); ferr == nil && twin != nil {
				return IngestResult{DocumentID: twin.ID, Outcome: OutcomeDuplicate, ChunkCount: twin.ChunkCount}
			}
		}
		span.SetError(err)
		return failedResult("", domain.ErrStorageFailure.Wrap(err))
	}

	n, err := p.process(ctx, doc, in.Content)
	if err != nil {
		p.fail(ctx, doc.ID, err)
		span.SetError(err)
		return failedResult(doc.ID, err)
	}

	return IngestResult{DocumentID: doc.ID, Outcome: OutcomeIngested, ChunkCount: n}
}

// Update re-processes an existing document with new content. A completed
// document whose content hash is unchanged only has its remote fields refreshed.
func (p *Pipeline) Update(ctx context.Context, documentID string, in IngestInput) IngestResult {
	ctx, span := telemetry.StartSpan(ctx, "Pipeline.Update", telemetry.SpanAttributes{
		DocumentID:   documentID,
		RemoteFileID: in.RemoteFileID,
		Operation:    "update",
	})
	defer span.End()

	doc, err := p.docs.GetByID(ctx, documentID)
	if err != nil {
		span.SetError(err)
		return failedResult(documentID, err)
	}
	if doc.IsDeleted() {
		return failedResult(documentID, domain.ErrDocumentDeleted)
	}

	hash := contenthash.Sum(in.Content)
	if doc.Status == domain.DocumentStatusCompleted && doc.ContentHash == hash {
		if err := p.docs.RefreshRemote(ctx, doc.ID, in.RemoteChecksum, in.RemoteModifiedAt, p.now()); err != nil {
			span.SetError(err)
			return failedResult(doc.ID, domain.ErrStorageFailure.Wrap(err))
		}
		return IngestResult{DocumentID: doc.ID, Outcome: OutcomeUnchanged, ChunkCount: doc.ChunkCount}
	}

	// Reject content owned by another document before touching the blob
	// store; the unique index still catches concurrent twins below.
	owner, err := p.findActive(ctx, hash)
	if err != nil {
		span.SetError(err)
		return failedResult(doc.ID, domain.ErrStorageFailure.Wrap(err))
	}
	if owner != nil && owner.ID != doc.ID {
		return failedResult(doc.ID, domain.ErrDuplicateContent)
	}

	oldKey := doc.FileKey
	doc.ContentHash = hash
	doc.Filename = in.Filename
	applyInput(doc, in)
	doc.Status = domain.DocumentStatusProcessing
	doc.ErrorMessage = ""
	doc.UpdatedAt = p.now()
	newKey := p.putBlob(ctx, in.FileKey, in.Content)
	if newKey != "" {
		doc.FileKey = newKey
	} else {
		doc.FileKey = oldKey
	}

	err = p.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().UpdateSource(ctx, doc); err != nil {
			return err
		}
		return repos.Chunks().DeleteByDocument(ctx, doc.ID)
	})
	if err != nil {
		// The row still points at oldKey.
		if newKey != "" && newKey != oldKey {
			p.removeBlob(ctx, newKey)
		}
		span.SetError(err)
		return failedResult(doc.ID, err)
	}
	if newKey != "" && oldKey != "" && oldKey != newKey {
		p.removeBlob(ctx, oldKey)
	}

	n, err := p.process(ctx, doc, in.Content)
	if err != nil {
		p.fail(ctx, doc.ID, err)
		span.SetError(err)
		return failedResult(doc.ID, err)
	}

	return IngestResult{DocumentID: doc.ID, Outcome: OutcomeUpdated, ChunkCount: n}
}

// SoftDelete marks a document deleted. Its chunks stay until the reaper runs.
func (p *Pipeline) SoftDelete(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "Pipeline.SoftDelete", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "delete",
	})
	defer span.End()

	doc, err := p.docs.GetByID(ctx, documentID)
	if err != nil {
		span.SetError(err)
		return err
	}
	if doc.IsDeleted() {
		return nil
	}

	if err := p.docs.SoftDelete(ctx, doc.ID, p.now()); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

// process parses, chunks, embeds and persists doc, leaving it completed.
func (p *Pipeline) process(ctx context.Context, doc *domain.Document, content []byte) (int, error) {
	parsed, err := p.parser.Parse(ctx, content, doc.Filename)
	if err != nil {
		return 0, err
	}
	if parsed.PageCount > 0 {
		doc.Metadata.PageCount = parsed.PageCount
	}

	segments := p.chunker.Chunk(parsed.Text)
	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Content
	}

	var vectors [][]float32
	if len(texts) > 0 {
		vectors, err = retryTransient(ctx, p.retry, func() ([][]float32, error) {
			return p.embedder.Embed(ctx, texts)
		})
		if err != nil {
			return 0, err
		}
		if len(vectors) != len(texts) {
			return 0, domain.ErrEmbedFatal.Wrap(fmt.Errorf("expected %d vectors, got %d", len(texts), len(vectors)))
		}
	}

	contentTypes := p.classify(ctx, doc, texts)

	now := p.now()
	chunks := make([]domain.Chunk, len(segments))
	for i, s := range segments {
		chunks[i] = domain.Chunk{
			ID:          p.uuidGen.NewString(),
			DocumentID:  doc.ID,
			Index:       s.Index,
			Content:     s.Content,
			ContentHash: s.ContentHash,
			TokenCount:  s.TokenCount,
			Embedding:   vectors[i],
			Metadata:    domain.ChunkMetadata{ContentType: contentTypes[i]},
			CreatedAt:   now,
		}
	}

	doc.Status = domain.DocumentStatusCompleted
	doc.ChunkCount = len(chunks)
	doc.ErrorMessage = ""
	doc.UpdatedAt = now

	err = p.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Chunks().Replace(ctx, doc.ID, chunks); err != nil {
			return err
		}
		return repos.Documents().Complete(ctx, doc)
	})
	if err != nil {
		return 0, domain.ErrStorageFailure.Wrap(err)
	}
	return len(chunks), nil
}

// classify never fails; chunks fall back to the default content type.
func (p *Pipeline) classify(ctx context.Context, doc *domain.Document, texts []string) []string {
	out := make([]string, len(texts))
	for i := range out {
		out[i] = domain.DefaultContentType
	}
	if p.classifier == nil || len(texts) == 0 {
		return out
	}

	types, err := p.classifier.Classify(ctx, doc, texts)
	if err != nil {
		log.Printf("[pipeline] classify document %s: %v", doc.ID, err)
		return out
	}
	for i := range out {
		if i < len(types) && types[i] != "" {
			out[i] = types[i]
		}
	}
	return out
}

// fail records err on the document. It runs detached from ctx so an expired
// item deadline still leaves a failed row rather than one stuck in processing.
func (p *Pipeline) fail(ctx context.Context, documentID string, cause error) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.docs.Fail(dctx, documentID, cause.Error(), p.now()); err != nil {
		log.Printf("[pipeline] mark document %s failed: %v", documentID, err)
	}
}

// putBlob returns the stored key, or "" when nothing was stored.
func (p *Pipeline) putBlob(ctx context.Context, key string, content []byte) string {
	if p.blobs == nil || key == "" {
		return ""
	}
	if err := p.blobs.Put(ctx, key, content); err != nil {
		log.Printf("[pipeline] upload %s: %v", key, err)
		return ""
	}
	return key
}

func (p *Pipeline) removeBlob(ctx context.Context, key string) {
	if p.blobs == nil || key == "" {
		return
	}
	if err := p.blobs.Remove(ctx, key); err != nil {
		log.Printf("[pipeline] remove %s: %v", key, err)
	}
}

func (p *Pipeline) findActive(ctx context.Context, hash string) (*domain.Document, error) {
	doc, err := p.docs.FindActiveByContentHash(ctx, hash)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return nil, nil
	}
	return doc, err
}

func applyInput(doc *domain.Document, in IngestInput) {
	doc.Title = in.Title
	if doc.Title == "" {
		doc.Title = in.Filename
	}
	if in.RemoteFileID != "" {
		doc.RemoteFileID = in.RemoteFileID
	}
	doc.RemoteChecksum = in.RemoteChecksum
	doc.RemoteModifiedAt = in.RemoteModifiedAt
	doc.Metadata = in.Metadata
}
