package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloo-solutions/examvault/internal/chunker"
	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/cloo-solutions/examvault/internal/pagination"
	"github.com/cloo-solutions/examvault/internal/parser"
)

// memStore is an in-memory stand-in for the Postgres repositories. It
// enforces the active content-hash uniqueness the database index provides.
type memStore struct {
	mu     sync.Mutex
	docs   map[string]*domain.Document
	chunks map[string][]domain.Chunk
	jobs   map[string]*domain.IngestionJob
	// jobHistory keeps every persisted snapshot per job.
	jobHistory map[string][]domain.IngestionJob

	beforeCreate func(d *domain.Document) error
}

func newMemStore() *memStore {
	return &memStore{
		docs:       make(map[string]*domain.Document),
		chunks:     make(map[string][]domain.Chunk),
		jobs:       make(map[string]*domain.IngestionJob),
		jobHistory: make(map[string][]domain.IngestionJob),
	}
}

func copyDoc(d *domain.Document) *domain.Document {
	c := *d
	return &c
}

func copyJob(j *domain.IngestionJob) *domain.IngestionJob {
	c := *j
	c.ErrorLog = append([]domain.JobError(nil), j.ErrorLog...)
	if j.SyncStats != nil {
		s := *j.SyncStats
		c.SyncStats = &s
	}
	return &c
}

func (m *memStore) put(d *domain.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[d.ID] = copyDoc(d)
}

func (m *memStore) doc(id string) *domain.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil
	}
	return copyDoc(d)
}

func (m *memStore) chunksOf(id string) []domain.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Chunk(nil), m.chunks[id]...)
}

func (m *memStore) docCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func (m *memStore) job(id string) *domain.IngestionJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil
	}
	return copyJob(j)
}

func (m *memStore) history(id string) []domain.IngestionJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.IngestionJob(nil), m.jobHistory[id]...)
}

func (m *memStore) activeHashOwner(hash, exceptID string) *domain.Document {
	for _, d := range m.docs {
		if d.ID != exceptID && d.ContentHash == hash && !d.IsDeleted() {
			return d
		}
	}
	return nil
}

type memDocs struct{ s *memStore }

func (r memDocs) Create(ctx context.Context, d *domain.Document) error {
	if r.s.beforeCreate != nil {
		if err := r.s.beforeCreate(d); err != nil {
			return err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.activeHashOwner(d.ContentHash, "") != nil {
		return domain.ErrDuplicateContent
	}
	r.s.docs[d.ID] = copyDoc(d)
	return nil
}

func (r memDocs) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return copyDoc(d), nil
}

func (r memDocs) FindActiveByContentHash(ctx context.Context, hash string) (*domain.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d := r.s.activeHashOwner(hash, ""); d != nil {
		return copyDoc(d), nil
	}
	return nil, domain.ErrDocumentNotFound
}

func (r memDocs) ListWithRemoteID(ctx context.Context) ([]*domain.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Document
	for _, d := range r.s.docs {
		if d.RemoteFileID != "" {
			out = append(out, copyDoc(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memDocs) List(ctx context.Context, f DocumentFilter) (*DocumentPage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*domain.Document
	for _, d := range r.s.docs {
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		all = append(all, copyDoc(d))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if f.Cursor != nil {
		var rest []*domain.Document
		for _, d := range all {
			if d.CreatedAt.Before(f.Cursor.Timestamp) || (d.CreatedAt.Equal(f.Cursor.Timestamp) && d.ID < f.Cursor.LastID) {
				rest = append(rest, d)
			}
		}
		all = rest
	}
	page := &DocumentPage{}
	if len(all) > f.Limit {
		all = all[:f.Limit]
		page.HasMore = true
	}
	page.Items = all
	if page.HasMore {
		last := all[len(all)-1]
		page.NextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}
	return page, nil
}

func (r memDocs) Complete(ctx context.Context, d *domain.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.docs[d.ID]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	cur.Status = domain.DocumentStatusCompleted
	cur.ChunkCount = d.ChunkCount
	cur.Metadata = d.Metadata
	cur.ErrorMessage = ""
	cur.UpdatedAt = d.UpdatedAt
	return nil
}

func (r memDocs) Fail(ctx context.Context, id, message string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	cur.Status = domain.DocumentStatusFailed
	cur.ErrorMessage = message
	cur.UpdatedAt = now
	return nil
}

func (r memDocs) UpdateSource(ctx context.Context, d *domain.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.docs[d.ID]; !ok {
		return domain.ErrDocumentNotFound
	}
	if r.s.activeHashOwner(d.ContentHash, d.ID) != nil {
		return domain.ErrDuplicateContent
	}
	r.s.docs[d.ID] = copyDoc(d)
	return nil
}

func (r memDocs) RefreshRemote(ctx context.Context, id, checksum string, modifiedAt *time.Time, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	cur.RemoteChecksum = checksum
	cur.RemoteModifiedAt = modifiedAt
	cur.UpdatedAt = now
	return nil
}

func (r memDocs) SoftDelete(ctx context.Context, id string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	cur.Status = domain.DocumentStatusDeleted
	cur.DeletedAt = &now
	cur.UpdatedAt = now
	return nil
}

func (r memDocs) PurgeDeleted(ctx context.Context, cutoff time.Time) ([]*domain.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Document
	for id, d := range r.s.docs {
		if d.IsDeleted() && d.DeletedAt != nil && d.DeletedAt.Before(cutoff) {
			out = append(out, d)
			delete(r.s.docs, id)
			delete(r.s.chunks, id)
		}
	}
	return out, nil
}

type memChunks struct{ s *memStore }

func (r memChunks) Replace(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.chunks[documentID] = append([]domain.Chunk(nil), chunks...)
	return nil
}

func (r memChunks) DeleteByDocument(ctx context.Context, documentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.chunks, documentID)
	return nil
}

type memJobs struct{ s *memStore }

func (r memJobs) Create(ctx context.Context, job *domain.IngestionJob) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.jobs[job.ID] = copyJob(job)
	r.s.jobHistory[job.ID] = append(r.s.jobHistory[job.ID], *copyJob(job))
	return nil
}

func (r memJobs) GetByID(ctx context.Context, id string) (*domain.IngestionJob, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return copyJob(j), nil
}

func (r memJobs) Update(ctx context.Context, job *domain.IngestionJob) error {
	if err := domain.ValidateIngestionJob(job); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}
	r.s.jobs[job.ID] = copyJob(job)
	r.s.jobHistory[job.ID] = append(r.s.jobHistory[job.ID], *copyJob(job))
	return nil
}

type memTxRepos struct{ s *memStore }

func (t memTxRepos) Documents() DocumentRepository { return memDocs{t.s} }
func (t memTxRepos) Chunks() ChunkRepository       { return memChunks{t.s} }

type memTxRunner struct{ s *memStore }

func (t memTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	return fn(memTxRepos{t.s})
}

// fakeFiles serves a fixed listing and records download concurrency.
type fakeFiles struct {
	files   []domain.RemoteFile
	content map[string][]byte
	failing map[string]error
	listErr error
	delay   time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeFiles) List(ctx context.Context, rootID, pathPrefix string) ([]domain.RemoteFile, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.RemoteFile(nil), f.files...), nil
}

func (f *fakeFiles) Download(ctx context.Context, fileID string) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.failing[fileID]; ok {
		return nil, err
	}
	data, ok := f.content[fileID]
	if !ok {
		return nil, fmt.Errorf("no content for %s", fileID)
	}
	return data, nil
}

// fakeEmbedder returns a 3-dimensional vector per text. errs are returned,
// in order, before any successful call.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	errs  []error
	block bool
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	var err error
	if len(e.errs) > 0 {
		err, e.errs = e.errs[0], e.errs[1:]
	}
	block := e.block
	e.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), float32(i), 1}
	}
	return out, nil
}

func (e *fakeEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
	putErr  error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (b *fakeBlobs) Put(ctx context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return b.putErr
	}
	b.objects[key] = data
	return nil
}

func (b *fakeBlobs) Remove(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.removed = append(b.removed, key)
	return nil
}

func (b *fakeBlobs) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

type fakeClassifier struct {
	types []string
	err   error
}

func (c fakeClassifier) Classify(ctx context.Context, doc *domain.Document, chunks []string) ([]string, error) {
	return c.types, c.err
}

type seqUUID struct {
	mu sync.Mutex
	n  int
}

func (g *seqUUID) NewString() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%04d", g.n)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

type harness struct {
	store    *memStore
	files    *fakeFiles
	embedder *fakeEmbedder
	blobs    *fakeBlobs
	pipeline *Pipeline
	svc      *IngestionService
}

func newHarness() *harness {
	h := &harness{
		store:    newMemStore(),
		files:    &fakeFiles{content: map[string][]byte{}, failing: map[string]error{}},
		embedder: &fakeEmbedder{},
		blobs:    newFakeBlobs(),
	}
	h.build(nil, time.Minute)
	return h
}

func (h *harness) build(classifier ChunkClassifier, itemTimeout time.Duration) {
	uuids := &seqUUID{}
	now := func() time.Time { return fixedNow }
	h.pipeline = NewPipeline(PipelineDeps{
		Documents:  memDocs{h.store},
		Tx:         memTxRunner{h.store},
		Parser:     parser.New(),
		Chunker:    chunker.New(chunker.WordTokenizer{}, chunker.Config{TargetTokens: 20, OverlapTokens: 0}),
		Embedder:   h.embedder,
		Blobs:      h.blobs,
		Classifier: classifier,
		UUIDGen:    uuids,
		Retry:      testRetry(),
		Now:        now,
	})
	h.svc = NewIngestionService(IngestionDeps{
		Documents:   memDocs{h.store},
		Jobs:        memJobs{h.store},
		Files:       h.files,
		Blobs:       h.blobs,
		Pipeline:    h.pipeline,
		UUIDGen:     uuids,
		Now:         now,
		Concurrency: 2,
		ItemTimeout: itemTimeout,
	})
}

// addFile registers a text file in the fake remote tree.
func (h *harness) addFile(id, p, checksum, body string) {
	h.files.files = append(h.files.files, domain.RemoteFile{ID: id, Name: path.Base(p), Path: p, Checksum: checksum, MimeType: "text/plain"})
	h.files.content[id] = []byte(body)
}

var errBoom = errors.New("boom")
