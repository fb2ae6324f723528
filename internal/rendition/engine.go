// Package rendition derives PDF renditions from stored contents. Each attempt
// writes a blob, then records it in one metadata transaction; any failure
// deletes the blob and aborts the transaction, so neither store keeps a
// partial result.
package rendition

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"docstore/internal/apperr"
	"docstore/internal/blobstore"
	"docstore/internal/content"
	"docstore/internal/converter"
	"docstore/internal/formats"
	"docstore/internal/models"
	"docstore/internal/store"
)

const (
	// DefaultWorkers is the pool size when Options.Workers is unset.
	DefaultWorkers = 2
	// DefaultQueueSize bounds pending attempts when Options.QueueSize is unset.
	DefaultQueueSize = 64
	// DefaultJobRetention is used when Options.JobRetention is unset.
	DefaultJobRetention = 1024

	releaseTimeout = 30 * time.Second
)

// Deps are the collaborators an Engine orchestrates.
type Deps struct {
	Store     *store.Store
	Blobs     blobstore.BlobStore
	Formats   *formats.Registry
	Content   *content.Service
	Converter converter.Converter
	Logger    *slog.Logger
}

// Options size the worker pool.
type Options struct {
	Workers   int
	QueueSize int
	// JobRetention bounds how many finished handles Job can still find.
	JobRetention int
}

// Stats are cumulative engine counters.
type Stats struct {
	Submitted  int64 `json:"submitted" yaml:"submitted"`
	Rejected   int64 `json:"rejected" yaml:"rejected"`
	Committed  int64 `json:"committed" yaml:"committed"`
	RolledBack int64 `json:"rolled_back" yaml:"rolled_back"`
	Skipped    int64 `json:"skipped" yaml:"skipped"`
	Queued     int   `json:"queued" yaml:"queued"`
	Workers    int   `json:"workers" yaml:"workers"`
}

// Engine runs rendition attempts synchronously or on a bounded worker pool.
type Engine struct {
	store     *store.Store
	blobs     blobstore.BlobStore
	formats   *formats.Registry
	content   *content.Service
	converter converter.Converter
	logger    *slog.Logger

	workers   int
	queue     chan *Handle
	startOnce sync.Once
	wg        sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	jobsMu    sync.Mutex
	jobs      map[string]*Handle
	jobOrder  []string
	retention int

	submitted  atomic.Int64
	rejected   atomic.Int64
	committed  atomic.Int64
	rolledBack atomic.Int64
	skipped    atomic.Int64
}

// New validates deps and builds an engine. Call Start to run queued work.
func New(deps Deps, opts Options) (*Engine, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("rendition engine: store is required")
	case deps.Blobs == nil:
		return nil, fmt.Errorf("rendition engine: blob store is required")
	case deps.Formats == nil:
		return nil, fmt.Errorf("rendition engine: format registry is required")
	case deps.Content == nil:
		return nil, fmt.Errorf("rendition engine: content service is required")
	case deps.Converter == nil:
		return nil, fmt.Errorf("rendition engine: converter is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.JobRetention <= 0 {
		opts.JobRetention = DefaultJobRetention
	}

	return &Engine{
		store:     deps.Store,
		blobs:     deps.Blobs,
		formats:   deps.Formats,
		content:   deps.Content,
		converter: deps.Converter,
		logger:    deps.Logger.With("component", "rendition"),
		workers:   opts.Workers,
		queue:     make(chan *Handle, opts.QueueSize),
		jobs:      map[string]*Handle{},
		retention: opts.JobRetention,
	}, nil
}

// Start launches the workers. Calling it again is a no-op.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		for i := 0; i < e.workers; i++ {
			e.wg.Add(1)
			go e.work()
		}
	})
}

// Close stops accepting work and waits for queued attempts to finish.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	e.Start()
	e.wg.Wait()
}

// Submit queues a rendition of source and returns immediately. The attempt
// keeps ctx's values but not its cancellation.
func (e *Engine) Submit(ctx context.Context, source models.Content) (*Handle, error) {
	h := newHandle(source)
	h.ctx = context.WithoutCancel(ctx)

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosed
	}
	select {
	case e.queue <- h:
	default:
		e.rejected.Add(1)
		return nil, ErrQueueFull
	}

	e.submitted.Add(1)
	e.remember(h)
	e.logger.Debug("rendition queued", "job_id", h.id, "content_id", source.ID, "owner_id", source.OwnerID)
	return h, nil
}

// Job returns a retained handle by id.
func (e *Engine) Job(id string) (*Handle, bool) {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	h, ok := e.jobs[id]
	return h, ok
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Submitted:  e.submitted.Load(),
		Rejected:   e.rejected.Load(),
		Committed:  e.committed.Load(),
		RolledBack: e.rolledBack.Load(),
		Skipped:    e.skipped.Load(),
		Queued:     len(e.queue),
		Workers:    e.workers,
	}
}

func (e *Engine) work() {
	defer e.wg.Done()
	for h := range e.queue {
		res, err := e.generate(h.ctx, h.source, h.setState)
		h.finish(res, err)
	}
}

// remember adds h to the job table, evicting the oldest finished handles
// beyond the retention limit.
func (e *Engine) remember(h *Handle) {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	e.jobs[h.id] = h
	e.jobOrder = append(e.jobOrder, h.id)
	if len(e.jobOrder) <= e.retention {
		return
	}
	kept := e.jobOrder[:0]
	excess := len(e.jobOrder) - e.retention
	for _, id := range e.jobOrder {
		if excess > 0 && e.jobs[id].Finished() {
			delete(e.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	e.jobOrder = kept
}

// Generate renders source synchronously in its own transaction.
func (e *Engine) Generate(ctx context.Context, source models.Content) (Result, error) {
	return e.generate(ctx, source, nil)
}

func (e *Engine) generate(ctx context.Context, source models.Content, track func(State)) (Result, error) {
	out, err := e.produce(ctx, source, track)
	if err != nil || out.skipped {
		return out.result(), err
	}

	notify(track, StateRecording)
	var created models.Content
	err = e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		created, err = e.record(ctx, tx, source, out)
		return err
	})
	if err != nil {
		return Result{}, e.fail(source, StateRecording, out.written.Location, apperr.Classify(apperr.KindStorageFailure, "commit rendition", err))
	}

	e.committed.Add(1)
	e.logger.Info("rendition committed", "content_id", source.ID, "owner_id", source.OwnerID, "rendition_id", created.ID, "bytes", created.SizeBytes)
	return Result{Content: &created}, nil
}

// Prepare converts source and writes the rendition blob without touching
// the metadata store, so no transaction is held while the converter runs.
// The caller either records the result with Record or drops it with Discard.
func (e *Engine) Prepare(ctx context.Context, source models.Content) (*Prepared, error) {
	out, err := e.produce(ctx, source, nil)
	if err != nil {
		return nil, err
	}
	return &Prepared{engine: e, source: source, out: out}, nil
}

// Prepared is a written but unrecorded rendition.
type Prepared struct {
	engine *Engine
	source models.Content
	out    produced

	mu   sync.Mutex
	used bool
}

// Skipped reports whether the source was already a PDF.
func (p *Prepared) Skipped() bool {
	return p.out.skipped
}

// Record records the rendition inside the caller's transaction. On error
// the blob is already deleted and the caller must roll back; a later
// rollback of tx also deletes the blob.
func (p *Prepared) Record(ctx context.Context, tx *store.Tx) (Result, error) {
	if p.out.skipped {
		return p.out.result(), nil
	}
	e := p.engine
	location := p.out.written.Location

	p.mu.Lock()
	used := p.used
	p.used = true
	p.mu.Unlock()
	if used {
		return Result{}, &Error{State: StateRecording, ContentID: p.source.ID, Err: apperr.Errorf(apperr.KindInternal, "record", "rendition already recorded or discarded")}
	}
	if tx == nil {
		return Result{}, e.fail(p.source, StateRecording, location, apperr.Errorf(apperr.KindInternal, "record", "transaction is required"))
	}

	tx.OnRollback(func() { e.releaseBlob(location) })
	created, err := e.record(ctx, tx, p.source, p.out)
	if err != nil {
		return Result{}, e.fail(p.source, StateRecording, location, err)
	}
	e.committed.Add(1)
	e.logger.Info("rendition recorded", "content_id", p.source.ID, "owner_id", p.source.OwnerID, "rendition_id", created.ID)
	return Result{Content: &created}, nil
}

// Discard deletes the blob of a rendition that will not be recorded. It is
// a no-op after Record.
func (p *Prepared) Discard() {
	p.mu.Lock()
	used := p.used
	p.used = true
	p.mu.Unlock()
	if used || p.out.skipped {
		return
	}
	p.engine.releaseBlob(p.out.written.Location)
	p.engine.rolledBack.Add(1)
	p.engine.logger.Debug("prepared rendition discarded", "content_id", p.source.ID, "location", p.out.written.Location)
}

type produced struct {
	skipped bool
	target  models.Format
	written blobstore.WriteResult
}

func (p produced) result() Result {
	return Result{Skipped: p.skipped}
}

// produce runs every step before Recording: it converts the source and
// streams the output into a freshly allocated blob. On failure the blob
// location is released and a *Error returned.
func (e *Engine) produce(ctx context.Context, source models.Content, track func(State)) (produced, error) {
	if source.IsPDF() {
		e.skipped.Add(1)
		e.logger.Debug("rendition skipped: source is already pdf", "content_id", source.ID)
		return produced{skipped: true}, nil
	}

	location := e.blobs.Allocate()

	sourceFormat, err := e.formats.FindByExtension(source.Format.Extension)
	if err != nil {
		return produced{}, e.fail(source, StateRequested, location, err)
	}
	target, err := e.formats.PDF()
	if err != nil {
		return produced{}, e.fail(source, StateRequested, location, err)
	}
	if !e.converter.Supports(sourceFormat.Extension, target.Extension) {
		return produced{}, e.fail(source, StateRequested, location,
			apperr.Errorf(apperr.KindFormatNotFound, "resolve conversion", "no conversion from %s to %s: %w", sourceFormat.Extension, target.Extension, converter.ErrUnsupported))
	}

	notify(track, StateReading)
	rc, err := e.blobs.Open(ctx, source.Location)
	if err != nil {
		return produced{}, e.fail(source, StateReading, location, apperr.E(apperr.KindStorageFailure, "open source", err))
	}
	defer rc.Close()
	in := &sourceReader{r: rc}

	notify(track, StateConverting)
	pr, pw := io.Pipe()
	type writeOutcome struct {
		res blobstore.WriteResult
		err error
	}
	writeDone := make(chan writeOutcome, 1)
	go func() {
		res, err := e.blobs.Write(ctx, location, pr)
		pr.CloseWithError(err)
		writeDone <- writeOutcome{res: res, err: err}
	}()

	out := &blobSink{w: pw, first: func() { notify(track, StateWriting) }}
	convErr := e.converter.Convert(ctx, in, out, sourceFormat.Extension, target.Extension)
	pw.CloseWithError(convErr)
	written := <-writeDone

	switch {
	case in.err != nil:
		return produced{}, e.fail(source, StateReading, location, in.err)
	case written.err != nil && (convErr == nil || out.failed.Load()):
		return produced{}, e.fail(source, StateWriting, location, apperr.E(apperr.KindStorageFailure, "write rendition", written.err))
	case convErr != nil:
		return produced{}, e.fail(source, StateConverting, location, classifyConversion(convErr))
	}
	return produced{target: target, written: written.res}, nil
}

// sourceReader tags read failures of the source blob as storage failures
// and keeps the first one, whatever the converter does with it.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		if s.err == nil {
			s.err = apperr.E(apperr.KindStorageFailure, "read source", err)
		}
		return n, s.err
	}
	return n, err
}

// blobSink feeds converter output to the blob writer. failed is set when a
// write is refused because the blob side already gave up.
type blobSink struct {
	w      io.Writer
	once   sync.Once
	first  func()
	failed atomic.Bool
}

func (b *blobSink) Write(p []byte) (int, error) {
	if len(p) > 0 {
		b.once.Do(b.first)
	}
	n, err := b.w.Write(p)
	if err != nil {
		b.failed.Store(true)
	}
	return n, err
}

// record looks the owner up inside tx and records the rendition against it.
func (e *Engine) record(ctx context.Context, tx *store.Tx, source models.Content, out produced) (models.Content, error) {
	owner, err := tx.GetDocument(ctx, source.OwnerID)
	if err != nil {
		return models.Content{}, apperr.E(apperr.KindStorageFailure, "load owner", err)
	}
	if owner == nil {
		return models.Content{}, apperr.Errorf(apperr.KindConstraintFailure, "load owner", "document %q does not exist", source.OwnerID)
	}
	return e.content.CreateContent(ctx, tx, content.CreateInput{
		Extension: out.target.Extension,
		Owner:     *owner,
		Kind:      models.ContentKindRendition,
		Blob:      out.written,
	})
}

func classifyConversion(convErr error) error {
	switch {
	case converter.IsUnsupported(convErr):
		return apperr.E(apperr.KindFormatNotFound, "convert", convErr)
	case converter.IsConversionError(convErr):
		return apperr.E(apperr.KindConversionFailure, "convert", convErr)
	default:
		return apperr.Classify(apperr.KindConversionFailure, "convert", convErr)
	}
}

// fail runs the compensation for a failed attempt: the allocated location
// is deleted whether or not anything was written there.
func (e *Engine) fail(source models.Content, state State, location string, cause error) error {
	e.releaseBlob(location)
	e.rolledBack.Add(1)
	rendErr := &Error{State: state, ContentID: source.ID, Err: cause}
	e.logger.Warn("rendition rolled back", "content_id", source.ID, "owner_id", source.OwnerID, "state", state, "kind", rendErr.Kind(), "error", cause)
	return rendErr
}

func (e *Engine) releaseBlob(location string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := e.blobs.Delete(ctx, location); err != nil {
		e.logger.Error("compensating blob delete failed", "location", location, "error", err)
	}
}

func notify(track func(State), s State) {
	if track != nil {
		track(s)
	}
}
