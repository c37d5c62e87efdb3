package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"docvault/internal/event"
	"docvault/internal/metadata"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

var (
	ErrIDRequired      = errors.New("id is required")
	ErrReaderNil       = errors.New("reader is nil")
	ErrNotFound        = errors.New("document not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrContentConflict = errors.New("content conflicts with prior upload under the same fingerprint")
	ErrInProgress      = errors.New("upload still in progress")
)

// Tunables; vars so tests can shrink the waits.
var (
	nowFunc        = time.Now
	waitPoll       = 100 * time.Millisecond
	waitTimeout    = 2 * time.Second
	publishTimeout = 3 * time.Second
	presignExpiry  = time.Hour
)

const storagePrefix = "docs"

// UploadInput carries the request attributes for an upload.
type UploadInput struct {
	Filename       string
	ContentType    string
	Caller         string
	IdempotencyKey string
	Title          string
	Author         string
}

// UpdateInput carries the mutable attributes for an update. A nil content
// reader means metadata-only: the storage key is left untouched.
type UpdateInput struct {
	Filename    string
	ContentType string
	Caller      string
	Title       string
	Author      string
}

// UploadResult pairs the resulting record with whether this call created it
// or replayed a prior idempotent outcome.
type UploadResult struct {
	Document *model.Document
	Replayed bool
}

// DocumentAccess is a visible record plus a time-limited download reference.
type DocumentAccess struct {
	Document    *model.Document `json:"document"`
	DownloadURL string          `json:"download_url"`
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentService defines the document lifecycle use cases. It is the only
// component touching more than one collaborator per operation.
type DocumentService interface {
	// Upload accepts content, deduplicates it against the idempotency ledger,
	// writes blob then metadata, and publishes document.created best-effort.
	Upload(ctx context.Context, r io.Reader, in UploadInput) (*UploadResult, error)

	// Get returns a visible document and a presigned download URL.
	Get(ctx context.Context, id string) (*DocumentAccess, error)

	// Update replaces content and/or attributes under optimistic concurrency:
	// the caller's expectedVersion must match the stored version.
	Update(ctx context.Context, id string, expectedVersion int64, r io.Reader, in UpdateInput) (*model.Document, error)

	// Delete removes metadata first, blob second, then marks the record
	// DELETED. Terminal: a second delete reports not found.
	Delete(ctx context.Context, id string) error

	// List returns visible documents using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	// EvictExpired garbage-collects idempotency entries past retention.
	EvictExpired(ctx context.Context) (int64, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store     storage.Storage
	repo      repository.DocumentRepository
	ledger    repository.IdempotencyLedger
	meta      metadata.Client
	events    event.Publisher
	retention time.Duration
}

// NewDocumentService constructs the orchestrator. All collaborators are
// injected so tests can substitute fakes.
func NewDocumentService(
	store storage.Storage,
	repo repository.DocumentRepository,
	ledger repository.IdempotencyLedger,
	meta metadata.Client,
	events event.Publisher,
	retention time.Duration,
) DocumentService {
	return &documentService{
		store:     store,
		repo:      repo,
		ledger:    ledger,
		meta:      meta,
		events:    events,
		retention: retention,
	}
}

// Fingerprint derives the deterministic idempotency key for an upload.
// A client-supplied key is scoped by caller identity; otherwise the key is
// caller + content hash + logical filename.
func Fingerprint(caller, clientKey, contentHash, filename string) string {
	h := sha256.New()
	h.Write([]byte(caller))
	h.Write([]byte{0})
	if clientKey != "" {
		h.Write([]byte(clientKey))
	} else {
		h.Write([]byte(contentHash))
		h.Write([]byte{0})
		h.Write([]byte(filename))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func hashContent(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func storageKey(docID, contentHash, filename string) string {
	return fmt.Sprintf("%s/%s/%s%s", storagePrefix, docID, contentHash[:12], filepath.Ext(filename))
}

func (s *documentService) Upload(ctx context.Context, r io.Reader, in UploadInput) (*UploadResult, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	// The content is buffered once: the hash is part of the fingerprint and
	// must be known before any collaborator is touched.
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	contentHash := hashContent(content)
	fp := Fingerprint(in.Caller, in.IdempotencyKey, contentHash, in.Filename)

	for {
		entry, err := s.ledger.Lookup(ctx, fp)
		if errors.Is(err, sql.ErrNoRows) {
			res, retry, err := s.startUpload(ctx, fp, contentHash, content, in)
			if retry {
				continue // lost the reservation race; re-read the winner's entry
			}
			return res, err
		}
		if err != nil {
			return nil, fmt.Errorf("ledger lookup: %w", err)
		}

		doc, err := s.repo.FindByID(ctx, entry.DocumentID)
		if errors.Is(err, sql.ErrNoRows) {
			// Entry outlived its document; release and start over.
			if err := s.ledger.Release(ctx, fp); err != nil {
				return nil, fmt.Errorf("ledger release: %w", err)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find document: %w", err)
		}

		switch doc.Status {
		case model.StatusDeleted:
			// Terminal. Same fingerprint after delete mints a new ID.
			if err := s.ledger.Release(ctx, fp); err != nil {
				return nil, fmt.Errorf("ledger release: %w", err)
			}
			continue

		case model.StatusMetadataRegistered:
			if doc.ContentHash != contentHash {
				return nil, ErrContentConflict
			}
			return &UploadResult{Document: doc, Replayed: true}, nil

		case model.StatusFailed:
			if doc.ContentHash != contentHash {
				return nil, ErrContentConflict
			}
			return s.resumeUpload(ctx, fp, doc, content, in)

		default: // PENDING or STORED: someone may still be working on it
			if doc.ContentHash != contentHash {
				return nil, ErrContentConflict
			}
			settled, err := s.waitForStable(ctx, doc.ID)
			if err != nil {
				return nil, err
			}
			if settled == nil {
				return nil, ErrInProgress
			}
			if settled.Status == model.StatusMetadataRegistered {
				return &UploadResult{Document: settled, Replayed: true}, nil
			}
			if settled.Status == model.StatusDeleted {
				if err := s.ledger.Release(ctx, fp); err != nil {
					return nil, fmt.Errorf("ledger release: %w", err)
				}
				continue
			}
			return s.resumeUpload(ctx, fp, settled, content, in)
		}
	}
}

// startUpload reserves the fingerprint and runs the write path. The retry
// return asks the caller to re-read the ledger after a lost reservation.
func (s *documentService) startUpload(ctx context.Context, fp, contentHash string, content []byte, in UploadInput) (*UploadResult, bool, error) {
	docID := uuid.New().String()
	won, err := s.ledger.Reserve(ctx, fp, docID, s.retention)
	if err != nil {
		return nil, false, fmt.Errorf("ledger reserve: %w", err)
	}
	if !won {
		return nil, true, nil
	}

	now := nowFunc().UTC()
	doc := &model.Document{
		ID:          docID,
		StorageKey:  storageKey(docID, contentHash, in.Filename),
		ContentHash: contentHash,
		Filename:    in.Filename,
		ContentType: in.ContentType,
		Size:        int64(len(content)),
		Status:      model.StatusPending,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		return nil, false, fmt.Errorf("create document record: %w", err)
	}

	out, err := s.runUpload(ctx, fp, stored, content, in, false)
	if err != nil {
		return nil, false, err
	}
	return &UploadResult{Document: out}, false, nil
}

// resumeUpload re-attempts a FAILED upload from the last completed step.
func (s *documentService) resumeUpload(ctx context.Context, fp string, doc *model.Document, content []byte, in UploadInput) (*UploadResult, error) {
	if doc.Status == model.StatusFailed {
		if err := s.repo.SetStatus(ctx, doc.ID, model.StatusFailed, model.StatusPending); err != nil {
			if errors.Is(err, repository.ErrStatusConflict) {
				// Another retry won; let it finish.
				return nil, ErrInProgress
			}
			return nil, fmt.Errorf("reset failed document: %w", err)
		}
		if err := s.ledger.Advance(ctx, fp, model.StatusPending); err != nil {
			return nil, fmt.Errorf("ledger advance: %w", err)
		}
		doc.Status = model.StatusPending
	}
	out, err := s.runUpload(ctx, fp, doc, content, in, true)
	if err != nil {
		return nil, err
	}
	return &UploadResult{Document: out}, nil
}

// runUpload drives a document from its current status to
// METADATA_REGISTERED: blob write, then metadata registration, then a
// best-effort created event. No in-process lock is held across these calls.
func (s *documentService) runUpload(ctx context.Context, fp string, doc *model.Document, content []byte, in UploadInput, resumed bool) (*model.Document, error) {
	if doc.Status == model.StatusPending {
		// A resumed attempt may already have the blob from before the failure;
		// the storage key is written at most once per record lifetime.
		write := true
		if resumed {
			if _, err := s.store.Stat(ctx, doc.StorageKey); err == nil {
				write = false
			}
		}
		if write {
			_, err := s.store.Put(ctx, doc.StorageKey, bytes.NewReader(content), storage.PutObjectOptions{
				Size:        doc.Size,
				ContentType: doc.ContentType,
				Metadata:    map[string]string{"original-filename": doc.Filename},
			})
			if err != nil {
				s.markFailed(ctx, fp, doc, "blob_write")
				return nil, fmt.Errorf("upload to storage: %w", err)
			}
		}
		if err := s.advance(ctx, fp, doc, model.StatusPending, model.StatusStored); err != nil {
			return nil, err
		}
	}

	if doc.Status == model.StatusStored {
		if err := s.registerMetadata(ctx, doc, in, resumed); err != nil {
			s.markFailed(ctx, fp, doc, "metadata_write")
			// The blob stays in place: cleanup is a maintenance concern,
			// and a retry with the same fingerprint resumes from here.
			return nil, fmt.Errorf("register metadata: %w", err)
		}
		if err := s.advance(ctx, fp, doc, model.StatusStored, model.StatusMetadataRegistered); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, model.EventDocumentCreated, doc)
	return doc, nil
}

// advance moves the record and the ledger entry to the next status together.
func (s *documentService) advance(ctx context.Context, fp string, doc *model.Document, from, to model.DocumentStatus) error {
	if err := s.repo.SetStatus(ctx, doc.ID, from, to); err != nil {
		return fmt.Errorf("advance %s to %s: %w", doc.ID, to, err)
	}
	doc.Status = to
	doc.UpdatedAt = nowFunc().UTC()
	if err := s.ledger.Advance(ctx, fp, to); err != nil {
		return fmt.Errorf("ledger advance: %w", err)
	}
	return nil
}

// registerMetadata creates the metadata record, or updates it when a resumed
// attempt already registered it before failing.
func (s *documentService) registerMetadata(ctx context.Context, doc *model.Document, in UploadInput, resumed bool) error {
	md := &model.Metadata{
		DocumentID:   doc.ID,
		Title:        in.Title,
		Author:       in.Author,
		CreationDate: doc.CreatedAt.Format(time.RFC3339),
		FileType:     doc.ContentType,
	}
	if md.Title == "" {
		md.Title = doc.Filename
	}
	if md.Author == "" {
		md.Author = in.Caller
	}
	if resumed {
		if _, err := s.meta.Get(ctx, doc.ID); err == nil {
			return s.meta.Update(ctx, md)
		}
	}
	return s.meta.Create(ctx, md)
}

// markFailed drives the document and ledger to FAILED and records the failed
// step with enough context for reconciliation. Best-effort: the triggering
// error is what the caller surfaces.
func (s *documentService) markFailed(ctx context.Context, fp string, doc *model.Document, step string) {
	if err := s.repo.SetStatus(ctx, doc.ID, doc.Status, model.StatusFailed); err != nil && !errors.Is(err, repository.ErrStatusConflict) {
		logJSON(map[string]any{"level": "error", "msg": "mark_failed", "document_id": doc.ID, "error": err.Error()})
	}
	doc.Status = model.StatusFailed
	if err := s.ledger.Advance(ctx, fp, model.StatusFailed); err != nil {
		logJSON(map[string]any{"level": "error", "msg": "ledger_advance_failed", "fingerprint": fp, "error": err.Error()})
	}
	logJSON(map[string]any{
		"level":       "warn",
		"msg":         "upload_step_failed",
		"fingerprint": fp,
		"document_id": doc.ID,
		"step":        step,
	})
}

// waitForStable polls a document until it leaves PENDING/STORED or the wait
// budget runs out. A nil document with nil error means still in flight.
func (s *documentService) waitForStable(ctx context.Context, id string) (*model.Document, error) {
	deadline := nowFunc().Add(waitTimeout)
	for {
		doc, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("find document: %w", err)
		}
		if doc.Status.Terminal() {
			return doc, nil
		}
		if nowFunc().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(waitPoll):
		}
	}
}

// Get returns a document with a presigned download URL; only fully
// registered documents are visible.
func (s *documentService) Get(ctx context.Context, id string) (*DocumentAccess, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !doc.Visible() {
		return nil, ErrNotFound
	}
	u, err := s.store.PresignGet(ctx, doc.StorageKey, presignExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign download: %w", err)
	}
	return &DocumentAccess{Document: doc, DownloadURL: u}, nil
}

func (s *documentService) Update(ctx context.Context, id string, expectedVersion int64, r io.Reader, in UpdateInput) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	// Updates apply to registered documents, and to FAILED ones as the retry
	// path after a partial update failure.
	if doc.Status != model.StatusMetadataRegistered && doc.Status != model.StatusFailed {
		return nil, ErrNotFound
	}
	if doc.Version != expectedVersion {
		return nil, ErrVersionConflict
	}

	next := *doc
	if in.Filename != "" {
		next.Filename = in.Filename
	}
	if in.ContentType != "" {
		next.ContentType = in.ContentType
	}

	oldKey := doc.StorageKey
	contentChanged := false
	if r != nil {
		content, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read content: %w", err)
		}
		newHash := hashContent(content)
		if newHash != doc.ContentHash {
			contentChanged = true
			next.ContentHash = newHash
			next.Size = int64(len(content))
			next.StorageKey = storageKey(doc.ID, newHash, next.Filename)
			_, err := s.store.Put(ctx, next.StorageKey, bytes.NewReader(content), storage.PutObjectOptions{
				Size:        next.Size,
				ContentType: next.ContentType,
				Metadata:    map[string]string{"original-filename": next.Filename},
			})
			if err != nil {
				s.failUpdate(ctx, doc, "blob_write")
				return nil, fmt.Errorf("upload to storage: %w", err)
			}
		}
	}

	md := &model.Metadata{
		DocumentID:   doc.ID,
		Title:        in.Title,
		Author:       in.Author,
		CreationDate: doc.CreatedAt.Format(time.RFC3339),
		FileType:     next.ContentType,
	}
	if md.Title == "" {
		md.Title = next.Filename
	}
	if md.Author == "" {
		md.Author = in.Caller
	}
	if err := s.meta.Update(ctx, md); err != nil {
		// Old content and metadata stay authoritative until a retry commits.
		if contentChanged {
			s.discard(ctx, next.StorageKey)
		}
		s.failUpdate(ctx, doc, "metadata_write")
		return nil, fmt.Errorf("update metadata: %w", err)
	}

	next.Status = model.StatusMetadataRegistered
	next.UpdatedAt = nowFunc().UTC()
	committed, err := s.repo.UpdateCAS(ctx, &next, expectedVersion)
	if err != nil {
		if errors.Is(err, repository.ErrVersionMismatch) {
			if contentChanged {
				s.discard(ctx, next.StorageKey)
			}
			return nil, ErrVersionConflict
		}
		return nil, fmt.Errorf("commit update: %w", err)
	}

	// The replaced blob is only scheduled for removal after the commit; a
	// leftover object is reclaimed by the out-of-band cleanup sweep.
	if contentChanged && oldKey != committed.StorageKey {
		s.discard(ctx, oldKey)
	}

	s.publish(ctx, model.EventDocumentUpdated, committed)
	return committed, nil
}

// failUpdate parks a document in FAILED after a collaborator error during
// update. Best-effort.
func (s *documentService) failUpdate(ctx context.Context, doc *model.Document, step string) {
	if err := s.repo.SetStatus(ctx, doc.ID, doc.Status, model.StatusFailed); err != nil && !errors.Is(err, repository.ErrStatusConflict) {
		logJSON(map[string]any{"level": "error", "msg": "mark_failed", "document_id": doc.ID, "error": err.Error()})
	}
	logJSON(map[string]any{
		"level":       "warn",
		"msg":         "update_step_failed",
		"document_id": doc.ID,
		"step":        step,
	})
}

// discard removes a blob best-effort; a dangling object is preferable to a
// failed request.
func (s *documentService) discard(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		logJSON(map[string]any{"level": "warn", "msg": "blob_discard_failed", "storage_key": key, "error": err.Error()})
	}
}

func (s *documentService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if doc.Status != model.StatusMetadataRegistered && doc.Status != model.StatusFailed {
		return ErrNotFound
	}

	// Metadata first: a phantom document that is deleted but still listed is
	// worse than an unreferenced blob.
	if err := s.meta.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete metadata: %w", err)
	}
	s.discard(ctx, doc.StorageKey)

	if err := s.repo.SetStatus(ctx, doc.ID, doc.Status, model.StatusDeleted); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return ErrNotFound
		}
		return fmt.Errorf("mark deleted: %w", err)
	}
	doc.Status = model.StatusDeleted

	s.publish(ctx, model.EventDocumentDeleted, doc)
	return nil
}

// List returns paginated visible documents without exposing repository types.
func (s *documentService) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, model.StatusMetadataRegistered, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

// EvictExpired garbage-collects abandoned ledger entries.
func (s *documentService) EvictExpired(ctx context.Context) (int64, error) {
	return s.ledger.Evict(ctx, nowFunc().UTC())
}

// publish announces a lifecycle transition. Failure to publish never fails
// the request; it is logged for out-of-band reconciliation.
func (s *documentService) publish(ctx context.Context, typ string, doc *model.Document) {
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	ev := &model.Event{
		ID:         uuid.New().String(),
		Type:       typ,
		DocumentID: doc.ID,
		StorageKey: doc.StorageKey,
		Status:     doc.Status,
		Version:    doc.Version,
		OccurredAt: nowFunc().UTC(),
	}
	if err := s.events.Publish(pctx, ev); err != nil {
		logJSON(map[string]any{
			"level":       "error",
			"msg":         "event_publish_failed",
			"event_type":  typ,
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}
}

func logJSON(data map[string]any) {
	data["ts"] = nowFunc().UTC().Format(time.RFC3339Nano)
	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal log entry: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
