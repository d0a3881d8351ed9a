package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"docuchat/internal/chunker"
	"docuchat/internal/model"
)

var (
	ErrNotPDF            = errors.New("only PDF files are allowed")
	ErrDuplicateFilename = errors.New("document with this filename already exists")
)

// DocumentRepo is the slice of the document repository the service uses.
type DocumentRepo interface {
	Create(doc *model.Document) error
	List() ([]model.Document, error)
	ExistsByFilename(filename string) (bool, error)
	GetByFilename(filename string) (*model.Document, error)
	DeleteByID(id uint) error
	DeleteAll() ([]model.Document, error)
}

// VectorIndex is the write side of the chunk index.
type VectorIndex interface {
	AddDocument(ctx context.Context, chunks []chunker.Chunk) error
	DeleteDocument(ctx context.Context, source string) error
	DeleteAll() error
}

// FileStore keeps the raw uploaded bytes.
type FileStore interface {
	Save(filename string, r io.Reader) (string, error)
	Exists(filename string) bool
	Remove(filename string) error
	Path(filename string) string
}

// TextExtractor turns a stored file into plain text.
type TextExtractor func(path string) (string, error)

type DocumentService struct {
	docRepo DocumentRepo
	index   VectorIndex
	files   FileStore
	extract TextExtractor
	chunks  *chunker.Chunker
}

func NewDocumentService(docRepo DocumentRepo, index VectorIndex, files FileStore, extract TextExtractor, chunks *chunker.Chunker) *DocumentService {
	return &DocumentService{
		docRepo: docRepo,
		index:   index,
		files:   files,
		extract: extract,
		chunks:  chunks,
	}
}

// UploadFile is one file of an upload batch.
type UploadFile struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// UploadFailure itemizes one rejected or failed file.
type UploadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// UploadResult reports the batch outcome per file; a failure of one file
// never aborts the others.
type UploadResult struct {
	Successful []model.Document `json:"successful_uploads"`
	Failed     []UploadFailure  `json:"failed_uploads"`
}

// Upload validates, stores, and indexes a batch of PDFs. Validation and the
// Document row happen up front; the chunk-and-embed pipelines then run
// concurrently, one goroutine per file. A file that fails anywhere rolls back
// its own Document row, file, and index entries only.
func (s *DocumentService) Upload(ctx context.Context, files []UploadFile) (*UploadResult, error) {
	result := &UploadResult{}

	type pending struct {
		doc  *model.Document
		path string
	}
	var accepted []pending

	for _, f := range files {
		filename := filepath.Base(strings.TrimSpace(f.Filename))
		if filename == "" || filename == "." {
			result.Failed = append(result.Failed, UploadFailure{Filename: f.Filename, Error: "missing filename"})
			continue
		}
		if f.ContentType != "application/pdf" {
			result.Failed = append(result.Failed, UploadFailure{Filename: filename, Error: ErrNotPDF.Error()})
			continue
		}
		exists, err := s.docRepo.ExistsByFilename(filename)
		if err != nil {
			return nil, err
		}
		// A file on disk without a row means another owner or unfinished
		// ingestion; never overwrite it.
		if exists || s.files.Exists(filename) {
			result.Failed = append(result.Failed, UploadFailure{Filename: filename, Error: ErrDuplicateFilename.Error()})
			continue
		}

		path, err := s.files.Save(filename, f.Content)
		if err != nil {
			result.Failed = append(result.Failed, UploadFailure{Filename: filename, Error: err.Error()})
			continue
		}

		doc := &model.Document{Filename: filename}
		if err := s.docRepo.Create(doc); err != nil {
			_ = s.files.Remove(filename)
			result.Failed = append(result.Failed, UploadFailure{Filename: filename, Error: err.Error()})
			continue
		}
		accepted = append(accepted, pending{doc: doc, path: path})
	}

	if len(accepted) == 0 {
		return result, nil
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, p := range accepted {
		wg.Add(1)
		go func(p pending) {
			defer wg.Done()
			if err := s.ingest(ctx, p.doc.Filename, p.path); err != nil {
				log.Warn().Err(err).Str("filename", p.doc.Filename).Msg("document ingestion failed, rolling back")
				s.rollback(ctx, p.doc)
				mu.Lock()
				result.Failed = append(result.Failed, UploadFailure{Filename: p.doc.Filename, Error: err.Error()})
				mu.Unlock()
				return
			}
			mu.Lock()
			result.Successful = append(result.Successful, *p.doc)
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	return result, nil
}

// ingest runs the chunk-and-embed pipeline for one stored file. The index
// write is atomic per document, so a failure here leaves no partial chunks.
func (s *DocumentService) ingest(ctx context.Context, filename, path string) error {
	text, err := s.extract(path)
	if err != nil {
		return &chunker.ChunkingError{Filename: filename, Err: err}
	}
	chunks, err := s.chunks.Split(filename, text)
	if err != nil {
		return err
	}
	if err := s.index.AddDocument(ctx, chunks); err != nil {
		return err
	}
	log.Info().Str("filename", filename).Int("chunks", len(chunks)).Msg("document indexed")
	return nil
}

func (s *DocumentService) rollback(ctx context.Context, doc *model.Document) {
	if err := s.docRepo.DeleteByID(doc.ID); err != nil {
		log.Error().Err(err).Str("filename", doc.Filename).Msg("rollback of document row failed")
	}
	if err := s.files.Remove(doc.Filename); err != nil {
		log.Error().Err(err).Str("filename", doc.Filename).Msg("rollback of stored file failed")
	}
	if err := s.index.DeleteDocument(ctx, doc.Filename); err != nil {
		log.Error().Err(err).Str("filename", doc.Filename).Msg("rollback of index entries failed")
	}
}

func (s *DocumentService) List() ([]model.Document, error) {
	return s.docRepo.List()
}

// DeleteAll purges every document: index first (atomic to in-flight
// searches), then the rows, then the stored files. Returns what was removed.
func (s *DocumentService) DeleteAll(ctx context.Context) ([]model.Document, error) {
	if err := s.index.DeleteAll(); err != nil {
		return nil, err
	}
	docs, err := s.docRepo.DeleteAll()
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if err := s.files.Remove(doc.Filename); err != nil {
			log.Warn().Err(err).Str("filename", doc.Filename).Msg("remove stored file failed")
		}
	}
	log.Info().Int("documents", len(docs)).Msg("document collection purged")
	return docs, nil
}

// Delete removes a single document: its index entries, its row, and its
// file. Past interactions keep their usage links as historical record.
func (s *DocumentService) Delete(ctx context.Context, filename string) error {
	filename = filepath.Base(filename)
	doc, err := s.docRepo.GetByFilename(filename)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document %s: %w", filename, ErrDocumentNotFound)
	}
	if err := s.index.DeleteDocument(ctx, filename); err != nil {
		return err
	}
	if err := s.docRepo.DeleteByID(doc.ID); err != nil {
		return err
	}
	return s.files.Remove(filename)
}
