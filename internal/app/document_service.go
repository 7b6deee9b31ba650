package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"legiseye/internal/access"
	"legiseye/internal/highlight"
	"legiseye/internal/jobs"
	"legiseye/internal/logging"
	"legiseye/internal/model"
	"legiseye/internal/pkg/pdfextract"
	"legiseye/internal/repository"
	"legiseye/internal/vectorindex"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeText = "text/plain"
)

// Analyzer runs document analysis inline. *AnalysisService implements it.
type Analyzer interface {
	Analyze(ctx context.Context, documentID uint) error
}

type DocumentServiceConfig struct {
	StorageDir     string
	MaxUploadBytes int64
}

type DocumentService struct {
	access       documentAccess
	docRepo      *repository.DocumentRepository
	analysisRepo *repository.AnalysisRepository
	memberRepo   *repository.MemberRepository
	index        vectorindex.Index
	cache        AnalysisCache
	analyzer     Analyzer
	queue        Publisher
	notifier     *NotificationService
	cfg          DocumentServiceConfig
	logger       *zap.Logger
}

func NewDocumentService(
	docRepo *repository.DocumentRepository,
	analysisRepo *repository.AnalysisRepository,
	shareRepo *repository.ShareRepository,
	memberRepo *repository.MemberRepository,
	index vectorindex.Index,
	cache AnalysisCache,
	analyzer Analyzer,
	queue Publisher,
	notifier *NotificationService,
	cfg DocumentServiceConfig,
	logger *zap.Logger,
) *DocumentService {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = "data/uploads"
	}
	return &DocumentService{
		access:       documentAccess{docRepo: docRepo, shareRepo: shareRepo},
		docRepo:      docRepo,
		analysisRepo: analysisRepo,
		memberRepo:   memberRepo,
		index:        index,
		cache:        cache,
		analyzer:     analyzer,
		queue:        queue,
		notifier:     notifier,
		cfg:          cfg,
		logger:       logging.OrNop(logger),
	}
}

type UploadInput struct {
	UserID   uint
	FileName string
	// Name is the display name; FileName is used when empty.
	Name   string
	TeamID uint
	Data   []byte
}

// DocumentDetail is a document with everything the viewer needs.
type DocumentDetail struct {
	Document *model.Document         `json:"document"`
	Role     string                  `json:"role"`
	Analysis *model.DocumentAnalysis `json:"analysis,omitempty"`
	Pages    []model.DocumentPage    `json:"pages,omitempty"`
}

// PageHighlights holds glossary term spans for one page.
type PageHighlights struct {
	Page  int              `json:"page"`
	Spans []highlight.Span `json:"spans"`
}

func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*model.Document, error) {
	if input.UserID == 0 || len(input.Data) == 0 {
		return nil, ErrInvalidInput
	}
	if int64(len(input.Data)) > s.cfg.MaxUploadBytes {
		return nil, ErrFileTooLarge
	}

	contentType, pages, err := extractPages(input.FileName, input.Data)
	if err != nil {
		return nil, err
	}
	text := joinPages(pages)
	if text == "" {
		return nil, ErrEmptyDocument
	}

	if input.TeamID != 0 {
		member, err := s.memberRepo.Get(input.TeamID, input.UserID)
		if err != nil {
			return nil, err
		}
		if member == nil {
			return nil, ErrTeamNotFound
		}
		if !access.Can(member.Role, access.UploadToTeam) {
			return nil, ErrForbidden
		}
	}

	originalName := filepath.Base(strings.TrimSpace(input.FileName))
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = originalName
	}
	path, err := s.store(input.FileName, input.Data)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		OwnerID:      input.UserID,
		Name:         truncateRunes(name, 256),
		OriginalName: truncateRunes(originalName, 256),
		ContentType:  contentType,
		SizeBytes:    int64(len(input.Data)),
		StoragePath:  path,
		PageCount:    len(pages),
		Status:       model.DocumentStatusPending,
		Text:         model.LongText(text),
	}
	var shares []model.DocumentShare
	if input.TeamID != 0 {
		shares = append(shares, model.DocumentShare{TeamID: input.TeamID, SharedByID: input.UserID})
	}
	if err := s.docRepo.Create(doc, pages, shares...); err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	if input.TeamID != 0 {
		s.notifyShared(doc, input.TeamID, input.UserID)
	}

	s.enqueueAnalysis(ctx, doc.ID)

	if fresh, err := s.docRepo.GetByID(doc.ID); err == nil && fresh != nil {
		return fresh, nil
	}
	return doc, nil
}

func (s *DocumentService) List(userID uint, filter repository.DocumentFilter) ([]model.Document, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	if filter.TeamID != 0 {
		member, err := s.memberRepo.Get(filter.TeamID, userID)
		if err != nil {
			return nil, err
		}
		if member == nil {
			return nil, ErrTeamNotFound
		}
	}
	return s.docRepo.ListAccessible(userID, filter)
}

func (s *DocumentService) Get(ctx context.Context, userID, documentID uint, includePages bool) (*DocumentDetail, error) {
	doc, role, err := s.access.require(documentID, userID, access.ViewDocument)
	if err != nil {
		return nil, err
	}
	detail := &DocumentDetail{Document: doc, Role: role}
	if doc.Status == model.DocumentStatusAnalyzed {
		if detail.Analysis, err = s.loadAnalysis(ctx, doc.ID); err != nil {
			return nil, err
		}
	}
	if includePages {
		if detail.Pages, err = s.docRepo.ListPages(doc.ID, 0); err != nil {
			return nil, err
		}
	}
	return detail, nil
}

// File returns the document whose StoragePath can be served to userID.
func (s *DocumentService) File(userID, documentID uint) (*model.Document, error) {
	doc, _, err := s.access.require(documentID, userID, access.ViewDocument)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(doc.StoragePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("stored file missing", zap.Uint("document_id", doc.ID), zap.String("path", doc.StoragePath))
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("stat stored file failed: %w", err)
	}
	return doc, nil
}

func (s *DocumentService) Rename(userID, documentID uint, name string) (*model.Document, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > 256 {
		return nil, ErrInvalidInput
	}
	doc, _, err := s.access.require(documentID, userID, access.ManageDocument)
	if err != nil {
		return nil, err
	}
	if err := s.docRepo.Rename(doc.ID, name); err != nil {
		return nil, err
	}
	doc.Name = name
	return doc, nil
}

// Delete removes the document with its derived data, vectors and stored file.
// Allowed for the document owner and admins of a team it is shared with.
func (s *DocumentService) Delete(ctx context.Context, userID, documentID uint) error {
	doc, _, err := s.access.require(documentID, userID, access.DeleteTeamDocument)
	if err != nil {
		return err
	}
	if err := s.docRepo.Delete(doc.ID); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.DeleteByDocument(ctx, doc.ID); err != nil {
			s.logger.Warn("delete vector points failed", zap.Uint("document_id", doc.ID), zap.Error(err))
		}
	}
	s.invalidate(ctx, doc.ID)
	if err := os.Remove(doc.StoragePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("remove stored file failed", zap.Uint("document_id", doc.ID), zap.Error(err))
	}
	return nil
}

func (s *DocumentService) Reanalyze(ctx context.Context, userID, documentID uint) (*model.Document, error) {
	doc, _, err := s.access.require(documentID, userID, access.ManageDocument)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, doc.ID)
	if err := s.docRepo.UpdateStatus(doc.ID, model.DocumentStatusPending, ""); err != nil {
		return nil, err
	}
	s.enqueueAnalysis(ctx, doc.ID)
	fresh, err := s.docRepo.GetByID(doc.ID)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, ErrDocumentNotFound
	}
	return fresh, nil
}

// Highlights returns glossary term spans for page, or every page when page is 0.
func (s *DocumentService) Highlights(ctx context.Context, userID, documentID uint, page int) ([]PageHighlights, error) {
	if page < 0 {
		return nil, ErrInvalidInput
	}
	doc, _, err := s.access.require(documentID, userID, access.ViewDocument)
	if err != nil {
		return nil, err
	}
	if doc.Status != model.DocumentStatusAnalyzed {
		return nil, ErrAnalysisNotReady
	}
	analysis, err := s.loadAnalysis(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if analysis == nil {
		return nil, ErrAnalysisNotReady
	}
	terms := make([]string, 0, len(analysis.GlossaryTerms))
	for _, g := range analysis.GlossaryTerms {
		terms = append(terms, g.Term)
	}

	pages, err := s.docRepo.ListPages(doc.ID, page)
	if err != nil {
		return nil, err
	}
	if page > 0 && len(pages) == 0 {
		return nil, ErrInvalidInput
	}
	out := make([]PageHighlights, 0, len(pages))
	for _, p := range pages {
		spans := highlight.Find(string(p.Text), terms)
		if spans == nil {
			spans = []highlight.Span{}
		}
		out = append(out, PageHighlights{Page: p.Number, Spans: spans})
	}
	return out, nil
}

// loadAnalysis reads the analysis through the cache. Returns nil when none exists.
func (s *DocumentService) loadAnalysis(ctx context.Context, documentID uint) (*model.DocumentAnalysis, error) {
	return loadAnalysis(ctx, s.analysisRepo, s.cache, s.logger, documentID)
}

func loadAnalysis(
	ctx context.Context,
	repo *repository.AnalysisRepository,
	cache AnalysisCache,
	logger *zap.Logger,
	documentID uint,
) (*model.DocumentAnalysis, error) {
	if cache != nil {
		cached, err := cache.Get(ctx, documentID)
		if err != nil {
			logger.Warn("read analysis cache failed", zap.Uint("document_id", documentID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}
	analysis, err := repo.GetByDocumentID(documentID)
	if err != nil || analysis == nil {
		return analysis, err
	}
	if cache != nil {
		if err := cache.Set(ctx, analysis); err != nil {
			logger.Warn("write analysis cache failed", zap.Uint("document_id", documentID), zap.Error(err))
		}
	}
	return analysis, nil
}

// enqueueAnalysis publishes an analysis job and runs it inline when the
// queue is unavailable.
func (s *DocumentService) enqueueAnalysis(ctx context.Context, documentID uint) {
	if s.queue != nil {
		err := s.queue.Publish(ctx, jobs.AnalyzeDocument{DocumentID: documentID})
		if err == nil {
			return
		}
		s.logger.Warn("enqueue analysis failed, analyzing inline", zap.Uint("document_id", documentID), zap.Error(err))
	}
	if s.analyzer == nil {
		return
	}
	if err := s.analyzer.Analyze(ctx, documentID); err != nil {
		s.logger.Warn("inline analysis failed", zap.Uint("document_id", documentID), zap.Error(err))
	}
}

func (s *DocumentService) invalidate(ctx context.Context, documentID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, documentID); err != nil {
		s.logger.Warn("invalidate analysis cache failed", zap.Uint("document_id", documentID), zap.Error(err))
	}
}

func (s *DocumentService) notifyShared(doc *model.Document, teamID, actorID uint) {
	userIDs, err := s.memberRepo.ListUserIDs(teamID)
	if err != nil {
		s.logger.Warn("list team members failed", zap.Uint("team_id", teamID), zap.Error(err))
		return
	}
	s.notifier.NotifyAll(userIDs, actorID, model.Notification{
		Type:       model.NotifyDocumentShared,
		Title:      fmt.Sprintf("%q was shared with your team", doc.Name),
		DocumentID: uintPtr(doc.ID),
		TeamID:     uintPtr(teamID),
	})
}

func (s *DocumentService) store(fileName string, data []byte) (string, error) {
	if err := os.MkdirAll(s.cfg.StorageDir, 0o755); err != nil {
		return "", fmt.Errorf("create storage dir failed: %w", err)
	}
	path := filepath.Join(s.cfg.StorageDir, uuid.NewString()+strings.ToLower(filepath.Ext(fileName)))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("store upload failed: %w", err)
	}
	return path, nil
}

// extractPages detects the file type and returns its text per page.
func extractPages(fileName string, data []byte) (string, []string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch {
	case pdfextract.IsPDF(data):
		pages, err := pdfextract.ExtractPages(data)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
		}
		return contentTypePDF, pages, nil
	case ext == ".pdf":
		return "", nil, ErrUnsupportedFile
	case ext == ".txt":
		if !utf8.Valid(data) {
			return "", nil, ErrUnsupportedFile
		}
		return contentTypeText, []string{strings.TrimSpace(string(data))}, nil
	default:
		return "", nil, ErrUnsupportedFile
	}
}

func joinPages(pages []string) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}
