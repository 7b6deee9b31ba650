package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"legiseye/internal/ai"
	"legiseye/internal/logging"
	"legiseye/internal/mail"
	"legiseye/internal/model"
	"legiseye/internal/repository"
	"legiseye/internal/retrieval"
	"legiseye/internal/vectorindex"
)

const embeddingBatchSize = 10

// AnalysisCache is the subset of cache.AnalysisCache the services use.
type AnalysisCache interface {
	Get(ctx context.Context, documentID uint) (*model.DocumentAnalysis, error)
	Set(ctx context.Context, analysis *model.DocumentAnalysis) error
	GetTranslation(ctx context.Context, documentID uint, lang string) (*model.DocumentAnalysis, error)
	SetTranslation(ctx context.Context, lang string, analysis *model.DocumentAnalysis) error
	Invalidate(ctx context.Context, documentID uint) error
}

type AnalysisServiceConfig struct {
	MaxChars int
	// BaseURL is the web app address used in email links.
	BaseURL string
}

// AnalysisService produces the structured analysis of a document and indexes
// its chunks for chat retrieval.
type AnalysisService struct {
	docRepo      *repository.DocumentRepository
	analysisRepo *repository.AnalysisRepository
	chunkRepo    *repository.ChunkRepository
	userRepo     *repository.UserRepository
	completer    ai.Completer
	embedder     ai.Embedder
	index        vectorindex.Index
	cache        AnalysisCache
	notifier     *NotificationService
	mailer       *Mailer
	cfg          AnalysisServiceConfig
	logger       *zap.Logger
}

func NewAnalysisService(
	docRepo *repository.DocumentRepository,
	analysisRepo *repository.AnalysisRepository,
	chunkRepo *repository.ChunkRepository,
	userRepo *repository.UserRepository,
	completer ai.Completer,
	embedder ai.Embedder,
	index vectorindex.Index,
	cache AnalysisCache,
	notifier *NotificationService,
	mailer *Mailer,
	cfg AnalysisServiceConfig,
	logger *zap.Logger,
) *AnalysisService {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 60000
	}
	return &AnalysisService{
		docRepo:      docRepo,
		analysisRepo: analysisRepo,
		chunkRepo:    chunkRepo,
		userRepo:     userRepo,
		completer:    completer,
		embedder:     embedder,
		index:        index,
		cache:        cache,
		notifier:     notifier,
		mailer:       mailer,
		cfg:          cfg,
		logger:       logging.OrNop(logger),
	}
}

// Analyze runs the full pipeline for one document. The document ends up
// analyzed or failed; the returned error mirrors the failure.
func (s *AnalysisService) Analyze(ctx context.Context, documentID uint) error {
	doc, err := s.docRepo.GetByID(documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	if err := s.docRepo.UpdateStatus(doc.ID, model.DocumentStatusProcessing, ""); err != nil {
		return err
	}

	analysis, err := s.run(ctx, doc)
	if err != nil {
		s.logger.Error("document analysis failed", zap.Uint("document_id", doc.ID), zap.Error(err))
		if statusErr := s.docRepo.UpdateStatus(doc.ID, model.DocumentStatusFailed, err.Error()); statusErr != nil {
			s.logger.Error("mark document failed", zap.Uint("document_id", doc.ID), zap.Error(statusErr))
		}
		s.notifier.Notify(model.Notification{
			UserID:     doc.OwnerID,
			Type:       model.NotifyAnalysisFailed,
			Title:      fmt.Sprintf("Analysis of %q failed", doc.Name),
			Body:       truncateRunes(err.Error(), 500),
			DocumentID: uintPtr(doc.ID),
		})
		return err
	}

	if err := s.docRepo.UpdateStatus(doc.ID, model.DocumentStatusAnalyzed, ""); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, analysis); err != nil {
			s.logger.Warn("cache analysis failed", zap.Uint("document_id", doc.ID), zap.Error(err))
		}
	}
	s.notifier.Notify(model.Notification{
		UserID:     doc.OwnerID,
		Type:       model.NotifyAnalysisReady,
		Title:      fmt.Sprintf("Analysis of %q is ready", doc.Name),
		Body:       truncateRunes(analysis.Summary, 500),
		DocumentID: uintPtr(doc.ID),
	})
	s.emailOwner(ctx, doc, analysis)
	return nil
}

func (s *AnalysisService) run(ctx context.Context, doc *model.Document) (*model.DocumentAnalysis, error) {
	text := strings.TrimSpace(string(doc.Text))
	if text == "" {
		return nil, ErrEmptyDocument
	}

	reply, err := s.completer.Complete(ctx, []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: analysisSystemPrompt},
		{Role: ai.RoleUser, Content: "Document:\n\n" + truncateRunes(text, s.cfg.MaxChars)},
	})
	if err != nil {
		return nil, fmt.Errorf("llm analysis failed: %w", err)
	}
	analysis, err := parseAnalysis(reply)
	if err != nil {
		return nil, err
	}
	analysis.DocumentID = doc.ID
	analysis.Model = s.completer.Model()
	if err := s.analysisRepo.Save(analysis); err != nil {
		return nil, err
	}

	if err := s.indexChunks(ctx, doc, text); err != nil {
		return nil, err
	}
	return analysis, nil
}

// indexChunks embeds the document chunks, stores them and pushes them to the
// vector index. Index failures are logged; stored chunks still serve retrieval.
func (s *AnalysisService) indexChunks(ctx context.Context, doc *model.Document, text string) error {
	chunks := retrieval.ChunkText(text, retrieval.DefaultChunkSize, retrieval.DefaultChunkOverlap)
	if len(chunks) == 0 {
		return ErrEmptyDocument
	}

	embeddings := make([][]float32, 0, len(chunks))
	for i := 0; i < len(chunks); i += embeddingBatchSize {
		end := min(i+embeddingBatchSize, len(chunks))
		batch, err := s.embedder.EmbedBatch(ctx, chunks[i:end])
		if err != nil {
			return fmt.Errorf("embed chunks failed: %w", err)
		}
		embeddings = append(embeddings, batch...)
	}
	if len(embeddings) != len(chunks) {
		return errors.New("embedding count mismatch")
	}

	rows := make([]model.DocumentChunk, len(chunks))
	points := make([]vectorindex.Point, len(chunks))
	for i := range chunks {
		rows[i] = model.DocumentChunk{DocumentID: doc.ID, Index: i, Content: chunks[i]}
		rows[i].SetEmbedding(embeddings[i])
		points[i] = vectorindex.Point{
			DocumentID: doc.ID,
			ChunkIndex: i,
			OwnerID:    doc.OwnerID,
			Content:    chunks[i],
			Vector:     embeddings[i],
		}
	}
	if err := s.chunkRepo.ReplaceForDocument(doc.ID, rows); err != nil {
		return err
	}

	if s.index != nil {
		if err := s.index.DeleteByDocument(ctx, doc.ID); err != nil {
			s.logger.Warn("clear vector points failed", zap.Uint("document_id", doc.ID), zap.Error(err))
		}
		if err := s.index.Upsert(ctx, points); err != nil {
			s.logger.Warn("vector upsert failed, stored chunks remain searchable",
				zap.Uint("document_id", doc.ID),
				zap.String("index", s.index.Name()),
				zap.Error(err))
		}
	}
	return nil
}

func (s *AnalysisService) emailOwner(ctx context.Context, doc *model.Document, analysis *model.DocumentAnalysis) {
	if s.mailer == nil {
		return
	}
	owner, err := s.userRepo.GetByID(doc.OwnerID)
	if err != nil || owner == nil {
		return
	}
	msg, err := mail.AnalysisReadyMessage(mail.AnalysisReadyData{
		To:           owner.Email,
		UserName:     displayName(owner),
		DocumentName: doc.Name,
		DocumentType: analysis.DocumentType,
		RiskScore:    analysis.RiskScore,
		DocumentURL:  fmt.Sprintf("%s/documents/%d", strings.TrimRight(s.cfg.BaseURL, "/"), doc.ID),
	})
	if err != nil {
		s.logger.Warn("render analysis email failed", zap.Error(err))
		return
	}
	s.mailer.Deliver(ctx, msg)
}

func displayName(u *model.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
