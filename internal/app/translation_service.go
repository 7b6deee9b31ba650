package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"legiseye/internal/access"
	"legiseye/internal/logging"
	"legiseye/internal/model"
	"legiseye/internal/repository"
	"legiseye/internal/translate"
)

// Translator translates texts keeping their order. *translate.Client implements it.
type Translator interface {
	Translate(ctx context.Context, texts []string, source, target string) ([]string, error)
}

type TranslationService struct {
	access       documentAccess
	analysisRepo *repository.AnalysisRepository
	translator   Translator
	cache        AnalysisCache
	logger       *zap.Logger
}

func NewTranslationService(
	docRepo *repository.DocumentRepository,
	shareRepo *repository.ShareRepository,
	analysisRepo *repository.AnalysisRepository,
	translator Translator,
	cache AnalysisCache,
	logger *zap.Logger,
) *TranslationService {
	return &TranslationService{
		access:       documentAccess{docRepo: docRepo, shareRepo: shareRepo},
		analysisRepo: analysisRepo,
		translator:   translator,
		cache:        cache,
		logger:       logging.OrNop(logger),
	}
}

func (s *TranslationService) Translate(ctx context.Context, texts []string, source, target string) ([]string, error) {
	if len(texts) == 0 {
		return nil, ErrInvalidInput
	}
	out, err := s.translator.Translate(ctx, texts, normalizeLang(source), normalizeLang(target))
	if errors.Is(err, translate.ErrUnsupportedLanguage) {
		return nil, ErrUnsupportedLanguage
	}
	return out, err
}

// Languages lists the target language codes translation accepts.
func (s *TranslationService) Languages() []string {
	return translate.SupportedLanguages()
}

// TranslateAnalysis returns the document analysis translated into lang.
func (s *TranslationService) TranslateAnalysis(ctx context.Context, userID, documentID uint, lang string) (*model.DocumentAnalysis, error) {
	lang = normalizeLang(lang)
	if !translate.IsSupported(lang) {
		return nil, ErrUnsupportedLanguage
	}
	doc, _, err := s.access.require(documentID, userID, access.ViewDocument)
	if err != nil {
		return nil, err
	}
	if doc.Status != model.DocumentStatusAnalyzed {
		return nil, ErrAnalysisNotReady
	}

	if s.cache != nil {
		cached, err := s.cache.GetTranslation(ctx, doc.ID, lang)
		if err != nil {
			s.logger.Warn("read translation cache failed", zap.Uint("document_id", doc.ID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	analysis, err := loadAnalysis(ctx, s.analysisRepo, s.cache, s.logger, doc.ID)
	if err != nil {
		return nil, err
	}
	if analysis == nil {
		return nil, ErrAnalysisNotReady
	}

	translated := cloneAnalysis(analysis)
	fields := translatableFields(translated)
	texts := make([]string, len(fields))
	for i, f := range fields {
		texts[i] = *f
	}
	out, err := s.translator.Translate(ctx, texts, "", lang)
	if err != nil {
		return nil, fmt.Errorf("translate analysis failed: %w", err)
	}
	if len(out) != len(fields) {
		return nil, fmt.Errorf("translate analysis failed: got %d texts, want %d", len(out), len(fields))
	}
	for i, f := range fields {
		*f = out[i]
	}

	if s.cache != nil {
		if err := s.cache.SetTranslation(ctx, lang, translated); err != nil {
			s.logger.Warn("write translation cache failed", zap.Uint("document_id", doc.ID), zap.Error(err))
		}
	}
	return translated, nil
}

func cloneAnalysis(a *model.DocumentAnalysis) *model.DocumentAnalysis {
	c := *a
	c.KeyPoints = slices.Clone(a.KeyPoints)
	c.RiskFactors = slices.Clone(a.RiskFactors)
	c.GlossaryTerms = slices.Clone(a.GlossaryTerms)
	return &c
}

// translatableFields points at every non-empty prose field of a. Glossary
// terms stay in the original language so they still match the page text.
func translatableFields(a *model.DocumentAnalysis) []*string {
	fields := make([]*string, 0, 1+len(a.KeyPoints)+2*len(a.RiskFactors)+len(a.GlossaryTerms))
	add := func(p *string) {
		if strings.TrimSpace(*p) != "" {
			fields = append(fields, p)
		}
	}
	add(&a.Summary)
	for i := range a.KeyPoints {
		add(&a.KeyPoints[i])
	}
	for i := range a.RiskFactors {
		add(&a.RiskFactors[i].Title)
		add(&a.RiskFactors[i].Description)
	}
	for i := range a.GlossaryTerms {
		add(&a.GlossaryTerms[i].Definition)
	}
	return fields
}

func normalizeLang(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}
