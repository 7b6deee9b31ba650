package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"legiseye/internal/access"
	"legiseye/internal/ai"
	"legiseye/internal/logging"
	"legiseye/internal/model"
	"legiseye/internal/repository"
	"legiseye/internal/retrieval"
	"legiseye/internal/translate"
)

const (
	snippetRunes  = 200
	emptyReply    = "The model returned an empty response."
	noContextText = "(no relevant excerpts were found in the document)"

	// historyWindow matches the repository's largest page.
	historyWindow       = 200
	defaultHistoryLimit = 100
)

// HistoryCache caches a user's chat history per document.
type HistoryCache interface {
	GetHistory(ctx context.Context, documentID, userID uint) ([]model.ChatMessage, bool, error)
	SetHistory(ctx context.Context, documentID, userID uint, messages []model.ChatMessage) error
	DeleteHistory(ctx context.Context, documentID, userID uint) error
	MarkDirty(ctx context.Context, documentID, userID uint) error
	IsDirty(ctx context.Context, documentID, userID uint) (bool, error)
}

// ContextRetriever finds document context for a question. *retrieval.Retriever implements it.
type ContextRetriever interface {
	Retrieve(ctx context.Context, documentID uint, query string) (*retrieval.Result, error)
}

type ChatService struct {
	access       documentAccess
	userRepo     *repository.UserRepository
	analysisRepo *repository.AnalysisRepository
	messageRepo  *repository.ChatMessageRepository
	retriever    ContextRetriever
	completer    ai.Completer
	publisher    Publisher
	historyCache HistoryCache
	cache        AnalysisCache
	maxHistory   int
	logger       *zap.Logger
	now          func() time.Time
}

type SendMessageInput struct {
	UserID     uint
	DocumentID uint
	Content    string
	// Language overrides the user's preferred answer language.
	Language string
}

// Source is a document excerpt that backed an answer.
type Source struct {
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	Snippet    string  `json:"snippet"`
}

type ChatReply struct {
	Messages []model.ChatMessage `json:"messages"`
	Sources  []Source            `json:"sources"`
	Strategy string              `json:"strategy"`
}

func NewChatService(
	docRepo *repository.DocumentRepository,
	shareRepo *repository.ShareRepository,
	userRepo *repository.UserRepository,
	analysisRepo *repository.AnalysisRepository,
	messageRepo *repository.ChatMessageRepository,
	retriever ContextRetriever,
	completer ai.Completer,
	publisher Publisher,
	historyCache HistoryCache,
	cache AnalysisCache,
	maxHistory int,
	logger *zap.Logger,
) *ChatService {
	if maxHistory <= 0 {
		maxHistory = 10
	}
	return &ChatService{
		access:       documentAccess{docRepo: docRepo, shareRepo: shareRepo},
		userRepo:     userRepo,
		analysisRepo: analysisRepo,
		messageRepo:  messageRepo,
		retriever:    retriever,
		completer:    completer,
		publisher:    publisher,
		historyCache: historyCache,
		cache:        cache,
		maxHistory:   maxHistory,
		logger:       logging.OrNop(logger),
		now:          time.Now,
	}
}

type preparedChat struct {
	prompt    []ai.ChatMessage
	retrieved *retrieval.Result
	user      model.ChatMessage
}

func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*ChatReply, error) {
	p, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	s.persist(ctx, p.user)

	answer, err := s.completer.Complete(ctx, p.prompt)
	if err != nil {
		return nil, fmt.Errorf("llm chat failed: %w", err)
	}
	return s.finish(ctx, p, answer), nil
}

// StreamMessage is SendMessage with the answer delivered through onChunk as
// it is generated.
func (s *ChatService) StreamMessage(ctx context.Context, input SendMessageInput, onChunk func(string) error) (*ChatReply, error) {
	p, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	s.persist(ctx, p.user)

	answer, err := s.completer.StreamComplete(ctx, p.prompt, onChunk)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, p, answer), nil
}

func (s *ChatService) GetHistory(ctx context.Context, userID, documentID uint, limit int) ([]model.ChatMessage, error) {
	if _, _, err := s.access.require(documentID, userID, access.ViewDocument); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > historyWindow {
		limit = defaultHistoryLimit
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, documentID, userID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, documentID, userID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	// The cache always holds the full window; limit is applied on the way out.
	messages, err := s.messageRepo.ListRecent(documentID, userID, historyWindow)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, documentID, userID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, documentID, userID, messages)
		}
	}
	return trimMessages(messages, limit), nil
}

func (s *ChatService) ClearHistory(ctx context.Context, userID, documentID uint) error {
	if _, _, err := s.access.require(documentID, userID, access.ViewDocument); err != nil {
		return err
	}
	if err := s.messageRepo.DeleteByDocumentUser(documentID, userID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, documentID, userID)
	}
	return nil
}

func (s *ChatService) prepare(ctx context.Context, input SendMessageInput) (*preparedChat, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}
	doc, _, err := s.access.require(input.DocumentID, input.UserID, access.ViewDocument)
	if err != nil {
		return nil, err
	}

	language, err := s.answerLanguage(input)
	if err != nil {
		return nil, err
	}
	analysis, err := loadAnalysis(ctx, s.analysisRepo, s.cache, s.logger, doc.ID)
	if err != nil {
		return nil, err
	}
	recent, err := s.messageRepo.ListRecent(doc.ID, input.UserID, s.maxHistory)
	if err != nil {
		return nil, err
	}
	retrieved, err := s.retriever.Retrieve(ctx, doc.ID, content)
	if err != nil {
		return nil, err
	}

	prompt := make([]ai.ChatMessage, 0, len(recent)+2)
	prompt = append(prompt, ai.ChatMessage{Role: ai.RoleSystem, Content: systemPrompt(doc, analysis, language)})
	for _, m := range recent {
		role := m.Role
		if role != ai.RoleAssistant {
			role = ai.RoleUser
		}
		prompt = append(prompt, ai.ChatMessage{Role: role, Content: m.Content})
	}
	prompt = append(prompt, ai.ChatMessage{Role: ai.RoleUser, Content: userPrompt(retrieved.Context, content)})

	return &preparedChat{
		prompt:    prompt,
		retrieved: retrieved,
		user: model.ChatMessage{
			DocumentID: doc.ID,
			UserID:     input.UserID,
			Role:       model.ChatRoleUser,
			Content:    content,
			CreatedAt:  s.now(),
		},
	}, nil
}

func (s *ChatService) finish(ctx context.Context, p *preparedChat, answer string) *ChatReply {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = emptyReply
	}
	assistant := model.ChatMessage{
		DocumentID: p.user.DocumentID,
		UserID:     p.user.UserID,
		Role:       model.ChatRoleAssistant,
		Content:    answer,
		CreatedAt:  s.now(),
	}
	s.persist(ctx, assistant)

	sources := make([]Source, 0, len(p.retrieved.Matches))
	for _, m := range p.retrieved.Matches {
		sources = append(sources, Source{
			ChunkIndex: m.ChunkIndex,
			Score:      m.Score,
			Snippet:    truncateRunes(m.Content, snippetRunes),
		})
	}
	return &ChatReply{
		Messages: []model.ChatMessage{p.user, assistant},
		Sources:  sources,
		Strategy: p.retrieved.Strategy,
	}
}

// persist hands the message to the persist worker, inserting directly when
// the queue is absent or rejects it.
func (s *ChatService) persist(ctx context.Context, msg model.ChatMessage) {
	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, msg.DocumentID, msg.UserID)
		_ = s.historyCache.DeleteHistory(ctx, msg.DocumentID, msg.UserID)
	}
	if s.publisher != nil {
		err := s.publisher.Publish(ctx, msg)
		if err == nil {
			return
		}
		s.logger.Warn("enqueue chat message failed, inserting directly",
			zap.Uint("document_id", msg.DocumentID), zap.Error(err))
	}
	if err := s.messageRepo.Create(&msg); err != nil {
		s.logger.Error("persist chat message failed", zap.Uint("document_id", msg.DocumentID), zap.Error(err))
	}
}

func (s *ChatService) answerLanguage(input SendMessageInput) (string, error) {
	if lang := strings.ToLower(strings.TrimSpace(input.Language)); lang != "" {
		if !translate.IsSupported(lang) {
			return "", ErrUnsupportedLanguage
		}
		return lang, nil
	}
	user, err := s.userRepo.GetByID(input.UserID)
	if err != nil {
		return "", err
	}
	if user != nil && user.Language != "" {
		return user.Language, nil
	}
	return "en", nil
}

func systemPrompt(doc *model.Document, analysis *model.DocumentAnalysis, language string) string {
	var b strings.Builder
	b.WriteString("You are LegisEye, an assistant that explains legal documents in plain language.\n")
	b.WriteString("Answer only from the document excerpts and the summary below. ")
	b.WriteString("If they do not contain the answer, say that the document does not cover it. ")
	b.WriteString("Do not give legal advice beyond what the document states.\n")
	fmt.Fprintf(&b, "Answer in the language with ISO code %q.\n\n", language)
	fmt.Fprintf(&b, "Document: %s\n", doc.Name)
	if analysis != nil {
		if analysis.DocumentType != "" {
			fmt.Fprintf(&b, "Type: %s\n", analysis.DocumentType)
		}
		fmt.Fprintf(&b, "Summary: %s\n", analysis.Summary)
	}
	return b.String()
}

func userPrompt(contextText, question string) string {
	if strings.TrimSpace(contextText) == "" {
		contextText = noContextText
	}
	return "Document excerpts:\n" + contextText + "\n\nQuestion: " + question
}

func trimMessages(messages []model.ChatMessage, limit int) []model.ChatMessage {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
