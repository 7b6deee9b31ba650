package app

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"legiseye/internal/ai"
	"legiseye/internal/model"
	"legiseye/internal/platform/database"
	"legiseye/internal/repository"
)

const sampleAnalysisReply = "Here is the analysis:\n```json\n" + `{
  "summary": "A residential lease for twelve months.",
  "document_type": "Lease Agreement",
  "risk_score": 130,
  "key_points": ["Rent is due monthly", "  "],
  "risk_factors": [
    {"title": "Early termination", "description": "Two months of rent as penalty", "severity": "HIGH", "clause": "7.2"},
    {"title": "", "description": ""}
  ],
  "glossary_terms": [
    {"term": "Security Deposit", "definition": "Money held against damage"},
    {"term": "security deposit", "definition": "duplicate"}
  ]
}` + "\n```\nLet me know if you need more."

type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	vector  []float32
	prompts [][]ai.ChatMessage
}

func (f *fakeLLM) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, messages)
	return f.reply, f.err
}

func (f *fakeLLM) StreamComplete(ctx context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
	reply, err := f.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	for _, word := range strings.SplitAfter(reply, " ") {
		if err := onChunk(word); err != nil {
			return "", err
		}
	}
	return reply, nil
}

func (f *fakeLLM) Model() string { return "fake-model" }

func (f *fakeLLM) Embed(context.Context, string) ([]float32, error) {
	return f.vec(), nil
}

func (f *fakeLLM) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, ai.ErrEmptyInput
		}
		out[i] = f.vec()
	}
	return out, nil
}

func (f *fakeLLM) vec() []float32 {
	if f.vector != nil {
		return f.vector
	}
	return []float32{1, 0, 0}
}

func (f *fakeLLM) lastPrompt() []ai.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return nil
	}
	return f.prompts[len(f.prompts)-1]
}

type recordingPublisher struct {
	mu       sync.Mutex
	err      error
	payloads []any
}

func (p *recordingPublisher) Publish(_ context.Context, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.payloads = append(p.payloads, payload)
	return nil
}

type fixture struct {
	db            *gorm.DB
	users         *repository.UserRepository
	docs          *repository.DocumentRepository
	analyses      *repository.AnalysisRepository
	chunks        *repository.ChunkRepository
	messages      *repository.ChatMessageRepository
	teams         *repository.TeamRepository
	members       *repository.MemberRepository
	invitations   *repository.InvitationRepository
	shares        *repository.ShareRepository
	comments      *repository.CommentRepository
	notifications *repository.NotificationRepository
	notifier      *NotificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New(context.Background(), "sqlite", "file::memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, model.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	notifications := repository.NewNotificationRepository(db)
	return &fixture{
		db:            db,
		users:         repository.NewUserRepository(db),
		docs:          repository.NewDocumentRepository(db),
		analyses:      repository.NewAnalysisRepository(db),
		chunks:        repository.NewChunkRepository(db),
		messages:      repository.NewChatMessageRepository(db),
		teams:         repository.NewTeamRepository(db),
		members:       repository.NewMemberRepository(db),
		invitations:   repository.NewInvitationRepository(db),
		shares:        repository.NewShareRepository(db),
		comments:      repository.NewCommentRepository(db),
		notifications: notifications,
		notifier:      NewNotificationService(notifications, nil),
	}
}

func (f *fixture) user(t *testing.T, name string) *model.User {
	t.Helper()
	u := &model.User{Username: name, Email: name + "@example.com", DisplayName: name, Language: "en", PasswordHash: "x"}
	require.NoError(t, f.users.Create(u))
	return u
}

func (f *fixture) document(t *testing.T, ownerID uint, name, text string) *model.Document {
	t.Helper()
	doc := &model.Document{
		OwnerID:      ownerID,
		Name:         name,
		OriginalName: name + ".txt",
		ContentType:  contentTypeText,
		StoragePath:  t.TempDir() + "/" + name,
		PageCount:    1,
		Status:       model.DocumentStatusPending,
		Text:         model.LongText(text),
	}
	require.NoError(t, f.docs.Create(doc, []string{text}))
	return doc
}

func (f *fixture) team(t *testing.T, ownerID uint, name string) *model.Team {
	t.Helper()
	team := &model.Team{Name: name, OwnerID: ownerID}
	require.NoError(t, f.teams.Create(team))
	return team
}

func (f *fixture) join(t *testing.T, teamID, userID uint, role string) {
	t.Helper()
	require.NoError(t, f.members.Create(&model.TeamMember{TeamID: teamID, UserID: userID, Role: role}))
}

func (f *fixture) share(t *testing.T, documentID, teamID, byID uint) {
	t.Helper()
	_, err := f.shares.Create(&model.DocumentShare{DocumentID: documentID, TeamID: teamID, SharedByID: byID})
	require.NoError(t, err)
}

func (f *fixture) notificationTypes(t *testing.T, userID uint) []string {
	t.Helper()
	list, err := f.notifications.List(userID, false, 0)
	require.NoError(t, err)
	types := make([]string, 0, len(list))
	for _, n := range list {
		types = append(types, n.Type)
	}
	return types
}

func (f *fixture) analysisService(llm *fakeLLM) *AnalysisService {
	return NewAnalysisService(f.docs, f.analyses, f.chunks, f.users, llm, llm, nil, nil, f.notifier, nil,
		AnalysisServiceConfig{BaseURL: "http://app.test"}, nil)
}
