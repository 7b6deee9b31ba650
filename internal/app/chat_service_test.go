package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legiseye/internal/ai"
	"legiseye/internal/cache"
	"legiseye/internal/model"
	"legiseye/internal/retrieval"
	"legiseye/internal/vectorindex"
)

type stubRetriever struct {
	result *retrieval.Result
}

func (s stubRetriever) Retrieve(context.Context, uint, string) (*retrieval.Result, error) {
	return s.result, nil
}

func newChatService(f *fixture, llm *fakeLLM, retriever ContextRetriever, publisher Publisher, history HistoryCache) *ChatService {
	return NewChatService(f.docs, f.shares, f.users, f.analyses, f.messages, retriever, llm, publisher, history, nil, 4, nil)
}

func TestSendMessageBuildsPromptAndPersists(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	doc := f.document(t, owner.ID, "lease", "text")
	require.NoError(t, f.analyses.Save(&model.DocumentAnalysis{DocumentID: doc.ID, Summary: "A lease.", DocumentType: "Lease"}))
	require.NoError(t, f.messages.Create(&model.ChatMessage{DocumentID: doc.ID, UserID: owner.ID, Role: model.ChatRoleUser, Content: "earlier question"}))

	llm := &fakeLLM{reply: "  Rent is due on the first.  "}
	retriever := stubRetriever{result: &retrieval.Result{
		Strategy: retrieval.StrategyFiltered,
		Matches:  []vectorindex.Match{{DocumentID: doc.ID, ChunkIndex: 3, Content: strings.Repeat("r", 300), Score: 0.9}},
		Context:  "Rent is payable on the first day of each month.",
	}}
	svc := newChatService(f, llm, retriever, nil, nil)

	reply, err := svc.SendMessage(context.Background(), SendMessageInput{
		UserID: owner.ID, DocumentID: doc.ID, Content: " When is rent due? ", Language: "FR",
	})
	require.NoError(t, err)

	require.Len(t, reply.Messages, 2)
	assert.Equal(t, "When is rent due?", reply.Messages[0].Content)
	assert.Equal(t, "Rent is due on the first.", reply.Messages[1].Content)
	assert.Equal(t, retrieval.StrategyFiltered, reply.Strategy)
	require.Len(t, reply.Sources, 1)
	assert.Equal(t, 3, reply.Sources[0].ChunkIndex)
	assert.Len(t, []rune(reply.Sources[0].Snippet), snippetRunes)

	prompt := llm.lastPrompt()
	require.Len(t, prompt, 3)
	assert.Equal(t, ai.RoleSystem, prompt[0].Role)
	assert.Contains(t, prompt[0].Content, "A lease.")
	assert.Contains(t, prompt[0].Content, `"fr"`)
	assert.Equal(t, "earlier question", prompt[1].Content)
	assert.Contains(t, prompt[2].Content, "Rent is payable on the first day")
	assert.Contains(t, prompt[2].Content, "Question: When is rent due?")

	stored, err := f.messages.ListRecent(doc.ID, owner.ID, 0)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestSendMessageUsesQueueWhenAvailable(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	doc := f.document(t, owner.ID, "lease", "text")
	queue := &recordingPublisher{}
	svc := newChatService(f, &fakeLLM{reply: "ok"}, stubRetriever{result: &retrieval.Result{Strategy: retrieval.StrategyNone}}, queue, nil)

	reply, err := svc.SendMessage(context.Background(), SendMessageInput{UserID: owner.ID, DocumentID: doc.ID, Content: "hi"})
	require.NoError(t, err)
	assert.Empty(t, reply.Sources)
	require.Len(t, queue.payloads, 2)
	assert.Equal(t, model.ChatRoleUser, queue.payloads[0].(model.ChatMessage).Role)
	assert.Equal(t, model.ChatRoleAssistant, queue.payloads[1].(model.ChatMessage).Role)

	stored, err := f.messages.ListRecent(doc.ID, owner.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	stranger := f.user(t, "eve")
	doc := f.document(t, owner.ID, "lease", "text")
	svc := newChatService(f, &fakeLLM{reply: "ok"}, stubRetriever{result: &retrieval.Result{}}, nil, nil)

	_, err := svc.SendMessage(context.Background(), SendMessageInput{UserID: owner.ID, DocumentID: doc.ID, Content: "  "})
	assert.ErrorIs(t, err, ErrMessageEmpty)

	_, err = svc.SendMessage(context.Background(), SendMessageInput{UserID: stranger.ID, DocumentID: doc.ID, Content: "hi"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = svc.SendMessage(context.Background(), SendMessageInput{UserID: owner.ID, DocumentID: doc.ID, Content: "hi", Language: "xx"})
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestStreamMessage(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	doc := f.document(t, owner.ID, "lease", "text")
	svc := newChatService(f, &fakeLLM{reply: "one two three"}, stubRetriever{result: &retrieval.Result{}}, nil, nil)

	var chunks []string
	reply, err := svc.StreamMessage(context.Background(), SendMessageInput{UserID: owner.ID, DocumentID: doc.ID, Content: "hi"},
		func(c string) error {
			chunks = append(chunks, c)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, "one two three", strings.Join(chunks, ""))
	assert.Equal(t, "one two three", reply.Messages[1].Content)

	_, err = svc.StreamMessage(context.Background(), SendMessageInput{UserID: owner.ID, DocumentID: doc.ID, Content: "hi"},
		func(string) error { return errors.New("client gone") })
	assert.Error(t, err)
}

func TestHistoryUsesCacheUntilDirty(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	doc := f.document(t, owner.ID, "lease", "text")

	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	history := cache.NewHistoryCache(client, 0, 0)
	svc := newChatService(f, &fakeLLM{reply: "answer"}, stubRetriever{result: &retrieval.Result{}}, nil, history)

	ctx := context.Background()
	_, err := svc.SendMessage(ctx, SendMessageInput{UserID: owner.ID, DocumentID: doc.ID, Content: "q1"})
	require.NoError(t, err)

	dirty, err := history.IsDirty(ctx, doc.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, dirty)

	msgs, err := svc.GetHistory(ctx, owner.ID, doc.ID, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
	_, hit, err := history.GetHistory(ctx, doc.ID, owner.ID)
	require.NoError(t, err)
	assert.False(t, hit)

	mr.FastForward(6 * time.Second)
	msgs, err = svc.GetHistory(ctx, owner.ID, doc.ID, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
	cached, hit, err := history.GetHistory(ctx, doc.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, cached, 2)

	msgs, err = svc.GetHistory(ctx, owner.ID, doc.ID, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "answer", msgs[0].Content)

	require.NoError(t, svc.ClearHistory(ctx, owner.ID, doc.ID))
	msgs, err = svc.GetHistory(ctx, owner.ID, doc.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestHistorySmallLimitDoesNotShrinkCache(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	doc := f.document(t, owner.ID, "lease", "text")
	for _, content := range []string{"q1", "a1", "q2", "a2"} {
		require.NoError(t, f.messages.Create(&model.ChatMessage{DocumentID: doc.ID, UserID: owner.ID, Role: model.ChatRoleUser, Content: content}))
	}

	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	history := cache.NewHistoryCache(client, 0, 0)
	svc := newChatService(f, &fakeLLM{reply: "answer"}, stubRetriever{result: &retrieval.Result{}}, nil, history)

	ctx := context.Background()
	latest, err := svc.GetHistory(ctx, owner.ID, doc.ID, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "a2", latest[0].Content)

	all, err := svc.GetHistory(ctx, owner.ID, doc.ID, 100)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "q1", all[0].Content)

	cached, hit, err := history.GetHistory(ctx, doc.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, cached, 4)
}
