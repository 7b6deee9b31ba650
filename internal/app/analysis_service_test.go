package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legiseye/internal/model"
	"legiseye/internal/vectorindex"
)

func TestAnalyzeStoresAnalysisChunksAndVectors(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	doc := f.document(t, owner.ID, "lease", strings.Repeat("The tenant pays rent monthly. ", 60))

	idx, err := vectorindex.NewChromemIndex("", "analysis")
	require.NoError(t, err)
	llm := &fakeLLM{reply: sampleAnalysisReply}
	svc := NewAnalysisService(f.docs, f.analyses, f.chunks, f.users, llm, llm, idx, nil, f.notifier, nil,
		AnalysisServiceConfig{MaxChars: 100}, nil)

	require.NoError(t, svc.Analyze(context.Background(), doc.ID))

	stored, err := f.docs.GetByID(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusAnalyzed, stored.Status)

	analysis, err := f.analyses.GetByDocumentID(doc.ID)
	require.NoError(t, err)
	require.NotNil(t, analysis)
	assert.Equal(t, "fake-model", analysis.Model)
	assert.Equal(t, 100, analysis.RiskScore)

	chunks, err := f.chunks.ListByDocumentID(doc.ID)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, []float32{1, 0, 0}, chunks[0].EmbeddingVector())

	matches, err := idx.Query(context.Background(), []float32{1, 0, 0}, 100, doc.ID)
	require.NoError(t, err)
	assert.Len(t, matches, len(chunks))

	prompt := llm.lastPrompt()
	require.Len(t, prompt, 2)
	assert.LessOrEqual(t, len([]rune(strings.TrimPrefix(prompt[1].Content, "Document:\n\n"))), 100)

	assert.Equal(t, []string{model.NotifyAnalysisReady}, f.notificationTypes(t, owner.ID))
}

func TestAnalyzeSkipsWhitespaceRuns(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	text := "Tenant shall pay rent." + strings.Repeat(" ", 1200) + "Landlord shall repair."
	doc := f.document(t, owner.ID, "lease", text)

	svc := f.analysisService(&fakeLLM{reply: sampleAnalysisReply})
	require.NoError(t, svc.Analyze(context.Background(), doc.ID))

	stored, err := f.docs.GetByID(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusAnalyzed, stored.Status)

	chunks, err := f.chunks.ListByDocumentID(doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, strings.TrimSpace(c.Content))
	}
}

func TestAnalyzeMarksFailedOnLLMError(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	doc := f.document(t, owner.ID, "nda", "Confidential information stays confidential.")

	svc := f.analysisService(&fakeLLM{err: errors.New("quota exceeded")})
	err := svc.Analyze(context.Background(), doc.ID)
	require.Error(t, err)

	stored, err := f.docs.GetByID(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "quota exceeded")
	assert.Equal(t, []string{model.NotifyAnalysisFailed}, f.notificationTypes(t, owner.ID))
}

func TestAnalyzeMalformedReplyFails(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	doc := f.document(t, owner.ID, "nda", "Some text.")

	err := f.analysisService(&fakeLLM{reply: "sorry"}).Analyze(context.Background(), doc.ID)
	assert.ErrorIs(t, err, ErrAnalysisMalformed)

	stored, err := f.docs.GetByID(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusFailed, stored.Status)
}

func TestAnalyzeUnknownDocument(t *testing.T) {
	f := newFixture(t)
	err := f.analysisService(&fakeLLM{reply: sampleAnalysisReply}).Analyze(context.Background(), 42)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}
