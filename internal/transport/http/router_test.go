package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legiseye/internal/ai"
	"legiseye/internal/bootstrap"
	"legiseye/internal/config"
	"legiseye/internal/mail"
	"legiseye/internal/model"
	"legiseye/internal/platform/database"
	"legiseye/internal/transport/http/handler"
)

const analysisReply = "```json\n" + `{
  "summary": "A residential lease.",
  "document_type": "Lease Agreement",
  "risk_score": 40,
  "key_points": ["Rent is due monthly"],
  "risk_factors": [{"title": "Late fee", "description": "Ten percent of rent", "severity": "medium"}],
  "glossary_terms": [{"term": "Security Deposit", "definition": "Money held against damage"}]
}` + "\n```"

const chatAnswer = "The deposit is returned within 30 days."

type fakeProvider struct{}

func (fakeProvider) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	last := messages[len(messages)-1].Content
	if strings.Contains(last, "Question:") {
		return chatAnswer, nil
	}
	return analysisReply, nil
}

func (p fakeProvider) StreamComplete(ctx context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
	reply, err := p.Complete(ctx, messages)
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

func (fakeProvider) Model() string { return "fake-model" }
func (fakeProvider) Name() string  { return "fake" }

func (fakeProvider) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (fakeProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type upperTranslator struct{}

func (upperTranslator) Translate(_ context.Context, texts []string, _, _ string) ([]string, error) {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = strings.ToUpper(t)
	}
	return out, nil
}

type nopSender struct{}

func (nopSender) Send(context.Context, mail.Message) error { return nil }

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestServer(t *testing.T, health map[string]handler.HealthCheck) *testServer {
	t.Helper()
	db, err := database.New(context.Background(), "sqlite", "file::memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, model.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	rdb := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		App:     config.AppConfig{Name: "legiseye", Env: "test", GinMode: gin.TestMode, BaseURL: "http://localhost:3000"},
		Auth:    config.AuthConfig{JWTSecret: "test-secret", JWTExpireMinute: 60},
		Storage: config.StorageConfig{Dir: t.TempDir(), MaxUploadMiB: 1},
	}
	services := bootstrap.NewServices(bootstrap.Backends{
		Config:     cfg,
		DB:         db,
		Redis:      rdb,
		Provider:   fakeProvider{},
		Translator: upperTranslator{},
		MailSender: nopSender{},
	})
	return &testServer{
		t: t,
		engine: NewEngine(RouterOptions{
			Config:    cfg,
			Services:  services,
			Health:    health,
			StartedAt: time.Now(),
		}),
	}
}

func (s *testServer) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) json(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req, token)

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) register(name string) string {
	s.t.Helper()
	status, env := s.json(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": name,
		"email":    name + "@example.com",
		"password": "correct-horse",
	})
	require.Equal(s.t, http.StatusCreated, status, env.Message)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &out))
	return out.Token
}

func (s *testServer) upload(token, name, content string, teamID uint) (int, envelope) {
	s.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(s.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(s.t, err)
	if teamID != 0 {
		require.NoError(s.t, mw.WriteField("team_id", fmt.Sprint(teamID)))
	}
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := s.do(req, token)

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, map[string]handler.HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	w := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Dependencies map[string]struct {
			OK      bool   `json:"ok"`
			Message string `json:"message"`
		} `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Dependencies["database"].OK)
	assert.Equal(t, "connection refused", body.Dependencies["redis"].Message)

	w = s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "legiseye_http_requests_total")
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.register("alice")

	status, env := s.json(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "alice", "email": "other@example.com", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, 40001, env.Code)

	status, env = s.json(http.MethodPost, "/api/v1/auth/login", "", gin.H{"identifier": "alice@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, decode[struct {
		Token string `json:"token"`
	}](t, env).Token)

	status, env = s.json(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "alice", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40101, env.Code)

	status, _ = s.json(http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = s.json(http.MethodPatch, "/api/v1/auth/me", token, gin.H{"language": "fr", "display_name": "Alice L."})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = s.json(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	me := decode[model.User](t, env)
	assert.Equal(t, "fr", me.Language)
	assert.Equal(t, "Alice L.", me.DisplayName)

	status, env = s.json(http.MethodPatch, "/api/v1/auth/me", token, gin.H{"language": "xx"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40005, env.Code)
}

func TestDocumentChatFlow(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.register("alice")
	bob := s.register("bob")

	status, env := s.upload(alice, "lease.txt", "The Security Deposit is returned within 30 days of move out.", 0)
	require.Equal(t, http.StatusAccepted, status, env.Message)
	doc := decode[model.Document](t, env)
	assert.Equal(t, model.DocumentStatusAnalyzed, doc.Status)
	path := fmt.Sprintf("/api/v1/documents/%d", doc.ID)

	status, env = s.upload(alice, "photo.png", "not a document", 0)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40003, env.Code)

	status, env = s.json(http.MethodGet, path, alice, nil)
	require.Equal(t, http.StatusOK, status)
	detail := decode[struct {
		Role     string                 `json:"role"`
		Analysis model.DocumentAnalysis `json:"analysis"`
	}](t, env)
	assert.Equal(t, model.RoleOwner, detail.Role)
	assert.Equal(t, "A residential lease.", detail.Analysis.Summary)

	status, env = s.json(http.MethodGet, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40401, env.Code)

	status, env = s.json(http.MethodGet, path+"/highlights?page=1", alice, nil)
	require.Equal(t, http.StatusOK, status)
	pages := decode[[]struct {
		Page  int `json:"page"`
		Spans []struct {
			Term string `json:"term"`
		} `json:"spans"`
	}](t, env)
	require.Len(t, pages, 1)
	require.NotEmpty(t, pages[0].Spans)
	assert.Equal(t, "Security Deposit", pages[0].Spans[0].Term)

	status, env = s.json(http.MethodGet, "/api/v1/languages", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, decode[struct {
		Languages []string `json:"languages"`
	}](t, env).Languages, "fr")

	status, env = s.json(http.MethodGet, path+"/translation?lang=fr", alice, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "A RESIDENTIAL LEASE.", decode[model.DocumentAnalysis](t, env).Summary)

	status, env = s.json(http.MethodPost, path+"/chat", alice, gin.H{"content": "When is the deposit returned?"})
	require.Equal(t, http.StatusOK, status, env.Message)
	reply := decode[struct {
		Messages []model.ChatMessage `json:"messages"`
	}](t, env)
	require.Len(t, reply.Messages, 2)
	assert.Equal(t, chatAnswer, reply.Messages[1].Content)

	status, _ = s.json(http.MethodPost, path+"/chat", alice, gin.H{"content": ""})
	assert.Equal(t, http.StatusBadRequest, status)

	req := httptest.NewRequest(http.MethodPost, path+"/chat/stream", strings.NewReader(`{"content":"And the rent?"}`))
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "data: The \n\n")
	assert.Contains(t, w.Body.String(), "event: done\ndata: {")

	status, env = s.json(http.MethodGet, path+"/chat", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]model.ChatMessage](t, env), 4)

	status, _ = s.json(http.MethodDelete, path+"/chat", alice, nil)
	require.Equal(t, http.StatusOK, status)
	_, env = s.json(http.MethodGet, path+"/chat", alice, nil)
	assert.Empty(t, decode[[]model.ChatMessage](t, env))

	status, env = s.json(http.MethodPatch, path, alice, gin.H{"name": "Apartment lease"})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "Apartment lease", decode[model.Document](t, env).Name)

	w = s.do(httptest.NewRequest(http.MethodGet, path+"/file", nil), alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Security Deposit")

	status, _ = s.json(http.MethodDelete, path, alice, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = s.json(http.MethodGet, path, alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestTeamCollaborationFlow(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.register("alice")
	bob := s.register("bob")

	status, env := s.json(http.MethodPost, "/api/v1/teams", alice, gin.H{"name": "Legal", "description": "Contracts"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	team := decode[model.Team](t, env)
	teamPath := fmt.Sprintf("/api/v1/teams/%d", team.ID)

	status, env = s.json(http.MethodPost, teamPath+"/invitations", alice, gin.H{"email": "bob@example.com", "role": "member"})
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, env = s.json(http.MethodPost, teamPath+"/invitations", alice, gin.H{"email": "bob@example.com", "role": "member"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, 40902, env.Code)

	status, env = s.json(http.MethodGet, "/api/v1/invitations", bob, nil)
	require.Equal(t, http.StatusOK, status)
	invitations := decode[[]struct {
		Token    string `json:"token"`
		TeamName string `json:"team_name"`
	}](t, env)
	require.Len(t, invitations, 1)
	assert.Equal(t, "Legal", invitations[0].TeamName)

	status, env = s.json(http.MethodPost, "/api/v1/invitations/"+invitations[0].Token+"/accept", bob, nil)
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = s.json(http.MethodGet, "/api/v1/teams", bob, nil)
	require.Equal(t, http.StatusOK, status)
	teams := decode[[]struct {
		Role        string `json:"role"`
		MemberCount int    `json:"member_count"`
	}](t, env)
	require.Len(t, teams, 1)
	assert.Equal(t, model.RoleMember, teams[0].Role)
	assert.Equal(t, 2, teams[0].MemberCount)

	status, env = s.upload(alice, "nda.txt", "The Receiving Party keeps all information confidential.", 0)
	require.Equal(t, http.StatusAccepted, status, env.Message)
	doc := decode[model.Document](t, env)
	docPath := fmt.Sprintf("/api/v1/documents/%d", doc.ID)

	status, env = s.json(http.MethodPost, docPath+"/shares", alice, gin.H{"team_id": team.ID})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = s.json(http.MethodGet, "/api/v1/notifications/unread-count", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(2), decode[struct {
		Unread int64 `json:"unread"`
	}](t, env).Unread, "invitation and share")

	status, env = s.json(http.MethodGet, fmt.Sprintf("/api/v1/documents?team_id=%d", team.ID), bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]model.Document](t, env), 1)

	status, env = s.json(http.MethodPost, docPath+"/comments", bob, gin.H{"body": "Is this mutual?", "page": 1, "quote": "Receiving Party"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	comment := decode[model.Comment](t, env)

	status, env = s.json(http.MethodPost, docPath+"/comments", alice, gin.H{"body": "No, one way.", "parent_id": comment.ID})
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, env = s.json(http.MethodGet, docPath+"/comments", bob, nil)
	require.Equal(t, http.StatusOK, status)
	threads := decode[[]struct {
		ID      uint            `json:"id"`
		Replies []model.Comment `json:"replies"`
	}](t, env)
	require.Len(t, threads, 1)
	assert.Len(t, threads[0].Replies, 1)

	status, env = s.json(http.MethodPost, fmt.Sprintf("/api/v1/comments/%d/resolve", comment.ID), alice, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.True(t, decode[model.Comment](t, env).Resolved)

	status, _ = s.json(http.MethodPatch, fmt.Sprintf("/api/v1/comments/%d", comment.ID), alice, gin.H{"body": "edited"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.json(http.MethodDelete, docPath, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = s.json(http.MethodDelete, teamPath+"/members/999", alice, nil)
	assert.Equal(t, http.StatusNotFound, status, env.Message)

	status, _ = s.json(http.MethodPost, "/api/v1/notifications/read-all", bob, nil)
	require.Equal(t, http.StatusOK, status)
	_, env = s.json(http.MethodGet, "/api/v1/notifications/unread-count", bob, nil)
	assert.Equal(t, int64(0), decode[struct {
		Unread int64 `json:"unread"`
	}](t, env).Unread)
}
