package mail

import (
	"context"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"legiseye/internal/config"
)

func TestInvitationMessage(t *testing.T) {
	msg, err := InvitationMessage(InvitationData{
		To:          "bob@example.com",
		TeamName:    "Legal <Ops>",
		InviterName: "alice",
		Role:        "member",
		AcceptURL:   "http://localhost:3000/invitations/abc",
		ExpiresAt:   time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", msg.To)
	assert.Contains(t, msg.Subject, "Legal <Ops>")
	assert.Contains(t, msg.Text, `"Legal <Ops>"`)
	assert.Contains(t, msg.Text, "2026-01-02 15:04 UTC")
	assert.Contains(t, msg.HTML, "Legal &lt;Ops&gt;")
	assert.Contains(t, msg.HTML, `href="http://localhost:3000/invitations/abc"`)
}

func TestAnalysisReadyMessage(t *testing.T) {
	msg, err := AnalysisReadyMessage(AnalysisReadyData{
		To: "a@example.com", UserName: "alice", DocumentName: "Lease",
		DocumentType: "Lease agreement", RiskScore: 62, DocumentURL: "http://x/documents/1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Analysis ready: Lease", msg.Subject)
	assert.Contains(t, msg.Text, "Risk score: 62/100")
	assert.Contains(t, msg.Text, "Document type: Lease agreement")
	assert.Contains(t, msg.HTML, "<li>Risk score: 62/100</li>")
}

func TestBuildMessageHasBothParts(t *testing.T) {
	from := &mail.Address{Name: "LegisEye", Address: "no-reply@legiseye.local"}
	to := &mail.Address{Address: "bob@example.com"}
	raw, err := buildMessage(from, to, Message{Subject: "Héllo", Text: "plain", HTML: "<p>rich</p>"}, time.Now())
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, "From: \"LegisEye\" <no-reply@legiseye.local>\r\n")
	assert.Contains(t, s, "To: <bob@example.com>\r\n")
	assert.Contains(t, s, "Subject: =?utf-8?q?H=C3=A9llo?=\r\n")
	assert.Contains(t, s, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, s, "text/plain; charset=UTF-8")
	assert.Contains(t, s, "text/html; charset=UTF-8")
	assert.True(t, strings.Index(s, "plain") < strings.Index(s, "<p>rich</p>"))
}

func TestNewSenderDisabledLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewSender(config.MailConfig{Enabled: false}, zap.New(core))
	require.IsType(t, &LogSender{}, sender)

	require.NoError(t, sender.Send(context.Background(), Message{To: "x@example.com", Subject: "s"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "x@example.com", logs.All()[0].ContextMap()["to"])
}

func TestSMTPSenderRejectsBadAddress(t *testing.T) {
	sender := NewSender(config.MailConfig{Enabled: true, From: "not an address"}, nil)
	err := sender.Send(context.Background(), Message{To: "bob@example.com"})
	assert.Error(t, err)
}
