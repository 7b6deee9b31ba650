package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"legiseye/internal/jobs"
	"legiseye/internal/mail"
	"legiseye/internal/model"
)

type ChatMessageCreator interface {
	Create(message *model.ChatMessage) error
}

type DocumentAnalyzer interface {
	Analyze(ctx context.Context, documentID uint) error
}

// PersistChatMessage stores chat messages queued by the chat service.
func PersistChatMessage(repo ChatMessageCreator) Handler {
	return func(_ context.Context, body []byte) error {
		msg, err := decode[model.ChatMessage](body)
		if err != nil {
			return err
		}
		if msg.DocumentID == 0 || msg.UserID == 0 || msg.Content == "" {
			return fmt.Errorf("%w: chat message without document, user or content", ErrInvalidPayload)
		}
		return repo.Create(&msg)
	}
}

// AnalyzeDocuments runs queued document analyses.
func AnalyzeDocuments(analyzer DocumentAnalyzer) Handler {
	return func(ctx context.Context, body []byte) error {
		job, err := decode[jobs.AnalyzeDocument](body)
		if err != nil {
			return err
		}
		if job.DocumentID == 0 {
			return fmt.Errorf("%w: missing document id", ErrInvalidPayload)
		}
		return analyzer.Analyze(ctx, job.DocumentID)
	}
}

// SendEmails delivers queued email through sender.
func SendEmails(sender mail.Sender) Handler {
	return func(ctx context.Context, body []byte) error {
		job, err := decode[jobs.Email](body)
		if err != nil {
			return err
		}
		if strings.TrimSpace(job.To) == "" {
			return fmt.Errorf("%w: email without recipient", ErrInvalidPayload)
		}
		return sender.Send(ctx, mail.Message{To: job.To, Subject: job.Subject, Text: job.Text, HTML: job.HTML})
	}
}

func decode[T any](body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return v, nil
}
