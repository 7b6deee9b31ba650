package app

import (
	"context"

	"go.uber.org/zap"

	"legiseye/internal/jobs"
	"legiseye/internal/logging"
	"legiseye/internal/mail"
)

// Mailer queues email for the email worker and sends directly when the
// queue is unavailable. Delivery failures are logged only.
type Mailer struct {
	queue  Publisher
	sender mail.Sender
	logger *zap.Logger
}

func NewMailer(queue Publisher, sender mail.Sender, logger *zap.Logger) *Mailer {
	return &Mailer{
		queue:  queue,
		sender: sender,
		logger: logging.OrNop(logger),
	}
}

func (m *Mailer) Deliver(ctx context.Context, msg mail.Message) {
	if m == nil {
		return
	}
	if m.queue != nil {
		err := m.queue.Publish(ctx, jobs.Email{To: msg.To, Subject: msg.Subject, Text: msg.Text, HTML: msg.HTML})
		if err == nil {
			return
		}
		m.logger.Warn("enqueue email failed, sending inline", zap.String("to", msg.To), zap.Error(err))
	}
	if m.sender == nil {
		return
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		m.logger.Error("send email failed", zap.String("to", msg.To), zap.Error(err))
	}
}
