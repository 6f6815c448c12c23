package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
)

// SendEmailJob delivers queued emails through the configured mailer.
type SendEmailJob struct {
	Mailer Mailer
	Logger *slog.Logger
}

// NewSendEmailJob initialises the email delivery handler.
func NewSendEmailJob(mailer Mailer, logger *slog.Logger) *SendEmailJob {
	return &SendEmailJob{Mailer: mailer, Logger: logger}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *SendEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Mailer == nil {
		return errors.New("send email: handler not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" {
		return asynq.SkipRetry
	}
	if err := j.Mailer.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
		if j.Logger != nil {
			j.Logger.Error("send email", slog.String("to", payload.To), slog.Any("error", err))
		}
		return err
	}
	if j.Logger != nil {
		j.Logger.Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	}
	return nil
}
