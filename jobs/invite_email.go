package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"
)

// SMTPConfig carries the outbound mail settings.
type SMTPConfig struct {
	Host string
	Port int
	From string
}

// InviteEmailJob delivers invitation emails through plain SMTP. The default
// config points at a local Mailpit in development.
type InviteEmailJob struct {
	cfg    SMTPConfig
	logger *slog.Logger
	send   func(addr, from string, to []string, msg []byte) error
}

// NewInviteEmailJob constructs the job.
func NewInviteEmailJob(cfg SMTPConfig, logger *slog.Logger) *InviteEmailJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &InviteEmailJob{
		cfg:    cfg,
		logger: logger,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Handle processes TaskInviteEmail tasks.
func (j *InviteEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload InviteEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Email == "" {
		return asynq.SkipRetry
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", j.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", payload.Email)
	msg.WriteString("Subject: You have been invited to the Meridian back office\r\n")
	msg.WriteString("\r\n")
	fmt.Fprintf(&msg, "Hello %s,\r\n\r\nAn administrator invited you to the Meridian back office. Sign in with your email address to accept the invitation.\r\n", payload.Name)

	addr := fmt.Sprintf("%s:%d", j.cfg.Host, j.cfg.Port)
	if err := j.send(addr, j.cfg.From, []string{payload.Email}, []byte(msg.String())); err != nil {
		j.logger.Error("send invite email", slog.String("email", payload.Email), slog.Any("error", err))
		return err
	}
	j.logger.Info("invite email sent", slog.String("email", payload.Email))
	return nil
}
