package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"easybills/internal/models"
	"easybills/pkg/config"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// NotificationContext carries the values interpolated into email templates.
type NotificationContext struct {
	ClaimID string
	Status  models.ClaimStatus
	Notes   string
	Amount  string
}

// DispatchResult reports a send outcome as a value. Failures never propagate
// past the dispatcher as errors.
type DispatchResult struct {
	Success bool
	Err     error
}

// EmailSender delivers a rendered message. Implemented by SMTPSender in
// production and by fakes in tests.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SMTPSender sends mail over an authenticated SMTP connection.
type SMTPSender struct {
	client *mail.Client
	from   string
}

func NewSMTPSender(cfg *config.SMTPConfig) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPSender{client: client, from: cfg.From}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	return s.client.DialAndSendWithContext(ctx, msg)
}

// NotificationDispatcher maps a canonical claim status to an email template
// and sends it to the claim owner.
type NotificationDispatcher struct {
	sender EmailSender
	logger *zap.Logger
}

func NewNotificationDispatcher(sender EmailSender, logger *zap.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{
		sender: sender,
		logger: logger,
	}
}

// Dispatch selects the template for the given status and sends it. The result
// is always a value; the dispatcher never panics or returns an error directly.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, status models.ClaimStatus, recipient string, nctx NotificationContext) DispatchResult {
	subject, tmpl := d.selectTemplate(status, nctx.ClaimID)

	var body bytes.Buffer
	if err := tmpl.Execute(&body, nctx); err != nil {
		d.logger.Error("Failed to render notification template",
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return DispatchResult{Success: false, Err: err}
	}

	if err := d.sender.Send(ctx, recipient, subject, body.String()); err != nil {
		d.logger.Error("Failed to send notification email",
			zap.String("recipient", recipient),
			zap.String("claim_id", nctx.ClaimID),
			zap.Error(err),
		)
		return DispatchResult{Success: false, Err: err}
	}

	d.logger.Info("Notification email sent",
		zap.String("recipient", recipient),
		zap.String("claim_id", nctx.ClaimID),
		zap.String("status", string(status)),
	)
	return DispatchResult{Success: true}
}

func (d *NotificationDispatcher) selectTemplate(status models.ClaimStatus, claimID string) (subject string, tmpl *template.Template) {
	switch status {
	case models.StatusPendingPayment:
		return fmt.Sprintf("Claim #%s Approved for Payment", claimID), approvalTemplate
	case models.StatusRejected:
		return fmt.Sprintf("Claim #%s Rejected", claimID), rejectionTemplate
	case models.StatusReferredBack:
		return fmt.Sprintf("Clarification Needed for Claim #%s", claimID), clarificationTemplate
	case models.StatusDisbursed:
		return fmt.Sprintf("Payment Processed for Claim #%s", claimID), paymentTemplate
	default:
		return fmt.Sprintf("Claim #%s Status Update: %s", claimID, status), genericTemplate
	}
}
