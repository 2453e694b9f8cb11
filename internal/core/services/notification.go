package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven"
)

// NotificationService turns queued tasks into email. It runs on workers.
type NotificationService struct {
	store     driven.InstanceStore
	userStore driven.UserStore
	composer  *Composer
	notifier  driven.Notifier
	clientURL string
	logger    *slog.Logger
}

// NotificationConfig holds configuration for the notification service.
type NotificationConfig struct {
	Store     driven.InstanceStore
	UserStore driven.UserStore
	Composer  *Composer
	Notifier  driven.Notifier
	ClientURL string // Base URL of the signing UI
	Logger    *slog.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(cfg NotificationConfig) *NotificationService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{
		store:     cfg.Store,
		userStore: cfg.UserStore,
		composer:  cfg.Composer,
		notifier:  cfg.Notifier,
		clientURL: strings.TrimRight(cfg.ClientURL, "/"),
		logger:    logger,
	}
}

// NotifyRecipient emails a recipient the link to their fields
func (s *NotificationService) NotifyRecipient(ctx context.Context, instanceID, recipientID string) error {
	instance, recipient, err := s.load(ctx, instanceID, recipientID)
	if err != nil {
		return err
	}

	subject := instance.EmailSubject
	if subject == "" {
		subject = fmt.Sprintf("Please sign: %s", instance.Name)
	}
	link := domain.SigningLink(s.clientURL, instance.ID, recipient.ID)

	var body strings.Builder
	fmt.Fprintf(&body, "<p>Hello %s,</p>", html.EscapeString(recipient.Name))
	if instance.EmailMessage != "" {
		fmt.Fprintf(&body, "<p>%s</p>", html.EscapeString(instance.EmailMessage))
	}
	fmt.Fprintf(&body, "<p>You have been asked to sign <strong>%s</strong>.</p>", html.EscapeString(instance.Name))
	fmt.Fprintf(&body, `<p><a href="%s">Open the document</a></p>`, html.EscapeString(link))

	return s.send(ctx, &domain.Message{
		To:      recipient.Email,
		Subject: subject,
		HTML:    body.String(),
	})
}

// NotifyCompleted emails the owner the fully composed document
func (s *NotificationService) NotifyCompleted(ctx context.Context, instanceID string) error {
	instance, err := s.store.Get(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("load instance: %w", err)
	}
	owner, err := s.userStore.Get(ctx, instance.OwnerID)
	if err != nil {
		return fmt.Errorf("load owner: %w", err)
	}
	progress, err := s.store.ListProgress(ctx, instance.ID)
	if err != nil {
		return fmt.Errorf("list progress: %w", err)
	}

	doc, err := s.composer.ComposeInstance(ctx, instance, progress)
	if err != nil {
		return fmt.Errorf("compose instance: %w", err)
	}

	return s.send(ctx, &domain.Message{
		To:      owner.Email,
		Subject: fmt.Sprintf("Completed: %s", instance.Name),
		HTML: fmt.Sprintf("<p>Every recipient has signed <strong>%s</strong>. The signed document is attached.</p>",
			html.EscapeString(instance.Name)),
		Attachments: []domain.Attachment{pdfAttachment(instance.Name, doc)},
	})
}

// SendCopy emails a recipient a document carrying only their own values
func (s *NotificationService) SendCopy(ctx context.Context, instanceID, recipientID string) error {
	instance, recipient, err := s.load(ctx, instanceID, recipientID)
	if err != nil {
		return err
	}

	doc, err := s.composer.ComposeForRecipient(ctx, instance, recipient.ID)
	if err != nil {
		return fmt.Errorf("compose copy: %w", err)
	}

	return s.send(ctx, &domain.Message{
		To:      recipient.Email,
		Subject: fmt.Sprintf("Your copy: %s", instance.Name),
		HTML: fmt.Sprintf("<p>Hello %s,</p><p>Signing of <strong>%s</strong> is complete. A copy with your entries is attached.</p>",
			html.EscapeString(recipient.Name), html.EscapeString(instance.Name)),
		Attachments: []domain.Attachment{pdfAttachment(instance.Name, doc)},
	})
}

func (s *NotificationService) load(ctx context.Context, instanceID, recipientID string) (*domain.Instance, *domain.Recipient, error) {
	if recipientID == "" {
		return nil, nil, fmt.Errorf("recipient_id not found in task payload")
	}
	instance, err := s.store.Get(ctx, instanceID)
	if err != nil {
		return nil, nil, fmt.Errorf("load instance: %w", err)
	}
	recipient := instance.Recipient(recipientID)
	if recipient == nil {
		return nil, nil, fmt.Errorf("recipient %s: %w", recipientID, domain.ErrUnauthorizedRecipient)
	}
	return instance, recipient, nil
}

func (s *NotificationService) send(ctx context.Context, msg *domain.Message) error {
	if err := s.notifier.Send(ctx, msg); err != nil {
		return err
	}
	s.logger.Info("notification sent", "to", msg.To, "subject", msg.Subject, "attachments", len(msg.Attachments))
	return nil
}

func pdfAttachment(name string, data []byte) domain.Attachment {
	filename := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
	if filename == "" {
		filename = "document"
	}
	return domain.Attachment{
		Filename:    filename + ".pdf",
		ContentType: "application/pdf",
		Data:        data,
	}
}
