package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/config"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

const maxRetries = 3

// EmailService defines the interface for sending emails
type EmailService interface {
	SendRequestCreated(ctx context.Context, to string, data RequestCreatedData) error
	SendRequestDecided(ctx context.Context, to string, data RequestDecidedData) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type emailServiceImpl struct {
	cfg       config.SMTPConfig
	templates *template.Template
	send      sendFunc
	backoff   time.Duration
}

// NewEmailService creates a new email service instance
func NewEmailService(cfg config.SMTPConfig) (EmailService, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	return &emailServiceImpl{
		cfg:       cfg,
		templates: tmpl,
		send:      smtp.SendMail,
		backoff:   time.Second,
	}, nil
}

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return tmpl, nil
}

// RequestCreatedData fills request_created.html
type RequestCreatedData struct {
	RecipientName string
	RequesterName string
	Type          string
	StartDate     string
	EndDate       string
	Reason        string
}

// RequestDecidedData fills request_decided.html
type RequestDecidedData struct {
	RecipientName string
	Type          string
	StartDate     string
	EndDate       string
	Decision      string
	Comment       string
}

// labels are the localized strings shared by all templates.
type labels struct {
	Heading   string
	Requester string
	Type      string
	Period    string
	Reason    string
	Decision  string
	Comment   string
	Footer    string
}

func localizedLabels(ctx context.Context, headingID string) labels {
	return labels{
		Heading:   i18n.T(ctx, headingID),
		Requester: i18n.T(ctx, "label.requester"),
		Type:      i18n.T(ctx, "label.type"),
		Period:    i18n.T(ctx, "label.period"),
		Reason:    i18n.T(ctx, "label.reason"),
		Decision:  i18n.T(ctx, "label.decision"),
		Comment:   i18n.T(ctx, "label.comment"),
		Footer:    i18n.T(ctx, "footer"),
	}
}

// SendRequestCreated tells a reviewer about a new attendance request
func (s *emailServiceImpl) SendRequestCreated(ctx context.Context, to string, data RequestCreatedData) error {
	subject := i18n.T(ctx, "request_created.subject", map[string]any{
		"Type":          data.Type,
		"RequesterName": data.RequesterName,
	})

	body, err := s.render("request_created.html", struct {
		RequestCreatedData
		Labels labels
	}{data, localizedLabels(ctx, "request_created.heading")})
	if err != nil {
		return err
	}

	return s.sendHTML(ctx, to, subject, body)
}

// SendRequestDecided tells the requester how their request was decided
func (s *emailServiceImpl) SendRequestDecided(ctx context.Context, to string, data RequestDecidedData) error {
	data.Decision = i18n.T(ctx, "decision."+data.Decision)
	subject := i18n.T(ctx, "request_decided.subject", map[string]any{
		"Type":     data.Type,
		"Decision": data.Decision,
	})

	body, err := s.render("request_decided.html", struct {
		RequestDecidedData
		Labels labels
	}{data, localizedLabels(ctx, "request_decided.heading")})
	if err != nil {
		return err
	}

	return s.sendHTML(ctx, to, subject, body)
}

func (s *emailServiceImpl) render(name string, data any) (string, error) {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return body.String(), nil
}

func (s *emailServiceImpl) sendHTML(ctx context.Context, to, subject, htmlBody string) error {
	// Skip sending if SMTP is not configured
	if s.cfg.Host == "" {
		slog.Warn("SMTP not configured, skipping email send", "to", to, "subject", subject)
		return nil
	}

	from := s.cfg.From

	headers := fmt.Sprintf("From: %s <%s>\r\n", s.cfg.FromName, from)
	headers += fmt.Sprintf("To: %s\r\n", to)
	headers += fmt.Sprintf("Subject: %s\r\n", subject)
	headers += "MIME-Version: 1.0\r\n"
	headers += "Content-Type: text/html; charset=\"UTF-8\"\r\n"
	headers += "\r\n"

	message := []byte(headers + htmlBody)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := s.send(addr, auth, from, []string{to}, message)
		if err == nil {
			slog.Info("Email sent successfully", "to", to, "subject", subject, "attempt", attempt)
			return nil
		}

		lastErr = err
		slog.Error("Failed to send email",
			"to", to,
			"subject", subject,
			"attempt", attempt,
			"max_retries", maxRetries,
			"error", err,
		)

		// Wait before retrying (exponential backoff: 1s, 2s, 4s)
		if attempt < maxRetries {
			select {
			case <-time.After(s.backoff << (attempt - 1)):
			case <-ctx.Done():
				return fmt.Errorf("email send cancelled after %d attempts: %w", attempt, ctx.Err())
			}
		}
	}

	return fmt.Errorf("failed to send email after %d attempts: %w", maxRetries, lastErr)
}
