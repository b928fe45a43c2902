package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"net/url"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/wemeetoffline/server/internal/config"
	"github.com/wemeetoffline/server/internal/metrics"
)

// Service sends account emails through the configured provider. With email
// disabled it logs the message instead of sending, which keeps local
// development free of provider credentials.
type Service struct {
	cfg         config.EmailConfig
	frontendURL string
	logger      zerolog.Logger
	resend      *resend.Client
}

func NewService(cfg config.EmailConfig, frontendURL string, logger zerolog.Logger) *Service {
	s := &Service{
		cfg:         cfg,
		frontendURL: frontendURL,
		logger:      logger.With().Str("component", "email").Logger(),
	}
	if cfg.Provider == "resend" && cfg.ResendAPIKey != "" {
		s.resend = resend.NewClient(cfg.ResendAPIKey)
	}
	return s
}

func (s *Service) SendVerification(ctx context.Context, to, name, code string) error {
	link := fmt.Sprintf("%s/verify-email?code=%s", s.frontendURL, url.QueryEscape(code))
	body, err := render(verificationTemplate, map[string]string{"Name": name, "Link": link})
	if err != nil {
		return err
	}
	return s.send(ctx, to, "Verify your email", body)
}

func (s *Service) SendPasswordReset(ctx context.Context, to, name, code string) error {
	link := fmt.Sprintf("%s/reset-password?code=%s", s.frontendURL, url.QueryEscape(code))
	body, err := render(resetTemplate, map[string]string{"Name": name, "Link": link})
	if err != nil {
		return err
	}
	return s.send(ctx, to, "Reset your password", body)
}

// SendWelcome delivers the generated password after a federated signup. This
// is the only time the password is ever shown.
func (s *Service) SendWelcome(ctx context.Context, to, name, password string) error {
	body, err := render(welcomeTemplate, map[string]string{"Name": name, "Password": password})
	if err != nil {
		return err
	}
	return s.send(ctx, to, "Welcome to We Meet Offline", body)
}

func (s *Service) send(ctx context.Context, to, subject, htmlBody string) error {
	if !s.cfg.Enabled {
		s.logger.Info().Str("to", to).Str("subject", subject).Msg("email disabled, skipping send")
		metrics.NotificationsTotal.WithLabelValues("email", "skipped").Inc()
		return nil
	}

	var err error
	switch s.cfg.Provider {
	case "resend":
		err = s.sendResend(ctx, to, subject, htmlBody)
	case "smtp":
		err = s.sendSMTP(to, subject, htmlBody)
	default:
		err = fmt.Errorf("unknown email provider %q", s.cfg.Provider)
	}

	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("email", "failed").Inc()
		return err
	}
	metrics.NotificationsTotal.WithLabelValues("email", "sent").Inc()
	return nil
}

func (s *Service) sendResend(ctx context.Context, to, subject, htmlBody string) error {
	if s.resend == nil {
		return fmt.Errorf("resend provider selected but RESEND_API_KEY is not set")
	}
	_, err := s.resend.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From),
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	})
	if err != nil {
		return fmt.Errorf("sending via resend: %w", err)
	}
	return nil
}

func (s *Service) sendSMTP(to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", s.cfg.FromName, s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, msg.Bytes()); err != nil {
		return fmt.Errorf("sending via smtp: %w", err)
	}
	return nil
}

func render(tmpl *template.Template, data map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering email template: %w", err)
	}
	return buf.String(), nil
}

var verificationTemplate = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
  <h2>Hi {{.Name}},</h2>
  <p>Thanks for signing up. Confirm your email address to activate your account:</p>
  <p><a href="{{.Link}}" style="background: #2563eb; color: #fff; padding: 10px 18px; border-radius: 6px; text-decoration: none;">Verify email</a></p>
  <p>If you did not create this account, you can ignore this message.</p>
</body>
</html>`))

var resetTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
  <h2>Hi {{.Name}},</h2>
  <p>We received a request to reset your password. The link below is valid for a short time:</p>
  <p><a href="{{.Link}}" style="background: #2563eb; color: #fff; padding: 10px 18px; border-radius: 6px; text-decoration: none;">Reset password</a></p>
  <p>If you did not request this, your password is unchanged.</p>
</body>
</html>`))

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
  <h2>Welcome {{.Name}},</h2>
  <p>Your account was created with your Google sign-in. A password was generated so you can also log in directly:</p>
  <p style="font-family: monospace; font-size: 16px;">{{.Password}}</p>
  <p>Please change it after your first login. It will not be shown again.</p>
</body>
</html>`))
