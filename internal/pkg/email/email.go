package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/rs/zerolog"
	mail "github.com/xhit/go-simple-mail/v2"

	"github.com/yigit/campuswell/internal/app/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))

// EmailService defines the interface for email operations
type EmailService interface {
	SendOTP(toEmail, toName, code string, otpType models.OTPType, expiresIn time.Duration) error
	SendWelcomeEmail(toEmail, toName string) error
	SendGoalCompleted(toEmail, toName string, goal models.WeeklyGoal) error
	SendOverdueGoals(overdue models.OverdueGoals) error
}

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Enabled    bool
	Host       string
	Port       int
	Username   string
	Password   string
	FromName   string
	FromEmail  string
	Encryption string // ssl|tls, starttls or none
	AppURL     string
}

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a rendered message.
type Sender func(msg Message) error

// EmailServiceImpl implements EmailService
type EmailServiceImpl struct {
	config SMTPConfig
	send   Sender
	logger zerolog.Logger
}

// NewEmailService creates a new EmailService. With SMTP disabled messages are logged
// instead of sent.
func NewEmailService(config SMTPConfig, logger zerolog.Logger) *EmailServiceImpl {
	s := &EmailServiceImpl{config: config, logger: logger}
	s.send = s.sendSMTP
	return s
}

// WithSender replaces SMTP delivery, used by tests.
func (s *EmailServiceImpl) WithSender(send Sender) *EmailServiceImpl {
	s.send = send
	return s
}

var otpSubjects = map[models.OTPType]struct{ subject, intro string }{
	models.OTPEmailVerification: {"Verify your email address", "Use this code to verify your email address:"},
	models.OTPRegistration:      {"Complete your registration", "Use this code to finish creating your account:"},
	models.OTPLogin:             {"Your sign-in code", "Use this code to sign in:"},
	models.OTPPasswordLogin:     {"Your sign-in code", "Use this code to confirm your sign-in:"},
	models.OTPPasswordReset:     {"Reset your password", "Use this code to reset your password:"},
}

// SendOTP sends a one time code.
func (s *EmailServiceImpl) SendOTP(toEmail, toName, code string, otpType models.OTPType, expiresIn time.Duration) error {
	text, ok := otpSubjects[otpType]
	if !ok {
		return fmt.Errorf("unknown OTP type %q", otpType)
	}
	if !s.config.Enabled {
		s.logger.Warn().
			Str("toEmail", toEmail).
			Str("type", string(otpType)).
			Str("code", code).
			Msg("SMTP disabled - OTP email not sent. Use the code above for testing.")
		return nil
	}
	return s.deliver(toEmail, "CampusWell - "+text.subject, "otp.html", map[string]interface{}{
		"Name":             toName,
		"Intro":            text.intro,
		"Code":             code,
		"ExpiresInMinutes": int(expiresIn.Minutes()),
	})
}

// SendWelcomeEmail sends the welcome email after registration.
func (s *EmailServiceImpl) SendWelcomeEmail(toEmail, toName string) error {
	return s.deliver(toEmail, "Welcome to CampusWell", "welcome.html", map[string]interface{}{
		"Name": toName,
	})
}

// SendGoalCompleted congratulates a user on a completed weekly goal.
func (s *EmailServiceImpl) SendGoalCompleted(toEmail, toName string, goal models.WeeklyGoal) error {
	return s.deliver(toEmail, "You completed a weekly goal", "goal_completed.html", map[string]interface{}{
		"Name": toName,
		"Goal": goal,
	})
}

// SendOverdueGoals reminds a user of goals that ended incomplete.
func (s *EmailServiceImpl) SendOverdueGoals(overdue models.OverdueGoals) error {
	if len(overdue.Goals) == 0 {
		return nil
	}
	subject := fmt.Sprintf("%d weekly goal(s) ended incomplete", len(overdue.Goals))
	return s.deliver(overdue.Email, subject, "overdue_goals.html", map[string]interface{}{
		"Name":  overdue.Name,
		"Goals": overdue.Goals,
	})
}

func (s *EmailServiceImpl) deliver(to, subject, tmpl string, data map[string]interface{}) error {
	if strings.TrimSpace(to) == "" {
		s.logger.Warn().Str("template", tmpl).Msg("Recipient email is empty, skipping")
		return nil
	}

	data["AppURL"] = strings.TrimSuffix(s.config.AppURL, "/")
	body, err := Render(tmpl, data)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", tmpl, err)
	}

	if !s.config.Enabled {
		s.logger.Debug().Str("to", to).Str("subject", subject).Msg("SMTP disabled, email not sent")
		return nil
	}

	if err := s.send(Message{To: to, Subject: subject, Body: body}); err != nil {
		s.logger.Error().Err(err).Str("to", to).Str("subject", subject).Msg("Failed to send email")
		return err
	}
	s.logger.Info().Str("to", to).Str("subject", subject).Msg("Email sent")
	return nil
}

// Render executes a named template with data.
func Render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *EmailServiceImpl) sendSMTP(msg Message) error {
	server := mail.NewSMTPClient()
	server.Host = s.config.Host
	server.Port = s.config.Port
	server.Username = s.config.Username
	server.Password = s.config.Password

	switch strings.ToLower(s.config.Encryption) {
	case "ssl", "tls":
		server.Encryption = mail.EncryptionSSLTLS
	case "none":
		server.Encryption = mail.EncryptionNone
	default:
		server.Encryption = mail.EncryptionSTARTTLS
	}

	server.KeepAlive = false
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second

	client, err := server.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			s.logger.Warn().Err(closeErr).Msg("Failed to close SMTP client")
		}
	}()

	email := mail.NewMSG()
	email.SetFrom(fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail))
	email.AddTo(msg.To)
	email.SetSubject(msg.Subject)
	email.SetBody(mail.TextHTML, msg.Body)
	if email.Error != nil {
		return fmt.Errorf("failed to build email: %w", email.Error)
	}

	if err := email.Send(client); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
