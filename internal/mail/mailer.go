package mail

import (
	"fmt"
	"net/smtp"

	"github.com/careercraft/careercraft_service/internal/config"
	"github.com/careercraft/careercraft_service/internal/telemetry"
)

// Mailer sends plain-text transactional mail over SMTP. With no SMTP host
// configured it logs the message instead, so dev setups work without a relay.
type Mailer struct {
	host, port string
	user, pass string
	from       string
}

func New(cfg *config.Config) *Mailer {
	return &Mailer{
		host: cfg.SMTPHost, port: cfg.SMTPPort,
		user: cfg.SMTPUser, pass: cfg.SMTPPassword,
		from: cfg.MailFrom,
	}
}

func (m *Mailer) Send(to, subject, body string) error {
	if m.host == "" {
		telemetry.L().Info().Str("to", to).Str("subject", subject).Msg("mail_skipped_no_smtp")
		return nil
	}
	msg := []byte("From: " + m.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" + body + "\r\n")

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}
	return smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{to}, msg)
}

// SendAsync fires the mail on a goroutine. Delivery is best effort; failures
// are logged, never surfaced to the request.
func (m *Mailer) SendAsync(to, subject, body string) {
	go func() {
		if err := m.Send(to, subject, body); err != nil {
			telemetry.L().Error().Err(err).Str("to", to).Str("subject", subject).Msg("mail_send_failed")
		}
	}()
}

func VerificationBody(username, code string) string {
	return fmt.Sprintf(`Hi %s,

Your CareerCraft verification code is:

    %s

It expires in 15 minutes. If you did not sign up, ignore this mail.
`, username, code)
}

func ResetBody(username, link string) string {
	return fmt.Sprintf(`Hi %s,

Someone requested a password reset for your CareerCraft account.
Open the link below within the next hour to choose a new password:

    %s

If this was not you, ignore this mail and your password stays unchanged.
`, username, link)
}

func WelcomeBody(username string) string {
	return fmt.Sprintf(`Hi %s,

Your email is verified and your CareerCraft account is ready.
Upload your first document and start earning XP.
`, username)
}
