package email

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/application/reset"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
	Insecure bool
}

type SMTPSender struct {
	lg  zerolog.Logger
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig, lg zerolog.Logger) *SMTPSender {
	return &SMTPSender{
		lg:  lg.With().Str("component", "smtp_sender").Logger(),
		cfg: cfg,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg reset.Message) error {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	m, err := s.buildMsg(msg)
	if err != nil {
		return err
	}

	c, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return PermanentError{msg: "smtp client init failed: " + err.Error()}
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		s.lg.Error().Err(err).Str("host", s.cfg.Host).Msg("smtp send failed")
		return classifySMTPError(err)
	}

	s.lg.Debug().Str("subject", msg.Subject).Msg("smtp send ok")
	return nil
}

func (s *SMTPSender) buildMsg(msg reset.Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, PermanentError{msg: "invalid from address: " + err.Error()}
	}
	if err := m.To(msg.To); err != nil {
		return nil, PermanentError{msg: "invalid to address: " + err.Error()}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	tlsPolicy := mail.TLSMandatory
	if s.cfg.Insecure {
		tlsPolicy = mail.TLSOpportunistic
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(tlsPolicy),
	}
	if s.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.cfg.Timeout))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

func classifySMTPError(err error) error {
	msg := err.Error()
	if containsAny(msg, "535", "5.7.8", "authentication", "550", "553") {
		return PermanentError{msg: "smtp rejected: " + msg}
	}
	return TemporaryError{msg: "smtp transient failure: " + msg}
}

func containsAny(s string, subs ...string) bool {
	for _, x := range subs {
		if x != "" && strings.Contains(s, x) {
			return true
		}
	}
	return false
}
