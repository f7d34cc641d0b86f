// Package email delivers notification mail over SMTP.
package email

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"

	"github.com/cityinfra/trafficcontrol/internal/shared/config"
	"github.com/cityinfra/trafficcontrol/internal/shared/errors"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
	"github.com/cityinfra/trafficcontrol/internal/shared/utils"
)

// Message is one mail to a list of recipients. A zero MaxRecipients uses the
// configured default.
type Message struct {
	Subject       string
	TextBody      string
	HTMLBody      string
	Recipients    []string
	MaxRecipients int
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPSender struct {
	dialer        dialer
	from          string
	fromName      string
	maxRecipients int
	limiter       *rate.Limiter
	logger        logger.Interface
}

func NewSMTPSender(cfg config.EmailConfig, log logger.Interface) *SMTPSender {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	return newSender(d, cfg, log)
}

func newSender(d dialer, cfg config.EmailConfig, log logger.Interface) *SMTPSender {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	maxRecipients := cfg.DefaultMaxRecipients
	if maxRecipients <= 0 {
		maxRecipients = 10
	}
	return &SMTPSender{
		dialer:        d,
		from:          cfg.FromAddress,
		fromName:      cfg.FromName,
		maxRecipients: maxRecipients,
		limiter:       rate.NewLimiter(limit, 1),
		logger:        log,
	}
}

// Validate applies the recipient rules without sending.
func (s *SMTPSender) Validate(msg Message) error {
	if len(msg.Recipients) == 0 {
		return errors.New(errors.KindEmailSendFailure, "No recipient email addresses provided")
	}
	for _, r := range msg.Recipients {
		if !utils.IsValidEmail(r) {
			return errors.New(errors.KindEmailSendFailure, "Invalid email address: "+utils.SanitizeAddress(r))
		}
	}
	limit := msg.MaxRecipients
	if limit <= 0 {
		limit = s.maxRecipients
	}
	if len(msg.Recipients) > limit {
		return errors.Newf(errors.KindEmailSendFailure, "Too many recipients. Maximum allowed: %d", limit)
	}
	return nil
}

// Send validates and delivers msg, returning the number of mails sent.
func (s *SMTPSender) Send(ctx context.Context, msg Message) (int, error) {
	if err := s.Validate(msg); err != nil {
		return 0, err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("email rate limiter: %w", err)
	}

	m := gomail.NewMessage()
	if s.fromName != "" {
		m.SetAddressHeader("From", s.from, s.fromName)
	} else {
		m.SetHeader("From", s.from)
	}
	m.SetHeader("To", msg.Recipients...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Errorw("failed to send email", "subject", msg.Subject, "error", err)
		return 0, errors.New(errors.KindEmailSendFailure, "failed to send email", err.Error())
	}
	s.logger.Infow("email sent", "subject", msg.Subject, "recipients", len(msg.Recipients))
	return 1, nil
}
