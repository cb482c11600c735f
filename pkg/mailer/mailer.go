// Package mailer delivers HTML email over SMTP.
package mailer

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var ErrNoRecipients = errors.New("no recipients")

// Mailer sends one HTML message to a set of recipients.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, html string) error
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	if from == "" {
		from = username
	}
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, username, password), from: from}
}

func (m *SMTPMailer) Send(ctx context.Context, to []string, subject, html string) error {
	msg, err := m.message(to, subject, html)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.dialer.DialAndSend(msg)
}

func (m *SMTPMailer) message(to []string, subject, html string) (*gomail.Message, error) {
	if len(to) == 0 {
		return nil, ErrNoRecipients
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)
	return msg, nil
}

// WriteTo renders the message as it would go on the wire; used for previews and tests.
func (m *SMTPMailer) WriteTo(w io.Writer, to []string, subject, html string) error {
	msg, err := m.message(to, subject, html)
	if err != nil {
		return err
	}
	_, err = msg.WriteTo(w)
	return err
}

// LogMailer stands in when SMTP is not configured; it only logs what would have been sent.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log.Named("mailer")}
}

func (m *LogMailer) Send(_ context.Context, to []string, subject, _ string) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}
	m.log.Info("smtp not configured; email dropped", zap.Strings("to", to), zap.String("subject", subject))
	return nil
}
