package otp

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"

	"space-notes-backend/pkg/contact"

	"go.uber.org/zap"
)

// ErrNoChannel is returned when no sender is configured for a contact kind.
var ErrNoChannel = errors.New("no delivery channel for contact")

// Sender delivers a code to a validated contact.
type Sender interface {
	Send(ctx context.Context, to contact.Result, code string) error
}

// ContactRouter dispatches to Email or Phone by contact kind.
type ContactRouter struct {
	Email Sender
	Phone Sender
}

func (r ContactRouter) Send(ctx context.Context, to contact.Result, code string) error {
	switch {
	case to.Kind == contact.KindEmail && r.Email != nil:
		return r.Email.Send(ctx, to, code)
	case to.Kind == contact.KindPhone && r.Phone != nil:
		return r.Phone.Send(ctx, to, code)
	}
	return fmt.Errorf("%w: %s", ErrNoChannel, to.Kind)
}

// LogSender writes codes to the log. It stands in for a real channel in
// development; IncludeCode must stay false anywhere untrusted users can read logs.
type LogSender struct {
	Logger      *zap.Logger
	IncludeCode bool
}

func (s LogSender) Send(_ context.Context, to contact.Result, code string) error {
	fields := []zap.Field{zap.String("contact", to.Normalized), zap.String("kind", string(to.Kind))}
	if s.IncludeCode {
		fields = append(fields, zap.String("code", code))
	}
	s.Logger.Info("otp issued", fields...)
	return nil
}

// SMTPSender mails codes through a plain-auth SMTP relay.
type SMTPSender struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

func (s SMTPSender) Send(_ context.Context, to contact.Result, code string) error {
	if to.Kind != contact.KindEmail {
		return fmt.Errorf("%w: smtp cannot reach %s", ErrNoChannel, to.Kind)
	}
	from := s.From
	if from == "" {
		from = s.User
	}
	msg := []byte(
		"From: " + from + "\r\n" +
			"To: " + to.Normalized + "\r\n" +
			"Subject: Your sign-in code\r\n" +
			"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
			"\r\n" +
			"Your verification code is " + code + ". Do not share it with anyone.\r\n")

	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Pass, s.Host)
	}
	if err := smtp.SendMail(s.Host+":"+s.Port, auth, from, []string{to.Normalized}, msg); err != nil {
		return fmt.Errorf("failed to send otp email: %w", err)
	}
	return nil
}
