package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer delivers one-time codes. It's an interface so handlers and
// tests can run without an SMTP server
type Mailer interface {
	SendCode(to, code string, ttl time.Duration) error
}

// SMTPMailer sends codes through the configured SMTP relay
type SMTPMailer struct{}

func (SMTPMailer) SendCode(to, code string, ttl time.Duration) error {
	from := viper.GetString("mail.sender")
	if to == from {
		return errors.New("invalid email address")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Your physics lab verification code")
	m.SetBody("text/html", fmt.Sprintf(
		"Your verification code is <b>%s</b>.<br><br>It expires in %d minutes.",
		code, int(ttl.Minutes())))

	d := gomail.NewDialer(
		viper.GetString("mail.host"),
		viper.GetInt("mail.port"),
		from,
		viper.GetString("mail.password"),
	)

	return d.DialAndSend(m)
}

// LogMailer is used when no SMTP sender is configured. Codes only hit
// the debug log so local development doesn't need a mail account
type LogMailer struct{}

func (LogMailer) SendCode(to, code string, ttl time.Duration) error {
	zap.L().Debug("Mail disabled, verification code not sent",
		zap.String("to", to),
		zap.String("code", code))
	return nil
}
