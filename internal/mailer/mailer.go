package mailer

import (
	"fmt"
	"strconv"

	"gopkg.in/gomail.v2"
)

// Mailer is the narrow interface handlers and the OTP service depend on,
// so tests can swap in a recorder.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func NewSMTP(host, port, username, password, from string) (*SMTPMailer, error) {
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("invalid smtp port %q: %w", port, err)
	}
	return &SMTPMailer{
		Host:     host,
		Port:     p,
		Username: username,
		Password: password,
		From:     from,
	}, nil
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
