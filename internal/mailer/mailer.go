// Package mailer sends the e-mails of the application
package mailer

import (
	"bytes"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/derWhity/devcamper/internal/log"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// Message is a plain text e-mail
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Config configures the SMTP delivery
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	FromName string
	From     string
}

// New returns a mailer delivering via SMTP - or a mailer that only logs the messages if no host is configured
func New(cfg Config, logger *logrus.Entry) Mailer {
	if cfg.Host == "" {
		return &LogMailer{logger: logger}
	}
	return &SMTPMailer{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// SMTPMailer delivers messages through an SMTP server
type SMTPMailer struct {
	cfg    Config
	logger *logrus.Entry
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// Send delivers the message
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	m.logger.WithField(log.FldEmail, msg.To).Info("Sending e-mail")
	if err := m.send(addr, auth, m.cfg.From, []string{msg.To}, m.compose(msg)); err != nil {
		return errors.Wrap(err, "Send: SMTP delivery failed")
	}
	return nil
}

func (m *SMTPMailer) compose(msg Message) []byte {
	var buf bytes.Buffer
	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", m.cfg.FromName), m.cfg.From)
	}
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(msg.Body)
	return buf.Bytes()
}

// LogMailer only writes the messages to the log
type LogMailer struct {
	logger *logrus.Entry
}

// Send logs the message
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.WithField(log.FldEmail, msg.To).WithField("subject", msg.Subject).Info(msg.Body)
	return nil
}
