package mailer

import (
	"net/smtp"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func TestSMTPMailer(t *testing.T) {
	m := New(Config{Host: "mail.example.com", Port: 587, User: "u", Password: "p", FromName: "DevCamper",
		From: "noreply@devcamper.io"}, logrus.NewEntry(logrus.New())).(*SMTPMailer)
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		assert.NotNil(t, a)
		return nil
	}
	require.NoError(t, m.Send(context.Background(), Message{To: "john@example.com", Subject: "Reset", Body: "Hi"}))
	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Equal(t, "noreply@devcamper.io", gotFrom)
	assert.Equal(t, []string{"john@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "From: DevCamper <noreply@devcamper.io>\r\n")
	assert.Contains(t, string(gotMsg), "Subject: Reset\r\n")
	assert.True(t, strings.HasSuffix(string(gotMsg), "\r\n\r\nHi"))
}

func TestLogMailer(t *testing.T) {
	logger, hook := test.NewNullLogger()
	m := New(Config{}, logrus.NewEntry(logger))
	require.IsType(t, &LogMailer{}, m)
	require.NoError(t, m.Send(context.Background(), Message{To: "john@example.com", Subject: "Reset", Body: "Hi"}))
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "Hi", hook.LastEntry().Message)
}
