package service

import (
	"careerx_backend/internal/config"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailer_BuildMessage(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{From: "no-reply@careerx.local", FromName: "CareerX"})

	msg, err := m.build(MailMessage{
		To:      "asha@example.com",
		Subject: "Your report",
		HTML:    "<p>hi</p>",
		Attachments: []Attachment{
			{Filename: "report.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Your report"}, msg.GetGenHeader("Subject"))
	assert.Len(t, msg.GetAttachments(), 1)

	_, err = m.build(MailMessage{To: "not an address"})
	assert.Error(t, err)
}

func TestNewMailer_DisabledFallsBackToLog(t *testing.T) {
	mailer := NewMailer(config.MailConfig{Enabled: false})
	_, ok := mailer.(LogMailer)
	assert.True(t, ok)
	assert.NoError(t, mailer.Send(context.Background(), MailMessage{To: "a@b.c"}))
}
