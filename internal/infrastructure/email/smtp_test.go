package email

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/cityinfra/trafficcontrol/internal/shared/config"
	"github.com/cityinfra/trafficcontrol/internal/shared/errors"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func testSender(d dialer) *SMTPSender {
	return newSender(d, config.EmailConfig{FromAddress: "noreply@example.org", DefaultMaxRecipients: 3}, logger.NewNop())
}

func TestSMTPSender_Validate(t *testing.T) {
	s := testSender(&fakeDialer{})

	tests := []struct {
		name    string
		msg     Message
		wantMsg string
	}{
		{"empty", Message{}, "No recipient email addresses provided"},
		{"invalid", Message{Recipients: []string{"a@example.org", "bad\r\naddress"}}, "Invalid email address: badaddress"},
		{"truncated", Message{Recipients: []string{strings.Repeat("x", 150)}}, "Invalid email address: " + strings.Repeat("x", 100)},
		{"too many default", Message{Recipients: []string{"a@x.org", "b@x.org", "c@x.org", "d@x.org"}}, "Too many recipients. Maximum allowed: 3"},
		{"too many explicit", Message{Recipients: []string{"a@x.org", "b@x.org"}, MaxRecipients: 1}, "Too many recipients. Maximum allowed: 1"},
		{"ok", Message{Recipients: []string{"a@x.org", "b@x.org"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.msg)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindEmailSendFailure))
			assert.Equal(t, tt.wantMsg, errors.GetAppError(err).Message)
		})
	}
}

func TestSMTPSender_Send(t *testing.T) {
	d := &fakeDialer{}
	s := testSender(d)

	n, err := s.Send(context.Background(), Message{
		Subject:    "Hello",
		TextBody:   "plain",
		HTMLBody:   "<p>html</p>",
		Recipients: []string{"a@example.org"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"Hello"}, d.sent[0].GetHeader("Subject"))
	assert.Equal(t, []string{"a@example.org"}, d.sent[0].GetHeader("To"))
}

func TestSMTPSender_SendFailure(t *testing.T) {
	s := testSender(&fakeDialer{err: fmt.Errorf("connection refused")})

	_, err := s.Send(context.Background(), Message{Subject: "x", Recipients: []string{"a@example.org"}})
	assert.True(t, errors.IsKind(err, errors.KindEmailSendFailure))
}
