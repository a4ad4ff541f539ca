package notify

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"tutora_back_end/internal/apperr"
	"tutora_back_end/internal/config"
	"tutora_back_end/internal/models"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func active() models.Enrollment {
	return models.Enrollment{
		ID:           "enr-1",
		UserID:       "user-1",
		ContactEmail: "parent@example.com",
		CourseID:     "course-1",
		Status:       models.EnrollmentActive,
		Amount:       decimal.NewFromInt(70),
	}
}

func TestPass(t *testing.T) {
	png, err := PassPNG(active(), 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))

	uri, err := PassDataURI(active())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	assert.Equal(t, "TUTORA|enr-1|user-1|course-1", PassPayload(active()))

	pending := active()
	pending.Status = models.EnrollmentPending
	_, err = PassPNG(pending, 0)
	assert.True(t, apperr.HasReason(err, apperr.ReasonNotEnrolled))
}

func newTestMailer(send func(context.Context, *mail.Msg) error) *Mailer {
	m := NewMailer(config.Config{MailFrom: "noreply@tutora.local"}, zap.NewNop())
	m.send = send
	return m
}

func TestSendActivation(t *testing.T) {
	var sent []*mail.Msg
	m := newTestMailer(func(_ context.Context, msg *mail.Msg) error {
		sent = append(sent, msg)
		return nil
	})

	require.NoError(t, m.SendActivation(context.Background(), active(), "Maths <CM2>"))
	require.Len(t, sent, 1)

	var buf bytes.Buffer
	_, err := sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "parent@example.com")
}

func TestActivationHTML(t *testing.T) {
	body := activationHTML(active(), "Maths <CM2>")
	assert.Contains(t, body, "Maths &lt;CM2&gt;")
	assert.Contains(t, body, `src="cid:pass.png"`)
	assert.Contains(t, body, "70.00 €")
}

func TestSendActivationSkipsWithoutAddress(t *testing.T) {
	called := false
	m := newTestMailer(func(context.Context, *mail.Msg) error { called = true; return nil })

	e := active()
	e.ContactEmail = ""
	require.NoError(t, m.SendActivation(context.Background(), e, "Maths"))
	assert.False(t, called)
}

func TestSendActivationReportsFailure(t *testing.T) {
	m := newTestMailer(func(context.Context, *mail.Msg) error { return errors.New("smtp: 421") })
	assert.Error(t, m.SendActivation(context.Background(), active(), "Maths"))
}
