package notify

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"tutora_back_end/internal/config"
	"tutora_back_end/internal/models"
)

const passCID = "pass.png"

// Mailer envoie les e-mails transactionnels par SMTP
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	log      *zap.Logger

	send func(ctx context.Context, msg *mail.Msg) error
}

func NewMailer(cfg config.Config, log *zap.Logger) *Mailer {
	m := &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
		log:      log,
	}
	m.send = m.dialAndSend
	return m
}

func (m *Mailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.username),
		mail.WithPassword(m.password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// ActivationMessage construit l'e-mail de confirmation d'inscription avec le pass QR intégré
func (m *Mailer) ActivationMessage(e models.Enrollment, courseTitle string) (*mail.Msg, error) {
	png, err := PassPNG(e, PassSize)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, err
	}
	if err := msg.To(e.ContactEmail); err != nil {
		return nil, err
	}
	msg.Subject(fmt.Sprintf("✅ Inscription confirmée : %s", courseTitle))
	msg.SetBodyString(mail.TypeTextHTML, activationHTML(e, courseTitle))
	msg.EmbedReader(passCID, bytes.NewReader(png))
	return msg, nil
}

func activationHTML(e models.Enrollment, courseTitle string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Votre inscription est confirmée</h2>
		<p>Bonjour,</p>
		<p>Le paiement de <strong>%s €</strong> pour le cours <strong>%s</strong> a bien été reçu.</p>
		<p>Présentez ce QR code lors de votre première séance :</p>
		<p style="text-align: center;"><img src="cid:%s" alt="Pass Tutora" width="256" height="256"></p>
		<p style="color: #777; font-size: 12px;">Référence : %s</p>
		<p style="margin-top: 30px; color: #555;">Cordialement,<br><strong>L'équipe Tutora</strong></p>
	</div>
</body>
</html>`, e.Amount.StringFixed(2), html.EscapeString(courseTitle), passCID, html.EscapeString(e.ID))
}

// SendActivation est branché sur l'activation d'une inscription ; un échec est journalisé
func (m *Mailer) SendActivation(ctx context.Context, e models.Enrollment, courseTitle string) error {
	if e.ContactEmail == "" {
		m.log.Warn("⚠️ pas d'adresse pour l'e-mail d'activation", zap.String("enrollment_id", e.ID))
		return nil
	}
	msg, err := m.ActivationMessage(e, courseTitle)
	if err != nil {
		m.log.Error("❌ e-mail d'activation invalide", zap.String("enrollment_id", e.ID), zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	m.log.Info("📤 Envoi de l'e-mail d'activation", zap.String("enrollment_id", e.ID))
	if err := m.send(ctx, msg); err != nil {
		m.log.Error("❌ envoi e-mail d'activation échoué", zap.String("enrollment_id", e.ID), zap.Error(err))
		return err
	}
	return nil
}
